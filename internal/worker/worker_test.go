package worker

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/places/placestest"
	"github.com/JakeFAU/placescraper/internal/progress"
	"github.com/JakeFAU/placescraper/internal/queue/memory"
)

// scriptedLookup returns canned outcomes keyed by item id.
type scriptedLookup struct {
	mu    sync.Mutex
	errs  map[string]error
	panic map[string]bool
	pages []places.Page
}

func (s *scriptedLookup) Lookup(_ context.Context, page places.Page, item places.WorkItem) ([]places.PlaceRecord, error) {
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()
	if s.panic[item.ID] {
		panic("driver crashed")
	}
	if err := s.errs[item.ID]; err != nil {
		return []places.PlaceRecord{places.FailureRecord(item, err.Error())}, err
	}
	return []places.PlaceRecord{{
		ID:          item.ID,
		Query:       item.Query,
		DisplayName: places.Found("Place "+item.ID, "test"),
		Status:      places.StatusActive,
	}}, nil
}

func runWorker(t *testing.T, provider places.Provider, lookup Lookuper, items ...places.WorkItem) ([]places.Result, *progress.Tracker) {
	t.Helper()

	q := memory.NewQueue(len(items))
	for _, it := range items {
		require.NoError(t, q.Enqueue(context.Background(), it))
	}
	q.Close()

	results := make(chan places.Result, len(items))
	tracker := &progress.Tracker{}
	w := New(1, q, provider, lookup, results, tracker, Config{RunID: [16]byte{1}}, zap.NewNop())
	w.Run(context.Background())
	close(results)

	var out []places.Result
	for r := range results {
		out = append(out, r)
	}
	return out, tracker
}

func items(ids ...string) []places.WorkItem {
	out := make([]places.WorkItem, len(ids))
	for i, id := range ids {
		out[i] = places.WorkItem{ID: id, Query: "q" + id}
	}
	return out
}

func TestWorkerReusesSession(t *testing.T) {
	t.Parallel()

	provider := &placestest.Provider{Surface: &placestest.Surface{}}
	lookup := &scriptedLookup{}

	results, tracker := runWorker(t, provider, lookup, items("a", "b", "c")...)
	require.Len(t, results, 3)
	require.Equal(t, 1, provider.Opened())
	require.Equal(t, 1, provider.Closed(), "session released when the queue drains")
	require.Same(t, lookup.pages[0], lookup.pages[2])

	for _, r := range results {
		require.NoError(t, r.Err)
		require.False(t, r.Failed())
	}
	require.Equal(t, 3, tracker.Snapshot().Done)
}

func TestWorkerReplacesSessionAfterError(t *testing.T) {
	t.Parallel()

	provider := &placestest.Provider{Surface: &placestest.Surface{}}
	lookup := &scriptedLookup{errs: map[string]error{"b": errors.New("target closed")}}

	results, tracker := runWorker(t, provider, lookup, items("a", "b", "c")...)
	require.Len(t, results, 3)
	require.Equal(t, 2, provider.Opened())
	require.Equal(t, 2, provider.Closed())
	require.NotSame(t, lookup.pages[0], lookup.pages[2])

	require.True(t, results[1].Failed())
	require.Equal(t, places.StatusError, results[1].Records[0].Status)
	require.False(t, results[2].Failed())
	require.Equal(t, 1, tracker.Snapshot().Failed)
}

func TestWorkerSurvivesPanics(t *testing.T) {
	t.Parallel()

	provider := &placestest.Provider{Surface: &placestest.Surface{}}
	lookup := &scriptedLookup{panic: map[string]bool{"a": true}}

	results, _ := runWorker(t, provider, lookup, items("a", "b")...)
	require.Len(t, results, 2)
	require.ErrorIs(t, results[0].Err, places.ErrSessionBroken)
	require.Len(t, results[0].Records, 1)
	require.Equal(t, "a", results[0].Records[0].ID)
	require.True(t, results[0].Failed())
	require.False(t, results[1].Failed())
	require.Equal(t, 2, provider.Opened())
}

func TestWorkerOpenFailureYieldsFailureRecords(t *testing.T) {
	t.Parallel()

	provider := &placestest.Provider{OpenErr: errors.New("chrome not found")}
	results, _ := runWorker(t, provider, &scriptedLookup{}, items("a", "b")...)
	require.Len(t, results, 2)
	for _, r := range results {
		require.Error(t, r.Err)
		require.Len(t, r.Records, 1)
		require.Contains(t, r.Records[0].Error, "chrome not found")
	}
}

func TestWorkerStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := make(chan places.Result, 1)
	w := New(1, q, &placestest.Provider{}, &scriptedLookup{}, results, nil, Config{}, nil)
	w.Run(ctx)
	require.Empty(t, results)
}
