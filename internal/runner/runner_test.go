package runner

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/placescraper/internal/extract"
	"github.com/JakeFAU/placescraper/internal/lookup"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/places/placestest"
	"github.com/JakeFAU/placescraper/internal/progress"
	"github.com/JakeFAU/placescraper/internal/store/csvfile"
)

const base = "https://www.google.com/maps/search"

const kantorList = `<div role="main"><div class="Nv2PK">
  <a class="hfpxzc" aria-label="Kantor BPS Kota Surabaya" href="https://www.google.com/maps/place/x/@-7.2575,112.7521,17z"></a>
  <span class="MW4etd">4.5</span>
  <span>Kantor Pemerintah</span>
  <span>Jl. Raya Kendangsari Industri No. 43</span>
  <span>Open now · Closes 10PM</span>
</div></div>`

func surface(items []places.WorkItem) *placestest.Surface {
	s := &placestest.Surface{Search: map[string]string{}}
	for _, it := range items {
		s.Search[lookup.SearchURL(base, it.Query)] = kantorList
	}
	return s
}

func newRunner(cfg Config, provider places.Provider, st Store, emitter progress.Emitter) *Runner {
	svc := lookup.New(lookup.Config{
		SearchURL:         base,
		MaxResults:        3,
		CoordPollInterval: time.Millisecond,
		CoordPollTimeout:  5 * time.Millisecond,
	}, extract.New(extract.DefaultSelectors()), nil, nil)
	return New(cfg, provider, svc, st, nil, emitter, nil)
}

func TestRunKantorBPS(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	items := []places.WorkItem{{ID: "3578", Query: "Kantor BPS Surabaya"}}
	st := csvfile.New(filepath.Join(t.TempDir(), "out.csv"))
	provider := &placestest.Provider{Surface: surface(items)}

	summary, err := newRunner(Config{Concurrency: 2, BatchSize: 10}, provider, st, nil).Run(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
	require.Equal(t, 1, summary.Records)
	require.Equal(t, 1, summary.Batches)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 1, provider.Opened(), "one worker for one item")
	require.Equal(t, provider.Opened(), provider.Closed())

	header, rows, err := st.Table(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	row := map[string]string{}
	for i, col := range header {
		row[col] = rows[0][i]
	}
	require.Equal(t, "3578", row["id"])
	require.Equal(t, "Kantor BPS Kota Surabaya", row["display_name"])
	require.Contains(t, row["address"], "Jl. Raya")
	require.Equal(t, "Aktif", row["status"])
	require.Equal(t, "-7.2575", row["latitude"])
	require.Equal(t, "112.7521", row["longitude"])
	require.Equal(t, places.Sentinel, row["phone"])
	require.Contains(t, row["operating_hours"], "10PM")
}

func TestRunIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	items := []places.WorkItem{
		{ID: "1", Query: "a"}, {ID: "2", Query: "b"}, {ID: "3", Query: "c"},
		{ID: "4", Query: "d"}, {ID: "5", Query: "e"},
	}
	st := csvfile.New(filepath.Join(t.TempDir(), "out.csv"))

	first := &placestest.Provider{Surface: surface(items)}
	summary, err := newRunner(Config{Concurrency: 3, BatchSize: 2}, first, st, nil).Run(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Processed)
	require.Equal(t, 3, summary.Batches)

	second := &placestest.Provider{Surface: surface(items)}
	summary, err = newRunner(Config{Concurrency: 3, BatchSize: 2}, second, st, nil).Run(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 5, summary.Skipped)
	require.Zero(t, summary.Processed)
	require.Zero(t, second.Opened())
	require.Zero(t, second.Navigations())

	ids, err := st.ReadIDs(ctx)
	require.NoError(t, err)
	require.Len(t, ids, 5)
	require.ElementsMatch(t, []string{"1", "2", "3", "4", "5"}, ids)
}

func TestRunZeroCandidatesWritesErrorRow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	items := []places.WorkItem{{ID: "99", Query: "nothing here"}}
	st := csvfile.New(filepath.Join(t.TempDir(), "out.csv"))
	provider := &placestest.Provider{Surface: &placestest.Surface{Search: map[string]string{
		lookup.SearchURL(base, "nothing here"): `<div role="main">No results</div>`,
	}}}

	summary, err := newRunner(Config{Concurrency: 1, BatchSize: 5}, provider, st, nil).Run(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Failed)

	header, rows, err := st.Table(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	for i, col := range header {
		switch col {
		case "id":
			require.Equal(t, "99", rows[0][i])
		case "query":
			require.Equal(t, "nothing here", rows[0][i])
		case "status":
			require.Equal(t, "Error", rows[0][i])
		case "error":
			require.NotEmpty(t, rows[0][i])
		default:
			require.Equal(t, places.Sentinel, rows[0][i], col)
		}
	}
}

func TestRunRecyclesSessionAfterPanic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	items := []places.WorkItem{{ID: "1", Query: "crash"}, {ID: "2", Query: "fine"}}
	s := surface(items)
	s.Panic = map[string]bool{lookup.SearchURL(base, "crash"): true}
	st := csvfile.New(filepath.Join(t.TempDir(), "out.csv"))
	provider := &placestest.Provider{Surface: s}

	summary, err := newRunner(Config{Concurrency: 1, BatchSize: 1}, provider, st, nil).Run(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 2, summary.Processed)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, 2, provider.Opened())
	require.Equal(t, 2, provider.Closed())
}

type failingIDs struct {
	*csvfile.Store
}

func (failingIDs) ReadIDs(context.Context) ([]string, error) {
	return nil, errors.New("permission denied")
}

func TestRunContinuesWhenCheckpointUnreadable(t *testing.T) {
	t.Parallel()

	items := []places.WorkItem{{ID: "1", Query: "a"}}
	st := failingIDs{csvfile.New(filepath.Join(t.TempDir(), "out.csv"))}
	provider := &placestest.Provider{Surface: surface(items)}

	summary, err := newRunner(Config{Concurrency: 1}, provider, st, nil).Run(context.Background(), items)
	require.NoError(t, err)
	require.Equal(t, 1, summary.Processed)
}

type recorder struct {
	mu     sync.Mutex
	stages []progress.Stage
}

func (r *recorder) Emit(evt progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, evt.Stage)
}

func TestRunEmitsLifecycleEvents(t *testing.T) {
	t.Parallel()

	items := []places.WorkItem{{ID: "1", Query: "a"}}
	rec := &recorder{}
	st := csvfile.New(filepath.Join(t.TempDir(), "out.csv"))
	provider := &placestest.Provider{Surface: surface(items)}

	_, err := newRunner(Config{Concurrency: 1}, provider, st, rec).Run(context.Background(), items)
	require.NoError(t, err)

	require.Equal(t, []progress.Stage{
		progress.StageRunStart,
		progress.StageItemStart,
		progress.StageItemDone,
		progress.StageBatchFlushed,
		progress.StageRunDone,
	}, rec.stages)
}
