package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/queue"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan places.WorkItem, 1)
	errCh := make(chan error, 1)

	go func() {
		item, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- item
	}()

	require.NoError(t, q.Enqueue(context.Background(), places.WorkItem{ID: "1", Query: "bps"}))
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		require.Equal(t, "1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return item")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := q.Dequeue(ctx)
	require.EqualError(t, err, "dequeue canceled: context canceled")

	require.NoError(t, q.Enqueue(context.Background(), places.WorkItem{ID: "primed"}))
	err = q.Enqueue(ctx, places.WorkItem{ID: "overflow"})
	require.EqualError(t, err, "enqueue canceled: context canceled")
}

func TestQueueDrainsAfterClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	ctx := context.Background()
	require.NoError(t, q.Enqueue(ctx, places.WorkItem{ID: "a"}))
	require.NoError(t, q.Enqueue(ctx, places.WorkItem{ID: "b"}))
	q.Close()
	q.Close()

	require.ErrorIs(t, q.Enqueue(ctx, places.WorkItem{ID: "c"}), queue.ErrClosed)

	first, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "a", first.ID)
	second, err := q.Dequeue(ctx)
	require.NoError(t, err)
	require.Equal(t, "b", second.ID)

	_, err = q.Dequeue(ctx)
	require.ErrorIs(t, err, queue.ErrClosed)
}
