// Package worker implements the per-session lookup loop.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/metrics"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/progress"
	"github.com/JakeFAU/placescraper/internal/queue"
)

// Lookuper resolves one work item on a page.
type Lookuper interface {
	Lookup(ctx context.Context, page places.Page, item places.WorkItem) ([]places.PlaceRecord, error)
}

// Config controls Worker behavior.
type Config struct {
	// ItemTimeout bounds a single lookup; zero means no bound.
	ItemTimeout time.Duration
	RunID       [16]byte
}

// Worker owns one lookup session and processes items until the queue drains.
type Worker struct {
	id       int
	queue    queue.Queue
	provider places.Provider
	lookup   Lookuper
	results  chan<- places.Result
	emitter  progress.Emitter
	cfg      Config
	logger   *zap.Logger

	page places.Page
}

// New constructs a Worker.
func New(
	id int,
	q queue.Queue,
	provider places.Provider,
	lookup Lookuper,
	results chan<- places.Result,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	return &Worker{
		id:       id,
		queue:    q,
		provider: provider,
		lookup:   lookup,
		results:  results,
		emitter:  emitter,
		cfg:      cfg,
		logger:   logger.With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming queue items until the queue is drained or ctx ends.
// The session is opened lazily and always released on return.
func (w *Worker) Run(ctx context.Context) {
	defer w.closeSession()
	for {
		item, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued item", zap.String("id", item.ID))
		w.results <- w.process(ctx, item)
	}
}

// process runs one item to completion. It is detached from ctx cancellation so
// an in-flight item finishes even while the run is shutting down.
func (w *Worker) process(ctx context.Context, item places.WorkItem) (res places.Result) {
	start := time.Now()
	res = places.Result{Item: item, Worker: w.id}
	w.emit(progress.StageItemStart, item, 0, 0, "")
	metrics.IncActiveWorkers()

	defer func() {
		metrics.DecActiveWorkers()
		if r := recover(); r != nil {
			w.logger.Error("lookup panicked", zap.String("id", item.ID), zap.Any("panic", r))
			res.Err = fmt.Errorf("%w: panic: %v", places.ErrSessionBroken, r)
			res.Records = []places.PlaceRecord{places.FailureRecord(item, res.Err.Error())}
			w.recycle()
		}
		res.Duration = time.Since(start)
		w.finish(res)
	}()

	itemCtx := context.WithoutCancel(ctx)
	if w.cfg.ItemTimeout > 0 {
		var cancel context.CancelFunc
		itemCtx, cancel = context.WithTimeout(itemCtx, w.cfg.ItemTimeout)
		defer cancel()
	}

	page, err := w.session(itemCtx)
	if err != nil {
		res.Err = err
		res.Records = []places.PlaceRecord{places.FailureRecord(item, err.Error())}
		return res
	}

	res.Records, res.Err = w.lookup.Lookup(itemCtx, page, item)
	if len(res.Records) == 0 {
		reason := places.ErrNoCandidates.Error()
		if res.Err != nil {
			reason = res.Err.Error()
		}
		res.Records = []places.PlaceRecord{places.FailureRecord(item, reason)}
	}
	if res.Err != nil {
		w.logger.Warn("lookup failed; replacing session", zap.String("id", item.ID), zap.Error(res.Err))
		w.recycle()
	}
	return res
}

func (w *Worker) finish(res places.Result) {
	outcome := "ok"
	stage := progress.StageItemDone
	note := ""
	if res.Failed() {
		outcome = "failed"
		stage = progress.StageItemError
		note = res.Records[0].Error
	}
	for _, rec := range res.Records {
		metrics.ObserveRecord(string(rec.Status))
	}
	metrics.ObserveLookup(outcome, res.Duration)
	w.emit(stage, res.Item, len(res.Records), res.Duration, note)
}

func (w *Worker) session(ctx context.Context) (places.Page, error) {
	if w.page != nil {
		return w.page, nil
	}
	page, err := w.provider.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session: %w", err)
	}
	w.page = page
	return page, nil
}

// recycle drops the current session so the next item opens a fresh one.
func (w *Worker) recycle() {
	if w.page == nil {
		return
	}
	w.closeSession()
	metrics.ObserveSessionRestart()
}

func (w *Worker) closeSession() {
	if w.page == nil {
		return
	}
	if err := w.page.Close(); err != nil {
		w.logger.Warn("close session failed", zap.Error(err))
	}
	w.page = nil
}

func (w *Worker) emit(stage progress.Stage, item places.WorkItem, count int, dur time.Duration, note string) {
	w.emitter.Emit(progress.Event{
		RunID:  w.cfg.RunID,
		TS:     time.Now().UTC(),
		Stage:  stage,
		ItemID: item.ID,
		Query:  item.Query,
		Worker: w.id,
		Count:  count,
		Dur:    dur,
		Note:   note,
	})
}
