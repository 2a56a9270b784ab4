// Package runner drives one scrape run: skip checkpointed ids, fan the rest
// out to workers, and persist their records in batches.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/batch"
	"github.com/JakeFAU/placescraper/internal/checkpoint"
	"github.com/JakeFAU/placescraper/internal/dispatcher"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/progress"
	"github.com/JakeFAU/placescraper/internal/queue/memory"
	"github.com/JakeFAU/placescraper/internal/worker"
)

// Store persists records and reports which ids are already done.
type Store interface {
	batch.Writer
	checkpoint.IDReader
}

// Config controls run fan-out and batching.
type Config struct {
	Concurrency int
	BatchSize   int
	ItemTimeout time.Duration
}

// Summary describes a finished run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Total     int           `json:"total"`
	Skipped   int           `json:"skipped"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	Records   int           `json:"records"`
	Batches   int           `json:"batches"`
	Elapsed   time.Duration `json:"elapsed"`
}

// Runner wires the lookup pipeline together.
type Runner struct {
	cfg      Config
	provider places.Provider
	lookup   worker.Lookuper
	store    Store
	notifier batch.Notifier
	emitter  progress.Emitter
	logger   *zap.Logger
}

// New constructs a Runner. notifier and emitter may be nil.
func New(
	cfg Config,
	provider places.Provider,
	lookup worker.Lookuper,
	store Store,
	notifier batch.Notifier,
	emitter progress.Emitter,
	logger *zap.Logger,
) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:      cfg,
		provider: provider,
		lookup:   lookup,
		store:    store,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger,
	}
}

// Run processes every item whose id is not yet in the store. Cancelling ctx
// stops new lookups; records already produced are still flushed.
func (r *Runner) Run(ctx context.Context, items []places.WorkItem) (Summary, error) {
	start := time.Now()
	id, err := uuid.NewV7()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	runID := progress.UUIDToBytes(id)
	logger := r.logger.With(zap.String("run_id", id.String()))

	done, err := checkpoint.Load(ctx, r.store)
	if err != nil {
		logger.Warn("checkpoint unreadable, processing every item", zap.Error(err))
		done = checkpoint.Set{}
	}
	pending := done.Pending(items)
	summary := Summary{
		RunID:   id.String(),
		Total:   len(items),
		Skipped: len(items) - len(pending),
	}
	logger.Info("run starting",
		zap.Int("total", summary.Total),
		zap.Int("skipped", summary.Skipped),
		zap.Int("pending", len(pending)),
	)
	r.emit(runID, progress.StageRunStart, len(pending), 0)

	if len(pending) == 0 {
		summary.Elapsed = time.Since(start)
		r.emit(runID, progress.StageRunDone, 0, summary.Elapsed)
		return summary, nil
	}

	q := memory.NewQueue(len(pending))
	n := min(r.cfg.Concurrency, len(pending))
	results := make(chan places.Result, n)
	workers := make([]*worker.Worker, n)
	for i := range workers {
		workers[i] = worker.New(i, q, r.provider, r.lookup, results, r.emitter, worker.Config{
			ItemTimeout: r.cfg.ItemTimeout,
			RunID:       runID,
		}, r.logger)
	}
	d := dispatcher.New(q, workers)
	for _, item := range pending {
		if err := d.Enqueue(ctx, item); err != nil {
			d.Seal()
			return summary, err
		}
	}
	d.Seal()

	go func() {
		defer close(results)
		d.Run(ctx)
	}()

	acc := batch.New(batch.Config{
		Size:     r.cfg.BatchSize,
		RunID:    runID,
		Expected: len(pending),
	}, r.store, r.notifier, r.emitter, r.logger)
	stats, err := acc.Consume(ctx, results)

	summary.Processed = stats.Items
	summary.Failed = stats.Failed
	summary.Records = stats.Records
	summary.Batches = stats.Flushes
	summary.Elapsed = time.Since(start)
	r.emit(runID, progress.StageRunDone, stats.Records, summary.Elapsed)

	logger.Info("run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("records", summary.Records),
		zap.Int("batches", summary.Batches),
		zap.Duration("elapsed", summary.Elapsed),
	)
	if err != nil {
		return summary, err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return summary, fmt.Errorf("run interrupted after %d of %d items: %w", summary.Processed, len(pending), ctxErr)
	}
	return summary, nil
}

func (r *Runner) emit(runID [16]byte, stage progress.Stage, count int, dur time.Duration) {
	r.emitter.Emit(progress.Event{
		RunID: runID,
		TS:    time.Now().UTC(),
		Stage: stage,
		Count: count,
		Dur:   dur,
	})
}
