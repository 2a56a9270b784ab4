// Package batch accumulates worker results and persists them in fixed-size
// flushes. A single goroutine owns the buffer, so records are never written
// concurrently and every result reaches the store exactly once.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/placescraper/internal/metrics"
	"github.com/JakeFAU/placescraper/internal/places"
	"github.com/JakeFAU/placescraper/internal/progress"
)

const defaultSize = 50

// Writer appends records to durable storage.
type Writer interface {
	Append(ctx context.Context, records []places.PlaceRecord) error
}

// Flush describes one successful write.
type Flush struct {
	RunID string    `json:"run_id"`
	Seq   int       `json:"seq"`
	Rows  int       `json:"rows"`
	IDs   []string  `json:"ids"`
	At    time.Time `json:"at"`
}

// Notifier is told about each successful flush. Notification failures are
// logged and never affect persistence.
type Notifier interface {
	Notify(ctx context.Context, f Flush) error
}

// Config controls batching.
type Config struct {
	// Size is the maximum number of records per flush.
	Size  int
	RunID [16]byte
	// Expected is the number of results the run will produce; used for the
	// pending-items gauge only.
	Expected int
}

// Stats summarizes what the accumulator consumed and wrote.
type Stats struct {
	Items     int
	Failed    int
	Records   int
	Flushes   int
	Unflushed int
}

// Accumulator buffers records and flushes them through a Writer.
type Accumulator struct {
	cfg      Config
	writer   Writer
	notifier Notifier
	emitter  progress.Emitter
	logger   *zap.Logger

	pending []places.PlaceRecord
	stats   Stats
}

// New constructs an Accumulator. notifier and emitter may be nil.
func New(cfg Config, writer Writer, notifier Notifier, emitter progress.Emitter, logger *zap.Logger) *Accumulator {
	if cfg.Size <= 0 {
		cfg.Size = defaultSize
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accumulator{
		cfg:      cfg,
		writer:   writer,
		notifier: notifier,
		emitter:  emitter,
		logger:   logger,
		pending:  make([]places.PlaceRecord, 0, cfg.Size),
	}
}

// Consume reads results until the channel closes, flushing every Size records
// and once more for the remainder. Flushes run detached from ctx cancellation
// so buffered records still reach the store during shutdown. A failed flush
// keeps its records buffered for the next attempt; records still unwritten at
// the end are reported as an error.
func (a *Accumulator) Consume(ctx context.Context, results <-chan places.Result) (Stats, error) {
	flushCtx := context.WithoutCancel(ctx)
	var lastErr error
	for res := range results {
		a.stats.Items++
		if res.Failed() {
			a.stats.Failed++
		}
		a.stats.Records += len(res.Records)
		a.pending = append(a.pending, res.Records...)
		if a.cfg.Expected > 0 {
			metrics.SetPending(max(0, a.cfg.Expected-a.stats.Items))
		}
		for len(a.pending) >= a.cfg.Size {
			if err := a.flush(flushCtx, a.cfg.Size); err != nil {
				lastErr = err
				break
			}
		}
	}
	for len(a.pending) > 0 {
		if err := a.flush(flushCtx, min(a.cfg.Size, len(a.pending))); err != nil {
			lastErr = err
			break
		}
	}
	a.stats.Unflushed = len(a.pending)
	if a.stats.Unflushed > 0 {
		return a.stats, fmt.Errorf("%d records not persisted: %w", a.stats.Unflushed, lastErr)
	}
	return a.stats, nil
}

func (a *Accumulator) flush(ctx context.Context, n int) error {
	chunk := a.pending[:n]
	if err := a.writer.Append(ctx, chunk); err != nil {
		metrics.ObserveBatch("error")
		a.emit(progress.StageBatchError, n, err.Error())
		a.logger.Error("batch flush failed; keeping records buffered", zap.Int("rows", n), zap.Error(err))
		return fmt.Errorf("flush batch: %w", err)
	}
	a.stats.Flushes++
	metrics.ObserveBatch("ok")
	a.emit(progress.StageBatchFlushed, n, "")
	a.logger.Info("batch flushed", zap.Int("seq", a.stats.Flushes), zap.Int("rows", n))

	if a.notifier != nil {
		ids := make([]string, 0, n)
		for _, rec := range chunk {
			ids = append(ids, rec.ID)
		}
		f := Flush{
			RunID: uuid.UUID(a.cfg.RunID).String(),
			Seq:   a.stats.Flushes,
			Rows:  n,
			IDs:   ids,
			At:    time.Now().UTC(),
		}
		if err := a.notifier.Notify(ctx, f); err != nil {
			a.logger.Warn("flush notification failed", zap.Int("seq", f.Seq), zap.Error(err))
		}
	}
	a.pending = append(a.pending[:0], a.pending[n:]...)
	return nil
}

func (a *Accumulator) emit(stage progress.Stage, count int, note string) {
	a.emitter.Emit(progress.Event{
		RunID: a.cfg.RunID,
		TS:    time.Now().UTC(),
		Stage: stage,
		Count: count,
		Note:  note,
	})
}
