package progress

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Snapshot is a point-in-time view of a run.
type Snapshot struct {
	RunID     string    `json:"run_id,omitempty"`
	StartedAt time.Time `json:"started_at,omitzero"`
	Running   bool      `json:"running"`
	Pending   int       `json:"pending"`
	InFlight  int       `json:"in_flight"`
	Done      int       `json:"done"`
	Failed    int       `json:"failed"`
	Records   int       `json:"records"`
	Batches   int       `json:"batches"`
	Rows      int       `json:"rows_flushed"`
	LastError string    `json:"last_error,omitempty"`
}

// Tracker folds events into a Snapshot. The zero value is ready to use.
type Tracker struct {
	mu   sync.Mutex
	snap Snapshot
}

// Emit implements Emitter. Invalid events are ignored.
func (t *Tracker) Emit(evt Event) {
	if evt.Validate() != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &t.snap
	switch evt.Stage {
	case StageRunStart:
		*s = Snapshot{
			RunID:     uuid.UUID(evt.RunID).String(),
			StartedAt: evt.TS,
			Running:   true,
			Pending:   evt.Count,
		}
	case StageItemStart:
		s.InFlight++
	case StageItemDone, StageItemError:
		s.InFlight = max(0, s.InFlight-1)
		s.Pending = max(0, s.Pending-1)
		s.Done++
		s.Records += evt.Count
		if evt.Stage == StageItemError {
			s.Failed++
			s.LastError = evt.Note
		}
	case StageBatchFlushed:
		s.Batches++
		s.Rows += evt.Count
	case StageBatchError:
		s.LastError = evt.Note
	case StageRunDone:
		s.Running = false
		s.InFlight = 0
	}
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snap
}
