package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart     Stage = "RUN_START"
	StageItemStart    Stage = "ITEM_START"
	StageItemDone     Stage = "ITEM_DONE"
	StageItemError    Stage = "ITEM_ERROR"
	StageBatchFlushed Stage = "BATCH_FLUSHED"
	StageBatchError   Stage = "BATCH_ERROR"
	StageRunDone      Stage = "RUN_DONE"
)

// Event captures a single milestone of a scrape run.
type Event struct {
	// RunID identifies the run using the 16-byte UUID form.
	RunID [16]byte
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// ItemID and Query scope item events to one work item.
	ItemID string
	Query  string
	Worker int
	// Count carries records for item events, rows for batch events, and the
	// number of pending items for RUN_START.
	Count int
	Dur   time.Duration
	// Note lets emitters attach low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == [16]byte{} {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageBatchFlushed, StageBatchError:
	case StageItemStart, StageItemDone, StageItemError:
		if e.ItemID == "" {
			return fmt.Errorf("%s requires item id", e.Stage)
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	if e.Count < 0 {
		return errors.New("count must be >= 0")
	}
	return nil
}

// RunUUID converts the binary run ID to uuid.UUID.
func (e Event) RunUUID() uuid.UUID {
	return uuid.UUID(e.RunID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
