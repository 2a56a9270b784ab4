package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestTrackerFoldsEvents(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	runID := UUIDToBytes(id)
	now := time.Now()
	var tr Tracker

	emit := func(stage Stage, item string, count int, note string) {
		tr.Emit(Event{RunID: runID, TS: now, Stage: stage, ItemID: item, Count: count, Note: note})
	}
	emit(StageRunStart, "", 3, "")
	emit(StageItemStart, "a", 0, "")
	emit(StageItemStart, "b", 0, "")
	emit(StageItemDone, "a", 2, "")
	emit(StageItemError, "b", 1, "no candidates")
	emit(StageBatchFlushed, "", 3, "")

	snap := tr.Snapshot()
	require.Equal(t, id.String(), snap.RunID)
	require.True(t, snap.Running)
	require.Equal(t, 1, snap.Pending)
	require.Equal(t, 0, snap.InFlight)
	require.Equal(t, 2, snap.Done)
	require.Equal(t, 1, snap.Failed)
	require.Equal(t, 3, snap.Records)
	require.Equal(t, 1, snap.Batches)
	require.Equal(t, 3, snap.Rows)
	require.Equal(t, "no candidates", snap.LastError)

	emit(StageRunDone, "", 0, "")
	require.False(t, tr.Snapshot().Running)
}

func TestTrackerIgnoresInvalidEvents(t *testing.T) {
	t.Parallel()

	var tr Tracker
	tr.Emit(Event{Stage: StageItemDone, ItemID: "x"})
	require.Equal(t, Snapshot{}, tr.Snapshot())
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	runID := UUIDToBytes(uuid.New())
	now := time.Now()

	require.NoError(t, Event{RunID: runID, TS: now, Stage: StageRunStart}.Validate())
	require.Error(t, Event{TS: now, Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: runID, Stage: StageRunStart}.Validate())
	require.Error(t, Event{RunID: runID, TS: now, Stage: StageItemDone}.Validate())
	require.Error(t, Event{RunID: runID, TS: now, Stage: "NOPE"}.Validate())
	require.Error(t, Event{RunID: runID, TS: now, Stage: StageRunDone, Dur: -1}.Validate())
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	var a, b Tracker
	m := Multi{&a, nil, &b, Nop{}}
	m.Emit(Event{RunID: UUIDToBytes(uuid.New()), TS: time.Now(), Stage: StageRunStart, Count: 4})
	require.Equal(t, 4, a.Snapshot().Pending)
	require.Equal(t, 4, b.Snapshot().Pending)
}
