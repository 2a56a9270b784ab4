package sinks

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/placescraper/internal/progress"
)

func TestLogSinkLevels(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))
	runID := progress.UUIDToBytes(uuid.New())

	sink.Emit(progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageItemStart, ItemID: "1"})
	sink.Emit(progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageItemDone, ItemID: "1", Query: "bps", Count: 2})
	sink.Emit(progress.Event{RunID: runID, TS: time.Now(), Stage: progress.StageItemError, ItemID: "2", Note: "boom"})

	entries := logs.All()
	require.Len(t, entries, 2, "debug start event is filtered")
	require.Equal(t, zapcore.InfoLevel, entries[0].Level)
	require.Equal(t, "bps", entries[0].ContextMap()["query"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
	require.Equal(t, "boom", entries[1].ContextMap()["note"])
}
