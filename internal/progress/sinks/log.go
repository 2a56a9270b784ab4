package sinks

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/placescraper/internal/progress"
)

// LogSink writes each progress event as a structured log line. Item starts are
// logged at debug level; failures at warn.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the emitter interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Emit implements progress.Emitter.
func (s *LogSink) Emit(evt progress.Event) {
	level := zapcore.InfoLevel
	switch evt.Stage {
	case progress.StageItemStart:
		level = zapcore.DebugLevel
	case progress.StageItemError, progress.StageBatchError:
		level = zapcore.WarnLevel
	}
	ce := s.logger.Check(level, "progress event")
	if ce == nil {
		return
	}
	fields := []zap.Field{
		zap.String("run_id", evt.RunUUID().String()),
		zap.String("stage", string(evt.Stage)),
	}
	if evt.ItemID != "" {
		fields = append(fields,
			zap.String("id", evt.ItemID),
			zap.String("query", evt.Query),
			zap.Int("worker", evt.Worker),
		)
	}
	fields = append(fields, zap.Int("count", evt.Count))
	if evt.Dur > 0 {
		fields = append(fields, zap.Duration("dur", evt.Dur))
	}
	if evt.Note != "" {
		fields = append(fields, zap.String("note", evt.Note))
	}
	ce.Write(fields...)
}
