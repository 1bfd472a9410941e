package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/progress"
)

// LogSink writes one structured log line per import event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch. Batch flushes log at debug level.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("job_id", evt.JobUUID().String()),
			zap.Int64("client_id", evt.TenantID),
			zap.String("stage", string(evt.Stage)),
			zap.Int64("imported", evt.Imported),
			zap.Int64("duplicates", evt.Duplicates),
			zap.Int64("filtered", evt.Filtered),
		}
		switch evt.Stage {
		case progress.StageBatchFlushed:
			s.logger.Debug("import batch flushed", fields...)
		case progress.StageJobError:
			s.logger.Warn("import failed", append(fields, zap.String("error", evt.Note), zap.Duration("dur", evt.Dur))...)
		default:
			s.logger.Info("import progress", append(fields, zap.String("filename", evt.Filename), zap.Duration("dur", evt.Dur))...)
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
