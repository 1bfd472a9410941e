// Package worker runs queued import tasks through the pipeline.
package worker

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/ingest"
)

// Runner executes one import. importer.Pipeline satisfies it.
type Runner interface {
	Run(ctx context.Context, job ingest.Job, path string) (ingest.Job, error)
}

// Worker consumes queue items and executes the import pipeline.
type Worker struct {
	id     int
	queue  ingest.Queue
	runner Runner
	logger *zap.Logger
}

// New constructs a Worker.
func New(id int, queue ingest.Queue, runner Runner, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:     id,
		queue:  queue,
		runner: runner,
		logger: logger.Named("worker").With(zap.Int("worker", id)),
	}
}

// Run blocks, consuming tasks until the context finishes or the queue
// closes. A task already started runs to completion even if ctx ends.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ingest.ErrQueueClosed) {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued import", zap.String("job_id", task.Job.ID.String()))
		w.process(context.WithoutCancel(ctx), task)
	}
}

func (w *Worker) process(ctx context.Context, task ingest.Task) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("import panicked",
				zap.String("job_id", task.Job.ID.String()),
				zap.Error(fmt.Errorf("panic: %v", r)),
			)
		}
	}()
	job, err := w.runner.Run(ctx, task.Job, task.Path)
	if err != nil {
		w.logger.Warn("import ended in error",
			zap.String("job_id", job.ID.String()),
			zap.String("status", string(job.Status)),
			zap.Error(err),
		)
		return
	}
	w.logger.Debug("import finished",
		zap.String("job_id", job.ID.String()),
		zap.Int64("imported", job.Imported),
	)
}
