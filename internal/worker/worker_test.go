package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/queue/memory"
)

type fakeRunner struct {
	mu    sync.Mutex
	ran   []ingest.Task
	ctxOK []bool
	err   error
	panic bool
}

func (f *fakeRunner) Run(ctx context.Context, job ingest.Job, path string) (ingest.Job, error) {
	f.mu.Lock()
	f.ran = append(f.ran, ingest.Task{Job: job, Path: path})
	f.ctxOK = append(f.ctxOK, ctx.Err() == nil)
	f.mu.Unlock()
	if f.panic {
		panic("boom")
	}
	if f.err != nil {
		job.Status = ingest.StatusError
		return job, f.err
	}
	job.Status = ingest.StatusCompleted
	return job, nil
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ran)
}

func TestWorkerRunsQueuedTasks(t *testing.T) {
	t.Parallel()

	q := memory.NewQueue(4)
	runner := &fakeRunner{}
	w := New(1, q, runner, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(ctx, ingest.Task{Job: ingest.Job{ID: uuid.New()}, Path: "p"}))
	}
	require.Eventually(t, func() bool { return runner.count() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestWorkerSurvivesFailuresAndPanics(t *testing.T) {
	t.Parallel()

	for name, runner := range map[string]*fakeRunner{
		"error": {err: errors.New("insert failed")},
		"panic": {panic: true},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			q := memory.NewQueue(2)
			w := New(1, q, runner, zap.NewNop())
			require.NoError(t, q.Enqueue(context.Background(), ingest.Task{Path: "a"}))
			require.NoError(t, q.Enqueue(context.Background(), ingest.Task{Path: "b"}))
			q.Close()

			w.Run(context.Background())
			require.Equal(t, 2, runner.count())
		})
	}
}

func TestWorkerDetachesImportContext(t *testing.T) {
	t.Parallel()

	q := &cancelingQueue{task: ingest.Task{Path: "a"}}
	runner := &fakeRunner{}
	w := New(1, q, runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	w.Run(ctx)

	require.Equal(t, 1, runner.count())
	require.True(t, runner.ctxOK[0], "import context must survive shutdown")
}

// cancelingQueue hands out one task and cancels the worker context as it
// does so.
type cancelingQueue struct {
	task   ingest.Task
	cancel context.CancelFunc
	served bool
}

func (q *cancelingQueue) Enqueue(context.Context, ingest.Task) error { return nil }

func (q *cancelingQueue) Dequeue(ctx context.Context) (ingest.Task, error) {
	if q.served {
		return ingest.Task{}, ctx.Err()
	}
	q.served = true
	q.cancel()
	return q.task, nil
}
