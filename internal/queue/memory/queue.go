// Package memory provides queue implementations for local development and
// single-process deployments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/botlog/internal/ingest"
)

// Queue is a bounded in-memory queue with context-aware operations. Close
// never waits on a blocked Enqueue.
type Queue struct {
	ch        chan ingest.Task
	done      chan struct{}
	closeOnce sync.Once
}

var _ ingest.Queue = (*Queue)(nil)

// NewQueue constructs a new queue with the provided capacity.
func NewQueue(capacity int) *Queue {
	if capacity < 0 {
		capacity = 0
	}
	return &Queue{
		ch:   make(chan ingest.Task, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue pushes a task into the queue or returns if the context ends or the
// queue closes.
func (q *Queue) Enqueue(ctx context.Context, task ingest.Task) error {
	select {
	case <-q.done:
		return ingest.ErrQueueClosed
	default:
	}
	select {
	case <-q.done:
		return ingest.ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue canceled: %w", ctx.Err())
	case q.ch <- task:
		return nil
	}
}

// Dequeue pops the next task, respecting context cancellation. After Close
// it keeps returning queued tasks until none are left.
func (q *Queue) Dequeue(ctx context.Context) (ingest.Task, error) {
	select {
	case <-ctx.Done():
		return ingest.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
	case task := <-q.ch:
		return task, nil
	case <-q.done:
		select {
		case task := <-q.ch:
			return task, nil
		default:
			return ingest.Task{}, ingest.ErrQueueClosed
		}
	}
}

// Len reports how many tasks are waiting.
func (q *Queue) Len() int {
	return len(q.ch)
}

// Close stops accepting tasks and wakes any blocked Enqueue. Tasks already
// queued can still be dequeued.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}
