package ingest

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Queue provides enqueue/dequeue semantics for import tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs.
type IDGenerator interface {
	NewJobID() (uuid.UUID, error)
}

// ErrQueueClosed is returned by a Queue after shutdown.
var ErrQueueClosed = errors.New("queue closed")
