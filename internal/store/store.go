package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/botlog/internal/ingest"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrExists signals that a record with the same identifier is already stored.
var ErrExists = errors.New("record already exists")

// HitStore is the storage collaborator of the import pipeline.
type HitStore interface {
	// ExistingKeys loads the dedup keys already persisted for tenant on the
	// calendar day date.
	ExistingKeys(ctx context.Context, tenant ingest.TenantID, date time.Time) (map[ingest.DedupKey]struct{}, error)
	// InsertBatch persists rows in one bulk operation.
	InsertBatch(ctx context.Context, rows []ingest.Row) error
}

// JobStore persists import job records.
type JobStore interface {
	CreateJob(ctx context.Context, job ingest.Job) error
	// UpdateJob overwrites status, counters, error and finish time.
	UpdateJob(ctx context.Context, job ingest.Job) error
	// GetJob loads a single job or returns ErrNotFound.
	GetJob(ctx context.Context, jobID uuid.UUID) (ingest.Job, error)
	// ListJobs returns a tenant's jobs, newest first.
	ListJobs(ctx context.Context, tenant ingest.TenantID, limit, offset int) ([]ingest.Job, error)
}
