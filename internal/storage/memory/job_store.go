// Package memory provides in-process stores for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/store"
)

// JobStore keeps import jobs in a map.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]ingest.Job
}

var _ store.JobStore = (*JobStore)(nil)

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[uuid.UUID]ingest.Job)}
}

// CreateJob stores a new job.
func (s *JobStore) CreateJob(_ context.Context, job ingest.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s: %w", job.ID, store.ErrExists)
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

// UpdateJob replaces the mutable fields of a stored job.
func (s *JobStore) UpdateJob(_ context.Context, job ingest.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.jobs[job.ID]
	if !ok {
		return fmt.Errorf("job %s: %w", job.ID, store.ErrNotFound)
	}
	current.Kind = job.Kind
	current.Status = job.Status
	current.Counters = job.Counters
	current.Error = job.Error
	current.FinishedAt = job.FinishedAt
	s.jobs[job.ID] = cloneJob(current)
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID uuid.UUID) (ingest.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ingest.Job{}, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	return cloneJob(job), nil
}

// ListJobs returns a tenant's jobs, newest first.
func (s *JobStore) ListJobs(_ context.Context, tenant ingest.TenantID, limit, offset int) ([]ingest.Job, error) {
	s.mu.RLock()
	out := make([]ingest.Job, 0)
	for _, job := range s.jobs {
		if job.TenantID == tenant {
			out = append(out, cloneJob(job))
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() > out[j].ID.String()
	})
	return page(out, limit, offset), nil
}

func cloneJob(job ingest.Job) ingest.Job {
	if job.FinishedAt != nil {
		ts := *job.FinishedAt
		job.FinishedAt = &ts
	}
	return job
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
