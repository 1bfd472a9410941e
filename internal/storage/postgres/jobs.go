package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/store"
)

const uniqueViolation = "23505"

const jobColumns = `id, client_id, filename, kind, status, total_lines, processed_lines,
	imported_lines, skipped_duplicates, skipped_filtered, error_message, imported_at, finished_at`

const insertJobQuery = `
INSERT INTO import_files (` + jobColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`

const updateJobQuery = `
UPDATE import_files
SET kind = $2, status = $3, total_lines = $4, processed_lines = $5, imported_lines = $6,
	skipped_duplicates = $7, skipped_filtered = $8, error_message = $9, finished_at = $10
WHERE id = $1`

const getJobQuery = `SELECT ` + jobColumns + ` FROM import_files WHERE id = $1`

const listJobsQuery = `SELECT ` + jobColumns + ` FROM import_files
WHERE client_id = $1 ORDER BY imported_at DESC, id DESC LIMIT $2 OFFSET $3`

// CreateJob inserts a new import_files row.
func (s *Store) CreateJob(ctx context.Context, job ingest.Job) error {
	_, err := s.pool.Exec(ctx, insertJobQuery,
		job.ID,
		int64(job.TenantID),
		job.Filename,
		string(job.Kind),
		string(job.Status),
		job.TotalLines,
		job.ProcessedLines,
		job.Imported,
		job.SkippedDuplicates,
		job.SkippedFiltered,
		nullIfEmpty(job.Error),
		job.CreatedAt,
		job.FinishedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("job %s: %w", job.ID, store.ErrExists)
	}
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJob persists status, counters, error and finish time.
func (s *Store) UpdateJob(ctx context.Context, job ingest.Job) error {
	tag, err := s.pool.Exec(ctx, updateJobQuery,
		job.ID,
		string(job.Kind),
		string(job.Status),
		job.TotalLines,
		job.ProcessedLines,
		job.Imported,
		job.SkippedDuplicates,
		job.SkippedFiltered,
		nullIfEmpty(job.Error),
		job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s: %w", job.ID, store.ErrNotFound)
	}
	return nil
}

// GetJob loads one job.
func (s *Store) GetJob(ctx context.Context, jobID uuid.UUID) (ingest.Job, error) {
	job, err := scanJob(s.pool.QueryRow(ctx, getJobQuery, jobID))
	if errors.Is(err, pgx.ErrNoRows) {
		return ingest.Job{}, fmt.Errorf("job %s: %w", jobID, store.ErrNotFound)
	}
	if err != nil {
		return ingest.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns a tenant's jobs, newest first. A non-positive limit
// returns every job.
func (s *Store) ListJobs(ctx context.Context, tenant ingest.TenantID, limit, offset int) ([]ingest.Job, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, listJobsQuery, int64(tenant), limitArg, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]ingest.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (ingest.Job, error) {
	var (
		job      ingest.Job
		tenant   int64
		kind     string
		status   string
		errMsg   *string
		finished *time.Time
	)
	err := row.Scan(
		&job.ID,
		&tenant,
		&job.Filename,
		&kind,
		&status,
		&job.TotalLines,
		&job.ProcessedLines,
		&job.Imported,
		&job.SkippedDuplicates,
		&job.SkippedFiltered,
		&errMsg,
		&job.CreatedAt,
		&finished,
	)
	if err != nil {
		return ingest.Job{}, err
	}
	job.TenantID = ingest.TenantID(tenant)
	job.Kind = ingest.SourceKind(kind)
	job.Status = ingest.Status(status)
	job.Error = deref(errMsg)
	job.FinishedAt = finished
	return job, nil
}
