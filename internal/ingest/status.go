package ingest

import (
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of an import job.
type Status string

// Job status values persisted in import_files.status.
const (
	StatusCounting  Status = "counting"
	StatusImporting Status = "importing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// ErrInvalidTransition is returned when a job is moved along an edge the
// state machine does not allow.
var ErrInvalidTransition = errors.New("invalid job status transition")

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusError
}

// CanTransition reports whether from → to is a valid edge:
// counting → importing → completed, and counting|importing → error.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusCounting:
		return to == StatusImporting || to == StatusError
	case StatusImporting:
		return to == StatusCompleted || to == StatusError
	default:
		return false
	}
}

// Transition moves the job to status to, stamping FinishedAt on terminal
// states. The job is left untouched when the edge is invalid.
func (j *Job) Transition(to Status, at time.Time) error {
	if !CanTransition(j.Status, to) {
		return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, j.Status, to)
	}
	j.Status = to
	if to.Terminal() {
		finished := at
		j.FinishedAt = &finished
	}
	return nil
}
