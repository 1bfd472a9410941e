package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageJobStart     Stage = "JOB_START"
	StageBatchFlushed Stage = "BATCH_FLUSHED"
	StageJobDone      Stage = "JOB_DONE"
	StageJobError     Stage = "JOB_ERROR"
)

// Event captures one import milestone.
type Event struct {
	// JobID uniquely identifies the import using the 16-byte UUID form.
	JobID [16]byte
	// TenantID is the client the file belongs to.
	TenantID int64
	// TS is the UTC timestamp recorded by the emitter.
	TS    time.Time
	Stage Stage
	// Filename is set on JOB_START and terminal events.
	Filename string
	// Imported, Duplicates and Filtered are deltas for BATCH_FLUSHED and
	// job totals for JOB_DONE and JOB_ERROR.
	Imported   int64
	Duplicates int64
	Filtered   int64
	// Dur is the job wall time on terminal events.
	Dur time.Duration
	// Note carries the failure message on JOB_ERROR.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == [16]byte{} {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageJobStart, StageBatchFlushed, StageJobDone:
	case StageJobError:
		if e.Note == "" {
			return errors.New("job error requires a note")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Imported < 0 || e.Duplicates < 0 || e.Filtered < 0 {
		return errors.New("counters must be >= 0")
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// Terminal reports whether the event ends a job.
func (e Event) Terminal() bool {
	return e.Stage == StageJobDone || e.Stage == StageJobError
}

// JobUUID converts the binary job ID to uuid.UUID.
func (e Event) JobUUID() uuid.UUID {
	return uuid.UUID(e.JobID)
}

// UUIDToBytes encodes a uuid.UUID into the Event form.
func UUIDToBytes(id uuid.UUID) [16]byte {
	var dest [16]byte
	copy(dest[:], id[:])
	return dest
}
