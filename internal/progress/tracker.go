package progress

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JakeFAU/botlog/internal/ingest"
)

// Tracker is the process-wide map of live import snapshots keyed by job ID.
// Each entry has a single writer, the job that created it; any number of
// readers may poll it. Entries outlive their job until Remove is called.
type Tracker struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]ingest.Progress
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{jobs: make(map[uuid.UUID]ingest.Progress)}
}

// Start registers the initial snapshot for job, replacing any stale entry.
func (t *Tracker) Start(job ingest.Job) {
	t.Update(job.Progress())
}

// Update stores p as the latest snapshot for p.JobID.
func (t *Tracker) Update(p ingest.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs[p.JobID] = p
}

// Get returns the latest snapshot for jobID.
func (t *Tracker) Get(jobID uuid.UUID) (ingest.Progress, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.jobs[jobID]
	return p, ok
}

// Remove clears the entry once a reader has acknowledged it. It reports
// whether an entry existed.
func (t *Tracker) Remove(jobID uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.jobs[jobID]
	delete(t.jobs, jobID)
	return ok
}

// List returns every snapshot ordered by job ID.
func (t *Tracker) List() []ingest.Progress {
	t.mu.RLock()
	out := make([]ingest.Progress, 0, len(t.jobs))
	for _, p := range t.jobs {
		out = append(out, p)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].JobID.String() < out[j].JobID.String()
	})
	return out
}
