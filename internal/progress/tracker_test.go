package progress

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/ingest"
)

func TestTrackerLifecycle(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	job := ingest.Job{ID: uuid.New(), TenantID: 3, Status: ingest.StatusCounting}
	tr.Start(job)

	got, ok := tr.Get(job.ID)
	require.True(t, ok)
	require.Equal(t, ingest.StatusCounting, got.Status)

	job.Status = ingest.StatusCompleted
	job.Imported = 10
	tr.Update(job.Progress())
	got, _ = tr.Get(job.ID)
	require.Equal(t, 100, got.Percent)
	require.Equal(t, int64(10), got.Imported)

	require.True(t, tr.Remove(job.ID))
	require.False(t, tr.Remove(job.ID))
	_, ok = tr.Get(job.ID)
	require.False(t, ok)
}

func TestTrackerIsolatesConcurrentWriters(t *testing.T) {
	t.Parallel()

	tr := NewTracker()
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(id uuid.UUID, lines int64) {
			defer wg.Done()
			for n := int64(1); n <= lines; n++ {
				tr.Update(ingest.Progress{JobID: id, Status: ingest.StatusImporting, Counters: ingest.Counters{ProcessedLines: n}})
				_, _ = tr.Get(ids[0])
			}
		}(id, int64(100*(i+1)))
	}
	wg.Wait()

	a, _ := tr.Get(ids[0])
	b, _ := tr.Get(ids[1])
	require.Equal(t, int64(100), a.ProcessedLines)
	require.Equal(t, int64(200), b.ProcessedLines)
	require.Len(t, tr.List(), 2)
}
