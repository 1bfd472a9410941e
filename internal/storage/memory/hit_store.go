package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/store"
)

// HitStore keeps classified rows per tenant. Inserts are all-or-nothing per
// batch, like a bulk copy inside a transaction.
type HitStore struct {
	mu   sync.RWMutex
	rows map[ingest.TenantID][]ingest.Row
}

var _ store.HitStore = (*HitStore)(nil)

// NewHitStore constructs a HitStore.
func NewHitStore() *HitStore {
	return &HitStore{rows: make(map[ingest.TenantID][]ingest.Row)}
}

// ExistingKeys returns the dedup keys stored for tenant on date.
func (s *HitStore) ExistingKeys(ctx context.Context, tenant ingest.TenantID, date time.Time) (map[ingest.DedupKey]struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make(map[ingest.DedupKey]struct{})
	for _, row := range s.rows[tenant] {
		if row.Date.Equal(date) {
			keys[row.Key()] = struct{}{}
		}
	}
	return keys, nil
}

// InsertBatch appends copies of rows.
func (s *HitStore) InsertBatch(ctx context.Context, rows []ingest.Row) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range rows {
		s.rows[row.TenantID] = append(s.rows[row.TenantID], row)
	}
	return nil
}

// Rows returns a copy of everything stored for tenant in insertion order.
func (s *HitStore) Rows(tenant ingest.TenantID) []ingest.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ingest.Row(nil), s.rows[tenant]...)
}
