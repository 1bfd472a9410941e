package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/ingest"
	"github.com/JakeFAU/botlog/internal/logparse"
)

func row(tenant ingest.TenantID, ts time.Time, ip, url string) ingest.Row {
	hit := logparse.Hit{IP: ip, URL: url}
	hit.SetTimestamp(ts)
	return ingest.Row{TenantID: tenant, Hit: hit}
}

func TestHitStorePartitionsByTenantAndDate(t *testing.T) {
	t.Parallel()

	s := NewHitStore()
	ctx := context.Background()
	day1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)

	require.NoError(t, s.InsertBatch(ctx, []ingest.Row{
		row(1, day1, "1.1.1.1", "/a"),
		row(1, day2, "1.1.1.1", "/b"),
		row(2, day1, "2.2.2.2", "/c"),
	}))

	keys, err := s.ExistingKeys(ctx, 1, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	_, ok := keys[ingest.NewDedupKey(day1, "1.1.1.1", "/a")]
	require.True(t, ok)

	keys, err = s.ExistingKeys(ctx, 3, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Empty(t, keys)

	require.Len(t, s.Rows(1), 2)
	require.Len(t, s.Rows(2), 1)
}

func TestHitStoreHonorsContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewHitStore()
	require.Error(t, s.InsertBatch(ctx, nil))
	_, err := s.ExistingKeys(ctx, 1, time.Now())
	require.Error(t, err)
}
