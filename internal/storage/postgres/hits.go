package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/botlog/internal/ingest"
)

const existingKeysQuery = `SELECT timestamp, ip, url FROM logs WHERE client_id = $1 AND log_date = $2`

var hitColumns = []string{
	"file_id",
	"client_id",
	"timestamp",
	"ip",
	"method",
	"url",
	"http_code",
	"response_size",
	"user_agent",
	"crawler",
	"bot_family",
	"page_type",
	"response_time",
	"log_date",
}

// ExistingKeys loads the dedup keys already stored for tenant on date.
func (s *Store) ExistingKeys(ctx context.Context, tenant ingest.TenantID, date time.Time) (map[ingest.DedupKey]struct{}, error) {
	rows, err := s.pool.Query(ctx, existingKeysQuery, int64(tenant), date)
	if err != nil {
		return nil, fmt.Errorf("query existing keys: %w", err)
	}
	defer rows.Close()

	keys := make(map[ingest.DedupKey]struct{})
	for rows.Next() {
		var (
			ts      time.Time
			ip, url *string
		)
		if err := rows.Scan(&ts, &ip, &url); err != nil {
			return nil, fmt.Errorf("scan existing key: %w", err)
		}
		keys[ingest.NewDedupKey(ts, deref(ip), deref(url))] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate existing keys: %w", err)
	}
	return keys, nil
}

// InsertBatch bulk-loads rows with COPY.
func (s *Store) InsertBatch(ctx context.Context, rows []ingest.Row) error {
	if len(rows) == 0 {
		return nil
	}
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		return []any{
			r.JobID,
			int64(r.TenantID),
			r.Timestamp,
			r.IP,
			nullIfEmpty(r.Method),
			r.URL,
			nullIfZero(r.Status),
			r.Size,
			r.UserAgent,
			r.Bot,
			nullIfEmpty(r.Family),
			string(r.PageType),
			r.ResponseTime,
			r.Date,
		}, nil
	})
	n, err := s.pool.CopyFrom(ctx, pgx.Identifier{"logs"}, hitColumns, src)
	if err != nil {
		return fmt.Errorf("copy logs: %w", err)
	}
	if n != int64(len(rows)) {
		return fmt.Errorf("copy logs: wrote %d of %d rows", n, len(rows))
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullIfZero(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
