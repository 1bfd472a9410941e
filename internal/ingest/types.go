// Package ingest defines the core types shared by the import pipeline, its
// stores and the HTTP surface.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/botlog/internal/logparse"
)

// TenantID identifies the client whose logs are being ingested. All dedup
// state is partitioned by tenant.
type TenantID int64

// SourceKind is the declared or inferred encoding of an uploaded file.
type SourceKind string

// Supported source kinds.
const (
	KindAuto         SourceKind = "auto"
	KindRawAccessLog SourceKind = "raw_access_log"
	KindTabularLog   SourceKind = "tabular_log"
	KindWorkbook     SourceKind = "workbook"
)

// ParseSourceKind validates a kind supplied by a client. Empty means auto.
func ParseSourceKind(raw string) (SourceKind, error) {
	switch kind := SourceKind(strings.ToLower(strings.TrimSpace(raw))); kind {
	case "":
		return KindAuto, nil
	case KindAuto, KindRawAccessLog, KindTabularLog, KindWorkbook:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown source kind %q", raw)
	}
}

// KindForFormat maps a detected log format to its source kind.
func KindForFormat(f logparse.Format) SourceKind {
	if f == logparse.FormatTabular {
		return KindTabularLog
	}
	return KindRawAccessLog
}

// Format returns the line format read for the kind. Workbooks embed
// combined-format lines.
func (k SourceKind) Format() logparse.Format {
	if k == KindTabularLog {
		return logparse.FormatTabular
	}
	return logparse.FormatCombined
}

// Policy returns the classification policy applied to the kind. Only the
// legacy workbook path keeps unrecognized agents.
func (k SourceKind) Policy() logparse.Policy {
	if k == KindWorkbook {
		return logparse.RetainAll
	}
	return logparse.RecognizedOnly
}

// Counters tracks how many source lines went where.
type Counters struct {
	TotalLines        int64 `json:"total_lines"`
	ProcessedLines    int64 `json:"processed_lines"`
	Imported          int64 `json:"imported"`
	SkippedDuplicates int64 `json:"skipped_duplicates"`
	SkippedFiltered   int64 `json:"skipped_filtered"`
}

// Job is the persisted record of one file import.
type Job struct {
	ID       uuid.UUID  `json:"id"`
	TenantID TenantID   `json:"client_id"`
	Filename string     `json:"filename"`
	Kind     SourceKind `json:"kind"`
	Status   Status     `json:"status"`
	Counters
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Progress is the live view of a running job.
type Progress struct {
	JobID  uuid.UUID `json:"job_id"`
	Status Status    `json:"status"`
	Counters
	Percent int    `json:"percent"`
	Error   string `json:"error,omitempty"`
}

// Progress derives a snapshot from the job's current state. Percent is
// capped at 99 until the job completes.
func (j Job) Progress() Progress {
	return Progress{
		JobID:    j.ID,
		Status:   j.Status,
		Counters: j.Counters,
		Percent:  percent(j.Status, j.ProcessedLines, j.TotalLines),
		Error:    j.Error,
	}
}

func percent(status Status, processed, total int64) int {
	if status == StatusCompleted {
		return 100
	}
	if total <= 0 {
		return 0
	}
	p := processed * 100 / total
	if p > 99 {
		p = 99
	}
	return int(p)
}

// Row is a classified hit ready to persist.
type Row struct {
	TenantID TenantID
	JobID    uuid.UUID
	logparse.Hit
}

// DedupKey identifies a hit within a tenant: timestamp, source IP and URL.
type DedupKey struct {
	At  int64 // Unix microseconds of the naive timestamp
	IP  string
	URL string
}

// NewDedupKey builds the key for a hit observed at ts.
func NewDedupKey(ts time.Time, ip, url string) DedupKey {
	return DedupKey{At: ts.UnixMicro(), IP: ip, URL: url}
}

// Key returns the dedup key of the row.
func (r Row) Key() DedupKey {
	return NewDedupKey(r.Timestamp, r.IP, r.URL)
}

// Task is a queued import: the job plus the spooled file to read.
type Task struct {
	Job  Job
	Path string
}
