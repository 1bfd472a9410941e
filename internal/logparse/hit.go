// Package logparse detects access-log file formats and turns individual log
// lines into classified hits. Two encodings are supported: the combined
// access-log format written by Apache/Nginx and CSV exports with a header row.
//
// Lines that do not parse, carry an unusable timestamp, or (under the
// RecognizedOnly policy) do not come from a recognized crawler produce no hit.
// Such lines are never errors; callers count them as filtered.
package logparse

import (
	"time"

	"github.com/JakeFAU/botlog/internal/pagetype"
)

// Format identifies the encoding of a log file.
type Format string

// Supported formats.
const (
	FormatCombined Format = "combined"
	FormatTabular  Format = "tabular"
)

// Policy selects how unclassified user agents are treated.
type Policy string

const (
	// RecognizedOnly drops every line whose user agent is not a recognized
	// search-engine or AI crawler. Used by the streaming import path.
	RecognizedOnly Policy = "recognized_only"
	// RetainAll keeps every structurally valid line and labels unknown
	// agents as OtherBot. Used by the legacy spreadsheet import path.
	RetainAll Policy = "retain_all"
)

// OtherBot labels unclassified traffic under the RetainAll policy.
const OtherBot = "Other"

// Hit is one normalized access-log line.
type Hit struct {
	IP        string
	Timestamp time.Time // wall-clock time, offset discarded, UTC location
	Method    string
	URL       string
	Status    int // 0 when the source did not carry a status
	Size      int64
	UserAgent string
	Bot       string
	Family    string // empty for OtherBot
	// ResponseTime is the optional trailing response time in microseconds.
	ResponseTime *int64
	Date         time.Time // Timestamp truncated to midnight
	PageType     pagetype.Type
}

// HasTimestamp reports whether the hit carries a usable timestamp.
func (h Hit) HasTimestamp() bool {
	return !h.Timestamp.IsZero()
}

// SetTimestamp stores ts as naive wall-clock time and derives Date.
func (h *Hit) SetTimestamp(ts time.Time) {
	h.Timestamp = naive(ts)
	h.Date = dateOf(h.Timestamp)
}

func naive(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), ts.Nanosecond(), time.UTC)
}

func dateOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}
