package logparse

import (
	"strings"
	"time"
)

// accessLogLayout matches the bracketed timestamp of the combined format
// once the zone offset has been split off.
const accessLogLayout = "2/Jan/2006:15:04:05"

// tabularLayouts are tried in order; the first that parses wins.
var tabularLayouts = []string{
	"2/Jan/2006:15:04:05 -0700", // 01/Jan/2026:00:00:02 +0000
	accessLogLayout,             // 01/Jan/2026:00:00:02
	"2006-1-2 15:04:05",         // 2026-01-01 00:00:02
	"2006-1-2T15:04:05",         // 2026-01-01T00:00:02
	"2/1/2006 15:04:05",         // 01/01/2026 00:00:02
}

// parseAccessLogTime parses "10/Oct/2023:13:55:36 +0200", ignoring the offset.
func parseAccessLogTime(raw string) (time.Time, bool) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return time.Time{}, false
	}
	ts, err := time.Parse(accessLogLayout, fields[0])
	if err != nil {
		return time.Time{}, false
	}
	return naive(ts), true
}

// ParseTimestamp parses a free-standing timestamp cell using the layouts
// accepted for tabular logs. The result is naive wall-clock time.
func ParseTimestamp(raw string) (time.Time, bool) {
	return parseTabularTime(strings.TrimSpace(raw))
}

// parseTabularTime walks tabularLayouts, then falls back to the first
// whitespace token in access-log layout. Offsets are dropped.
func parseTabularTime(raw string) (time.Time, bool) {
	for _, layout := range tabularLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return naive(ts), true
		}
	}
	return parseAccessLogTime(raw)
}
