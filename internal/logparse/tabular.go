package logparse

import (
	"errors"
	"strconv"
	"strings"

	"github.com/JakeFAU/botlog/internal/botregistry"
	"github.com/JakeFAU/botlog/internal/pagetype"
)

// ErrMissingColumns reports a tabular header without a user-agent or URL column.
var ErrMissingColumns = errors.New("tabular header lacks user_agent or url column")

// columnAliases lists accepted header names per field, most preferred first.
var columnAliases = map[string][]string{
	"ip":         {"ip", "client_ip", "remote_addr", "remote_host"},
	"datetime":   {"datetime", "date_time", "timestamp", "time", "date"},
	"url":        {"url", "request_uri", "uri", "path", "request_url", "request"},
	"method":     {"method", "request_method", "http_method"},
	"status":     {"status", "status_code", "http_status", "response_code", "code"},
	"size":       {"size", "bytes", "body_bytes_sent", "response_size", "bytes_sent"},
	"user_agent": {"user_agent", "useragent", "http_user_agent", "ua"},
	"referer":    {"referer", "referrer", "http_referer"},
	"host":       {"host", "server_name", "hostname", "vhost"},
	"protocol":   {"protocol", "http_protocol", "server_protocol"},
}

// columnMap maps a field name to its index in a record; absent fields map to -1.
type columnMap map[string]int

// mapColumns resolves header names against columnAliases. Matching is
// case-insensitive and ignores surrounding whitespace. When a header name
// repeats, the last occurrence wins.
func mapColumns(header []string) (columnMap, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		byName[strings.ToLower(strings.TrimSpace(h))] = i
	}
	cols := make(columnMap, len(columnAliases))
	for field, aliases := range columnAliases {
		cols[field] = -1
		for _, alias := range aliases {
			if i, ok := byName[alias]; ok {
				cols[field] = i
				break
			}
		}
	}
	if cols["user_agent"] < 0 || cols["url"] < 0 {
		return nil, ErrMissingColumns
	}
	return cols, nil
}

// cell returns the trimmed value of field in record, or "" when the field is
// unmapped or the record is too short.
func (c columnMap) cell(record []string, field string) string {
	i, ok := c[field]
	if !ok || i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseTabular converts one CSV record. Only recognized crawlers are kept.
func parseTabular(cols columnMap, record []string) (Hit, bool) {
	ua := cols.cell(record, "user_agent")
	if ua == "" {
		// Exports that merge status and size into one cell shift every later
		// column left by one, so the referer cell holds the user agent.
		ua = shiftedUserAgent(cols.cell(record, "referer"))
	}
	if ua == "" {
		return Hit{}, false
	}
	bot, family, ok := botregistry.Classify(ua)
	if !ok {
		return Hit{}, false
	}

	url := cols.cell(record, "url")
	if url == "" {
		return Hit{}, false
	}
	rawTime := cols.cell(record, "datetime")
	if rawTime == "" {
		return Hit{}, false
	}
	ts, ok := parseTabularTime(rawTime)
	if !ok {
		return Hit{}, false
	}

	hit := Hit{
		IP:        cols.cell(record, "ip"),
		Method:    cols.cell(record, "method"),
		URL:       url,
		UserAgent: ua,
		Bot:       bot,
		Family:    family,
		PageType:  pagetype.Classify(url),
	}
	hit.SetTimestamp(ts)
	hit.Status, hit.Size = statusAndSize(cols.cell(record, "status"), cols.cell(record, "size"))
	return hit, true
}

// shiftedUserAgent adopts a referer cell as the user agent when it looks like
// one rather than like a URL.
func shiftedUserAgent(candidate string) string {
	if candidate == "" {
		return ""
	}
	lower := strings.ToLower(candidate)
	if strings.Contains(candidate, "Mozilla") ||
		strings.Contains(lower, "bot") ||
		strings.Contains(lower, "spider") ||
		!strings.Contains(lower, "http") {
		return candidate
	}
	return ""
}

// statusAndSize reads a status cell that may hold "200 5123" and an
// optional separate size cell, which overrides the merged size when numeric.
func statusAndSize(rawStatus, rawSize string) (int, int64) {
	var (
		status int
		size   int64
	)
	parts := strings.Fields(rawStatus)
	if len(parts) > 0 {
		status, _ = strconv.Atoi(parts[0])
	}
	if len(parts) > 1 {
		size, _ = strconv.ParseInt(parts[1], 10, 64)
	}
	if rawSize != "" {
		if v, err := strconv.ParseInt(rawSize, 10, 64); err == nil {
			size = v
		}
	}
	return status, size
}
