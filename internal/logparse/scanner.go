package logparse

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// Scanner walks a log source one line (or record) at a time.
//
//	for sc.Scan() {
//		hit, ok := sc.Hit()
//		...
//	}
//	if err := sc.Err(); err != nil { ... }
type Scanner interface {
	// Scan advances to the next line. It returns false at end of input or
	// on a read error.
	Scan() bool
	// Hit returns the current line's hit; ok is false when the line was
	// filtered.
	Hit() (Hit, bool)
	// Line is the 1-based source line number of the current line.
	Line() int
	// Err returns the first non-EOF read error.
	Err() error
}

// NewScanner returns a Scanner for format. Tabular sources always use the
// RecognizedOnly policy. A tabular source whose header lacks the required
// columns yields ErrMissingColumns.
func NewScanner(format Format, r io.Reader, policy Policy) (Scanner, error) {
	switch format {
	case FormatCombined:
		return NewCombinedScanner(r, policy), nil
	case FormatTabular:
		return NewTabularScanner(r)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}
}

type combinedScanner struct {
	br     *bufio.Reader
	policy Policy
	line   int
	hit    Hit
	ok     bool
	err    error
	done   bool
}

// NewCombinedScanner scans combined-format lines from r. Every line,
// including blank ones, advances the scanner once.
func NewCombinedScanner(r io.Reader, policy Policy) Scanner {
	return &combinedScanner{br: bufio.NewReaderSize(skipBOM(r), 64*1024), policy: policy}
}

func (s *combinedScanner) Scan() bool {
	if s.done {
		return false
	}
	raw, err := s.br.ReadString('\n')
	if err != nil {
		s.done = true
		if !errors.Is(err, io.EOF) {
			s.err = fmt.Errorf("read line %d: %w", s.line+1, err)
			return false
		}
		if raw == "" {
			return false
		}
	}
	s.line++
	s.hit, s.ok = ParseCombined(sanitize(raw), s.policy)
	return true
}

func (s *combinedScanner) Hit() (Hit, bool) { return s.hit, s.ok }
func (s *combinedScanner) Line() int         { return s.line }
func (s *combinedScanner) Err() error        { return s.err }

type tabularScanner struct {
	cr   *csv.Reader
	cols columnMap
	line int
	hit  Hit
	ok   bool
	err  error
	done bool
}

// NewTabularScanner reads the header row from r and returns a scanner over
// the remaining records.
func NewTabularScanner(r io.Reader) (Scanner, error) {
	cr := csv.NewReader(newSanitizingReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrMissingColumns
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols, err := mapColumns(header)
	if err != nil {
		return nil, err
	}
	return &tabularScanner{cr: cr, cols: cols, line: 1}, nil
}

func (s *tabularScanner) Scan() bool {
	if s.done {
		return false
	}
	record, err := s.cr.Read()
	if err != nil {
		var perr *csv.ParseError
		switch {
		case errors.Is(err, io.EOF):
			s.done = true
			return false
		case errors.As(err, &perr):
			// Malformed record; count it and keep going.
			s.line++
			s.hit, s.ok = Hit{}, false
			return true
		default:
			s.done = true
			s.err = fmt.Errorf("read record %d: %w", s.line+1, err)
			return false
		}
	}
	s.line++
	s.hit, s.ok = parseTabular(s.cols, record)
	return true
}

func (s *tabularScanner) Hit() (Hit, bool) { return s.hit, s.ok }
func (s *tabularScanner) Line() int         { return s.line }
func (s *tabularScanner) Err() error        { return s.err }

// DefaultCountChunk is the read size used by CountLines when chunk <= 0.
const DefaultCountChunk = 1 << 20

// CountLines counts newline bytes in r using fixed-size reads so that very
// large files can be sized without being held in memory.
func CountLines(r io.Reader, chunk int) (int, error) {
	if chunk <= 0 {
		chunk = DefaultCountChunk
	}
	buf := make([]byte, chunk)
	count := 0
	for {
		n, err := r.Read(buf)
		count += bytes.Count(buf[:n], []byte{'\n'})
		if errors.Is(err, io.EOF) {
			return count, nil
		}
		if err != nil {
			return count, fmt.Errorf("count lines: %w", err)
		}
	}
}
