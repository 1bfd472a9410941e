// Package workbook reads historical crawler logs that were delivered as
// spreadsheets: one sheet per day, a "Line" column holding a raw
// combined-format log line and an optional "Date" column. Every parseable
// line is kept and unknown agents are labelled as "Other".
package workbook

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JakeFAU/botlog/internal/logparse"
)

const (
	lineHeader = "Line"
	dateHeader = "Date"
)

// Scanner streams hits out of every qualifying sheet of a workbook. It
// satisfies logparse.Scanner.
type Scanner struct {
	file   *excelize.File
	sheets []string
	next   int

	rows    *excelize.Rows
	lineCol int
	dateCol int

	line int
	hit  logparse.Hit
	ok   bool
	err  error
}

var _ logparse.Scanner = (*Scanner)(nil)

// Open opens the workbook at path.
func Open(path string) (*Scanner, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	return newScanner(f), nil
}

// NewScanner reads a workbook from r.
func NewScanner(r io.Reader) (*Scanner, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return newScanner(f), nil
}

func newScanner(f *excelize.File) *Scanner {
	return &Scanner{file: f, sheets: f.GetSheetList()}
}

// Scan advances to the next data row, moving across sheets as needed.
// Sheets without a "Line" header are skipped entirely.
func (s *Scanner) Scan() bool {
	for s.err == nil {
		if s.rows == nil && !s.openNextSheet() {
			return false
		}
		if s.rows.Next() {
			cells, err := s.rows.Columns(excelize.Options{RawCellValue: true})
			if err != nil {
				s.err = fmt.Errorf("read row: %w", err)
				return false
			}
			s.line++
			s.hit, s.ok = s.parseRow(cells)
			return true
		}
		if err := s.rows.Error(); err != nil {
			s.err = fmt.Errorf("iterate rows: %w", err)
		}
		s.closeRows()
	}
	return false
}

// openNextSheet positions rows after the header of the next sheet that has
// a Line column. It returns false when no sheets remain or on error.
func (s *Scanner) openNextSheet() bool {
	for s.next < len(s.sheets) {
		sheet := s.sheets[s.next]
		s.next++

		rows, err := s.file.Rows(sheet)
		if err != nil {
			s.err = fmt.Errorf("open sheet %q: %w", sheet, err)
			return false
		}
		if !rows.Next() {
			_ = rows.Close()
			continue
		}
		header, err := rows.Columns()
		if err != nil {
			_ = rows.Close()
			s.err = fmt.Errorf("read header of sheet %q: %w", sheet, err)
			return false
		}
		lineCol, dateCol := columnIndex(header, lineHeader), columnIndex(header, dateHeader)
		if lineCol < 0 {
			_ = rows.Close()
			continue
		}
		s.rows, s.lineCol, s.dateCol = rows, lineCol, dateCol
		return true
	}
	return false
}

func (s *Scanner) closeRows() {
	if s.rows != nil {
		_ = s.rows.Close()
		s.rows = nil
	}
}

func (s *Scanner) parseRow(cells []string) (logparse.Hit, bool) {
	raw := cellAt(cells, s.lineCol)
	if raw == "" {
		return logparse.Hit{}, false
	}
	hit, ok := logparse.ParseCombined(raw, logparse.RetainAll)
	if !ok {
		return logparse.Hit{}, false
	}
	if !hit.HasTimestamp() {
		ts, ok := parseDateCell(cellAt(cells, s.dateCol))
		if !ok {
			return logparse.Hit{}, false
		}
		hit.SetTimestamp(ts)
	}
	return hit, true
}

// Hit returns the current row's hit.
func (s *Scanner) Hit() (logparse.Hit, bool) { return s.hit, s.ok }

// Line returns the running data-row count across all sheets.
func (s *Scanner) Line() int { return s.line }

// Err returns the first error encountered while reading.
func (s *Scanner) Err() error { return s.err }

// Close releases the workbook.
func (s *Scanner) Close() error {
	s.closeRows()
	return s.file.Close()
}

// CountRows returns the number of data rows in sheets that have a Line
// column. It walks the workbook once without parsing any line.
func CountRows(path string) (int, error) {
	sc, err := Open(path)
	if err != nil {
		return 0, err
	}
	defer sc.Close() //nolint:errcheck

	total := 0
	for sc.err == nil {
		if sc.rows == nil && !sc.openNextSheet() {
			break
		}
		for sc.rows.Next() {
			total++
		}
		if err := sc.rows.Error(); err != nil {
			return total, fmt.Errorf("count rows: %w", err)
		}
		sc.closeRows()
	}
	return total, sc.err
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if strings.TrimSpace(h) == name {
			return i
		}
	}
	return -1
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

// parseDateCell accepts an Excel serial date, any tabular log timestamp, or
// a bare ISO date.
func parseDateCell(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil {
		ts, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return ts, true
	}
	if ts, ok := logparse.ParseTimestamp(raw); ok {
		return ts, true
	}
	if ts, err := time.Parse("2006-01-02", raw); err == nil {
		return ts, true
	}
	return time.Time{}, false
}
