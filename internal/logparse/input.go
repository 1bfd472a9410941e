package logparse

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// skipBOM returns a reader positioned after a leading UTF-8 byte-order mark,
// if there is one. Files exported from Windows tools often carry it.
func skipBOM(r io.Reader) io.Reader {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// sanitize replaces invalid UTF-8 with U+FFFD so a stray byte never aborts
// an import.
func sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, "�")
}

// sanitizingReader skips a BOM and repairs invalid UTF-8 line by line ahead
// of the CSV reader.
type sanitizingReader struct {
	br  *bufio.Reader
	buf []byte
}

func newSanitizingReader(r io.Reader) *sanitizingReader {
	return &sanitizingReader{br: bufio.NewReader(skipBOM(r))}
}

func (s *sanitizingReader) Read(p []byte) (int, error) {
	for len(s.buf) == 0 {
		line, err := s.br.ReadBytes('\n')
		if len(line) > 0 {
			if !utf8.Valid(line) {
				line = bytes.ToValidUTF8(line, []byte("�"))
			}
			s.buf = line
			break
		}
		if err != nil {
			return 0, err
		}
	}
	n := copy(p, s.buf)
	s.buf = s.buf[n:]
	return n, nil
}
