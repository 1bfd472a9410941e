package logparse

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// tabularIndicators are header tokens that suggest a CSV export.
var tabularIndicators = []string{"user_agent", "useragent", "http_user_agent", "status", "url", "ip", "datetime"}

// minIndicators is how many tabularIndicators a header must contain.
const minIndicators = 3

// DetectFormat inspects the first line of r. A comma-bearing line that names
// at least three well-known column headers is tabular; anything else,
// including an empty input, is treated as the combined format.
func DetectFormat(r io.Reader) (Format, error) {
	br := bufio.NewReader(skipBOM(r))
	first, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read first line: %w", err)
	}
	return detectLine(first), nil
}

// DetectFile opens path and calls DetectFormat.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	return DetectFormat(f)
}

func detectLine(line string) Format {
	lower := strings.ToLower(strings.TrimSpace(line))
	lower = strings.NewReplacer(`"`, "", `'`, "").Replace(lower)
	if !strings.Contains(lower, ",") {
		return FormatCombined
	}
	matches := 0
	for _, ind := range tabularIndicators {
		if strings.Contains(lower, ind) {
			matches++
		}
	}
	if matches >= minIndicators {
		return FormatTabular
	}
	return FormatCombined
}
