package logparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/botlog/internal/botregistry"
	"github.com/JakeFAU/botlog/internal/pagetype"
)

// combinedPattern matches the combined access-log format with an optional
// trailing response time: ip ident user [time] "method url proto" status
// size "referer" "user-agent" [response_time].
var combinedPattern = regexp.MustCompile(
	`^(\S+)\s+\S+\s+\S+\s+\[([^\]]+)\]\s+"(\S+)\s+(\S+)\s+\S+"\s+(\d+)\s+(\d+|-)\s+"[^"]*"\s+"([^"]*)"(?:\s+(\d+))?`,
)

// ParseCombined parses one combined-format line. It returns false when the
// line is blank, does not match, has an unparseable timestamp, or its user
// agent is not a recognized crawler and policy is RecognizedOnly. Under
// RetainAll, unknown agents become OtherBot and a bad timestamp leaves
// Timestamp zero instead of dropping the line.
func ParseCombined(line string, policy Policy) (Hit, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Hit{}, false
	}
	m := combinedPattern.FindStringSubmatch(line)
	if m == nil {
		return Hit{}, false
	}

	ua := m[7]
	bot, family, recognized := botregistry.Classify(ua)
	if !recognized {
		if policy != RetainAll {
			return Hit{}, false
		}
		bot, family = OtherBot, ""
	}

	hit := Hit{
		IP:        m[1],
		Method:    m[3],
		URL:       m[4],
		UserAgent: ua,
		Bot:       bot,
		Family:    family,
		PageType:  pagetype.Classify(m[4]),
	}
	if ts, ok := parseAccessLogTime(m[2]); ok {
		hit.SetTimestamp(ts)
	} else if policy != RetainAll {
		return Hit{}, false
	}

	hit.Status, _ = strconv.Atoi(m[5])
	if m[6] != "-" {
		hit.Size, _ = strconv.ParseInt(m[6], 10, 64)
	}
	if m[8] != "" {
		if rt, err := strconv.ParseInt(m[8], 10, 64); err == nil {
			hit.ResponseTime = &rt
		}
	}
	return hit, true
}
