package logparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/pagetype"
)

const googlebotUA = "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)"

func TestParseCombinedRecognizedCrawler(t *testing.T) {
	t.Parallel()

	line := `66.249.66.1 - - [10/Oct/2023:13:55:36 +0200] "GET /static/app.js HTTP/1.1" 200 5123 "-" "` + googlebotUA + `"`
	hit, ok := ParseCombined(line, RecognizedOnly)
	require.True(t, ok)
	require.Equal(t, "66.249.66.1", hit.IP)
	require.Equal(t, "GET", hit.Method)
	require.Equal(t, "/static/app.js", hit.URL)
	require.Equal(t, 200, hit.Status)
	require.Equal(t, int64(5123), hit.Size)
	require.Equal(t, "Googlebot", hit.Bot)
	require.Equal(t, "Google", hit.Family)
	require.Equal(t, pagetype.JavaScript, hit.PageType)
	require.Nil(t, hit.ResponseTime)
	// The offset is dropped, not applied.
	require.Equal(t, time.Date(2023, 10, 10, 13, 55, 36, 0, time.UTC), hit.Timestamp)
	require.Equal(t, time.Date(2023, 10, 10, 0, 0, 0, 0, time.UTC), hit.Date)
}

func TestParseCombinedDashSizeAndResponseTime(t *testing.T) {
	t.Parallel()

	line := `1.2.3.4 - - [01/Jan/2026:00:00:02 +0000] "HEAD / HTTP/1.1" 304 - "https://example.com/" "GPTBot/1.1" 1234`
	hit, ok := ParseCombined(line, RecognizedOnly)
	require.True(t, ok)
	require.Equal(t, int64(0), hit.Size)
	require.Equal(t, 304, hit.Status)
	require.NotNil(t, hit.ResponseTime)
	require.Equal(t, int64(1234), *hit.ResponseTime)
	require.Equal(t, "OpenAI", hit.Family)
	require.Equal(t, pagetype.Page, hit.PageType)
}

func TestParseCombinedDropsLines(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"blank":         "   ",
		"garbage":       "this is not a log line",
		"browser":       `1.2.3.4 - - [01/Jan/2026:00:00:02 +0000] "GET / HTTP/1.1" 200 10 "-" "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0"`,
		"excluded":      `1.2.3.4 - - [01/Jan/2026:00:00:02 +0000] "GET / HTTP/1.1" 200 10 "-" "AhrefsBot/7.0 Googlebot"`,
		"bad timestamp": `1.2.3.4 - - [yesterday] "GET / HTTP/1.1" 200 10 "-" "` + googlebotUA + `"`,
	}
	for name, line := range cases {
		_, ok := ParseCombined(line, RecognizedOnly)
		require.False(t, ok, name)
	}
}

func TestParseCombinedRetainAll(t *testing.T) {
	t.Parallel()

	line := `1.2.3.4 - - [01/Jan/2026:00:00:02 +0000] "GET /a HTTP/1.1" 200 10 "-" "curl/8.4.0"`
	hit, ok := ParseCombined(line, RetainAll)
	require.True(t, ok)
	require.Equal(t, OtherBot, hit.Bot)
	require.Empty(t, hit.Family)

	line = `1.2.3.4 - - [not a time] "GET /a HTTP/1.1" 200 10 "-" "` + googlebotUA + `"`
	hit, ok = ParseCombined(line, RetainAll)
	require.True(t, ok)
	require.False(t, hit.HasTimestamp())
	require.Equal(t, "Googlebot", hit.Bot)
}

func TestParseCombinedSingleDigitDay(t *testing.T) {
	t.Parallel()

	line := `1.2.3.4 - - [1/jan/2026:00:00:02 +0000] "GET / HTTP/1.1" 200 10 "-" "` + googlebotUA + `"`
	hit, ok := ParseCombined(line, RecognizedOnly)
	require.True(t, ok)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 2, 0, time.UTC), hit.Timestamp)
}
