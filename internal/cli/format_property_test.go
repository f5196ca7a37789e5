package cli

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// For any score and width, ScoreBar draws exactly width cells and clamps the
// printed value into 0-100.
func TestPropertyScoreBar(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("ScoreBar has a fixed width", prop.ForAll(
		func(score, width int) bool {
			bar := ScoreBar(score, width)
			cells := strings.SplitN(bar, " ", 2)[0]
			if utf8.RuneCountInString(cells) != width {
				t.Logf("ScoreBar(%d, %d) = %q", score, width, bar)
				return false
			}
			return true
		},
		gen.IntRange(-50, 150),
		gen.IntRange(1, 40),
	))

	properties.Property("ScoreBar fill is monotonic in score", prop.ForAll(
		func(a, b int) bool {
			if a > b {
				a, b = b, a
			}
			return strings.Count(ScoreBar(a, 20), "█") <= strings.Count(ScoreBar(b, 20), "█")
		},
		gen.IntRange(0, 100),
		gen.IntRange(0, 100),
	))

	properties.Property("TruncateString never exceeds the limit", prop.ForAll(
		func(s string, max int) bool {
			out := TruncateString(s, max)
			if len(s) <= max {
				return out == s
			}
			return len(out) == max
		},
		gen.AlphaString(),
		gen.IntRange(0, 30),
	))

	properties.Property("FormatDuration is never empty", prop.ForAll(
		func(secs int64) bool {
			return FormatDuration(time.Duration(secs)*time.Second) != ""
		},
		gen.Int64Range(0, 30*24*3600),
	))

	properties.TestingRun(t)
}

func TestScoreBarExamples(t *testing.T) {
	testCases := []struct {
		score    int
		width    int
		expected string
	}{
		{0, 10, "░░░░░░░░░░   0"},
		{55, 10, "█████░░░░░  55"},
		{100, 10, "██████████ 100"},
		{140, 4, "████ 100"},
		{-5, 4, "░░░░   0"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			result := ScoreBar(tc.score, tc.width)
			if result != tc.expected {
				t.Errorf("ScoreBar(%d, %d) = %q, want %q", tc.score, tc.width, result, tc.expected)
			}
		})
	}
}

func TestFormatDurationExamples(t *testing.T) {
	testCases := []struct {
		d        time.Duration
		expected string
	}{
		{42 * time.Second, "42s"},
		{5*time.Minute + 3*time.Second, "5m 3s"},
		{2*time.Hour + 15*time.Minute, "2h 15m"},
		{50 * time.Hour, "2d 2h"},
	}

	for _, tc := range testCases {
		t.Run(tc.expected, func(t *testing.T) {
			if got := FormatDuration(tc.d); got != tc.expected {
				t.Errorf("FormatDuration(%v) = %s, want %s", tc.d, got, tc.expected)
			}
		})
	}
}
