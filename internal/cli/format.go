package cli

import (
	"fmt"
	"strings"
	"time"
)

// FormatDateTime formats a timestamp in local time.
func FormatDateTime(t time.Time) string {
	return t.Local().Format("02-Jan-2006 15:04")
}

// FormatDate formats a date in local time.
func FormatDate(t time.Time) string {
	return t.Local().Format("02-Jan-2006")
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
	} else if d < 24*time.Hour {
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	return fmt.Sprintf("%dd %dh", days, hours)
}

// FormatRisk formats a risk percentage of account.
func FormatRisk(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// ScoreBar renders a 0-100 score as a fixed-width bar followed by the value.
// Out-of-range scores are clamped.
func ScoreBar(score, width int) string {
	if width < 1 {
		width = 1
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	filled := score * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + fmt.Sprintf(" %3d", score)
}

// FormatConfidence formats a 1-10 confidence level.
func FormatConfidence(level int) string {
	return fmt.Sprintf("%d/10", level)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
