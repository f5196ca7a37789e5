package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// TerminalNotifier writes notifications to a terminal.
type TerminalNotifier struct {
	out          io.Writer
	mu           sync.Mutex
	enabled      bool
	bellEnabled  bool
	colorEnabled bool
}

// NewTerminalNotifier creates a new TerminalNotifier.
func NewTerminalNotifier(out io.Writer, color, bell bool) *TerminalNotifier {
	return &TerminalNotifier{
		out:          out,
		enabled:      true,
		bellEnabled:  bell,
		colorEnabled: color,
	}
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	return tn.enabled
}

// Send writes the notification. Risk alerts ring the terminal bell.
func (tn *TerminalNotifier) Send(ctx context.Context, n Notification) error {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if tn.bellEnabled && n.Type == NotificationRiskAlert {
		fmt.Fprint(tn.out, "\a")
	}
	_, err := fmt.Fprintln(tn.out, FormatNotification(n, tn.colorEnabled))
	return err
}

// FormatNotification formats a notification for terminal display.
func FormatNotification(n Notification, colorEnabled bool) string {
	var sb strings.Builder

	timestamp := n.Timestamp.Format("15:04:05")

	var typeIndicator, color, resetColor string
	if colorEnabled {
		resetColor = "\033[0m"
	}

	switch n.Type {
	case NotificationRiskAlert:
		typeIndicator = "🛑 RISK"
		if colorEnabled {
			color = "\033[31m" // Red
		}
	case NotificationLimit:
		typeIndicator = "⏸  LIMIT"
		if colorEnabled {
			color = "\033[33m" // Yellow
		}
	case NotificationError:
		typeIndicator = "❌ ERROR"
		if colorEnabled {
			color = "\033[31m" // Red
		}
	default:
		typeIndicator = "ℹ️  INFO"
		if colorEnabled {
			color = "\033[37m" // White
		}
	}

	sb.WriteString(fmt.Sprintf("%s[%s] %s%s | %s", color, timestamp, typeIndicator, resetColor, n.Title))

	for _, line := range strings.Split(strings.TrimSpace(n.Message), "\n") {
		if line != "" {
			sb.WriteString("\n    ")
			sb.WriteString(line)
		}
	}

	return sb.String()
}
