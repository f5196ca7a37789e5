// Package notify delivers behavioral risk alerts to terminals and webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"tiltguard/internal/config"
	"tiltguard/internal/models"
	"tiltguard/internal/resilience"
	"tiltguard/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendRiskAlert(ctx context.Context, userID string, report models.Report) error
	SendLimitReached(ctx context.Context, check models.PreTradeCheck) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for a notification channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType       `json:"type"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationRiskAlert NotificationType = "risk_alert"
	NotificationLimit     NotificationType = "daily_limit"
	NotificationError     NotificationType = "error"
	NotificationInfo      NotificationType = "info"
)

// NotificationLevel represents the notification level filter.
type NotificationLevel string

const (
	LevelAll        NotificationLevel = "all"
	LevelAlertsOnly NotificationLevel = "alerts_only"
	LevelErrorsOnly NotificationLevel = "errors_only"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	level    NotificationLevel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a new MultiNotifier with the given configuration.
// Terminal output goes to out.
func NewMultiNotifier(cfg *config.NotificationConfig, out io.Writer) *MultiNotifier {
	mn := &MultiNotifier{
		channels: make([]NotificationChannel, 0),
		level:    NotificationLevel(cfg.Level),
	}

	if mn.level == "" {
		mn.level = LevelAll
	}

	if cfg.Terminal.Enabled && out != nil {
		mn.channels = append(mn.channels, NewTerminalNotifier(out, cfg.Terminal.Color, cfg.Terminal.Bell))
	}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}

	return mn
}

// New returns the notifier described by cfg, or a NoOpNotifier when
// notifications are disabled.
func New(cfg *config.NotificationConfig, out io.Writer) Notifier {
	if cfg == nil || !cfg.Enabled {
		return NewNoOpNotifier()
	}
	return NewMultiNotifier(cfg, out)
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// shouldSend checks if a notification should be sent based on the level filter.
func (mn *MultiNotifier) shouldSend(notifType NotificationType) bool {
	switch mn.level {
	case LevelAlertsOnly:
		return notifType == NotificationRiskAlert || notifType == NotificationLimit
	case LevelErrorsOnly:
		return notifType == NotificationError
	default:
		return true
	}
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !mn.shouldSend(n.Type) {
		return nil
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendRiskAlert announces that a trader should stop trading.
func (mn *MultiNotifier) SendRiskAlert(ctx context.Context, userID string, report models.Report) error {
	return mn.Send(ctx, RiskAlert(userID, report))
}

// RiskAlert builds the notification for a report with status STOP TRADING.
func RiskAlert(userID string, report models.Report) Notification {
	m := report.Metrics

	var sb strings.Builder
	for _, w := range report.Warnings {
		if w.Severity == models.SeverityHigh {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", w.Type, w.Message))
		}
	}
	sb.WriteString(fmt.Sprintf("Discipline: %d | Revenge risk: %d | Overtrading: %s",
		m.DisciplineScore, m.RevengeRisk, utils.FormatRatio(m.OvertradingIndex)))

	return Notification{
		Type:    NotificationRiskAlert,
		Title:   fmt.Sprintf("%s: %s", report.Status, userID),
		Message: sb.String(),
		Data: map[string]interface{}{
			"user_id":          userID,
			"status":           report.Status,
			"discipline_score": m.DisciplineScore,
			"revenge_risk":     m.RevengeRisk,
			"loss_reactivity":  m.LossReactivity,
			"warnings":         report.Warnings,
		},
	}
}

// SendLimitReached announces that a trader has used up their daily trades.
func (mn *MultiNotifier) SendLimitReached(ctx context.Context, check models.PreTradeCheck) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationLimit,
		Title:   fmt.Sprintf("Daily limit reached: %s", check.UserID),
		Message: fmt.Sprintf("%d of %d planned trades taken today", check.TradesToday, check.DailyLimit),
		Data: map[string]interface{}{
			"user_id":      check.UserID,
			"trades_today": check.TradesToday,
			"daily_limit":  check.DailyLimit,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "Error Occurred",
		Message: fmt.Sprintf("Context: %s\nError: %v", errContext, err),
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
	retry   utils.RetryConfig
	breaker *resilience.Breaker
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	retry := utils.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	breaker := resilience.DefaultBreakerConfig()
	if cfg.BreakerFailures > 0 {
		breaker.FailureThreshold = cfg.BreakerFailures
	}
	if cfg.BreakerCooldown > 0 {
		breaker.Cooldown = cfg.BreakerCooldown
	}

	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retry:   retry,
		breaker: resilience.NewBreaker("webhook", breaker),
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send posts the notification as JSON. Network failures and 5xx responses
// are retried with exponential backoff; other statuses fail immediately.
// After repeated failed deliveries the webhook is skipped until the breaker
// cooldown passes.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	return w.breaker.Execute(ctx, func(ctx context.Context) error {
		return w.post(ctx, body)
	})
}

// BreakerStats reports the state of the delivery circuit breaker.
func (w *WebhookNotifier) BreakerStats() resilience.BreakerStats {
	return w.breaker.Stats()
}

func (w *WebhookNotifier) post(ctx context.Context, body []byte) error {
	return utils.Retry(ctx, w.retry, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return utils.Permanent(fmt.Errorf("creating webhook request: %w", err))
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", "tiltguard/1.0")

		resp, err := w.client.Do(req)
		if err != nil {
			return fmt.Errorf("sending webhook: %w", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= 500:
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return utils.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
		}
		return nil
	})
}

// NoOpNotifier is a notifier that does nothing (for testing or disabled notifications).
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendRiskAlert does nothing.
func (n *NoOpNotifier) SendRiskAlert(ctx context.Context, userID string, report models.Report) error {
	return nil
}

// SendLimitReached does nothing.
func (n *NoOpNotifier) SendLimitReached(ctx context.Context, check models.PreTradeCheck) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
