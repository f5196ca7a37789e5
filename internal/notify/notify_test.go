package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiltguard/internal/config"
	"tiltguard/internal/models"
	"tiltguard/internal/resilience"
)

func stopReport() models.Report {
	return models.Report{
		Metrics: models.MetricsBundle{
			DisciplineScore:  40,
			OvertradingIndex: 2,
			DispositionRatio: 1,
			HouseMoneyFactor: 1,
			LossReactivity:   models.ReactivityHigh,
			RevengeRisk:      80,
			TotalTrades:      6,
		},
		Warnings: []models.Warning{
			{Type: "Low Discipline", Severity: models.SeverityHigh, Message: "You are breaking your rules."},
			{Type: "Overtrading", Severity: models.SeverityMedium, Message: "Slow down."},
		},
		Status: models.StatusStop,
	}
}

func webhookConfig(url string, retries int) config.WebhookConfig {
	return config.WebhookConfig{Enabled: true, URL: url, MaxRetries: retries}
}

func TestWebhookDeliversPayload(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	mn := NewMultiNotifier(&config.NotificationConfig{Enabled: true, Webhook: webhookConfig(srv.URL, 1)}, nil)
	require.NoError(t, mn.SendRiskAlert(context.Background(), "u1", stopReport()))

	assert.Equal(t, string(NotificationRiskAlert), got["type"])
	assert.Equal(t, "STOP TRADING: u1", got["title"])
	data := got["data"].(map[string]interface{})
	assert.Equal(t, float64(80), data["revenge_risk"])
}

func TestWebhookRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(webhookConfig(srv.URL, 3))
	w.retry.InitialDelay = time.Millisecond
	w.retry.MaxDelay = time.Millisecond

	require.NoError(t, w.Send(context.Background(), Notification{Type: NotificationInfo, Title: "hi"}))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestWebhookDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhookNotifier(webhookConfig(srv.URL, 5))
	w.retry.InitialDelay = time.Millisecond

	err := w.Send(context.Background(), Notification{Type: NotificationInfo})
	assert.ErrorContains(t, err, "status 400")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestWebhookBreakerStopsDelivery(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	cfg := webhookConfig(srv.URL, 1)
	cfg.BreakerFailures = 2
	cfg.BreakerCooldown = time.Hour
	w := NewWebhookNotifier(cfg)

	for i := 0; i < 2; i++ {
		assert.Error(t, w.Send(context.Background(), Notification{Type: NotificationInfo}))
	}
	err := w.Send(context.Background(), Notification{Type: NotificationInfo})
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, resilience.StateOpen, w.BreakerStats().State)
}

func TestWebhookDisabledWithoutURL(t *testing.T) {
	w := NewWebhookNotifier(config.WebhookConfig{Enabled: true})
	assert.False(t, w.IsEnabled())
	assert.NoError(t, w.Send(context.Background(), Notification{}))
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	tn := NewTerminalNotifier(&buf, false, true)

	require.NoError(t, tn.Send(context.Background(), RiskAlert("u1", stopReport())))

	out := buf.String()
	assert.Contains(t, out, "\a")
	assert.Contains(t, out, "RISK | STOP TRADING: u1")
	assert.Contains(t, out, "Low Discipline: You are breaking your rules.")
	assert.NotContains(t, out, "Overtrading: Slow down.", "only high severity warnings are listed")
	assert.NotContains(t, out, "\033[")
}

type recordingChannel struct {
	sent []Notification
}

func (r *recordingChannel) Name() string    { return "recording" }
func (r *recordingChannel) IsEnabled() bool { return true }
func (r *recordingChannel) Send(_ context.Context, n Notification) error {
	r.sent = append(r.sent, n)
	return nil
}

type failingChannel struct{}

func (failingChannel) Name() string    { return "failing" }
func (failingChannel) IsEnabled() bool { return true }
func (failingChannel) Send(context.Context, Notification) error {
	return errors.New("boom")
}

func TestMultiNotifierLevels(t *testing.T) {
	ctx := context.Background()

	rec := &recordingChannel{}
	mn := NewMultiNotifier(&config.NotificationConfig{Level: "alerts_only"}, nil)
	mn.AddChannel(rec)

	require.NoError(t, mn.SendError(ctx, errors.New("db down"), "metrics"))
	require.NoError(t, mn.SendLimitReached(ctx, models.PreTradeCheck{UserID: "u1", TradesToday: 3, DailyLimit: 3}))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, NotificationLimit, rec.sent[0].Type)
	assert.False(t, rec.sent[0].Timestamp.IsZero())

	rec = &recordingChannel{}
	mn = NewMultiNotifier(&config.NotificationConfig{Level: "errors_only"}, nil)
	mn.AddChannel(rec)
	require.NoError(t, mn.SendRiskAlert(ctx, "u1", stopReport()))
	require.NoError(t, mn.SendError(ctx, errors.New("db down"), "metrics"))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, NotificationError, rec.sent[0].Type)
}

func TestMultiNotifierCollectsErrors(t *testing.T) {
	rec := &recordingChannel{}
	mn := NewMultiNotifier(&config.NotificationConfig{}, nil)
	mn.AddChannel(failingChannel{})
	mn.AddChannel(rec)

	err := mn.Send(context.Background(), Notification{Type: NotificationInfo})
	assert.ErrorContains(t, err, "failing: boom")
	assert.Len(t, rec.sent, 1, "a failing channel does not stop delivery to others")
}

func TestNewDisabled(t *testing.T) {
	n := New(&config.NotificationConfig{Enabled: false}, &bytes.Buffer{})
	_, ok := n.(*NoOpNotifier)
	assert.True(t, ok)

	n = New(&config.NotificationConfig{Enabled: true, Terminal: config.TerminalConfig{Enabled: true}}, &bytes.Buffer{})
	_, ok = n.(*MultiNotifier)
	assert.True(t, ok)
}
