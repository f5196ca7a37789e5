package behavior

import (
	"time"

	"tiltguard/internal/models"
)

var defaultEngine = NewDefaultEngine()

// ComputeMetricsAndWarnings computes metrics for the trade log, relative to
// the reference instant now, and the warnings they trigger.
func (e *Engine) ComputeMetricsAndWarnings(trades []models.TradeRecord, cfg models.UserConfig, now time.Time) models.Report {
	metrics := e.Metrics(trades, cfg, now)
	warnings := e.GenerateWarnings(metrics)

	return models.Report{
		Metrics:  metrics,
		Warnings: warnings,
		Status:   DeriveStatus(warnings),
	}
}

// ComputeMetricsAndWarnings runs the default engine against the current time.
func ComputeMetricsAndWarnings(trades []models.TradeRecord, cfg models.UserConfig) models.Report {
	return defaultEngine.ComputeMetricsAndWarnings(trades, cfg, time.Now())
}

// CleanSlateReport is the report a caller substitutes when the trade log is
// unavailable.
func CleanSlateReport() models.Report {
	warnings := []models.Warning{StableWarning()}
	return models.Report{
		Metrics:  models.CleanSlate(),
		Warnings: warnings,
		Status:   DeriveStatus(warnings),
	}
}

// PreTradeCheck decides whether another trade may be opened on now's day.
// The trader is blocked once the daily limit is reached or while any
// high-severity warning is active.
func (e *Engine) PreTradeCheck(userID string, trades []models.TradeRecord, cfg models.UserConfig, now time.Time) models.PreTradeCheck {
	cfg = cfg.Normalized()
	report := e.ComputeMetricsAndWarnings(trades, cfg, now)
	today := TradesOnDay(trades, now)

	remaining := cfg.PlannedDailyLimit - today
	if remaining < 0 {
		remaining = 0
	}

	check := models.PreTradeCheck{
		UserID:          userID,
		TradesToday:     today,
		DailyLimit:      cfg.PlannedDailyLimit,
		TradesRemaining: remaining,
		Status:          report.Status,
		Allowed:         true,
	}

	switch {
	case remaining == 0:
		check.Allowed = false
		check.Reason = "daily trade limit reached"
	case report.Status == models.StatusStop:
		check.Allowed = false
		check.Reason = "high-severity behavioral warning active"
	}

	return check
}
