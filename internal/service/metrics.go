package service

import (
	"context"
	"fmt"
	"time"

	"tiltguard/internal/behavior"
	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/logging"
	"tiltguard/internal/models"
	"tiltguard/internal/performance"
	"tiltguard/internal/store"
)

// UserReport is one entry of a batch computation.
type UserReport struct {
	UserID   string        `json:"userId"`
	Username string        `json:"username"`
	Report   models.Report `json:"report"`
	Error    string        `json:"error,omitempty"`
}

// Report computes the behavioral report for a user as of now.
func (s *Service) Report(ctx context.Context, userID string) (models.Report, error) {
	return s.ReportAt(ctx, userID, s.now())
}

// ReportAt computes the behavioral report for a user relative to at.
// An unknown user is an error. Any other failure to load the user or the
// trade log yields the clean slate report.
func (s *Service) ReportAt(ctx context.Context, userID string, at time.Time) (models.Report, error) {
	start := time.Now()
	logger := logging.WithUser(s.logger, userID)

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrUserNotFound) {
			return models.Report{}, err
		}
		return s.cleanSlate(ctx, "get_user", userID, err), nil
	}

	trades, err := s.store.GetTrades(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		return s.cleanSlate(ctx, "get_trades", userID, err), nil
	}

	report := s.engine.ComputeMetricsAndWarnings(trades, user.Config(), at)
	elapsed := time.Since(start)

	logging.LogMetrics(logger, userID, report.Metrics, elapsed)
	logging.LogWarnings(logger, userID, report)

	s.recorder.RecordLatency("report", elapsed.Seconds())
	s.recorder.RecordReport(string(report.Status), report.Metrics.RevengeRisk)
	for _, w := range report.Warnings {
		s.recorder.RecordWarning(w.Type, string(w.Severity))
	}

	s.alertOnStop(ctx, userID, report)
	return report, nil
}

func (s *Service) cleanSlate(ctx context.Context, operation, userID string, err error) models.Report {
	s.logger.Error().Err(err).
		Str("user_id", userID).
		Str("operation", operation).
		Msg("Trade log unavailable, using clean slate")
	s.recorder.RecordStoreError(operation)

	if nerr := s.notifier.SendError(ctx, err, fmt.Sprintf("%s for user %s", operation, userID)); nerr != nil {
		s.logger.Warn().Err(nerr).Str("user_id", userID).Msg("Failed to deliver error notification")
		s.recorder.RecordNotifyFailure()
	}
	return behavior.CleanSlateReport()
}

// alertOnStop notifies when a user's status turns to STOP TRADING. Repeated
// STOP reports for the same user do not alert again until the status clears.
func (s *Service) alertOnStop(ctx context.Context, userID string, report models.Report) {
	s.mu.Lock()
	prev, seen := s.lastStatus[userID]
	s.lastStatus[userID] = report.Status
	s.mu.Unlock()

	if report.Status != models.StatusStop || (seen && prev == models.StatusStop) {
		return
	}

	if err := s.notifier.SendRiskAlert(ctx, userID, report); err != nil {
		s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to deliver risk alert")
		s.recorder.RecordNotifyFailure()
	}
}

// ReportAll computes reports for every user on the worker pool. With
// activeOnly, users without any trades are skipped.
func (s *Service) ReportAll(ctx context.Context, activeOnly bool) ([]UserReport, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.recorder.RecordStoreError("list_users")
		return nil, err
	}

	if activeOnly {
		ids, err := s.store.TradingUserIDs(ctx)
		if err != nil {
			s.recorder.RecordStoreError("trading_users")
			return nil, err
		}
		active := make(map[string]bool, len(ids))
		for _, id := range ids {
			active[id] = true
		}

		filtered := users[:0]
		for _, u := range users {
			if active[u.ID] {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}

	start := time.Now()
	at := s.now()
	results := performance.Map(ctx, s.pool, users, func(ctx context.Context, u models.User) UserReport {
		ur := UserReport{UserID: u.ID, Username: u.Username}
		report, err := s.ReportAt(ctx, u.ID, at)
		if err != nil {
			ur.Error = err.Error()
			return ur
		}
		ur.Report = report
		return ur
	})
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.recorder.RecordLatency("report_all", time.Since(start).Seconds())
	s.logger.Info().Int("users", len(results)).Dur("duration", time.Since(start)).Msg("Computed reports")
	return results, nil
}

// PreTradeCheck decides whether the user may open another trade now.
func (s *Service) PreTradeCheck(ctx context.Context, userID string) (models.PreTradeCheck, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return models.PreTradeCheck{}, err
	}

	trades, err := s.store.GetTrades(ctx, store.TradeFilter{UserID: userID})
	if err != nil {
		s.recorder.RecordStoreError("get_trades")
		return models.PreTradeCheck{}, err
	}

	check := s.engine.PreTradeCheck(userID, trades, user.Config(), s.now())

	s.logger.Debug().
		Str("user_id", userID).
		Int("trades_today", check.TradesToday).
		Int("daily_limit", check.DailyLimit).
		Bool("allowed", check.Allowed).
		Msg("Pre-trade check")

	if !check.Allowed && check.TradesRemaining == 0 {
		if err := s.notifier.SendLimitReached(ctx, check); err != nil {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to deliver limit notification")
			s.recorder.RecordNotifyFailure()
		}
	}

	return check, nil
}
