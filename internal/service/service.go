// Package service coordinates the store, the behavior engine and the alerting
// side effects behind the CLI and HTTP surfaces.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"tiltguard/internal/behavior"
	apperrors "tiltguard/internal/errors"
	"tiltguard/internal/logging"
	"tiltguard/internal/models"
	"tiltguard/internal/notify"
	"tiltguard/internal/performance"
	"tiltguard/internal/store"
	"tiltguard/internal/validation"
	"tiltguard/pkg/telemetry"
)

// Service implements the trader-facing operations.
type Service struct {
	store     store.DataStore
	engine    *behavior.Engine
	validator *validation.Validator
	notifier  notify.Notifier
	recorder  *telemetry.Recorder
	pool      *performance.WorkerPool
	logger    zerolog.Logger
	now       func() time.Time

	defaultLimit int

	mu         sync.Mutex
	lastStatus map[string]models.TradingStatus
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier sets the notifier used for risk alerts.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithRecorder sets the Prometheus recorder.
func WithRecorder(r *telemetry.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithPool sets the worker pool used for batch computation.
func WithPool(p *performance.WorkerPool) Option {
	return func(s *Service) { s.pool = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithDefaultDailyLimit sets the planned daily limit given to new users who
// do not choose one.
func WithDefaultDailyLimit(n int) Option {
	return func(s *Service) { s.defaultLimit = n }
}

// WithClock sets the source of the reference instant.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Service.
func New(st store.DataStore, engine *behavior.Engine, opts ...Option) *Service {
	s := &Service{
		store:      st,
		engine:     engine,
		validator:  validation.New(),
		notifier:   notify.NewNoOpNotifier(),
		logger:     zerolog.Nop(),
		now:        time.Now,
		lastStatus: make(map[string]models.TradingStatus),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = behavior.NewDefaultEngine()
	}
	return s
}

// Engine returns the behavior engine.
func (s *Service) Engine() *behavior.Engine {
	return s.engine
}

// Now returns the current reference instant.
func (s *Service) Now() time.Time {
	return s.now()
}

// ============================================================================
// Users
// ============================================================================

// CreateUser validates and stores a new user.
func (s *Service) CreateUser(ctx context.Context, in *validation.UserInput) (*models.User, error) {
	if in.PlannedDailyLimit == 0 && s.defaultLimit > 0 {
		in.PlannedDailyLimit = s.defaultLimit
	}
	user, err := s.validator.User(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, &user); err != nil {
		s.recorder.RecordStoreError("create_user")
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("User created")
	return &user, nil
}

// GetUser returns a user.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns every user.
func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.store.ListUsers(ctx)
}

// UpdateStrategy validates and applies a trading plan update.
func (s *Service) UpdateStrategy(ctx context.Context, id string, in *validation.StrategyInput) (*models.User, error) {
	if err := s.validator.Strategy(in); err != nil {
		return nil, err
	}
	user, err := s.store.UpdateStrategy(ctx, id, in.PlannedDailyLimit, in.TradingPlanRules)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", id).Int("planned_daily_limit", user.PlannedDailyLimit).Msg("Strategy updated")
	return user, nil
}

// ============================================================================
// Trades
// ============================================================================

// RecordTrade validates and stores a closed trade.
func (s *Service) RecordTrade(ctx context.Context, in *validation.TradeInput) (*models.TradeRecord, error) {
	trade, err := s.validator.Trade(in)
	if err != nil {
		return nil, err
	}
	if err := s.store.LogTrade(ctx, &trade); err != nil {
		s.recorder.RecordStoreError("log_trade")
		return nil, err
	}

	logging.LogTradeRecorded(s.logger, &trade)
	s.recorder.RecordTrade()
	return &trade, nil
}

// ImportTrades stores already-parsed trades for a user. Every record is
// checked before anything is written; the first invalid record aborts the
// import.
func (s *Service) ImportTrades(ctx context.Context, userID string, trades []models.TradeRecord) (int, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return 0, err
	}

	for i := range trades {
		trades[i].UserID = userID
		if trades[i].Result == "" {
			trades[i].Result = models.ResultFromPnL(trades[i].PnL)
		}
		if err := s.validator.Record(trades[i]); err != nil {
			return 0, apperrors.Wrapf(err, "record %d", i+1)
		}
	}

	imported := 0
	for i := range trades {
		if err := s.store.LogTrade(ctx, &trades[i]); err != nil {
			s.recorder.RecordStoreError("log_trade")
			return imported, apperrors.Wrapf(err, "record %d", i+1)
		}
		s.recorder.RecordTrade()
		imported++
	}

	s.logger.Info().Str("user_id", userID).Int("count", imported).Msg("Trades imported")
	return imported, nil
}

// ListTrades returns a user's trades, most recent entry first.
func (s *Service) ListTrades(ctx context.Context, userID string, limit int) ([]models.TradeRecord, error) {
	return s.store.GetTrades(ctx, store.TradeFilter{UserID: userID, Limit: limit})
}

// DeleteTrade removes a trade.
func (s *Service) DeleteTrade(ctx context.Context, id string) error {
	if err := s.store.DeleteTrade(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("trade_id", id).Msg("Trade deleted")
	return nil
}
