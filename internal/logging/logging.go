// Package logging provides structured logging functionality.
package logging

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"tiltguard/internal/models"
)

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string
	Console    bool
	File       bool
	FilePath   string
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

// DefaultLogConfig returns the default logging configuration.
func DefaultLogConfig() LogConfig {
	home, _ := os.UserHomeDir()
	return LogConfig{
		Level:      "info",
		Console:    true,
		File:       true,
		FilePath:   filepath.Join(home, ".config", "tiltguard", "logs", "tiltguard.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     30,
	}
}

// NewLoggerWithConfig creates a new logger with the specified configuration.
func NewLoggerWithConfig(cfg LogConfig) zerolog.Logger {
	var writers []io.Writer

	if cfg.Console {
		consoleWriter := zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
			FormatLevel: func(i interface{}) string {
				if ll, ok := i.(string); ok {
					switch ll {
					case "debug":
						return "\033[36mDBG\033[0m"
					case "info":
						return "\033[32mINF\033[0m"
					case "warn":
						return "\033[33mWRN\033[0m"
					case "error":
						return "\033[31mERR\033[0m"
					default:
						return ll
					}
				}
				return "???"
			},
		}
		writers = append(writers, consoleWriter)
	}

	// File writer with rotation
	if cfg.File && cfg.FilePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err == nil {
			writers = append(writers, &lumberjack.Logger{
				Filename:   cfg.FilePath,
				MaxSize:    cfg.MaxSize,
				MaxBackups: cfg.MaxBackups,
				MaxAge:     cfg.MaxAge,
				Compress:   true,
			})
		}
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	return zerolog.New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// SetDebugLevel sets the global log level to debug.
func SetDebugLevel() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
}

// ContextKey is the type for context keys.
type ContextKey string

const (
	// LoggerKey is the context key for the logger.
	LoggerKey ContextKey = "logger"
)

// WithLogger adds a logger to the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

// WithUser adds a user ID to the logger context.
func WithUser(logger zerolog.Logger, userID string) zerolog.Logger {
	return logger.With().Str("user_id", userID).Logger()
}

// WithOperation adds an operation name to the logger context.
func WithOperation(logger zerolog.Logger, operation string) zerolog.Logger {
	return logger.With().Str("operation", operation).Logger()
}

// LogTradeRecorded logs a stored trade.
func LogTradeRecorded(logger zerolog.Logger, trade *models.TradeRecord) {
	logger.Info().
		Str("event", "trade").
		Str("trade_id", trade.ID).
		Str("user_id", trade.UserID).
		Str("instrument", trade.Instrument).
		Str("direction", string(trade.Direction)).
		Float64("risk_pct", trade.RiskPercentage).
		Float64("pnl", trade.PnL).
		Bool("followed_plan", trade.FollowedPlan).
		Msg("Trade recorded")
}

// LogMetrics logs a computed metrics bundle.
func LogMetrics(logger zerolog.Logger, userID string, m models.MetricsBundle, duration time.Duration) {
	logger.Debug().
		Str("event", "metrics").
		Str("user_id", userID).
		Int("discipline", m.DisciplineScore).
		Float64("overtrading", m.OvertradingIndex).
		Float64("disposition", m.DispositionRatio).
		Float64("house_money", m.HouseMoneyFactor).
		Str("loss_reactivity", string(m.LossReactivity)).
		Int("revenge_risk", m.RevengeRisk).
		Int("trades", m.TotalTrades).
		Dur("duration", duration).
		Msg("Metrics computed")
}

// LogWarnings logs the warnings in a report. Stable notices are logged at
// debug level, everything else at warn.
func LogWarnings(logger zerolog.Logger, userID string, report models.Report) {
	for _, w := range report.Warnings {
		event := logger.Warn()
		if w.Severity == models.SeverityLow {
			event = logger.Debug()
		}
		event.
			Str("event", "behavior_warning").
			Str("user_id", userID).
			Str("type", w.Type).
			Str("severity", string(w.Severity)).
			Str("status", string(report.Status)).
			Msg(w.Message)
	}
}
