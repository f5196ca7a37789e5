// Package config provides configuration management for tiltguard.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"

	"tiltguard/internal/behavior"
	"tiltguard/internal/logging"
)

// Config holds all application configuration.
type Config struct {
	Behavior      BehaviorConfig     `mapstructure:"behavior"`
	User          UserConfig         `mapstructure:"user"`
	Store         StoreConfig        `mapstructure:"store"`
	Server        ServerConfig       `mapstructure:"server"`
	Log           LogConfig          `mapstructure:"log"`
	Workers       WorkerConfig       `mapstructure:"workers"`
	Notifications NotificationConfig `mapstructure:"notifications"`

	// Dir is the directory the configuration was loaded from.
	Dir string `mapstructure:"-"`
}

// BehaviorConfig holds the scoring rule thresholds.
type BehaviorConfig struct {
	MaxRiskPercent        float64       `mapstructure:"max_risk_percent"`
	BrokenPlanPenalty     int           `mapstructure:"broken_plan_penalty"`
	ExcessRiskPenalty     int           `mapstructure:"excess_risk_penalty"`
	BrokenPlanLossPenalty int           `mapstructure:"broken_plan_loss_penalty"`
	MinDisciplineScore    int           `mapstructure:"min_discipline_score"`
	MaxOvertradingIndex   float64       `mapstructure:"max_overtrading_index"`
	MaxDispositionRatio   float64       `mapstructure:"max_disposition_ratio"`
	MaxHouseMoneyFactor   float64       `mapstructure:"max_house_money_factor"`
	ReentryWindow         time.Duration `mapstructure:"reentry_window"`
	RapidFireWindow       time.Duration `mapstructure:"rapid_fire_window"`
	RevengeWindow         int           `mapstructure:"revenge_window"`
	LossHeat              int           `mapstructure:"loss_heat"`
	RapidFireFactor       int           `mapstructure:"rapid_fire_factor"`
	WinCooling            int           `mapstructure:"win_cooling"`
}

// UserConfig holds defaults applied to user profiles.
type UserConfig struct {
	DefaultPlannedDailyLimit int `mapstructure:"default_planned_daily_limit"`
}

// StoreConfig holds persistence configuration.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       float64       `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst       int           `mapstructure:"rate_burst"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
	File    bool   `mapstructure:"file"`
}

// WorkerConfig holds batch computation configuration.
type WorkerConfig struct {
	Count int `mapstructure:"count"`
}

// NotificationConfig holds notification configuration.
type NotificationConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Level    string         `mapstructure:"level"` // all, alerts_only, errors_only
	Terminal TerminalConfig `mapstructure:"terminal"`
	Webhook  WebhookConfig  `mapstructure:"webhook"`
}

// TerminalConfig holds terminal notification configuration.
type TerminalConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Color   bool `mapstructure:"color"`
	Bell    bool `mapstructure:"bell"`
}

// WebhookConfig holds webhook notification configuration.
type WebhookConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	MaxRetries      int           `mapstructure:"max_retries"`
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/tiltguard"
	}
	return filepath.Join(home, ".config", "tiltguard")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by the template and the defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("loading config.toml: %w", err)
		}
		if _, err := writeTemplateConfig(configDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config.toml: %w", err)
	}
	cfg.Dir = configDir

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg := &Config{}
	// Decoding the defaults cannot fail.
	_ = v.Unmarshal(cfg)
	cfg.Dir = DefaultConfigDir()
	return cfg
}

func setDefaults(v *viper.Viper) {
	t := behavior.DefaultThresholds()
	v.SetDefault("behavior.max_risk_percent", t.MaxRiskPercent)
	v.SetDefault("behavior.broken_plan_penalty", t.BrokenPlanPenalty)
	v.SetDefault("behavior.excess_risk_penalty", t.ExcessRiskPenalty)
	v.SetDefault("behavior.broken_plan_loss_penalty", t.BrokenPlanLossPenalty)
	v.SetDefault("behavior.min_discipline_score", t.MinDisciplineScore)
	v.SetDefault("behavior.max_overtrading_index", t.MaxOvertradingIndex)
	v.SetDefault("behavior.max_disposition_ratio", t.MaxDispositionRatio)
	v.SetDefault("behavior.max_house_money_factor", t.MaxHouseMoneyFactor)
	v.SetDefault("behavior.reentry_window", t.ReentryWindow)
	v.SetDefault("behavior.rapid_fire_window", t.RapidFireWindow)
	v.SetDefault("behavior.revenge_window", t.RevengeWindow)
	v.SetDefault("behavior.loss_heat", t.LossHeat)
	v.SetDefault("behavior.rapid_fire_factor", t.RapidFireFactor)
	v.SetDefault("behavior.win_cooling", t.WinCooling)

	v.SetDefault("user.default_planned_daily_limit", 3)

	v.SetDefault("store.path", "")

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 50.0)
	v.SetDefault("server.rate_burst", 100)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.console", true)
	v.SetDefault("log.file", true)

	v.SetDefault("workers.count", 0)

	v.SetDefault("notifications.enabled", false)
	v.SetDefault("notifications.level", "all")
	v.SetDefault("notifications.terminal.enabled", true)
	v.SetDefault("notifications.terminal.color", true)
	v.SetDefault("notifications.terminal.bell", true)
	v.SetDefault("notifications.webhook.enabled", false)
	v.SetDefault("notifications.webhook.url", "")
	v.SetDefault("notifications.webhook.max_retries", 3)
	v.SetDefault("notifications.webhook.breaker_failures", 5)
	v.SetDefault("notifications.webhook.breaker_cooldown", time.Minute)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TILTGUARD_DB_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("TILTGUARD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("TILTGUARD_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TILTGUARD_WEBHOOK_URL"); v != "" {
		cfg.Notifications.Enabled = true
		cfg.Notifications.Webhook.Enabled = true
		cfg.Notifications.Webhook.URL = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("behavior: %w", err)
	}

	if c.User.DefaultPlannedDailyLimit < 1 {
		return fmt.Errorf("default_planned_daily_limit must be at least 1")
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return fmt.Errorf("server rate limit must be non-negative")
	}

	if c.Workers.Count < 0 {
		return fmt.Errorf("workers.count must be non-negative")
	}

	switch c.Notifications.Level {
	case "", "all", "alerts_only", "errors_only":
	default:
		return fmt.Errorf("invalid notifications.level: %s", c.Notifications.Level)
	}

	if c.Notifications.Webhook.Enabled && c.Notifications.Webhook.URL == "" {
		return fmt.Errorf("webhook notifications enabled without a url")
	}

	return nil
}

// Thresholds converts the behavior section into engine thresholds.
func (c *Config) Thresholds() behavior.Thresholds {
	b := c.Behavior
	return behavior.Thresholds{
		MaxRiskPercent:        b.MaxRiskPercent,
		BrokenPlanPenalty:     b.BrokenPlanPenalty,
		ExcessRiskPenalty:     b.ExcessRiskPenalty,
		BrokenPlanLossPenalty: b.BrokenPlanLossPenalty,
		MinDisciplineScore:    b.MinDisciplineScore,
		MaxOvertradingIndex:   b.MaxOvertradingIndex,
		MaxDispositionRatio:   b.MaxDispositionRatio,
		MaxHouseMoneyFactor:   b.MaxHouseMoneyFactor,
		ReentryWindow:         b.ReentryWindow,
		RapidFireWindow:       b.RapidFireWindow,
		RevengeWindow:         b.RevengeWindow,
		LossHeat:              b.LossHeat,
		RapidFireFactor:       b.RapidFireFactor,
		WinCooling:            b.WinCooling,
	}
}

// DBPath returns the SQLite database path.
func (c *Config) DBPath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.Dir, "tiltguard.db")
}

// LogConfig converts the log section into a logging configuration.
func (c *Config) LogConfig() logging.LogConfig {
	lc := logging.DefaultLogConfig()
	lc.Level = c.Log.Level
	lc.Console = c.Log.Console
	lc.File = c.Log.File
	lc.FilePath = filepath.Join(c.Dir, "logs", "tiltguard.log")
	return lc
}
