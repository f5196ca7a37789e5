package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiltguard/internal/behavior"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)
	assert.Equal(t, behavior.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, 3, cfg.User.DefaultPlannedDailyLimit)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.NoError(t, cfg.Validate())
}

func TestLoadWritesTemplate(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
	assert.Equal(t, behavior.DefaultThresholds(), cfg.Thresholds())
	assert.Equal(t, filepath.Join(dir, "tiltguard.db"), cfg.DBPath())

	// The template must parse back to the same thresholds.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg.Thresholds(), again.Thresholds())
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	content := `
[behavior]
max_risk_percent = 1.5
reentry_window = "20m"
revenge_window = 8

[user]
default_planned_daily_limit = 5

[store]
path = "/tmp/custom.db"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	th := cfg.Thresholds()
	assert.Equal(t, 1.5, th.MaxRiskPercent)
	assert.Equal(t, 20*time.Minute, th.ReentryWindow)
	assert.Equal(t, 8, th.RevengeWindow)
	// Unset keys keep their defaults.
	assert.Equal(t, 15*time.Minute, th.RapidFireWindow)
	assert.Equal(t, 5, cfg.User.DefaultPlannedDailyLimit)
	assert.Equal(t, "/tmp/custom.db", cfg.DBPath())
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TILTGUARD_DB_PATH", "/tmp/env.db")
	t.Setenv("TILTGUARD_HTTP_PORT", "9090")
	t.Setenv("TILTGUARD_WEBHOOK_URL", "http://localhost:9999/hook")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.DBPath())
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Notifications.Webhook.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero revenge window", func(c *Config) { c.Behavior.RevengeWindow = 0 }},
		{"negative risk limit", func(c *Config) { c.Behavior.MaxRiskPercent = -1 }},
		{"zero daily limit", func(c *Config) { c.User.DefaultPlannedDailyLimit = 0 }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"negative rate limit", func(c *Config) { c.Server.RateLimit = -1 }},
		{"webhook without url", func(c *Config) { c.Notifications.Webhook.Enabled = true }},
		{"unknown notification level", func(c *Config) { c.Notifications.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("[behavior]\nrevenge_window = 0\n"), 0644))

	_, err := Load(dir)
	assert.Error(t, err)
}
