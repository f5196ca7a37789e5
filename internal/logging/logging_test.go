package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiltguard/internal/models"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
	assert.Equal(t, zerolog.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("loud"))
}

func TestContextLogger(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, FromContext(context.Background()).GetLevel())

	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	ctx := WithLogger(context.Background(), WithUser(logger, "u1"))

	opLogger := WithOperation(FromContext(ctx), "report")
	opLogger.Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "u1", line["user_id"])
	assert.Equal(t, "report", line["operation"])
}

func TestLogWarningsLevels(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	LogWarnings(logger, "u1", models.Report{
		Warnings: []models.Warning{
			{Type: "Stable", Severity: models.SeverityLow, Message: "ok"},
			{Type: "Overtrading", Severity: models.SeverityHigh, Message: "slow down"},
		},
		Status: models.StatusStop,
	})

	// The low-severity notice is below the info threshold.
	assert.NotContains(t, buf.String(), `"message":"ok"`)
	assert.Contains(t, buf.String(), `"message":"slow down"`)
	assert.Contains(t, buf.String(), `"status":"STOP TRADING"`)
}

func TestNewLoggerWithFile(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	cfg := DefaultLogConfig()
	cfg.Console = false
	cfg.FilePath = filepath.Join(t.TempDir(), "logs", "tiltguard.log")

	logger := NewLoggerWithConfig(cfg)
	logger.Info().Msg("written")

	assert.FileExists(t, cfg.FilePath)
}
