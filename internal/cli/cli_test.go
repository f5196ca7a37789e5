package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiltguard/internal/config"
	"tiltguard/internal/models"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	return cfg
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd(cfg, zerolog.Nop())
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func createTestUser(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()

	out, err := run(t, cfg, "user", "create", "--username", name, "--email", name+"@example.com", "--json")
	require.NoError(t, err, out)

	var user models.User
	require.NoError(t, json.Unmarshal([]byte(out), &user))
	require.NotEmpty(t, user.ID)
	return user.ID
}

func TestVersion(t *testing.T) {
	out, err := run(t, newTestConfig(t), "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "`+Version+`"`)
}

func TestConfigCommands(t *testing.T) {
	cfg := newTestConfig(t)

	out, err := run(t, cfg, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = run(t, cfg, "config", "path")
	require.NoError(t, err)
	assert.Equal(t, cfg.Dir, strings.TrimSpace(out))

	out, err = run(t, cfg, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Behavior Thresholds")

	// Config commands do not touch the database.
	assert.NoFileExists(t, cfg.DBPath())
}

func TestUserCommands(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	out, err := run(t, cfg, "user", "list", "--json")
	require.NoError(t, err)
	var users []models.User
	require.NoError(t, json.Unmarshal([]byte(out), &users))
	require.Len(t, users, 1)
	assert.Equal(t, cfg.User.DefaultPlannedDailyLimit, users[0].PlannedDailyLimit)

	out, err = run(t, cfg, "user", "set-limit", id, "5")
	require.NoError(t, err, out)

	out, err = run(t, cfg, "user", "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Daily Limit: 5 trades")

	_, err = run(t, cfg, "user", "show", "missing")
	assert.Equal(t, 4, ExitCode(err))

	_, err = run(t, cfg, "user", "create", "--username", "x", "--email", "bad")
	assert.Equal(t, 3, ExitCode(err))
}

func TestTradeAndMetricsCommands(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	out, err := run(t, cfg, "trade", "add", id,
		"--instrument", "xauusd", "--risk", "1", "--pnl", "120",
		"--entry", "2026-03-10T09:00:00Z", "--exit", "2026-03-10T09:45:00Z")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Recorded long XAUUSD")

	out, err = run(t, cfg, "trade", "add", id,
		"--instrument", "EURUSD", "--direction", "sell", "--risk", "3", "--pnl", "-80", "--broke-plan",
		"--entry", "2026-03-10T10:00:00Z", "--exit", "2026-03-10T10:20:00Z")
	require.NoError(t, err, out)

	out, err = run(t, cfg, "metrics", "show", id, "--at", "2026-03-10T16:00:00Z", "--json")
	require.NoError(t, err, out)

	var report models.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 55, report.Metrics.DisciplineScore)
	assert.Equal(t, 0.67, report.Metrics.OvertradingIndex)
	assert.Equal(t, models.StatusStop, report.Status)

	out, err = run(t, cfg, "metrics", "show", id, "--at", "2026-03-10T16:00:00Z")
	require.NoError(t, err)
	assert.Contains(t, out, "STOP TRADING")
	assert.Contains(t, out, "Behavioral Report")

	out, err = run(t, cfg, "trade", "list", id, "--json")
	require.NoError(t, err)
	var trades []models.TradeRecord
	require.NoError(t, json.Unmarshal([]byte(out), &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, "EURUSD", trades[0].Instrument)
	assert.Equal(t, models.DirectionShort, trades[0].Direction)

	out, err = run(t, cfg, "metrics", "all", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, id)

	_, err = run(t, cfg, "trade", "delete", trades[0].ID)
	require.NoError(t, err)

	_, err = run(t, cfg, "trade", "delete", trades[0].ID)
	assert.Equal(t, 4, ExitCode(err))
}

func TestTradeAddRejectsInvalid(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	_, err := run(t, cfg, "trade", "add", id, "--instrument", "XAUUSD", "--risk", "0")
	require.Error(t, err)
	assert.Equal(t, 3, ExitCode(err))

	var buf bytes.Buffer
	PrintError(&buf, err)
	assert.Contains(t, buf.String(), "riskPercentage")
}

func TestTradeImport(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	path := filepath.Join(t.TempDir(), "history.csv")
	csv := `instrument,direction,risk_percentage,pnl,followed_plan,entry_time,exit_time,mood
XAUUSD,long,1,50,true,2026-03-09T09:00:00Z,2026-03-09T10:00:00Z,
EURUSD,short,1.5,-20,false,2026-03-09T11:00:00Z,2026-03-09T11:30:00Z,angry
`
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	out, err := run(t, cfg, "trade", "import", id, path, "--json")
	require.NoError(t, err, out)
	assert.Contains(t, out, `"imported": 2`)

	out, err = run(t, cfg, "trade", "list", id, "--json")
	require.NoError(t, err)
	var trades []models.TradeRecord
	require.NoError(t, json.Unmarshal([]byte(out), &trades))
	require.Len(t, trades, 2)
	assert.Equal(t, models.ResultLoss, trades[0].Result)
	assert.Equal(t, models.MoodAngry, trades[0].Mood)
}

func TestMetricsCheckBlocksAtLimit(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	_, err := run(t, cfg, "user", "set-limit", id, "1")
	require.NoError(t, err)

	_, err = run(t, cfg, "trade", "add", id, "--instrument", "XAUUSD", "--risk", "1", "--pnl", "10", "--hold", "1m")
	require.NoError(t, err)

	out, err := run(t, cfg, "metrics", "check", id)
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	assert.Contains(t, out, "daily trade limit reached")
}

func TestJournalCommands(t *testing.T) {
	cfg := newTestConfig(t)
	id := createTestUser(t, cfg, "sam")

	out, err := run(t, cfg, "journal", "add", id, "--state", "calm", "--confidence", "8", "--notes", "patient", "--json")
	require.NoError(t, err, out)

	var entry models.JournalEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, models.EmotionalState("CALM"), entry.EmotionalState)
	assert.Equal(t, models.SessionType("POST-MARKET"), entry.SessionType)

	out, err = run(t, cfg, "journal", "list", id)
	require.NoError(t, err)
	assert.Contains(t, out, "patient")

	_, err = run(t, cfg, "journal", "add", id, "--state", "calm", "--confidence", "11")
	assert.Equal(t, 3, ExitCode(err))
}

func TestParseTrades(t *testing.T) {
	rows := `[{"instrument":"btc-usd","direction":"buy","riskPercentage":0.5,"pnl":0,"followedPlan":true,
"entryTime":"2026-03-09T09:00:00Z","exitTime":"2026-03-09T09:05:00Z","result":"breakeven"}]`

	trades, err := ParseTrades(strings.NewReader(rows), "json")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, "BTC-USD", trades[0].Instrument)
	assert.Equal(t, models.DirectionLong, trades[0].Direction)
	assert.Equal(t, models.ResultBreakeven, trades[0].Result)

	_, err = ParseTrades(strings.NewReader(rows), "xlsx")
	assert.Error(t, err)

	bad := `[{"instrument":"X","direction":"long","entryTime":"yesterday","exitTime":"2026-03-09T09:05:00Z"}]`
	_, err = ParseTrades(strings.NewReader(bad), "json")
	assert.ErrorContains(t, err, "row 1: entry_time")

	bad = `[{"instrument":"X","direction":"up","entryTime":"2026-03-09T09:00:00Z","exitTime":"2026-03-09T09:05:00Z"}]`
	_, err = ParseTrades(strings.NewReader(bad), "json")
	assert.ErrorContains(t, err, "direction")
}
