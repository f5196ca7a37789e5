package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# tiltguard configuration

[behavior]
# Risk per trade (percent of account) above which discipline is penalised
max_risk_percent = 2.0
# Discipline penalties
broken_plan_penalty = 40
excess_risk_penalty = 30
broken_plan_loss_penalty = 20
# Warning thresholds
min_discipline_score = 70
max_overtrading_index = 1.2
max_disposition_ratio = 1.5
max_house_money_factor = 1.3
# Re-entry after a loss faster than this is flagged as high loss reactivity
reentry_window = "10m"
# Losses entered this soon after the previous trade carry double heat
rapid_fire_window = "15m"
# Number of most recent trades that feed the revenge risk score
revenge_window = 5
loss_heat = 20
rapid_fire_factor = 2
win_cooling = 10

[user]
# Daily trade limit assumed for users who have not set one
default_planned_daily_limit = 3

[store]
# SQLite database path (default: <config dir>/tiltguard.db)
path = ""

[server]
host = "127.0.0.1"
port = 8080
read_timeout = "10s"
write_timeout = "10s"
shutdown_timeout = "10s"
# Requests per second accepted by the HTTP API (0 = unlimited)
rate_limit = 50.0
rate_burst = 100

[log]
# debug, info, warn, error
level = "info"
console = true
file = true

[workers]
# Workers used when computing metrics for every user (0 = number of CPUs)
count = 0

[notifications]
# Send an alert when a trader's status turns to STOP TRADING
enabled = false
# all, alerts_only, errors_only
level = "all"

[notifications.terminal]
enabled = true
color = true
bell = true

[notifications.webhook]
enabled = false
url = ""
max_retries = 3
# Stop calling the webhook after this many failed deliveries, then retry after the cooldown
breaker_failures = 5
breaker_cooldown = "1m"
`

// writeTemplateConfig writes the default config file into configDir.
func writeTemplateConfig(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "config.toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return "", fmt.Errorf("writing config template: %w", err)
	}

	return path, nil
}
