// Command tiltguard scores trader behavior from a trade log.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tiltguard/internal/cli"
	"tiltguard/internal/config"
	"tiltguard/internal/logging"
)

func main() {
	// A missing .env is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TILTGUARD_CONFIG_DIR"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLoggerWithConfig(cfg.LogConfig())

	cmd := cli.NewRootCmd(cfg, logger)
	if err := cmd.Execute(); err != nil {
		cli.PrintError(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}
