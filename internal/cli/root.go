// Package cli provides the command-line interface for tiltguard.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tiltguard/internal/behavior"
	"tiltguard/internal/config"
	"tiltguard/internal/logging"
	"tiltguard/internal/notify"
	"tiltguard/internal/performance"
	"tiltguard/internal/service"
	"tiltguard/internal/store"
	"tiltguard/pkg/telemetry"
	"tiltguard/pkg/utils"
)

// Version information
var (
	Version   = "0.1.0"
	BuildDate = "2026-01-01"
)

// skipStore marks commands that run without opening the database.
const skipStore = "skip-store"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Service  *service.Service
	Notifier notify.Notifier
	Recorder *telemetry.Recorder
	Pool     *performance.WorkerPool
}

// NewRootCmd creates the root command for the CLI. Dependencies are built in
// the persistent pre-run so that --config is honoured.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "tiltguard",
		Short: "tiltguard - behavioral risk scoring for traders",
		Long: `tiltguard turns a trader's log into behavioral metrics and warnings.

It scores plan discipline, overtrading, the disposition effect, house-money
risk taking, loss reactivity and revenge-trading risk, and tells you when to
stop trading for the day.

Use 'tiltguard <command> --help' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if dir, _ := cmd.Flags().GetString("config"); dir != "" && dir != app.Config.Dir {
				loaded, err := config.Load(dir)
				if err != nil {
					return err
				}
				app.Config = loaded
			}

			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}

			if cmd.Annotations[skipStore] == "true" {
				return nil
			}
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/tiltguard)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	addCoreCommands(rootCmd, app)
	addUserCommands(rootCmd, app)
	addTradeCommands(rootCmd, app)
	addMetricsCommands(rootCmd, app)
	addJournalCommands(rootCmd, app)
	addServeCommand(rootCmd, app)

	return rootCmd
}

// init opens the store and wires the service.
func (a *App) init(cmd *cobra.Command) error {
	if a.Service != nil {
		return nil
	}

	dataStore, err := store.NewSQLiteStore(a.Config.DBPath())
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	a.Store = dataStore
	a.Logger.Debug().Str("path", a.Config.DBPath()).Msg("SQLite store initialized")

	a.Notifier = notify.New(&a.Config.Notifications, cmd.ErrOrStderr())
	a.Recorder = telemetry.New()
	a.Pool = performance.NewWorkerPool(a.Config.Workers.Count)
	a.Pool.Start()

	a.Service = service.New(a.Store, behavior.NewEngine(a.Config.Thresholds()),
		service.WithNotifier(a.Notifier),
		service.WithRecorder(a.Recorder),
		service.WithPool(a.Pool),
		service.WithLogger(a.Logger),
		service.WithDefaultDailyLimit(a.Config.User.DefaultPlannedDailyLimit),
	)
	return nil
}

// Close releases the pool and the store.
func (a *App) Close() error {
	if a.Pool != nil {
		a.Pool.Stop()
		a.Pool = nil
	}
	a.Service = nil
	if a.Store != nil {
		err := a.Store.Close()
		a.Store = nil
		return err
	}
	return nil
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			}
			output.Printf("tiltguard v%s\n", Version)
			output.Dim("Build date: %s", BuildDate)
			return nil
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "config",
		Short:       "Configuration management",
		Long:        "View and validate the tiltguard configuration.",
		Annotations: map[string]string{skipStore: "true"},
	}

	cmd.AddCommand(&cobra.Command{
		Use:         "show",
		Short:       "Show current configuration",
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "path",
		Short:       "Show configuration directory path",
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(map[string]string{
					"path":     app.Config.Dir,
					"database": app.Config.DBPath(),
				})
			}
			output.Println(app.Config.Dir)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration files",
		Annotations: map[string]string{skipStore: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]bool{"valid": true})
			}
			output.Success("✓ Configuration is valid")
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	b := cfg.Behavior
	output.Bold("Behavior Thresholds")
	output.Printf("  Max Risk %%:           %.2f%%\n", b.MaxRiskPercent)
	output.Printf("  Plan Penalties:       -%d / -%d / -%d\n", b.BrokenPlanPenalty, b.ExcessRiskPenalty, b.BrokenPlanLossPenalty)
	output.Printf("  Min Discipline:       %d\n", b.MinDisciplineScore)
	output.Printf("  Max Overtrading:      %s\n", utils.FormatRatio(b.MaxOvertradingIndex))
	output.Printf("  Max Disposition:      %s\n", utils.FormatRatio(b.MaxDispositionRatio))
	output.Printf("  Max House Money:      %s\n", utils.FormatRatio(b.MaxHouseMoneyFactor))
	output.Printf("  Re-entry Window:      %s\n", b.ReentryWindow)
	output.Printf("  Rapid-fire Window:    %s\n", b.RapidFireWindow)
	output.Printf("  Revenge Window:       %d trades\n", b.RevengeWindow)
	output.Println()

	output.Bold("User Defaults")
	output.Printf("  Daily Trade Limit:    %d\n", cfg.User.DefaultPlannedDailyLimit)
	output.Println()

	output.Bold("Storage")
	output.Printf("  Database:             %s\n", cfg.DBPath())
	output.Println()

	output.Bold("Server")
	output.Printf("  Listen:               %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	output.Printf("  Rate Limit:           %.0f req/s (burst %d)\n", cfg.Server.RateLimit, cfg.Server.RateBurst)
	output.Println()

	output.Bold("Notifications")
	output.Printf("  Enabled:              %v\n", cfg.Notifications.Enabled)
	output.Printf("  Level:                %s\n", cfg.Notifications.Level)
	output.Printf("  Terminal:             %v\n", cfg.Notifications.Terminal.Enabled)
	output.Printf("  Webhook:              %v\n", cfg.Notifications.Webhook.Enabled)
}
