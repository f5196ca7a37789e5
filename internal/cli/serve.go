package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tiltguard/internal/api"
)

// addServeCommand adds the HTTP API server command.
func addServeCommand(rootCmd *cobra.Command, app *App) {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the REST API, /healthz and Prometheus /metrics until interrupted.

Risk alerts fire once per user each time their status turns to STOP TRADING.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := app.Config.Server
			if host != "" {
				cfg.Host = host
			}
			if port != 0 {
				cfg.Port = port
			}

			server := api.NewServer(
				api.NewHandler(app.Service, app.Logger),
				api.WithHost(cfg.Host),
				api.WithPort(cfg.Port),
				api.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout, cfg.ShutdownTimeout),
				api.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
				api.WithRecorder(app.Recorder),
				api.WithPool(app.Pool),
				api.WithLogger(app.Logger),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := server.Start()
			NewOutput(cmd).Info("Listening on http://%s", server.Addr())

			select {
			case err := <-errCh:
				if err != nil {
					return err
				}
			case <-ctx.Done():
				app.Logger.Info().Msg("Shutting down")
			}

			return server.Stop(context.Background())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "listen host (default from config)")
	cmd.Flags().IntVar(&port, "port", 0, "listen port (default from config)")
	rootCmd.AddCommand(cmd)
}
