package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"tiltguard/internal/models"
	"tiltguard/pkg/utils"
)

// addMetricsCommands adds behavioral metrics commands.
func addMetricsCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Behavioral metrics and warnings",
		Long:  "Compute a trader's behavioral metrics, warnings and trading status.",
	}

	cmd.AddCommand(newMetricsShowCmd(app))
	cmd.AddCommand(newMetricsAllCmd(app))
	cmd.AddCommand(newMetricsCheckCmd(app))

	rootCmd.AddCommand(cmd)
}

func newMetricsShowCmd(app *App) *cobra.Command {
	var at string

	cmd := &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a trader's behavioral report",
		Example: `  tiltguard metrics show 01J0USER
  tiltguard metrics show 01J0USER --at 2026-03-10T16:00:00Z --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			ref := app.Service.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				ref = parsed
			}

			report, err := app.Service.ReportAt(ctx, args[0], ref)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(report)
			}
			printReport(output, args[0], report)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "reference instant that defines today (RFC3339)")
	return cmd
}

func newMetricsAllCmd(app *App) *cobra.Command {
	var active bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Summarize every trader's status",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			reports, err := app.Service.ReportAll(ctx, active)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(reports)
			}
			if len(reports) == 0 {
				output.Info("No users to report on.")
				return nil
			}

			stopped := 0
			table := NewTable(output, "User", "Trades", "Discipline", "Overtrading", "Revenge", "Status")
			for _, r := range reports {
				if r.Error != "" {
					table.AddRow(r.Username, "-", "-", "-", "-", output.Red(r.Error))
					continue
				}
				m := r.Report.Metrics
				if r.Report.Status == models.StatusStop {
					stopped++
				}
				table.AddRow(
					r.Username,
					fmt.Sprintf("%d", m.TotalTrades),
					fmt.Sprintf("%d", m.DisciplineScore),
					utils.FormatRatio(m.OvertradingIndex),
					fmt.Sprintf("%d", m.RevengeRisk),
					output.Status(r.Report.Status),
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d traders, %d told to stop\n", len(reports), stopped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&active, "active", false, "only traders with at least one trade")
	return cmd
}

func newMetricsCheckCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "check <user-id>",
		Short: "Check whether another trade is allowed today",
		Long: `Check the daily trade budget and the behavioral status before opening a trade.

Exits with an error when the trade is not allowed, so it can gate scripts.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			check, err := app.Service.PreTradeCheck(ctx, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				if err := output.JSON(check); err != nil {
					return err
				}
			} else {
				output.Printf("  Trades today:   %d / %d\n", check.TradesToday, check.DailyLimit)
				output.Printf("  Remaining:      %d\n", check.TradesRemaining)
				output.Printf("  Status:         %s\n", output.Status(check.Status))
				output.Println()
				if check.Allowed {
					output.Success("✓ Clear to trade")
				} else {
					output.Error("✗ Do not trade: %s", check.Reason)
				}
			}

			if !check.Allowed {
				return errTradeBlocked
			}
			return nil
		},
	}
}

func printReport(output *Output, userID string, report models.Report) {
	m := report.Metrics

	output.Box("Behavioral Report: "+userID, []string{
		fmt.Sprintf("Discipline      %s", ScoreBar(m.DisciplineScore, 20)),
		fmt.Sprintf("Revenge Risk    %s", ScoreBar(m.RevengeRisk, 20)),
		fmt.Sprintf("Overtrading     %s", utils.FormatRatio(m.OvertradingIndex)),
		fmt.Sprintf("Disposition     %s", utils.FormatRatio(m.DispositionRatio)),
		fmt.Sprintf("House Money     %s", utils.FormatRatio(m.HouseMoneyFactor)),
		fmt.Sprintf("Loss Reactivity %s", m.LossReactivity),
		fmt.Sprintf("Trades          %d", m.TotalTrades),
	})
	output.Println()

	output.Bold("Warnings")
	for _, w := range report.Warnings {
		output.Printf("  [%s] %s: %s\n", output.Severity(w.Severity), w.Type, w.Message)
	}
	output.Println()
	output.Printf("  Status: %s\n", output.Status(report.Status))
}
