package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tiltguard/internal/validation"
	"tiltguard/pkg/utils"
)

// addTradeCommands adds trade log commands.
func addTradeCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "trade",
		Short: "Trade log management",
		Long:  "Record, review and import the trades that feed the behavioral metrics.",
	}

	cmd.AddCommand(newTradeAddCmd(app))
	cmd.AddCommand(newTradeListCmd(app))
	cmd.AddCommand(newTradeDeleteCmd(app))
	cmd.AddCommand(newTradeImportCmd(app))

	rootCmd.AddCommand(cmd)
}

func newTradeAddCmd(app *App) *cobra.Command {
	var (
		in    validation.TradeInput
		entry string
		exit  string
		hold  time.Duration
		broke bool
	)

	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Record a closed trade",
		Long: `Record a closed trade and show the updated status.

Entry time defaults to now minus the hold, exit time to entry plus the hold.`,
		Example: `  tiltguard trade add 01J0USER --instrument XAUUSD --direction long --risk 1 --pnl 120
  tiltguard trade add 01J0USER --instrument EURUSD --direction short --risk 2.5 --pnl -80 --broke-plan --mood angry`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			now := app.Service.Now()
			in.UserID = args[0]
			in.FollowedPlan = !broke

			var err error
			switch {
			case entry != "":
				if in.EntryTime, err = time.Parse(time.RFC3339, entry); err != nil {
					return fmt.Errorf("invalid --entry: %w", err)
				}
			default:
				in.EntryTime = now.Add(-hold)
			}
			switch {
			case exit != "":
				if in.ExitTime, err = time.Parse(time.RFC3339, exit); err != nil {
					return fmt.Errorf("invalid --exit: %w", err)
				}
			default:
				in.ExitTime = in.EntryTime.Add(hold)
			}

			trade, err := app.Service.RecordTrade(ctx, &in)
			if err != nil {
				return err
			}

			report, err := app.Service.Report(ctx, trade.UserID)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"trade":  trade,
					"report": report,
				})
			}

			output.Success("✓ Recorded %s %s %s (%s)", trade.Direction, trade.Instrument,
				output.FormatPnL(trade.PnL), trade.ID)
			output.Printf("  Status: %s\n", output.Status(report.Status))
			return nil
		},
	}

	cmd.Flags().StringVar(&in.Instrument, "instrument", "", "instrument, e.g. XAUUSD or EUR/USD")
	cmd.Flags().StringVar(&in.Direction, "direction", "long", "long or short (buy/sell accepted)")
	cmd.Flags().Float64Var(&in.RiskPercentage, "risk", 0, "risk as percent of account")
	cmd.Flags().Float64Var(&in.PnL, "pnl", 0, "realized profit or loss")
	cmd.Flags().StringVar(&in.Result, "result", "", "win, loss or breakeven (default from pnl)")
	cmd.Flags().StringVar(&in.Mood, "mood", "", "Neutral, Anxious, Greedy, Angry or Euphoric")
	cmd.Flags().BoolVar(&broke, "broke-plan", false, "the trade did not follow the plan")
	cmd.Flags().StringVar(&entry, "entry", "", "entry time (RFC3339)")
	cmd.Flags().StringVar(&exit, "exit", "", "exit time (RFC3339)")
	cmd.Flags().DurationVar(&hold, "hold", 30*time.Minute, "holding period when times are omitted")
	_ = cmd.MarkFlagRequired("instrument")
	_ = cmd.MarkFlagRequired("risk")

	return cmd
}

func newTradeListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List a trader's trades, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			trades, err := app.Service.ListTrades(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Info("No trades recorded.")
				return nil
			}

			var total float64
			table := NewTable(output, "Entry", "Instrument", "Dir", "Risk", "Hold", "Result", "P&L", "Plan", "ID")
			for _, t := range trades {
				total += t.PnL
				plan := output.Green("✓")
				if !t.FollowedPlan {
					plan = output.Red("✗")
				}
				table.AddRow(
					FormatDateTime(t.EntryTime),
					t.Instrument,
					string(t.Direction),
					FormatRisk(t.RiskPercentage),
					utils.FormatHold(t.HoldDuration()),
					output.Result(t.Result),
					output.FormatPnL(t.PnL),
					plan,
					t.ID,
				)
			}
			table.Render()

			output.Println()
			output.Printf("  %d trades, net %s\n", len(trades), output.FormatPnL(total))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum trades to show (0 = all)")
	return cmd
}

func newTradeDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <trade-id>",
		Short: "Delete a trade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if err := app.Service.DeleteTrade(ctx, args[0]); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]string{"deleted": args[0]})
			}
			output.Success("✓ Deleted trade %s", args[0])
			return nil
		},
	}
}

func newTradeImportCmd(app *App) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "import <user-id> <file>",
		Short: "Import trades from a CSV or JSON file",
		Long: `Import a trade history. Every row is validated before anything is stored.

CSV files need a header row with the columns:
  instrument,direction,risk_percentage,pnl,followed_plan,entry_time,exit_time
and may add result and mood. JSON files hold an array of trade objects.
Times are RFC3339.`,
		Example: `  tiltguard trade import 01J0USER history.csv`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			if format == "" {
				format = strings.TrimPrefix(strings.ToLower(filepath.Ext(args[1])), ".")
			}

			trades, err := ParseTrades(f, format)
			if err != nil {
				return err
			}

			n, err := app.Service.ImportTrades(ctx, args[0], trades)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]int{"imported": n})
			}
			output.Success("✓ Imported %d trades", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "csv or json (default from file extension)")
	return cmd
}
