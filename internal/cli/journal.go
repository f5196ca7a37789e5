package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tiltguard/internal/validation"
)

// addJournalCommands adds reflective journal commands.
func addJournalCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Reflective trading journal",
		Long:  "Record how you feel around a session. Each entry snapshots your current discipline and revenge risk.",
	}

	cmd.AddCommand(newJournalAddCmd(app))
	cmd.AddCommand(newJournalListCmd(app))

	rootCmd.AddCommand(cmd)
}

func newJournalAddCmd(app *App) *cobra.Command {
	var in validation.JournalInput

	cmd := &cobra.Command{
		Use:   "add <user-id>",
		Short: "Add a journal entry",
		Example: `  tiltguard journal add 01J0USER --state FRUSTRATED --confidence 4 --notes "chased the open"
  tiltguard journal add 01J0USER --state CALM --confidence 8 --session PRE-MARKET`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			in.UserID = args[0]
			in.EmotionalState = strings.ToUpper(in.EmotionalState)
			in.SessionType = strings.ToUpper(in.SessionType)

			entry, err := app.Service.AddJournalEntry(ctx, &in)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(entry)
			}
			output.Success("✓ Journal entry saved")
			output.Printf("  Discipline at entry:   %d\n", entry.DisciplineScoreAtEntry)
			output.Printf("  Revenge risk at entry: %d\n", entry.RevengeRiskAtEntry)
			return nil
		},
	}

	cmd.Flags().StringVar(&in.EmotionalState, "state", "", "CALM, CONFIDENT, ANXIOUS, FRUSTRATED, IMPULSIVE or FOCUSED")
	cmd.Flags().IntVar(&in.ConfidenceLevel, "confidence", 5, "confidence from 1 to 10")
	cmd.Flags().StringVar(&in.SessionType, "session", "", "PRE-MARKET, IN-TRADE, POST-MARKET or BREAK (default POST-MARKET)")
	cmd.Flags().StringVar(&in.Notes, "notes", "", "free-form notes")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list <user-id>",
		Short: "List journal entries, most recent first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			entries, err := app.Service.ListJournal(ctx, args[0], limit)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Info("No journal entries.")
				return nil
			}

			table := NewTable(output, "Time", "Session", "State", "Confidence", "Discipline", "Revenge", "Notes")
			for _, e := range entries {
				table.AddRow(
					FormatDateTime(e.Timestamp),
					string(e.SessionType),
					string(e.EmotionalState),
					FormatConfidence(e.ConfidenceLevel),
					ScoreBar(e.DisciplineScoreAtEntry, 10),
					ScoreBar(e.RevengeRiskAtEntry, 10),
					TruncateString(e.Notes, 40),
				)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum entries to show (0 = all)")
	return cmd
}
