package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tiltguard/internal/models"
	"tiltguard/internal/validation"
)

// addUserCommands adds user profile commands.
func addUserCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Trader profile management",
		Long:  "Create traders and manage their trading plan.",
	}

	cmd.AddCommand(newUserCreateCmd(app))
	cmd.AddCommand(newUserShowCmd(app))
	cmd.AddCommand(newUserListCmd(app))
	cmd.AddCommand(newUserSetLimitCmd(app))

	rootCmd.AddCommand(cmd)
}

func newUserCreateCmd(app *App) *cobra.Command {
	var (
		username   string
		email      string
		experience string
		limit      int
		rules      []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a trader profile",
		Example: `  tiltguard user create --username sam --email sam@example.com
  tiltguard user create --username kim --email kim@example.com --limit 5 --experience ADVANCED`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.Service.CreateUser(ctx, &validation.UserInput{
				Username:          username,
				Email:             email,
				ExperienceLevel:   strings.ToUpper(experience),
				PlannedDailyLimit: limit,
				TradingPlanRules:  rules,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Success("✓ Created user %s", user.Username)
			printUser(output, user)
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "username")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&experience, "experience", "", "BEGINNER, INTERMEDIATE or ADVANCED")
	cmd.Flags().IntVar(&limit, "limit", 0, "planned trades per day (default from config)")
	cmd.Flags().StringArrayVar(&rules, "rule", nil, "trading plan rule (repeatable)")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newUserShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show <user-id>",
		Short: "Show a trader profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			user, err := app.Service.GetUser(ctx, args[0])
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			printUser(output, user)
			return nil
		},
	}
}

func newUserListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trader profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			users, err := app.Service.ListUsers(ctx)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(users)
			}
			if len(users) == 0 {
				output.Info("No users yet.")
				output.Dim("Tip: create one with 'tiltguard user create'.")
				return nil
			}

			table := NewTable(output, "ID", "Username", "Email", "Level", "Limit", "Created")
			for _, u := range users {
				table.AddRow(
					u.ID,
					u.Username,
					u.Email,
					string(u.ExperienceLevel),
					strconv.Itoa(u.PlannedDailyLimit),
					FormatDate(u.CreatedAt),
				)
			}
			table.Render()
			return nil
		},
	}
}

func newUserSetLimitCmd(app *App) *cobra.Command {
	var rules []string

	cmd := &cobra.Command{
		Use:     "set-limit <user-id> <trades-per-day>",
		Short:   "Update a trader's daily limit and plan rules",
		Example: `  tiltguard user set-limit 01J0USER 4 --rule "Only A+ setups"`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			limit, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid trades-per-day %q: %w", args[1], err)
			}

			user, err := app.Service.UpdateStrategy(ctx, args[0], &validation.StrategyInput{
				PlannedDailyLimit: limit,
				TradingPlanRules:  rules,
			})
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(user)
			}
			output.Success("✓ Daily limit for %s set to %d", user.Username, user.PlannedDailyLimit)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&rules, "rule", nil, "replace the trading plan rules (repeatable)")
	return cmd
}

func printUser(output *Output, u *models.User) {
	output.Bold("%s", u.Username)
	output.Printf("  ID:          %s\n", u.ID)
	output.Printf("  Email:       %s\n", u.Email)
	output.Printf("  Experience:  %s\n", u.ExperienceLevel)
	output.Printf("  Daily Limit: %d trades\n", u.PlannedDailyLimit)
	output.Printf("  Since:       %s\n", FormatDate(u.CreatedAt))
	if len(u.TradingPlanRules) > 0 {
		output.Println()
		output.Bold("Trading Plan")
		for i, r := range u.TradingPlanRules {
			output.Printf("  %d. %s\n", i+1, r)
		}
	}
}
