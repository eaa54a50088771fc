package cmd

import (
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/bootstrap/logging"
	"fallout/internal/errs"
	"fallout/internal/usecase/console"
	"fallout/internal/usecase/fallout"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Start the interactive fallout operations console",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		ctx := logging.WithAttrs(cmd.Context(), slog.String("command", cmd.CommandPath()))

		actor, _ := cmd.Flags().GetString("actor")
		status, _ := cmd.Flags().GetString("status")
		escalated, _ := cmd.Flags().GetBool("escalated")
		limit, _ := cmd.Flags().GetInt("limit")
		refreshInterval, _ := cmd.Flags().GetDuration("refresh-interval")

		model := console.NewModel(ctx, svc, console.Options{
			Actor:           actor,
			StatusFilter:    status,
			EscalatedOnly:   escalated,
			Limit:           limit,
			RefreshInterval: refreshInterval,
		})

		program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
		if _, err := program.Run(); err != nil {
			return errs.Wrap(err, "run console")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(consoleCmd)
	consoleCmd.Flags().String("actor", "console", "Reviewer name recorded on human resolutions")
	consoleCmd.Flags().String("status", "Failed", "Status filter (Pending|Completed|Failed, empty for all)")
	consoleCmd.Flags().Bool("escalated", false, "Only show orders awaiting human review")
	consoleCmd.Flags().Int("limit", 50, "Maximum number of orders shown")
	consoleCmd.Flags().Duration("refresh-interval", 5*time.Second, "Auto refresh interval")
}
