package cmd

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show order counts by status and fallout category",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		stats, err := svc.Stats(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if _, err := fmt.Fprintf(out, "%s\ntotal=%d escalated=%d\n\n", headingStyle.Render("Order statistics"), stats.Total, stats.Escalated); err != nil {
			return errs.Wrap(err, "write stats output")
		}

		byStatus := newTable(out, "STATUS", "COUNT")
		for _, item := range stats.ByStatus {
			byStatus.AppendRow(table.Row{statusBadge(item.Status, false), item.Count})
		}
		byStatus.Render()

		if len(stats.ByCategory) > 0 {
			byCategory := newTable(out, "CATEGORY", "COUNT")
			for _, item := range stats.ByCategory {
				byCategory.AppendRow(table.Row{item.Category, item.Count})
			}
			byCategory.Render()
		}

		if last := stats.LastSweep; last != nil {
			if _, err := fmt.Fprintf(out, "\nlast sweep %s: ", formatTime(last.StartedAt)); err != nil {
				return errs.Wrap(err, "write stats output")
			}
			return writeSweepSummary(cmd, *last)
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
