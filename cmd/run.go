package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/bootstrap/logging"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the fallout workflow for one order",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		orderID, _ := cmd.Flags().GetString("order")
		ctx := logging.WithAttrs(cmd.Context(), slog.String("order_id", orderID))

		outcome, err := svc.RunOrder(ctx, orderID)
		if err != nil {
			return errs.Wrapf(err, "run order %s", orderID)
		}

		if _, err := fmt.Fprintf(
			cmd.OutOrStdout(),
			"order=%s outcome=%s category=%s handler=%s attempts=%d entries=%d\n",
			outcome.OrderID,
			outcome.Kind,
			outcome.Category,
			orDash(outcome.Handler),
			outcome.Attempts,
			outcome.Entries,
		); err != nil {
			return errs.Wrap(err, "write run output")
		}
		if outcome.Reason != "" {
			if _, err := fmt.Fprintf(cmd.OutOrStdout(), "reason: %s\n", outcome.Reason); err != nil {
				return errs.Wrap(err, "write run output")
			}
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("order", "", "Order id, for example ORD-001")
	_ = runCmd.MarkFlagRequired("order")
}
