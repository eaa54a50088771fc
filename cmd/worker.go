package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Worker runtime commands",
}

var workerRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for failed orders and run their workflows",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *fallout.Service) error {
		once, _ := cmd.Flags().GetBool("once")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		if pollInterval <= 0 {
			pollInterval = app.Config.Workflow.PollInterval
		}

		if once {
			summary, err := svc.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			return writeSweepSummary(cmd, summary)
		}

		err := svc.RunWorker(cmd.Context(), fallout.WorkerInput{PollInterval: pollInterval})
		if stoppedByContext(cmd, err) {
			return nil
		}
		return err
	}),
}

// stoppedByContext reports whether err is the command context ending, which
// is how long-running loops exit on SIGINT.
func stoppedByContext(cmd *cobra.Command, err error) bool {
	ctxErr := cmd.Context().Err()
	return err != nil && ctxErr != nil && errors.Is(err, ctxErr)
}

func writeSweepSummary(cmd *cobra.Command, summary fallout.SweepSummary) error {
	_, err := fmt.Fprintf(
		cmd.OutOrStdout(),
		"sweep candidates=%d resolved=%d escalated=%d skipped=%d conflicts=%d aborted=%d errors=%d\n",
		summary.Candidates,
		summary.Resolved,
		summary.Escalated,
		summary.Skipped,
		summary.Conflicts,
		summary.Aborted,
		summary.Errors,
	)
	return errs.Wrap(err, "write sweep summary")
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.AddCommand(workerRunCmd)
	workerRunCmd.Flags().Bool("once", false, "Run a single sweep and exit")
	workerRunCmd.Flags().Duration("poll-interval", 0, "Delay between sweeps (default: workflow.poll_interval)")
}

