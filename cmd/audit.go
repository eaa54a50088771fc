package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Export and relay the fallout audit log",
}

var auditExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export audit entries as json, jsonl or xlsx",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		rawFormat, _ := cmd.Flags().GetString("format")
		orderID, _ := cmd.Flags().GetString("order")
		outPath, _ := cmd.Flags().GetString("out")

		format, err := fallout.ParseExportFormat(rawFormat)
		if err != nil {
			return err
		}
		if format == fallout.ExportXLSX && outPath == "" {
			return errors.New("--out is required for xlsx export")
		}

		export := func(w io.Writer) (int, error) {
			return svc.ExportAudit(cmd.Context(), w, fallout.ExportAuditInput{Format: format, OrderID: orderID})
		}
		if outPath == "" {
			_, err := export(cmd.OutOrStdout())
			return err
		}

		f, err := os.Create(outPath)
		if err != nil {
			return errs.Wrapf(err, "create export file %q", outPath)
		}
		n, err := writeAndClose(f, export)
		if err != nil {
			return errs.Wrapf(err, "export to %q", outPath)
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "exported %d audit entries to %s\n", n, outPath); err != nil {
			return errs.Wrap(err, "write export output")
		}
		return nil
	}),
}

// writeAndClose runs write against wc and always closes it. A close error
// is returned when write itself succeeded.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) (int, error)) (int, error) {
	n, err := write(wc)
	if closeErr := wc.Close(); err == nil && closeErr != nil {
		return n, errs.Wrap(closeErr, "close export file")
	}
	return n, err
}

var auditRelayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Forward audit entries to the configured broker",
	RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, svc *fallout.Service) error {
		once, _ := cmd.Flags().GetBool("once")
		batchSize, _ := cmd.Flags().GetInt("batch-size")
		pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
		if batchSize <= 0 {
			batchSize = app.Config.Audit.BatchSize
		}
		if pollInterval <= 0 {
			pollInterval = app.Config.Audit.PollInterval
		}

		total, err := svc.RunAuditRelay(cmd.Context(), fallout.RelayLoopInput{
			BatchSize:    batchSize,
			Once:         once,
			PollInterval: pollInterval,
		})
		if err != nil && !stoppedByContext(cmd, err) {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "relayed %d audit entries via %s\n", total, app.Config.Audit.Publisher); err != nil {
			return errs.Wrap(err, "write relay output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditExportCmd)
	auditCmd.AddCommand(auditRelayCmd)

	auditExportCmd.Flags().String("format", "json", "Output format (json|jsonl|xlsx)")
	auditExportCmd.Flags().String("order", "", "Only export entries of this order")
	auditExportCmd.Flags().String("out", "", "Output file (default: stdout; required for xlsx)")

	auditRelayCmd.Flags().Bool("once", false, "Drain pending entries and exit")
	auditRelayCmd.Flags().Int("batch-size", 0, "Entries per publish call (default: audit.batch_size)")
	auditRelayCmd.Flags().Duration("poll-interval", 0, "Delay between polls (default: audit.poll_interval)")
}
