package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"fallout/internal/bootstrap"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Inspect, import and resolve orders",
}

var orderImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import orders and attachments from a YAML file",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		path, _ := cmd.Flags().GetString("file")
		f, err := os.Open(path)
		if err != nil {
			return errs.Wrapf(err, "open import file %q", path)
		}
		defer func() { _ = f.Close() }()

		summary, err := svc.ImportOrders(cmd.Context(), f)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "imported orders: created=%d skipped=%d\n", len(summary.Created), len(summary.Skipped)); err != nil {
			return errs.Wrap(err, "write import output")
		}
		return nil
	}),
}

var orderListCmd = &cobra.Command{
	Use:   "list",
	Short: "List orders",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		status, _ := cmd.Flags().GetString("status")
		category, _ := cmd.Flags().GetString("category")
		escalated, _ := cmd.Flags().GetBool("escalated")
		limit, _ := cmd.Flags().GetInt("limit")

		items, err := svc.ListOrders(cmd.Context(), fallout.ListOrdersInput{
			Status:        status,
			Category:      category,
			EscalatedOnly: escalated,
			Limit:         limit,
		})
		if err != nil {
			return err
		}
		if len(items) == 0 {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "no orders")
			return errs.Wrap(err, "write order list output")
		}

		t := newTable(cmd.OutOrStdout(), "ORDER", "CUSTOMER", "SERVICE", "STATUS", "CATEGORY", "RESOLVED BY", "UPDATED")
		for _, item := range items {
			t.AppendRow(table.Row{
				item.OrderID,
				item.CustomerID,
				item.ServiceType,
				statusBadge(item.Status, item.Escalated),
				item.Category,
				orDash(item.ResolvedBy),
				formatTime(item.UpdatedAt),
			})
		}
		t.Render()
		return nil
	}),
}

var orderShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show one order with attachments and audit trail",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		orderID, _ := cmd.Flags().GetString("order")
		detail, err := svc.GetOrderDetail(cmd.Context(), orderID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		order := detail.Order
		lines := []string{
			headingStyle.Render("Order " + order.OrderID),
			"Status: " + statusBadge(string(order.Status), order.IsEscalated()),
			"Customer: " + order.CustomerID,
			"Service: " + string(order.ServiceType),
			"Category: " + order.Category.String(),
			"ResolvedBy: " + orDash(order.ResolvedBy),
			"ResolutionTime: " + formatTimePtr(order.ResolutionTime),
			"EscalatedAt: " + formatTimePtr(order.EscalatedAt),
			"CreatedAt: " + formatTime(order.CreatedAt),
			"UpdatedAt: " + formatTime(order.UpdatedAt),
		}
		if detail.ESim != nil {
			lines = append(lines, fmt.Sprintf("eSIM: %s status=%s profile=%s activation_code=%s",
				detail.ESim.AttachmentID, detail.ESim.Status, orDash(detail.ESim.ProfileStatus), orDash(detail.ESim.ActivationCode)))
		}
		if detail.Switch != nil {
			lines = append(lines, fmt.Sprintf("Switch: %s %s port=%s config_status=%s",
				detail.Switch.AttachmentID, detail.Switch.SwitchName, detail.Switch.PortID, detail.Switch.Status))
		}
		if _, err := fmt.Fprintln(out, strings.Join(lines, "\n")); err != nil {
			return errs.Wrap(err, "write order detail")
		}

		if len(detail.Logs) == 0 {
			_, err := fmt.Fprintln(out, "\nno audit entries")
			return errs.Wrap(err, "write order detail")
		}
		if _, err := fmt.Fprintln(out); err != nil {
			return errs.Wrap(err, "write order detail")
		}
		t := newTable(out, "TIMESTAMP", "EVENT", "LOG ID", "DESCRIPTION")
		for _, entry := range detail.Logs {
			t.AppendRow(table.Row{formatTime(entry.Timestamp), string(entry.EventType), entry.LogID, entry.Description})
		}
		t.Render()
		return nil
	}),
}

var orderResolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Close an escalated order after human review",
	RunE: withApp(func(cmd *cobra.Command, _ *bootstrap.App, svc *fallout.Service) error {
		orderID, _ := cmd.Flags().GetString("order")
		actor, _ := cmd.Flags().GetString("actor")
		note, _ := cmd.Flags().GetString("note")

		entry, err := svc.ResolveByHuman(cmd.Context(), fallout.ResolveByHumanInput{
			OrderID: orderID,
			Actor:   actor,
			Note:    note,
		})
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "resolved order: %s log=%s\n", orderID, entry.LogID); err != nil {
			return errs.Wrap(err, "write resolve output")
		}
		return nil
	}),
}

func init() {
	rootCmd.AddCommand(orderCmd)
	orderCmd.AddCommand(orderImportCmd)
	orderCmd.AddCommand(orderListCmd)
	orderCmd.AddCommand(orderShowCmd)
	orderCmd.AddCommand(orderResolveCmd)

	orderImportCmd.Flags().String("file", "", "YAML file with an orders list")
	_ = orderImportCmd.MarkFlagRequired("file")

	orderListCmd.Flags().String("status", "", "Filter by status (Pending|Processing|Failed|Completed|Cancelled)")
	orderListCmd.Flags().String("category", "", "Filter by fallout category")
	orderListCmd.Flags().Bool("escalated", false, "Only orders waiting for human review")
	orderListCmd.Flags().Int("limit", 0, "Maximum number of orders (0 = all)")

	orderShowCmd.Flags().String("order", "", "Order id, for example ORD-001")
	_ = orderShowCmd.MarkFlagRequired("order")

	orderResolveCmd.Flags().String("order", "", "Order id, for example ORD-001")
	orderResolveCmd.Flags().String("actor", "", "Reviewer who resolved the order")
	orderResolveCmd.Flags().String("note", "", "Resolution note")
	_ = orderResolveCmd.MarkFlagRequired("order")
	_ = orderResolveCmd.MarkFlagRequired("actor")
}
