package cmd

import (
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"

	domain "fallout/internal/domain/fallout"
)

var (
	badgeBase      = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	badgeCompleted = badgeBase.Foreground(lipgloss.Color("#0B3D0B")).Background(lipgloss.Color("#7BD88F"))
	badgeFailed    = badgeBase.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#D9534F"))
	badgeEscalated = badgeBase.Foreground(lipgloss.Color("#1F1300")).Background(lipgloss.Color("#F0AD4E"))
	badgeNeutral   = badgeBase.Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#6C757D"))
	headingStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
)

// statusBadge renders an order status for terminal output.
func statusBadge(status string, escalated bool) string {
	switch {
	case escalated && status == string(domain.StatusFailed):
		return badgeEscalated.Render("ESCALATED")
	case status == string(domain.StatusCompleted):
		return badgeCompleted.Render(status)
	case status == string(domain.StatusFailed):
		return badgeFailed.Render(status)
	default:
		return badgeNeutral.Render(status)
	}
}

func newTable(out io.Writer, header ...any) table.Writer {
	w := table.NewWriter()
	w.SetOutputMirror(out)
	w.SetStyle(table.StyleLight)
	w.AppendHeader(table.Row(header))
	return w
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return formatTime(*t)
}

func orDash(value string) string {
	if value == "" {
		return "-"
	}
	return value
}
