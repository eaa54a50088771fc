package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"fallout/internal/bootstrap/logging"
	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/usecase/fallout"
)

const maxShownLogs = 5
const maxActionLines = 8

// OrderService is the subset of the fallout service the console drives.
type OrderService interface {
	ListOrders(ctx context.Context, input fallout.ListOrdersInput) ([]fallout.OrderListItem, error)
	GetOrderDetail(ctx context.Context, orderID string) (fallout.OrderDetail, error)
	RunOrder(ctx context.Context, orderID string) (fallout.Outcome, error)
	ResolveByHuman(ctx context.Context, input fallout.ResolveByHumanInput) (domain.LogEntry, error)
}

type Options struct {
	Actor           string
	StatusFilter    string
	EscalatedOnly   bool
	Limit           int
	RefreshInterval time.Duration
}

type consoleModel struct {
	ctx             context.Context
	service         OrderService
	actor           string
	statusFilter    string
	escalatedOnly   bool
	limit           int
	refreshInterval time.Duration

	orders        []fallout.OrderListItem
	selectedIndex int
	detail        fallout.OrderDetail
	hasDetail     bool
	status        string
	actionLogs    []string
}

type ordersLoadedMsg struct {
	items []fallout.OrderListItem
	err   error
}

type detailLoadedMsg struct {
	orderID string
	detail  fallout.OrderDetail
	err     error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action  string
	orderID string
	result  string
	err     error
}

// NewModel builds the operations console over the fallout queue.
func NewModel(ctx context.Context, service OrderService, options Options) tea.Model {
	actor := strings.TrimSpace(options.Actor)
	if actor == "" {
		actor = "console"
	}
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	limit := options.Limit
	if limit <= 0 {
		limit = 50
	}
	return &consoleModel{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "console")),
		service:         service,
		actor:           actor,
		statusFilter:    strings.TrimSpace(options.StatusFilter),
		escalatedOnly:   options.EscalatedOnly,
		limit:           limit,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(m.loadOrdersCmd(), m.tickCmd())
}

func (m *consoleModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadOrdersCmd(), m.tickCmd())
	case ordersLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.orders = msg.items
		if len(m.orders) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "queue is empty"
			return m, nil
		}
		if m.selectedIndex >= len(m.orders) {
			m.selectedIndex = len(m.orders) - 1
		}
		if m.selectedIndex < 0 {
			m.selectedIndex = 0
		}
		m.status = fmt.Sprintf("refreshed, %d orders", len(m.orders))
		return m, m.loadSelectedDetailCmd()
	case detailLoadedMsg:
		if msg.orderID != m.selectedOrderID() {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
			m.appendActionLog(msg.action, msg.orderID, "failed")
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
			m.appendActionLog(msg.action, msg.orderID, msg.result)
		}
		return m, m.loadOrdersCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadOrdersCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.orders)-1 {
				m.selectedIndex++
				return m, m.loadSelectedDetailCmd()
			}
			return m, nil
		case "e":
			m.escalatedOnly = !m.escalatedOnly
			m.selectedIndex = 0
			return m, m.loadOrdersCmd()
		case "p":
			return m, m.processCmd()
		case "h":
			return m, m.resolveCmd()
		}
	}
	return m, nil
}

func (m *consoleModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Fallout Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"actor=%s status=%s escalated_only=%t limit=%d refresh=%s",
		m.actor,
		firstNonEmpty(m.statusFilter, "all"),
		m.escalatedOnly,
		m.limit,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.orders) == 0 {
		builder.WriteString(dimStyle.Render("- no orders"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.orders {
			line := fmt.Sprintf(
				"%s [%s] category=%s escalated=%t customer=%s",
				item.OrderID,
				item.Status,
				firstNonEmpty(item.Category, "-"),
				item.Escalated,
				item.CustomerID,
			)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		order := m.detail.Order
		builder.WriteString(fmt.Sprintf("Order: %s (%s)\n", order.OrderID, order.ServiceType))
		builder.WriteString(fmt.Sprintf("Status: %s\n", order.Status))
		builder.WriteString(fmt.Sprintf("Category: %s\n", firstNonEmpty(order.Category.String(), "-")))
		builder.WriteString(fmt.Sprintf("Resolved by: %s\n", firstNonEmpty(order.ResolvedBy, "-")))
		if order.EscalatedAt != nil {
			builder.WriteString(fmt.Sprintf("Escalated at: %s\n", order.EscalatedAt.UTC().Format(time.RFC3339)))
		}
		builder.WriteString("\nRecent Logs:\n")
		logs := m.detail.Logs
		if len(logs) == 0 {
			builder.WriteString("- none\n")
		} else {
			start := len(logs) - maxShownLogs
			if start < 0 {
				start = 0
			}
			for _, entry := range logs[start:] {
				builder.WriteString(fmt.Sprintf("- #%d %s %s\n", entry.Seq, entry.EventType, entry.Description))
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Actions"))
	builder.WriteString("\n")
	if len(m.actionLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.actionLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  e escalated only  p process  h resolve  q quit"))
	return builder.String()
}

func (m *consoleModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *consoleModel) loadOrdersCmd() tea.Cmd {
	input := fallout.ListOrdersInput{
		Status:        m.statusFilter,
		EscalatedOnly: m.escalatedOnly,
		Limit:         m.limit,
	}
	return func() tea.Msg {
		items, err := m.service.ListOrders(m.ctx, input)
		return ordersLoadedMsg{items: items, err: err}
	}
}

func (m *consoleModel) loadSelectedDetailCmd() tea.Cmd {
	orderID := m.selectedOrderID()
	if orderID == "" {
		return nil
	}
	return func() tea.Msg {
		detail, err := m.service.GetOrderDetail(m.ctx, orderID)
		return detailLoadedMsg{orderID: orderID, detail: detail, err: err}
	}
}

func (m *consoleModel) processCmd() tea.Cmd {
	orderID := m.selectedOrderID()
	if orderID == "" {
		m.status = "no order selected"
		return nil
	}
	m.status = "processing " + orderID
	return func() tea.Msg {
		outcome, err := m.service.RunOrder(m.ctx, orderID)
		if err != nil {
			logging.Error(m.ctx, "console process failed", slog.String("order_id", orderID), slog.Any("err", errs.Loggable(err)))
			return actionDoneMsg{action: "process", orderID: orderID, err: err}
		}
		return actionDoneMsg{action: "process", orderID: orderID, result: string(outcome.Kind)}
	}
}

func (m *consoleModel) resolveCmd() tea.Cmd {
	orderID := m.selectedOrderID()
	if orderID == "" {
		m.status = "no order selected"
		return nil
	}
	actor := m.actor
	m.status = "resolving " + orderID
	return func() tea.Msg {
		entry, err := m.service.ResolveByHuman(m.ctx, fallout.ResolveByHumanInput{
			OrderID: orderID,
			Actor:   actor,
			Note:    "resolved from console",
		})
		if err != nil {
			logging.Error(m.ctx, "console resolve failed", slog.String("order_id", orderID), slog.Any("err", errs.Loggable(err)))
			return actionDoneMsg{action: "resolve", orderID: orderID, err: err}
		}
		return actionDoneMsg{action: "resolve", orderID: orderID, result: string(entry.EventType)}
	}
}

func (m *consoleModel) selectedOrderID() string {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.orders) {
		return ""
	}
	return m.orders[m.selectedIndex].OrderID
}

func (m *consoleModel) appendActionLog(action, orderID, result string) {
	line := fmt.Sprintf("%s %s %s %s", time.Now().UTC().Format("15:04:05"), action, orderID, result)
	m.actionLogs = append(m.actionLogs, line)
	if len(m.actionLogs) > maxActionLines {
		m.actionLogs = m.actionLogs[len(m.actionLogs)-maxActionLines:]
	}
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
