package fallout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

type ListOrdersInput struct {
	Status        string
	Category      string
	EscalatedOnly bool
	Limit         int
}

// ListOrders returns order summaries for queue views.
func (s *Service) ListOrders(ctx context.Context, input ListOrdersInput) ([]OrderListItem, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	filter := ports.OrderFilter{EscalatedOnly: input.EscalatedOnly, Limit: input.Limit}
	if strings.TrimSpace(input.Status) != "" {
		status, err := domain.ParseStatus(input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if strings.TrimSpace(input.Category) != "" {
		category, ok := domain.ParseCategory(input.Category)
		if !ok {
			return nil, fmt.Errorf("unknown fallout category %q", input.Category)
		}
		filter.Category = category
	}

	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, errs.Wrap(err, "list orders")
	}

	items := make([]OrderListItem, 0, len(orders))
	for _, order := range orders {
		items = append(items, OrderListItem{
			OrderID:     order.OrderID,
			CustomerID:  order.CustomerID,
			ServiceType: string(order.ServiceType),
			Status:      string(order.Status),
			Category:    order.Category.String(),
			ResolvedBy:  order.ResolvedBy,
			Escalated:   order.IsEscalated(),
			UpdatedAt:   order.UpdatedAt,
		})
	}
	return items, nil
}

// GetOrderDetail returns an order with its attachments and audit trail.
func (s *Service) GetOrderDetail(ctx context.Context, orderID string) (OrderDetail, error) {
	if ctx == nil {
		return OrderDetail{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return OrderDetail{}, errs.Wrap(err, "check context")
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return OrderDetail{}, domain.ErrOrderIDRequired
	}

	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			return OrderDetail{}, fmt.Errorf("order %s not found: %w", orderID, err)
		}
		return OrderDetail{}, err
	}
	esim, err := s.store.GetAttachment(ctx, domain.AttachmentESim, orderID)
	if err != nil {
		return OrderDetail{}, errs.Wrap(err, "get esim")
	}
	sw, err := s.store.GetAttachment(ctx, domain.AttachmentSwitch, orderID)
	if err != nil {
		return OrderDetail{}, errs.Wrap(err, "get switch")
	}
	logs, err := s.store.GetLogs(ctx, orderID)
	if err != nil {
		return OrderDetail{}, errs.Wrap(err, "get logs")
	}

	return OrderDetail{Order: order, ESim: esim, Switch: sw, Logs: logs}, nil
}

type StatusCount struct {
	Status string
	Count  int64
}

type CategoryCount struct {
	Category string
	Count    int64
}

type Stats struct {
	Total      int64
	Escalated  int64
	ByStatus   []StatusCount
	ByCategory []CategoryCount
	LastSweep  *SweepSummary
}

// Stats aggregates order counts by status and by fallout category.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	if ctx == nil {
		return Stats{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Stats{}, errs.Wrap(err, "check context")
	}

	groups, err := s.store.CountOrders(ctx)
	if err != nil {
		return Stats{}, errs.Wrap(err, "count orders")
	}

	byStatus := map[string]int64{}
	byCategory := map[string]int64{}
	var out Stats
	for _, g := range groups {
		out.Total += g.Count
		if g.Escalated {
			out.Escalated += g.Count
		}
		byStatus[string(g.Status)] += g.Count
		if g.Category != "" {
			byCategory[g.Category.String()] += g.Count
		}
	}
	for status, count := range byStatus {
		out.ByStatus = append(out.ByStatus, StatusCount{Status: status, Count: count})
	}
	for category, count := range byCategory {
		out.ByCategory = append(out.ByCategory, CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out.ByStatus, func(i, j int) bool { return out.ByStatus[i].Status < out.ByStatus[j].Status })
	sort.Slice(out.ByCategory, func(i, j int) bool { return out.ByCategory[i].Category < out.ByCategory[j].Category })

	if last, found, err := s.LastSweep(ctx); err == nil && found {
		out.LastSweep = &last
	}
	return out, nil
}
