package fallout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fallout/internal/bootstrap/logging"
	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

type ResolveByHumanInput struct {
	OrderID string
	Actor   string
	Note    string
}

// ResolveByHuman closes an escalated order on behalf of a reviewer. The
// order must still be Failed and marked for human review.
func (s *Service) ResolveByHuman(ctx context.Context, input ResolveByHumanInput) (domain.LogEntry, error) {
	if ctx == nil {
		return domain.LogEntry{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return domain.LogEntry{}, errs.Wrap(err, "check context")
	}

	orderID := strings.TrimSpace(input.OrderID)
	if orderID == "" {
		return domain.LogEntry{}, domain.ErrOrderIDRequired
	}
	actor := strings.TrimSpace(input.Actor)
	if actor == "" {
		return domain.LogEntry{}, errors.New("actor is required")
	}

	logCtx := logging.WithOrder(logging.WithAttrs(ctx, slog.String("component", "fallout.resolve")), orderID, "")

	var appended domain.LogEntry
	err := s.uow.WithTx(ctx, func(txCtx context.Context) error {
		order, err := s.store.GetOrder(txCtx, orderID)
		if err != nil {
			return err
		}
		if order.Status != domain.StatusFailed {
			return fmt.Errorf("%w: current status %s", domain.ErrNotFailed, order.Status)
		}
		if !order.IsEscalated() {
			return domain.ErrNotEscalated
		}

		logs, err := s.store.GetLogs(txCtx, orderID)
		if err != nil {
			return err
		}
		at := newRunClock(s.now, lastTimestamp(logs)).next()

		status := domain.StatusCompleted
		resolvedBy := domain.ResolvedByHuman
		if err := s.store.UpdateOrder(txCtx, orderID, ports.OrderUpdate{
			Status:         &status,
			ResolvedBy:     &resolvedBy,
			ResolutionTime: &at,
			ClearCategory:  true,
			UpdatedAt:      at,
		}); err != nil {
			return err
		}

		description := "Resolved by human reviewer " + actor
		if note := strings.TrimSpace(input.Note); note != "" {
			description += ". Notes: " + note
		}
		appended, err = s.store.AppendLog(txCtx, domain.LogEntry{
			LogID:       s.nextLogID(),
			OrderID:     orderID,
			EventType:   domain.EventHumanResolved,
			Description: description,
			Timestamp:   at,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			return domain.LogEntry{}, fmt.Errorf("order %s not found: %w", orderID, err)
		}
		return domain.LogEntry{}, errs.Wrapf(err, "resolve order %s", orderID)
	}

	logging.Info(logCtx, "order resolved by human", slog.String("actor", actor))
	s.setCacheBestEffort(ctx, cacheOrderOutcomeKey(orderID), string(OutcomeResolved), 0)
	return appended, nil
}
