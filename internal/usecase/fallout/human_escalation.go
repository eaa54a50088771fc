package fallout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

const HandlerHuman = "human"

// HumanEscalation hands an order to a reviewer. It never fixes anything and
// never changes status; it stamps escalated_at and records review notes.
type HumanEscalation struct {
	deps     handlerDeps
	newLogID func() string
}

var _ Handler = (*HumanEscalation)(nil)

func NewHumanEscalation(store ports.OrderStore, uow ports.UnitOfWork, newLogIDFunc func() string) *HumanEscalation {
	if newLogIDFunc == nil {
		newLogIDFunc = newLogID
	}
	return &HumanEscalation{
		deps:     handlerDeps{store: store, uow: uow},
		newLogID: newLogIDFunc,
	}
}

func (h *HumanEscalation) Name() string {
	return HandlerHuman
}

func (h *HumanEscalation) Attempt(ctx context.Context, req AttemptRequest) Result {
	if ctx == nil {
		return Result{Message: "context is required", Err: errors.New("context is required")}
	}
	if err := ctx.Err(); err != nil {
		return Result{Message: callFailureMessage(err), Err: errs.Infra(err)}
	}

	notes := escalationNotes(req)
	logID := h.newLogID()
	err := h.deps.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := renewLeaseTx(txCtx, h.deps.store, req); err != nil {
			return err
		}
		if _, err := h.deps.store.GetOrder(txCtx, req.Order.OrderID); err != nil {
			return err
		}

		at := req.At
		if err := h.deps.store.UpdateOrder(txCtx, req.Order.OrderID, ports.OrderUpdate{
			EscalatedAt: &at,
			UpdatedAt:   at,
		}); err != nil {
			return err
		}

		_, err := h.deps.store.AppendLog(txCtx, domain.LogEntry{
			LogID:       logID,
			OrderID:     req.Order.OrderID,
			EventType:   domain.EventHumanInterventionNeeded,
			Description: "Order marked for human intervention. Notes: " + notes,
			Timestamp:   at,
		})
		return err
	})
	if err != nil {
		if errors.Is(err, ports.ErrLeaseLost) {
			return Result{Message: "lease lost", Err: err}
		}
		return Result{Message: callFailureMessage(err), Err: errs.Infra(err)}
	}

	return Result{
		Success:     true,
		Message:     notes,
		SideEffects: map[string]string{"log_id": logID},
	}
}

func escalationNotes(req AttemptRequest) string {
	parts := []string{"category=" + req.Category.String()}
	if req.Attempt > 0 {
		parts = append(parts, fmt.Sprintf("automated_attempts=%d", req.Attempt))
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		parts = append(parts, "reason="+reason)
	}
	if req.Infra {
		parts = append(parts, "infrastructure failure")
	}
	for i, failure := range req.PriorFailures {
		parts = append(parts, fmt.Sprintf("failure[%d]=%s", i+1, failure))
	}
	return strings.Join(parts, "; ")
}
