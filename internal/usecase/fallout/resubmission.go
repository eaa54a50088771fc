package fallout

import (
	"context"
	"time"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

const HandlerResubmission = "resubmission"

// Resubmission sends an order that never reached activation again. It has no
// attachment to touch.
type Resubmission struct {
	deps handlerDeps
}

var _ Remediation = (*Resubmission)(nil)

func NewResubmission(store ports.OrderStore, uow ports.UnitOfWork) *Resubmission {
	return &Resubmission{deps: handlerDeps{store: store, uow: uow}}
}

func (h *Resubmission) Name() string {
	return HandlerResubmission
}

func (h *Resubmission) Category() domain.Category {
	return domain.CategoryNotSentForActivation
}

func (h *Resubmission) Precondition() domain.Condition {
	return domain.ResubmissionPrecondition
}

func (h *Resubmission) Postcondition() domain.Condition {
	return domain.ResubmissionPostcondition
}

func (h *Resubmission) Attempt(ctx context.Context, req AttemptRequest) Result {
	return h.deps.attempt(ctx, req, h.Precondition(), func(txCtx context.Context, state domain.RemediationState, at time.Time) (map[string]string, error) {
		if err := completeOrder(txCtx, h.deps.store, state.Order.OrderID, h.Name(), at); err != nil {
			return nil, err
		}
		return map[string]string{"order_status": string(domain.StatusCompleted)}, nil
	}, "Order successfully resubmitted for activation and marked as Completed.")
}
