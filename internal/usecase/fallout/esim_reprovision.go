package fallout

import (
	"context"
	"time"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

const (
	HandlerESimReprovision = "esim_reprovision"

	profileStatusInstalled = "Installed"
)

// ESimReprovision issues a fresh activation code for the order's eSIM.
type ESimReprovision struct {
	deps           handlerDeps
	activationCode func() string
}

var _ Remediation = (*ESimReprovision)(nil)

func NewESimReprovision(store ports.OrderStore, uow ports.UnitOfWork, activationCode func() string) *ESimReprovision {
	if activationCode == nil {
		activationCode = newActivationCode
	}
	return &ESimReprovision{
		deps:           handlerDeps{store: store, uow: uow},
		activationCode: activationCode,
	}
}

func (h *ESimReprovision) Name() string {
	return HandlerESimReprovision
}

func (h *ESimReprovision) Category() domain.Category {
	return domain.CategoryEsimIssue
}

func (h *ESimReprovision) Precondition() domain.Condition {
	return domain.ESimPrecondition
}

func (h *ESimReprovision) Postcondition() domain.Condition {
	return domain.ESimPostcondition
}

func (h *ESimReprovision) Attempt(ctx context.Context, req AttemptRequest) Result {
	return h.deps.attempt(ctx, req, h.Precondition(), func(txCtx context.Context, state domain.RemediationState, at time.Time) (map[string]string, error) {
		code := h.activationCode()
		status := domain.ESimReprovisioned
		profile := profileStatusInstalled
		if err := h.deps.store.UpdateAttachment(txCtx, domain.AttachmentESim, state.ESim.AttachmentID, ports.AttachmentUpdate{
			Status:         &status,
			ActivationCode: &code,
			ProfileStatus:  &profile,
			UpdatedAt:      at,
		}); err != nil {
			return nil, err
		}
		if err := completeOrder(txCtx, h.deps.store, state.Order.OrderID, h.Name(), at); err != nil {
			return nil, err
		}
		return map[string]string{
			"esim_id":         state.ESim.AttachmentID,
			"activation_code": code,
			"esim_status":     status,
		}, nil
	}, "eSIM successfully reprovisioned and order marked as Completed.")
}
