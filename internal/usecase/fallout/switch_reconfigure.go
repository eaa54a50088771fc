package fallout

import (
	"context"
	"time"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

const HandlerSwitchReconfigure = "switch_reconfigure"

type SwitchReconfigure struct {
	deps handlerDeps
}

var _ Remediation = (*SwitchReconfigure)(nil)

func NewSwitchReconfigure(store ports.OrderStore, uow ports.UnitOfWork) *SwitchReconfigure {
	return &SwitchReconfigure{deps: handlerDeps{store: store, uow: uow}}
}

func (h *SwitchReconfigure) Name() string {
	return HandlerSwitchReconfigure
}

func (h *SwitchReconfigure) Category() domain.Category {
	return domain.CategorySwitchIssue
}

func (h *SwitchReconfigure) Precondition() domain.Condition {
	return domain.SwitchPrecondition
}

func (h *SwitchReconfigure) Postcondition() domain.Condition {
	return domain.SwitchPostcondition
}

func (h *SwitchReconfigure) Attempt(ctx context.Context, req AttemptRequest) Result {
	return h.deps.attempt(ctx, req, h.Precondition(), func(txCtx context.Context, state domain.RemediationState, at time.Time) (map[string]string, error) {
		status := domain.SwitchConfigured
		if err := h.deps.store.UpdateAttachment(txCtx, domain.AttachmentSwitch, state.Switch.AttachmentID, ports.AttachmentUpdate{
			Status:    &status,
			UpdatedAt: at,
		}); err != nil {
			return nil, err
		}
		if err := completeOrder(txCtx, h.deps.store, state.Order.OrderID, h.Name(), at); err != nil {
			return nil, err
		}
		return map[string]string{
			"switch_id":     state.Switch.AttachmentID,
			"switch_name":   state.Switch.SwitchName,
			"port_id":       state.Switch.PortID,
			"config_status": status,
		}, nil
	}, "Switch successfully reconfigured and order marked as Completed.")
}
