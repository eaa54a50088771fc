package fallout

import (
	"context"
	"errors"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

type Verdict struct {
	Pass   bool
	Reason string
	Infra  bool
}

// Validator re-reads the store after an attempt and applies the
// postcondition registered with the category's handler.
type Validator struct {
	store    ports.OrderReadStore
	registry *Registry
}

func NewValidator(store ports.OrderReadStore, registry *Registry) *Validator {
	return &Validator{store: store, registry: registry}
}

func (v *Validator) Check(ctx context.Context, orderID string, category domain.Category) Verdict {
	if ctx == nil {
		return Verdict{Reason: "context is required", Infra: true}
	}

	rem, ok := v.registry.Remediation(category)
	if !ok {
		return Verdict{Reason: "no automated remediation for category " + category.String()}
	}
	if err := ctx.Err(); err != nil {
		return Verdict{Reason: callFailureMessage(err), Infra: true}
	}

	state, err := loadState(ctx, v.store, orderID)
	if err != nil {
		if errors.Is(err, ports.ErrOrderNotFound) {
			return Verdict{Reason: err.Error()}
		}
		return Verdict{Reason: callFailureMessage(err), Infra: true}
	}

	if condErr := rem.Postcondition()(state); condErr != nil {
		return Verdict{Reason: domain.ConditionMessage(condErr)}
	}
	return Verdict{Pass: true}
}
