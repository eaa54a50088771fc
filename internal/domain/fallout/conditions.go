package fallout

import (
	"errors"
	"fmt"
	"strings"
)

// Messages reported to the audit trail when a required attachment is absent.
const (
	MessageNoESim   = "No eSIM profile found"
	MessageNoSwitch = "No switch configuration found"
)

// RemediationState is the snapshot a handler checks before acting and the
// validator checks afterwards. ESim and Switch are nil when absent.
type RemediationState struct {
	Order  Order
	ESim   *Attachment
	Switch *Attachment
}

// Condition evaluates a snapshot and returns nil when it holds.
type Condition func(state RemediationState) error

func failedWithCategory(state RemediationState, category Category) error {
	if state.Order.Status != StatusFailed {
		return fmt.Errorf("%w: current status %s", ErrNotFailed, state.Order.Status)
	}
	if state.Order.Category != category {
		return fmt.Errorf("%w: want %s, actual %s", ErrCategoryMismatch, category, state.Order.Category)
	}
	return nil
}

func completed(state RemediationState) error {
	if state.Order.Status != StatusCompleted {
		return fmt.Errorf("%w: current status %s", ErrNotCompleted, state.Order.Status)
	}
	return nil
}

func ResubmissionPrecondition(state RemediationState) error {
	return failedWithCategory(state, CategoryNotSentForActivation)
}

func ResubmissionPostcondition(state RemediationState) error {
	return completed(state)
}

func ESimPrecondition(state RemediationState) error {
	if err := failedWithCategory(state, CategoryEsimIssue); err != nil {
		return err
	}
	if state.ESim == nil {
		return ErrESimMissing
	}
	return nil
}

func ESimPostcondition(state RemediationState) error {
	if state.ESim == nil {
		return ErrESimMissing
	}
	if state.ESim.Status != ESimReprovisioned {
		return fmt.Errorf("%w: esim %s status %s", ErrESimNotReprovision, state.ESim.AttachmentID, state.ESim.Status)
	}
	return completed(state)
}

func SwitchPrecondition(state RemediationState) error {
	if err := failedWithCategory(state, CategorySwitchIssue); err != nil {
		return err
	}
	if state.Switch == nil {
		return ErrSwitchMissing
	}
	return nil
}

func SwitchPostcondition(state RemediationState) error {
	if state.Switch == nil {
		return ErrSwitchMissing
	}
	if state.Switch.Status != SwitchConfigured {
		return fmt.Errorf("%w: switch %s config_status %s", ErrSwitchNotConfigure, state.Switch.AttachmentID, state.Switch.Status)
	}
	return completed(state)
}

// ConditionMessage renders a failed condition for the audit trail. Missing
// attachments use the fixed operator-facing messages.
func ConditionMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrESimMissing):
		return MessageNoESim
	case errors.Is(err, ErrSwitchMissing):
		return MessageNoSwitch
	default:
		return err.Error()
	}
}

// ValidateOrder checks the data-level invariants of an order.
func ValidateOrder(o Order) error {
	if strings.TrimSpace(o.OrderID) == "" {
		return ErrOrderIDRequired
	}
	if _, ok := allowedStatuses[o.Status]; !ok {
		return invalidValue(ErrInvalidStatus, string(o.Status))
	}
	if _, ok := allowedServiceTypes[o.ServiceType]; !ok {
		return invalidValue(ErrInvalidServiceType, string(o.ServiceType))
	}

	hasResolver := strings.TrimSpace(o.ResolvedBy) != ""
	if hasResolver != (o.Status == StatusCompleted) {
		return fmt.Errorf("%w: resolved_by must be set if and only if status is Completed (order %s)", ErrOrderInvariant, o.OrderID)
	}
	if o.Status != StatusFailed && o.Category != CategoryNone {
		return fmt.Errorf("%w: fallout_category only applies to Failed orders (order %s)", ErrOrderInvariant, o.OrderID)
	}
	return nil
}
