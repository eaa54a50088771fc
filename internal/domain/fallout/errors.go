package fallout

import (
	"errors"
	"fmt"
)

var (
	ErrOrderIDRequired       = errors.New("order id is required")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrInvalidServiceType    = errors.New("invalid service type")
	ErrInvalidAttachment     = errors.New("invalid attachment")
	ErrInvalidAttachmentKind = errors.New("invalid attachment kind")
	ErrOrderInvariant        = errors.New("order invariant violated")

	ErrNotFailed          = errors.New("order is not in Failed state")
	ErrCategoryMismatch   = errors.New("order fallout category does not match handler")
	ErrESimMissing        = errors.New("esim attachment missing")
	ErrSwitchMissing      = errors.New("switch attachment missing")
	ErrNotCompleted       = errors.New("order is not Completed")
	ErrESimNotReprovision = errors.New("esim is not Reprovisioned")
	ErrSwitchNotConfigure = errors.New("switch is not Configured")
	ErrAlreadyEscalated   = errors.New("order is already escalated to human review")
	ErrNotEscalated       = errors.New("order is not escalated to human review")
)

func invalidValue(sentinel error, value string) error {
	return fmt.Errorf("%w: %q", sentinel, value)
}
