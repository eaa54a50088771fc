package fallout

import (
	"strings"
	"time"
)

type AttachmentKind string

const (
	AttachmentESim   AttachmentKind = "esim"
	AttachmentSwitch AttachmentKind = "switch"
)

const (
	ESimActive        = "Active"
	ESimFailed        = "Failed"
	ESimReprovisioned = "Reprovisioned"

	SwitchConfigured = "Configured"
	SwitchFailed     = "Failed"
)

// Attachment is a physical or virtual resource owned by one order. Status
// holds the eSIM status for AttachmentESim and config_status for
// AttachmentSwitch; switch error variants ("Port Error", ...) are kept as-is.
type Attachment struct {
	Kind         AttachmentKind
	AttachmentID string
	OrderID      string
	Status       string
	UpdatedAt    time.Time

	ICCID          string
	EID            string
	ProfileStatus  string
	ActivationCode string

	SwitchName string
	PortID     string
}

func ParseAttachmentKind(raw string) (AttachmentKind, error) {
	switch AttachmentKind(strings.ToLower(strings.TrimSpace(raw))) {
	case AttachmentESim:
		return AttachmentESim, nil
	case AttachmentSwitch:
		return AttachmentSwitch, nil
	default:
		return "", invalidValue(ErrInvalidAttachmentKind, raw)
	}
}

func ValidateAttachment(a Attachment) error {
	if strings.TrimSpace(a.AttachmentID) == "" {
		return invalidValue(ErrInvalidAttachment, "attachment_id is required")
	}
	if strings.TrimSpace(a.Status) == "" {
		return invalidValue(ErrInvalidAttachment, "status is required for "+a.AttachmentID)
	}

	switch a.Kind {
	case AttachmentESim:
		switch a.Status {
		case ESimActive, ESimReprovisioned:
			if strings.TrimSpace(a.ActivationCode) == "" {
				return invalidValue(ErrInvalidAttachment, "activation_code is required for an active esim "+a.AttachmentID)
			}
		case ESimFailed:
			if strings.TrimSpace(a.ActivationCode) != "" {
				return invalidValue(ErrInvalidAttachment, "failed esim "+a.AttachmentID+" cannot carry an activation_code")
			}
		default:
			return invalidValue(ErrInvalidAttachment, "esim status "+a.Status)
		}
	case AttachmentSwitch:
	default:
		return invalidValue(ErrInvalidAttachmentKind, string(a.Kind))
	}
	return nil
}
