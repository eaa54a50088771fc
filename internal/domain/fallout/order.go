package fallout

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "Pending"
	StatusProcessing Status = "Processing"
	StatusFailed     Status = "Failed"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

var allowedStatuses = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusFailed:     {},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

type ServiceType string

const (
	ServiceMobile   ServiceType = "Mobile"
	ServiceInternet ServiceType = "Internet"
	ServiceTV       ServiceType = "TV"
	ServiceBundle   ServiceType = "Bundle"
)

var allowedServiceTypes = map[ServiceType]struct{}{
	ServiceMobile:   {},
	ServiceInternet: {},
	ServiceTV:       {},
	ServiceBundle:   {},
}

// ResolvedByHuman is the resolver recorded when a reviewer closes an
// escalated order.
const ResolvedByHuman = "human"

// Order is the unit of work. Optional fields use the zero value for "null":
// an empty Category or ResolvedBy, a nil time pointer.
type Order struct {
	OrderID        string
	CustomerID     string
	ServiceType    ServiceType
	Status         Status
	Category       Category
	ResolvedBy     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolutionTime *time.Time

	WorkflowOwner string
	LeaseExpiry   *time.Time
	EscalatedAt   *time.Time
}

func (o Order) IsEscalated() bool {
	return o.EscalatedAt != nil
}

// IsLeasedAt reports whether another workflow instance holds a live lease.
func (o Order) IsLeasedAt(now time.Time) bool {
	if strings.TrimSpace(o.WorkflowOwner) == "" || o.LeaseExpiry == nil {
		return false
	}
	return o.LeaseExpiry.After(now)
}

func ParseStatus(raw string) (Status, error) {
	trimmed := strings.TrimSpace(raw)
	for s := range allowedStatuses {
		if strings.EqualFold(string(s), trimmed) {
			return s, nil
		}
	}
	return "", invalidValue(ErrInvalidStatus, raw)
}

func ParseServiceType(raw string) (ServiceType, error) {
	trimmed := strings.TrimSpace(raw)
	for s := range allowedServiceTypes {
		if strings.EqualFold(string(s), trimmed) {
			return s, nil
		}
	}
	return "", invalidValue(ErrInvalidServiceType, raw)
}
