package ports

import (
	"context"
	"time"
)

// AuditRecord is the wire form of a fallout log entry.
type AuditRecord struct {
	Seq         uint64    `json:"seq"`
	LogID       string    `json:"log_id"`
	OrderID     string    `json:"order_id"`
	EventType   string    `json:"event_type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// AuditPublisher forwards audit records to an external broker. Publish must
// be safe to call again with the same records.
type AuditPublisher interface {
	Name() string
	Publish(ctx context.Context, records []AuditRecord) error
	Close() error
}
