package ports

import (
	"context"
	"errors"
	"time"

	"fallout/internal/domain/fallout"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrLeaseLost     = errors.New("order lease is not held by this workflow")
)

// OrderFilter narrows ListOrders. Zero values mean "any".
type OrderFilter struct {
	Status        fallout.Status
	Category      fallout.Category
	EscalatedOnly bool
	Limit         int
}

// OrderUpdate is a partial update; nil pointers leave the column untouched.
// ClearCategory and ClearResolvedBy write NULL.
type OrderUpdate struct {
	Status          *fallout.Status
	Category        *fallout.Category
	ClearCategory   bool
	ResolvedBy      *string
	ClearResolvedBy bool
	ResolutionTime  *time.Time
	EscalatedAt     *time.Time
	UpdatedAt       time.Time
}

type AttachmentUpdate struct {
	Status         *string
	ActivationCode *string
	ProfileStatus  *string
	UpdatedAt      time.Time
}

// OrderCount is one group of CountOrders.
type OrderCount struct {
	Status    fallout.Status
	Category  fallout.Category
	Escalated bool
	Count     int64
}

type OrderReadStore interface {
	GetOrder(ctx context.Context, orderID string) (fallout.Order, error)
	// GetAttachment returns (nil, nil) when the order has no attachment of kind.
	GetAttachment(ctx context.Context, kind fallout.AttachmentKind, orderID string) (*fallout.Attachment, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]fallout.Order, error)
	GetLogs(ctx context.Context, orderID string) ([]fallout.LogEntry, error)
	ListLogsAfter(ctx context.Context, afterSeq uint64, limit int) ([]fallout.LogEntry, error)
	CountOrders(ctx context.Context) ([]OrderCount, error)
}

type OrderStore interface {
	OrderReadStore
	// GetFailedUnclaimed lists Failed, non-escalated orders whose lease is
	// free or expired at now.
	GetFailedUnclaimed(ctx context.Context, now time.Time, limit int) ([]fallout.Order, error)
	// Claim atomically takes the lease. It reports false when another owner
	// holds a live lease or the order is no longer claimable.
	Claim(ctx context.Context, orderID string, owner string, now time.Time, expiry time.Time) (bool, error)
	// RenewLease extends a held lease and returns ErrLeaseLost otherwise.
	RenewLease(ctx context.Context, orderID string, owner string, now time.Time, expiry time.Time) error
	ReleaseLease(ctx context.Context, orderID string, owner string) error

	CreateOrder(ctx context.Context, order fallout.Order, attachments []fallout.Attachment) (bool, error)
	UpdateOrder(ctx context.Context, orderID string, update OrderUpdate) error
	UpdateAttachment(ctx context.Context, kind fallout.AttachmentKind, attachmentID string, update AttachmentUpdate) error
	AppendLog(ctx context.Context, entry fallout.LogEntry) (fallout.LogEntry, error)
}
