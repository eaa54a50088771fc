package fallout

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

// Options tunes the workflow. Zero values fall back to DefaultOptions.
type Options struct {
	MaxRetriesPerCategory int
	LeaseTTL              time.Duration
	ClassifierTimeout     time.Duration
	HandlerTimeout        time.Duration
	StoreTimeout          time.Duration
	StoreRetries          int
	StoreRetryInterval    time.Duration
	BatchSize             int
	Workers               int
	WorkerID              string
}

func DefaultOptions() Options {
	return Options{
		MaxRetriesPerCategory: 1,
		LeaseTTL:              2 * time.Minute,
		ClassifierTimeout:     10 * time.Second,
		HandlerTimeout:        30 * time.Second,
		StoreTimeout:          5 * time.Second,
		StoreRetries:          3,
		StoreRetryInterval:    100 * time.Millisecond,
		BatchSize:             20,
		Workers:               4,
		WorkerID:              "local",
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxRetriesPerCategory < 0 {
		o.MaxRetriesPerCategory = 0
	}
	if o.LeaseTTL <= 0 {
		o.LeaseTTL = def.LeaseTTL
	}
	if o.ClassifierTimeout <= 0 {
		o.ClassifierTimeout = def.ClassifierTimeout
	}
	if o.HandlerTimeout <= 0 {
		o.HandlerTimeout = def.HandlerTimeout
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = def.StoreTimeout
	}
	if o.StoreRetries <= 0 {
		o.StoreRetries = def.StoreRetries
	}
	if o.StoreRetryInterval <= 0 {
		o.StoreRetryInterval = def.StoreRetryInterval
	}
	if o.BatchSize <= 0 {
		o.BatchSize = def.BatchSize
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if strings.TrimSpace(o.WorkerID) == "" {
		o.WorkerID = def.WorkerID
	}
	return o
}

// maxAttempts is the number of automated invocations allowed per episode.
func (o Options) maxAttempts() int {
	return 1 + o.MaxRetriesPerCategory
}

type Service struct {
	store      ports.OrderStore
	uow        ports.UnitOfWork
	cache      ports.Cache
	classifier ports.Classifier
	publisher  ports.AuditPublisher
	registry   *Registry
	validator  *Validator
	opts       Options

	now            func() time.Time
	newOwner       func(workerID string) string
	newLogID       func() string
	activationCode func() string
}

// NewService wires the workflow with the default handler set. cache and
// publisher are optional.
func NewService(store ports.OrderStore, uow ports.UnitOfWork, cache ports.Cache, classifier ports.Classifier, publisher ports.AuditPublisher, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("order store is required")
	}
	if uow == nil {
		return nil, errors.New("unit of work is required")
	}
	if classifier == nil {
		return nil, errors.New("classifier is required")
	}

	s := &Service{
		store:          store,
		uow:            uow,
		cache:          cache,
		classifier:     classifier,
		publisher:      publisher,
		opts:           opts.withDefaults(),
		now:            time.Now,
		newOwner:       newLeaseOwner,
		newLogID:       newLogID,
		activationCode: newActivationCode,
	}

	registry, err := NewRegistry(
		NewHumanEscalation(store, uow, s.nextLogID),
		NewResubmission(store, uow),
		NewESimReprovision(store, uow, s.nextActivationCode),
		NewSwitchReconfigure(store, uow),
	)
	if err != nil {
		return nil, err
	}
	s.registry = registry
	s.validator = NewValidator(store, registry)
	return s, nil
}

func (s *Service) Options() Options {
	return s.opts
}

func (s *Service) Registry() *Registry {
	return s.registry
}

func (s *Service) nextLogID() string {
	return s.newLogID()
}

func (s *Service) nextActivationCode() string {
	return s.activationCode()
}

func newLeaseOwner(workerID string) string {
	return workerID + "#" + uuid.NewString()
}

func newLogID() string {
	return "LOG-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
}

func newActivationCode() string {
	return "LPA:" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (s *Service) setCacheBestEffort(ctx context.Context, key string, value string, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Set(ctx, key, value, ttl)
}

// OutcomeKind summarizes how one workflow instance ended.
type OutcomeKind string

const (
	OutcomeResolved  OutcomeKind = "resolved"
	OutcomeEscalated OutcomeKind = "escalated"
	OutcomeSkipped   OutcomeKind = "skipped"
	OutcomeConflict  OutcomeKind = "conflict"
	OutcomeAborted   OutcomeKind = "aborted"
)

type Outcome struct {
	OrderID  string
	Kind     OutcomeKind
	Category domain.Category
	Handler  string
	Attempts int
	Entries  int
	Reason   string
}

type OrderListItem struct {
	OrderID     string
	CustomerID  string
	ServiceType string
	Status      string
	Category    string
	ResolvedBy  string
	Escalated   bool
	UpdatedAt   time.Time
}

type OrderDetail struct {
	Order  domain.Order
	ESim   *domain.Attachment
	Switch *domain.Attachment
	Logs   []domain.LogEntry
}
