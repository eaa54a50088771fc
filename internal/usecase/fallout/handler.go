package fallout

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

// Lease identifies the workflow instance on whose behalf a handler writes.
// A zero Lease skips the lease check, which direct callers such as tests use.
type Lease struct {
	Owner string
	TTL   time.Duration
}

type AttemptRequest struct {
	Order         domain.Order
	Category      domain.Category
	Attempt       int
	PriorFailures []string
	Reason        string
	Infra         bool
	At            time.Time
	Lease         Lease
}

// Result is what a handler reports back. Err is set only for
// infrastructure problems (store errors, timeouts, lost lease); a failed
// precondition is Success=false with a Message and no Err.
type Result struct {
	Success     bool
	Message     string
	SideEffects map[string]string
	Err         error
}

func (r Result) Infra() bool {
	return r.Err != nil
}

type Handler interface {
	Name() string
	Attempt(ctx context.Context, req AttemptRequest) Result
}

// Remediation is an automated handler bound to one category. Precondition
// and Postcondition are the two halves the validator relies on.
type Remediation interface {
	Handler
	Category() domain.Category
	Precondition() domain.Condition
	Postcondition() domain.Condition
}

type handlerDeps struct {
	store ports.OrderStore
	uow   ports.UnitOfWork
}

type applyFunc func(ctx context.Context, state domain.RemediationState, at time.Time) (map[string]string, error)

// attempt re-checks pre against fresh state and runs apply in the same
// transaction, so a stale classification never mutates anything.
func (d handlerDeps) attempt(ctx context.Context, req AttemptRequest, pre domain.Condition, apply applyFunc, successMessage string) Result {
	if ctx == nil {
		return Result{Message: "context is required", Err: errors.New("context is required")}
	}
	if err := ctx.Err(); err != nil {
		return Result{Message: callFailureMessage(err), Err: errs.Infra(err)}
	}

	var res Result
	err := d.uow.WithTx(ctx, func(txCtx context.Context) error {
		if err := renewLeaseTx(txCtx, d.store, req); err != nil {
			return err
		}

		state, err := loadState(txCtx, d.store, req.Order.OrderID)
		if err != nil {
			return err
		}
		if condErr := pre(state); condErr != nil {
			res = Result{Message: domain.ConditionMessage(condErr)}
			return nil
		}

		effects, err := apply(txCtx, state, req.At)
		if err != nil {
			return err
		}
		res = Result{Success: true, Message: successMessage, SideEffects: effects}
		return nil
	})
	if err != nil {
		if errors.Is(err, ports.ErrLeaseLost) {
			return Result{Message: "lease lost", Err: err}
		}
		return Result{Message: callFailureMessage(err), Err: errs.Infra(err)}
	}
	return res
}

// completeOrder writes the terminal success fields in one update.
func completeOrder(ctx context.Context, store ports.OrderStore, orderID string, resolvedBy string, at time.Time) error {
	status := domain.StatusCompleted
	return store.UpdateOrder(ctx, orderID, ports.OrderUpdate{
		Status:         &status,
		ResolvedBy:     &resolvedBy,
		ResolutionTime: &at,
		UpdatedAt:      at,
	})
}

func renewLeaseTx(ctx context.Context, store ports.OrderStore, req AttemptRequest) error {
	if strings.TrimSpace(req.Lease.Owner) == "" {
		return nil
	}
	return store.RenewLease(ctx, req.Order.OrderID, req.Lease.Owner, req.At, req.At.Add(req.Lease.TTL))
}

func loadState(ctx context.Context, store ports.OrderReadStore, orderID string) (domain.RemediationState, error) {
	order, err := store.GetOrder(ctx, orderID)
	if err != nil {
		return domain.RemediationState{}, err
	}
	esim, err := store.GetAttachment(ctx, domain.AttachmentESim, orderID)
	if err != nil {
		return domain.RemediationState{}, err
	}
	sw, err := store.GetAttachment(ctx, domain.AttachmentSwitch, orderID)
	if err != nil {
		return domain.RemediationState{}, err
	}
	return domain.RemediationState{Order: order, ESim: esim, Switch: sw}, nil
}

func callFailureMessage(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "infrastructure failure: call timed out"
	case errors.Is(err, context.Canceled):
		return "infrastructure failure: call canceled"
	case errs.IsInfra(err):
		return err.Error()
	default:
		return "infrastructure failure: " + err.Error()
	}
}
