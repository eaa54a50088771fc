package fallout

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"

	"fallout/internal/errs"
	"fallout/internal/ports"
)

// storeCall runs op with a per-call timeout and retries transient failures
// with exponential backoff. Not-found and lease-lost are returned at once.
func storeCall[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = opts.StoreRetryInterval
	policy.MaxInterval = 10 * opts.StoreRetryInterval

	value, err := backoff.Retry(ctx, func() (T, error) {
		callCtx, cancel := context.WithTimeout(ctx, opts.StoreTimeout)
		defer cancel()

		value, err := op(callCtx)
		if err != nil && isPermanentStoreError(err) {
			return value, backoff.Permanent(err)
		}
		return value, err
	},
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(opts.StoreRetries)),
	)
	if err != nil && !isPermanentStoreError(err) {
		return value, errs.WithStack(errs.Infra(err))
	}
	return value, err
}

func storeExec(ctx context.Context, opts Options, op func(ctx context.Context) error) error {
	_, err := storeCall(ctx, opts, func(callCtx context.Context) (struct{}, error) {
		return struct{}{}, op(callCtx)
	})
	return err
}

func isPermanentStoreError(err error) bool {
	return errors.Is(err, ports.ErrOrderNotFound) || errors.Is(err, ports.ErrLeaseLost)
}

// runClock hands out strictly increasing timestamps for one workflow run.
type runClock struct {
	now  func() time.Time
	last time.Time
}

func newRunClock(now func() time.Time, last time.Time) *runClock {
	return &runClock{now: now, last: last}
}

func (c *runClock) next() time.Time {
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}
