package fallout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fallout/internal/bootstrap/logging"
	domain "fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

// RunOrder drives one order through classify, dispatch, validate, retry
// and escalate under a lease. Lease conflicts and orders that are no longer
// Failed are reported as outcomes, not errors. A returned error means the
// store could not be reached and the run can be repeated from scratch.
func (s *Service) RunOrder(ctx context.Context, orderID string) (Outcome, error) {
	if ctx == nil {
		return Outcome{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, errs.Wrap(err, "check context")
	}

	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Outcome{}, domain.ErrOrderIDRequired
	}

	owner := s.newOwner(s.opts.WorkerID)
	logCtx := logging.WithOrder(logging.WithAttrs(ctx, slog.String("component", "fallout.orchestrator")), orderID, s.opts.WorkerID)
	now := s.now().UTC()

	claimed, err := storeCall(ctx, s.opts, func(callCtx context.Context) (bool, error) {
		return s.store.Claim(callCtx, orderID, owner, now, now.Add(s.opts.LeaseTTL))
	})
	if err != nil {
		return Outcome{OrderID: orderID, Kind: OutcomeAborted, Reason: err.Error()}, errs.Wrapf(err, "claim order %s", orderID)
	}
	if !claimed {
		return s.unclaimedOutcome(logCtx, orderID)
	}
	defer s.releaseLease(logCtx, orderID, owner)

	logCtx = logging.WithAttrs(logCtx, slog.String("owner", owner))
	logging.Info(logCtx, "workflow started")

	run := &workflowRun{
		s:       s,
		orderID: orderID,
		owner:   owner,
		logCtx:  logCtx,
	}
	outcome, err := run.execute(ctx)
	outcome.OrderID = orderID
	outcome.Entries = run.entries

	attrs := []slog.Attr{
		slog.String("outcome", string(outcome.Kind)),
		slog.String("category", outcome.Category.String()),
		slog.String("handler", outcome.Handler),
		slog.Int("attempts", outcome.Attempts),
		slog.Int("entries", outcome.Entries),
	}
	if err != nil {
		logging.Error(logCtx, "workflow aborted", append(attrs, slog.Any("err", errs.Loggable(err)))...)
		return outcome, err
	}
	logging.Info(logCtx, "workflow finished", attrs...)
	s.setCacheBestEffort(ctx, cacheOrderOutcomeKey(orderID), string(outcome.Kind), 0)
	return outcome, nil
}

func (s *Service) unclaimedOutcome(ctx context.Context, orderID string) (Outcome, error) {
	order, err := storeCall(ctx, s.opts, func(callCtx context.Context) (domain.Order, error) {
		return s.store.GetOrder(callCtx, orderID)
	})
	if err != nil {
		return Outcome{OrderID: orderID, Kind: OutcomeAborted, Reason: err.Error()}, err
	}

	out := Outcome{OrderID: orderID, Kind: OutcomeSkipped, Category: order.Category}
	switch {
	case order.IsLeasedAt(s.now().UTC()):
		out.Kind = OutcomeConflict
		out.Reason = "lease held by " + order.WorkflowOwner
	case order.IsEscalated():
		out.Reason = "already escalated to human review"
	case order.Status != domain.StatusFailed:
		out.Reason = "order status is " + string(order.Status)
	default:
		out.Kind = OutcomeConflict
		out.Reason = "claim lost"
	}
	logging.Info(ctx, "order not claimed", slog.String("outcome", string(out.Kind)), slog.String("reason", out.Reason))
	return out, nil
}

func (s *Service) releaseLease(ctx context.Context, orderID string, owner string) {
	releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.StoreTimeout)
	defer cancel()
	if err := s.store.ReleaseLease(releaseCtx, orderID, owner); err != nil {
		logging.Warn(ctx, "release lease failed", slog.Any("err", errs.Loggable(err)))
	}
}

type workflowRun struct {
	s       *Service
	orderID string
	owner   string
	logCtx  context.Context
	clock   *runClock
	entries int
}

type escalation struct {
	reason   string
	failures []string
	attempts int
	infra    bool
}

func (r *workflowRun) execute(ctx context.Context) (Outcome, error) {
	out := Outcome{OrderID: r.orderID}
	opts := r.s.opts

	logs, err := storeCall(ctx, opts, func(callCtx context.Context) ([]domain.LogEntry, error) {
		return r.s.store.GetLogs(callCtx, r.orderID)
	})
	if err != nil {
		return r.abort(ctx, out, err)
	}
	r.clock = newRunClock(r.s.now, lastTimestamp(logs))

	state, err := storeCall(ctx, opts, func(callCtx context.Context) (domain.RemediationState, error) {
		return loadState(callCtx, r.s.store, r.orderID)
	})
	if err != nil {
		return r.abort(ctx, out, err)
	}

	order := state.Order
	if order.Status != domain.StatusFailed {
		out.Kind = OutcomeSkipped
		out.Reason = "order status is " + string(order.Status)
		if order.Status == domain.StatusCompleted {
			return out, nil
		}
		if err := r.appendLog(ctx, domain.EventSkippedNotFailed, fmt.Sprintf("Order is not in Failed state. Current status: %s", order.Status)); err != nil {
			return r.abort(ctx, out, err)
		}
		return out, nil
	}
	if order.IsEscalated() {
		out.Kind = OutcomeSkipped
		out.Reason = "already escalated to human review"
		return out, nil
	}

	category, note, classifyInfra := r.classify(ctx, state)
	out.Category = category
	if category != order.Category {
		if err := r.persistCategory(ctx, category); err != nil {
			return r.abort(ctx, out, err)
		}
		order.Category = category
	}

	rem, automated := r.s.registry.Remediation(category)
	if !automated {
		reason := note
		if reason == "" {
			reason = "no automated remediation for category " + category.String()
		}
		return r.escalate(ctx, out, category, escalation{reason: reason, infra: classifyInfra})
	}
	out.Handler = rem.Name()

	var (
		failures   []string
		infraSeen  bool
		maxAttempt = opts.maxAttempts()
	)
	for attempt := 1; attempt <= maxAttempt; attempt++ {
		out.Attempts = attempt
		res := r.invoke(ctx, rem, AttemptRequest{
			Order:         order,
			Category:      category,
			Attempt:       attempt,
			PriorFailures: append([]string(nil), failures...),
			At:            r.clock.next(),
			Lease:         Lease{Owner: r.owner, TTL: opts.LeaseTTL},
		})
		if errors.Is(res.Err, ports.ErrLeaseLost) {
			return r.abort(ctx, out, res.Err)
		}
		verdict := r.validate(ctx, category)
		infraSeen = infraSeen || res.Infra() || verdict.Infra

		if res.Success {
			if err := r.appendLog(ctx, domain.EventDispatched, dispatchedDescription(rem.Name(), attempt, res)); err != nil {
				return r.abort(ctx, out, err)
			}
			if verdict.Pass {
				return r.resolve(ctx, out, rem)
			}
			reason := "validation failed: " + verdict.Reason
			failures = append(failures, reason)
			if err := r.appendLog(ctx, domain.EventValidationFailed, fmt.Sprintf("%s attempt %d: %s", rem.Name(), attempt, reason)); err != nil {
				return r.abort(ctx, out, err)
			}
		} else {
			reason := res.Message
			if !verdict.Pass && verdict.Reason != "" && verdict.Reason != res.Message {
				reason += " (validator: " + verdict.Reason + ")"
			}
			failures = append(failures, reason)
			if err := r.appendLog(ctx, domain.EventDispatchFailed, fmt.Sprintf("%s attempt %d failed: %s", rem.Name(), attempt, reason)); err != nil {
				return r.abort(ctx, out, err)
			}
			// The postcondition can hold after a failed attempt when an
			// earlier attempt's effect only became visible now.
			if verdict.Pass {
				return r.resolve(ctx, out, rem)
			}
		}

		if attempt < maxAttempt {
			logging.Warn(r.logCtx, "remediation failed, retrying",
				slog.String("handler", rem.Name()),
				slog.Int("attempt", attempt),
				slog.String("reason", failures[len(failures)-1]),
			)
		}
	}

	return r.escalate(ctx, out, category, escalation{
		reason:   fmt.Sprintf("%s failed after %d attempt(s)", rem.Name(), out.Attempts),
		failures: failures,
		attempts: out.Attempts,
		infra:    infraSeen,
	})
}

func (r *workflowRun) classify(ctx context.Context, state domain.RemediationState) (domain.Category, string, bool) {
	callCtx, cancel := context.WithTimeout(ctx, r.s.opts.ClassifierTimeout)
	defer cancel()

	category, err := r.s.classifier.Classify(callCtx, state)
	if err != nil {
		logging.Warn(r.logCtx, "classifier failed, routing to human review",
			slog.String("classifier", r.s.classifier.Name()),
			slog.Any("err", errs.Loggable(err)),
		)
		return domain.CategoryOtherIssue, "classifier " + r.s.classifier.Name() + " failed: " + callFailureMessage(err), true
	}
	if !category.IsKnown() {
		return domain.CategoryOtherIssue, fmt.Sprintf("classifier returned unrecognized category %q", string(category)), false
	}

	logging.Info(r.logCtx, "order classified", slog.String("category", category.String()))
	return category, "", false
}

func (r *workflowRun) persistCategory(ctx context.Context, category domain.Category) error {
	at := r.clock.next()
	return storeExec(ctx, r.s.opts, func(callCtx context.Context) error {
		return r.s.uow.WithTx(callCtx, func(txCtx context.Context) error {
			if err := r.s.store.RenewLease(txCtx, r.orderID, r.owner, at, at.Add(r.s.opts.LeaseTTL)); err != nil {
				return err
			}
			return r.s.store.UpdateOrder(txCtx, r.orderID, ports.OrderUpdate{
				Category:  &category,
				UpdatedAt: at,
			})
		})
	})
}

func (r *workflowRun) invoke(ctx context.Context, handler Handler, req AttemptRequest) Result {
	callCtx, cancel := context.WithTimeout(ctx, r.s.opts.HandlerTimeout)
	defer cancel()

	res := handler.Attempt(callCtx, req)
	logging.Info(r.logCtx, "handler attempt finished",
		slog.String("handler", handler.Name()),
		slog.Int("attempt", req.Attempt),
		slog.Bool("success", res.Success),
		slog.String("message", res.Message),
	)
	return res
}

func (r *workflowRun) validate(ctx context.Context, category domain.Category) Verdict {
	callCtx, cancel := context.WithTimeout(ctx, r.s.opts.StoreTimeout)
	defer cancel()
	return r.s.validator.Check(callCtx, r.orderID, category)
}

func (r *workflowRun) resolve(ctx context.Context, out Outcome, rem Remediation) (Outcome, error) {
	at := r.clock.next()
	entry := domain.LogEntry{
		LogID:       r.s.nextLogID(),
		OrderID:     r.orderID,
		EventType:   domain.EventResolved,
		Description: fmt.Sprintf("Resolved by %s: %s remediation validated", rem.Name(), rem.Category()),
		Timestamp:   at,
	}

	err := storeExec(ctx, r.s.opts, func(callCtx context.Context) error {
		return r.s.uow.WithTx(callCtx, func(txCtx context.Context) error {
			if err := r.s.store.RenewLease(txCtx, r.orderID, r.owner, at, at.Add(r.s.opts.LeaseTTL)); err != nil {
				return err
			}
			status := domain.StatusCompleted
			resolvedBy := rem.Name()
			if err := r.s.store.UpdateOrder(txCtx, r.orderID, ports.OrderUpdate{
				Status:        &status,
				ResolvedBy:    &resolvedBy,
				ClearCategory: true,
				UpdatedAt:     at,
			}); err != nil {
				return err
			}
			_, err := r.s.store.AppendLog(txCtx, entry)
			return err
		})
	})
	if err != nil {
		return r.abort(ctx, out, err)
	}
	r.entries++
	out.Kind = OutcomeResolved
	return out, nil
}

func (r *workflowRun) escalate(ctx context.Context, out Outcome, category domain.Category, esc escalation) (Outcome, error) {
	current, err := storeCall(ctx, r.s.opts, func(callCtx context.Context) (domain.Order, error) {
		return r.s.store.GetOrder(callCtx, r.orderID)
	})
	if err != nil {
		return r.abort(ctx, out, err)
	}
	if current.Status != domain.StatusFailed {
		out.Kind = OutcomeSkipped
		out.Reason = "order status changed to " + string(current.Status) + " before escalation"
		return out, nil
	}

	res := r.invoke(ctx, r.s.registry.Human(), AttemptRequest{
		Order:         current,
		Category:      category,
		Attempt:       esc.attempts,
		PriorFailures: esc.failures,
		Reason:        esc.reason,
		Infra:         esc.infra,
		At:            r.clock.next(),
		Lease:         Lease{Owner: r.owner, TTL: r.s.opts.LeaseTTL},
	})
	if res.Err != nil {
		return r.abort(ctx, out, res.Err)
	}
	r.entries++

	description := "Escalated to human review: " + esc.reason
	if esc.infra && !strings.Contains(esc.reason, "infrastructure failure") {
		description += " (infrastructure failure)"
	}
	if err := r.appendLog(ctx, domain.EventEscalated, description); err != nil {
		return r.abort(ctx, out, err)
	}

	out.Kind = OutcomeEscalated
	out.Reason = esc.reason
	return out, nil
}

func (r *workflowRun) appendLog(ctx context.Context, eventType domain.EventType, description string) error {
	at := r.clock.next()
	entry := domain.LogEntry{
		LogID:       r.s.nextLogID(),
		OrderID:     r.orderID,
		EventType:   eventType,
		Description: description,
		Timestamp:   at,
	}

	err := storeExec(ctx, r.s.opts, func(callCtx context.Context) error {
		return r.s.uow.WithTx(callCtx, func(txCtx context.Context) error {
			if err := r.s.store.RenewLease(txCtx, r.orderID, r.owner, at, at.Add(r.s.opts.LeaseTTL)); err != nil {
				return err
			}
			_, err := r.s.store.AppendLog(txCtx, entry)
			return err
		})
	})
	if err != nil {
		return err
	}
	r.entries++
	return nil
}

// abort ends the run. A lost lease is a quiet stop; anything else is an
// infrastructure failure recorded on a best-effort basis.
func (r *workflowRun) abort(ctx context.Context, out Outcome, err error) (Outcome, error) {
	out.Kind = OutcomeAborted
	if errors.Is(err, ports.ErrLeaseLost) {
		out.Reason = "lease lost"
		logging.Warn(r.logCtx, "lease lost, stopping without further writes")
		return out, nil
	}

	out.Reason = err.Error()
	if ctx.Err() == nil && r.clock != nil {
		if appendErr := r.appendLog(ctx, domain.EventWorkflowAborted, "Workflow aborted: "+callFailureMessage(err)); appendErr != nil {
			logging.Warn(r.logCtx, "record workflow abort failed", slog.Any("err", errs.Loggable(appendErr)))
		}
	}
	return out, err
}

func dispatchedDescription(handler string, attempt int, res Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s attempt %d: %s", handler, attempt, res.Message)
	for _, key := range sortedKeys(res.SideEffects) {
		fmt.Fprintf(&b, " %s=%s", key, res.SideEffects[key])
	}
	return b.String()
}
