package fallout

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

// scriptedRemediation stands in for the resubmission handler. Each call runs
// the next step; the last step repeats.
type scriptedRemediation struct {
	*Resubmission
	steps []func(ctx context.Context, req AttemptRequest) Result
	calls int
}

func (h *scriptedRemediation) Attempt(ctx context.Context, req AttemptRequest) Result {
	step := h.steps[len(h.steps)-1]
	if h.calls < len(h.steps) {
		step = h.steps[h.calls]
	}
	h.calls++
	return step(ctx, req)
}

func failStep(message string) func(context.Context, AttemptRequest) Result {
	return func(context.Context, AttemptRequest) Result {
		return Result{Message: message}
	}
}

// claimSuccessStep reports success without changing the store.
func claimSuccessStep(context.Context, AttemptRequest) Result {
	return Result{Success: true, Message: "pretended to resubmit"}
}

func installRemediation(t *testing.T, env *testEnv, steps ...func(context.Context, AttemptRequest) Result) *scriptedRemediation {
	t.Helper()

	inner := NewResubmission(env.repo, env.uow)
	scripted := &scriptedRemediation{Resubmission: inner, steps: steps}
	if len(steps) == 0 {
		scripted.steps = []func(context.Context, AttemptRequest) Result{inner.Attempt}
	}
	registry, err := NewRegistry(
		NewHumanEscalation(env.repo, env.uow, env.svc.nextLogID),
		scripted,
		NewESimReprovision(env.repo, env.uow, env.svc.nextActivationCode),
		NewSwitchReconfigure(env.repo, env.uow),
	)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	env.svc.registry = registry
	env.svc.validator = NewValidator(env.repo, registry)
	return scripted
}

func TestRunOrderRetrySucceedsOnSecondAttempt(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-030", domain.StatusFailed, domain.CategoryNotSentForActivation)
	inner := NewResubmission(env.repo, env.uow)
	scripted := installRemediation(t, env, failStep("activation gateway busy"), inner.Attempt)

	outcome, err := env.svc.RunOrder(context.Background(), "ORD-030")
	if err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if outcome.Kind != OutcomeResolved || outcome.Attempts != 2 {
		t.Fatalf("outcome = %+v", outcome)
	}
	if scripted.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", scripted.calls)
	}

	want := []domain.EventType{domain.EventDispatchFailed, domain.EventDispatched, domain.EventResolved}
	if diff := cmp.Diff(want, env.eventTypes(t, "ORD-030")); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOrderAtMostTwoInvocationsThenEscalate(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-031", domain.StatusFailed, domain.CategoryNotSentForActivation)
	scripted := installRemediation(t, env, failStep("activation gateway busy"))

	outcome, err := env.svc.RunOrder(context.Background(), "ORD-031")
	if err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if scripted.calls != 2 {
		t.Fatalf("handler calls = %d, want 2", scripted.calls)
	}
	if outcome.Kind != OutcomeEscalated {
		t.Fatalf("outcome = %+v, want escalated", outcome)
	}

	events := env.eventTypes(t, "ORD-031")
	want := []domain.EventType{
		domain.EventDispatchFailed,
		domain.EventDispatchFailed,
		domain.EventHumanInterventionNeeded,
		domain.EventEscalated,
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
}

func TestRunOrderSuccessWithoutEffectFailsValidation(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-032", domain.StatusFailed, domain.CategoryNotSentForActivation)
	scripted := installRemediation(t, env, claimSuccessStep)

	outcome, err := env.svc.RunOrder(context.Background(), "ORD-032")
	if err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if scripted.calls != 2 || outcome.Kind != OutcomeEscalated {
		t.Fatalf("calls = %d outcome = %+v", scripted.calls, outcome)
	}

	want := []domain.EventType{
		domain.EventDispatched,
		domain.EventValidationFailed,
		domain.EventDispatched,
		domain.EventValidationFailed,
		domain.EventHumanInterventionNeeded,
		domain.EventEscalated,
	}
	if diff := cmp.Diff(want, env.eventTypes(t, "ORD-032")); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	if order := env.order(t, "ORD-032"); order.Status != domain.StatusFailed || order.ResolvedBy != "" {
		t.Fatalf("order = %+v, want untouched Failed", order)
	}
}

func TestRunOrderNoRetryWhenDisabled(t *testing.T) {
	env := setupService(t, nil)
	env.svc.opts.MaxRetriesPerCategory = 0
	env.seedOrder(t, "ORD-033", domain.StatusFailed, domain.CategoryNotSentForActivation)
	scripted := installRemediation(t, env, failStep("activation gateway busy"))

	if _, err := env.svc.RunOrder(context.Background(), "ORD-033"); err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if scripted.calls != 1 {
		t.Fatalf("handler calls = %d, want 1", scripted.calls)
	}
}

// flakyReadStore fails the first failures GetOrder calls, then delegates.
type flakyReadStore struct {
	ports.OrderReadStore
	mu       sync.Mutex
	failures int
}

func (s *flakyReadStore) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	s.mu.Lock()
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()
	if fail {
		return domain.Order{}, errors.New("database is locked")
	}
	return s.OrderReadStore.GetOrder(ctx, orderID)
}

func TestRunOrderResolvesWhenValidationPassesAfterFailedRetry(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-034", domain.StatusFailed, domain.CategoryNotSentForActivation)
	env.svc.validator = NewValidator(&flakyReadStore{OrderReadStore: env.repo, failures: 1}, env.svc.registry)

	outcome, err := env.svc.RunOrder(context.Background(), "ORD-034")
	if err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if outcome.Kind != OutcomeResolved || outcome.Attempts != 2 {
		t.Fatalf("outcome = %+v, want resolved after 2 attempts", outcome)
	}

	want := []domain.EventType{
		domain.EventDispatched,
		domain.EventValidationFailed,
		domain.EventDispatchFailed,
		domain.EventResolved,
	}
	if diff := cmp.Diff(want, env.eventTypes(t, "ORD-034")); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	order := env.order(t, "ORD-034")
	if order.Status != domain.StatusCompleted || order.Category != domain.CategoryNone {
		t.Fatalf("order = %+v, want Completed with cleared category", order)
	}
	if order.ResolvedBy != HandlerResubmission || order.IsEscalated() {
		t.Fatalf("order = %+v, want resolved by resubmission and not escalated", order)
	}
}

func TestRunOrderHandlerTimeoutRetriesThenEscalatesAsInfra(t *testing.T) {
	env := setupService(t, nil)
	env.svc.opts.HandlerTimeout = 50 * time.Millisecond
	env.seedOrder(t, "ORD-035", domain.StatusFailed, domain.CategoryNotSentForActivation)
	inner := NewResubmission(env.repo, env.uow)
	blocking := func(ctx context.Context, req AttemptRequest) Result {
		<-ctx.Done()
		return inner.Attempt(ctx, req)
	}
	scripted := installRemediation(t, env, blocking)

	outcome, err := env.svc.RunOrder(context.Background(), "ORD-035")
	if err != nil {
		t.Fatalf("RunOrder() error = %v", err)
	}
	if scripted.calls != 2 || outcome.Kind != OutcomeEscalated {
		t.Fatalf("calls = %d outcome = %+v", scripted.calls, outcome)
	}

	logs, err := env.repo.GetLogs(context.Background(), "ORD-035")
	if err != nil {
		t.Fatalf("GetLogs() error = %v", err)
	}
	got := make([]domain.EventType, 0, len(logs))
	for _, entry := range logs {
		got = append(got, entry.EventType)
	}
	want := []domain.EventType{
		domain.EventDispatchFailed,
		domain.EventDispatchFailed,
		domain.EventHumanInterventionNeeded,
		domain.EventEscalated,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("event types mismatch (-want +got):\n%s", diff)
	}
	for _, entry := range []domain.LogEntry{logs[0], logs[1], logs[3]} {
		if !strings.Contains(entry.Description, "infrastructure failure") {
			t.Fatalf("%s description = %q, want infrastructure failure", entry.EventType, entry.Description)
		}
	}
	if order := env.order(t, "ORD-035"); order.Status != domain.StatusFailed || !order.IsEscalated() {
		t.Fatalf("order = %+v, want escalated Failed", order)
	}
}

func TestHandlerSuccessSatisfiesValidator(t *testing.T) {
	testCases := []struct {
		name        string
		orderID     string
		category    domain.Category
		attachments []domain.Attachment
		handler     func(env *testEnv) Remediation
	}{
		{
			name:     "resubmission",
			orderID:  "ORD-040",
			category: domain.CategoryNotSentForActivation,
			handler: func(env *testEnv) Remediation {
				return NewResubmission(env.repo, env.uow)
			},
		},
		{
			name:        "esim reprovision",
			orderID:     "ORD-041",
			category:    domain.CategoryEsimIssue,
			attachments: []domain.Attachment{failedESim("ORD-041")},
			handler: func(env *testEnv) Remediation {
				return NewESimReprovision(env.repo, env.uow, env.svc.nextActivationCode)
			},
		},
		{
			name:        "switch reconfigure",
			orderID:     "ORD-042",
			category:    domain.CategorySwitchIssue,
			attachments: []domain.Attachment{failedSwitch("ORD-042")},
			handler: func(env *testEnv) Remediation {
				return NewSwitchReconfigure(env.repo, env.uow)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupService(t, nil)
			env.seedOrder(t, tc.orderID, domain.StatusFailed, tc.category, tc.attachments...)
			ctx := context.Background()

			if verdict := env.svc.validator.Check(ctx, tc.orderID, tc.category); verdict.Pass {
				t.Fatalf("Check() before Attempt = %+v, want FAIL", verdict)
			}

			handler := tc.handler(env)
			res := handler.Attempt(ctx, AttemptRequest{
				Order:    env.order(t, tc.orderID),
				Category: tc.category,
				Attempt:  1,
				At:       seedTime.Add(time.Minute),
			})
			if !res.Success || res.Err != nil {
				t.Fatalf("Attempt() = %+v, want success", res)
			}

			verdict := env.svc.validator.Check(ctx, tc.orderID, tc.category)
			if !verdict.Pass {
				t.Fatalf("Check() after Attempt = %+v, want PASS", verdict)
			}
		})
	}
}
