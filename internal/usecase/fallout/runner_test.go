package fallout

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "fallout/internal/domain/fallout"
)

func TestRunOnceProcessesBatch(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-101", domain.StatusFailed, domain.CategoryNotSentForActivation)
	env.seedOrder(t, "ORD-102", domain.StatusFailed, domain.CategoryEsimIssue, failedESim("ORD-102"))
	env.seedOrder(t, "ORD-103", domain.StatusFailed, domain.CategorySwitchIssue, failedSwitch("ORD-103"))
	env.seedOrder(t, "ORD-104", domain.StatusFailed, domain.CategoryOtherIssue)
	env.seedOrder(t, "ORD-105", domain.StatusCompleted, domain.CategoryNone)

	summary, err := env.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if summary.Candidates != 4 || summary.Resolved != 3 || summary.Escalated != 1 || summary.Errors != 0 {
		t.Fatalf("RunOnce() summary = %+v", summary)
	}

	last, found, err := env.svc.LastSweep(context.Background())
	if err != nil || !found {
		t.Fatalf("LastSweep() = %v, %v", found, err)
	}
	if last.Resolved != 3 {
		t.Fatalf("cached sweep = %+v", last)
	}

	again, err := env.svc.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() second error = %v", err)
	}
	if again.Candidates != 0 {
		t.Fatalf("second sweep candidates = %d, want 0", again.Candidates)
	}
	if got := env.eventTypes(t, "ORD-105"); len(got) != 0 {
		t.Fatalf("completed order entries = %v, want none", got)
	}
}

func TestRunWorkerOnce(t *testing.T) {
	env := setupService(t, nil)
	env.seedOrder(t, "ORD-110", domain.StatusFailed, domain.CategoryNotSentForActivation)

	if err := env.svc.RunWorker(context.Background(), WorkerInput{Once: true}); err != nil {
		t.Fatalf("RunWorker() error = %v", err)
	}
	if order := env.order(t, "ORD-110"); order.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want Completed", order.Status)
	}
}

func TestRunWorkerStopsOnCancel(t *testing.T) {
	env := setupService(t, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := env.svc.RunWorker(ctx, WorkerInput{PollInterval: 10 * time.Millisecond})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("RunWorker() error = %v, want deadline exceeded", err)
	}
}

func TestRunWorkerRequiresPollInterval(t *testing.T) {
	env := setupService(t, nil)
	if err := env.svc.RunWorker(context.Background(), WorkerInput{}); err == nil {
		t.Fatalf("RunWorker() expected error without poll interval")
	}
}
