package fallout

import (
	"context"
	"errors"
	"testing"

	"fallout/internal/ports"
)

type recordingPublisher struct {
	batches [][]ports.AuditRecord
	err     error
}

func (p *recordingPublisher) Name() string { return "recording" }

func (p *recordingPublisher) Publish(_ context.Context, records []ports.AuditRecord) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, append([]ports.AuditRecord(nil), records...))
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func TestRelayAuditOnceAdvancesCursor(t *testing.T) {
	env := setupService(t, nil)
	seedAuditTrail(t, env)
	publisher := &recordingPublisher{}
	env.svc.publisher = publisher
	ctx := context.Background()

	first, err := env.svc.RelayAuditOnce(ctx, RelayInput{BatchSize: 3})
	if err != nil {
		t.Fatalf("RelayAuditOnce() error = %v", err)
	}
	if first.Published != 3 || first.From != 0 {
		t.Fatalf("first relay = %+v", first)
	}

	second, err := env.svc.RelayAuditOnce(ctx, RelayInput{BatchSize: 3})
	if err != nil {
		t.Fatalf("RelayAuditOnce() second error = %v", err)
	}
	if second.Published != 1 || second.From != first.To {
		t.Fatalf("second relay = %+v, want continuation from %d", second, first.To)
	}

	idle, err := env.svc.RelayAuditOnce(ctx, RelayInput{BatchSize: 3})
	if err != nil {
		t.Fatalf("RelayAuditOnce() idle error = %v", err)
	}
	if idle.Published != 0 {
		t.Fatalf("idle relay published %d", idle.Published)
	}

	seen := map[string]bool{}
	for _, batch := range publisher.batches {
		for _, rec := range batch {
			if seen[rec.LogID] {
				t.Fatalf("record %s published twice", rec.LogID)
			}
			seen[rec.LogID] = true
		}
	}
	if len(seen) != 4 {
		t.Fatalf("published %d distinct records, want 4", len(seen))
	}
}

func TestRelayAuditOnceKeepsCursorOnPublishError(t *testing.T) {
	env := setupService(t, nil)
	seedAuditTrail(t, env)
	publisher := &recordingPublisher{err: errors.New("broker unavailable")}
	env.svc.publisher = publisher
	ctx := context.Background()

	if _, err := env.svc.RelayAuditOnce(ctx, RelayInput{}); err == nil {
		t.Fatalf("RelayAuditOnce() expected error")
	}
	if _, found, _ := env.cache.Get(ctx, cacheRelayCursorKey(publisher.Name())); found {
		t.Fatalf("cursor must not advance on publish error")
	}

	publisher.err = nil
	total, err := env.svc.RunAuditRelay(ctx, RelayLoopInput{BatchSize: 2, Once: true})
	if err != nil {
		t.Fatalf("RunAuditRelay() error = %v", err)
	}
	if total != 4 {
		t.Fatalf("RunAuditRelay() relayed %d, want 4", total)
	}
}

func TestRelayAuditOnceRequiresPublisher(t *testing.T) {
	env := setupService(t, nil)
	if _, err := env.svc.RelayAuditOnce(context.Background(), RelayInput{}); err == nil {
		t.Fatalf("RelayAuditOnce() expected error without publisher")
	}
}
