package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "database:\n  dsn: "+filepath.Join(t.TempDir(), "fallout.sqlite")+"\n")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Workflow.MaxRetriesPerCategory != 1 {
		t.Fatalf("max_retries_per_category = %d, want 1", cfg.Workflow.MaxRetriesPerCategory)
	}
	if cfg.Workflow.LeaseTTL != 2*time.Minute {
		t.Fatalf("lease_ttl = %s, want 2m", cfg.Workflow.LeaseTTL)
	}
	if cfg.Classifier.Driver != "rules" || cfg.Cache.Driver != "sqlite" || cfg.Audit.Publisher != "none" {
		t.Fatalf("drivers = %s/%s/%s", cfg.Classifier.Driver, cfg.Cache.Driver, cfg.Audit.Publisher)
	}
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
app:
  name: fallout-test
workflow:
  lease_ttl: 45s
  workers: 2
audit:
  publisher: kafka
  kafka:
    brokers: ["127.0.0.1:9092"]
    topic: audit
`)
	t.Setenv("FALLOUT_WORKFLOW_WORKER_ID", "node-7")

	cfg, err := Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.App.Name != "fallout-test" || cfg.Workflow.Workers != 2 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.Workflow.LeaseTTL != 45*time.Second {
		t.Fatalf("lease_ttl = %s, want 45s", cfg.Workflow.LeaseTTL)
	}
	if cfg.Workflow.WorkerID != "node-7" {
		t.Fatalf("worker_id = %q, want env override", cfg.Workflow.WorkerID)
	}
	if cfg.Audit.Kafka.Topic != "audit" || len(cfg.Audit.Kafka.Brokers) != 1 {
		t.Fatalf("kafka = %+v", cfg.Audit.Kafka)
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "bad classifier", body: "classifier:\n  driver: magic\n", wantErr: "validate config"},
		{name: "openai without key", body: "classifier:\n  driver: openai\n", wantErr: "api_key"},
		{name: "nats without url", body: "audit:\n  publisher: nats\n", wantErr: "audit.nats.url"},
		{name: "negative retries", body: "workflow:\n  max_retries_per_category: -1\n", wantErr: "validate config"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(context.Background(), writeConfig(t, tc.body))
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("Load() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(context.Background(), filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("Load() expected error for missing explicit file")
	}
}
