package fallout

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/xuri/excelize/v2"

	domain "fallout/internal/domain/fallout"
	"fallout/internal/ports"
)

func seedAuditTrail(t *testing.T, env *testEnv) {
	t.Helper()

	env.seedOrder(t, "ORD-501", domain.StatusFailed, domain.CategoryNotSentForActivation)
	env.seedOrder(t, "ORD-502", domain.StatusFailed, domain.CategoryOtherIssue)
	if _, err := env.svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
}

func TestExportAuditJSONAndJSONL(t *testing.T) {
	env := setupService(t, nil)
	seedAuditTrail(t, env)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := env.svc.ExportAudit(ctx, &buf, ExportAuditInput{Format: ExportJSON})
	if err != nil {
		t.Fatalf("ExportAudit(json) error = %v", err)
	}
	var records []ports.AuditRecord
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("decode json export: %v", err)
	}
	if n != 4 || len(records) != 4 {
		t.Fatalf("json export = %d records (n=%d), want 4", len(records), n)
	}
	for i := 1; i < len(records); i++ {
		if records[i].Seq <= records[i-1].Seq {
			t.Fatalf("records not in sequence order at %d", i)
		}
	}

	buf.Reset()
	n, err = env.svc.ExportAudit(ctx, &buf, ExportAuditInput{Format: ExportJSONL, OrderID: "ORD-501"})
	if err != nil {
		t.Fatalf("ExportAudit(jsonl) error = %v", err)
	}
	scanner := bufio.NewScanner(&buf)
	lines := 0
	for scanner.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode jsonl line: %v", err)
		}
		for _, key := range []string{"log_id", "order_id", "event_type", "description", "timestamp"} {
			if _, ok := rec[key]; !ok {
				t.Fatalf("jsonl record missing %q: %v", key, rec)
			}
		}
		lines++
	}
	if n != 2 || lines != 2 {
		t.Fatalf("jsonl export lines = %d (n=%d), want 2", lines, n)
	}

	if _, err := env.svc.ExportAudit(ctx, &buf, ExportAuditInput{Format: "csv"}); err == nil {
		t.Fatalf("ExportAudit(csv) expected error")
	}
	if _, err := env.svc.ExportAudit(ctx, &buf, ExportAuditInput{OrderID: "ORD-404"}); err == nil {
		t.Fatalf("ExportAudit(missing order) expected error")
	}
}

func TestExportAuditXLSX(t *testing.T) {
	env := setupService(t, nil)
	seedAuditTrail(t, env)

	var buf bytes.Buffer
	n, err := env.svc.ExportAudit(context.Background(), &buf, ExportAuditInput{Format: ExportXLSX})
	if err != nil {
		t.Fatalf("ExportAudit(xlsx) error = %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(exportSheetName)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != n+1 {
		t.Fatalf("rows = %d, want header + %d", len(rows), n)
	}
	if rows[0][1] != "log_id" || rows[0][5] != "timestamp" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	for _, row := range rows[1:] {
		if row[2] != "ORD-501" && row[2] != "ORD-502" {
			t.Fatalf("unexpected order id in row %v", row)
		}
	}
}
