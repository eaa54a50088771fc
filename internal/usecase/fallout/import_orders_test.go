package fallout

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	domain "fallout/internal/domain/fallout"
)

const sampleImport = `
orders:
  - order_id: ORD-001
    customer_id: CUST-001
    service_type: Mobile
    status: Failed
    fallout_category: NOT_SENT_FOR_ACTIVATION
  - order_id: ORD-002
    customer_id: CUST-002
    service_type: Mobile
    status: Failed
    fallout_category: EsimIssue
    esim:
      esim_id: ESIM-002
      iccid: "8901000000000000002"
      eid: "89049032000000000000000000000002"
      status: Failed
      profile_status: Disabled
  - order_id: ORD-003
    customer_id: CUST-003
    service_type: Internet
    status: Failed
    fallout_category: SWITCH_ISSUE
    switch:
      switch_id: SW-003
      switch_name: edge-sw-03
      port_id: ge-0/0/3
      config_status: Port Error
`

func TestImportOrdersCreatesOnce(t *testing.T) {
	env := setupService(t, nil)
	ctx := context.Background()

	summary, err := env.svc.ImportOrders(ctx, strings.NewReader(sampleImport))
	if err != nil {
		t.Fatalf("ImportOrders() error = %v", err)
	}
	if diff := cmp.Diff([]string{"ORD-001", "ORD-002", "ORD-003"}, summary.Created); diff != "" {
		t.Fatalf("created mismatch (-want +got):\n%s", diff)
	}

	order := env.order(t, "ORD-002")
	if order.Category != domain.CategoryEsimIssue {
		t.Fatalf("ORD-002 category = %q, want ESIM_ISSUE", order.Category)
	}
	esim, err := env.repo.GetAttachment(ctx, domain.AttachmentESim, "ORD-002")
	if err != nil || esim == nil {
		t.Fatalf("GetAttachment(esim) = %v, %v", esim, err)
	}
	if esim.ProfileStatus != "Disabled" {
		t.Fatalf("profile_status = %q", esim.ProfileStatus)
	}
	sw, err := env.repo.GetAttachment(ctx, domain.AttachmentSwitch, "ORD-003")
	if err != nil || sw == nil || sw.Status != "Port Error" {
		t.Fatalf("GetAttachment(switch) = %+v, %v", sw, err)
	}

	again, err := env.svc.ImportOrders(ctx, strings.NewReader(sampleImport))
	if err != nil {
		t.Fatalf("ImportOrders() second error = %v", err)
	}
	if len(again.Created) != 0 || len(again.Skipped) != 3 {
		t.Fatalf("second import = %+v, want all skipped", again)
	}
}

func TestImportOrdersRejectsInvalidDocuments(t *testing.T) {
	testCases := []struct {
		name string
		doc  string
	}{
		{
			name: "empty",
			doc:  "orders: []\n",
		},
		{
			name: "bad status",
			doc: `
orders:
  - order_id: ORD-900
    customer_id: CUST-900
    service_type: Mobile
    status: Lost
`,
		},
		{
			name: "unknown field",
			doc: `
orders:
  - order_id: ORD-901
    customer_id: CUST-901
    service_type: Mobile
    status: Failed
    priority: high
`,
		},
		{
			name: "active esim without code",
			doc: `
orders:
  - order_id: ORD-902
    customer_id: CUST-902
    service_type: Mobile
    status: Failed
    esim:
      esim_id: ESIM-902
      status: Active
`,
		},
		{
			name: "completed without resolver",
			doc: `
orders:
  - order_id: ORD-903
    customer_id: CUST-903
    service_type: TV
    status: Completed
`,
		},
		{
			name: "completed with category",
			doc: `
orders:
  - order_id: ORD-905
    customer_id: CUST-905
    service_type: Mobile
    status: Completed
    resolved_by: resubmission
    fallout_category: NOT_SENT_FOR_ACTIVATION
`,
		},
		{
			name: "duplicate id",
			doc: `
orders:
  - order_id: ORD-904
    customer_id: CUST-904
    service_type: TV
    status: Failed
  - order_id: ORD-904
    customer_id: CUST-904
    service_type: TV
    status: Failed
`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := setupService(t, nil)
			if _, err := env.svc.ImportOrders(context.Background(), strings.NewReader(tc.doc)); err == nil {
				t.Fatalf("ImportOrders() expected error")
			}
			items, err := env.svc.ListOrders(context.Background(), ListOrdersInput{})
			if err != nil {
				t.Fatalf("ListOrders() error = %v", err)
			}
			if len(items) != 0 {
				t.Fatalf("rejected import wrote %d orders", len(items))
			}
		})
	}
}
