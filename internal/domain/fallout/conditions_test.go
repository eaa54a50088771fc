package fallout

import (
	"errors"
	"testing"
)

func failedOrder(category Category) Order {
	return Order{
		OrderID:     "ORD-100",
		CustomerID:  "CUST-1",
		ServiceType: ServiceMobile,
		Status:      StatusFailed,
		Category:    category,
	}
}

func TestPreconditions(t *testing.T) {
	esim := &Attachment{Kind: AttachmentESim, AttachmentID: "ESIM-1", Status: ESimFailed}
	sw := &Attachment{Kind: AttachmentSwitch, AttachmentID: "SW-1", Status: "Port Error"}

	testCases := []struct {
		name    string
		cond    Condition
		state   RemediationState
		wantErr error
	}{
		{name: "resubmission ok", cond: ResubmissionPrecondition, state: RemediationState{Order: failedOrder(CategoryNotSentForActivation)}},
		{name: "resubmission wrong category", cond: ResubmissionPrecondition, state: RemediationState{Order: failedOrder(CategoryEsimIssue)}, wantErr: ErrCategoryMismatch},
		{name: "esim ok", cond: ESimPrecondition, state: RemediationState{Order: failedOrder(CategoryEsimIssue), ESim: esim}},
		{name: "esim missing attachment", cond: ESimPrecondition, state: RemediationState{Order: failedOrder(CategoryEsimIssue)}, wantErr: ErrESimMissing},
		{name: "switch ok", cond: SwitchPrecondition, state: RemediationState{Order: failedOrder(CategorySwitchIssue), Switch: sw}},
		{name: "switch missing attachment", cond: SwitchPrecondition, state: RemediationState{Order: failedOrder(CategorySwitchIssue)}, wantErr: ErrSwitchMissing},
		{name: "not failed", cond: SwitchPrecondition, state: RemediationState{Order: Order{Status: StatusCompleted, Category: CategorySwitchIssue}, Switch: sw}, wantErr: ErrNotFailed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := testCase.cond(testCase.state)
			if testCase.wantErr == nil {
				if err != nil {
					t.Fatalf("condition error = %v", err)
				}
				return
			}
			if !errors.Is(err, testCase.wantErr) {
				t.Fatalf("condition error = %v, want %v", err, testCase.wantErr)
			}
		})
	}
}

func TestPostconditions(t *testing.T) {
	done := Order{OrderID: "ORD-100", Status: StatusCompleted, ResolvedBy: "esim_reprovision"}

	if err := ResubmissionPostcondition(RemediationState{Order: done}); err != nil {
		t.Fatalf("ResubmissionPostcondition() error = %v", err)
	}
	if err := ResubmissionPostcondition(RemediationState{Order: failedOrder(CategoryNotSentForActivation)}); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("ResubmissionPostcondition(failed) error = %v", err)
	}

	reprovisioned := &Attachment{Kind: AttachmentESim, AttachmentID: "ESIM-1", Status: ESimReprovisioned, ActivationCode: "LPA:abc"}
	if err := ESimPostcondition(RemediationState{Order: done, ESim: reprovisioned}); err != nil {
		t.Fatalf("ESimPostcondition() error = %v", err)
	}
	active := &Attachment{Kind: AttachmentESim, AttachmentID: "ESIM-1", Status: ESimActive, ActivationCode: "LPA:abc"}
	if err := ESimPostcondition(RemediationState{Order: done, ESim: active}); !errors.Is(err, ErrESimNotReprovision) {
		t.Fatalf("ESimPostcondition(active) error = %v", err)
	}

	configured := &Attachment{Kind: AttachmentSwitch, AttachmentID: "SW-1", Status: SwitchConfigured}
	if err := SwitchPostcondition(RemediationState{Order: done, Switch: configured}); err != nil {
		t.Fatalf("SwitchPostcondition() error = %v", err)
	}
	if err := SwitchPostcondition(RemediationState{Order: failedOrder(CategorySwitchIssue), Switch: configured}); !errors.Is(err, ErrNotCompleted) {
		t.Fatalf("SwitchPostcondition(failed order) error = %v", err)
	}
}

func TestConditionMessage(t *testing.T) {
	if got := ConditionMessage(ESimPrecondition(RemediationState{Order: failedOrder(CategoryEsimIssue)})); got != "No eSIM profile found" {
		t.Fatalf("ConditionMessage() = %q", got)
	}
	if got := ConditionMessage(nil); got != "" {
		t.Fatalf("ConditionMessage(nil) = %q", got)
	}
}

func TestValidateOrder(t *testing.T) {
	valid := failedOrder(CategoryEsimIssue)
	if err := ValidateOrder(valid); err != nil {
		t.Fatalf("ValidateOrder(valid) error = %v", err)
	}

	resolvedWithoutStatus := valid
	resolvedWithoutStatus.ResolvedBy = "human"
	if err := ValidateOrder(resolvedWithoutStatus); !errors.Is(err, ErrOrderInvariant) {
		t.Fatalf("ValidateOrder(resolved_by on Failed) error = %v", err)
	}

	completedWithoutResolver := valid
	completedWithoutResolver.Status = StatusCompleted
	if err := ValidateOrder(completedWithoutResolver); !errors.Is(err, ErrOrderInvariant) {
		t.Fatalf("ValidateOrder(Completed without resolver) error = %v", err)
	}

	completedWithCategory := valid
	completedWithCategory.Status = StatusCompleted
	completedWithCategory.ResolvedBy = "resubmission"
	if err := ValidateOrder(completedWithCategory); !errors.Is(err, ErrOrderInvariant) {
		t.Fatalf("ValidateOrder(Completed with category) error = %v", err)
	}
	completedWithCategory.Category = CategoryNone
	if err := ValidateOrder(completedWithCategory); err != nil {
		t.Fatalf("ValidateOrder(Completed without category) error = %v", err)
	}

	pendingWithCategory := valid
	pendingWithCategory.Status = StatusPending
	if err := ValidateOrder(pendingWithCategory); !errors.Is(err, ErrOrderInvariant) {
		t.Fatalf("ValidateOrder(Pending with category) error = %v", err)
	}

	badService := valid
	badService.ServiceType = "Fax"
	if err := ValidateOrder(badService); !errors.Is(err, ErrInvalidServiceType) {
		t.Fatalf("ValidateOrder(bad service) error = %v", err)
	}
}

func TestValidateAttachment(t *testing.T) {
	if err := ValidateAttachment(Attachment{Kind: AttachmentESim, AttachmentID: "E1", Status: ESimActive}); !errors.Is(err, ErrInvalidAttachment) {
		t.Fatalf("active esim without code error = %v", err)
	}
	if err := ValidateAttachment(Attachment{Kind: AttachmentSwitch, AttachmentID: "S1", Status: "Route Failed"}); err != nil {
		t.Fatalf("switch error variant error = %v", err)
	}
	if _, err := ParseAttachmentKind("modem"); !errors.Is(err, ErrInvalidAttachmentKind) {
		t.Fatalf("ParseAttachmentKind(modem) error = %v", err)
	}
}
