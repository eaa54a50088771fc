package fallout

import (
	"strings"
	"testing"

	domain "fallout/internal/domain/fallout"
)

func TestRegistryClosedMapping(t *testing.T) {
	env := setupService(t, nil)
	registry := env.svc.Registry()

	testCases := []struct {
		category domain.Category
		want     string
	}{
		{category: domain.CategoryNotSentForActivation, want: HandlerResubmission},
		{category: domain.CategoryEsimIssue, want: HandlerESimReprovision},
		{category: domain.CategorySwitchIssue, want: HandlerSwitchReconfigure},
		{category: domain.CategoryOtherIssue, want: HandlerHuman},
		{category: domain.CategoryNone, want: HandlerHuman},
		{category: domain.Category("BILLING_GLITCH"), want: HandlerHuman},
	}
	for _, tc := range testCases {
		t.Run(tc.category.String(), func(t *testing.T) {
			if got := registry.Resolve(tc.category).Name(); got != tc.want {
				t.Fatalf("Resolve(%q) = %s, want %s", tc.category, got, tc.want)
			}
		})
	}

	if got := len(registry.Categories()); got != len(domain.AutomatedCategories()) {
		t.Fatalf("Categories() = %d entries, want %d", got, len(domain.AutomatedCategories()))
	}
}

func TestNewRegistryRejectsIncompleteMapping(t *testing.T) {
	env := setupService(t, nil)
	human := NewHumanEscalation(env.repo, env.uow, nil)
	resubmission := NewResubmission(env.repo, env.uow)
	esim := NewESimReprovision(env.repo, env.uow, nil)
	sw := NewSwitchReconfigure(env.repo, env.uow)

	testCases := []struct {
		name         string
		human        Handler
		remediations []Remediation
		wantErr      string
	}{
		{name: "missing human", remediations: []Remediation{resubmission, esim, sw}, wantErr: "human escalation handler is required"},
		{name: "missing switch", human: human, remediations: []Remediation{resubmission, esim}, wantErr: "has no handler"},
		{name: "duplicate", human: human, remediations: []Remediation{resubmission, esim, sw, NewSwitchReconfigure(env.repo, env.uow)}, wantErr: "has two handlers"},
		{name: "nil remediation", human: human, remediations: []Remediation{resubmission, nil}, wantErr: "nil remediation"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewRegistry(tc.human, tc.remediations...)
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("NewRegistry() error = %v, want %q", err, tc.wantErr)
			}
		})
	}
}
