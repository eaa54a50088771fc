package fallout

import (
	"errors"
	"fmt"
	"sort"

	domain "fallout/internal/domain/fallout"
)

// Registry is the closed category to handler mapping. It is checked once at
// construction: every automated category has exactly one remediation and
// everything else goes to the human handler.
type Registry struct {
	human        Handler
	remediations map[domain.Category]Remediation
}

func NewRegistry(human Handler, remediations ...Remediation) (*Registry, error) {
	if human == nil {
		return nil, errors.New("human escalation handler is required")
	}

	byCategory := make(map[domain.Category]Remediation, len(remediations))
	for _, rem := range remediations {
		if rem == nil {
			return nil, errors.New("nil remediation handler")
		}
		category := rem.Category()
		if !category.IsAutomated() {
			return nil, fmt.Errorf("handler %s registered for non-automated category %s", rem.Name(), category)
		}
		if existing, ok := byCategory[category]; ok {
			return nil, fmt.Errorf("category %s has two handlers: %s and %s", category, existing.Name(), rem.Name())
		}
		if rem.Precondition() == nil || rem.Postcondition() == nil {
			return nil, fmt.Errorf("handler %s must define both precondition and postcondition", rem.Name())
		}
		byCategory[category] = rem
	}

	for _, category := range domain.AutomatedCategories() {
		if _, ok := byCategory[category]; !ok {
			return nil, fmt.Errorf("category %s has no handler", category)
		}
	}

	return &Registry{human: human, remediations: byCategory}, nil
}

// Resolve never fails: OtherIssue and unknown values resolve to the human
// handler.
func (r *Registry) Resolve(category domain.Category) Handler {
	if rem, ok := r.remediations[category]; ok {
		return rem
	}
	return r.human
}

func (r *Registry) Remediation(category domain.Category) (Remediation, bool) {
	rem, ok := r.remediations[category]
	return rem, ok
}

func (r *Registry) Human() Handler {
	return r.human
}

// Names lists category to handler pairs for diagnostics.
func (r *Registry) Names() map[string]string {
	out := make(map[string]string, len(r.remediations)+1)
	for category, rem := range r.remediations {
		out[string(category)] = rem.Name()
	}
	out[string(domain.CategoryOtherIssue)] = r.human.Name()
	return out
}

func (r *Registry) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(r.remediations))
	for category := range r.remediations {
		out = append(out, category)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
