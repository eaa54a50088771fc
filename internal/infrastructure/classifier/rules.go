package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"fallout/internal/domain/fallout"
	"fallout/internal/errs"
	"fallout/internal/ports"
)

type ruleConfig struct {
	Category     string   `toml:"category"`
	Reported     []string `toml:"reported"`
	ServiceTypes []string `toml:"service_types"`
	ESimStatus   []string `toml:"esim_status"`
	SwitchStatus []string `toml:"switch_status"`
	Missing      []string `toml:"missing"`
}

type rulesFile struct {
	Version int          `toml:"version"`
	Rules   []ruleConfig `toml:"rules"`
}

// Rule matches when every non-empty matcher matches. Matchers compare
// case-insensitively.
type Rule struct {
	Category     fallout.Category
	Reported     []string
	ServiceTypes []string
	ESimStatus   []string
	SwitchStatus []string
	Missing      []fallout.AttachmentKind
}

// RulesClassifier is a first-match rules table. When nothing matches, a
// known reported category is kept and anything else becomes OtherIssue.
type RulesClassifier struct {
	rules []Rule
}

var _ ports.Classifier = (*RulesClassifier)(nil)

// DefaultRules echoes the category reported by the activation system and
// falls back to attachment state for orders that arrive unlabeled.
func DefaultRules() []Rule {
	return []Rule{
		{Category: fallout.CategoryNotSentForActivation, Reported: []string{string(fallout.CategoryNotSentForActivation)}},
		{Category: fallout.CategoryEsimIssue, Reported: []string{string(fallout.CategoryEsimIssue)}},
		{Category: fallout.CategorySwitchIssue, Reported: []string{string(fallout.CategorySwitchIssue)}},
		{Category: fallout.CategoryOtherIssue, Reported: []string{string(fallout.CategoryOtherIssue)}},
		{Category: fallout.CategoryEsimIssue, ESimStatus: []string{fallout.ESimFailed}},
		{Category: fallout.CategorySwitchIssue, SwitchStatus: []string{fallout.SwitchFailed, "Config Failed", "Port Error", "Route Failed"}},
	}
}

func NewRulesClassifier(rules []Rule) *RulesClassifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RulesClassifier{rules: rules}
}

// LoadRulesClassifier reads a TOML rules file. An empty path selects
// DefaultRules.
func LoadRulesClassifier(path string) (*RulesClassifier, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return NewRulesClassifier(nil), nil
	}

	raw, err := os.ReadFile(trimmed)
	if err != nil {
		return nil, errs.Wrapf(err, "read rules file %q", trimmed)
	}
	rules, err := ParseRules(raw)
	if err != nil {
		return nil, errs.Wrapf(err, "parse rules file %q", trimmed)
	}
	return NewRulesClassifier(rules), nil
}

func ParseRules(raw []byte) ([]Rule, error) {
	var file rulesFile
	if err := toml.Unmarshal(raw, &file); err != nil {
		return nil, err
	}
	if file.Version != 0 && file.Version != 1 {
		return nil, fmt.Errorf("unsupported rules version %d", file.Version)
	}
	if len(file.Rules) == 0 {
		return nil, errors.New("rules file has no [[rules]] entries")
	}

	rules := make([]Rule, 0, len(file.Rules))
	for i, item := range file.Rules {
		category, known := fallout.ParseCategory(item.Category)
		if !known {
			return nil, fmt.Errorf("rules[%d].category %q is not a known category", i, item.Category)
		}
		rule := Rule{
			Category:     category,
			Reported:     item.Reported,
			ServiceTypes: item.ServiceTypes,
			ESimStatus:   item.ESimStatus,
			SwitchStatus: item.SwitchStatus,
		}
		for _, missing := range item.Missing {
			kind, err := fallout.ParseAttachmentKind(missing)
			if err != nil {
				return nil, fmt.Errorf("rules[%d].missing: %w", i, err)
			}
			rule.Missing = append(rule.Missing, kind)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func (c *RulesClassifier) Name() string {
	return "rules"
}

func (c *RulesClassifier) Classify(ctx context.Context, state fallout.RemediationState) (fallout.Category, error) {
	if ctx == nil {
		return fallout.CategoryNone, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return fallout.CategoryNone, errs.Wrap(err, "check context")
	}

	for _, rule := range c.rules {
		if rule.matches(state) {
			return rule.Category, nil
		}
	}

	if reported, known := fallout.ParseCategory(string(state.Order.Category)); known {
		return reported, nil
	}
	return fallout.CategoryOtherIssue, nil
}

func (r Rule) matches(state fallout.RemediationState) bool {
	matchedAny := false

	if len(r.Reported) > 0 {
		reported, _ := fallout.ParseCategory(string(state.Order.Category))
		if reported == fallout.CategoryNone || !containsLabel(r.Reported, func(label string) bool {
			parsed, _ := fallout.ParseCategory(label)
			return parsed == reported
		}) {
			return false
		}
		matchedAny = true
	}
	if len(r.ServiceTypes) > 0 {
		if !containsFold(r.ServiceTypes, string(state.Order.ServiceType)) {
			return false
		}
		matchedAny = true
	}
	if len(r.ESimStatus) > 0 {
		if state.ESim == nil || !containsFold(r.ESimStatus, state.ESim.Status) {
			return false
		}
		matchedAny = true
	}
	if len(r.SwitchStatus) > 0 {
		if state.Switch == nil || !containsFold(r.SwitchStatus, state.Switch.Status) {
			return false
		}
		matchedAny = true
	}
	for _, kind := range r.Missing {
		switch kind {
		case fallout.AttachmentESim:
			if state.ESim != nil {
				return false
			}
		case fallout.AttachmentSwitch:
			if state.Switch != nil {
				return false
			}
		}
		matchedAny = true
	}
	return matchedAny
}

func containsFold(items []string, value string) bool {
	return containsLabel(items, func(item string) bool {
		return strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(value))
	})
}

func containsLabel(items []string, match func(string) bool) bool {
	for _, item := range items {
		if match(item) {
			return true
		}
	}
	return false
}
