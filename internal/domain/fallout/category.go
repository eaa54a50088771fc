package fallout

import (
	"sort"
	"strings"
)

// Category is the classified root cause of a fallout. Stored values that are
// not one of the known constants are kept verbatim and treated as unknown.
type Category string

const (
	CategoryNone                 Category = ""
	CategoryNotSentForActivation Category = "NOT_SENT_FOR_ACTIVATION"
	CategoryEsimIssue            Category = "ESIM_ISSUE"
	CategorySwitchIssue          Category = "SWITCH_ISSUE"
	CategoryOtherIssue           Category = "OTHER_ISSUE"
)

var knownCategories = map[Category]struct{}{
	CategoryNotSentForActivation: {},
	CategoryEsimIssue:            {},
	CategorySwitchIssue:          {},
	CategoryOtherIssue:           {},
}

var automatedCategories = []Category{
	CategoryNotSentForActivation,
	CategoryEsimIssue,
	CategorySwitchIssue,
}

var categoryAliases = map[string]Category{
	"notsentforactivation": CategoryNotSentForActivation,
	"esimissue":            CategoryEsimIssue,
	"switchissue":          CategorySwitchIssue,
	"otherissue":           CategoryOtherIssue,
}

// ParseCategory normalizes a label. It accepts the stored form
// (ESIM_ISSUE), the camel form (EsimIssue) and lower/kebab variants.
// The second return value is false when the label is not a known category.
func ParseCategory(raw string) (Category, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CategoryNone, false
	}

	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(trimmed))
	if c, ok := categoryAliases[key]; ok {
		return c, true
	}
	return Category(trimmed), false
}

func (c Category) IsKnown() bool {
	_, ok := knownCategories[c]
	return ok
}

// IsAutomated reports whether an automated remediation exists for c.
// OtherIssue and every unknown value are not automated.
func (c Category) IsAutomated() bool {
	for _, item := range automatedCategories {
		if item == c {
			return true
		}
	}
	return false
}

func (c Category) String() string {
	if c == CategoryNone {
		return "NONE"
	}
	return string(c)
}

// AutomatedCategories returns the categories that must each have exactly one
// automated handler.
func AutomatedCategories() []Category {
	out := make([]Category, len(automatedCategories))
	copy(out, automatedCategories)
	return out
}

func KnownCategories() []string {
	out := make([]string, 0, len(knownCategories))
	for c := range knownCategories {
		out = append(out, string(c))
	}
	sort.Strings(out)
	return out
}
