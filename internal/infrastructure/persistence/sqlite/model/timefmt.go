package model

import (
	"strings"
	"time"
)

// TimeLayout is fixed-width UTC so stored timestamps compare correctly as
// text.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func FormatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := FormatTime(*t)
	return &s
}

// ParseTime accepts TimeLayout and RFC3339 variants written by imports.
func ParseTime(raw string) (time.Time, error) {
	trimmed := strings.TrimSpace(raw)
	if t, err := time.Parse(TimeLayout, trimmed); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339Nano, trimmed)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func ParseTimePtr(raw *string) (*time.Time, error) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, nil
	}
	t, err := ParseTime(*raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// All lists every table owned by the fallout store.
func All() []any {
	return []any{&Order{}, &ESim{}, &Switch{}, &FalloutLog{}, &KV{}}
}
