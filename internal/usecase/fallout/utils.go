package fallout

import (
	"sort"
	"time"

	domain "fallout/internal/domain/fallout"
)

func sortedKeys(m map[string]string) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func lastTimestamp(logs []domain.LogEntry) time.Time {
	var last time.Time
	for _, entry := range logs {
		if entry.Timestamp.After(last) {
			last = entry.Timestamp
		}
	}
	return last
}

func cacheOrderOutcomeKey(orderID string) string {
	return "order_outcome:" + orderID
}

func cacheRelayCursorKey(publisher string) string {
	return "audit_relay_cursor:" + publisher
}

const cacheLastSweepKey = "runner:last_sweep"
