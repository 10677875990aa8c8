package attendance

import (
	"fmt"
	"strings"
)

// DedupPolicy picks the representative punch when an employee has several on
// one calendar day.
type DedupPolicy string

const (
	// DedupFirstSeen keeps the first punch in file order.
	DedupFirstSeen DedupPolicy = "first"
	// DedupEarliest keeps the earliest punch of the day, in the slot of the
	// first one seen.
	DedupEarliest DedupPolicy = "earliest"
)

func ParseDedupPolicy(value string) (DedupPolicy, error) {
	switch DedupPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", DedupFirstSeen:
		return DedupFirstSeen, nil
	case DedupEarliest:
		return DedupEarliest, nil
	default:
		return "", fmt.Errorf("unknown dedup policy %q (want first or earliest)", value)
	}
}

// Deduplicate collapses records to one per (employee, calendar day). Order of
// the survivors follows their first appearance.
func Deduplicate(records []Record, policy DedupPolicy) []Record {
	out := make([]Record, 0, len(records))
	seen := make(map[dayKey]int, len(records))
	for _, r := range records {
		k := r.key()
		idx, ok := seen[k]
		if !ok {
			seen[k] = len(out)
			out = append(out, r)
			continue
		}
		if policy == DedupEarliest && r.Timestamp.Before(out[idx].Timestamp) {
			out[idx] = r
		}
	}
	return out
}
