package attendance

import (
	"testing"
	"time"
)

func TestNaturalRosterOrder(t *testing.T) {
	records := []Record{
		punch("119", "A", 2024, time.January, 2, 7, 0),
		punch("13", "B", 2024, time.January, 2, 7, 0),
		punch("B2", "C", 2024, time.January, 2, 7, 0),
		punch("2", "D", 2024, time.January, 2, 7, 0),
		punch("b10", "E", 2024, time.January, 2, 7, 0),
	}
	roster := NewRoster(records)
	want := []string{"2", "13", "119", "B2", "b10"}
	for i, id := range want {
		if roster.IDs[i] != id {
			t.Fatalf("position %d: expected %s, got %v", i, id, roster.IDs)
		}
	}
	if roster.Name("missing") != "Unknown" {
		t.Fatalf("expected Unknown for missing employee")
	}
}
