package attendance

import (
	"testing"
	"time"
)

func TestLatenessWindow(t *testing.T) {
	rule := DefaultLatenessRule()
	cases := []struct {
		hh, mm, ss int
		late       bool
	}{
		{7, 50, 0, false},
		{7, 50, 1, true},
		{9, 59, 0, true},
		{10, 0, 0, false},
		{4, 59, 0, false},
		{5, 0, 0, false},
		{23, 0, 0, false},
	}
	for _, c := range cases {
		ts := time.Date(2024, time.January, 2, c.hh, c.mm, c.ss, 0, time.UTC)
		if got := rule.IsLate(ts); got != c.late {
			t.Fatalf("IsLate(%s) = %v, want %v", ts.Format("15:04:05"), got, c.late)
		}
	}
}


func TestParseClock(t *testing.T) {
	got, err := ParseClock("07:50")
	if err != nil {
		t.Fatalf("parse clock: %v", err)
	}
	if got != DefaultLatenessRule().Cutoff {
		t.Fatalf("expected 07:50 cutoff, got %s", got)
	}
	if _, err := ParseClock("7.50"); err == nil {
		t.Fatalf("expected error for malformed clock")
	}
}
