package attendance

import (
	"fmt"
	"time"
)

// LatenessRule decides when a morning punch counts as late.
type LatenessRule struct {
	// Cutoff is the last on-time clock reading, as an offset from midnight.
	Cutoff time.Duration
	// Only punches whose hour lies in [WindowStartHour, WindowEndHour] are
	// judged; night and evening scans are ignored.
	WindowStartHour int
	WindowEndHour   int
}

func DefaultLatenessRule() LatenessRule {
	return LatenessRule{
		Cutoff:          7*time.Hour + 50*time.Minute,
		WindowStartHour: 5,
		WindowEndHour:   9,
	}
}

// ParseClock turns "07:50" or "07:50:00" into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, value); err == nil {
			return clockOf(t), nil
		}
	}
	return 0, fmt.Errorf("invalid clock time %q (want HH:MM or HH:MM:SS)", value)
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second +
		time.Duration(t.Nanosecond())
}

func (rule LatenessRule) Validate() error {
	if rule.WindowStartHour < 0 || rule.WindowEndHour > 23 || rule.WindowStartHour > rule.WindowEndHour {
		return fmt.Errorf("invalid morning window %02d..%02d", rule.WindowStartHour, rule.WindowEndHour)
	}
	if rule.Cutoff < 0 || rule.Cutoff >= 24*time.Hour {
		return fmt.Errorf("invalid lateness cutoff %s", rule.Cutoff)
	}
	return nil
}

func (rule LatenessRule) IsLate(ts time.Time) bool {
	hour := ts.Hour()
	if hour < rule.WindowStartHour || hour > rule.WindowEndHour {
		return false
	}
	return clockOf(ts) > rule.Cutoff
}

// LateArrival is a morning punch after the cutoff.
type LateArrival struct {
	EmployeeID   string
	EmployeeName string
	Timestamp    time.Time
}

// ClassifyLateness emits one LateArrival per late record, grouped by employee
// in roster order and in record order within an employee.
func ClassifyLateness(records []Record, roster Roster, rule LatenessRule) []LateArrival {
	byEmployee := make(map[string][]Record, roster.Len())
	for _, r := range records {
		if rule.IsLate(r.Timestamp) {
			byEmployee[r.EmployeeID] = append(byEmployee[r.EmployeeID], r)
		}
	}

	var late []LateArrival
	for _, id := range roster.IDs {
		for _, r := range byEmployee[id] {
			late = append(late, LateArrival{
				EmployeeID:   id,
				EmployeeName: roster.Name(id),
				Timestamp:    r.Timestamp,
			})
		}
	}
	return late
}
