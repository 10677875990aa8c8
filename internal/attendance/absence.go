package attendance

import "time"

// Absence is a working day on which an employee has no record.
type Absence struct {
	EmployeeID   string
	EmployeeName string
	Date         time.Time
}

// Summary holds the attendance counts of one employee for the run.
type Summary struct {
	EmployeeID   string
	EmployeeName string
	DaysPresent  int
	DaysLate     int
	DaysAbsent   int
}

// DeriveAbsences checks every roster employee against every calendar day.
// DaysPresent only counts days that are on the calendar, so a Sunday punch
// never offsets an absence and DaysPresent+DaysAbsent equals len(calendar).
func DeriveAbsences(records []Record, roster Roster, calendar []time.Time, late []LateArrival) ([]Absence, []Summary) {
	present := make(map[dayKey]struct{}, len(records))
	for _, r := range records {
		present[r.key()] = struct{}{}
	}
	lateCount := make(map[string]int)
	for _, l := range late {
		lateCount[l.EmployeeID]++
	}

	var absences []Absence
	summaries := make([]Summary, 0, roster.Len())
	for _, id := range roster.IDs {
		name := roster.Name(id)
		s := Summary{EmployeeID: id, EmployeeName: name, DaysLate: lateCount[id]}
		for _, day := range calendar {
			if _, ok := present[dayKey{id: id, date: day}]; ok {
				s.DaysPresent++
				continue
			}
			s.DaysAbsent++
			absences = append(absences, Absence{EmployeeID: id, EmployeeName: name, Date: day})
		}
		summaries = append(summaries, s)
	}
	return absences, summaries
}
