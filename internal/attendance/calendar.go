package attendance

import "time"

// BuildCalendar lists every date between the first and last record date,
// inclusive, except Sundays. The span comes from the upload itself, so a file
// covering part of a month yields a partial calendar.
func BuildCalendar(records []Record) []time.Time {
	if len(records) == 0 {
		return nil
	}
	first, last := records[0].Date, records[0].Date
	for _, r := range records[1:] {
		if r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}

	var days []time.Time
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Sunday {
			continue
		}
		days = append(days, d)
	}
	return days
}
