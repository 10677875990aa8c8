package attendance

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Threshold is the absence count that triggers a warning letter.
type Threshold struct {
	Days      int
	Inclusive bool
}

func DefaultThreshold() Threshold {
	return Threshold{Days: 3, Inclusive: true}
}

func (t Threshold) Meets(daysAbsent int) bool {
	if t.Inclusive {
		return daysAbsent >= t.Days
	}
	return daysAbsent > t.Days
}

// Label renders the threshold the way report headings show it, e.g. "≥3".
func (t Threshold) Label() string {
	if t.Inclusive {
		return fmt.Sprintf("≥%d", t.Days)
	}
	return fmt.Sprintf(">%d", t.Days)
}

// Escalation is an employee whose absences meet the threshold.
type Escalation struct {
	Summary
	AbsentDates []time.Time
}

// SelectEscalations keeps the summaries that meet the threshold, most absent
// first. Ties keep roster order.
func SelectEscalations(summaries []Summary, absences []Absence, threshold Threshold) []Escalation {
	selected := lo.Filter(summaries, func(s Summary, _ int) bool {
		return threshold.Meets(s.DaysAbsent)
	})
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].DaysAbsent > selected[j].DaysAbsent
	})

	datesByID := lo.GroupBy(absences, func(a Absence) string { return a.EmployeeID })
	return lo.Map(selected, func(s Summary, _ int) Escalation {
		return Escalation{
			Summary: s,
			AbsentDates: lo.Map(datesByID[s.EmployeeID], func(a Absence, _ int) time.Time {
				return a.Date
			}),
		}
	})
}

// Locale names weekdays and months for dates printed in letters.
type Locale struct {
	Code     string
	Weekdays [7]string // indexed by time.Weekday
	Months   [12]string
}

var (
	Indonesian = Locale{
		Code:     "id",
		Weekdays: [7]string{"Minggu", "Senin", "Selasa", "Rabu", "Kamis", "Jumat", "Sabtu"},
		Months: [12]string{
			"Januari", "Februari", "Maret", "April", "Mei", "Juni",
			"Juli", "Agustus", "September", "Oktober", "November", "Desember",
		},
	}
	English = Locale{
		Code:     "en",
		Weekdays: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
		Months: [12]string{
			"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December",
		},
	}
)

func LocaleFor(code string) (Locale, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "", "id":
		return Indonesian, nil
	case "en":
		return English, nil
	default:
		return Locale{}, fmt.Errorf("unsupported locale %q (want id or en)", code)
	}
}

// LongDate formats d as "02 January 2006" with the locale's month name.
func (l Locale) LongDate(d time.Time) string {
	return fmt.Sprintf("%02d %s %d", d.Day(), l.Months[d.Month()-1], d.Year())
}

// LetterDate formats d as "Monday, 02 January 2006".
func (l Locale) LetterDate(d time.Time) string {
	return l.Weekdays[d.Weekday()] + ", " + l.LongDate(d)
}

// JoinDates lists dates in long form separated by ", ".
func (l Locale) JoinDates(dates []time.Time) string {
	return strings.Join(lo.Map(dates, func(d time.Time, _ int) string { return l.LongDate(d) }), ", ")
}

// LetterContext is the data a warning-letter template is filled with.
type LetterContext struct {
	Name           string `json:"NAME"`
	EmployeeID     string `json:"EMPLOYEE_ID"`
	AbsentDayCount int    `json:"ABSENT_DAY_COUNT"`
	AbsentDates    string `json:"ABSENT_DATES"`
	LetterDate     string `json:"LETTER_DATE"`
}

// Fields exposes the context under its template keys.
func (c LetterContext) Fields() map[string]any {
	return map[string]any{
		"NAME":             c.Name,
		"EMPLOYEE_ID":      c.EmployeeID,
		"ABSENT_DAY_COUNT": c.AbsentDayCount,
		"ABSENT_DATES":     c.AbsentDates,
		"LETTER_DATE":      c.LetterDate,
	}
}

func LetterContextFor(e Escalation, issued time.Time, locale Locale) LetterContext {
	return LetterContext{
		Name:           e.EmployeeName,
		EmployeeID:     e.EmployeeID,
		AbsentDayCount: len(e.AbsentDates),
		AbsentDates:    locale.JoinDates(e.AbsentDates),
		LetterDate:     locale.LetterDate(issued),
	}
}
