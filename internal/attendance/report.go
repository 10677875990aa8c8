package attendance

import (
	"strings"
	"time"

	"github.com/samber/lo"
)

// HighlightSet is a named list of employee IDs that reports emphasise. It has
// no effect on any count.
type HighlightSet struct {
	Name string
	ids  map[string]struct{}
}

func NewHighlightSet(name string, ids []string) HighlightSet {
	cleaned := lo.FilterMap(ids, func(id string, _ int) (string, bool) {
		id = CleanID(id)
		return id, id != ""
	})
	return HighlightSet{Name: name, ids: lo.Keyify(cleaned)}
}

func (h HighlightSet) Contains(id string) bool {
	_, ok := h.ids[CleanID(id)]
	return ok
}

func (h HighlightSet) Len() int { return len(h.ids) }

// IDs returns the members in natural order.
func (h HighlightSet) IDs() []string {
	ids := lo.Keys(h.ids)
	sortNatural(ids)
	return ids
}

func (h HighlightSet) String() string {
	return strings.Join(h.IDs(), ",")
}

// Report is every table a run produces, ready for export or display.
type Report struct {
	Calendar     []time.Time
	LateArrivals []LateArrival
	Absences     []Absence
	Summaries    []Summary
	Escalations  []Escalation
	Threshold    Threshold
	Highlight    HighlightSet
}

// Assemble bundles the derived tables. It adds no business logic.
func Assemble(calendar []time.Time, late []LateArrival, absences []Absence, summaries []Summary, escalations []Escalation, threshold Threshold, highlight HighlightSet) Report {
	return Report{
		Calendar:     calendar,
		LateArrivals: late,
		Absences:     absences,
		Summaries:    summaries,
		Escalations:  escalations,
		Threshold:    threshold,
		Highlight:    highlight,
	}
}

func (r Report) Highlighted(id string) bool {
	return r.Highlight.Contains(id)
}

func (r Report) Empty() bool {
	return len(r.Summaries) == 0
}

// Period returns the first and last working day, zero when the run was empty.
func (r Report) Period() (time.Time, time.Time) {
	if len(r.Calendar) == 0 {
		return time.Time{}, time.Time{}
	}
	return r.Calendar[0], r.Calendar[len(r.Calendar)-1]
}

// AbsentDates returns the absences of one employee in calendar order.
func (r Report) AbsentDates(id string) []time.Time {
	return lo.FilterMap(r.Absences, func(a Absence, _ int) (time.Time, bool) {
		return a.Date, a.EmployeeID == id
	})
}

// Table keys, stable across exporters.
const (
	TableLateArrivals = "LateArrivals"
	TableAbsences     = "Absences"
	TableSummary      = "AttendanceSummary"
	TableEscalations  = "EscalationCandidates"
)

// Table is one named, export-ready table. The first column always holds the
// employee ID.
type Table struct {
	Key     string
	Title   string
	Columns []string
	Rows    []TableRow
	// Required tables are exported even when they have no rows.
	Required bool
}

type TableRow struct {
	EmployeeID  string
	Highlighted bool
	Cells       []any
}

const (
	timestampLayout = "2006-01-02 15:04:05"
	dateLayout      = "2006-01-02"
)

// Tables shapes the report into the four export tables, in export order.
func (r Report) Tables() []Table {
	late := Table{
		Key:     TableLateArrivals,
		Title:   "Karyawan Telat",
		Columns: []string{"ID", "Nama", "Tgl/Waktu Telat"},
	}
	for _, l := range r.LateArrivals {
		late.Rows = append(late.Rows, r.row(l.EmployeeID, l.EmployeeName, l.Timestamp.Format(timestampLayout)))
	}

	absent := Table{
		Key:     TableAbsences,
		Title:   "Karyawan Tidak Hadir",
		Columns: []string{"ID", "Nama", "Tanggal Tidak Hadir"},
	}
	for _, a := range r.Absences {
		absent.Rows = append(absent.Rows, r.row(a.EmployeeID, a.EmployeeName, a.Date.Format(dateLayout)))
	}

	summary := Table{
		Key:      TableSummary,
		Title:    "Jumlah Kehadiran",
		Columns:  []string{"ID", "Nama", "Jumlah Hadir", "Jumlah Telat", "Jumlah Tidak Hadir"},
		Required: true,
	}
	for _, s := range r.Summaries {
		summary.Rows = append(summary.Rows, r.row(s.EmployeeID, s.EmployeeName, s.DaysPresent, s.DaysLate, s.DaysAbsent))
	}

	escalations := Table{
		Key:     TableEscalations,
		Title:   "Tidak Hadir " + r.Threshold.Label() + " Hari",
		Columns: []string{"ID", "Nama", "Jumlah Hadir", "Jumlah Telat", "Jumlah Tidak Hadir", "Tanggal Tidak Hadir"},
	}
	for _, e := range r.Escalations {
		dates := strings.Join(lo.Map(e.AbsentDates, func(d time.Time, _ int) string { return d.Format(dateLayout) }), ", ")
		escalations.Rows = append(escalations.Rows, r.row(e.EmployeeID, e.EmployeeName, e.DaysPresent, e.DaysLate, e.DaysAbsent, dates))
	}

	return []Table{late, absent, summary, escalations}
}

func (r Report) row(id string, cells ...any) TableRow {
	return TableRow{
		EmployeeID:  id,
		Highlighted: r.Highlighted(id),
		Cells:       append([]any{id}, cells...),
	}
}
