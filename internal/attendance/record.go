package attendance

import (
	"fmt"
	"strings"
	"time"
)

// Field names a logical column of a time-clock export.
type Field string

const (
	FieldCompany   Field = "company"
	FieldName      Field = "name"
	FieldID        Field = "id"
	FieldTimestamp Field = "timestamp"
	FieldDeviceID  Field = "device_id"
	FieldField6    Field = "field6"
	FieldStatus    Field = "status"
	FieldField8    Field = "field8"
)

// DefaultFields is the positional layout of the exports this tool was built for.
var DefaultFields = []Field{
	FieldCompany,
	FieldName,
	FieldID,
	FieldTimestamp,
	FieldDeviceID,
	FieldField6,
	FieldStatus,
	FieldField8,
}

// Sheet is one worksheet of an uploaded file, cells already rendered as text.
type Sheet struct {
	Name string
	Rows [][]string
}

// RawPunchRow is a row cut down to the honored column width.
type RawPunchRow []string

// ColumnMapping assigns logical fields to column positions. Header text is never consulted.
type ColumnMapping struct {
	Columns    map[Field]int
	Width      int
	HeaderRows int
}

func DefaultColumnMapping() ColumnMapping {
	columns := make(map[Field]int, len(DefaultFields))
	for i, f := range DefaultFields {
		columns[f] = i
	}
	return ColumnMapping{Columns: columns, Width: len(DefaultFields), HeaderRows: 1}
}

func (m ColumnMapping) Validate() error {
	for _, required := range []Field{FieldName, FieldID, FieldTimestamp} {
		if _, ok := m.Columns[required]; !ok {
			return fmt.Errorf("column mapping is missing field %q", required)
		}
	}
	for f, idx := range m.Columns {
		if idx < 0 {
			return fmt.Errorf("column mapping for %q must not be negative", f)
		}
		if m.Width > 0 && idx >= m.Width {
			return fmt.Errorf("column mapping for %q (%d) is outside the honored width %d", f, idx, m.Width)
		}
	}
	if m.HeaderRows < 0 {
		return fmt.Errorf("header rows must not be negative")
	}
	return nil
}

// cut truncates a raw row to the honored width.
func (m ColumnMapping) cut(row []string) RawPunchRow {
	if m.Width > 0 && len(row) > m.Width {
		row = row[:m.Width]
	}
	return RawPunchRow(row)
}

// value returns the cell for f, or "" when the sheet is narrower than the mapping.
func (m ColumnMapping) value(row RawPunchRow, f Field) string {
	idx, ok := m.Columns[f]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Record is one canonical attendance entry. Date is Timestamp at midnight UTC.
type Record struct {
	EmployeeID   string
	EmployeeName string
	Timestamp    time.Time
	Date         time.Time

	Company  string
	DeviceID string
	Status   string
}

type dayKey struct {
	id   string
	date time.Time
}

func (r Record) key() dayKey {
	return dayKey{id: r.EmployeeID, date: r.Date}
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CleanID strips whitespace and the ".0" suffix left behind when a numeric ID
// column was read as floats.
func CleanID(raw string) string {
	id := strings.TrimSpace(raw)
	return strings.TrimSuffix(id, ".0")
}

func isMissing(value string) bool {
	return value == "" || strings.EqualFold(value, "nan")
}
