package attendance

import (
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DropReason says why a raw row did not become a Record.
type DropReason string

const (
	DropMissingName      DropReason = "missing_name"
	DropMissingID        DropReason = "missing_id"
	DropInvalidTimestamp DropReason = "invalid_timestamp"
)

// NormalizeStats counts what happened to raw rows during normalization.
type NormalizeStats struct {
	Sheets   int
	RowsRead int
	Kept     int
	Dropped  map[DropReason]int
}

func (s NormalizeStats) DroppedTotal() int {
	total := 0
	for _, n := range s.Dropped {
		total += n
	}
	return total
}

// Normalize maps every sheet onto the logical schema by position, concatenates
// them in file order and drops rows without a usable name, ID or timestamp.
func Normalize(sheets []Sheet, mapping ColumnMapping) ([]Record, NormalizeStats) {
	stats := NormalizeStats{Sheets: len(sheets), Dropped: map[DropReason]int{}}
	var records []Record
	for _, sheet := range sheets {
		for i, raw := range sheet.Rows {
			if i < mapping.HeaderRows {
				continue
			}
			stats.RowsRead++
			record, reason, ok := normalizeRow(mapping.cut(raw), mapping)
			if !ok {
				stats.Dropped[reason]++
				continue
			}
			records = append(records, record)
		}
	}
	stats.Kept = len(records)
	return records, stats
}

func normalizeRow(row RawPunchRow, mapping ColumnMapping) (Record, DropReason, bool) {
	name := strings.TrimSpace(mapping.value(row, FieldName))
	if isMissing(name) {
		return Record{}, DropMissingName, false
	}
	id := CleanID(mapping.value(row, FieldID))
	if isMissing(id) {
		return Record{}, DropMissingID, false
	}
	ts, ok := ParseTimestamp(mapping.value(row, FieldTimestamp))
	if !ok {
		return Record{}, DropInvalidTimestamp, false
	}
	return Record{
		EmployeeID:   id,
		EmployeeName: name,
		Timestamp:    ts,
		Date:         dateOf(ts),
		Company:      strings.TrimSpace(mapping.value(row, FieldCompany)),
		DeviceID:     CleanID(mapping.value(row, FieldDeviceID)),
		Status:       strings.TrimSpace(mapping.value(row, FieldStatus)),
	}, "", true
}

// Day-first layouts seen in time-clock exports, including 12-hour clocks and
// month names. Year-first ISO forms are unambiguous and accepted as well.
var timestampLayouts = []string{
	"02/01/2006 15:04:05",
	"2/1/2006 15:04:05",
	"02/01/2006 15:04",
	"2/1/2006 15:04",
	"02-01-2006 15:04:05",
	"2-1-2006 15:04:05",
	"02-01-2006 15:04",
	"2-1-2006 15:04",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
	"02/01/06 15:04:05",
	"02/01/06 15:04",
	"02/01/2006 03:04:05 PM",
	"2/1/2006 3:04:05 PM",
	"02/01/2006 03:04 PM",
	"2/1/2006 3:04 PM",
	"02-Jan-2006 15:04:05",
	"02-Jan-2006 15:04",
	"2 January 2006 15:04:05",
	"2 January 2006 15:04",
	"2 Jan 2006 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"2006-01-02",
}

// ParseTimestamp reads a punch time. Excel serial numbers are accepted since
// raw cell values of date-formatted cells come through that way.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if isMissing(value) {
		return time.Time{}, false
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		// Realistic serial range only, so plain numbers are not read as dates.
		if serial >= 20000 && serial <= 80000 {
			if parsed, err := excelize.ExcelDateToTime(serial, false); err == nil {
				return parsed.Round(time.Second).UTC(), true
			}
		}
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return wallClock(parsed), true
		}
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

// wallClock keeps the clock reading of t and drops its zone, so offsets written
// by the export tool never shift a punch onto another day.
func wallClock(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}
