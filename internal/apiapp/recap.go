package apiapp

import (
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/phillip-england/rekap/internal/artifacts"
	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/phillip-england/rekap/internal/letter"
	"github.com/phillip-england/rekap/internal/spreadsheet"
)

const dateLayout = "2006-01-02"

// Generate writes the recap workbook and, when renderer is set, one warning
// letter per escalation into run. The manifest is updated but not saved.
func Generate(run *artifacts.Run, report attendance.Report, renderer *letter.Renderer, locale attendance.Locale, issued time.Time) error {
	workbook := run.WorkbookName()
	if err := run.WriteFile(workbook, func(w io.Writer) error {
		return spreadsheet.WriteReport(w, report, spreadsheet.DefaultWorkbookOptions())
	}); err != nil {
		return fmt.Errorf("write recap workbook: %w", err)
	}
	run.Workbook = workbook

	if renderer == nil {
		return nil
	}
	for _, esc := range report.Escalations {
		ctx := attendance.LetterContextFor(esc, issued, locale)
		name := run.LetterName(esc.EmployeeID)
		if err := run.WriteFile(name, func(w io.Writer) error {
			return renderer.Render(w, ctx)
		}); err != nil {
			return fmt.Errorf("write letter for %s: %w", esc.EmployeeID, err)
		}
		run.Letters[esc.EmployeeID] = name
	}
	return nil
}

func describeRun(report attendance.Report, stats attendance.NormalizeStats) string {
	return fmt.Sprintf("%d sheets, %d rows read, %d kept, %d dropped, %d employees, %d working days, %d late, %d escalations",
		stats.Sheets, stats.RowsRead, stats.Kept, stats.DroppedTotal(),
		len(report.Summaries), len(report.Calendar), len(report.LateArrivals), len(report.Escalations))
}

type statsResponse struct {
	Sheets   int            `json:"sheets"`
	RowsRead int            `json:"rowsRead"`
	Kept     int            `json:"kept"`
	Dropped  map[string]int `json:"dropped"`
}

type thresholdResponse struct {
	Days      int    `json:"days"`
	Inclusive bool   `json:"inclusive"`
	Label     string `json:"label"`
}

type tableRowResponse struct {
	EmployeeID  string `json:"employeeId"`
	Highlighted bool   `json:"highlighted"`
	Cells       []any  `json:"cells"`
}

type tableResponse struct {
	Key     string             `json:"key"`
	Title   string             `json:"title"`
	Columns []string           `json:"columns"`
	Rows    []tableRowResponse `json:"rows"`
}

type escalationResponse struct {
	EmployeeID   string   `json:"employeeId"`
	EmployeeName string   `json:"employeeName"`
	DaysAbsent   int      `json:"daysAbsent"`
	AbsentDates  []string `json:"absentDates"`
	Highlighted  bool     `json:"highlighted"`
	LetterURL    string   `json:"letterUrl,omitempty"`
}

type recapResponse struct {
	RunID       string               `json:"runId"`
	SourceName  string               `json:"sourceName"`
	PeriodStart string               `json:"periodStart,omitempty"`
	PeriodEnd   string               `json:"periodEnd,omitempty"`
	WorkingDays int                  `json:"workingDays"`
	Threshold   thresholdResponse    `json:"threshold"`
	Highlighted []string             `json:"highlighted"`
	Stats       statsResponse        `json:"stats"`
	Tables      []tableResponse      `json:"tables"`
	Escalations []escalationResponse `json:"escalations"`
	WorkbookURL string               `json:"workbookUrl"`
	BundleURL   string               `json:"bundleUrl"`
}

type runResponse struct {
	RunID       string            `json:"runId"`
	SourceName  string            `json:"sourceName"`
	CreatedAt   time.Time         `json:"createdAt"`
	WorkbookURL string            `json:"workbookUrl,omitempty"`
	BundleURL   string            `json:"bundleUrl"`
	Letters     map[string]string `json:"letters"`
}

func runURL(run *artifacts.Run, parts ...string) string {
	escaped := make([]string, 0, len(parts)+2)
	escaped = append(escaped, "/api/runs", run.ID)
	for _, p := range parts {
		escaped = append(escaped, url.PathEscape(p))
	}
	return strings.Join(escaped, "/")
}

func newRecapResponse(run *artifacts.Run, report attendance.Report, stats attendance.NormalizeStats) recapResponse {
	resp := recapResponse{
		RunID:       run.ID,
		SourceName:  run.SourceName,
		WorkingDays: len(report.Calendar),
		Threshold: thresholdResponse{
			Days:      report.Threshold.Days,
			Inclusive: report.Threshold.Inclusive,
			Label:     report.Threshold.Label(),
		},
		Highlighted: report.Highlight.IDs(),
		Stats: statsResponse{
			Sheets:   stats.Sheets,
			RowsRead: stats.RowsRead,
			Kept:     stats.Kept,
			Dropped:  map[string]int{},
		},
		Tables:      []tableResponse{},
		Escalations: []escalationResponse{},
		WorkbookURL: runURL(run, "workbook"),
		BundleURL:   runURL(run, "bundle"),
	}
	if start, end := report.Period(); !start.IsZero() {
		resp.PeriodStart = start.Format(dateLayout)
		resp.PeriodEnd = end.Format(dateLayout)
	}
	for reason, n := range stats.Dropped {
		resp.Stats.Dropped[string(reason)] = n
	}

	for _, table := range report.Tables() {
		if len(table.Rows) == 0 && !table.Required {
			continue
		}
		out := tableResponse{Key: table.Key, Title: table.Title, Columns: table.Columns, Rows: []tableRowResponse{}}
		for _, row := range table.Rows {
			out.Rows = append(out.Rows, tableRowResponse{EmployeeID: row.EmployeeID, Highlighted: row.Highlighted, Cells: row.Cells})
		}
		resp.Tables = append(resp.Tables, out)
	}

	for _, esc := range report.Escalations {
		dates := make([]string, 0, len(esc.AbsentDates))
		for _, d := range esc.AbsentDates {
			dates = append(dates, d.Format(dateLayout))
		}
		item := escalationResponse{
			EmployeeID:   esc.EmployeeID,
			EmployeeName: esc.EmployeeName,
			DaysAbsent:   esc.DaysAbsent,
			AbsentDates:  dates,
			Highlighted:  report.Highlighted(esc.EmployeeID),
		}
		if _, ok := run.Letters[esc.EmployeeID]; ok {
			item.LetterURL = runURL(run, "letters", esc.EmployeeID)
		}
		resp.Escalations = append(resp.Escalations, item)
	}
	return resp
}

func newRunResponse(run *artifacts.Run) runResponse {
	resp := runResponse{
		RunID:      run.ID,
		SourceName: run.SourceName,
		CreatedAt:  run.CreatedAt,
		BundleURL:  runURL(run, "bundle"),
		Letters:    map[string]string{},
	}
	if run.Workbook != "" {
		resp.WorkbookURL = runURL(run, "workbook")
	}
	for id := range run.Letters {
		resp.Letters[id] = runURL(run, "letters", id)
	}
	return resp
}
