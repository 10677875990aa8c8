package spreadsheet

import (
	"fmt"
	"io"

	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/xuri/excelize/v2"
)

// WorkbookOptions controls styling of the exported recap.
type WorkbookOptions struct {
	HighlightFill string
	HighlightFont string
	HeaderFill    string
}

func DefaultWorkbookOptions() WorkbookOptions {
	return WorkbookOptions{
		HighlightFill: "#00FF00",
		HighlightFont: "#000000",
		HeaderFill:    "#D9E1F2",
	}
}

// WriteReport writes one sheet per exported table. Optional tables are
// skipped when empty; ID cells of highlighted employees get a solid fill.
func WriteReport(w io.Writer, report attendance.Report, opts WorkbookOptions) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{opts.HeaderFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	highlightStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: opts.HighlightFont},
		Fill: excelize.Fill{Type: "pattern", Color: []string{opts.HighlightFill}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create highlight style: %w", err)
	}

	defaultSheet := f.GetSheetName(0)
	written := 0
	for _, table := range report.Tables() {
		if len(table.Rows) == 0 && !table.Required {
			continue
		}
		if written == 0 {
			if err := f.SetSheetName(defaultSheet, table.Title); err != nil {
				return fmt.Errorf("name sheet %q: %w", table.Title, err)
			}
		} else if _, err := f.NewSheet(table.Title); err != nil {
			return fmt.Errorf("create sheet %q: %w", table.Title, err)
		}
		if err := writeTable(f, table, headerStyle, highlightStyle); err != nil {
			return err
		}
		written++
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeTable(f *excelize.File, table attendance.Table, headerStyle, highlightStyle int) error {
	sheet := table.Title
	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet, err)
	}
	lastHeader, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", lastHeader, headerStyle); err != nil {
		return fmt.Errorf("style header of %q: %w", sheet, err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		cells := row.Cells
		if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+2, sheet, err)
		}
		if row.Highlighted {
			if err := f.SetCellStyle(sheet, cell, cell, highlightStyle); err != nil {
				return fmt.Errorf("highlight row %d of %q: %w", i+2, sheet, err)
			}
		}
	}

	lastCol, err := excelize.ColumnNumberToName(len(table.Columns))
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 10); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "B", lastCol, 24)
}
