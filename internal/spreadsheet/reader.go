// Package spreadsheet reads time-clock workbooks and writes recap workbooks.
package spreadsheet

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/phillip-england/rekap/internal/attendance"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoSheets          = errors.New("no worksheet found")
	ErrUnsupportedFormat = errors.New("unsupported file type; upload an .xls or .xlsx workbook")
)

const maxXLSRows = 100000

// SupportedExtension reports whether filename looks like a workbook we can read.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls", ".xlsx", ".xlsm":
		return true
	default:
		return false
	}
}

// ReadWorkbook returns every sheet of the upload in file order. Cells are
// returned unformatted so date cells arrive as Excel serial numbers.
func ReadWorkbook(reader io.Reader, filename string) ([]attendance.Sheet, error) {
	if !SupportedExtension(filename) {
		return nil, ErrUnsupportedFormat
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	var sheets []attendance.Sheet
	if strings.ToLower(filepath.Ext(filename)) == ".xls" {
		sheets, err = readXLS(data)
	} else {
		sheets, err = readXLSX(data)
	}
	if err != nil {
		return nil, err
	}
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	return sheets, nil
}

func readXLS(data []byte) ([]attendance.Sheet, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	sheets := make([]attendance.Sheet, 0, workbook.NumSheets())
	for i := 0; i < workbook.NumSheets(); i++ {
		ws := workbook.GetSheet(i)
		if ws == nil {
			continue
		}
		sheet := attendance.Sheet{Name: ws.Name}
		for r := 0; r <= int(ws.MaxRow) && r < maxXLSRows; r++ {
			row := ws.Row(r)
			if row == nil {
				sheet.Rows = append(sheet.Rows, nil)
				continue
			}
			cells := make([]string, 0, row.LastCol()+1)
			for c := 0; c <= row.LastCol(); c++ {
				cells = append(cells, row.Col(c))
			}
			sheet.Rows = append(sheet.Rows, cells)
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

func readXLSX(data []byte) ([]attendance.Sheet, error) {
	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open xlsx workbook: %w", err)
	}
	defer func() { _ = file.Close() }()

	names := file.GetSheetList()
	sheets := make([]attendance.Sheet, 0, len(names))
	for _, name := range names {
		rows, err := file.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, attendance.Sheet{Name: name, Rows: rows})
	}
	return sheets, nil
}
