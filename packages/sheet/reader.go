package sheet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/xuri/excelize/v2"
)

var (
	ErrNoRows        = errors.New("sheet has no test case rows")
	ErrMissingColumn = errors.New("required column missing")
)

// Table is the parsed content of one sheet.
type Table struct {
	Sheet   string
	Headers []string
	Cases   []model.TestCase
	// Diagnostics lists rows that were read but are malformed. Those rows
	// are still in Cases.
	Diagnostics []error
}

// Read loads cases from the named sheet of the workbook at path. An empty
// sheet name selects the first sheet.
func Read(path, sheet string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, ErrNoRows
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}
	return parseRows(sheet, rows)
}

func parseRows(sheet string, rows [][]string) (*Table, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}

	t := &Table{Sheet: sheet}
	for _, h := range rows[0] {
		t.Headers = append(t.Headers, strings.TrimSpace(h))
	}
	if !contains(t.Headers, model.ColURL) {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, model.ColURL)
	}

	for i, cells := range rows[1:] {
		if blankRow(cells) {
			continue
		}
		record := make(map[string]any, len(t.Headers))
		for col, h := range t.Headers {
			if h == "" {
				continue
			}
			if col < len(cells) {
				record[h] = cells[col]
			} else {
				record[h] = ""
			}
		}
		// spreadsheet row numbers are 1-based and row 1 is the header
		tc, diags := model.FromRecord(i+2, record)
		t.Cases = append(t.Cases, tc)
		t.Diagnostics = append(t.Diagnostics, diags...)
	}

	if len(t.Cases) == 0 {
		return nil, ErrNoRows
	}
	return t, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
