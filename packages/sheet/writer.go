package sheet

import (
	"fmt"

	"github.com/abdul-hamid-achik/sheetspec/packages/core/model"
	"github.com/xuri/excelize/v2"
)

const (
	defaultSheetName   = "Results"
	defaultColumnWidth = 18

	patternType  = "pattern"
	patternValue = 1
	passColor    = "00FF00"
	failColor    = "FF0000"
	missColor    = "FFEB9C"
)

// Write saves rows to a new workbook at path. headers is the column order
// of the source sheet; the result columns are appended after it. When
// headers is empty the standard input columns are used.
func Write(path, sheet string, headers []string, rows []model.ResultRow) error {
	if sheet == "" {
		sheet = defaultSheetName
	}
	columns := outputColumns(headers)

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetColWidth(sheet, "A", last, defaultColumnWidth); err != nil {
		return fmt.Errorf("setting column width: %w", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, styles.header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	resultCol := indexOf(columns, model.ColResult) + 1
	for i, row := range rows {
		rowNum := i + 2
		values := make([]any, len(columns))
		for c, name := range columns {
			values[c] = cellValue(row, name)
		}
		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", rowNum, err)
		}

		cell, _ := excelize.CoordinatesToCellName(resultCol, rowNum)
		if err := f.SetCellStyle(sheet, cell, cell, styles.verdict(row.Verdict)); err != nil {
			return fmt.Errorf("styling row %d: %w", rowNum, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

type styleSet struct {
	header, pass, fail, unmatched int
}

func (s styleSet) verdict(v model.Verdict) int {
	switch v {
	case model.VerdictPass:
		return s.pass
	case model.VerdictFail:
		return s.fail
	default:
		return s.unmatched
	}
}

func newStyles(f *excelize.File) (styleSet, error) {
	var s styleSet
	var err error

	if s.header, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("creating header style: %w", err)
	}
	for _, fill := range []struct {
		id    *int
		color string
	}{
		{&s.pass, passColor},
		{&s.fail, failColor},
		{&s.unmatched, missColor},
	} {
		*fill.id, err = f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: patternType, Pattern: patternValue, Color: []string{fill.color}},
		})
		if err != nil {
			return s, fmt.Errorf("creating fill style: %w", err)
		}
	}
	return s, nil
}

func outputColumns(headers []string) []string {
	if len(headers) == 0 {
		headers = model.InputColumns
	}
	var cols []string
	for _, h := range headers {
		if h == "" || contains(model.ResultColumns, h) {
			continue
		}
		cols = append(cols, h)
	}
	return append(cols, model.ResultColumns...)
}

func cellValue(row model.ResultRow, column string) any {
	switch column {
	case model.ColAPIName:
		return row.APIName
	case model.ColTestCase:
		return row.TestCase.TestCase
	case model.ColMethod:
		return row.Method
	case model.ColURL:
		return row.URL
	case model.ColExpectedStatusCode:
		return row.ExpectedStatusCode
	case model.ColExpectedTimeMs:
		return row.ExpectedTimeMs
	case model.ColActualStatusCode:
		if row.ActualStatusCode == nil {
			return nil
		}
		return *row.ActualStatusCode
	case model.ColActualResponseTime:
		if row.ActualResponseTimeMs == nil {
			return nil
		}
		return *row.ActualResponseTimeMs
	case model.ColResult:
		return row.Verdict.String()
	case model.ColResponseSnippet:
		return row.ResponseSnippet
	default:
		return row.Extra[column]
	}
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

// WriteCases saves cases as an input workbook with the standard columns.
func WriteCases(path, sheet string, cases []model.TestCase) error {
	if sheet == "" {
		sheet = "Tests"
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	header := make([]any, len(model.InputColumns))
	for i, c := range model.InputColumns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(header), 1)
	if err := f.SetCellStyle(sheet, "A1", lastHeader, styles.header); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}

	for i, tc := range cases {
		row := model.ResultRow{TestCase: tc}
		values := make([]any, len(model.InputColumns))
		for c, name := range model.InputColumns {
			values[c] = cellValue(row, name)
		}
		start, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, start, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}
