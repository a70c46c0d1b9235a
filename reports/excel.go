// Copyright 2025 The WageBound Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package reports writes verification results to Excel workbooks, CSV files
// and SQL tables.
package reports

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Hsu-Huahsing/WageBound"
)

const (
	SheetSummary           = "summary"
	SheetDiffRows          = "diff_rows"
	SheetMissingInExpected = "missing_in_expected"
	SheetMissingInActual   = "missing_in_actual"

	maxSheetNameLen = 31
	defaultSheet    = "Sheet1"
)

// Workbook collects tables into sheets of one Excel file.
type Workbook struct {
	f           *excelize.File
	headerStyle int
	sheets      map[string]bool
}

func NewWorkbook() (*Workbook, error) {
	f := excelize.NewFile()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	return &Workbook{f: f, headerStyle: headerStyle, sheets: map[string]bool{}}, nil
}

// Sheets returns the names of the sheets added so far, in workbook order.
func (w *Workbook) Sheets() []string {
	var out []string
	for _, name := range w.f.GetSheetList() {
		if w.sheets[name] {
			out = append(out, name)
		}
	}
	return out
}

// AddTable writes t to a new sheet: a styled header row followed by one row
// per table row. Sheet names are cleaned of characters Excel rejects and
// truncated to 31 characters.
func (w *Workbook) AddTable(sheet string, t *wagebound.Table) error {
	sheet = SheetName(sheet)
	if w.sheets[sheet] {
		return fmt.Errorf("sheet %s already exists", sheet)
	}

	if _, err := w.f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if len(w.sheets) == 0 {
		if sheet != defaultSheet {
			if err := w.f.DeleteSheet(defaultSheet); err != nil {
				return err
			}
		}
		index, err := w.f.GetSheetIndex(sheet)
		if err != nil {
			return err
		}
		w.f.SetActiveSheet(index)
	}
	w.sheets[sheet] = true

	names := t.ColumnNames()
	header := make([]interface{}, len(names))
	for i, name := range names {
		header[i] = name
	}
	if err := w.f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if len(names) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(names), 1)
		if err := w.f.SetCellStyle(sheet, "A1", last, w.headerStyle); err != nil {
			return err
		}
		lastCol, _ := excelize.ColumnNumberToName(len(names))
		if err := w.f.SetColWidth(sheet, "A", lastCol, 15); err != nil {
			return err
		}
	}

	for i := 0; i < t.Len(); i++ {
		row := t.Row(i)
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %s: %w", i, sheet, err)
		}
	}

	return nil
}

// AddVerifyResult writes the summary, diff rows and both missing partitions
// of res to four sheets named prefix + sheet.
func (w *Workbook) AddVerifyResult(prefix string, res *wagebound.VerifyResult) error {
	parts := []struct {
		name  string
		table *wagebound.Table
	}{
		{SheetSummary, res.Summary},
		{SheetDiffRows, res.DiffRows},
		{SheetMissingInExpected, res.MissingInExpected},
		{SheetMissingInActual, res.MissingInActual},
	}
	for _, p := range parts {
		if err := w.AddTable(prefix+p.name, p.table); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbook) AddIssues(sheet string, issues []wagebound.ValidationIssue) error {
	return w.AddTable(sheet, wagebound.IssuesTable(issues))
}

func (w *Workbook) AddChecks(sheet string, records []wagebound.VerificationRecord) error {
	return w.AddTable(sheet, wagebound.VerificationRecordsTable(records))
}

func (w *Workbook) SaveAs(path string) error {
	if err := w.f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func (w *Workbook) WriteTo(out io.Writer) (int64, error) {
	return w.f.WriteTo(out)
}

func (w *Workbook) Close() error {
	return w.f.Close()
}

// SheetName replaces the characters Excel does not allow in sheet names and
// truncates the result to 31 characters.
func SheetName(name string) string {
	name = strings.NewReplacer(
		":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
	).Replace(name)
	name = strings.Trim(name, "'")
	if name == "" {
		name = defaultSheet
	}
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

func cellValue(v interface{}) interface{} {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
	case float32:
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return nil
		}
	case map[string]interface{}, []interface{}:
		return fmt.Sprintf("%v", x)
	}
	return v
}
