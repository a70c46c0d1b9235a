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

package sources

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Hsu-Huahsing/WageBound"
)

// ExcelSource reads one sheet of a workbook. The first row is the header and
// fully empty rows are skipped. Sheet defaults to the first sheet.
type ExcelSource struct {
	Path         string
	Sheet        string
	ParseNumbers bool
}

func (s *ExcelSource) Load(ctx context.Context) (*wagebound.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return readSheet(f, s.Sheet, s.ParseNumbers)
}

// ReadExcel reads a sheet of the workbook in r.
func ReadExcel(r io.Reader, sheet string, parseNumbers bool) (*wagebound.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	return readSheet(f, sheet, parseNumbers)
}

func readSheet(f *excelize.File, sheet string, parseNumbers bool) (*wagebound.Table, error) {
	if sheet == "" {
		sheet = f.GetSheetName(0)
		if sheet == "" {
			return nil, fmt.Errorf("no sheets found in Excel file")
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows of sheet %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return wagebound.EmptyTable(), nil
	}

	var records [][]string
	for _, row := range rows[1:] {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, row)
	}

	return buildTable(rows[0], records, parseNumbers)
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
