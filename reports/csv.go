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

package reports

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/Hsu-Huahsing/WageBound"
)

const utf8BOM = "\ufeff"

type CSVOptions struct {
	// BOM prefixes the output with a UTF-8 byte order mark so Excel detects the encoding.
	BOM bool
}

// WriteCSV writes t as CSV with a header row. Nulls are written as empty cells.
func WriteCSV(w io.Writer, t *wagebound.Table, opts CSVOptions) error {
	if opts.BOM {
		if _, err := io.WriteString(w, utf8BOM); err != nil {
			return err
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.ColumnNames()); err != nil {
		return err
	}

	record := make([]string, len(t.Columns()))
	for i := 0; i < t.Len(); i++ {
		for j, v := range t.Row(i) {
			record[j] = formatCell(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteVerifyResultCSV writes the four result tables of res into dir as
// <prefix>_summary.csv, <prefix>_diff_rows.csv, <prefix>_missing_in_expected.csv
// and <prefix>_missing_in_actual.csv, and returns the written paths.
func WriteVerifyResultCSV(dir, prefix string, res *wagebound.VerifyResult, opts CSVOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	parts := []struct {
		name  string
		table *wagebound.Table
	}{
		{SheetSummary, res.Summary},
		{SheetDiffRows, res.DiffRows},
		{SheetMissingInExpected, res.MissingInExpected},
		{SheetMissingInActual, res.MissingInActual},
	}

	var paths []string
	for _, p := range parts {
		path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, p.name))
		if err := writeCSVFile(path, p.table, opts); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeCSVFile(path string, t *wagebound.Table, opts CSVOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatCell(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(x)) {
			return ""
		}
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	}
	return fmt.Sprintf("%v", v)
}
