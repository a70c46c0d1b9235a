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

package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Hsu-Huahsing/WageBound"
	"github.com/Hsu-Huahsing/WageBound/reports"
)

type ComparisonOutcome struct {
	Name       string                  `json:"name"`
	Result     *wagebound.VerifyResult `json:"-"`
	Error      string                  `json:"error,omitempty"`
	DurationMs int64                   `json:"duration_ms"`
}

// Ok reports whether the comparison ran and found no differences.
func (o *ComparisonOutcome) Ok() bool {
	return o.Error == "" && o.Result != nil && o.Result.Ok()
}

type ValidationOutcome struct {
	Name       string                         `json:"name"`
	Issues     []wagebound.ValidationIssue    `json:"issues,omitempty"`
	Checks     []wagebound.VerificationRecord `json:"checks,omitempty"`
	Profile    *wagebound.TableMetrics        `json:"profile,omitempty"`
	Error      string                         `json:"error,omitempty"`
	DurationMs int64                          `json:"duration_ms"`
}

// Ok reports whether the validation ran without error-severity issues or
// failed error-level checks. Warnings do not fail a validation.
func (o *ValidationOutcome) Ok() bool {
	if o.Error != "" {
		return false
	}
	for _, iss := range o.Issues {
		if iss.Severity == wagebound.SeverityError {
			return false
		}
	}
	return o.failedChecks() == 0
}

func (o *ValidationOutcome) failedChecks() int {
	var n int
	for _, rec := range o.Checks {
		if !rec.Passed && rec.Level == wagebound.LevelError {
			n++
		}
	}
	return n
}

// RunReport is the result of one Runner.Run.
type RunReport struct {
	RunID       uuid.UUID            `json:"run_id"`
	Version     string               `json:"version"`
	StartedAt   time.Time            `json:"started_at"`
	FinishedAt  time.Time            `json:"finished_at"`
	Comparisons []*ComparisonOutcome `json:"comparisons"`
	Validations []*ValidationOutcome `json:"validations"`
}

func (r *RunReport) Ok() bool {
	for _, c := range r.Comparisons {
		if !c.Ok() {
			return false
		}
	}
	for _, v := range r.Validations {
		if !v.Ok() {
			return false
		}
	}
	return true
}

var OverviewColumns = []wagebound.Column{
	{Name: "run_id", Type: wagebound.DTypeString},
	{Name: "kind", Type: wagebound.DTypeString},
	{Name: "name", Type: wagebound.DTypeString},
	{Name: "ok", Type: wagebound.DTypeBool},
	{Name: "error", Type: wagebound.DTypeString},
	{Name: "diff_rows", Type: wagebound.DTypeInt64},
	{Name: "missing_in_expected", Type: wagebound.DTypeInt64},
	{Name: "missing_in_actual", Type: wagebound.DTypeInt64},
	{Name: "issues", Type: wagebound.DTypeInt64},
	{Name: "failed_checks", Type: wagebound.DTypeInt64},
	{Name: "duration_ms", Type: wagebound.DTypeInt64},
}

// Overview returns one row per job. Counts that do not apply to a job kind,
// or that are unknown because the job failed, are null.
func (r *RunReport) Overview() *wagebound.Table {
	runID := r.RunID.String()
	var rows [][]interface{}

	for _, c := range r.Comparisons {
		row := []interface{}{runID, "comparison", c.Name, c.Ok(), nullIfEmpty(c.Error), nil, nil, nil, nil, nil, c.DurationMs}
		if c.Result != nil {
			row[5] = int64(c.Result.DiffRows.Len())
			row[6] = int64(c.Result.MissingInExpected.Len())
			row[7] = int64(c.Result.MissingInActual.Len())
		}
		rows = append(rows, row)
	}
	for _, v := range r.Validations {
		row := []interface{}{runID, "validation", v.Name, v.Ok(), nullIfEmpty(v.Error), nil, nil, nil,
			int64(len(v.Issues)), int64(v.failedChecks()), v.DurationMs}
		rows = append(rows, row)
	}

	t, err := wagebound.NewTable(OverviewColumns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

type namedTable struct {
	name  string
	table *wagebound.Table
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// WriteExcel writes the overview and every job's tables to one workbook.
// Comparison sheets are prefixed c01_, c02_, ... and validation sheets v01_, ...
// in checks file order.
func (r *RunReport) WriteExcel(path string) error {
	wb, err := reports.NewWorkbook()
	if err != nil {
		return err
	}
	defer wb.Close()

	if err := wb.AddTable("overview", r.Overview()); err != nil {
		return err
	}
	for i, c := range r.Comparisons {
		if c.Result == nil {
			continue
		}
		if err := wb.AddVerifyResult(fmt.Sprintf("c%02d_", i+1), c.Result); err != nil {
			return err
		}
	}
	for i, v := range r.Validations {
		prefix := fmt.Sprintf("v%02d_", i+1)
		if err := wb.AddIssues(prefix+"issues", v.Issues); err != nil {
			return err
		}
		if err := wb.AddChecks(prefix+"checks", v.Checks); err != nil {
			return err
		}
		if v.Profile != nil {
			if err := wb.AddTable(prefix+"profile", ProfileMetricsTable(v.Profile)); err != nil {
				return err
			}
		}
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return wb.SaveAs(path)
}

// WriteCSV writes overview.csv plus the tables of every job into dir and
// returns the written paths.
func (r *RunReport) WriteCSV(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	opts := reports.CSVOptions{BOM: true}

	tables := []namedTable{{"overview.csv", r.Overview()}}
	for _, v := range r.Validations {
		name := fileName(v.Name)
		tables = append(tables,
			namedTable{name + "_issues.csv", wagebound.IssuesTable(v.Issues)},
			namedTable{name + "_checks.csv", wagebound.VerificationRecordsTable(v.Checks)},
		)
	}

	var paths []string
	for _, tbl := range tables {
		path := filepath.Join(dir, tbl.name)
		f, err := os.Create(path)
		if err != nil {
			return paths, err
		}
		err = reports.WriteCSV(f, tbl.table, opts)
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
		if err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		paths = append(paths, path)
	}

	for _, c := range r.Comparisons {
		if c.Result == nil {
			continue
		}
		written, err := reports.WriteVerifyResultCSV(dir, fileName(c.Name), c.Result, opts)
		paths = append(paths, written...)
		if err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// WriteSQL stores the report through sink as tables named prefix + overview,
// prefix + <comparison>_summary and so on.
func (r *RunReport) WriteSQL(ctx context.Context, sink *reports.SQLSink, prefix string) error {
	if err := sink.WriteTable(ctx, prefix+"overview", r.Overview()); err != nil {
		return err
	}

	for _, c := range r.Comparisons {
		if c.Result == nil {
			continue
		}
		name := prefix + tableName(c.Name) + "_"
		parts := []namedTable{
			{reports.SheetSummary, c.Result.Summary},
			{reports.SheetDiffRows, c.Result.DiffRows},
			{reports.SheetMissingInExpected, c.Result.MissingInExpected},
			{reports.SheetMissingInActual, c.Result.MissingInActual},
		}
		for _, p := range parts {
			if len(p.table.Columns()) == 0 {
				continue
			}
			if err := sink.WriteTable(ctx, name+p.name, p.table); err != nil {
				return err
			}
		}
	}

	for _, v := range r.Validations {
		name := prefix + tableName(v.Name) + "_"
		if err := sink.WriteTable(ctx, name+"issues", wagebound.IssuesTable(v.Issues)); err != nil {
			return err
		}
		if err := sink.WriteTable(ctx, name+"checks", wagebound.VerificationRecordsTable(v.Checks)); err != nil {
			return err
		}
	}
	return nil
}

var ProfileColumns = []wagebound.Column{
	{Name: "col_name", Type: wagebound.DTypeString},
	{Name: "col_position", Type: wagebound.DTypeInt64},
	{Name: "data_type", Type: wagebound.DTypeString},
	{Name: "null_count", Type: wagebound.DTypeInt64},
	{Name: "blank_count", Type: wagebound.DTypeInt64},
	{Name: "min_value", Type: wagebound.DTypeFloat64},
	{Name: "max_value", Type: wagebound.DTypeFloat64},
	{Name: "avg_value", Type: wagebound.DTypeFloat64},
	{Name: "stddev_value", Type: wagebound.DTypeFloat64},
	{Name: "most_frequent_value", Type: wagebound.DTypeString},
}

// ProfileMetricsTable flattens m into one row per column, in column order.
func ProfileMetricsTable(m *wagebound.TableMetrics) *wagebound.Table {
	metrics := make([]*wagebound.ColumnMetrics, 0, len(m.ColumnsMetrics))
	for _, cm := range m.ColumnsMetrics {
		metrics = append(metrics, cm)
	}
	sort.Slice(metrics, func(i, j int) bool {
		return metrics[i].ColumnPosition < metrics[j].ColumnPosition
	})

	rows := make([][]interface{}, len(metrics))
	for i, cm := range metrics {
		rows[i] = []interface{}{
			cm.ColumnName,
			int64(cm.ColumnPosition),
			string(cm.DataType),
			int64(cm.NullCount),
			derefInt(cm.BlankCount),
			derefFloat(cm.MinValue),
			derefFloat(cm.MaxValue),
			derefFloat(cm.AvgValue),
			derefFloat(cm.StddevValue),
			derefString(cm.MostFrequentValue),
		}
	}

	t, err := wagebound.NewTable(ProfileColumns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

func derefInt(p *int64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func derefFloat(p *float64) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

func derefString(p *string) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// fileName replaces characters that are unsafe in file names.
func fileName(s string) string {
	return strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_", "?", "_",
		"\"", "_", "<", "_", ">", "_", "|", "_", " ", "_",
	).Replace(s)
}

// tableName lowercases s and keeps only letters, digits and underscores.
func tableName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
