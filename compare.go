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

package wagebound

import (
	"errors"
	"fmt"
	"math"
)

const (
	// MergeColumn holds the provenance of each joined row.
	MergeColumn = "_merge"

	MergeBoth         = "both"
	MergeExpectedOnly = "expected_only"
	MergeActualOnly   = "actual_only"

	DefaultLabelExpected = "exp"
	DefaultLabelActual   = "act"

	// DefaultRtol is the relative tolerance used when a checks file omits rtol.
	DefaultRtol = 1e-6
)

var (
	ErrMissingKeyColumn = errors.New("missing key column")
	ErrNoKeyColumns     = errors.New("no key columns configured")
	ErrInvalidTolerance = errors.New("tolerance must be a non-negative number")
)

// MissingKeyColumnError reports a key column absent from one of the compared tables.
type MissingKeyColumnError struct {
	Column string
	// Side is "expected" or "actual".
	Side string
}

func (e *MissingKeyColumnError) Error() string {
	return fmt.Sprintf("%s table is missing key column %q", e.Side, e.Column)
}

func (e *MissingKeyColumnError) Is(target error) bool {
	return target == ErrMissingKeyColumn
}

// VerifyConfig holds the parameters of an expected-vs-actual comparison.
type VerifyConfig struct {
	KeyCols     []string `json:"key_cols" yaml:"key_cols"`
	NumericCols []string `json:"numeric_cols" yaml:"numeric_cols"`
	// LabelExpected and LabelActual suffix same-named non-key columns after
	// the join; empty means "exp" / "act".
	LabelExpected string  `json:"label_expected,omitempty" yaml:"label_expected,omitempty"`
	LabelActual   string  `json:"label_actual,omitempty" yaml:"label_actual,omitempty"`
	Atol          float64 `json:"atol" yaml:"atol"`
	Rtol          float64 `json:"rtol" yaml:"rtol"`
}

func (c VerifyConfig) labels() (string, string) {
	exp, act := c.LabelExpected, c.LabelActual
	if exp == "" {
		exp = DefaultLabelExpected
	}
	if act == "" {
		act = DefaultLabelActual
	}
	return exp, act
}

// Validate checks the configuration itself; key columns are checked against
// the tables by CompareDatasets.
func (c VerifyConfig) Validate() error {
	if len(c.KeyCols) == 0 {
		return ErrNoKeyColumns
	}
	if c.Atol < 0 || math.IsNaN(c.Atol) || c.Rtol < 0 || math.IsNaN(c.Rtol) {
		return fmt.Errorf("%w: atol=%v rtol=%v", ErrInvalidTolerance, c.Atol, c.Rtol)
	}
	exp, act := c.labels()
	if exp == act {
		return fmt.Errorf("expected and actual labels must differ, both are %q", exp)
	}
	return nil
}

// IsClose reports whether actual is within tolerance of expected:
// |a - e| <= atol + rtol*|e|. Two NaNs are equal; NaN and a number are not.
func IsClose(expected, actual, atol, rtol float64) bool {
	eNaN, aNaN := math.IsNaN(expected), math.IsNaN(actual)
	if eNaN || aNaN {
		return eNaN && aNaN
	}
	if expected == actual {
		return true
	}
	return math.Abs(actual-expected) <= atol+rtol*math.Abs(expected)
}

// ColumnDiff summarises the differences found in one numeric column.
type ColumnDiff struct {
	Column      string  `json:"col"`
	NDiffRows   int     `json:"n_diff_rows"`
	MaxAbsDiff  float64 `json:"max_abs_diff"`
	MeanAbsDiff float64 `json:"mean_abs_diff"`
}

// SummaryColumns are the columns of VerifyResult.Summary.
var SummaryColumns = []Column{
	{Name: "col", Type: DTypeString},
	{Name: "n_diff_rows", Type: DTypeInt64},
	{Name: "max_abs_diff", Type: DTypeFloat64},
	{Name: "mean_abs_diff", Type: DTypeFloat64},
}

// VerifyResult is the outcome of CompareDatasets.
type VerifyResult struct {
	// Merged is the full outer join with a MergeColumn provenance column.
	Merged *Table
	// DiffRows are the rows present on both sides where at least one numeric
	// column is out of tolerance.
	DiffRows *Table
	// MissingInExpected holds the joined rows whose key exists only in actual.
	MissingInExpected *Table
	// MissingInActual holds the joined rows whose key exists only in expected.
	MissingInActual *Table
	Summary         *Table
	Columns         []ColumnDiff
	KeyCols         []string
}

// Ok reports whether the two tables agree: no diff rows and no one-sided keys.
func (r *VerifyResult) Ok() bool {
	return r.DiffRows.Len() == 0 && r.MissingInExpected.Len() == 0 && r.MissingInActual.Len() == 0
}

// MissingInActualKeys returns the key tuples present only in expected.
func (r *VerifyResult) MissingInActualKeys() [][]interface{} {
	return keyTuples(r.MissingInActual, r.KeyCols)
}

// MissingInExpectedKeys returns the key tuples present only in actual.
func (r *VerifyResult) MissingInExpectedKeys() [][]interface{} {
	return keyTuples(r.MissingInExpected, r.KeyCols)
}

func keyTuples(t *Table, keyCols []string) [][]interface{} {
	out := make([][]interface{}, t.Len())
	for i := range out {
		out[i] = keyTuple(t, i, keyCols)
	}
	return out
}

// CompareDatasets joins expected and actual on cfg.KeyCols and diffs
// cfg.NumericCols within tolerance. A key column missing from either table is
// returned as a *MissingKeyColumnError; everything else about the data is
// reported in the result.
func CompareDatasets(expected, actual *Table, cfg VerifyConfig) (*VerifyResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, col := range cfg.KeyCols {
		if !expected.HasColumn(col) {
			return nil, &MissingKeyColumnError{Column: col, Side: "expected"}
		}
		if !actual.HasColumn(col) {
			return nil, &MissingKeyColumnError{Column: col, Side: "actual"}
		}
	}

	labelExp, labelAct := cfg.labels()
	merged, err := outerJoin(expected, actual, cfg.KeyCols, labelExp, labelAct)
	if err != nil {
		return nil, err
	}

	var bothRows, expOnlyRows, actOnlyRows []int
	for i := 0; i < merged.Len(); i++ {
		switch merged.Value(i, MergeColumn) {
		case MergeBoth:
			bothRows = append(bothRows, i)
		case MergeExpectedOnly:
			expOnlyRows = append(expOnlyRows, i)
		case MergeActualOnly:
			actOnlyRows = append(actOnlyRows, i)
		}
	}

	result := &VerifyResult{
		Merged:            merged,
		MissingInActual:   merged.Take(expOnlyRows),
		MissingInExpected: merged.Take(actOnlyRows),
		KeyCols:           append([]string(nil), cfg.KeyCols...),
	}

	both := merged.Take(bothRows)
	if both.Len() == 0 {
		result.DiffRows = both
		result.Summary = summaryTable(nil)
		return result, nil
	}

	diffMask := make([]bool, both.Len())
	for _, col := range cfg.NumericCols {
		colExp := col + "_" + labelExp
		colAct := col + "_" + labelAct
		expValues, okExp := both.Column(colExp)
		actValues, okAct := both.Column(colAct)
		if !okExp || !okAct {
			continue
		}

		summary := ColumnDiff{Column: col}
		var sumAbs float64
		var nValid int
		for i := range expValues {
			e, _ := ToFloat(expValues[i])
			a, _ := ToFloat(actValues[i])
			if IsClose(e, a, cfg.Atol, cfg.Rtol) {
				continue
			}
			diffMask[i] = true
			summary.NDiffRows++

			d := math.Abs(a - e)
			if math.IsNaN(d) {
				continue
			}
			nValid++
			sumAbs += d
			if d > summary.MaxAbsDiff {
				summary.MaxAbsDiff = d
			}
		}
		if nValid > 0 {
			summary.MeanAbsDiff = sumAbs / float64(nValid)
		}
		result.Columns = append(result.Columns, summary)
	}

	var diffRows []int
	for i, diff := range diffMask {
		if diff {
			diffRows = append(diffRows, i)
		}
	}
	result.DiffRows = both.Take(diffRows)
	result.Summary = summaryTable(result.Columns)

	return result, nil
}

func summaryTable(cols []ColumnDiff) *Table {
	rows := make([][]interface{}, len(cols))
	for i, c := range cols {
		rows[i] = []interface{}{c.Column, int64(c.NDiffRows), c.MaxAbsDiff, c.MeanAbsDiff}
	}
	t, err := NewTable(SummaryColumns, rows)
	if err != nil {
		panic(err)
	}
	return t
}

// outerJoin performs a full outer join of left and right on keyCols. Rows of
// left come first in input order, each followed by its matches; unmatched
// right rows follow in input order. Duplicate keys produce every pairing.
func outerJoin(left, right *Table, keyCols []string, labelLeft, labelRight string) (*Table, error) {
	isKey := make(map[string]bool, len(keyCols))
	for _, k := range keyCols {
		isKey[k] = true
	}

	cols := make([]Column, 0, len(keyCols)+len(left.columns)+len(right.columns)+1)
	for _, k := range keyCols {
		lt, _ := left.ColumnType(k)
		rt, _ := right.ColumnType(k)
		typ := lt
		if lt != rt {
			typ = ""
		}
		cols = append(cols, Column{Name: k, Type: typ})
	}

	type source struct {
		side int // 0 left, 1 right
		idx  int
	}
	var sources []source
	for _, c := range left.columns {
		if isKey[c.Name] {
			continue
		}
		name := c.Name
		if right.HasColumn(c.Name) {
			name = c.Name + "_" + labelLeft
		}
		cols = append(cols, Column{Name: name, Type: c.Type})
		sources = append(sources, source{side: 0, idx: left.index[c.Name]})
	}
	for _, c := range right.columns {
		if isKey[c.Name] {
			continue
		}
		name := c.Name
		if left.HasColumn(c.Name) {
			name = c.Name + "_" + labelRight
		}
		cols = append(cols, Column{Name: name, Type: c.Type})
		sources = append(sources, source{side: 1, idx: right.index[c.Name]})
	}
	cols = append(cols, Column{Name: MergeColumn, Type: DTypeString})

	rightByKey := make(map[string][]int, right.Len())
	for i := 0; i < right.Len(); i++ {
		k := canonicalKey(keyTuple(right, i, keyCols))
		rightByKey[k] = append(rightByKey[k], i)
	}

	build := func(l, r int, provenance string) []interface{} {
		row := make([]interface{}, 0, len(cols))
		for _, k := range keyCols {
			if l >= 0 {
				row = append(row, left.Value(l, k))
			} else {
				row = append(row, right.Value(r, k))
			}
		}
		for _, s := range sources {
			var v interface{}
			if s.side == 0 && l >= 0 {
				v = left.rows[l][s.idx]
			}
			if s.side == 1 && r >= 0 {
				v = right.rows[r][s.idx]
			}
			row = append(row, v)
		}
		return append(row, provenance)
	}

	var rows [][]interface{}
	matchedRight := make([]bool, right.Len())
	for l := 0; l < left.Len(); l++ {
		matches := rightByKey[canonicalKey(keyTuple(left, l, keyCols))]
		if len(matches) == 0 {
			rows = append(rows, build(l, -1, MergeExpectedOnly))
			continue
		}
		for _, r := range matches {
			matchedRight[r] = true
			rows = append(rows, build(l, r, MergeBoth))
		}
	}
	for r := 0; r < right.Len(); r++ {
		if !matchedRight[r] {
			rows = append(rows, build(-1, r, MergeActualOnly))
		}
	}

	merged, err := NewTable(cols, rows)
	if err != nil {
		return nil, fmt.Errorf("failed to build joined table: %w", err)
	}
	return merged, nil
}
