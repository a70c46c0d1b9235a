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
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

const (
	RuleIDRequiredColumns = "SCHEMA_REQUIRED_COLUMNS"
	RuleIDDTypeMismatch   = "SCHEMA_DTYPE_MISMATCH"
	RuleIDNotNull         = "SCHEMA_NOTNULL"
	RuleIDNumericRange    = "SCHEMA_NUMERIC_RANGE"
	RuleIDUniqueKey       = "SCHEMA_UNIQUE_KEY"
)

// RuleOption overrides the defaults of a rule factory.
type RuleOption func(*ValidationRule)

func WithRuleID(id string) RuleOption {
	return func(r *ValidationRule) { r.ID = id }
}

func WithSeverity(s Severity) RuleOption {
	return func(r *ValidationRule) { r.Severity = s }
}

func WithDescription(desc string) RuleOption {
	return func(r *ValidationRule) { r.Description = desc }
}

func newRule(id string, severity Severity, description string, opts []RuleOption) *ValidationRule {
	r := &ValidationRule{ID: id, Severity: severity, Description: description}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RequiredColumnsRule reports one table-level issue per required column that is absent.
func RequiredColumnsRule(columns []string, opts ...RuleOption) ValidationRule {
	columns = append([]string(nil), columns...)
	r := newRule(RuleIDRequiredColumns, SeverityError,
		"required columns are present: "+strings.Join(columns, ", "), opts)

	id, severity := r.ID, r.Severity
	r.Check = func(t *Table) []ValidationIssue {
		var issues []ValidationIssue
		for _, col := range columns {
			if t.HasColumn(col) {
				continue
			}
			issues = append(issues, ValidationIssue{
				Severity:  severity,
				RuleID:    id,
				Message:   fmt.Sprintf("missing required column: %s", col),
				Column:    col,
				KeyValues: map[string]interface{}{},
			})
		}
		return issues
	}
	return *r
}

// DTypeRule reports one table-level issue per present column whose type differs
// from the expected one. Absent columns are left to RequiredColumnsRule.
func DTypeRule(expected map[string]DType, opts ...RuleOption) ValidationRule {
	expected = copyMap(expected)
	r := newRule(RuleIDDTypeMismatch, SeverityError, "column types match the expected types", opts)

	id, severity := r.ID, r.Severity
	r.Check = func(t *Table) []ValidationIssue {
		var issues []ValidationIssue
		for _, col := range sortedNames(expected) {
			actual, ok := t.ColumnType(col)
			if !ok {
				continue
			}
			want := expected[col]
			if actual == want {
				continue
			}
			issues = append(issues, ValidationIssue{
				Severity: severity,
				RuleID:   id,
				Message:  fmt.Sprintf("column %s has type %s, expected %s", col, actual, want),
				Column:   col,
				KeyValues: map[string]interface{}{
					"expected_dtype": string(want),
					"actual_dtype":   string(actual),
				},
			})
		}
		return issues
	}
	return *r
}

// NotNullRule reports one issue per null cell in the listed columns.
func NotNullRule(columns []string, opts ...RuleOption) ValidationRule {
	columns = append([]string(nil), columns...)
	r := newRule(RuleIDNotNull, SeverityError,
		"columns must not contain nulls: "+strings.Join(columns, ", "), opts)

	id, severity := r.ID, r.Severity
	r.Check = func(t *Table) []ValidationIssue {
		var issues []ValidationIssue
		for _, col := range columns {
			values, ok := t.Column(col)
			if !ok {
				continue
			}
			for i, v := range values {
				if !IsNull(v) {
					continue
				}
				issues = append(issues, ValidationIssue{
					Severity:  severity,
					RuleID:    id,
					Message:   fmt.Sprintf("column %s must not be null, found null at row %d", col, i),
					Column:    col,
					RowIdx:    rowRef(i),
					KeyValues: map[string]interface{}{"column": col},
				})
			}
		}
		return issues
	}
	return *r
}

// Bounds is a closed numeric interval; a nil bound is open.
type Bounds struct {
	Lower *float64 `json:"lower,omitempty" yaml:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty" yaml:"upper,omitempty"`
}

// Between returns closed bounds [lower, upper].
func Between(lower, upper float64) Bounds {
	return Bounds{Lower: &lower, Upper: &upper}
}

// AtLeast returns bounds with only a lower limit.
func AtLeast(lower float64) Bounds {
	return Bounds{Lower: &lower}
}

// AtMost returns bounds with only an upper limit.
func AtMost(upper float64) Bounds {
	return Bounds{Upper: &upper}
}

// Contains reports whether v lies within the bounds.
func (b Bounds) Contains(v float64) bool {
	if b.Lower != nil && v < *b.Lower {
		return false
	}
	if b.Upper != nil && v > *b.Upper {
		return false
	}
	return true
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%s, %s]", formatBound(b.Lower), formatBound(b.Upper))
}

func formatBound(f *float64) string {
	if f == nil {
		return "none"
	}
	return strconv.FormatFloat(*f, 'g', -1, 64)
}

// NumericRangeRule coerces the listed columns to numbers and reports one
// issue per value outside its bounds. Values that are not numeric after
// coercion are not range violations.
func NumericRangeRule(ranges map[string]Bounds, opts ...RuleOption) ValidationRule {
	ranges = copyMap(ranges)
	r := newRule(RuleIDNumericRange, SeverityWarning, "numeric columns are within range", opts)

	id, severity := r.ID, r.Severity
	r.Check = func(t *Table) []ValidationIssue {
		var issues []ValidationIssue
		for _, col := range sortedNames(ranges) {
			values, ok := t.Column(col)
			if !ok {
				continue
			}
			bounds := ranges[col]
			for i, v := range values {
				f, numeric := ToFloat(v)
				if !numeric || math.IsNaN(f) || bounds.Contains(f) {
					continue
				}
				issues = append(issues, ValidationIssue{
					Severity:  severity,
					RuleID:    id,
					Message:   fmt.Sprintf("column %s value %v outside range %s", col, f, bounds),
					Column:    col,
					RowIdx:    rowRef(i),
					KeyValues: map[string]interface{}{"column": col, "value": f},
				})
			}
		}
		return issues
	}
	return *r
}

// UniqueKeyRule reports every row that belongs to a group of rows sharing the
// same key. When a key column is missing no issues are produced.
func UniqueKeyRule(keyCols []string, opts ...RuleOption) ValidationRule {
	keyCols = append([]string(nil), keyCols...)
	r := newRule(RuleIDUniqueKey, SeverityError, "key is unique: "+strings.Join(keyCols, ", "), opts)

	id, severity := r.ID, r.Severity
	r.Check = func(t *Table) []ValidationIssue {
		for _, col := range keyCols {
			if !t.HasColumn(col) {
				return nil
			}
		}

		groups := make(map[string]int, t.Len())
		keys := make([]string, t.Len())
		for i := 0; i < t.Len(); i++ {
			keys[i] = canonicalKey(keyTuple(t, i, keyCols))
			groups[keys[i]]++
		}

		var issues []ValidationIssue
		for i := 0; i < t.Len(); i++ {
			if groups[keys[i]] < 2 {
				continue
			}
			kv := make(map[string]interface{}, len(keyCols))
			for _, col := range keyCols {
				kv[col] = t.Value(i, col)
			}
			issues = append(issues, ValidationIssue{
				Severity:  severity,
				RuleID:    id,
				Message:   fmt.Sprintf("key %s is not unique (key columns: %s)", formatKey(kv, keyCols), strings.Join(keyCols, ", ")),
				RowIdx:    rowRef(i),
				KeyValues: kv,
			})
		}
		return issues
	}
	return *r
}

// RunRules runs rules in order and concatenates their issues. Issues that left
// RuleID or Severity empty inherit them from their rule.
func RunRules(t *Table, rules ...ValidationRule) []ValidationIssue {
	var issues []ValidationIssue
	for _, rule := range rules {
		for _, iss := range rule.Run(t) {
			if iss.RuleID == "" {
				iss.RuleID = rule.ID
			}
			if iss.Severity == "" {
				iss.Severity = rule.Severity
			}
			issues = append(issues, iss)
		}
	}
	return issues
}

// IssueColumns are the base columns of IssuesTable.
var IssueColumns = []string{"severity", "rule_id", "message", "column", "row_idx"}

// IssuesTable flattens issues into a table with one row per issue. Each
// KeyValues entry becomes a key_<name> column, in first-seen order.
func IssuesTable(issues []ValidationIssue) *Table {
	cols := []Column{
		{Name: "severity", Type: DTypeString},
		{Name: "rule_id", Type: DTypeString},
		{Name: "message", Type: DTypeString},
		{Name: "column", Type: DTypeString},
		{Name: "row_idx", Type: DTypeInt64},
	}

	keyIndex := map[string]int{}
	for _, iss := range issues {
		for _, k := range sortedKeys(iss.KeyValues) {
			name := "key_" + k
			if _, ok := keyIndex[name]; ok {
				continue
			}
			keyIndex[name] = len(cols)
			cols = append(cols, Column{Name: name})
		}
	}

	rows := make([][]interface{}, len(issues))
	for i, iss := range issues {
		row := make([]interface{}, len(cols))
		row[0] = string(iss.Severity)
		row[1] = iss.RuleID
		row[2] = iss.Message
		if iss.Column != "" {
			row[3] = iss.Column
		}
		if iss.RowIdx != nil {
			row[4] = int64(*iss.RowIdx)
		}
		for k, v := range iss.KeyValues {
			row[keyIndex["key_"+k]] = v
		}
		rows[i] = row
	}

	t, err := NewTable(cols, rows)
	if err != nil {
		// columns are unique and rows are sized from cols
		panic(err)
	}
	return t
}

func keyTuple(t *Table, row int, keyCols []string) []interface{} {
	out := make([]interface{}, len(keyCols))
	for i, col := range keyCols {
		out[i] = t.Value(row, col)
	}
	return out
}

func formatKey(kv map[string]interface{}, keyCols []string) string {
	parts := make([]string, len(keyCols))
	for i, col := range keyCols {
		parts[i] = fmt.Sprintf("%s=%v", col, kv[col])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
