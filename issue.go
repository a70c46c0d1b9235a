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

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationIssue is one anomaly detected by a rule.
type ValidationIssue struct {
	Severity Severity `json:"severity"`
	RuleID   string   `json:"rule_id"`
	Message  string   `json:"message"`
	// Column is empty for issues that are not tied to a single column.
	Column string `json:"column,omitempty"`
	// RowIdx is nil for table-level issues.
	RowIdx    *int                   `json:"row_idx,omitempty"`
	KeyValues map[string]interface{} `json:"key_values,omitempty"`
}

// CheckFn inspects a table and returns the issues it finds. It must not keep
// state between calls.
type CheckFn func(t *Table) []ValidationIssue

// ValidationRule is a named, severity-tagged check over one table.
type ValidationRule struct {
	ID          string   `json:"id"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
	Check       CheckFn  `json:"-"`
}

// Run executes the rule's check against t.
func (r ValidationRule) Run(t *Table) []ValidationIssue {
	if r.Check == nil {
		return nil
	}
	return r.Check(t)
}

func rowRef(i int) *int {
	return &i
}
