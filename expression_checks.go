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
	"context"
	"fmt"
	"math"
	"strings"
)

// BuildRule turns a rule-scope expression into a ValidationRule.
//
//	required_columns(a, b)
//	dtype(a) == float64
//	not_null(a, b)
//	range(a) between 0 and 100 | range(a) >= 0 | range(a) <= 100
//	unique_key(a, b)
func BuildRule(expr *CheckExpression, opts ...RuleOption) (ValidationRule, error) {
	if expr == nil {
		return ValidationRule{}, fmt.Errorf("check does not have parsed structure")
	}
	if expr.Scope != ScopeRule {
		return ValidationRule{}, fmt.Errorf("%s is not a rule expression", expr.FunctionName)
	}
	if len(expr.FunctionParameters) == 0 {
		return ValidationRule{}, fmt.Errorf("%s check requires a column parameter", expr.FunctionName)
	}
	params := expr.FunctionParameters

	switch expr.FunctionName {
	case "required_columns":
		return RequiredColumnsRule(params, opts...), nil

	case "not_null":
		return NotNullRule(params, opts...), nil

	case "unique_key":
		return UniqueKeyRule(params, opts...), nil

	case "dtype":
		if expr.Operator != "==" {
			return ValidationRule{}, fmt.Errorf("dtype check requires '==', got %q", expr.Operator)
		}
		want := DType(fmt.Sprintf("%v", expr.ThresholdValue))
		expected := make(map[string]DType, len(params))
		for _, col := range params {
			expected[col] = want
		}
		return DTypeRule(expected, opts...), nil

	case "range":
		bounds, err := boundsFromExpression(expr)
		if err != nil {
			return ValidationRule{}, err
		}
		ranges := make(map[string]Bounds, len(params))
		for _, col := range params {
			ranges[col] = bounds
		}
		return NumericRangeRule(ranges, opts...), nil
	}

	return ValidationRule{}, fmt.Errorf("unsupported rule function: %s", expr.FunctionName)
}

func boundsFromExpression(expr *CheckExpression) (Bounds, error) {
	switch expr.Operator {
	case "between":
		r, ok := expr.ThresholdValue.(BetweenRange)
		if !ok {
			return Bounds{}, fmt.Errorf("range check has malformed between values")
		}
		lo, err := thresholdFloat(r.Min)
		if err != nil {
			return Bounds{}, err
		}
		hi, err := thresholdFloat(r.Max)
		if err != nil {
			return Bounds{}, err
		}
		return Between(lo, hi), nil
	case ">=":
		lo, err := thresholdFloat(expr.ThresholdValue)
		if err != nil {
			return Bounds{}, err
		}
		return AtLeast(lo), nil
	case "<=":
		hi, err := thresholdFloat(expr.ThresholdValue)
		if err != nil {
			return Bounds{}, err
		}
		return AtMost(hi), nil
	case ">", "<":
		return Bounds{}, fmt.Errorf("range bounds are inclusive, use >=, <= or between instead of %q", expr.Operator)
	}
	return Bounds{}, fmt.Errorf("range check requires between, >= or <=, got %q", expr.Operator)
}

// ExpressionCheck is a registry Check computed from a table, schema or column
// expression such as "row_count > 0" or "avg(amt) between 1 and 10".
type ExpressionCheck struct {
	Expression string
	Parsed     *CheckExpression
	// FailLevel is the level reported when the check does not pass.
	FailLevel string
}

// NewExpressionCheck parses expression into a Check.
func NewExpressionCheck(expression string, failLevel string) (*ExpressionCheck, error) {
	parsed, err := ParseCheckExpression(expression)
	if err != nil {
		return nil, err
	}
	if parsed.Scope == ScopeRule {
		return nil, fmt.Errorf("%s is a rule expression, use BuildRule", parsed.FunctionName)
	}
	if failLevel == "" {
		failLevel = LevelError
	}
	return &ExpressionCheck{Expression: expression, Parsed: parsed, FailLevel: failLevel}, nil
}

func (c *ExpressionCheck) Run(ctx context.Context, t *Table, _ CheckContext) (CheckOutcome, error) {
	if err := ctx.Err(); err != nil {
		return CheckOutcome{}, err
	}

	p := c.Parsed
	switch p.Scope {
	case ScopeSchema:
		return c.runSchema(t)
	case ScopeTable, ScopeColumn:
	default:
		return CheckOutcome{}, fmt.Errorf("unsupported scope %s for %s", p.Scope, p.FunctionName)
	}

	value, err := computeMetric(t, p)
	if err != nil {
		return CheckOutcome{}, err
	}

	passed := true
	switch {
	case p.Operator != "":
		passed, err = compareThreshold(value, p.Operator, p.ThresholdValue)
		if err != nil {
			return CheckOutcome{}, err
		}
	case p.FunctionName == "uniqueness":
		passed = value == 0
	}

	outcome := CheckOutcome{
		Passed:  passed,
		Message: fmt.Sprintf("%s = %v", metricLabel(p), value),
		Details: map[string]interface{}{"expression": c.Expression, "value": value},
	}
	if !passed {
		outcome.Level = c.FailLevel
	}
	return outcome, nil
}

func (c *ExpressionCheck) runSchema(t *Table) (CheckOutcome, error) {
	p := c.Parsed
	var passed bool
	var offending []string

	switch p.FunctionName {
	case "columns_not_present":
		for _, col := range p.FunctionParameters {
			if t.HasColumn(col) {
				offending = append(offending, col)
			}
		}
		passed = len(offending) == 0

	case "expect_columns_ordered":
		position := make(map[string]int, len(t.columns))
		for i, name := range t.ColumnNames() {
			position[name] = i
		}
		passed = true
		last := -1
		for _, col := range p.FunctionParameters {
			pos, ok := position[col]
			if !ok || pos < last {
				passed = false
				offending = append(offending, col)
				continue
			}
			last = pos
		}

	default:
		return CheckOutcome{}, fmt.Errorf("unsupported schema function: %s", p.FunctionName)
	}

	outcome := CheckOutcome{
		Passed:  passed,
		Details: map[string]interface{}{"expression": c.Expression, "columns": t.ColumnNames()},
	}
	if !passed {
		outcome.Level = c.FailLevel
		outcome.Message = fmt.Sprintf("%s failed for columns: %s", p.FunctionName, strings.Join(offending, ", "))
	}
	return outcome, nil
}

func metricLabel(p *CheckExpression) string {
	if len(p.FunctionParameters) == 0 {
		return p.FunctionName
	}
	return fmt.Sprintf("%s(%s)", p.FunctionName, strings.Join(p.FunctionParameters, ", "))
}

func computeMetric(t *Table, p *CheckExpression) (float64, error) {
	if p.FunctionName == "row_count" {
		return float64(t.Len()), nil
	}

	if len(p.FunctionParameters) != 1 {
		return 0, fmt.Errorf("%s check requires exactly one column parameter", p.FunctionName)
	}
	col := p.FunctionParameters[0]
	values, ok := t.Column(col)
	if !ok {
		return 0, fmt.Errorf("column %s not found", col)
	}

	switch p.FunctionName {
	case "null_count":
		var n int
		for _, v := range values {
			if IsNull(v) {
				n++
			}
		}
		return float64(n), nil

	case "blank_count":
		var n int
		for _, v := range values {
			if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
				n++
			}
		}
		return float64(n), nil

	case "distinct_count", "uniqueness":
		distinct := map[string]bool{}
		var nonNull int
		for _, v := range values {
			if IsNull(v) {
				continue
			}
			nonNull++
			distinct[canonicalValue(v)] = true
		}
		if p.FunctionName == "distinct_count" {
			return float64(len(distinct)), nil
		}
		return float64(nonNull - len(distinct)), nil
	}

	stats := numericStats(ToFloats(values))
	if p.FunctionName == "sum" {
		return stats.sum, nil
	}
	if stats.n == 0 {
		return 0, fmt.Errorf("column %s has no numeric values", col)
	}
	switch p.FunctionName {
	case "min":
		return stats.min, nil
	case "max":
		return stats.max, nil
	case "avg":
		return stats.mean(), nil
	case "stddev":
		return stats.stddev(), nil
	}
	return 0, fmt.Errorf("unsupported check function: %s", p.FunctionName)
}

func compareThreshold(value float64, operator string, threshold interface{}) (bool, error) {
	if operator == "between" {
		r, ok := threshold.(BetweenRange)
		if !ok {
			return false, fmt.Errorf("malformed between range")
		}
		lo, err := thresholdFloat(r.Min)
		if err != nil {
			return false, err
		}
		hi, err := thresholdFloat(r.Max)
		if err != nil {
			return false, err
		}
		return value >= lo && value <= hi, nil
	}

	th, err := thresholdFloat(threshold)
	if err != nil {
		return false, err
	}
	switch operator {
	case ">":
		return value > th, nil
	case ">=":
		return value >= th, nil
	case "<":
		return value < th, nil
	case "<=":
		return value <= th, nil
	case "==":
		return value == th, nil
	case "!=":
		return value != th, nil
	}
	return false, fmt.Errorf("unsupported operator: %s", operator)
}

type floatStats struct {
	n        int
	sum      float64
	min, max float64
	// running mean and sum of squared deviations (Welford)
	avg, m2 float64
}

func numericStats(values []float64) floatStats {
	s := floatStats{min: math.Inf(1), max: math.Inf(-1)}
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		s.n++
		s.sum += v
		s.min = math.Min(s.min, v)
		s.max = math.Max(s.max, v)

		delta := v - s.avg
		s.avg += delta / float64(s.n)
		s.m2 += delta * (v - s.avg)
	}
	return s
}

func (s floatStats) mean() float64 {
	if s.n == 0 {
		return 0
	}
	return s.sum / float64(s.n)
}

// stddev is the population standard deviation.
func (s floatStats) stddev() float64 {
	if s.n == 0 {
		return 0
	}
	v := s.m2 / float64(s.n)
	if v < 0 {
		v = 0
	}
	return math.Sqrt(v)
}
