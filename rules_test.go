package wagebound

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTable(t *testing.T, columns []string, rows ...[]interface{}) *Table {
	t.Helper()
	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name}
	}
	tbl, err := NewTable(cols, rows)
	require.NoError(t, err)
	return tbl
}

func TestRequiredColumnsRule(t *testing.T) {
	tbl := mustTable(t, []string{"Case_ID", "Funding_Amt"}, []interface{}{1, 100.0})

	tests := []struct {
		name        string
		required    []string
		wantColumns []string
	}{
		{name: "all present", required: []string{"Case_ID", "Funding_Amt"}},
		{name: "one missing", required: []string{"Case_ID", "Apply_Date"}, wantColumns: []string{"Apply_Date"}},
		{name: "two missing, in order", required: []string{"b", "a"}, wantColumns: []string{"b", "a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := RequiredColumnsRule(tt.required).Run(tbl)
			require.Len(t, issues, len(tt.wantColumns))
			for i, iss := range issues {
				assert.Equal(t, tt.wantColumns[i], iss.Column)
				assert.Equal(t, RuleIDRequiredColumns, iss.RuleID)
				assert.Equal(t, SeverityError, iss.Severity)
				assert.Nil(t, iss.RowIdx)
			}
		})
	}
}

func TestDTypeRule(t *testing.T) {
	tbl := mustTable(t, []string{"id", "amt", "name"},
		[]interface{}{1, 10.5, "a"},
		[]interface{}{2, 11.0, "b"},
	)

	issues := DTypeRule(map[string]DType{
		"id":      DTypeInt64,
		"amt":     DTypeInt64,
		"name":    DTypeString,
		"missing": DTypeFloat64,
	}).Run(tbl)

	require.Len(t, issues, 1)
	assert.Equal(t, "amt", issues[0].Column)
	assert.Equal(t, RuleIDDTypeMismatch, issues[0].RuleID)
	assert.Equal(t, "column amt has type float64, expected int64", issues[0].Message)
	assert.Equal(t, "int64", issues[0].KeyValues["expected_dtype"])
	assert.Equal(t, "float64", issues[0].KeyValues["actual_dtype"])
}

func TestNotNullRule(t *testing.T) {
	tbl := mustTable(t, []string{"id", "amt"},
		[]interface{}{1, 10.0},
		[]interface{}{nil, math.NaN()},
		[]interface{}{3, nil},
	)

	issues := NotNullRule([]string{"id", "amt", "missing"}).Run(tbl)
	require.Len(t, issues, 3)

	got := make([][2]interface{}, len(issues))
	for i, iss := range issues {
		require.NotNil(t, iss.RowIdx)
		got[i] = [2]interface{}{iss.Column, *iss.RowIdx}
		assert.Equal(t, RuleIDNotNull, iss.RuleID)
	}
	assert.Equal(t, [][2]interface{}{{"id", 1}, {"amt", 1}, {"amt", 2}}, got)
}

func TestNumericRangeRule(t *testing.T) {
	tbl := mustTable(t, []string{"ltv"},
		[]interface{}{0.5},
		[]interface{}{"1.2"},
		[]interface{}{-0.1},
		[]interface{}{"n/a"},
		[]interface{}{nil},
		[]interface{}{1.0},
	)

	tests := []struct {
		name     string
		bounds   Bounds
		wantRows []int
	}{
		{name: "closed interval", bounds: Between(0, 1), wantRows: []int{1, 2}},
		{name: "lower only", bounds: AtLeast(0), wantRows: []int{2}},
		{name: "upper only", bounds: AtMost(1), wantRows: []int{1}},
		{name: "unbounded", bounds: Bounds{}, wantRows: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues := NumericRangeRule(map[string]Bounds{"ltv": tt.bounds}).Run(tbl)
			var rows []int
			for _, iss := range issues {
				rows = append(rows, *iss.RowIdx)
				assert.Equal(t, SeverityWarning, iss.Severity)
			}
			assert.Equal(t, tt.wantRows, rows)
		})
	}
}

func TestUniqueKeyRule(t *testing.T) {
	tbl := mustTable(t, []string{"Case_ID", "Seq"},
		[]interface{}{1, "a"},
		[]interface{}{1, "b"},
		[]interface{}{2, "c"},
		[]interface{}{int64(1), "d"},
	)

	issues := UniqueKeyRule([]string{"Case_ID"}).Run(tbl)
	require.Len(t, issues, 3)
	for i, wantRow := range []int{0, 1, 3} {
		assert.Equal(t, wantRow, *issues[i].RowIdx)
		assert.Equal(t, RuleIDUniqueKey, issues[i].RuleID)
		assert.Contains(t, issues[i].KeyValues, "Case_ID")
	}

	assert.Empty(t, UniqueKeyRule([]string{"Case_ID", "Seq"}).Run(tbl))
	assert.Empty(t, UniqueKeyRule([]string{"missing"}).Run(tbl))
}

func TestUniqueKeyRuleLargeIntegerKeys(t *testing.T) {
	tbl := mustTable(t, []string{"Case_ID"},
		[]interface{}{int64(9007199254740992)},
		[]interface{}{int64(9007199254740993)},
	)
	assert.Empty(t, UniqueKeyRule([]string{"Case_ID"}).Run(tbl))

	dup := mustTable(t, []string{"Case_ID"},
		[]interface{}{int64(9007199254740993)},
		[]interface{}{int64(9007199254740993)},
	)
	assert.Len(t, UniqueKeyRule([]string{"Case_ID"}).Run(dup), 2)
}

func TestRuleOptions(t *testing.T) {
	rule := NotNullRule([]string{"a"},
		WithRuleID("CUSTOM"),
		WithSeverity(SeverityWarning),
		WithDescription("custom description"))

	assert.Equal(t, "CUSTOM", rule.ID)
	assert.Equal(t, SeverityWarning, rule.Severity)
	assert.Equal(t, "custom description", rule.Description)

	issues := rule.Run(mustTable(t, []string{"a"}, []interface{}{nil}))
	require.Len(t, issues, 1)
	assert.Equal(t, "CUSTOM", issues[0].RuleID)
	assert.Equal(t, SeverityWarning, issues[0].Severity)
}

func TestRunRules(t *testing.T) {
	tbl := mustTable(t, []string{"Case_ID", "Funding_Amt"},
		[]interface{}{1, 100.0},
		[]interface{}{1, nil},
	)

	rules := []ValidationRule{
		RequiredColumnsRule([]string{"Case_ID", "Apply_Date"}),
		NotNullRule([]string{"Funding_Amt"}),
		UniqueKeyRule([]string{"Case_ID"}),
		{
			ID:       "CUSTOM_EMPTY_FIELDS",
			Severity: SeverityWarning,
			Check: func(t *Table) []ValidationIssue {
				return []ValidationIssue{{Message: "custom"}}
			},
		},
	}

	issues := RunRules(tbl, rules...)
	require.Len(t, issues, 5)

	var ids []string
	for _, iss := range issues {
		ids = append(ids, iss.RuleID)
	}
	assert.Equal(t, []string{
		RuleIDRequiredColumns,
		RuleIDNotNull,
		RuleIDUniqueKey,
		RuleIDUniqueKey,
		"CUSTOM_EMPTY_FIELDS",
	}, ids)
	assert.Equal(t, SeverityWarning, issues[4].Severity)

	// each rule reports the same issues alone as in a batch
	var separately []ValidationIssue
	for _, rule := range rules {
		separately = append(separately, RunRules(tbl, rule)...)
	}
	assert.Equal(t, issues, separately)
}

func TestIssuesTable(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		tbl := IssuesTable(nil)
		assert.Equal(t, 0, tbl.Len())
		assert.Equal(t, IssueColumns, tbl.ColumnNames())
	})

	t.Run("key columns", func(t *testing.T) {
		tbl := mustTable(t, []string{"Case_ID", "Seq"},
			[]interface{}{7, 1},
			[]interface{}{7, 2},
		)
		issues := RunRules(tbl,
			RequiredColumnsRule([]string{"Apply_Date"}),
			UniqueKeyRule([]string{"Case_ID", "Seq"}),
			UniqueKeyRule([]string{"Case_ID"}),
		)

		out := IssuesTable(issues)
		require.Equal(t, 3, out.Len())
		assert.Equal(t, append(append([]string(nil), IssueColumns...), "key_Case_ID"), out.ColumnNames())

		assert.Equal(t, "Apply_Date", out.Value(0, "column"))
		assert.Nil(t, out.Value(0, "row_idx"))
		assert.Nil(t, out.Value(0, "key_Case_ID"))

		assert.Equal(t, int64(0), out.Value(1, "row_idx"))
		assert.Equal(t, 7, out.Value(1, "key_Case_ID"))
		assert.Equal(t, string(SeverityError), out.Value(1, "severity"))
	})
}

func TestUniqueKeyRuleDuplicateScenario(t *testing.T) {
	tbl, err := FromRecords([]string{"id"}, []map[string]interface{}{
		{"id": 1}, {"id": 1}, {"id": 2},
	})
	require.NoError(t, err)

	issues := UniqueKeyRule([]string{"id"}).Run(tbl)
	require.Len(t, issues, 2)
	for i, iss := range issues {
		assert.Equal(t, i, *iss.RowIdx)
		assert.Equal(t, 1, iss.KeyValues["id"])
	}
}
