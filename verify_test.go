package wagebound

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		layout   DateLayout
		expected time.Time
		wantErr  bool
	}{
		{name: "roc compact", input: "1130105", layout: DateLayoutROC, expected: date(2024, 1, 5)},
		{name: "roc two-digit year", input: "990105", layout: DateLayoutROC, expected: date(2010, 1, 5)},
		{name: "roc separated", input: "113/1/5", layout: DateLayoutROC, expected: date(2024, 1, 5)},
		{name: "roc dashes", input: "113-12-31", layout: DateLayoutROC, expected: date(2024, 12, 31)},
		{name: "roc spreadsheet float", input: "1130105.0", layout: DateLayoutROC, expected: date(2024, 1, 5)},
		{name: "roc full-width", input: "１１３０１０５", layout: DateLayoutROC, expected: date(2024, 1, 5)},
		{name: "roc invalid day", input: "1130230", layout: DateLayoutROC, wantErr: true},
		{name: "roc invalid month", input: "1131305", layout: DateLayoutROC, wantErr: true},
		{name: "roc gregorian input", input: "20240105", layout: DateLayoutROC, wantErr: true},
		{name: "iso dash", input: "2024-01-05", layout: DateLayoutISO, expected: date(2024, 1, 5)},
		{name: "iso slash", input: "2024/01/05", layout: DateLayoutISO, expected: date(2024, 1, 5)},
		{name: "iso compact", input: "20240105", layout: DateLayoutISO, expected: date(2024, 1, 5)},
		{name: "default layout is iso", input: "2024-01-05", expected: date(2024, 1, 5)},
		{name: "empty", input: "  ", layout: DateLayoutISO, wantErr: true},
		{name: "unknown layout", input: "2024-01-05", layout: "julian", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input, tt.layout)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.expected.Equal(got), "got %v, expected %v", got, tt.expected)
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPrepareDateColumns(t *testing.T) {
	tbl := mustTable(t, []string{"id", "Apply_Date"},
		[]interface{}{1, "1130105"},
		[]interface{}{2, 1130106},
		[]interface{}{3, "not a date"},
		[]interface{}{4, nil},
		[]interface{}{5, 1130107.5},
	)

	out, err := PrepareDateColumns(tbl, DateLayoutROC, "Apply_Date", "missing")
	require.NoError(t, err)

	typ, _ := out.ColumnType("Apply_Date")
	assert.Equal(t, DTypeDatetime, typ)
	assert.Equal(t, date(2024, 1, 5), out.Value(0, "Apply_Date"))
	assert.Equal(t, date(2024, 1, 6), out.Value(1, "Apply_Date"))
	assert.Nil(t, out.Value(2, "Apply_Date"))
	assert.Nil(t, out.Value(3, "Apply_Date"))
	assert.Nil(t, out.Value(4, "Apply_Date"))

	assert.Equal(t, "1130105", tbl.Value(0, "Apply_Date"), "input must not change")
}

func TestVerifyTables(t *testing.T) {
	expected := mustTable(t, []string{"Case_ID", "Apply_Date", "Funding_Amt", "Extra"},
		[]interface{}{1, "1130105", 100.0, "x"},
		[]interface{}{2, "1130106", 200.0, "y"},
	)
	actual := mustTable(t, []string{"Case_ID", "Apply_Date", "Funding_Amt"},
		[]interface{}{1, "2024-01-05", 100.0},
		[]interface{}{2, "2024-01-06", 250.0},
	)

	t.Run("date keys are normalised per side", func(t *testing.T) {
		expPrepared, err := PrepareDateColumns(expected, DateLayoutROC, "Apply_Date")
		require.NoError(t, err)
		actPrepared, err := PrepareDateColumns(actual, DateLayoutISO, "Apply_Date")
		require.NoError(t, err)

		res, err := VerifyTables(expPrepared, actPrepared, VerifyConfig{
			KeyCols:     []string{"Case_ID", "Apply_Date"},
			NumericCols: []string{"Funding_Amt"},
		}, WithUseColumns([]string{"Funding_Amt"}, nil))
		require.NoError(t, err)

		assert.Equal(t, 0, res.MissingInActual.Len())
		assert.Equal(t, 0, res.MissingInExpected.Len())
		require.Equal(t, 1, res.DiffRows.Len())
		assert.Equal(t, 2, res.DiffRows.Value(0, "Case_ID"))
		assert.False(t, res.Merged.HasColumn("Extra"))
	})

	t.Run("date option converts both sides", func(t *testing.T) {
		res, err := VerifyTables(expected, expected, VerifyConfig{
			KeyCols:     []string{"Case_ID", "Apply_Date"},
			NumericCols: []string{"Funding_Amt"},
		}, WithDateColumns(DateLayoutROC, "Apply_Date"))
		require.NoError(t, err)
		assert.True(t, res.Ok())

		typ, _ := res.Merged.ColumnType("Apply_Date")
		assert.Equal(t, DTypeDatetime, typ)
	})

	t.Run("projection keeps key columns", func(t *testing.T) {
		res, err := VerifyTables(expected, actual, VerifyConfig{
			KeyCols:     []string{"Case_ID"},
			NumericCols: []string{"Funding_Amt"},
		}, WithUseColumns([]string{"Funding_Amt"}, []string{"Funding_Amt"}))
		require.NoError(t, err)
		assert.Equal(t, []string{"Case_ID", "Funding_Amt_exp", "Funding_Amt_act", MergeColumn}, res.Merged.ColumnNames())
	})
}
