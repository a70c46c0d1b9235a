package wagebound

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTable(t *testing.T) {
	tests := []struct {
		name    string
		columns []Column
		rows    [][]interface{}
		wantErr string
	}{
		{
			name:    "valid table",
			columns: []Column{{Name: "id"}, {Name: "amt"}},
			rows:    [][]interface{}{{1, 10.5}, {2, nil}},
		},
		{
			name:    "duplicate column",
			columns: []Column{{Name: "id"}, {Name: "id"}},
			wantErr: "duplicate column name: id",
		},
		{
			name:    "empty column name",
			columns: []Column{{Name: ""}},
			wantErr: "column 0 has an empty name",
		},
		{
			name:    "ragged row",
			columns: []Column{{Name: "id"}, {Name: "amt"}},
			rows:    [][]interface{}{{1}},
			wantErr: "row 0 has 1 values, expected 2",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl, err := NewTable(tt.columns, tt.rows)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, len(tt.rows), tbl.Len())
		})
	}
}

func TestNewTableCopiesRows(t *testing.T) {
	rows := [][]interface{}{{1, "a"}}
	tbl, err := NewTable([]Column{{Name: "id"}, {Name: "name"}}, rows)
	require.NoError(t, err)

	rows[0][1] = "changed"
	assert.Equal(t, "a", tbl.Value(0, "name"))

	row := tbl.Row(0)
	row[1] = "changed again"
	assert.Equal(t, "a", tbl.Value(0, "name"))
}

func TestInferDType(t *testing.T) {
	tests := []struct {
		name     string
		values   []interface{}
		expected DType
	}{
		{name: "ints", values: []interface{}{1, int64(2), nil}, expected: DTypeInt64},
		{name: "floats with NaN", values: []interface{}{1.5, math.NaN()}, expected: DTypeFloat64},
		{name: "mixed ints and floats", values: []interface{}{1, 2.5}, expected: DTypeFloat64},
		{name: "strings", values: []interface{}{"a", nil}, expected: DTypeString},
		{name: "bools", values: []interface{}{true, false}, expected: DTypeBool},
		{name: "times", values: []interface{}{time.Now()}, expected: DTypeDatetime},
		{name: "mixed strings and numbers", values: []interface{}{"a", 1}, expected: DTypeObject},
		{name: "all null", values: []interface{}{nil, nil}, expected: DTypeObject},
		{name: "empty", values: nil, expected: DTypeObject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, InferDType(tt.values))
		})
	}
}

func TestTableDerivations(t *testing.T) {
	tbl, err := FromRecords(nil, []map[string]interface{}{
		{"id": 1, "amt": 10.0},
		{"id": 2, "amt": 20.0, "note": "x"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"amt", "id", "note"}, tbl.ColumnNames())
	assert.Nil(t, tbl.Value(0, "note"))

	selected := tbl.Select("id", "missing", "amt", "id")
	assert.Equal(t, []string{"id", "amt"}, selected.ColumnNames())
	assert.Equal(t, 3, len(tbl.ColumnNames()), "Select must not change the source table")

	taken := tbl.Take([]int{1})
	require.Equal(t, 1, taken.Len())
	assert.Equal(t, 2, taken.Value(0, "id"))

	withCol, err := tbl.WithColumn(Column{Name: "amt"}, []interface{}{"a", "b"})
	require.NoError(t, err)
	typ, _ := withCol.ColumnType("amt")
	assert.Equal(t, DTypeString, typ)
	assert.Equal(t, 10.0, tbl.Value(0, "amt"), "WithColumn must not change the source table")

	_, err = tbl.WithColumn(Column{Name: "bad"}, []interface{}{1})
	assert.Error(t, err)
}

func TestToFloat(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected float64
		ok       bool
	}{
		{name: "int", input: 3, expected: 3, ok: true},
		{name: "uint8", input: uint8(7), expected: 7, ok: true},
		{name: "float32", input: float32(1.5), expected: 1.5, ok: true},
		{name: "numeric string", input: " 12.5 ", expected: 12.5, ok: true},
		{name: "thousands separator", input: "1,234,567", expected: 1234567, ok: true},
		{name: "full-width digits", input: "１２,３４５", expected: 12345, ok: true},
		{name: "bytes", input: []byte("42"), expected: 42, ok: true},
		{name: "blank string", input: "  ", ok: false},
		{name: "text", input: "n/a", ok: false},
		{name: "nil", input: nil, ok: false},
		{name: "bool", input: true, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ok := ToFloat(tt.input)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.expected, f, 1e-9)
			} else {
				assert.True(t, math.IsNaN(f))
			}
		})
	}
}

func TestCanonicalKeyTable(t *testing.T) {
	assert.Equal(t, canonicalKey([]interface{}{1, "a"}), canonicalKey([]interface{}{int64(1), "a"}))
	assert.Equal(t, canonicalKey([]interface{}{1}), canonicalKey([]interface{}{1.0}))
	assert.NotEqual(t, canonicalKey([]interface{}{1}), canonicalKey([]interface{}{"1"}))
	assert.Equal(t, canonicalKey([]interface{}{nil}), canonicalKey([]interface{}{math.NaN()}))
	assert.NotEqual(t, canonicalKey([]interface{}{"a", "b"}), canonicalKey([]interface{}{"a\x1fb"}))
}
