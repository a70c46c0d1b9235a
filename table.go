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
)

// Column describes one named, typed column of a Table.
type Column struct {
	Name string `json:"name"`
	Type DType  `json:"type"`
}

// Table is an immutable in-memory table with named columns.
// Every method that changes shape returns a new Table.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]interface{}
}

// NewTable builds a table from column definitions and rows.
// Columns without a Type get one inferred from their values.
// Rows are copied, so later changes to the input do not leak into the table.
func NewTable(columns []Column, rows [][]interface{}) (*Table, error) {
	t := &Table{
		columns: make([]Column, len(columns)),
		index:   make(map[string]int, len(columns)),
		rows:    make([][]interface{}, len(rows)),
	}

	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := t.index[col.Name]; dup {
			return nil, fmt.Errorf("duplicate column name: %s", col.Name)
		}
		t.index[col.Name] = i
		t.columns[i] = col
	}

	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d values, expected %d", i, len(row), len(columns))
		}
		t.rows[i] = append([]interface{}(nil), row...)
	}

	for i := range t.columns {
		if t.columns[i].Type == "" {
			t.columns[i].Type = InferDType(t.columnValues(i))
		}
	}

	return t, nil
}

// FromRecords builds a table from row maps. When columns is empty the column
// order is the first-seen order of keys across the records; keys absent from a
// record read as null.
func FromRecords(columns []string, records []map[string]interface{}) (*Table, error) {
	if len(columns) == 0 {
		seen := map[string]bool{}
		for _, rec := range records {
			for _, k := range sortedKeys(rec) {
				if !seen[k] {
					seen[k] = true
					columns = append(columns, k)
				}
			}
		}
	}

	cols := make([]Column, len(columns))
	for i, name := range columns {
		cols[i] = Column{Name: name}
	}

	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		row := make([]interface{}, len(columns))
		for j, name := range columns {
			row[j] = rec[name]
		}
		rows[i] = row
	}

	return NewTable(cols, rows)
}

// EmptyTable returns a table with the given untyped (object) columns and no rows.
func EmptyTable(names ...string) *Table {
	cols := make([]Column, len(names))
	for i, n := range names {
		cols[i] = Column{Name: n, Type: DTypeObject}
	}
	t, err := NewTable(cols, nil)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

func (t *Table) ColumnType(name string) (DType, bool) {
	i, ok := t.index[name]
	if !ok {
		return "", false
	}
	return t.columns[i].Type, true
}

// Value returns the cell at row i of the named column, or nil when the column is absent.
func (t *Table) Value(i int, name string) interface{} {
	j, ok := t.index[name]
	if !ok {
		return nil
	}
	return t.rows[i][j]
}

// Row returns a copy of row i in column order.
func (t *Table) Row(i int) []interface{} {
	return append([]interface{}(nil), t.rows[i]...)
}

// Record returns row i keyed by column name.
func (t *Table) Record(i int) map[string]interface{} {
	rec := make(map[string]interface{}, len(t.columns))
	for j, c := range t.columns {
		rec[c.Name] = t.rows[i][j]
	}
	return rec
}

// Records returns every row keyed by column name.
func (t *Table) Records() []map[string]interface{} {
	out := make([]map[string]interface{}, len(t.rows))
	for i := range t.rows {
		out[i] = t.Record(i)
	}
	return out
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]interface{}, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columnValues(j), true
}

func (t *Table) columnValues(j int) []interface{} {
	out := make([]interface{}, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[j]
	}
	return out
}

// Select returns a table with only the named columns, in the given order.
// Names that are not columns of t are ignored.
func (t *Table) Select(names ...string) *Table {
	var idx []int
	var cols []Column
	seen := map[string]bool{}
	for _, n := range names {
		j, ok := t.index[n]
		if !ok || seen[n] {
			continue
		}
		seen[n] = true
		idx = append(idx, j)
		cols = append(cols, t.columns[j])
	}

	out := &Table{
		columns: cols,
		index:   make(map[string]int, len(cols)),
		rows:    make([][]interface{}, len(t.rows)),
	}
	for i, c := range cols {
		out.index[c.Name] = i
	}
	for i, row := range t.rows {
		r := make([]interface{}, len(idx))
		for k, j := range idx {
			r[k] = row[j]
		}
		out.rows[i] = r
	}
	return out
}

// Take returns a table holding the given rows of t, in the given order.
func (t *Table) Take(rows []int) *Table {
	out := &Table{
		columns: append([]Column(nil), t.columns...),
		index:   make(map[string]int, len(t.columns)),
		rows:    make([][]interface{}, len(rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i, r := range rows {
		out.rows[i] = append([]interface{}(nil), t.rows[r]...)
	}
	return out
}

// WithColumn returns a copy of t where col holds values. An existing column
// with the same name is replaced in place, otherwise the column is appended.
func (t *Table) WithColumn(col Column, values []interface{}) (*Table, error) {
	if len(values) != len(t.rows) {
		return nil, fmt.Errorf("column %s has %d values, table has %d rows", col.Name, len(values), len(t.rows))
	}

	cols := t.Columns()
	j, exists := t.index[col.Name]
	if exists {
		cols[j] = col
	} else {
		j = len(cols)
		cols = append(cols, col)
	}

	rows := make([][]interface{}, len(t.rows))
	for i, row := range t.rows {
		r := make([]interface{}, len(cols))
		copy(r, row)
		r[j] = values[i]
		rows[i] = r
	}
	return NewTable(cols, rows)
}
