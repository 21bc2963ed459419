package model

import (
	"fmt"
)

// RowSet is an ordered sequence of rows that all share one Schema.
// Operations that change columns return a new RowSet and never leave
// rows of different widths behind.
type RowSet struct {
	schema *Schema
	rows   [][]Value
}

// NewRowSet creates an empty RowSet for schema.
func NewRowSet(schema *Schema) *RowSet {
	return &RowSet{schema: schema}
}

// NewRowSetFromStrings builds a RowSet from a header and string rows.
// Every row must have exactly one value per header column.
func NewRowSetFromStrings(header []string, rows [][]string) (*RowSet, error) {
	schema, err := NewSchema(header)
	if err != nil {
		return nil, err
	}
	rs := NewRowSet(schema)
	rs.rows = make([][]Value, 0, len(rows))
	for i, row := range rows {
		if err := rs.Append(NewValues(row)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return rs, nil
}

// Schema returns the shared schema.
func (rs *RowSet) Schema() *Schema {
	return rs.schema
}

// Columns returns the column names in order.
func (rs *RowSet) Columns() []string {
	return rs.schema.Names()
}

// Len returns the number of rows.
func (rs *RowSet) Len() int {
	return len(rs.rows)
}

// Width returns the number of columns.
func (rs *RowSet) Width() int {
	return rs.schema.Len()
}

// Append adds a row. Rows whose width diverges from the schema are rejected.
func (rs *RowSet) Append(values []Value) error {
	if len(values) != rs.schema.Len() {
		return fmt.Errorf("%w: got %d values, want %d", ErrSchemaMismatch, len(values), rs.schema.Len())
	}
	row := make([]Value, len(values))
	copy(row, values)
	rs.rows = append(rs.rows, row)
	return nil
}

// Row returns a read view of row i.
func (rs *RowSet) Row(i int) Record {
	return Record{schema: rs.schema, values: rs.rows[i]}
}

// Records returns read views of every row.
func (rs *RowSet) Records() []Record {
	records := make([]Record, len(rs.rows))
	for i := range rs.rows {
		records[i] = rs.Row(i)
	}
	return records
}

// Slice returns a copy holding rows [from, to).
func (rs *RowSet) Slice(from, to int) *RowSet {
	out := NewRowSet(rs.schema)
	out.rows = make([][]Value, 0, to-from)
	for _, row := range rs.rows[from:to] {
		out.rows = append(out.rows, cloneValues(row))
	}
	return out
}

// SelectColumns returns a copy holding only the columns at the given
// indexes, in the given order.
func (rs *RowSet) SelectColumns(indexes []int) *RowSet {
	names := make([]string, len(indexes))
	for i, idx := range indexes {
		names[i] = rs.schema.Name(idx)
	}
	out := NewRowSet(mustSchema(names))
	out.rows = make([][]Value, 0, len(rs.rows))
	for _, row := range rs.rows {
		selected := make([]Value, len(indexes))
		for i, idx := range indexes {
			selected[i] = row[idx]
		}
		out.rows = append(out.rows, selected)
	}
	return out
}

// DropColumns returns a copy without the columns at the given indexes.
func (rs *RowSet) DropColumns(indexes []int) *RowSet {
	drop := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		drop[idx] = true
	}
	keep := make([]int, 0, rs.schema.Len())
	for i := 0; i < rs.schema.Len(); i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return rs.SelectColumns(keep)
}

// WithColumn returns a copy where column name holds values. An existing
// column (exact match) is overwritten in place, otherwise the column is
// appended. values must have one entry per row.
func (rs *RowSet) WithColumn(name string, values []Value) (*RowSet, error) {
	if len(values) != len(rs.rows) {
		return nil, fmt.Errorf("%w: column %s has %d values for %d rows", ErrSchemaMismatch, name, len(values), len(rs.rows))
	}
	idx := rs.schema.Index(name)
	schema := rs.schema
	if idx < 0 {
		var err error
		schema, err = NewSchema(append(rs.schema.Names(), name))
		if err != nil {
			return nil, err
		}
		idx = schema.Len() - 1
	}
	out := NewRowSet(schema)
	out.rows = make([][]Value, 0, len(rs.rows))
	for i, row := range rs.rows {
		next := make([]Value, schema.Len())
		copy(next, row)
		next[idx] = values[i]
		out.rows = append(out.rows, next)
	}
	return out, nil
}

// Clone returns a deep copy.
func (rs *RowSet) Clone() *RowSet {
	return rs.Slice(0, len(rs.rows))
}

// Strings renders every row as strings; null becomes "".
func (rs *RowSet) Strings() [][]string {
	out := make([][]string, len(rs.rows))
	for i, row := range rs.rows {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = v.String()
		}
	}
	return out
}

// Equal compares schema and every value.
func (rs *RowSet) Equal(other *RowSet) bool {
	if !rs.schema.Equal(other.schema) || len(rs.rows) != len(other.rows) {
		return false
	}
	for i, row := range rs.rows {
		for j, v := range row {
			if !v.Equal(other.rows[i][j]) {
				return false
			}
		}
	}
	return true
}

func cloneValues(values []Value) []Value {
	out := make([]Value, len(values))
	copy(out, values)
	return out
}

// Record is a read view of one row.
type Record struct {
	schema *Schema
	values []Value
}

// Get returns the value of column name using Schema.Lookup matching.
func (r Record) Get(name string) (Value, bool) {
	idx := r.schema.Lookup(name)
	if idx < 0 {
		return NullValue(), false
	}
	return r.values[idx], true
}

// At returns the value at column index i.
func (r Record) At(i int) Value {
	return r.values[i]
}

// Len returns the number of values.
func (r Record) Len() int {
	return len(r.values)
}

// Values returns a copy of the row values.
func (r Record) Values() []Value {
	return cloneValues(r.values)
}
