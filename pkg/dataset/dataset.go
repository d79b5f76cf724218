// Package dataset defines the read-only tabular surface that checks consume,
// plus an in-memory Table implementation and a CSV loader.
package dataset

import "fmt"

// Dataset is the minimal capability surface a check needs: named columns and
// positional row access. Implementations must treat the data as immutable;
// nothing in this module ever writes through a Dataset.
type Dataset interface {
	// Columns returns the column names in declaration order.
	Columns() []string

	// RowCount returns the number of data rows.
	RowCount() int

	// Column returns all values of the named column in row order.
	// The second return is false when the column does not exist.
	Column(name string) ([]string, bool)

	// Row returns row i as a column→value map. Panics if i is out of range,
	// matching slice indexing semantics.
	Row(i int) map[string]string
}

// Compile-time proof that Table satisfies the Dataset interface.
var _ Dataset = (*Table)(nil)

// Table is an in-memory row-major Dataset.
type Table struct {
	columns []string
	index   map[string]int // column name → position
	rows    [][]string
}

// New builds a Table from column names and rows. Every row must have exactly
// one cell per column, and column names must be unique.
func New(columns []string, rows [][]string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", c)
		}
		index[c] = i
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("dataset: row %d has %d cells, expected %d", i, len(row), len(columns))
		}
	}
	return &Table{columns: columns, index: index, rows: rows}, nil
}

func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

func (t *Table) RowCount() int { return len(t.rows) }

func (t *Table) Column(name string) ([]string, bool) {
	pos, ok := t.index[name]
	if !ok {
		return nil, false
	}
	out := make([]string, len(t.rows))
	for i, row := range t.rows {
		out[i] = row[pos]
	}
	return out, true
}

func (t *Table) Row(i int) map[string]string {
	row := t.rows[i]
	out := make(map[string]string, len(t.columns))
	for j, c := range t.columns {
		out[c] = row[j]
	}
	return out
}

// Rows materialises the raw cells of the given row indices, preserving order.
// Used by sinks to render sampled failing records. Out-of-range ids are
// skipped rather than panicking; samplers only produce valid ids, but sinks
// should not crash on a hand-built report.
func Rows(ds Dataset, ids []int) [][]string {
	cols := ds.Columns()
	out := make([][]string, 0, len(ids))
	for _, id := range ids {
		if id < 0 || id >= ds.RowCount() {
			continue
		}
		row := ds.Row(id)
		cells := make([]string, len(cols))
		for j, c := range cols {
			cells[j] = row[c]
		}
		out = append(out, cells)
	}
	return out
}
