package domain

import (
	"sort"
)

// FailureColumn is the name of the failure-marker column batch operations
// add to their tables when at least one row faulted. A failed row carries
// the fault description in this column and nil in every data field.
const FailureColumn = "error"

// Table is the durable tabular artifact returned by batch operations:
// one row per executed protocol (exhaustion) or per parameter/replication
// pair (power simulation). Columns are the fixed leading columns declared
// by the producer, followed by the sorted union of all result data fields
// observed across rows, followed by the failure marker when present.
type Table struct {
	// Columns holds the column names in presentation order.
	Columns []string

	// Rows holds one cell slice per row, aligned with Columns. Cells for
	// fields a row did not produce are nil.
	Rows [][]any
}

// NumRows returns the number of rows in the table.
func (t *Table) NumRows() int { return len(t.Rows) }

// Cell returns the value at the given row under the named column and
// whether the column exists.
func (t *Table) Cell(row int, column string) (any, bool) {
	for i, c := range t.Columns {
		if c == column {
			return t.Rows[row][i], true
		}
	}
	return nil, false
}

// HasColumn reports whether the table carries the named column.
func (t *Table) HasColumn(column string) bool {
	for _, c := range t.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// tableRow is a pending row inside a TableBuilder.
type tableRow struct {
	fixed   map[string]any
	data    map[string]any
	failure string
	failed  bool
}

// TableBuilder accumulates rows and materializes a Table with a
// deterministic column layout. The fixed columns are emitted first in the
// order given at construction; result data columns follow as the sorted
// union of field names across all rows; the failure marker column is
// appended only when at least one row failed. Rows are materialized in
// append order, so callers are responsible for appending in enumeration
// order rather than completion order.
type TableBuilder struct {
	fixed []string
	rows  []tableRow
}

// NewTableBuilder creates a builder with the given fixed leading columns.
func NewTableBuilder(fixedColumns []string) *TableBuilder {
	fixed := make([]string, len(fixedColumns))
	copy(fixed, fixedColumns)
	return &TableBuilder{fixed: fixed}
}

// AppendRow adds a successful row with its fixed cells and result data
// fields.
func (b *TableBuilder) AppendRow(fixed, data map[string]any) {
	b.rows = append(b.rows, tableRow{fixed: fixed, data: data})
}

// AppendFailure adds a failed row carrying its fixed cells and a failure
// description in place of data fields.
func (b *TableBuilder) AppendFailure(fixed map[string]any, failure string) {
	b.rows = append(b.rows, tableRow{fixed: fixed, failure: failure, failed: true})
}

// Build materializes the accumulated rows into a Table.
func (b *TableBuilder) Build() *Table {
	dataCols := make(map[string]struct{})
	anyFailed := false
	for _, row := range b.rows {
		if row.failed {
			anyFailed = true
			continue
		}
		for k := range row.data {
			dataCols[k] = struct{}{}
		}
	}

	sortedData := make([]string, 0, len(dataCols))
	for k := range dataCols {
		sortedData = append(sortedData, k)
	}
	sort.Strings(sortedData)

	columns := make([]string, 0, len(b.fixed)+len(sortedData)+1)
	columns = append(columns, b.fixed...)
	columns = append(columns, sortedData...)
	if anyFailed {
		columns = append(columns, FailureColumn)
	}

	table := &Table{Columns: columns, Rows: make([][]any, 0, len(b.rows))}
	for _, row := range b.rows {
		cells := make([]any, len(columns))
		for i, name := range b.fixed {
			cells[i] = row.fixed[name]
		}
		if row.failed {
			cells[len(columns)-1] = row.failure
		} else {
			for j, name := range sortedData {
				if v, ok := row.data[name]; ok {
					cells[len(b.fixed)+j] = v
				}
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table
}
