package domain

import (
	"errors"
	"fmt"
)

// Dataset errors.
var (
	// ErrColumnNotFound indicates a requested column does not exist.
	ErrColumnNotFound = errors.New("column not found")

	// ErrLengthMismatch indicates a column whose length disagrees with the
	// dataset's observation count.
	ErrLengthMismatch = errors.New("column length mismatch")
)

// Dataset is a small columnar table of numeric observations, the input
// payload the built-in analysis steps operate on. Fields are exported so
// State's deep copy preserves the data, but callers should treat a Dataset
// stored in a State as immutable and derive new instances via WithColumn
// or Filter.
type Dataset struct {
	// N is the number of observations (rows).
	N int

	// Columns maps variable names to observation vectors of length N.
	Columns map[string][]float64
}

// NewDataset creates an empty dataset with a fixed observation count.
func NewDataset(n int) *Dataset {
	return &Dataset{N: n, Columns: make(map[string][]float64)}
}

// WithColumn returns a new dataset that shares no storage with the receiver
// and carries the given column added or replaced. The column length must
// equal the dataset's observation count.
func (d *Dataset) WithColumn(name string, values []float64) (*Dataset, error) {
	if len(values) != d.N {
		return nil, fmt.Errorf("%w: column %s has %d values, dataset has %d observations",
			ErrLengthMismatch, name, len(values), d.N)
	}

	out := d.clone()
	col := make([]float64, len(values))
	copy(col, values)
	out.Columns[name] = col
	return out, nil
}

// Column returns a copy of the named observation vector.
func (d *Dataset) Column(name string) ([]float64, error) {
	col, ok := d.Columns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrColumnNotFound, name)
	}
	out := make([]float64, len(col))
	copy(out, col)
	return out, nil
}

// HasColumn reports whether the named column exists.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.Columns[name]
	return ok
}

// Filter returns a new dataset containing only the observations for which
// keep returns true, applied row-wise across all columns so the dataset
// stays rectangular.
func (d *Dataset) Filter(keep func(row int) bool) *Dataset {
	idx := make([]int, 0, d.N)
	for i := 0; i < d.N; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}

	out := NewDataset(len(idx))
	for name, col := range d.Columns {
		filtered := make([]float64, len(idx))
		for j, i := range idx {
			filtered[j] = col[i]
		}
		out.Columns[name] = filtered
	}
	return out
}

// clone returns a deep copy of the dataset.
func (d *Dataset) clone() *Dataset {
	out := NewDataset(d.N)
	for name, col := range d.Columns {
		copied := make([]float64, len(col))
		copy(copied, col)
		out.Columns[name] = copied
	}
	return out
}
