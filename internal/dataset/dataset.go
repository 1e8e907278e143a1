package dataset

import (
	"errors"
	"fmt"
	"math"
)

// Kind is the inferred type of a column.
type Kind string

const (
	KindNumeric  Kind = "numeric"
	KindDatetime Kind = "datetime"
	KindText     Kind = "text"
)

var (
	// ErrEmpty is returned when the input has no header row.
	ErrEmpty = errors.New("dataset is empty")
	// ErrUnsupported indicates the file format is not supported.
	ErrUnsupported = errors.New("unsupported dataset format")
	// ErrColumnNotFound is returned by Dataset.Lookup.
	ErrColumnNotFound = errors.New("column not found")
)

// Column is one named column of a Dataset. Raw always holds the cell text;
// Values is populated for numeric columns only, with NaN marking a missing
// entry.
type Column struct {
	Name   string
	Unit   string
	Kind   Kind
	Values []float64
	Raw    []string
}

// IsNumeric reports whether the column can be analyzed numerically.
func (c *Column) IsNumeric() bool { return c != nil && c.Kind == KindNumeric }

// Present returns the row indices and values of non-missing numeric entries,
// in row order.
func (c *Column) Present() (rows []int, vals []float64) {
	if !c.IsNumeric() {
		return nil, nil
	}
	rows = make([]int, 0, len(c.Values))
	vals = make([]float64, 0, len(c.Values))
	for i, v := range c.Values {
		if math.IsNaN(v) {
			continue
		}
		rows = append(rows, i)
		vals = append(vals, v)
	}
	return rows, vals
}

// Missing counts empty or NA cells.
func (c *Column) Missing() int {
	n := 0
	for _, s := range c.Raw {
		if isMissing(s) {
			n++
		}
	}
	return n
}

// Dataset is an ordered collection of named columns sharing a 0-based row
// index. It is immutable once loaded.
type Dataset struct {
	Name    string
	Columns []*Column
	rows    int
}

// Rows returns the number of data rows.
func (d *Dataset) Rows() int { return d.rows }

// Names returns the column names in file order.
func (d *Dataset) Names() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Column looks up a column by exact name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Lookup is Column with an error instead of a bool.
func (d *Dataset) Lookup(name string) (*Column, error) {
	c, ok := d.Column(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return c, nil
}

// Numeric returns the numeric columns in file order.
func (d *Dataset) Numeric() []*Column {
	var out []*Column
	for _, c := range d.Columns {
		if c.IsNumeric() {
			out = append(out, c)
		}
	}
	return out
}

// Head returns up to n rows of raw cell text for previewing.
func (d *Dataset) Head(n int) [][]string {
	if n <= 0 || n > d.rows {
		n = d.rows
	}
	out := make([][]string, n)
	for i := 0; i < n; i++ {
		row := make([]string, len(d.Columns))
		for j, c := range d.Columns {
			row[j] = c.Raw[i]
		}
		out[i] = row
	}
	return out
}
