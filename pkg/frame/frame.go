package frame

import (
	"fmt"
	"strings"

	"mercator-hq/cellguard/internal/parallel"
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
)

// Column is one named column of label chains.
type Column struct {
	Name   string
	Labels []*label.Chain
}

// Frame is an immutable policy-guarded frame.
type Frame struct {
	columns []Column
}

// New validates and constructs a frame. All columns must agree on the row
// count and every cell must carry a chain.
func New(columns []Column) (*Frame, error) {
	for _, c := range columns {
		if len(c.Labels) != len(columns[0].Labels) {
			return nil, errcode.New(errcode.InvalidOperation,
				"column %q has %d rows, want %d", c.Name, len(c.Labels), len(columns[0].Labels))
		}
		for r, ch := range c.Labels {
			if ch == nil {
				return nil, errcode.New(errcode.InvalidOperation,
					"column %q row %d carries no label", c.Name, r)
			}
		}
	}
	return &Frame{columns: columns}, nil
}

// Empty returns a zero-row frame with the given schema.
func Empty(names []string) *Frame {
	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name}
	}
	return &Frame{columns: columns}
}

// Shape returns (rows, columns).
func (f *Frame) Shape() (int, int) {
	if len(f.columns) == 0 {
		return 0, 0
	}
	return len(f.columns[0].Labels), len(f.columns)
}

// Rows returns the frame's row count.
func (f *Frame) Rows() int {
	rows, _ := f.Shape()
	return rows
}

// Width returns the frame's column count.
func (f *Frame) Width() int {
	return len(f.columns)
}

// Columns returns the frame's columns. Callers must not mutate them.
func (f *Frame) Columns() []Column {
	return f.columns
}

// Column returns the column at position idx.
func (f *Frame) Column(idx int) (Column, error) {
	if idx < 0 || idx >= len(f.columns) {
		return Column{}, errcode.New(errcode.InvalidOperation,
			"column index %d out of range (frame has %d columns)", idx, len(f.columns))
	}
	return f.columns[idx], nil
}

// ColumnIndex resolves a column name to its position.
func (f *Frame) ColumnIndex(name string) (int, error) {
	for i, c := range f.columns {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, errcode.New(errcode.InvalidOperation, "column %q does not exist", name)
}

// Names returns the schema order of column names.
func (f *Frame) Names() []string {
	names := make([]string, len(f.columns))
	for i, c := range f.columns {
		names[i] = c.Name
	}
	return names
}

// SameSchema reports whether two frames agree on column names and order.
func (f *Frame) SameSchema(other *Frame) bool {
	if len(f.columns) != len(other.columns) {
		return false
	}
	for i := range f.columns {
		if f.columns[i].Name != other.columns[i].Name {
			return false
		}
	}
	return true
}

// Label returns the chain at (column, row).
func (f *Frame) Label(col, row int) *label.Chain {
	return f.columns[col].Labels[row]
}

// Filter returns the frame restricted to rows where keep is true.
func (f *Frame) Filter(keep []bool) (*Frame, error) {
	rows, _ := f.Shape()
	if len(keep) != rows {
		return nil, errcode.New(errcode.InvalidOperation,
			"filter bitmap has %d entries, frame has %d rows", len(keep), rows)
	}
	kept := 0
	for _, k := range keep {
		if k {
			kept++
		}
	}
	columns := make([]Column, len(f.columns))
	for i, c := range f.columns {
		labels := make([]*label.Chain, 0, kept)
		for r, k := range keep {
			if k {
				labels = append(labels, c.Labels[r])
			}
		}
		columns[i] = Column{Name: c.Name, Labels: labels}
	}
	return &Frame{columns: columns}, nil
}

// Reorder returns the frame with rows permuted: output row i takes input
// row perm[i]. perm must be a bijection over the row range.
func (f *Frame) Reorder(perm []uint64) (*Frame, error) {
	rows, _ := f.Shape()
	if len(perm) != rows {
		return nil, errcode.New(errcode.InvalidOperation,
			"permutation has %d entries, frame has %d rows", len(perm), rows)
	}
	seen := make([]bool, rows)
	for _, p := range perm {
		if p >= uint64(rows) || seen[p] {
			return nil, errcode.New(errcode.InvalidOperation,
				"permutation is not a bijection over %d rows", rows)
		}
		seen[p] = true
	}
	return f.take(perm), nil
}

// Take returns the frame with rows gathered by index, duplicates allowed.
// Out-of-range indices fail.
func (f *Frame) Take(idx []uint64) (*Frame, error) {
	rows, _ := f.Shape()
	for _, i := range idx {
		if i >= uint64(rows) {
			return nil, errcode.New(errcode.InvalidOperation,
				"row index %d out of range (frame has %d rows)", i, rows)
		}
	}
	return f.take(idx), nil
}

func (f *Frame) take(idx []uint64) *Frame {
	columns := make([]Column, len(f.columns))
	_ = parallel.ForEach(len(f.columns), func(start, end int) error {
		for i := start; i < end; i++ {
			c := f.columns[i]
			labels := make([]*label.Chain, len(idx))
			for r, p := range idx {
				labels[r] = c.Labels[p]
			}
			columns[i] = Column{Name: c.Name, Labels: labels}
		}
		return nil
	})
	return &Frame{columns: columns}
}

// Slice returns rows [start, end).
func (f *Frame) Slice(start, end int) (*Frame, error) {
	rows, _ := f.Shape()
	if start < 0 || end < start || end > rows {
		return nil, errcode.New(errcode.InvalidOperation,
			"slice [%d, %d) out of range (frame has %d rows)", start, end, rows)
	}
	columns := make([]Column, len(f.columns))
	for i, c := range f.columns {
		columns[i] = Column{Name: c.Name, Labels: c.Labels[start:end]}
	}
	return &Frame{columns: columns}, nil
}

// Project returns the frame restricted to the given column positions, in
// the given order.
func (f *Frame) Project(cols []int) (*Frame, error) {
	columns := make([]Column, len(cols))
	for i, idx := range cols {
		c, err := f.Column(idx)
		if err != nil {
			return nil, err
		}
		columns[i] = c
	}
	return &Frame{columns: columns}, nil
}

// Union concatenates the inputs vertically. All inputs must share the
// schema; a mismatch is fatal to the operation.
func Union(inputs []*Frame) (*Frame, error) {
	if len(inputs) == 0 {
		return nil, errcode.New(errcode.InvalidOperation, "union of zero frames")
	}
	for _, in := range inputs[1:] {
		if !in.SameSchema(inputs[0]) {
			return nil, errcode.New(errcode.InvalidOperation,
				"union schema mismatch: %v vs %v", inputs[0].Names(), in.Names())
		}
	}
	columns := make([]Column, len(inputs[0].columns))
	for i := range columns {
		total := 0
		for _, in := range inputs {
			total += len(in.columns[i].Labels)
		}
		labels := make([]*label.Chain, 0, total)
		for _, in := range inputs {
			labels = append(labels, in.columns[i].Labels...)
		}
		columns[i] = Column{Name: inputs[0].columns[i].Name, Labels: labels}
	}
	return &Frame{columns: columns}, nil
}

// Stitch concatenates two frames horizontally. The row counts must agree;
// an empty side passes the other through.
func Stitch(lhs, rhs *Frame) (*Frame, error) {
	if lhs.Width() == 0 {
		return rhs, nil
	}
	if rhs.Width() == 0 {
		return lhs, nil
	}
	if lhs.Rows() != rhs.Rows() {
		return nil, errcode.New(errcode.InvalidOperation,
			"stitch row counts differ: %d vs %d", lhs.Rows(), rhs.Rows())
	}
	columns := make([]Column, 0, lhs.Width()+rhs.Width())
	columns = append(columns, lhs.columns...)
	columns = append(columns, rhs.columns...)
	return &Frame{columns: columns}, nil
}

// Rename returns the frame with column renames applied.
func (f *Frame) Rename(renames map[string]string) *Frame {
	if len(renames) == 0 {
		return f
	}
	columns := make([]Column, len(f.columns))
	copy(columns, f.columns)
	for i := range columns {
		if to, ok := renames[columns[i].Name]; ok {
			columns[i].Name = to
		}
	}
	return &Frame{columns: columns}
}

// Breach describes the first cell that blocks release.
type Breach struct {
	Column string
	Row    int
	Chain  *label.Chain
}

// Finalize is the sink check: every chain must be at bottom. The returned
// error is a PrivacyBreach naming the first offending cell.
func (f *Frame) Finalize() error {
	for _, c := range f.columns {
		for r, ch := range c.Labels {
			if !ch.AtBottom() {
				return errcode.New(errcode.PrivacyBreach,
					"column %q row %d retains obligations: %s", c.Name, r, ch)
			}
		}
	}
	return nil
}

// String renders the frame's label matrix for diagnostics, truncated to the
// first rows.
func (f *Frame) String() string {
	rows, cols := f.Shape()
	var b strings.Builder
	fmt.Fprintf(&b, "frame %dx%d\n", rows, cols)
	limit := rows
	if limit > 15 {
		limit = 15
	}
	for r := 0; r < limit; r++ {
		fmt.Fprintf(&b, "%4d |", r)
		for c := 0; c < cols; c++ {
			fmt.Fprintf(&b, " %s=%s", f.columns[c].Name, f.columns[c].Labels[r])
		}
		b.WriteByte('\n')
	}
	return b.String()
}
