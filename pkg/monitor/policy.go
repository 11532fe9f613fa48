package monitor

import (
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/label"
)

// PolicyColumn binds one column to its initial label chain.
type PolicyColumn struct {
	Name  string
	Chain *label.Chain
}

// Policy maps columns to the chains they start with. Registration
// instantiates the chain over every row of the registered frame.
type Policy struct {
	Columns []PolicyColumn
}

// Instantiate expands the policy over rows, yielding a frame whose every
// cell of a column carries that column's chain.
func (p *Policy) Instantiate(rows int) (*frame.Frame, error) {
	if rows < 0 {
		return nil, errcode.New(errcode.InvalidOperation, "row count must not be negative")
	}
	columns := make([]frame.Column, len(p.Columns))
	for i, pc := range p.Columns {
		if pc.Chain == nil {
			return nil, errcode.New(errcode.InvalidOperation, "policy column %q carries no chain", pc.Name)
		}
		labels := make([]*label.Chain, rows)
		for r := range labels {
			labels[r] = pc.Chain
		}
		columns[i] = frame.Column{Name: pc.Name, Labels: labels}
	}
	return frame.New(columns)
}
