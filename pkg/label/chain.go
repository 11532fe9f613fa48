package label

import (
	"sort"
	"strings"

	"mercator-hq/cellguard/pkg/errcode"
)

// Step is one link of a chain: a lattice level together with the set of
// discharges permitted to release it.
type Step struct {
	Level      Level
	Discharges []Discharge
}

// Chain is an immutable descending chain of steps terminating at (Low, ∅).
// The zero value is not valid; construct chains through New or Bottom.
type Chain struct {
	steps []Step
}

// Bottom returns the chain consisting of the single step (Low, ∅). It is
// shared; chains are immutable so sharing is safe.
func Bottom() *Chain {
	return bottom
}

var bottom = &Chain{steps: []Step{{Level: Low}}}

// New validates and constructs a chain from the given steps. The steps must
// be strictly descending in level and end with (Low, ∅); a final bottom step
// is appended when absent. Steps above Low must carry at least one
// discharge. Contradictory inputs are rejected with InvalidOperation.
func New(steps ...Step) (*Chain, error) {
	if len(steps) == 0 {
		return Bottom(), nil
	}
	out := make([]Step, 0, len(steps)+1)
	for i, s := range steps {
		if i > 0 && s.Level >= steps[i-1].Level {
			return nil, errcode.New(errcode.InvalidOperation,
				"label chain is not strictly descending: %s does not descend from %s", s.Level, steps[i-1].Level)
		}
		if s.Level == Low {
			if len(s.Discharges) != 0 {
				return nil, errcode.New(errcode.InvalidOperation, "bottom step must carry no discharges")
			}
			if i != len(steps)-1 {
				return nil, errcode.New(errcode.InvalidOperation, "bottom step must terminate the chain")
			}
			out = append(out, Step{Level: Low})
			continue
		}
		if len(s.Discharges) == 0 {
			return nil, errcode.New(errcode.InvalidOperation,
				"step %s carries no discharges and can never advance", s.Level)
		}
		out = append(out, Step{Level: s.Level, Discharges: canonical(s.Discharges)})
	}
	if out[len(out)-1].Level != Low {
		out = append(out, Step{Level: Low})
	}
	return &Chain{steps: out}, nil
}

// intersect returns the discharges present in both canonical-sorted sets.
func intersect(a, b []Discharge) []Discharge {
	keys := make(map[string]bool, len(b))
	for _, d := range b {
		keys[d.key()] = true
	}
	out := make([]Discharge, 0, len(a))
	for _, d := range a {
		if keys[d.key()] {
			out = append(out, d)
		}
	}
	return out
}

// canonical sorts a discharge set by key and drops duplicates.
func canonical(ds []Discharge) []Discharge {
	out := make([]Discharge, len(ds))
	copy(out, ds)
	sort.Slice(out, func(i, j int) bool { return out[i].key() < out[j].key() })
	dedup := out[:0]
	for i, d := range out {
		if i == 0 || d.key() != out[i-1].key() {
			dedup = append(dedup, d)
		}
	}
	return dedup
}

// Head returns the chain's first step.
func (c *Chain) Head() Step {
	return c.steps[0]
}

// Len returns the number of steps in the chain.
func (c *Chain) Len() int {
	return len(c.steps)
}

// Steps returns a copy of the chain's steps.
func (c *Chain) Steps() []Step {
	out := make([]Step, len(c.steps))
	copy(out, c.steps)
	return out
}

// AtBottom reports whether the chain is the released state (Low, ∅).
func (c *Chain) AtBottom() bool {
	return len(c.steps) == 1 && c.steps[0].Level == Low && len(c.steps[0].Discharges) == 0
}

// Compose merges two chains (⊕). Equal head levels emit the level with the
// intersection of the two discharge sets (an operation releases the merged
// step only if both sides permitted it) and advance both chains; otherwise
// the greater head is emitted and only its chain advances. An empty
// intersection leaves a step no operation can release; such a cell can only
// be blocked at the sink. Composition is commutative and associative, and
// Bottom is its identity.
func (c *Chain) Compose(other *Chain) *Chain {
	if c.AtBottom() {
		return other
	}
	if other.AtBottom() {
		return c
	}
	out := make([]Step, 0, len(c.steps)+len(other.steps))
	i, j := 0, 0
	for i < len(c.steps) && j < len(other.steps) {
		a, b := c.steps[i], other.steps[j]
		switch {
		case a.Level == b.Level:
			out = append(out, Step{Level: a.Level, Discharges: intersect(a.Discharges, b.Discharges)})
			i++
			j++
		case a.Level > b.Level:
			out = append(out, a)
			i++
		default:
			out = append(out, b)
			j++
		}
	}
	for ; i < len(c.steps); i++ {
		out = append(out, c.steps[i])
	}
	for ; j < len(other.steps); j++ {
		out = append(out, other.steps[j])
	}
	return &Chain{steps: out}
}

// Downgrade applies a performed operation to the chain. The head's
// discharge set lists the operations permitted to release the step: when
// the performed operation satisfies any of them, the chain advances past
// the head. The returned boolean reports whether the step was released. An
// operation that satisfies nothing returns the chain unchanged: never an
// error, and never a raised label.
func (c *Chain) Downgrade(performed Discharge) (*Chain, bool) {
	head := c.steps[0]
	if head.Level == Low {
		return c, false
	}
	for _, req := range head.Discharges {
		if req.SatisfiedBy(performed) {
			return &Chain{steps: c.steps[1:]}, true
		}
	}
	return c, false
}

// Equal reports structural equality of two chains.
func (c *Chain) Equal(other *Chain) bool {
	if len(c.steps) != len(other.steps) {
		return false
	}
	for i := range c.steps {
		a, b := c.steps[i], other.steps[i]
		if a.Level != b.Level || len(a.Discharges) != len(b.Discharges) {
			return false
		}
		for k := range a.Discharges {
			if a.Discharges[k].key() != b.Discharges[k].key() {
				return false
			}
		}
	}
	return true
}

// String renders the chain for diagnostics, e.g. "H{transform:redact} > L".
func (c *Chain) String() string {
	var b strings.Builder
	for i, s := range c.steps {
		if i > 0 {
			b.WriteString(" > ")
		}
		b.WriteString(s.Level.String())
		if len(s.Discharges) > 0 {
			b.WriteByte('{')
			for k, d := range s.Discharges {
				if k > 0 {
					b.WriteString(", ")
				}
				b.WriteString(d.String())
			}
			b.WriteByte('}')
		}
	}
	return b.String()
}
