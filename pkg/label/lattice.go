package label

import "fmt"

// Level is a lattice element. Levels are totally ordered; Join and Meet are
// max and min over that order.
type Level uint8

const (
	// Low is the bottom of the lattice. Data at Low is releasable.
	Low Level = iota
	// Named covers data whose subject is directly identified.
	Named
	// Anonymized covers data that has passed an anonymization scheme.
	Anonymized
	// Transformed covers data derived through an approved transform.
	Transformed
	// High is the top of the lattice. Raw sensitive data starts here.
	High
)

// Join returns the least upper bound of the two levels.
func (l Level) Join(other Level) Level {
	if other > l {
		return other
	}
	return l
}

// Meet returns the greatest lower bound of the two levels.
func (l Level) Meet(other Level) Level {
	if other < l {
		return other
	}
	return l
}

// FlowsTo reports whether l ⊑ other.
func (l Level) FlowsTo(other Level) bool {
	return l <= other
}

// String returns the level's short name.
func (l Level) String() string {
	switch l {
	case Low:
		return "L"
	case Named:
		return "N"
	case Anonymized:
		return "A"
	case Transformed:
		return "T"
	case High:
		return "H"
	default:
		return fmt.Sprintf("Level(%d)", uint8(l))
	}
}
