package expr

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
	"mercator-hq/cellguard/pkg/values"
)

// Kind tags the variant of an Expr.
type Kind uint8

const (
	KindColumn Kind = iota + 1
	KindLiteral
	KindWildcard
	KindCount
	KindAlias
	KindUnary
	KindBinary
	KindTernary
	KindFilter
	KindAgg
	KindApply
)

// String returns the kind's short name.
func (k Kind) String() string {
	switch k {
	case KindColumn:
		return "column"
	case KindLiteral:
		return "literal"
	case KindWildcard:
		return "wildcard"
	case KindCount:
		return "count"
	case KindAlias:
		return "alias"
	case KindUnary:
		return "unary"
	case KindBinary:
		return "binary"
	case KindTernary:
		return "ternary"
	case KindFilter:
		return "filter"
	case KindAgg:
		return "agg"
	case KindApply:
		return "apply"
	default:
		return "unknown"
	}
}

// ColumnIdent names a column by schema name, or by position once reified.
type ColumnIdent struct {
	Name    string
	Index   int
	ByIndex bool
}

// Expr is one node of the expression graph. Children are identifiers, never
// embedded nodes. The reified-value slot is the only mutable state; it is
// written once by the host and guarded for concurrent propagation.
type Expr struct {
	Kind Kind

	Column    ColumnIdent
	Literal   values.Value
	AliasName string
	Child     uuid.UUID
	Left      uuid.UUID
	Right     uuid.UUID
	Cond      uuid.UUID
	Then      uuid.UUID
	Else      uuid.UUID
	Pred      uuid.UUID
	AggMethod label.AggMethod
	Inputs    []uuid.UUID
	ApplyName string

	UnaryOp  message.UnaryOperator
	BinaryOp message.BinaryOperator

	mu      sync.RWMutex
	reified []values.Column
}

// NeedsReify reports whether propagation through this node consumes
// host-supplied values.
func (e *Expr) NeedsReify() bool {
	switch e.Kind {
	case KindColumn:
		return !e.Column.ByIndex
	case KindTernary, KindFilter, KindAgg, KindApply:
		return true
	case KindBinary:
		return e.BinaryOp.IsArithmetic()
	default:
		return false
	}
}

// Reified returns the attached value columns, or nil.
func (e *Expr) Reified() []values.Column {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.reified
}

// OutputName derives the column name this expression produces in a
// projection.
func (e *Expr) OutputName(resolve func(uuid.UUID) (*Expr, error)) string {
	switch e.Kind {
	case KindAlias:
		return e.AliasName
	case KindColumn:
		if e.Column.ByIndex {
			return fmt.Sprintf("column_%d", e.Column.Index)
		}
		return e.Column.Name
	case KindCount:
		return "count"
	case KindLiteral:
		return "literal"
	case KindAgg:
		if child, err := resolve(e.Child); err == nil {
			return fmt.Sprintf("%s(%s)", e.AggMethod, child.OutputName(resolve))
		}
		return e.AggMethod.String()
	case KindApply:
		return e.ApplyName
	case KindUnary:
		if child, err := resolve(e.Child); err == nil {
			return child.OutputName(resolve)
		}
		return e.Kind.String()
	default:
		return e.Kind.String()
	}
}
