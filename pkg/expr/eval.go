package expr

import (
	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/label"
)

// Context carries what label transfer needs: the input frame and arena
// resolution for child identifiers.
type Context struct {
	Frame   *frame.Frame
	Resolve func(uuid.UUID) (*Expr, error)
}

func (ctx *Context) child(id uuid.UUID) (*Expr, error) {
	return ctx.Resolve(id)
}

// LabelAt computes the expression's label for one input row.
func (ctx *Context) LabelAt(e *Expr, row int) (*label.Chain, error) {
	switch e.Kind {
	case KindLiteral, KindWildcard, KindCount:
		return label.Bottom(), nil

	case KindColumn:
		idx := e.Column.Index
		if !e.Column.ByIndex {
			var err error
			idx, err = ctx.Frame.ColumnIndex(e.Column.Name)
			if err != nil {
				return nil, err
			}
		}
		col, err := ctx.Frame.Column(idx)
		if err != nil {
			return nil, err
		}
		if row >= len(col.Labels) {
			return nil, errcode.New(errcode.InvalidOperation,
				"row %d out of range (frame has %d rows)", row, len(col.Labels))
		}
		return col.Labels[row], nil

	case KindAlias:
		child, err := ctx.child(e.Child)
		if err != nil {
			return nil, err
		}
		return ctx.LabelAt(child, row)

	case KindUnary:
		child, err := ctx.child(e.Child)
		if err != nil {
			return nil, err
		}
		in, err := ctx.LabelAt(child, row)
		if err != nil {
			return nil, err
		}
		out, _ := in.Downgrade(e.UnaryOp.Discharge())
		return out, nil

	case KindBinary:
		return ctx.binaryLabelAt(e, row)

	case KindTernary:
		return ctx.ternaryLabelAt(e, row)

	case KindFilter:
		// Row selection happens at column level; per-row the filter is
		// transparent over its input.
		child, err := ctx.child(e.Child)
		if err != nil {
			return nil, err
		}
		return ctx.LabelAt(child, row)

	case KindApply:
		return ctx.applyLabelAt(e, row)

	case KindAgg:
		return nil, errcode.New(errcode.InvalidOperation,
			"aggregate expressions are not allowed in row context")

	default:
		return nil, errcode.New(errcode.InvalidOperation, "unknown expression kind %d", e.Kind)
	}
}

func (ctx *Context) binaryLabelAt(e *Expr, row int) (*label.Chain, error) {
	left, err := ctx.child(e.Left)
	if err != nil {
		return nil, err
	}
	right, err := ctx.child(e.Right)
	if err != nil {
		return nil, err
	}
	lhs, err := ctx.LabelAt(left, row)
	if err != nil {
		return nil, err
	}
	rhs, err := ctx.LabelAt(right, row)
	if err != nil {
		return nil, err
	}

	// Comparisons and logical connectives produce no new value worth a
	// transform; their result carries both operands' obligations.
	if e.BinaryOp.IsComparison() || e.BinaryOp.IsLogical() {
		return lhs.Compose(rhs), nil
	}
	if !e.BinaryOp.IsArithmetic() {
		return nil, errcode.New(errcode.SerializeError, "unknown binary operator %d", e.BinaryOp)
	}

	// Arithmetic over one clean operand is a parameterized transform of the
	// other: the clean side's reified value pins the transform parameter.
	switch {
	case lhs.AtBottom() && rhs.AtBottom():
		return label.Bottom(), nil
	case lhs.AtBottom():
		operand, ok := e.operandAt(0, row)
		if !ok {
			return nil, errcode.New(errcode.InvalidOperation,
				"binary %q needs reified operands", e.BinaryOp.TransformName())
		}
		out, _ := rhs.Downgrade(label.NewNamedTransform(e.BinaryOp.TransformName(), operand.Canonical()))
		return out, nil
	case rhs.AtBottom():
		operand, ok := e.operandAt(1, row)
		if !ok {
			return nil, errcode.New(errcode.InvalidOperation,
				"binary %q needs reified operands", e.BinaryOp.TransformName())
		}
		out, _ := lhs.Downgrade(label.NewNamedTransform(e.BinaryOp.TransformName(), operand.Canonical()))
		return out, nil
	default:
		return lhs.Compose(rhs), nil
	}
}

func (ctx *Context) ternaryLabelAt(e *Expr, row int) (*label.Chain, error) {
	thenExpr, err := ctx.child(e.Then)
	if err != nil {
		return nil, err
	}
	elseExpr, err := ctx.child(e.Else)
	if err != nil {
		return nil, err
	}
	cond, ok := e.condAt(row)
	if !ok {
		// Condition not reified: the selected branch is unknown, so the
		// cell carries both branches' obligations.
		lhs, err := ctx.LabelAt(thenExpr, row)
		if err != nil {
			return nil, err
		}
		rhs, err := ctx.LabelAt(elseExpr, row)
		if err != nil {
			return nil, err
		}
		return lhs.Compose(rhs), nil
	}
	if cond {
		return ctx.LabelAt(thenExpr, row)
	}
	return ctx.LabelAt(elseExpr, row)
}

func (ctx *Context) applyLabelAt(e *Expr, row int) (*label.Chain, error) {
	acc := label.Bottom()
	for _, id := range e.Inputs {
		child, err := ctx.child(id)
		if err != nil {
			return nil, err
		}
		l, err := ctx.LabelAt(child, row)
		if err != nil {
			return nil, err
		}
		acc = acc.Compose(l)
	}
	out, _ := acc.Downgrade(label.NewNamedTransform(e.ApplyName, ""))
	return out, nil
}

// ColumnLabels computes the expression's full output column. The output
// length matches the input frame except for filters, which emit only the
// rows their reified predicate keeps.
func (ctx *Context) ColumnLabels(e *Expr) ([]*label.Chain, error) {
	rows := ctx.Frame.Rows()

	if e.Kind == KindFilter {
		pred, err := ctx.child(e.Pred)
		if err != nil {
			return nil, err
		}
		child, err := ctx.child(e.Child)
		if err != nil {
			return nil, err
		}
		if pred.Reified() == nil {
			return nil, errcode.New(errcode.InvalidOperation,
				"filter predicate must be reified before propagation")
		}
		out := make([]*label.Chain, 0, rows)
		for r := 0; r < rows; r++ {
			keep, _ := pred.condAt(r)
			if !keep {
				continue
			}
			l, err := ctx.LabelAt(child, r)
			if err != nil {
				return nil, err
			}
			out = append(out, l)
		}
		return out, nil
	}

	out := make([]*label.Chain, rows)
	for r := 0; r < rows; r++ {
		l, err := ctx.LabelAt(e, r)
		if err != nil {
			return nil, err
		}
		out[r] = l
	}
	return out, nil
}

// ComposeOver composes the expression's labels over a set of member rows
// without applying any discharge.
func (ctx *Context) ComposeOver(e *Expr, members []uint64) (*label.Chain, error) {
	acc := label.Bottom()
	for _, r := range members {
		l, err := ctx.LabelAt(e, int(r))
		if err != nil {
			return nil, err
		}
		acc = acc.Compose(l)
	}
	return acc, nil
}

// AggregateLabel folds one group through an aggregate expression: member
// labels compose under ⊕ and the aggregation discharge is applied with the
// actual group size. Count expressions aggregate to the bottom label.
func (ctx *Context) AggregateLabel(e *Expr, members []uint64) (*label.Chain, error) {
	switch e.Kind {
	case KindCount, KindLiteral:
		return label.Bottom(), nil
	case KindAlias:
		child, err := ctx.child(e.Child)
		if err != nil {
			return nil, err
		}
		return ctx.AggregateLabel(child, members)
	case KindAgg:
	default:
		return nil, errcode.New(errcode.InvalidOperation,
			"%s expressions cannot head an aggregation", e.Kind)
	}

	child, err := ctx.child(e.Child)
	if err != nil {
		return nil, err
	}
	acc := label.Bottom()
	for _, r := range members {
		l, err := ctx.LabelAt(child, int(r))
		if err != nil {
			return nil, err
		}
		acc = acc.Compose(l)
	}
	out, _ := acc.Downgrade(label.NewAggregate(e.AggMethod, len(members)))
	return out, nil
}
