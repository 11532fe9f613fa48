package expr

import (
	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/message"
)

// FromArgument materializes an expression node from its decoded wire
// argument. exists validates child identifiers against the arena; unknown
// children fail with NoEntry before the node is built.
func FromArgument(arg *message.ExprArgument, exists func(uuid.UUID) bool) (*Expr, error) {
	check := func(ids ...uuid.UUID) error {
		for _, id := range ids {
			if !exists(id) {
				return errcode.New(errcode.NoEntry, "expression %s does not exist", id)
			}
		}
		return nil
	}

	switch arg.Kind {
	case message.ExprColumn:
		return &Expr{Kind: KindColumn, Column: ColumnIdent(arg.Column)}, nil
	case message.ExprLiteral:
		return &Expr{Kind: KindLiteral, Literal: arg.Literal}, nil
	case message.ExprWildcard:
		return &Expr{Kind: KindWildcard}, nil
	case message.ExprCount:
		return &Expr{Kind: KindCount}, nil
	case message.ExprAlias:
		if err := check(arg.Alias.Input); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindAlias, Child: arg.Alias.Input, AliasName: arg.Alias.Name}, nil
	case message.ExprUnary:
		if err := check(arg.Unary.Input); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindUnary, Child: arg.Unary.Input, UnaryOp: arg.Unary.Op}, nil
	case message.ExprBinary:
		if err := check(arg.Binary.Left, arg.Binary.Right); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindBinary, Left: arg.Binary.Left, Right: arg.Binary.Right, BinaryOp: arg.Binary.Op}, nil
	case message.ExprTernary:
		if err := check(arg.Ternary.Cond, arg.Ternary.Then, arg.Ternary.Else); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindTernary, Cond: arg.Ternary.Cond, Then: arg.Ternary.Then, Else: arg.Ternary.Else}, nil
	case message.ExprFilter:
		if err := check(arg.Filter.Input, arg.Filter.Pred); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindFilter, Child: arg.Filter.Input, Pred: arg.Filter.Pred}, nil
	case message.ExprAgg:
		if err := check(arg.Agg.Input); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindAgg, Child: arg.Agg.Input, AggMethod: arg.Agg.Method}, nil
	case message.ExprApply:
		if err := check(arg.Apply.Inputs...); err != nil {
			return nil, err
		}
		return &Expr{Kind: KindApply, Inputs: arg.Apply.Inputs, ApplyName: arg.Apply.Name}, nil
	default:
		return nil, errcode.New(errcode.SerializeError, "expression argument carries no variant")
	}
}
