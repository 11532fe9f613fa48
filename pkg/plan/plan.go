package plan

import (
	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/arena"
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/expr"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/message"
)

// Plan is one interned plan node: the decoded wire argument plus nothing
// else; children and inputs are identifiers resolved through the arenas.
type Plan struct {
	Arg *message.PlanArgument
}

// Kind returns the plan's operator kind.
func (p *Plan) Kind() message.PlanKind {
	return p.Arg.Kind
}

// Env bundles the arenas propagation resolves identifiers against.
type Env struct {
	Frames *arena.Arena[*frame.Frame]
	Exprs  *arena.Arena[*expr.Expr]
}

// FromArgument validates a decoded plan argument against the arenas and
// interns it as a plan node. Expression children must already exist; frame
// references are validated lazily at execution, matching the host's build
// order.
func FromArgument(env *Env, arg *message.PlanArgument) (*Plan, error) {
	var exprIDs []uuid.UUID
	switch arg.Kind {
	case message.PlanSelect:
		exprIDs = append(exprIDs, arg.Select.Pred)
	case message.PlanProjection:
		exprIDs = append(exprIDs, arg.Projection.Expressions...)
	case message.PlanAggregation:
		exprIDs = append(exprIDs, arg.Aggregation.Keys...)
		exprIDs = append(exprIDs, arg.Aggregation.Aggs...)
	case message.PlanScan:
		if arg.Scan.HasSel {
			exprIDs = append(exprIDs, arg.Scan.Selection)
		}
	case message.PlanDistinct, message.PlanJoin, message.PlanUnion, message.PlanReorder:
	default:
		return nil, errcode.New(errcode.SerializeError, "plan argument carries no variant")
	}
	for _, id := range exprIDs {
		if !env.Exprs.Contains(id) {
			return nil, errcode.New(errcode.NoEntry, "expression %s does not exist", id)
		}
	}
	return &Plan{Arg: arg}, nil
}

// exprContext builds an expression evaluation context over a frame.
func (env *Env) exprContext(f *frame.Frame) *expr.Context {
	return &expr.Context{Frame: f, Resolve: env.Exprs.Get}
}
