package plan

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/expr"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
)

// groupPart is the portion of one group living in one frame, for sharded
// group-bys whose members span chunks.
type groupPart struct {
	ctx     *expr.Context
	members []uint64
}

// group is one logical group; its size is the sum over parts.
type group struct {
	parts []groupPart
}

func (g group) size() int {
	n := 0
	for _, p := range g.parts {
		n += len(p.members)
	}
	return n
}

// executeAggregation folds each announced group: member labels compose
// under ⊕ and the aggregation discharge is applied with the actual group
// size. Undersized groups keep the obligation and fail at the sink, not
// here.
func executeAggregation(env *Env, arg *message.PlanArgument, in *frame.Frame) (*frame.Frame, int, error) {
	proxy := arg.Aggregation.Proxy
	if proxy == nil {
		if ti := arg.TransformInfo; ti != nil && ti.Kind == message.TransformGroupBy {
			proxy = ti.GroupBy
		}
	}
	if proxy == nil {
		return nil, 0, errcode.New(errcode.InvalidOperation,
			"aggregation restructures rows and requires a group-by proxy")
	}

	groups, err := buildGroups(env, proxy, in)
	if err != nil {
		return nil, 0, err
	}

	// Aggregates reify one value per group; re-check now that the group
	// count is known.
	for _, id := range arg.Aggregation.Aggs {
		e, err := env.Exprs.Get(id)
		if err != nil {
			return nil, 0, err
		}
		if reified := e.Reified(); reified != nil && len(reified[0].Values) != len(groups) {
			return nil, 0, errcode.New(errcode.InvalidOperation,
				"aggregate reified %d values for %d groups", len(reified[0].Values), len(groups))
		}
	}

	names := outputNames(env, arg)
	columns := make([]frame.Column, 0, len(arg.Aggregation.Keys)+len(arg.Aggregation.Aggs))

	// Group-key columns: the key cell stands for every member of the group,
	// so it carries the composition of their obligations.
	for i, id := range arg.Aggregation.Keys {
		e, err := env.Exprs.Get(id)
		if err != nil {
			return nil, 0, err
		}
		labels := make([]*label.Chain, len(groups))
		for g, grp := range groups {
			acc := label.Bottom()
			for _, part := range grp.parts {
				l, err := part.ctx.ComposeOver(e, part.members)
				if err != nil {
					return nil, 0, err
				}
				acc = acc.Compose(l)
			}
			labels[g] = acc
		}
		columns = append(columns, frame.Column{Name: names[i], Labels: labels})
	}

	for i, id := range arg.Aggregation.Aggs {
		e, err := env.Exprs.Get(id)
		if err != nil {
			return nil, 0, err
		}
		labels := make([]*label.Chain, len(groups))
		for g, grp := range groups {
			l, err := aggregateGroup(env, e, grp)
			if err != nil {
				return nil, 0, err
			}
			labels[g] = l
		}
		columns = append(columns, frame.Column{Name: names[len(arg.Aggregation.Keys)+i], Labels: labels})
	}

	out, err := frame.New(columns)
	if err != nil {
		return nil, 0, err
	}
	return out, len(groups), nil
}

// aggregateGroup folds one group through an aggregate expression across its
// parts, applying the discharge once with the total size.
func aggregateGroup(env *Env, e *expr.Expr, grp group) (*label.Chain, error) {
	agg, err := resolveAgg(env, e)
	if err != nil {
		return nil, err
	}
	if agg == nil {
		// Count and literal heads aggregate to the bottom label.
		return label.Bottom(), nil
	}
	child, err := env.Exprs.Get(agg.Child)
	if err != nil {
		return nil, err
	}
	acc := label.Bottom()
	for _, part := range grp.parts {
		l, err := part.ctx.ComposeOver(child, part.members)
		if err != nil {
			return nil, err
		}
		acc = acc.Compose(l)
	}
	out, _ := acc.Downgrade(label.NewAggregate(agg.AggMethod, grp.size()))
	return out, nil
}

// resolveAgg walks aliases down to the aggregate head. A nil result means
// the expression aggregates to bottom (count, literal).
func resolveAgg(env *Env, e *expr.Expr) (*expr.Expr, error) {
	for {
		switch e.Kind {
		case expr.KindAgg:
			return e, nil
		case expr.KindCount, expr.KindLiteral:
			return nil, nil
		case expr.KindAlias:
			child, err := env.Exprs.Get(e.Child)
			if err != nil {
				return nil, err
			}
			e = child
		default:
			return nil, errcode.New(errcode.InvalidOperation,
				"%s expressions cannot head an aggregation", e.Kind)
		}
	}
}

// buildGroups normalizes every proxy variant into concrete groups.
func buildGroups(env *Env, proxy *message.GroupByProxy, in *frame.Frame) ([]group, error) {
	ctx := env.exprContext(in)
	rows := in.Rows()

	switch proxy.Kind {
	case message.UngroupedGroupBy:
		members := make([]uint64, rows)
		for i := range members {
			members[i] = uint64(i)
		}
		return []group{{parts: []groupPart{{ctx: ctx, members: members}}}}, nil

	case message.GroupByIdx:
		groups := make([]group, len(proxy.Groups))
		for i, entry := range proxy.Groups {
			if err := checkMembers(entry.Members, rows); err != nil {
				return nil, err
			}
			groups[i] = group{parts: []groupPart{{ctx: ctx, members: entry.Members}}}
		}
		return groups, nil

	case message.GroupBySlice:
		groups := make([]group, len(proxy.Runs))
		for i, run := range proxy.Runs {
			if run.Offset+run.Length > uint64(rows) {
				return nil, errcode.New(errcode.InvalidOperation,
					"group run [%d, %d) exceeds %d rows", run.Offset, run.Offset+run.Length, rows)
			}
			members := make([]uint64, run.Length)
			for j := range members {
				members[j] = run.Offset + uint64(j)
			}
			groups[i] = group{parts: []groupPart{{ctx: ctx, members: members}}}
		}
		return groups, nil

	case message.GroupByIdxMultiple:
		return buildShardedGroups(env, proxy.Chunks)

	default:
		return nil, errcode.New(errcode.SerializeError, "group-by proxy carries no variant")
	}
}

// buildShardedGroups merges chunked groups by their group hash: entries
// with equal hashes across chunks form one logical group.
func buildShardedGroups(env *Env, chunks []message.GroupChunk) ([]group, error) {
	type sharded struct {
		order int
		parts map[uuid.UUID]*groupPart
		seq   []*groupPart
	}
	byHash := make(map[uint64]*sharded)
	var order []uint64

	for _, chunk := range chunks {
		f, err := env.Frames.Get(chunk.Frame)
		if err != nil {
			return nil, err
		}
		ctx := &expr.Context{Frame: f, Resolve: env.Exprs.Get}
		for _, entry := range chunk.Groups {
			if err := checkMembers(entry.Members, f.Rows()); err != nil {
				return nil, err
			}
			s, ok := byHash[entry.Hash]
			if !ok {
				s = &sharded{order: len(order), parts: make(map[uuid.UUID]*groupPart)}
				byHash[entry.Hash] = s
				order = append(order, entry.Hash)
			}
			part, ok := s.parts[chunk.Frame]
			if !ok {
				part = &groupPart{ctx: ctx}
				s.parts[chunk.Frame] = part
				s.seq = append(s.seq, part)
			}
			part.members = append(part.members, entry.Members...)
		}
	}

	sort.Slice(order, func(i, j int) bool {
		return byHash[order[i]].order < byHash[order[j]].order
	})
	groups := make([]group, 0, len(order))
	for _, h := range order {
		s := byHash[h]
		parts := make([]groupPart, 0, len(s.seq))
		for _, p := range s.seq {
			parts = append(parts, *p)
		}
		groups = append(groups, group{parts: parts})
	}
	return groups, nil
}

func checkMembers(members []uint64, rows int) error {
	for _, r := range members {
		if r >= uint64(rows) {
			return errcode.New(errcode.InvalidOperation,
				"group references row %d of a %d-row frame", r, rows)
		}
	}
	return nil
}

// singleFrameGroups flattens a proxy over one frame into member lists, the
// shape distinct deduplication consumes.
func singleFrameGroups(proxy *message.GroupByProxy, rows int) ([][]uint64, error) {
	switch proxy.Kind {
	case message.UngroupedGroupBy:
		members := make([]uint64, rows)
		for i := range members {
			members[i] = uint64(i)
		}
		return [][]uint64{members}, nil
	case message.GroupByIdx:
		out := make([][]uint64, len(proxy.Groups))
		for i, entry := range proxy.Groups {
			if err := checkMembers(entry.Members, rows); err != nil {
				return nil, err
			}
			out[i] = entry.Members
		}
		return out, nil
	case message.GroupBySlice:
		out := make([][]uint64, len(proxy.Runs))
		for i, run := range proxy.Runs {
			if run.Offset+run.Length > uint64(rows) {
				return nil, errcode.New(errcode.InvalidOperation,
					"group run [%d, %d) exceeds %d rows", run.Offset, run.Offset+run.Length, rows)
			}
			members := make([]uint64, run.Length)
			for j := range members {
				members[j] = run.Offset + uint64(j)
			}
			out[i] = members
		}
		return out, nil
	default:
		return nil, errcode.New(errcode.InvalidOperation,
			"distinct requires a single-frame group proxy")
	}
}

// outputNames resolves the aggregation's output schema: the caller-declared
// schema when its length matches, derived names otherwise.
func outputNames(env *Env, arg *message.PlanArgument) []string {
	total := len(arg.Aggregation.Keys) + len(arg.Aggregation.Aggs)
	if len(arg.Aggregation.OutputSchema) == total {
		return arg.Aggregation.OutputSchema
	}
	names := make([]string, 0, total)
	for _, id := range arg.Aggregation.Keys {
		names = append(names, exprName(env, id))
	}
	for _, id := range arg.Aggregation.Aggs {
		names = append(names, exprName(env, id))
	}
	return names
}

func exprName(env *Env, id uuid.UUID) string {
	e, err := env.Exprs.Get(id)
	if err != nil {
		return fmt.Sprintf("expr_%s", id)
	}
	return e.OutputName(env.Exprs.Get)
}
