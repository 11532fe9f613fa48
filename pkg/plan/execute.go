package plan

import (
	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
)

// Result is the outcome of one propagation: the output frame plus the
// figures the profiler records.
type Result struct {
	Frame  *frame.Frame
	Rows   int
	Groups int
}

// Execute dispatches one announced operator over the active frame and
// returns the propagated output frame. Failures leave every arena intact.
func Execute(env *Env, arg *message.PlanArgument, input uuid.UUID) (*Result, error) {
	in, err := env.Frames.Get(input)
	if err != nil {
		return nil, err
	}

	var out *frame.Frame
	groups := 0
	switch arg.Kind {
	case message.PlanScan:
		out, err = executeScan(env, arg, input, in)
	case message.PlanSelect:
		out, err = executeSelect(env, arg, in)
	case message.PlanProjection:
		out, err = executeProjection(env, arg, in)
	case message.PlanDistinct:
		out, groups, err = executeDistinct(env, arg, in)
	case message.PlanAggregation:
		out, groups, err = executeAggregation(env, arg, in)
	case message.PlanJoin:
		out, err = executeJoin(env, arg, input)
	case message.PlanUnion:
		out, err = executeUnion(env, arg, input)
	case message.PlanReorder:
		out, err = executeReorder(arg, in)
	default:
		err = errcode.New(errcode.SerializeError, "plan argument carries no variant")
	}
	if err != nil {
		return nil, err
	}
	return &Result{Frame: out, Rows: out.Rows(), Groups: groups}, nil
}

// executeScan binds a registered frame into the pipeline, with optional
// projection pushdown and selection.
func executeScan(env *Env, arg *message.PlanArgument, input uuid.UUID, in *frame.Frame) (*frame.Frame, error) {
	if arg.Scan.Frame != input {
		return nil, errcode.New(errcode.InvalidOperation,
			"scan declares frame %s but the active frame is %s", arg.Scan.Frame, input)
	}
	out := in
	if len(arg.Scan.Projection) > 0 {
		cols := make([]int, len(arg.Scan.Projection))
		for i, c := range arg.Scan.Projection {
			cols[i] = int(c)
		}
		var err error
		out, err = out.Project(cols)
		if err != nil {
			return nil, err
		}
	}
	if arg.Scan.HasSel {
		ti := arg.TransformInfo
		if ti == nil || ti.Kind != message.TransformFilter {
			return nil, errcode.New(errcode.InvalidOperation,
				"scan with selection requires a filter descriptor")
		}
		return out.Filter(ti.Filter)
	}
	return out, nil
}

// executeSelect applies a selection: the host's row-keep bitmap restricts
// the frame. The predicate's own labels are not mixed into surviving cells;
// membership leakage is a separate channel the lattice level tracks.
func executeSelect(env *Env, arg *message.PlanArgument, in *frame.Frame) (*frame.Frame, error) {
	if _, err := env.Exprs.Get(arg.Select.Pred); err != nil {
		return nil, err
	}
	ti := arg.TransformInfo
	if ti == nil || ti.Kind != message.TransformFilter {
		return nil, errcode.New(errcode.InvalidOperation,
			"selection restructures rows and requires a filter descriptor")
	}
	return in.Filter(ti.Filter)
}

// executeProjection emits one output column per expression, in caller
// order, so positional policies stay aligned.
func executeProjection(env *Env, arg *message.PlanArgument, in *frame.Frame) (*frame.Frame, error) {
	ctx := env.exprContext(in)
	columns := make([]frame.Column, 0, len(arg.Projection.Expressions))
	for _, id := range arg.Projection.Expressions {
		e, err := env.Exprs.Get(id)
		if err != nil {
			return nil, err
		}
		labels, err := ctx.ColumnLabels(e)
		if err != nil {
			return nil, err
		}
		columns = append(columns, frame.Column{Name: e.OutputName(env.Exprs.Get), Labels: labels})
	}
	return frame.New(columns)
}

// executeDistinct deduplicates rows: each surviving row's labels are the
// composition of its duplicate set, announced through a distinct descriptor.
func executeDistinct(env *Env, arg *message.PlanArgument, in *frame.Frame) (*frame.Frame, int, error) {
	ti := arg.TransformInfo
	if ti == nil || ti.Kind != message.TransformDistinct {
		return nil, 0, errcode.New(errcode.InvalidOperation,
			"distinct restructures rows and requires a distinct descriptor")
	}
	groups, err := singleFrameGroups(ti.Distinct, in.Rows())
	if err != nil {
		return nil, 0, err
	}
	columns := make([]frame.Column, in.Width())
	for c, col := range in.Columns() {
		labels := make([]*label.Chain, len(groups))
		for g, members := range groups {
			acc := label.Bottom()
			for _, r := range members {
				if r >= uint64(in.Rows()) {
					return nil, 0, errcode.New(errcode.InvalidOperation,
						"distinct group references row %d of a %d-row frame", r, in.Rows())
				}
				acc = acc.Compose(col.Labels[r])
			}
			labels[g] = acc
		}
		columns[c] = frame.Column{Name: col.Name, Labels: labels}
	}
	out, err := frame.New(columns)
	if err != nil {
		return nil, 0, err
	}
	return out, len(groups), nil
}

// executeJoin replays the host's join topology: side columns index their
// source row, join-key columns compose both sides.
func executeJoin(env *Env, arg *message.PlanArgument, input uuid.UUID) (*frame.Frame, error) {
	ti := arg.TransformInfo
	if ti == nil || ti.Kind != message.TransformJoin {
		return nil, errcode.New(errcode.InvalidOperation,
			"join restructures rows and requires a join descriptor")
	}
	info := ti.Join
	if arg.Join.Lhs != info.Lhs || arg.Join.Rhs != info.Rhs {
		return nil, errcode.New(errcode.InvalidOperation,
			"join descriptor frames do not match the plan's inputs")
	}
	if input != info.Lhs && input != info.Rhs {
		return nil, errcode.New(errcode.InvalidOperation,
			"the active frame is neither join input")
	}
	lhs, err := env.Frames.Get(info.Lhs)
	if err != nil {
		return nil, err
	}
	rhs, err := env.Frames.Get(info.Rhs)
	if err != nil {
		return nil, err
	}
	if len(arg.Join.LeftKeys) != len(arg.Join.RightKeys) {
		return nil, errcode.New(errcode.InvalidOperation,
			"join key lists differ in length: %d vs %d", len(arg.Join.LeftKeys), len(arg.Join.RightKeys))
	}

	leftCols := make([]int, len(info.LeftColumns))
	for i, c := range info.LeftColumns {
		leftCols[i] = int(c)
	}
	rightCols := make([]int, len(info.RightColumns))
	for i, c := range info.RightColumns {
		rightCols[i] = int(c)
	}
	leftProj, err := lhs.Project(leftCols)
	if err != nil {
		return nil, err
	}
	rightProj, err := rhs.Project(rightCols)
	if err != nil {
		return nil, err
	}

	leftIdx := make([]uint64, len(info.Rows))
	rightIdx := make([]uint64, len(info.Rows))
	for i, rj := range info.Rows {
		leftIdx[i] = rj.Left
		rightIdx[i] = rj.Right
	}
	// A side the host projects away entirely contributes no columns; there
	// is nothing to gather on it.
	leftTaken := leftProj
	if leftProj.Width() > 0 {
		leftTaken, err = leftProj.Take(leftIdx)
		if err != nil {
			return nil, err
		}
	}
	rightTaken := rightProj
	if rightProj.Width() > 0 {
		rightTaken, err = rightProj.Take(rightIdx)
		if err != nil {
			return nil, err
		}
	}

	// Join keys: the surviving (left-side) key column carries both sides'
	// obligations for each matched pair.
	keyColumns := make([]frame.Column, len(leftTaken.Columns()))
	copy(keyColumns, leftTaken.Columns())
	for k := range arg.Join.LeftKeys {
		pos := -1
		for i, c := range info.LeftColumns {
			if c == arg.Join.LeftKeys[k] {
				pos = i
				break
			}
		}
		if pos < 0 {
			continue
		}
		rightKey, err := rhs.Column(int(arg.Join.RightKeys[k]))
		if err != nil {
			return nil, err
		}
		composed := make([]*label.Chain, len(info.Rows))
		for i, rj := range info.Rows {
			if rj.Right >= uint64(len(rightKey.Labels)) {
				return nil, errcode.New(errcode.InvalidOperation,
					"join pairs row %d with right row %d of a %d-row frame", i, rj.Right, len(rightKey.Labels))
			}
			composed[i] = keyColumns[pos].Labels[i].Compose(rightKey.Labels[rj.Right])
		}
		keyColumns[pos] = frame.Column{Name: keyColumns[pos].Name, Labels: composed}
	}
	leftTaken, err = frame.New(keyColumns)
	if err != nil {
		return nil, err
	}

	renames := make(map[string]string, len(info.Renames))
	for _, rn := range info.Renames {
		renames[rn.From] = rn.To
	}
	return frame.Stitch(leftTaken, rightTaken.Rename(renames))
}

// executeUnion concatenates same-schema frames; the active frame must be
// among the inputs.
func executeUnion(env *Env, arg *message.PlanArgument, input uuid.UUID) (*frame.Frame, error) {
	ids := arg.Union.Frames
	if len(ids) == 0 {
		if arg.TransformInfo != nil && arg.TransformInfo.Kind == message.TransformUnion {
			ids = arg.TransformInfo.Union
		}
	}
	if len(ids) == 0 {
		return nil, errcode.New(errcode.InvalidOperation,
			"union restructures rows and requires its input list")
	}
	found := false
	inputs := make([]*frame.Frame, len(ids))
	for i, id := range ids {
		if id == input {
			found = true
		}
		f, err := env.Frames.Get(id)
		if err != nil {
			return nil, err
		}
		inputs[i] = f
	}
	if !found {
		return nil, errcode.New(errcode.InvalidOperation,
			"the active frame is not among the union inputs")
	}
	return frame.Union(inputs)
}

// executeReorder permutes rows; labels move but never change.
func executeReorder(arg *message.PlanArgument, in *frame.Frame) (*frame.Frame, error) {
	perm := arg.Reorder.Perm
	if len(perm) == 0 && arg.TransformInfo != nil && arg.TransformInfo.Kind == message.TransformReorder {
		perm = arg.TransformInfo.Perm
	}
	return in.Reorder(perm)
}
