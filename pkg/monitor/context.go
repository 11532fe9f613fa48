package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/arena"
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/evidence"
	"mercator-hq/cellguard/pkg/expr"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/message"
	"mercator-hq/cellguard/pkg/plan"
	"mercator-hq/cellguard/pkg/profiler"
	"mercator-hq/cellguard/pkg/telemetry/logging"
	"mercator-hq/cellguard/pkg/telemetry/metrics"
	"mercator-hq/cellguard/pkg/values"
)

// Context is one active analysis session: four arenas, option flags, a
// profiler, and an optional evidence recorder.
type Context struct {
	id uuid.UUID

	policies *arena.Arena[*Policy]
	frames   *arena.Arena[*frame.Frame]
	plans    *arena.Arena[*plan.Plan]
	exprs    *arena.Arena[*expr.Expr]

	logger   *logging.Logger
	metrics  *metrics.Collector
	profiler *profiler.Profiler
	evidence evidence.Storage

	mu          sync.Mutex
	opts        message.ContextOptions
	activeFrame uuid.UUID
	activeRows  int
	hasActive   bool

	profilePath string
	tracePath   string
}

func newContext(id uuid.UUID, logger *logging.Logger, collector *metrics.Collector, store evidence.Storage, profilePath, tracePath string) *Context {
	return &Context{
		id:          id,
		policies:    arena.New[*Policy]("policy"),
		frames:      arena.New[*frame.Frame]("frame"),
		plans:       arena.New[*plan.Plan]("plan"),
		exprs:       arena.New[*expr.Expr]("expression"),
		logger:      logger,
		metrics:     collector,
		profiler:    profiler.New(),
		evidence:    store,
		activeRows:  -1,
		profilePath: profilePath,
		tracePath:   tracePath,
	}
}

// ID returns the context identifier.
func (c *Context) ID() uuid.UUID {
	return c.id
}

// EnableTracing toggles trace logging for this context.
func (c *Context) EnableTracing(enable bool) error {
	c.mu.Lock()
	c.opts.EnableTracing = enable
	c.mu.Unlock()
	if enable {
		return c.logger.OpenTrace(c.tracePath)
	}
	return nil
}

// EnableProfiling toggles per-operation profiling for this context.
func (c *Context) EnableProfiling(enable bool) {
	c.mu.Lock()
	c.opts.EnableProfiling = enable
	c.mu.Unlock()
}

// TracingEnabled reports whether trace logging is on for this context.
func (c *Context) TracingEnabled() bool {
	return c.options().EnableTracing
}

// ProfilingEnabled reports whether profiling is on for this context.
func (c *Context) ProfilingEnabled() bool {
	return c.options().EnableProfiling
}

func (c *Context) options() message.ContextOptions {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts
}

func (c *Context) setActive(id uuid.UUID, rows int) {
	c.mu.Lock()
	c.activeFrame = id
	c.activeRows = rows
	c.hasActive = true
	c.mu.Unlock()
}

func (c *Context) trace(msg string, args ...any) {
	if c.options().EnableTracing {
		c.logger.Trace(msg, args...)
	}
}

// RegisterPolicy interns a column policy and returns its identifier.
func (c *Context) RegisterPolicy(p *Policy) (uuid.UUID, error) {
	if p == nil || len(p.Columns) == 0 {
		return uuid.Nil, errcode.New(errcode.InvalidOperation, "policy carries no columns")
	}
	return c.policies.Insert(p), nil
}

// InstantiateFrame expands an interned policy over rows and registers the
// resulting frame.
func (c *Context) InstantiateFrame(policyID uuid.UUID, rows int) (uuid.UUID, error) {
	p, err := c.policies.Get(policyID)
	if err != nil {
		return uuid.Nil, err
	}
	f, err := p.Instantiate(rows)
	if err != nil {
		return uuid.Nil, err
	}
	return c.registerFrame(f), nil
}

// RegisterPolicyFrame decodes an Arrow IPC payload whose binary cells are
// encoded label chains and registers the frame.
func (c *Context) RegisterPolicyFrame(payload []byte) (uuid.UUID, error) {
	cols, err := values.DecodeBinaryColumns(payload)
	if err != nil {
		return uuid.Nil, err
	}
	f, err := frameFromBinaryColumns(cols)
	if err != nil {
		return uuid.Nil, err
	}
	return c.registerFrame(f), nil
}

// RegisterPolicyFrameFromRowGroup reads one parquet row group of encoded
// label chains and registers the frame.
func (c *Context) RegisterPolicyFrameFromRowGroup(path string, rowGroup int, projection []int, selection []bool) (uuid.UUID, error) {
	cols, err := values.ReadParquetRowGroup(path, rowGroup, projection, selection)
	if err != nil {
		return uuid.Nil, err
	}
	f, err := frameFromBinaryColumns(cols)
	if err != nil {
		return uuid.Nil, err
	}
	return c.registerFrame(f), nil
}

func (c *Context) registerFrame(f *frame.Frame) uuid.UUID {
	id := c.frames.Insert(f)
	c.setActive(id, f.Rows())
	c.trace("registered frame", "frame", id, "rows", f.Rows(), "columns", f.Width())
	return id
}

func frameFromBinaryColumns(cols []values.BinaryColumn) (*frame.Frame, error) {
	columns := make([]frame.Column, len(cols))
	for i, bc := range cols {
		chains, err := decodeChainCells(bc.Cells)
		if err != nil {
			return nil, errcode.Wrap(errcode.CodeOf(err), err, "column %q", bc.Name)
		}
		columns[i] = frame.Column{Name: bc.Name, Labels: chains}
	}
	return frame.New(columns)
}

// ExprFromArgs decodes an expression argument, materializes the node, and
// returns its identifier.
func (c *Context) ExprFromArgs(payload []byte) (uuid.UUID, error) {
	arg, err := message.DecodeExprArgument(payload)
	if err != nil {
		return uuid.Nil, err
	}
	e, err := expr.FromArgument(arg, c.exprs.Contains)
	if err != nil {
		return uuid.Nil, err
	}
	id := c.exprs.Insert(e)
	c.trace("built expression", "expr", id, "kind", e.Kind)
	return id, nil
}

// BuildPlan decodes a plan argument, interns the node, and returns its
// identifier.
func (c *Context) BuildPlan(payload []byte) (uuid.UUID, error) {
	arg, err := message.DecodePlanArgument(payload)
	if err != nil {
		return uuid.Nil, err
	}
	p, err := plan.FromArgument(c.planEnv(), arg)
	if err != nil {
		return uuid.Nil, err
	}
	id := c.plans.Insert(p)
	c.trace("built plan", "plan", id, "kind", p.Kind())
	return id, nil
}

// ReifyExpression attaches Arrow-decoded value columns to an expression.
func (c *Context) ReifyExpression(exprID uuid.UUID, payload []byte) error {
	e, err := c.exprs.Get(exprID)
	if err != nil {
		return err
	}
	if !e.NeedsReify() {
		return nil
	}
	cols, err := values.DecodeColumns(payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	expect := -1
	if c.hasActive && e.Kind != expr.KindAgg {
		expect = c.activeRows
	}
	c.mu.Unlock()
	if err := e.Reify(cols, expect); err != nil {
		return err
	}
	c.trace("reified expression", "expr", exprID, "columns", len(cols))
	return nil
}

// ExecuteEpilogue announces one executed operator: the plan payload is
// decoded, propagation replays it over the active frame, and the new frame's
// identifier is returned.
func (c *Context) ExecuteEpilogue(planPayload []byte, input uuid.UUID) (uuid.UUID, error) {
	arg, err := message.DecodePlanArgument(planPayload)
	if err != nil {
		return uuid.Nil, err
	}
	return c.executeEpilogue(arg, input)
}

// ExecuteEpiloguePlan announces an operator already interned via BuildPlan.
func (c *Context) ExecuteEpiloguePlan(planID, input uuid.UUID) (uuid.UUID, error) {
	p, err := c.plans.Get(planID)
	if err != nil {
		return uuid.Nil, err
	}
	return c.executeEpilogue(p.Arg, input)
}

func (c *Context) executeEpilogue(arg *message.PlanArgument, input uuid.UUID) (uuid.UUID, error) {
	start := time.Now()
	res, err := plan.Execute(c.planEnv(), arg, input)
	elapsed := time.Since(start)

	op := arg.Kind.String()
	if err != nil {
		c.metrics.RecordOperation(op, errcode.CodeOf(err).String(), elapsed, 0)
		if errcode.CodeOf(err) == errcode.PrivacyBreach {
			c.metrics.RecordBreach()
		}
		c.record(op, input, uuid.Nil, err)
		return uuid.Nil, err
	}

	id := c.frames.Insert(res.Frame)
	c.setActive(id, res.Frame.Rows())
	c.metrics.RecordOperation(op, errcode.Success.String(), elapsed, res.Rows)
	if c.options().EnableProfiling {
		c.profiler.Record(op, elapsed, res.Rows, res.Groups)
	}
	c.record(op, input, id, nil)
	c.trace("executed epilogue", "op", op, "input", input, "output", id, "rows", res.Rows)
	return id, nil
}

// EarlyProjection restricts a frame to the given column positions and
// registers the result.
func (c *Context) EarlyProjection(frameID uuid.UUID, projectList []int) (uuid.UUID, error) {
	f, err := c.frames.Get(frameID)
	if err != nil {
		return uuid.Nil, err
	}
	out, err := f.Project(projectList)
	if err != nil {
		return uuid.Nil, err
	}
	return c.registerFrame(out), nil
}

// CreateSlice registers the sub-frame covering rows [start, end).
func (c *Context) CreateSlice(frameID uuid.UUID, start, end int) (uuid.UUID, error) {
	f, err := c.frames.Get(frameID)
	if err != nil {
		return uuid.Nil, err
	}
	out, err := f.Slice(start, end)
	if err != nil {
		return uuid.Nil, err
	}
	return c.registerFrame(out), nil
}

// Frame returns the frame stored under id.
func (c *Context) Frame(id uuid.UUID) (*frame.Frame, error) {
	return c.frames.Get(id)
}

// Finalize is the sink: the frame may leave the monitor only if every chain
// is at bottom. On success an enabled profiler flushes its entries.
func (c *Context) Finalize(frameID uuid.UUID) error {
	f, err := c.frames.Get(frameID)
	if err != nil {
		return err
	}
	if err := f.Finalize(); err != nil {
		c.metrics.RecordBreach()
		c.record("finalize", frameID, uuid.Nil, err)
		c.logger.Warn("sink blocked frame", "frame", frameID, "error", err)
		return err
	}
	c.record("finalize", frameID, uuid.Nil, nil)
	c.trace("finalized frame", "frame", frameID)
	if c.options().EnableProfiling {
		if err := c.profiler.Flush(c.profilePath); err != nil {
			return errcode.Wrap(errcode.InvalidOperation, err, "flushing profile log")
		}
	}
	return nil
}

func (c *Context) planEnv() *plan.Env {
	return &plan.Env{Frames: c.frames, Exprs: c.exprs}
}

func (c *Context) record(op string, input, output uuid.UUID, opErr error) {
	if c.evidence == nil {
		return
	}
	rec := &evidence.Record{
		ID:          uuid.New(),
		Time:        time.Now(),
		Context:     c.id,
		Op:          op,
		InputFrame:  input,
		OutputFrame: output,
		Outcome:     evidence.OutcomeAllowed,
	}
	if opErr != nil {
		rec.Outcome = evidence.OutcomeBlocked
		rec.Detail = opErr.Error()
	}
	if err := c.evidence.Append(context.Background(), rec); err != nil {
		c.logger.Error("evidence append failed", "error", err)
	}
}
