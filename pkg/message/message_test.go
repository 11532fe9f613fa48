package message

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/values"
)

func TestUUIDRoundTrip(t *testing.T) {
	id := uuid.New()
	got, err := UUIDFromLE(UUIDToLE(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestUUIDFromLE_WrongLength(t *testing.T) {
	_, err := UUIDFromLE(make([]byte, 8))
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))
}

func TestPolicyChainRoundTrip(t *testing.T) {
	chain, err := label.New(
		label.Step{Level: label.High, Discharges: []label.Discharge{
			label.NewTransform(label.OpRedact),
			label.NewNamedTransform("len", ""),
		}},
		label.Step{Level: label.Anonymized, Discharges: []label.Discharge{
			label.NewAggregate(label.AggMean, 20),
			label.NewNoise(1.5, 1e-6, "laplace"),
			label.NewScheme(label.SchemeKAnonymity, 5),
		}},
	)
	require.NoError(t, err)

	decoded, err := DecodePolicyChain(EncodePolicyChain(chain))
	require.NoError(t, err)
	assert.True(t, decoded.Equal(chain), "got %s want %s", decoded, chain)
}

func TestPolicyChain_EmptyIsBottom(t *testing.T) {
	decoded, err := DecodePolicyChain(nil)
	require.NoError(t, err)
	assert.True(t, decoded.AtBottom())

	decoded, err = DecodePolicyChain(EncodePolicyChain(label.Bottom()))
	require.NoError(t, err)
	assert.True(t, decoded.AtBottom())
}

func TestPolicyChain_NonDescendingRejected(t *testing.T) {
	// Encode an ascending chain by hand: the decoder must reject it.
	var b []byte
	low := appendVarint(nil, 1, uint64(label.Anonymized))
	low = appendMessage(low, 2, encodeDischarge(label.NewTransform(label.OpRedact)))
	high := appendVarint(nil, 1, uint64(label.High))
	high = appendMessage(high, 2, encodeDischarge(label.NewTransform(label.OpRedact)))
	b = appendMessage(b, 1, low)
	b = appendMessage(b, 1, high)

	_, err := DecodePolicyChain(b)
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestPrimitiveValueRoundTrip(t *testing.T) {
	tests := []values.Value{
		{Kind: values.KindBool, Bool: true},
		{Kind: values.KindInt, Int: -42},
		{Kind: values.KindUint, Uint: 99},
		{Kind: values.KindFloat, Float: 3.25},
		{Kind: values.KindString, Str: "zip"},
		{Kind: values.KindBytes, Bytes: []byte{1, 2, 3}},
		{Kind: values.KindDuration, Duration: 90*time.Second + 250*time.Millisecond},
		values.Null,
	}
	for _, v := range tests {
		got, err := DecodePrimitiveValue(EncodePrimitiveValue(v))
		require.NoError(t, err)
		assert.Equal(t, v.Canonical(), got.Canonical())
	}
}

func TestPrimitiveValue_EmptyRejected(t *testing.T) {
	_, err := DecodePrimitiveValue(nil)
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))
}

func TestExprArgumentRoundTrip(t *testing.T) {
	left, right := uuid.New(), uuid.New()

	tests := []struct {
		name string
		arg  *ExprArgument
	}{
		{"column by name", &ExprArgument{Kind: ExprColumn, Column: ColumnRef{Name: "zip"}}},
		{"column by index", &ExprArgument{Kind: ExprColumn, Column: ColumnRef{Index: 3, ByIndex: true}}},
		{"wildcard", &ExprArgument{Kind: ExprWildcard}},
		{"count", &ExprArgument{Kind: ExprCount}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeExprArgument(EncodeExprArgument(tt.arg))
			require.NoError(t, err)
			assert.Equal(t, tt.arg.Kind, got.Kind)
			assert.Equal(t, tt.arg.Column, got.Column)
		})
	}

	t.Run("binary", func(t *testing.T) {
		arg := &ExprArgument{Kind: ExprBinary}
		arg.Binary.Left = left
		arg.Binary.Right = right
		arg.Binary.Op = BinaryAdd
		got, err := DecodeExprArgument(EncodeExprArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, ExprBinary, got.Kind)
		assert.Equal(t, left, got.Binary.Left)
		assert.Equal(t, right, got.Binary.Right)
		assert.Equal(t, BinaryAdd, got.Binary.Op)
	})

	t.Run("unary with noise", func(t *testing.T) {
		arg := &ExprArgument{Kind: ExprUnary}
		arg.Unary.Input = left
		arg.Unary.Op = UnaryOperator{Kind: UnaryNoise, Noise: label.NoiseSpec{Epsilon: 0.5, Delta: 1e-7, Mechanism: "gaussian"}}
		got, err := DecodeExprArgument(EncodeExprArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, arg.Unary.Op.Noise, got.Unary.Op.Noise)
	})

	t.Run("apply", func(t *testing.T) {
		arg := &ExprArgument{Kind: ExprApply}
		arg.Apply.Inputs = []uuid.UUID{left, right}
		arg.Apply.Name = "len"
		got, err := DecodeExprArgument(EncodeExprArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, arg.Apply.Inputs, got.Apply.Inputs)
		assert.Equal(t, "len", got.Apply.Name)
	})

	t.Run("agg", func(t *testing.T) {
		arg := &ExprArgument{Kind: ExprAgg}
		arg.Agg.Input = left
		arg.Agg.Method = label.AggMedian
		got, err := DecodeExprArgument(EncodeExprArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, label.AggMedian, got.Agg.Method)
	})
}

func TestExprArgument_Malformed(t *testing.T) {
	_, err := DecodeExprArgument([]byte{0xff, 0xff, 0xff})
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))

	_, err = DecodeExprArgument(nil)
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))
}

func TestUnaryOperator_Discharge(t *testing.T) {
	redact := UnaryOperator{Kind: UnaryRedact}
	assert.Equal(t, label.DischargeTransform, redact.Discharge().Kind)
	assert.Equal(t, label.OpRedact, redact.Discharge().Transform.Op)

	named := UnaryOperator{Kind: UnaryNamed, Name: "len"}
	d := named.Discharge()
	assert.Equal(t, label.OpNamed, d.Transform.Op)
	assert.Equal(t, "len", d.Transform.Name)

	noise := UnaryOperator{Kind: UnaryNoise, Noise: label.NoiseSpec{Epsilon: 1}}
	assert.Equal(t, label.DischargeNoise, noise.Discharge().Kind)
}

func TestPlanArgumentRoundTrip(t *testing.T) {
	frameID, predID := uuid.New(), uuid.New()

	t.Run("select with filter info", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanSelect}
		arg.Select.Pred = predID
		arg.TransformInfo = &TransformInfo{Kind: TransformFilter, Filter: []bool{true, false, true}}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, PlanSelect, got.Kind)
		assert.Equal(t, predID, got.Select.Pred)
		require.NotNil(t, got.TransformInfo)
		assert.Equal(t, []bool{true, false, true}, got.TransformInfo.Filter)
	})

	t.Run("aggregation with proxy", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanAggregation}
		arg.Aggregation.Keys = []uuid.UUID{predID}
		arg.Aggregation.Aggs = []uuid.UUID{frameID}
		arg.Aggregation.MaintainOrder = true
		arg.Aggregation.OutputSchema = []string{"key", "mean_age"}
		arg.Aggregation.Proxy = &GroupByProxy{
			Kind: GroupByIdx,
			Groups: []GroupEntry{
				{First: 0, Members: []uint64{0, 1, 2}},
				{First: 3, Members: []uint64{3, 4}, Hash: 7},
			},
		}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, arg.Aggregation.Keys, got.Aggregation.Keys)
		assert.Equal(t, arg.Aggregation.OutputSchema, got.Aggregation.OutputSchema)
		require.NotNil(t, got.Aggregation.Proxy)
		assert.Equal(t, arg.Aggregation.Proxy.Groups, got.Aggregation.Proxy.Groups)
		assert.True(t, got.Aggregation.MaintainOrder)
	})

	t.Run("join with row topology", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanJoin}
		arg.Join.Lhs, arg.Join.Rhs = frameID, predID
		arg.Join.Type = JoinInner
		arg.Join.LeftKeys = []uint64{0}
		arg.Join.RightKeys = []uint64{1}
		arg.TransformInfo = &TransformInfo{Kind: TransformJoin, Join: &JoinInformation{
			Lhs:          frameID,
			Rhs:          predID,
			Rows:         []RowJoin{{Left: 0, Right: 2}, {Left: 1, Right: 0}},
			LeftColumns:  []uint64{0, 1},
			RightColumns: []uint64{0},
			Renames:      []Rename{{From: "id", To: "id_right"}},
		}}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, arg.Join, got.Join)
		require.NotNil(t, got.TransformInfo.Join)
		assert.Equal(t, arg.TransformInfo.Join, got.TransformInfo.Join)
	})

	t.Run("reorder", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanReorder}
		arg.Reorder.Perm = []uint64{2, 0, 1}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, []uint64{2, 0, 1}, got.Reorder.Perm)
	})

	t.Run("union", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanUnion}
		arg.Union.Frames = []uuid.UUID{frameID, predID}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, arg.Union.Frames, got.Union.Frames)
	})

	t.Run("scan", func(t *testing.T) {
		arg := &PlanArgument{Kind: PlanScan}
		arg.Scan.Frame = frameID
		arg.Scan.Projection = []uint64{0, 2}
		got, err := DecodePlanArgument(EncodePlanArgument(arg))
		require.NoError(t, err)
		assert.Equal(t, frameID, got.Scan.Frame)
		assert.Equal(t, []uint64{0, 2}, got.Scan.Projection)
		assert.False(t, got.Scan.HasSel)
	})
}

func TestGroupByProxyRoundTrip(t *testing.T) {
	chunk := uuid.New()
	tests := []*GroupByProxy{
		{Kind: UngroupedGroupBy},
		{Kind: GroupBySlice, Runs: []SliceRun{{Offset: 0, Length: 10}, {Offset: 10, Length: 5}}},
		{Kind: GroupByIdxMultiple, Chunks: []GroupChunk{
			{Frame: chunk, Groups: []GroupEntry{{First: 0, Members: []uint64{0, 1}, Hash: 11}}},
		}},
	}
	for _, proxy := range tests {
		got, err := DecodeGroupByProxy(EncodeGroupByProxy(proxy))
		require.NoError(t, err)
		assert.Equal(t, proxy, got)
	}
}

func TestContextOptionsRoundTrip(t *testing.T) {
	opts := ContextOptions{EnableTracing: true, EnableProfiling: true}
	got, err := DecodeContextOptions(EncodeContextOptions(opts))
	require.NoError(t, err)
	assert.Equal(t, opts, got)
}

func TestPlanArgument_EmptyRejected(t *testing.T) {
	_, err := DecodePlanArgument(nil)
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))
}
