package monitor

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
)

// policyFramePayload builds the registration payload: one binary column per
// entry, each cell an encoded chain.
func policyFramePayload(t *testing.T, names []string, cells map[string][]*label.Chain) []byte {
	t.Helper()
	alloc := memory.DefaultAllocator

	fields := make([]arrow.Field, len(names))
	cols := make([]arrow.Array, len(names))
	rows := 0
	for i, name := range names {
		fields[i] = arrow.Field{Name: name, Type: arrow.BinaryTypes.Binary, Nullable: true}
		b := array.NewBinaryBuilder(alloc, arrow.BinaryTypes.Binary)
		for _, chain := range cells[name] {
			b.Append(message.EncodePolicyChain(chain))
		}
		cols[i] = b.NewArray()
		rows = len(cells[name])
	}
	schema := arrow.NewSchema(fields, nil)
	rec := array.NewRecord(schema, cols, int64(rows))
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestRegisterPolicyFrame_ArrowPayload(t *testing.T) {
	ctx := openContext(t, testMonitor(t))

	guarded := redactChain(t)
	payload := policyFramePayload(t, []string{"zip", "age"}, map[string][]*label.Chain{
		"zip": {guarded, guarded},
		"age": {label.Bottom(), label.Bottom()},
	})

	frameID, err := ctx.RegisterPolicyFrame(payload)
	require.NoError(t, err)

	f, err := ctx.Frame(frameID)
	require.NoError(t, err)
	assert.Equal(t, []string{"zip", "age"}, f.Names())
	assert.Equal(t, 2, f.Rows())
	assert.False(t, f.Label(0, 0).AtBottom())
	assert.True(t, f.Label(1, 0).AtBottom())
}

func TestRegisterPolicyFrame_RejectsGarbage(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	_, err := ctx.RegisterPolicyFrame([]byte("definitely not arrow"))
	assert.Equal(t, errcode.SerializeError, errcode.CodeOf(err))
}

// intColumn encodes a single int64 column as an IPC payload for reify.
func intColumn(t *testing.T, name string, vals []int64) []byte {
	t.Helper()
	b := array.NewInt64Builder(memory.DefaultAllocator)
	b.AppendValues(vals, nil)
	arr := b.NewArray()
	defer arr.Release()

	schema := arrow.NewSchema([]arrow.Field{{Name: name, Type: arrow.PrimitiveTypes.Int64}}, nil)
	rec := array.NewRecord(schema, []arrow.Array{arr}, int64(len(vals)))
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func boolColumn(t *testing.T, name string, vals []bool) []byte {
	t.Helper()
	b := array.NewBooleanBuilder(memory.DefaultAllocator)
	b.AppendValues(vals, nil)
	arr := b.NewArray()
	defer arr.Release()

	schema := arrow.NewSchema([]arrow.Field{{Name: name, Type: arrow.FixedWidthTypes.Boolean}}, nil)
	rec := array.NewRecord(schema, []arrow.Array{arr}, int64(len(vals)))
	defer rec.Release()

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(schema))
	require.NoError(t, w.Write(rec))
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestReifyExpression_ValidatesRowCount(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	registerUniform(t, ctx, "zip", redactChain(t), 3)

	zip := columnExpr(t, ctx, "zip")
	tern := &message.ExprArgument{Kind: message.ExprTernary}
	tern.Ternary.Cond = zip
	tern.Ternary.Then = zip
	tern.Ternary.Else = zip
	ternID := buildExpr(t, ctx, tern)

	// Two condition values against a three-row active frame.
	err := ctx.ReifyExpression(ternID, boolColumn(t, "cond", []bool{true, false}))
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))

	require.NoError(t, ctx.ReifyExpression(ternID, boolColumn(t, "cond", []bool{true, false, true})))
}

func TestReifyExpression_ColumnBecomesPositional(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	frameID := registerUniform(t, ctx, "zip", redactChain(t), 2)

	zipID := columnExpr(t, ctx, "zip")
	require.NoError(t, ctx.ReifyExpression(zipID, intColumn(t, "idx", []int64{0})))

	// The positional reference still resolves after projection renames.
	out, err := ctx.ExecuteEpilogue(projectionOf(zipID), frameID)
	require.NoError(t, err)
	f, err := ctx.Frame(out)
	require.NoError(t, err)
	assert.False(t, f.Label(0, 0).AtBottom())
}

func TestReifyExpression_NoReifyNeededIsNoop(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	lit := buildExpr(t, ctx, &message.ExprArgument{Kind: message.ExprLiteral})
	assert.NoError(t, ctx.ReifyExpression(lit, nil))
}

func TestRegisterPolicyFrameFromRowGroup_MissingFile(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	_, err := ctx.RegisterPolicyFrameFromRowGroup("/does/not/exist.parquet", 0, nil, nil)
	assert.Equal(t, errcode.FileNotFound, errcode.CodeOf(err))
}

func TestInstantiateFrame_UnknownPolicy(t *testing.T) {
	ctx := openContext(t, testMonitor(t))
	_, err := ctx.InstantiateFrame(uuid.New(), 3)
	assert.Equal(t, errcode.NoEntry, errcode.CodeOf(err))
}
