package frame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
)

func chainOf(t *testing.T, steps ...label.Step) *label.Chain {
	t.Helper()
	c, err := label.New(steps...)
	require.NoError(t, err)
	return c
}

// testFrame builds a two-column frame where each cell of "a" carries a
// distinct parameterized chain so row movement is observable.
func testFrame(t *testing.T, rows int) *Frame {
	t.Helper()
	a := make([]*label.Chain, rows)
	b := make([]*label.Chain, rows)
	for i := range a {
		a[i] = chainOf(t, label.Step{Level: label.High, Discharges: []label.Discharge{
			label.NewNamedTransform("tag", string(rune('a'+i))),
		}})
		b[i] = label.Bottom()
	}
	f, err := New([]Column{{Name: "a", Labels: a}, {Name: "b", Labels: b}})
	require.NoError(t, err)
	return f
}

func TestNew_RowCountMismatch(t *testing.T) {
	_, err := New([]Column{
		{Name: "a", Labels: []*label.Chain{label.Bottom()}},
		{Name: "b", Labels: []*label.Chain{label.Bottom(), label.Bottom()}},
	})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestFilter(t *testing.T) {
	f := testFrame(t, 4)
	out, err := f.Filter([]bool{true, false, true, false})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Rows())
	assert.True(t, out.Label(0, 0).Equal(f.Label(0, 0)))
	assert.True(t, out.Label(0, 1).Equal(f.Label(0, 2)))

	_, err = f.Filter([]bool{true})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestReorder_InverseIsIdentity(t *testing.T) {
	f := testFrame(t, 5)
	perm := []uint64{3, 0, 4, 1, 2}
	inv := make([]uint64, len(perm))
	for i, p := range perm {
		inv[p] = uint64(i)
	}

	once, err := f.Reorder(perm)
	require.NoError(t, err)
	back, err := once.Reorder(inv)
	require.NoError(t, err)

	for r := 0; r < f.Rows(); r++ {
		assert.True(t, back.Label(0, r).Equal(f.Label(0, r)), "row %d", r)
	}
}

func TestReorder_RejectsNonBijection(t *testing.T) {
	f := testFrame(t, 3)
	_, err := f.Reorder([]uint64{0, 0, 1})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))

	_, err = f.Reorder([]uint64{0, 1, 5})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestUnionOfSlicesIsOriginal(t *testing.T) {
	f := testFrame(t, 6)
	head, err := f.Slice(0, 4)
	require.NoError(t, err)
	tail, err := f.Slice(4, 6)
	require.NoError(t, err)

	joined, err := Union([]*Frame{head, tail})
	require.NoError(t, err)
	require.Equal(t, f.Rows(), joined.Rows())
	for r := 0; r < f.Rows(); r++ {
		for c := 0; c < f.Width(); c++ {
			assert.True(t, joined.Label(c, r).Equal(f.Label(c, r)), "cell (%d, %d)", c, r)
		}
	}
}

func TestUnion_SchemaMismatchIsFatal(t *testing.T) {
	f := testFrame(t, 2)
	other, err := New([]Column{{Name: "x", Labels: []*label.Chain{label.Bottom(), label.Bottom()}}})
	require.NoError(t, err)

	_, err = Union([]*Frame{f, other})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestSlice_Bounds(t *testing.T) {
	f := testFrame(t, 3)
	_, err := f.Slice(2, 5)
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))

	empty, err := f.Slice(1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Rows())
	assert.Equal(t, 2, empty.Width())
}

func TestProject(t *testing.T) {
	f := testFrame(t, 2)
	out, err := f.Project([]int{1, 0})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, out.Names())

	_, err = f.Project([]int{7})
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestStitch(t *testing.T) {
	f := testFrame(t, 2)
	g, err := New([]Column{{Name: "c", Labels: []*label.Chain{label.Bottom(), label.Bottom()}}})
	require.NoError(t, err)

	out, err := Stitch(f, g)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, out.Names())

	short, err := New([]Column{{Name: "c", Labels: []*label.Chain{label.Bottom()}}})
	require.NoError(t, err)
	_, err = Stitch(f, short)
	assert.Equal(t, errcode.InvalidOperation, errcode.CodeOf(err))
}

func TestFinalize(t *testing.T) {
	clean, err := New([]Column{{Name: "a", Labels: []*label.Chain{label.Bottom()}}})
	require.NoError(t, err)
	assert.NoError(t, clean.Finalize())

	dirty := testFrame(t, 1)
	err = dirty.Finalize()
	require.Error(t, err)
	assert.Equal(t, errcode.PrivacyBreach, errcode.CodeOf(err))
	assert.Contains(t, err.Error(), `column "a" row 0`)
}

func TestEmptyFrameThroughOperators(t *testing.T) {
	f := Empty([]string{"a", "b"})
	assert.Equal(t, 0, f.Rows())

	filtered, err := f.Filter(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, filtered.Names())

	reordered, err := f.Reorder(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, reordered.Rows())

	assert.NoError(t, f.Finalize())
}

func TestRename(t *testing.T) {
	f := testFrame(t, 1)
	out := f.Rename(map[string]string{"b": "b_right"})
	assert.Equal(t, []string{"a", "b_right"}, out.Names())
	// Source frame is untouched.
	assert.Equal(t, []string{"a", "b"}, f.Names())
}
