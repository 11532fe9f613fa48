package label

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustChain(t *testing.T, steps ...Step) *Chain {
	t.Helper()
	c, err := New(steps...)
	require.NoError(t, err)
	return c
}

func redactHigh(t *testing.T) *Chain {
	return mustChain(t, Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}})
}

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		steps   []Step
		wantErr bool
	}{
		{
			name:  "empty is bottom",
			steps: nil,
		},
		{
			name:  "single step above low",
			steps: []Step{{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}}},
		},
		{
			name: "descending two steps",
			steps: []Step{
				{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
				{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggMean, 5)}},
			},
		},
		{
			name: "non-descending rejected",
			steps: []Step{
				{Level: Anonymized, Discharges: []Discharge{NewTransform(OpRedact)}},
				{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
			},
			wantErr: true,
		},
		{
			name: "equal levels rejected",
			steps: []Step{
				{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
				{Level: High, Discharges: []Discharge{NewTransform(OpNot)}},
			},
			wantErr: true,
		},
		{
			name:    "step without discharges rejected",
			steps:   []Step{{Level: High}},
			wantErr: true,
		},
		{
			name:    "bottom step with discharges rejected",
			steps:   []Step{{Level: Low, Discharges: []Discharge{NewTransform(OpRedact)}}},
			wantErr: true,
		},
		{
			name: "bottom step not terminating rejected",
			steps: []Step{
				{Level: Low},
				{Level: Low},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.steps...)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			// Every valid chain terminates at (Low, ∅).
			steps := c.Steps()
			last := steps[len(steps)-1]
			assert.Equal(t, Low, last.Level)
			assert.Empty(t, last.Discharges)
		})
	}
}

func TestCompose_Identity(t *testing.T) {
	c := redactHigh(t)
	assert.True(t, c.Compose(Bottom()).Equal(c))
	assert.True(t, Bottom().Compose(c).Equal(c))
	assert.True(t, Bottom().Compose(Bottom()).AtBottom())
}

func TestCompose_Commutative(t *testing.T) {
	a := mustChain(t,
		Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
		Step{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggMean, 10)}},
	)
	b := mustChain(t,
		Step{Level: Transformed, Discharges: []Discharge{NewTransform(OpNot)}},
	)
	assert.True(t, a.Compose(b).Equal(b.Compose(a)))
}

func TestCompose_Associative(t *testing.T) {
	a := mustChain(t, Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}})
	b := mustChain(t, Step{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggSum, 3)}})
	c := mustChain(t,
		Step{Level: High, Discharges: []Discharge{NewNamedTransform("len", "")}},
		Step{Level: Named, Discharges: []Discharge{NewScheme(SchemeKAnonymity, 5)}},
	)
	left := a.Compose(b).Compose(c)
	right := a.Compose(b.Compose(c))
	assert.True(t, left.Equal(right), "got %s vs %s", left, right)
}

func TestCompose_EqualHeadsIntersectDischarges(t *testing.T) {
	a := mustChain(t, Step{Level: High, Discharges: []Discharge{
		NewTransform(OpRedact),
		NewNamedTransform("len", ""),
	}})
	b := mustChain(t, Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}})

	merged := a.Compose(b)
	head := merged.Head()
	assert.Equal(t, High, head.Level)
	// Only the operation both sides permitted survives.
	require.Len(t, head.Discharges, 1)
	assert.Equal(t, OpRedact, head.Discharges[0].Transform.Op)

	// The shared operation releases the merged step.
	after, discharged := merged.Downgrade(NewTransform(OpRedact))
	assert.True(t, discharged)
	assert.True(t, after.AtBottom())

	// Disjoint sets intersect to nothing: the merged step is unreleasable.
	c := mustChain(t, Step{Level: High, Discharges: []Discharge{NewNamedTransform("hash", "")}})
	stuck := b.Compose(c)
	assert.Empty(t, stuck.Head().Discharges)
	_, discharged = stuck.Downgrade(NewTransform(OpRedact))
	assert.False(t, discharged)
}

func TestCompose_InterleavesLevels(t *testing.T) {
	a := mustChain(t,
		Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
		Step{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggMean, 2)}},
	)
	b := mustChain(t, Step{Level: Transformed, Discharges: []Discharge{NewTransform(OpNot)}})

	merged := a.Compose(b)
	var levels []Level
	for _, s := range merged.Steps() {
		levels = append(levels, s.Level)
	}
	assert.Equal(t, []Level{High, Transformed, Anonymized, Low}, levels)
}

func TestDowngrade_AnyPermittedDischargeReleasesStep(t *testing.T) {
	c := mustChain(t, Step{Level: High, Discharges: []Discharge{
		NewNamedTransform("len", ""),
		NewTransform(OpRedact),
	}})

	out, discharged := c.Downgrade(NewNamedTransform("len", ""))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())

	out, discharged = c.Downgrade(NewTransform(OpRedact))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())
}

func TestDowngrade_RedactReleasesStep(t *testing.T) {
	c := redactHigh(t)
	out, discharged := c.Downgrade(NewTransform(OpRedact))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())
}

func TestDowngrade_UnrelatedOperatorLeavesChainIntact(t *testing.T) {
	c := redactHigh(t)
	out, discharged := c.Downgrade(NewNamedTransform("len", ""))
	assert.False(t, discharged)
	assert.True(t, out.Equal(c))
}

func TestDowngrade_NeverRaises(t *testing.T) {
	out, discharged := Bottom().Downgrade(NewTransform(OpRedact))
	assert.False(t, discharged)
	assert.True(t, out.AtBottom())
}

func TestDowngrade_AggregateGroupSize(t *testing.T) {
	c := mustChain(t, Step{Level: High, Discharges: []Discharge{NewAggregate(AggMean, 20)}})

	// Too small a group leaves the obligation.
	out, discharged := c.Downgrade(NewAggregate(AggMean, 10))
	assert.False(t, discharged)
	assert.False(t, out.AtBottom())

	// Wrong method leaves the obligation even with a big group.
	out, discharged = c.Downgrade(NewAggregate(AggSum, 30))
	assert.False(t, discharged)
	assert.False(t, out.AtBottom())

	// Method and size both match.
	out, discharged = c.Downgrade(NewAggregate(AggMean, 30))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())
}

func TestDowngrade_NoiseBudget(t *testing.T) {
	c := mustChain(t, Step{Level: Anonymized, Discharges: []Discharge{NewNoise(1.0, 1e-6, "laplace")}})

	out, discharged := c.Downgrade(NewNoise(0.5, 1e-7, "laplace"))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())

	// Spending more than the budget does not discharge.
	_, discharged = c.Downgrade(NewNoise(2.0, 1e-6, "laplace"))
	assert.False(t, discharged)

	// A different mechanism does not discharge.
	_, discharged = c.Downgrade(NewNoise(0.5, 1e-7, "gaussian"))
	assert.False(t, discharged)
}

func TestDowngrade_KAnonymityViaAggregation(t *testing.T) {
	c := mustChain(t, Step{Level: Named, Discharges: []Discharge{NewScheme(SchemeKAnonymity, 5)}})

	out, discharged := c.Downgrade(NewAggregate(AggLen, 7))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())

	_, discharged = c.Downgrade(NewAggregate(AggLen, 3))
	assert.False(t, discharged)

	// l-diversity is not certifiable from a group size.
	l := mustChain(t, Step{Level: Named, Discharges: []Discharge{NewScheme(SchemeLDiversity, 2)}})
	_, discharged = l.Downgrade(NewAggregate(AggLen, 100))
	assert.False(t, discharged)
}

func TestDowngrade_ParameterizedTransform(t *testing.T) {
	c := mustChain(t, Step{Level: High, Discharges: []Discharge{NewNamedTransform("+", "5")}})

	_, discharged := c.Downgrade(NewNamedTransform("+", "7"))
	assert.False(t, discharged)

	out, discharged := c.Downgrade(NewNamedTransform("+", "5"))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())

	// A requirement without a parameter accepts any operand.
	anyParam := mustChain(t, Step{Level: High, Discharges: []Discharge{NewNamedTransform("+", "")}})
	out, discharged = anyParam.Downgrade(NewNamedTransform("+", "42"))
	assert.True(t, discharged)
	assert.True(t, out.AtBottom())
}

func TestDowngrade_OnlyDescends(t *testing.T) {
	c := mustChain(t,
		Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
		Step{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggMean, 2)}},
	)
	before := c.Len()
	out, _ := c.Downgrade(NewTransform(OpRedact))
	assert.LessOrEqual(t, out.Len(), before)
	assert.Equal(t, Anonymized, out.Head().Level)
}

func TestChain_String(t *testing.T) {
	c := redactHigh(t)
	assert.Equal(t, "H{transform:redact} > L", c.String())
	assert.Equal(t, "L", Bottom().String())
}

func TestLevel_JoinMeet(t *testing.T) {
	assert.Equal(t, High, Low.Join(High))
	assert.Equal(t, Low, Low.Meet(High))
	assert.True(t, Named.FlowsTo(Anonymized))
	assert.False(t, Transformed.FlowsTo(Named))
}
