package label

import "testing"

// Benchmark_Compose benchmarks chain composition on typical two-step chains
func Benchmark_Compose(b *testing.B) {
	lhs, _ := New(
		Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}},
		Step{Level: Anonymized, Discharges: []Discharge{NewAggregate(AggMean, 20)}},
	)
	rhs, _ := New(Step{Level: Transformed, Discharges: []Discharge{NewNamedTransform("len", "")}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = lhs.Compose(rhs)
	}
}

// Benchmark_Downgrade benchmarks the discharge fast path
func Benchmark_Downgrade(b *testing.B) {
	c, _ := New(Step{Level: High, Discharges: []Discharge{NewTransform(OpRedact)}})
	performed := NewTransform(OpRedact)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = c.Downgrade(performed)
	}
}
