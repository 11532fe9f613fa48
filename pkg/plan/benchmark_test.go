package plan

import (
	"testing"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/expr"
	"mercator-hq/cellguard/pkg/frame"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/message"
)

// Benchmark_ProjectionPropagation benchmarks per-row label transfer over a
// 100k-row guarded column
func Benchmark_ProjectionPropagation(b *testing.B) {
	env := newEnv()
	chain, _ := label.New(label.Step{Level: label.High, Discharges: []label.Discharge{
		label.NewTransform(label.OpRedact),
	}})
	labels := make([]*label.Chain, 100_000)
	for i := range labels {
		labels[i] = chain
	}
	f, _ := frame.New([]frame.Column{{Name: "zip", Labels: labels}})
	id := env.Frames.Insert(f)
	colID := env.Exprs.Insert(&expr.Expr{Kind: expr.KindColumn, Column: expr.ColumnIdent{Name: "zip"}})

	arg := &message.PlanArgument{Kind: message.PlanProjection}
	arg.Projection.Expressions = []uuid.UUID{colID}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Execute(env, arg, id); err != nil {
			b.Fatal(err)
		}
	}
}

// Benchmark_AggregationPropagation benchmarks group folding over 1k groups
func Benchmark_AggregationPropagation(b *testing.B) {
	env := newEnv()
	chain, _ := label.New(label.Step{Level: label.High, Discharges: []label.Discharge{
		label.NewAggregate(label.AggMean, 10),
	}})
	labels := make([]*label.Chain, 100_000)
	for i := range labels {
		labels[i] = chain
	}
	f, _ := frame.New([]frame.Column{{Name: "age", Labels: labels}})
	id := env.Frames.Insert(f)
	colID := env.Exprs.Insert(&expr.Expr{Kind: expr.KindColumn, Column: expr.ColumnIdent{Name: "age"}})
	aggID := env.Exprs.Insert(&expr.Expr{Kind: expr.KindAgg, Child: colID, AggMethod: label.AggMean})

	runs := make([]message.SliceRun, 1000)
	for i := range runs {
		runs[i] = message.SliceRun{Offset: uint64(i * 100), Length: 100}
	}
	arg := &message.PlanArgument{Kind: message.PlanAggregation}
	arg.Aggregation.Aggs = []uuid.UUID{aggID}
	arg.Aggregation.Proxy = &message.GroupByProxy{Kind: message.GroupBySlice, Runs: runs}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Execute(env, arg, id); err != nil {
			b.Fatal(err)
		}
	}
}
