package label

import (
	"fmt"
	"strings"
)

// DischargeKind tags the variant of a Discharge.
type DischargeKind uint8

const (
	// DischargeTransform is a row-wise rewrite obligation.
	DischargeTransform DischargeKind = iota
	// DischargeAggregate is an aggregation obligation with a minimum group size.
	DischargeAggregate
	// DischargeNoise is a differential-privacy budget obligation.
	DischargeNoise
	// DischargeScheme is a privacy-scheme constraint obligation.
	DischargeScheme
)

// TransformOp identifies a transform operator.
type TransformOp uint8

const (
	// OpIdentity passes the value through unchanged.
	OpIdentity TransformOp = iota
	// OpRedact hides part or all of the value.
	OpRedact
	// OpSubstitute replaces the value with a surrogate.
	OpSubstitute
	// OpNot negates a boolean value.
	OpNot
	// OpNamed is an application identified by name (a UDF or builtin such as
	// "length").
	OpNamed
)

// String returns the operator's wire name.
func (op TransformOp) String() string {
	switch op {
	case OpIdentity:
		return "identity"
	case OpRedact:
		return "redact"
	case OpSubstitute:
		return "substitute"
	case OpNot:
		return "not"
	case OpNamed:
		return "named"
	default:
		return fmt.Sprintf("TransformOp(%d)", uint8(op))
	}
}

// AggMethod identifies an aggregation method.
type AggMethod uint8

const (
	AggMin AggMethod = iota
	AggMax
	AggMean
	AggMedian
	AggFirst
	AggLast
	AggSum
	AggLen
	AggNaNMin
	AggNaNMax
)

// String returns the method's wire name.
func (m AggMethod) String() string {
	switch m {
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggMean:
		return "mean"
	case AggMedian:
		return "median"
	case AggFirst:
		return "first"
	case AggLast:
		return "last"
	case AggSum:
		return "sum"
	case AggLen:
		return "len"
	case AggNaNMin:
		return "nanmin"
	case AggNaNMax:
		return "nanmax"
	default:
		return fmt.Sprintf("AggMethod(%d)", uint8(m))
	}
}

// SchemeKind identifies a privacy scheme.
type SchemeKind uint8

const (
	// SchemeKAnonymity requires every released group to contain at least K
	// indistinguishable subjects.
	SchemeKAnonymity SchemeKind = iota
	// SchemeLDiversity requires at least K distinct sensitive values per group.
	SchemeLDiversity
	// SchemeTCloseness bounds the distance between group and global
	// distributions by K.
	SchemeTCloseness
)

// String returns the scheme's wire name.
func (s SchemeKind) String() string {
	switch s {
	case SchemeKAnonymity:
		return "k-anonymity"
	case SchemeLDiversity:
		return "l-diversity"
	case SchemeTCloseness:
		return "t-closeness"
	default:
		return fmt.Sprintf("SchemeKind(%d)", uint8(s))
	}
}

// TransformSpec describes a transform obligation or a performed transform.
// Param is the canonical rendering of the operator parameter ("" when the
// operator takes none, or when a required transform accepts any parameter).
type TransformSpec struct {
	Op    TransformOp
	Name  string
	Param string
}

// AggregateSpec describes an aggregation obligation (Size is the required
// minimum) or a performed aggregation (Size is the actual group size).
type AggregateSpec struct {
	Method AggMethod
	Size   int
}

// NoiseSpec describes a noise obligation (the available budget) or a
// performed mechanism invocation (the spent budget).
type NoiseSpec struct {
	Epsilon   float64
	Delta     float64
	Mechanism string
}

// SchemeSpec describes a privacy-scheme obligation, or a scheme the host
// announces as enforced.
type SchemeSpec struct {
	Kind SchemeKind
	K    float64
}

// Discharge is one obligation attached to a chain step, or one operation
// performed by the host. Exactly the field group selected by Kind is valid.
type Discharge struct {
	Kind DischargeKind

	Transform TransformSpec
	Aggregate AggregateSpec
	Noise     NoiseSpec
	Scheme    SchemeSpec
}

// NewTransform returns a transform discharge for a builtin operator.
func NewTransform(op TransformOp) Discharge {
	return Discharge{Kind: DischargeTransform, Transform: TransformSpec{Op: op}}
}

// NewNamedTransform returns a transform discharge for a named application.
func NewNamedTransform(name, param string) Discharge {
	return Discharge{Kind: DischargeTransform, Transform: TransformSpec{Op: OpNamed, Name: name, Param: param}}
}

// NewAggregate returns an aggregation discharge.
func NewAggregate(method AggMethod, size int) Discharge {
	return Discharge{Kind: DischargeAggregate, Aggregate: AggregateSpec{Method: method, Size: size}}
}

// NewNoise returns a noise discharge.
func NewNoise(epsilon, delta float64, mechanism string) Discharge {
	return Discharge{Kind: DischargeNoise, Noise: NoiseSpec{Epsilon: epsilon, Delta: delta, Mechanism: mechanism}}
}

// NewScheme returns a privacy-scheme discharge.
func NewScheme(kind SchemeKind, k float64) Discharge {
	return Discharge{Kind: DischargeScheme, Scheme: SchemeSpec{Kind: kind, K: k}}
}

// key is the canonical identity of a required discharge within a step's set.
func (d Discharge) key() string {
	switch d.Kind {
	case DischargeTransform:
		return fmt.Sprintf("t:%s:%s:%s", d.Transform.Op, d.Transform.Name, d.Transform.Param)
	case DischargeAggregate:
		return fmt.Sprintf("a:%s:%d", d.Aggregate.Method, d.Aggregate.Size)
	case DischargeNoise:
		return fmt.Sprintf("n:%s:%g:%g", d.Noise.Mechanism, d.Noise.Epsilon, d.Noise.Delta)
	case DischargeScheme:
		return fmt.Sprintf("s:%s:%g", d.Scheme.Kind, d.Scheme.K)
	default:
		return fmt.Sprintf("?:%d", d.Kind)
	}
}

// SatisfiedBy reports whether the performed operation satisfies this
// required discharge.
//
// A transform requirement matches on operator (and name for named
// applications); a parameterized requirement additionally pins the operand.
// An aggregation requirement matches on method and requires the actual group
// size to reach the minimum. A noise requirement is satisfied by a mechanism
// invocation whose spent budget stays within the available budget. A
// k-anonymity requirement is satisfied either by a host-announced scheme of
// the same kind with k' ≥ k, or by an aggregation whose group size reaches k;
// l-diversity and t-closeness cannot be verified from group sizes and accept
// only host-announced schemes.
func (d Discharge) SatisfiedBy(performed Discharge) bool {
	switch d.Kind {
	case DischargeTransform:
		if performed.Kind != DischargeTransform {
			return false
		}
		req, got := d.Transform, performed.Transform
		if req.Op != got.Op {
			return false
		}
		if req.Op == OpNamed && req.Name != got.Name {
			return false
		}
		return req.Param == "" || req.Param == got.Param
	case DischargeAggregate:
		if performed.Kind != DischargeAggregate {
			return false
		}
		return d.Aggregate.Method == performed.Aggregate.Method &&
			performed.Aggregate.Size >= d.Aggregate.Size
	case DischargeNoise:
		if performed.Kind != DischargeNoise {
			return false
		}
		req, got := d.Noise, performed.Noise
		if req.Mechanism != "" && req.Mechanism != got.Mechanism {
			return false
		}
		return got.Epsilon <= req.Epsilon && got.Delta <= req.Delta
	case DischargeScheme:
		if performed.Kind == DischargeScheme {
			return d.Scheme.Kind == performed.Scheme.Kind && performed.Scheme.K >= d.Scheme.K
		}
		if d.Scheme.Kind == SchemeKAnonymity && performed.Kind == DischargeAggregate {
			return float64(performed.Aggregate.Size) >= d.Scheme.K
		}
		return false
	default:
		return false
	}
}

// String renders the discharge for diagnostics.
func (d Discharge) String() string {
	switch d.Kind {
	case DischargeTransform:
		var b strings.Builder
		b.WriteString("transform:")
		if d.Transform.Op == OpNamed {
			b.WriteString(d.Transform.Name)
		} else {
			b.WriteString(d.Transform.Op.String())
		}
		if d.Transform.Param != "" {
			fmt.Fprintf(&b, "(%s)", d.Transform.Param)
		}
		return b.String()
	case DischargeAggregate:
		return fmt.Sprintf("aggregate:%s(min=%d)", d.Aggregate.Method, d.Aggregate.Size)
	case DischargeNoise:
		return fmt.Sprintf("noise:%s(eps=%g,delta=%g)", d.Noise.Mechanism, d.Noise.Epsilon, d.Noise.Delta)
	case DischargeScheme:
		return fmt.Sprintf("scheme:%s(%g)", d.Scheme.Kind, d.Scheme.K)
	default:
		return "discharge:unknown"
	}
}
