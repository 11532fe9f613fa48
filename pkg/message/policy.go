package message

import (
	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
)

// DecodePolicyChain decodes a PolicyChain message into a validated chain.
// An empty payload is the bottom chain.
func DecodePolicyChain(b []byte) (*label.Chain, error) {
	var steps []label.Step
	err := scan(b, func(f field) error {
		if f.num != 1 || f.typ != protowire.BytesType {
			return nil
		}
		step, err := decodePolicyStep(f.bytes)
		if err != nil {
			return err
		}
		steps = append(steps, step)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return label.New(steps...)
}

func decodePolicyStep(b []byte) (label.Step, error) {
	var step label.Step
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			if f.varint > uint64(label.High) {
				return errcode.New(errcode.SerializeError, "unknown lattice level %d", f.varint)
			}
			step.Level = label.Level(f.varint)
		case 2:
			d, err := decodeDischarge(f.bytes)
			if err != nil {
				return err
			}
			step.Discharges = append(step.Discharges, d)
		}
		return nil
	})
	return step, err
}

func decodeDischarge(b []byte) (label.Discharge, error) {
	var (
		d   label.Discharge
		set bool
	)
	err := scan(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		var err error
		switch f.num {
		case 1:
			d, err = decodeTransformSpec(f.bytes)
		case 2:
			d, err = decodeAggregateSpec(f.bytes)
		case 3:
			var spec label.NoiseSpec
			spec, err = decodeNoiseSpec(f.bytes)
			d = label.Discharge{Kind: label.DischargeNoise, Noise: spec}
		case 4:
			d, err = decodeSchemeSpec(f.bytes)
		default:
			return nil
		}
		set = err == nil
		return err
	})
	if err != nil {
		return d, err
	}
	if !set {
		return d, errcode.New(errcode.SerializeError, "discharge message carries no variant")
	}
	return d, nil
}

func decodeTransformSpec(b []byte) (label.Discharge, error) {
	spec := label.TransformSpec{}
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			if f.varint > uint64(label.OpNamed) {
				return errcode.New(errcode.SerializeError, "unknown transform operator %d", f.varint)
			}
			spec.Op = label.TransformOp(f.varint)
		case 2:
			spec.Name = f.str()
		case 3:
			spec.Param = f.str()
		}
		return nil
	})
	return label.Discharge{Kind: label.DischargeTransform, Transform: spec}, err
}

func decodeAggregateSpec(b []byte) (label.Discharge, error) {
	spec := label.AggregateSpec{}
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			if f.varint > uint64(label.AggNaNMax) {
				return errcode.New(errcode.SerializeError, "unknown aggregate method %d", f.varint)
			}
			spec.Method = label.AggMethod(f.varint)
		case 2:
			spec.Size = int(f.varint)
		}
		return nil
	})
	return label.Discharge{Kind: label.DischargeAggregate, Aggregate: spec}, err
}

func decodeNoiseSpec(b []byte) (label.NoiseSpec, error) {
	spec := label.NoiseSpec{}
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			spec.Epsilon = f.double()
		case 2:
			spec.Delta = f.double()
		case 3:
			spec.Mechanism = f.str()
		}
		return nil
	})
	return spec, err
}

func decodeSchemeSpec(b []byte) (label.Discharge, error) {
	spec := label.SchemeSpec{}
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			if f.varint > uint64(label.SchemeTCloseness) {
				return errcode.New(errcode.SerializeError, "unknown privacy scheme %d", f.varint)
			}
			spec.Kind = label.SchemeKind(f.varint)
		case 2:
			spec.K = f.double()
		}
		return nil
	})
	return label.Discharge{Kind: label.DischargeScheme, Scheme: spec}, err
}

// EncodePolicyChain encodes a chain as a PolicyChain message. The terminal
// bottom step is carried explicitly so a decoded chain round-trips exactly.
func EncodePolicyChain(c *label.Chain) []byte {
	var b []byte
	for _, step := range c.Steps() {
		b = appendMessage(b, 1, encodePolicyStep(step))
	}
	return b
}

func encodePolicyStep(s label.Step) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(s.Level))
	for _, d := range s.Discharges {
		b = appendMessage(b, 2, encodeDischarge(d))
	}
	return b
}

func encodeDischarge(d label.Discharge) []byte {
	var b []byte
	switch d.Kind {
	case label.DischargeTransform:
		var body []byte
		body = appendVarint(body, 1, uint64(d.Transform.Op))
		body = appendString(body, 2, d.Transform.Name)
		body = appendString(body, 3, d.Transform.Param)
		b = appendMessage(b, 1, body)
	case label.DischargeAggregate:
		var body []byte
		body = appendVarint(body, 1, uint64(d.Aggregate.Method))
		body = appendVarint(body, 2, uint64(d.Aggregate.Size))
		b = appendMessage(b, 2, body)
	case label.DischargeNoise:
		b = appendMessage(b, 3, encodeNoiseSpec(d.Noise))
	case label.DischargeScheme:
		var body []byte
		body = appendVarint(body, 1, uint64(d.Scheme.Kind))
		body = appendDouble(body, 2, d.Scheme.K)
		b = appendMessage(b, 4, body)
	}
	return b
}

func encodeNoiseSpec(spec label.NoiseSpec) []byte {
	var b []byte
	b = appendDouble(b, 1, spec.Epsilon)
	b = appendDouble(b, 2, spec.Delta)
	b = appendString(b, 3, spec.Mechanism)
	return b
}
