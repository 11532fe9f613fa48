package monitor

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
)

// The JSON policy format mirrors the chain structure for tooling and tests:
//
//	{
//	  "rows": 3,
//	  "columns": [
//	    {"name": "zip", "chain": [
//	      {"level": "H", "discharges": [{"transform": {"op": "redact"}}]}
//	    ]}
//	  ]
//	}
//
// A missing or empty chain is the bottom chain.

type jsonPolicyFile struct {
	Rows    int             `json:"rows"`
	Columns []jsonPolicyCol `json:"columns"`
}

type jsonPolicyCol struct {
	Name  string     `json:"name"`
	Chain []jsonStep `json:"chain"`
}

type jsonStep struct {
	Level      string          `json:"level"`
	Discharges []jsonDischarge `json:"discharges,omitempty"`
}

type jsonDischarge struct {
	Transform *jsonTransform `json:"transform,omitempty"`
	Aggregate *jsonAggregate `json:"aggregate,omitempty"`
	Noise     *jsonNoise     `json:"noise,omitempty"`
	Scheme    *jsonScheme    `json:"scheme,omitempty"`
}

type jsonTransform struct {
	Op    string `json:"op"`
	Name  string `json:"name,omitempty"`
	Param string `json:"param,omitempty"`
}

type jsonAggregate struct {
	Method  string `json:"method"`
	MinSize int    `json:"min_size"`
}

type jsonNoise struct {
	Epsilon   float64 `json:"epsilon"`
	Delta     float64 `json:"delta"`
	Mechanism string  `json:"mechanism,omitempty"`
}

type jsonScheme struct {
	Kind string  `json:"kind"`
	K    float64 `json:"k"`
}

// RegisterPolicyFrameJSON reads a JSON policy file and registers the
// instantiated frame.
func (c *Context) RegisterPolicyFrameJSON(path string) (uuid.UUID, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return uuid.Nil, errcode.Wrap(errcode.FileNotFound, err, "policy file %q", path)
		}
		return uuid.Nil, errcode.Wrap(errcode.InvalidOperation, err, "reading policy file %q", path)
	}
	var file jsonPolicyFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return uuid.Nil, errcode.Wrap(errcode.SerializeError, err, "parsing policy file %q", path)
	}

	policy := &Policy{Columns: make([]PolicyColumn, len(file.Columns))}
	for i, col := range file.Columns {
		chain, err := chainFromJSON(col.Chain)
		if err != nil {
			return uuid.Nil, err
		}
		policy.Columns[i] = PolicyColumn{Name: col.Name, Chain: chain}
	}
	policyID, err := c.RegisterPolicy(policy)
	if err != nil {
		return uuid.Nil, err
	}
	return c.InstantiateFrame(policyID, file.Rows)
}

func chainFromJSON(steps []jsonStep) (*label.Chain, error) {
	if len(steps) == 0 {
		return label.Bottom(), nil
	}
	out := make([]label.Step, len(steps))
	for i, s := range steps {
		level, err := levelFromJSON(s.Level)
		if err != nil {
			return nil, err
		}
		ds := make([]label.Discharge, 0, len(s.Discharges))
		for _, d := range s.Discharges {
			disc, err := dischargeFromJSON(d)
			if err != nil {
				return nil, err
			}
			ds = append(ds, disc)
		}
		out[i] = label.Step{Level: level, Discharges: ds}
	}
	return label.New(out...)
}

func levelFromJSON(s string) (label.Level, error) {
	switch s {
	case "L", "low":
		return label.Low, nil
	case "N", "named":
		return label.Named, nil
	case "A", "anonymized":
		return label.Anonymized, nil
	case "T", "transformed":
		return label.Transformed, nil
	case "H", "high":
		return label.High, nil
	default:
		return 0, errcode.New(errcode.SerializeError, "unknown lattice level %q", s)
	}
}

func dischargeFromJSON(d jsonDischarge) (label.Discharge, error) {
	switch {
	case d.Transform != nil:
		switch d.Transform.Op {
		case "identity":
			return label.NewTransform(label.OpIdentity), nil
		case "redact":
			return label.NewTransform(label.OpRedact), nil
		case "substitute":
			return label.NewTransform(label.OpSubstitute), nil
		case "not":
			return label.NewTransform(label.OpNot), nil
		case "named":
			return label.NewNamedTransform(d.Transform.Name, d.Transform.Param), nil
		default:
			return label.Discharge{}, errcode.New(errcode.SerializeError, "unknown transform op %q", d.Transform.Op)
		}
	case d.Aggregate != nil:
		method, err := aggMethodFromJSON(d.Aggregate.Method)
		if err != nil {
			return label.Discharge{}, err
		}
		return label.NewAggregate(method, d.Aggregate.MinSize), nil
	case d.Noise != nil:
		return label.NewNoise(d.Noise.Epsilon, d.Noise.Delta, d.Noise.Mechanism), nil
	case d.Scheme != nil:
		switch d.Scheme.Kind {
		case "k-anonymity":
			return label.NewScheme(label.SchemeKAnonymity, d.Scheme.K), nil
		case "l-diversity":
			return label.NewScheme(label.SchemeLDiversity, d.Scheme.K), nil
		case "t-closeness":
			return label.NewScheme(label.SchemeTCloseness, d.Scheme.K), nil
		default:
			return label.Discharge{}, errcode.New(errcode.SerializeError, "unknown scheme kind %q", d.Scheme.Kind)
		}
	default:
		return label.Discharge{}, errcode.New(errcode.SerializeError, "discharge carries no variant")
	}
}

func aggMethodFromJSON(s string) (label.AggMethod, error) {
	for m := label.AggMin; m <= label.AggNaNMax; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, errcode.New(errcode.SerializeError, "unknown aggregate method %q", s)
}
