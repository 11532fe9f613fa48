package message

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
)

// PlanKind tags the variant of a PlanArgument.
type PlanKind uint8

const (
	PlanScan PlanKind = iota + 1
	PlanSelect
	PlanProjection
	PlanDistinct
	PlanAggregation
	PlanJoin
	PlanUnion
	PlanReorder
)

// String returns the plan kind's short name, used in metrics and profiles.
func (k PlanKind) String() string {
	switch k {
	case PlanScan:
		return "scan"
	case PlanSelect:
		return "select"
	case PlanProjection:
		return "projection"
	case PlanDistinct:
		return "distinct"
	case PlanAggregation:
		return "aggregation"
	case PlanJoin:
		return "join"
	case PlanUnion:
		return "union"
	case PlanReorder:
		return "reorder"
	default:
		return "unknown"
	}
}

// JoinType is the wire enumeration of join flavors.
type JoinType uint8

const (
	JoinInner JoinType = iota
	JoinLeft
	JoinRight
	JoinFull
)

// PlanArgument is the decoded form of the PlanArgument wire message.
type PlanArgument struct {
	Kind PlanKind

	Scan struct {
		Frame      uuid.UUID
		Projection []uint64
		Selection  uuid.UUID
		HasSel     bool
	}
	Select struct {
		Pred uuid.UUID
	}
	Projection struct {
		Expressions []uuid.UUID
	}
	Distinct struct {
		Subset []uint64
	}
	Aggregation struct {
		Keys          []uuid.UUID
		Aggs          []uuid.UUID
		MaintainOrder bool
		Proxy         *GroupByProxy
		OutputSchema  []string
	}
	Join struct {
		Lhs       uuid.UUID
		Rhs       uuid.UUID
		Type      JoinType
		LeftKeys  []uint64
		RightKeys []uint64
	}
	Union struct {
		Frames []uuid.UUID
	}
	Reorder struct {
		Perm []uint64
	}

	// TransformInfo is the optional row-restructuring descriptor attached to
	// the plan message.
	TransformInfo *TransformInfo
}

// DecodePlanArgument decodes a PlanArgument payload.
func DecodePlanArgument(b []byte) (*PlanArgument, error) {
	arg := &PlanArgument{}
	err := scan(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			arg.Kind = PlanScan
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Scan.Frame = id
				case 2:
					var err error
					arg.Scan.Projection, err = packedUint64s(g, arg.Scan.Projection)
					return err
				case 3:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Scan.Selection = id
					arg.Scan.HasSel = true
				}
				return nil
			})
		case 2:
			arg.Kind = PlanSelect
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				arg.Select.Pred = id
				return nil
			})
		case 3:
			arg.Kind = PlanProjection
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				arg.Projection.Expressions = append(arg.Projection.Expressions, id)
				return nil
			})
		case 4:
			arg.Kind = PlanDistinct
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				var err error
				arg.Distinct.Subset, err = packedUint64s(g, arg.Distinct.Subset)
				return err
			})
		case 5:
			arg.Kind = PlanAggregation
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Aggregation.Keys = append(arg.Aggregation.Keys, id)
				case 2:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Aggregation.Aggs = append(arg.Aggregation.Aggs, id)
				case 3:
					arg.Aggregation.MaintainOrder = g.bool()
				case 4:
					proxy, err := DecodeGroupByProxy(g.bytes)
					if err != nil {
						return err
					}
					arg.Aggregation.Proxy = proxy
				case 5:
					arg.Aggregation.OutputSchema = append(arg.Aggregation.OutputSchema, g.str())
				}
				return nil
			})
		case 6:
			arg.Kind = PlanJoin
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Join.Lhs = id
				case 2:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Join.Rhs = id
				case 3:
					if g.varint > uint64(JoinFull) {
						return errcode.New(errcode.SerializeError, "unknown join type %d", g.varint)
					}
					arg.Join.Type = JoinType(g.varint)
				case 4:
					var err error
					arg.Join.LeftKeys, err = packedUint64s(g, arg.Join.LeftKeys)
					return err
				case 5:
					var err error
					arg.Join.RightKeys, err = packedUint64s(g, arg.Join.RightKeys)
					return err
				}
				return nil
			})
		case 7:
			arg.Kind = PlanUnion
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				arg.Union.Frames = append(arg.Union.Frames, id)
				return nil
			})
		case 8:
			arg.Kind = PlanReorder
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				var err error
				arg.Reorder.Perm, err = packedUint64s(g, arg.Reorder.Perm)
				return err
			})
		case 15:
			ti, err := DecodeTransformInfo(f.bytes)
			if err != nil {
				return err
			}
			arg.TransformInfo = ti
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if arg.Kind == 0 {
		return nil, errcode.New(errcode.SerializeError, "plan argument carries no variant")
	}
	return arg, nil
}

// EncodePlanArgument encodes a PlanArgument payload.
func EncodePlanArgument(arg *PlanArgument) []byte {
	var out []byte
	switch arg.Kind {
	case PlanScan:
		var body []byte
		body = appendMessage(body, 1, UUIDToLE(arg.Scan.Frame))
		body = appendUint64s(body, 2, arg.Scan.Projection)
		if arg.Scan.HasSel {
			body = appendMessage(body, 3, UUIDToLE(arg.Scan.Selection))
		}
		out = appendMessage(out, 1, body)
	case PlanSelect:
		out = appendMessage(out, 2, appendMessage(nil, 1, UUIDToLE(arg.Select.Pred)))
	case PlanProjection:
		var body []byte
		for _, id := range arg.Projection.Expressions {
			body = appendMessage(body, 1, UUIDToLE(id))
		}
		out = appendMessage(out, 3, body)
	case PlanDistinct:
		out = appendMessage(out, 4, appendUint64s(nil, 1, arg.Distinct.Subset))
	case PlanAggregation:
		var body []byte
		for _, id := range arg.Aggregation.Keys {
			body = appendMessage(body, 1, UUIDToLE(id))
		}
		for _, id := range arg.Aggregation.Aggs {
			body = appendMessage(body, 2, UUIDToLE(id))
		}
		body = appendBool(body, 3, arg.Aggregation.MaintainOrder)
		if arg.Aggregation.Proxy != nil {
			body = appendMessage(body, 4, EncodeGroupByProxy(arg.Aggregation.Proxy))
		}
		for _, name := range arg.Aggregation.OutputSchema {
			body = appendString(body, 5, name)
		}
		out = appendMessage(out, 5, body)
	case PlanJoin:
		var body []byte
		body = appendMessage(body, 1, UUIDToLE(arg.Join.Lhs))
		body = appendMessage(body, 2, UUIDToLE(arg.Join.Rhs))
		body = appendVarint(body, 3, uint64(arg.Join.Type))
		body = appendUint64s(body, 4, arg.Join.LeftKeys)
		body = appendUint64s(body, 5, arg.Join.RightKeys)
		out = appendMessage(out, 6, body)
	case PlanUnion:
		var body []byte
		for _, id := range arg.Union.Frames {
			body = appendMessage(body, 1, UUIDToLE(id))
		}
		out = appendMessage(out, 7, body)
	case PlanReorder:
		out = appendMessage(out, 8, appendUint64s(nil, 1, arg.Reorder.Perm))
	}
	if arg.TransformInfo != nil {
		out = appendMessage(out, 15, EncodeTransformInfo(arg.TransformInfo))
	}
	return out
}
