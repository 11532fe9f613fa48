package message

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/label"
	"mercator-hq/cellguard/pkg/values"
)

// ExprKind tags the variant of an ExprArgument.
type ExprKind uint8

const (
	ExprColumn ExprKind = iota + 1
	ExprLiteral
	ExprWildcard
	ExprCount
	ExprAlias
	ExprUnary
	ExprBinary
	ExprTernary
	ExprFilter
	ExprAgg
	ExprApply
)

// ColumnRef names a column by schema name or reified positional index.
type ColumnRef struct {
	Name    string
	Index   int
	ByIndex bool
}

// UnaryOpKind is the wire enumeration of unary operators.
type UnaryOpKind uint8

const (
	UnaryIdentity UnaryOpKind = iota
	UnaryRedact
	UnarySubstitute
	UnaryNot
	UnaryNamed
	UnaryNoise
)

// UnaryOperator describes a unary transform, a named application, or a noise
// mechanism invocation.
type UnaryOperator struct {
	Kind     UnaryOpKind
	Name     string
	Param    values.Value
	HasParam bool
	Noise    label.NoiseSpec
}

// Discharge converts the operator into the performed discharge it announces.
func (op UnaryOperator) Discharge() label.Discharge {
	switch op.Kind {
	case UnaryNoise:
		return label.Discharge{Kind: label.DischargeNoise, Noise: op.Noise}
	case UnaryNamed:
		param := ""
		if op.HasParam {
			param = op.Param.Canonical()
		}
		return label.NewNamedTransform(op.Name, param)
	default:
		return label.NewTransform(label.TransformOp(op.Kind))
	}
}

// BinaryOperator is the wire enumeration of binary operators.
type BinaryOperator uint32

const (
	BinaryEq  BinaryOperator = 1
	BinaryNe  BinaryOperator = 2
	BinaryLt  BinaryOperator = 3
	BinaryLe  BinaryOperator = 4
	BinaryGt  BinaryOperator = 5
	BinaryGe  BinaryOperator = 6
	BinaryAnd BinaryOperator = 10
	BinaryOr  BinaryOperator = 11
	BinaryXor BinaryOperator = 12
	BinaryAdd BinaryOperator = 20
	BinarySub BinaryOperator = 21
	BinaryMul BinaryOperator = 22
	BinaryDiv BinaryOperator = 23
	BinaryMod BinaryOperator = 24
)

// IsComparison reports whether the operator compares its operands.
func (op BinaryOperator) IsComparison() bool {
	return op >= BinaryEq && op <= BinaryGe
}

// IsLogical reports whether the operator is a boolean connective.
func (op BinaryOperator) IsLogical() bool {
	return op >= BinaryAnd && op <= BinaryXor
}

// IsArithmetic reports whether the operator computes a new value.
func (op BinaryOperator) IsArithmetic() bool {
	return op >= BinaryAdd && op <= BinaryMod
}

// TransformName returns the arithmetic operator's transform identity.
func (op BinaryOperator) TransformName() string {
	switch op {
	case BinaryAdd:
		return "+"
	case BinarySub:
		return "-"
	case BinaryMul:
		return "*"
	case BinaryDiv:
		return "/"
	case BinaryMod:
		return "%"
	default:
		return ""
	}
}

// ExprArgument is the decoded form of the ExprArgument wire message.
// Exactly the field group selected by Kind is valid.
type ExprArgument struct {
	Kind ExprKind

	Column  ColumnRef
	Literal values.Value

	Alias struct {
		Input uuid.UUID
		Name  string
	}
	Unary struct {
		Input uuid.UUID
		Op    UnaryOperator
	}
	Binary struct {
		Left  uuid.UUID
		Right uuid.UUID
		Op    BinaryOperator
	}
	Ternary struct {
		Cond uuid.UUID
		Then uuid.UUID
		Else uuid.UUID
	}
	Filter struct {
		Input uuid.UUID
		Pred  uuid.UUID
	}
	Agg struct {
		Input  uuid.UUID
		Method label.AggMethod
	}
	Apply struct {
		Inputs []uuid.UUID
		Name   string
	}
}

// DecodeExprArgument decodes an ExprArgument payload.
func DecodeExprArgument(b []byte) (*ExprArgument, error) {
	arg := &ExprArgument{}
	err := scan(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			arg.Kind = ExprColumn
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					arg.Column = ColumnRef{Name: g.str()}
				case 2:
					arg.Column = ColumnRef{Index: int(g.varint), ByIndex: true}
				}
				return nil
			})
		case 2:
			arg.Kind = ExprLiteral
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				v, err := DecodePrimitiveValue(g.bytes)
				if err != nil {
					return err
				}
				arg.Literal = v
				return nil
			})
		case 3:
			arg.Kind = ExprWildcard
		case 4:
			arg.Kind = ExprCount
		case 5:
			arg.Kind = ExprAlias
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Alias.Input = id
				case 2:
					arg.Alias.Name = g.str()
				}
				return nil
			})
		case 6:
			arg.Kind = ExprUnary
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Unary.Input = id
				case 2:
					op, err := decodeUnaryOperator(g.bytes)
					if err != nil {
						return err
					}
					arg.Unary.Op = op
				}
				return nil
			})
		case 7:
			arg.Kind = ExprBinary
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Binary.Left = id
				case 2:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Binary.Right = id
				case 3:
					return scan(g.bytes, func(h field) error {
						if h.num == 1 {
							arg.Binary.Op = BinaryOperator(h.varint)
						}
						return nil
					})
				}
				return nil
			})
		case 8:
			arg.Kind = ExprTernary
			return scan(f.bytes, func(g field) error {
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				switch g.num {
				case 1:
					arg.Ternary.Cond = id
				case 2:
					arg.Ternary.Then = id
				case 3:
					arg.Ternary.Else = id
				}
				return nil
			})
		case 9:
			arg.Kind = ExprFilter
			return scan(f.bytes, func(g field) error {
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				switch g.num {
				case 1:
					arg.Filter.Input = id
				case 2:
					arg.Filter.Pred = id
				}
				return nil
			})
		case 10:
			arg.Kind = ExprAgg
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Agg.Input = id
				case 2:
					if g.varint > uint64(label.AggNaNMax) {
						return errcode.New(errcode.SerializeError, "unknown aggregate method %d", g.varint)
					}
					arg.Agg.Method = label.AggMethod(g.varint)
				}
				return nil
			})
		case 11:
			arg.Kind = ExprApply
			return scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					id, err := UUIDFromLE(g.bytes)
					if err != nil {
						return err
					}
					arg.Apply.Inputs = append(arg.Apply.Inputs, id)
				case 2:
					arg.Apply.Name = g.str()
				}
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if arg.Kind == 0 {
		return nil, errcode.New(errcode.SerializeError, "expression argument carries no variant")
	}
	return arg, nil
}

func decodeUnaryOperator(b []byte) (UnaryOperator, error) {
	var op UnaryOperator
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			if f.varint > uint64(UnaryNoise) {
				return errcode.New(errcode.SerializeError, "unknown unary operator %d", f.varint)
			}
			op.Kind = UnaryOpKind(f.varint)
		case 2:
			op.Name = f.str()
		case 3:
			v, err := DecodePrimitiveValue(f.bytes)
			if err != nil {
				return err
			}
			op.Param = v
			op.HasParam = true
		case 4:
			spec, err := decodeNoiseSpec(f.bytes)
			if err != nil {
				return err
			}
			op.Noise = spec
		}
		return nil
	})
	return op, err
}

// EncodeExprArgument encodes an ExprArgument payload. The inverse of
// DecodeExprArgument; used by tests and host-side tooling.
func EncodeExprArgument(arg *ExprArgument) []byte {
	var body []byte
	switch arg.Kind {
	case ExprColumn:
		var c []byte
		if arg.Column.ByIndex {
			c = protowire.AppendTag(c, 2, protowire.VarintType)
			c = protowire.AppendVarint(c, uint64(arg.Column.Index))
		} else {
			c = protowire.AppendTag(c, 1, protowire.BytesType)
			c = protowire.AppendString(c, arg.Column.Name)
		}
		return appendMessage(nil, 1, c)
	case ExprLiteral:
		body = appendMessage(body, 1, EncodePrimitiveValue(arg.Literal))
		return appendMessage(nil, 2, body)
	case ExprWildcard:
		return appendMessage(nil, 3, nil)
	case ExprCount:
		return appendMessage(nil, 4, nil)
	case ExprAlias:
		body = appendMessage(body, 1, UUIDToLE(arg.Alias.Input))
		body = appendString(body, 2, arg.Alias.Name)
		return appendMessage(nil, 5, body)
	case ExprUnary:
		body = appendMessage(body, 1, UUIDToLE(arg.Unary.Input))
		body = appendMessage(body, 2, encodeUnaryOperator(arg.Unary.Op))
		return appendMessage(nil, 6, body)
	case ExprBinary:
		body = appendMessage(body, 1, UUIDToLE(arg.Binary.Left))
		body = appendMessage(body, 2, UUIDToLE(arg.Binary.Right))
		body = appendMessage(body, 3, appendVarint(nil, 1, uint64(arg.Binary.Op)))
		return appendMessage(nil, 7, body)
	case ExprTernary:
		body = appendMessage(body, 1, UUIDToLE(arg.Ternary.Cond))
		body = appendMessage(body, 2, UUIDToLE(arg.Ternary.Then))
		body = appendMessage(body, 3, UUIDToLE(arg.Ternary.Else))
		return appendMessage(nil, 8, body)
	case ExprFilter:
		body = appendMessage(body, 1, UUIDToLE(arg.Filter.Input))
		body = appendMessage(body, 2, UUIDToLE(arg.Filter.Pred))
		return appendMessage(nil, 9, body)
	case ExprAgg:
		body = appendMessage(body, 1, UUIDToLE(arg.Agg.Input))
		body = appendVarint(body, 2, uint64(arg.Agg.Method))
		return appendMessage(nil, 10, body)
	case ExprApply:
		for _, id := range arg.Apply.Inputs {
			body = appendMessage(body, 1, UUIDToLE(id))
		}
		body = appendString(body, 2, arg.Apply.Name)
		return appendMessage(nil, 11, body)
	}
	return nil
}

func encodeUnaryOperator(op UnaryOperator) []byte {
	var b []byte
	b = appendVarint(b, 1, uint64(op.Kind))
	b = appendString(b, 2, op.Name)
	if op.HasParam {
		b = appendMessage(b, 3, EncodePrimitiveValue(op.Param))
	}
	if op.Kind == UnaryNoise {
		b = appendMessage(b, 4, encodeNoiseSpec(op.Noise))
	}
	return b
}
