package message

import (
	"math"
	"time"

	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/values"
)

// DecodePrimitiveValue decodes a PrimitiveValue message.
func DecodePrimitiveValue(b []byte) (values.Value, error) {
	v := values.Null
	set := false
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			v = values.Value{Kind: values.KindBool, Bool: f.bool()}
		case 2:
			v = values.Value{Kind: values.KindInt, Int: int64(f.varint)}
		case 3:
			v = values.Value{Kind: values.KindUint, Uint: f.varint}
		case 4:
			v = values.Value{Kind: values.KindFloat, Float: f.double()}
		case 5:
			v = values.Value{Kind: values.KindString, Str: f.str()}
		case 6:
			v = values.Value{Kind: values.KindBytes, Bytes: append([]byte(nil), f.bytes...)}
		case 7:
			d, err := decodeDuration(f.bytes)
			if err != nil {
				return err
			}
			v = values.Value{Kind: values.KindDuration, Duration: d}
		case 8:
			v = values.Null
		default:
			return nil
		}
		set = true
		return nil
	})
	if err != nil {
		return values.Null, err
	}
	if !set {
		return values.Null, errcode.New(errcode.SerializeError, "primitive value carries no variant")
	}
	return v, nil
}

func decodeDuration(b []byte) (time.Duration, error) {
	var sec, nsec int64
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			sec = int64(f.varint)
		case 2:
			nsec = int64(f.varint)
		}
		return nil
	})
	return time.Duration(sec)*time.Second + time.Duration(nsec), err
}

// EncodePrimitiveValue encodes a value as a PrimitiveValue message.
func EncodePrimitiveValue(v values.Value) []byte {
	var b []byte
	switch v.Kind {
	case values.KindBool:
		b = protowire.AppendTag(b, 1, protowire.VarintType)
		var n uint64
		if v.Bool {
			n = 1
		}
		b = protowire.AppendVarint(b, n)
	case values.KindInt:
		b = protowire.AppendTag(b, 2, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(v.Int))
	case values.KindUint:
		b = protowire.AppendTag(b, 3, protowire.VarintType)
		b = protowire.AppendVarint(b, v.Uint)
	case values.KindFloat:
		b = protowire.AppendTag(b, 4, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(v.Float))
	case values.KindString:
		b = protowire.AppendTag(b, 5, protowire.BytesType)
		b = protowire.AppendString(b, v.Str)
	case values.KindBytes:
		b = protowire.AppendTag(b, 6, protowire.BytesType)
		b = protowire.AppendBytes(b, v.Bytes)
	case values.KindDuration:
		var body []byte
		body = appendVarint(body, 1, uint64(v.Duration/time.Second))
		body = appendVarint(body, 2, uint64(v.Duration%time.Second))
		b = appendMessage(b, 7, body)
	default:
		b = protowire.AppendTag(b, 8, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	}
	return b
}
