package message

import (
	"math"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
)

// field is one decoded protobuf field. Exactly one of varint, fixed64, or
// bytes is meaningful, per typ.
type field struct {
	num     protowire.Number
	typ     protowire.Type
	varint  uint64
	fixed64 uint64
	bytes   []byte
}

func (f field) bool() bool      { return f.varint != 0 }
func (f field) double() float64 { return math.Float64frombits(f.fixed64) }
func (f field) str() string     { return string(f.bytes) }

// scan walks every field of a message body, dispatching to fn. Unknown
// fields are skipped by the caller simply ignoring them, matching proto3
// semantics.
func scan(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return errcode.New(errcode.SerializeError, "malformed field tag")
		}
		b = b[n:]
		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return errcode.New(errcode.SerializeError, "malformed varint for field %d", num)
			}
			f.varint = v
			b = b[n:]
		case protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return errcode.New(errcode.SerializeError, "malformed fixed64 for field %d", num)
			}
			f.fixed64 = v
			b = b[n:]
		case protowire.Fixed32Type:
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return errcode.New(errcode.SerializeError, "malformed fixed32 for field %d", num)
			}
			f.fixed64 = uint64(v)
			b = b[n:]
		case protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return errcode.New(errcode.SerializeError, "malformed length-delimited field %d", num)
			}
			f.bytes = v
			b = b[n:]
		default:
			return errcode.New(errcode.SerializeError, "unsupported wire type %d for field %d", typ, num)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// packedUint64s decodes a repeated uint64 field that may arrive packed or
// unpacked; dst accumulates across occurrences.
func packedUint64s(f field, dst []uint64) ([]uint64, error) {
	if f.typ == protowire.VarintType {
		return append(dst, f.varint), nil
	}
	b := f.bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, errcode.New(errcode.SerializeError, "malformed packed varint in field %d", f.num)
		}
		dst = append(dst, v)
		b = b[n:]
	}
	return dst, nil
}

// packedBools decodes a repeated bool field, packed or unpacked.
func packedBools(f field, dst []bool) ([]bool, error) {
	if f.typ == protowire.VarintType {
		return append(dst, f.varint != 0), nil
	}
	b := f.bytes
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, errcode.New(errcode.SerializeError, "malformed packed bool in field %d", f.num)
		}
		dst = append(dst, v != 0)
		b = b[n:]
	}
	return dst, nil
}

// UUIDFromLE decodes a 16-byte little-endian-field UUID, the layout used by
// every UUID field on the wire.
func UUIDFromLE(b []byte) (uuid.UUID, error) {
	if len(b) != 16 {
		return uuid.Nil, errcode.New(errcode.SerializeError, "UUID field must be 16 bytes, got %d", len(b))
	}
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u, nil
}

// UUIDToLE encodes a UUID into the 16-byte little-endian field layout.
func UUIDToLE(u uuid.UUID) []byte {
	b := make([]byte, 16)
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}

// appendMessage appends a length-delimited submessage field.
func appendMessage(b []byte, num protowire.Number, body []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, body)
}

// appendUint64s appends a repeated uint64 field in packed encoding.
func appendUint64s(b []byte, num protowire.Number, vs []uint64) []byte {
	if len(vs) == 0 {
		return b
	}
	var body []byte
	for _, v := range vs {
		body = protowire.AppendVarint(body, v)
	}
	return appendMessage(b, num, body)
}

// appendBools appends a repeated bool field in packed encoding.
func appendBools(b []byte, num protowire.Number, vs []bool) []byte {
	if len(vs) == 0 {
		return b
	}
	var body []byte
	for _, v := range vs {
		n := uint64(0)
		if v {
			n = 1
		}
		body = protowire.AppendVarint(body, n)
	}
	return appendMessage(b, num, body)
}

// appendString appends a string field, omitting the proto3 default.
func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

// appendVarint appends a varint field, omitting the proto3 default.
func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

// appendBool appends a bool field, omitting the proto3 default.
func appendBool(b []byte, num protowire.Number, v bool) []byte {
	if !v {
		return b
	}
	return appendVarint(b, num, 1)
}

// appendDouble appends a double field, omitting the proto3 default.
func appendDouble(b []byte, num protowire.Number, v float64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.Fixed64Type)
	return protowire.AppendFixed64(b, math.Float64bits(v))
}
