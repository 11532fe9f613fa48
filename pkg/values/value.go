package values

import (
	"fmt"
	"strconv"
	"time"
)

// Kind tags the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindBytes
	KindDuration
)

// Value is one primitive scalar in the engine's value model.
type Value struct {
	Kind Kind

	Bool     bool
	Int      int64
	Uint     uint64
	Float    float64
	Str      string
	Bytes    []byte
	Duration time.Duration
}

// Null is the absent value.
var Null = Value{Kind: KindNull}

// Canonical returns a stable textual rendering of the value, used as the
// parameter identity of parameterized transform discharges.
func (v Value) Canonical() string {
	switch v.Kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindUint:
		return strconv.FormatUint(v.Uint, 10)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	case KindString:
		return v.Str
	case KindBytes:
		return fmt.Sprintf("%x", v.Bytes)
	case KindDuration:
		return v.Duration.String()
	default:
		return fmt.Sprintf("kind(%d)", v.Kind)
	}
}

// Truthy interprets the value as a predicate outcome. Null is false.
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindInt:
		return v.Int != 0
	case KindUint:
		return v.Uint != 0
	case KindFloat:
		return v.Float != 0
	default:
		return false
	}
}

// Column is a named, typed array of values decoded from one Arrow column.
type Column struct {
	Name   string
	Values []Value
}

// BinaryColumn is a named array of raw binary cells, the carrier for encoded
// label chains in policy frame payloads.
type BinaryColumn struct {
	Name  string
	Cells [][]byte
}
