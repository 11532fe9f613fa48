package values

import (
	"bytes"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"mercator-hq/cellguard/pkg/errcode"
)

// DecodeColumns decodes an Arrow IPC stream into typed primitive columns.
// Multiple record batches are concatenated in order. Element types outside
// the value model fail with SerializeError.
func DecodeColumns(payload []byte) ([]Column, error) {
	var out []Column
	err := eachRecord(payload, func(rec arrow.Record) error {
		if out == nil {
			out = make([]Column, rec.NumCols())
			for i := range out {
				out[i].Name = rec.Schema().Field(i).Name
			}
		} else if int64(len(out)) != rec.NumCols() {
			return errcode.New(errcode.SerializeError, "record batches disagree on column count")
		}
		for i := 0; i < int(rec.NumCols()); i++ {
			vals, err := decodeArray(rec.Column(i))
			if err != nil {
				return err
			}
			out[i].Values = append(out[i].Values, vals...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errcode.New(errcode.SerializeError, "IPC payload contains no record batches")
	}
	return out, nil
}

// DecodeBinaryColumns decodes an Arrow IPC stream whose columns are binary
// arrays, the carrier format for encoded label chains.
func DecodeBinaryColumns(payload []byte) ([]BinaryColumn, error) {
	var out []BinaryColumn
	err := eachRecord(payload, func(rec arrow.Record) error {
		if out == nil {
			out = make([]BinaryColumn, rec.NumCols())
			for i := range out {
				out[i].Name = rec.Schema().Field(i).Name
			}
		} else if int64(len(out)) != rec.NumCols() {
			return errcode.New(errcode.SerializeError, "record batches disagree on column count")
		}
		for i := 0; i < int(rec.NumCols()); i++ {
			cells, err := binaryCells(rec.Column(i))
			if err != nil {
				return err
			}
			out[i].Cells = append(out[i].Cells, cells...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, errcode.New(errcode.SerializeError, "IPC payload contains no record batches")
	}
	return out, nil
}

func eachRecord(payload []byte, fn func(arrow.Record) error) error {
	rdr, err := ipc.NewReader(bytes.NewReader(payload))
	if err != nil {
		return errcode.Wrap(errcode.SerializeError, err, "invalid Arrow IPC stream")
	}
	defer rdr.Release()
	for rdr.Next() {
		if err := fn(rdr.Record()); err != nil {
			return err
		}
	}
	if err := rdr.Err(); err != nil {
		return errcode.Wrap(errcode.SerializeError, err, "reading Arrow IPC stream")
	}
	return nil
}

func binaryCells(col arrow.Array) ([][]byte, error) {
	cells := make([][]byte, 0, col.Len())
	switch arr := col.(type) {
	case *array.Binary:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, bytes.Clone(arr.Value(i)))
		}
	case *array.LargeBinary:
		for i := 0; i < arr.Len(); i++ {
			if arr.IsNull(i) {
				cells = append(cells, nil)
				continue
			}
			cells = append(cells, bytes.Clone(arr.Value(i)))
		}
	default:
		return nil, errcode.New(errcode.SerializeError,
			"expected binary column, got %s", col.DataType())
	}
	return cells, nil
}

func decodeArray(col arrow.Array) ([]Value, error) {
	out := make([]Value, 0, col.Len())
	push := func(i int, v Value) {
		if col.IsNull(i) {
			out = append(out, Null)
			return
		}
		out = append(out, v)
	}
	switch arr := col.(type) {
	case *array.Boolean:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindBool, Bool: arr.Value(i)})
		}
	case *array.Int8:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindInt, Int: int64(arr.Value(i))})
		}
	case *array.Int16:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindInt, Int: int64(arr.Value(i))})
		}
	case *array.Int32:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindInt, Int: int64(arr.Value(i))})
		}
	case *array.Int64:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindInt, Int: arr.Value(i)})
		}
	case *array.Uint8:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindUint, Uint: uint64(arr.Value(i))})
		}
	case *array.Uint16:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindUint, Uint: uint64(arr.Value(i))})
		}
	case *array.Uint32:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindUint, Uint: uint64(arr.Value(i))})
		}
	case *array.Uint64:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindUint, Uint: arr.Value(i)})
		}
	case *array.Float32:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindFloat, Float: float64(arr.Value(i))})
		}
	case *array.Float64:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindFloat, Float: arr.Value(i)})
		}
	case *array.String:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindString, Str: arr.Value(i)})
		}
	case *array.LargeString:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindString, Str: arr.Value(i)})
		}
	case *array.Binary:
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindBytes, Bytes: bytes.Clone(arr.Value(i))})
		}
	case *array.Duration:
		unit := arr.DataType().(*arrow.DurationType).Unit
		for i := 0; i < arr.Len(); i++ {
			push(i, Value{Kind: KindDuration, Duration: durationOf(int64(arr.Value(i)), unit)})
		}
	default:
		return nil, errcode.New(errcode.SerializeError,
			"element type %s is outside the value model", col.DataType())
	}
	return out, nil
}

func durationOf(ticks int64, unit arrow.TimeUnit) time.Duration {
	switch unit {
	case arrow.Second:
		return time.Duration(ticks) * time.Second
	case arrow.Millisecond:
		return time.Duration(ticks) * time.Millisecond
	case arrow.Microsecond:
		return time.Duration(ticks) * time.Microsecond
	default:
		return time.Duration(ticks)
	}
}
