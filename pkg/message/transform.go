package message

import (
	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"mercator-hq/cellguard/pkg/errcode"
)

// GroupEntry is one group of row indices with a representative first row
// and an optional cross-chunk hash.
type GroupEntry struct {
	First   uint64
	Members []uint64
	Hash    uint64
}

// GroupChunk pairs a frame with the groups computed over it, for sharded
// group-bys.
type GroupChunk struct {
	Frame  uuid.UUID
	Groups []GroupEntry
}

// SliceRun is a run-length-encoded group: rows [Offset, Offset+Length).
type SliceRun struct {
	Offset uint64
	Length uint64
}

// GroupByProxyKind tags the variant of a GroupByProxy.
type GroupByProxyKind uint8

const (
	GroupByIdx GroupByProxyKind = iota + 1
	GroupByIdxMultiple
	GroupBySlice
	UngroupedGroupBy
)

// GroupByProxy tells the monitor how the host grouped rows.
type GroupByProxy struct {
	Kind   GroupByProxyKind
	Groups []GroupEntry
	Chunks []GroupChunk
	Runs   []SliceRun
}

// RowJoin pairs one output row's source rows.
type RowJoin struct {
	Left  uint64
	Right uint64
}

// Rename maps a right-side column name onto its output name.
type Rename struct {
	From string
	To   string
}

// JoinInformation describes a performed join's row topology.
type JoinInformation struct {
	Lhs          uuid.UUID
	Rhs          uuid.UUID
	Rows         []RowJoin
	LeftColumns  []uint64
	RightColumns []uint64
	Renames      []Rename
}

// TransformKind tags the variant of a TransformInfo.
type TransformKind uint8

const (
	TransformFilter TransformKind = iota + 1
	TransformJoin
	TransformGroupBy
	TransformReorder
	TransformUnion
	TransformDistinct
)

// TransformInfo is the descriptor the host must emit whenever an operator
// restructures rows.
type TransformInfo struct {
	Kind TransformKind

	Filter   []bool
	Join     *JoinInformation
	GroupBy  *GroupByProxy
	Perm     []uint64
	Union    []uuid.UUID
	Distinct *GroupByProxy
}

// DecodeTransformInfo decodes a TransformInfo payload.
func DecodeTransformInfo(b []byte) (*TransformInfo, error) {
	ti := &TransformInfo{}
	err := scan(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			ti.Kind = TransformFilter
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				var err error
				ti.Filter, err = packedBools(g, ti.Filter)
				return err
			})
		case 2:
			ti.Kind = TransformJoin
			ji, err := decodeJoinInformation(f.bytes)
			if err != nil {
				return err
			}
			ti.Join = ji
		case 3:
			ti.Kind = TransformGroupBy
			proxy, err := DecodeGroupByProxy(f.bytes)
			if err != nil {
				return err
			}
			ti.GroupBy = proxy
		case 4:
			ti.Kind = TransformReorder
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				var err error
				ti.Perm, err = packedUint64s(g, ti.Perm)
				return err
			})
		case 5:
			ti.Kind = TransformUnion
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				id, err := UUIDFromLE(g.bytes)
				if err != nil {
					return err
				}
				ti.Union = append(ti.Union, id)
				return nil
			})
		case 6:
			ti.Kind = TransformDistinct
			proxy, err := DecodeGroupByProxy(f.bytes)
			if err != nil {
				return err
			}
			ti.Distinct = proxy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if ti.Kind == 0 {
		return nil, errcode.New(errcode.SerializeError, "transform info carries no variant")
	}
	return ti, nil
}

func decodeJoinInformation(b []byte) (*JoinInformation, error) {
	ji := &JoinInformation{}
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			id, err := UUIDFromLE(f.bytes)
			if err != nil {
				return err
			}
			ji.Lhs = id
		case 2:
			id, err := UUIDFromLE(f.bytes)
			if err != nil {
				return err
			}
			ji.Rhs = id
		case 3:
			var rj RowJoin
			if err := scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					rj.Left = g.varint
				case 2:
					rj.Right = g.varint
				}
				return nil
			}); err != nil {
				return err
			}
			ji.Rows = append(ji.Rows, rj)
		case 4:
			var err error
			ji.LeftColumns, err = packedUint64s(f, ji.LeftColumns)
			return err
		case 5:
			var err error
			ji.RightColumns, err = packedUint64s(f, ji.RightColumns)
			return err
		case 6:
			var rn Rename
			if err := scan(f.bytes, func(g field) error {
				switch g.num {
				case 1:
					rn.From = g.str()
				case 2:
					rn.To = g.str()
				}
				return nil
			}); err != nil {
				return err
			}
			ji.Renames = append(ji.Renames, rn)
		}
		return nil
	})
	return ji, err
}

// DecodeGroupByProxy decodes a GroupByProxy payload.
func DecodeGroupByProxy(b []byte) (*GroupByProxy, error) {
	proxy := &GroupByProxy{}
	err := scan(b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			proxy.Kind = GroupByIdx
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				entry, err := decodeGroupEntry(g.bytes)
				if err != nil {
					return err
				}
				proxy.Groups = append(proxy.Groups, entry)
				return nil
			})
		case 2:
			proxy.Kind = GroupByIdxMultiple
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				chunk, err := decodeGroupChunk(g.bytes)
				if err != nil {
					return err
				}
				proxy.Chunks = append(proxy.Chunks, chunk)
				return nil
			})
		case 3:
			proxy.Kind = GroupBySlice
			return scan(f.bytes, func(g field) error {
				if g.num != 1 {
					return nil
				}
				var run SliceRun
				if err := scan(g.bytes, func(h field) error {
					switch h.num {
					case 1:
						run.Offset = h.varint
					case 2:
						run.Length = h.varint
					}
					return nil
				}); err != nil {
					return err
				}
				proxy.Runs = append(proxy.Runs, run)
				return nil
			})
		case 4:
			proxy.Kind = UngroupedGroupBy
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if proxy.Kind == 0 {
		return nil, errcode.New(errcode.SerializeError, "group-by proxy carries no variant")
	}
	return proxy, nil
}

func decodeGroupEntry(b []byte) (GroupEntry, error) {
	var entry GroupEntry
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			entry.First = f.varint
		case 2:
			var err error
			entry.Members, err = packedUint64s(f, entry.Members)
			return err
		case 3:
			entry.Hash = f.varint
		}
		return nil
	})
	return entry, err
}

func decodeGroupChunk(b []byte) (GroupChunk, error) {
	var chunk GroupChunk
	err := scan(b, func(f field) error {
		switch f.num {
		case 1:
			id, err := UUIDFromLE(f.bytes)
			if err != nil {
				return err
			}
			chunk.Frame = id
		case 2:
			entry, err := decodeGroupEntry(f.bytes)
			if err != nil {
				return err
			}
			chunk.Groups = append(chunk.Groups, entry)
		}
		return nil
	})
	return chunk, err
}

// EncodeTransformInfo encodes a TransformInfo payload.
func EncodeTransformInfo(ti *TransformInfo) []byte {
	switch ti.Kind {
	case TransformFilter:
		return appendMessage(nil, 1, appendBools(nil, 1, ti.Filter))
	case TransformJoin:
		return appendMessage(nil, 2, encodeJoinInformation(ti.Join))
	case TransformGroupBy:
		return appendMessage(nil, 3, EncodeGroupByProxy(ti.GroupBy))
	case TransformReorder:
		return appendMessage(nil, 4, appendUint64s(nil, 1, ti.Perm))
	case TransformUnion:
		var body []byte
		for _, id := range ti.Union {
			body = appendMessage(body, 1, UUIDToLE(id))
		}
		return appendMessage(nil, 5, body)
	case TransformDistinct:
		return appendMessage(nil, 6, EncodeGroupByProxy(ti.Distinct))
	}
	return nil
}

func encodeJoinInformation(ji *JoinInformation) []byte {
	var b []byte
	b = appendMessage(b, 1, UUIDToLE(ji.Lhs))
	b = appendMessage(b, 2, UUIDToLE(ji.Rhs))
	for _, rj := range ji.Rows {
		var body []byte
		body = appendVarint(body, 1, rj.Left)
		body = appendVarint(body, 2, rj.Right)
		b = appendMessage(b, 3, body)
	}
	b = appendUint64s(b, 4, ji.LeftColumns)
	b = appendUint64s(b, 5, ji.RightColumns)
	for _, rn := range ji.Renames {
		var body []byte
		body = appendString(body, 1, rn.From)
		body = appendString(body, 2, rn.To)
		b = appendMessage(b, 6, body)
	}
	return b
}

// EncodeGroupByProxy encodes a GroupByProxy payload.
func EncodeGroupByProxy(proxy *GroupByProxy) []byte {
	switch proxy.Kind {
	case GroupByIdx:
		var body []byte
		for _, entry := range proxy.Groups {
			body = appendMessage(body, 1, encodeGroupEntry(entry))
		}
		return appendMessage(nil, 1, body)
	case GroupByIdxMultiple:
		var body []byte
		for _, chunk := range proxy.Chunks {
			var cb []byte
			cb = appendMessage(cb, 1, UUIDToLE(chunk.Frame))
			for _, entry := range chunk.Groups {
				cb = appendMessage(cb, 2, encodeGroupEntry(entry))
			}
			body = appendMessage(body, 1, cb)
		}
		return appendMessage(nil, 2, body)
	case GroupBySlice:
		var body []byte
		for _, run := range proxy.Runs {
			var rb []byte
			rb = appendVarint(rb, 1, run.Offset)
			rb = appendVarint(rb, 2, run.Length)
			body = appendMessage(body, 1, rb)
		}
		return appendMessage(nil, 3, body)
	case UngroupedGroupBy:
		return appendMessage(nil, 4, nil)
	}
	return nil
}

func encodeGroupEntry(entry GroupEntry) []byte {
	var b []byte
	b = appendVarint(b, 1, entry.First)
	b = appendUint64s(b, 2, entry.Members)
	b = appendVarint(b, 3, entry.Hash)
	return b
}
