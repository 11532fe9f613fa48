// Package message implements the monitor's wire format.
//
// Argument messages cross the ABI as length-delimited protobuf payloads
// matching the schema in proto/cellguard.proto. The codecs here are
// hand-rolled on google.golang.org/protobuf/encoding/protowire: the message
// set is small and stable, the engine controls both directions in tests,
// and direct codecs keep the decode path allocation-light.
//
// Malformed payloads fail with SerializeError. UUID fields are exactly 16
// bytes in little-endian field order, the layout foreign hosts produce.
package message
