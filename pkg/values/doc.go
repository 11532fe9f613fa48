// Package values defines the strict primitive value model the engine
// consumes and the Arrow decoding paths that feed it.
//
// The engine never computes data values itself; the host reifies value
// arrays (aggregate results, predicate operands, function outputs) as Arrow
// IPC payloads, and policy frames arrive as Arrow record batches whose
// binary cells hold encoded label chains. Element types outside the model
// are rejected rather than coerced.
package values
