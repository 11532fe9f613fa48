// Package monitor ties the engine together: the process-wide registry of
// contexts and the operations the ABI exposes over them.
//
// A context owns four arenas (policies, frames, plans, expressions), its
// option flags, a profiler, and an optional evidence recorder. The host
// drives one context at a time through a fixed call sequence: open, register
// frames with their policies, build expressions and plans by identifier,
// reify data-dependent expressions, announce each executed operator through
// the epilogue, and finally ask the sink to release a frame.
//
// The monitor holds its context map under a readers-writer lock; each arena
// locks independently. Lock order: monitor, then policy, frame, plan, and
// expression arenas. No lock is ever held across a host callback.
//
// Failures never mutate observable state: an operation either returns a new
// identifier or an error, and prior arenas and frames stay intact either
// way.
package monitor
