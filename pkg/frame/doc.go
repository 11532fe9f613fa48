// Package frame implements policy-guarded frames: the label side of every
// relation the host computes.
//
// A frame is an ordered sequence of named columns; each column holds one
// label chain per row and all columns agree on the row count. Frames carry
// no data values; the host keeps the data, the monitor keeps the labels,
// and the transform descriptors keep the two in sync.
//
// Frames are immutable. Every operator that changes content produces a new
// frame; superseded frames stay addressable in their arena until the
// context is torn down. Label chains are immutable too, so frames share
// them freely.
package frame
