// Package label implements the policy lattice and the cell-label algebra.
//
// A cell label is a finite descending chain of steps, each pairing a lattice
// level with the set of discharges permitted to step down to the next level.
// Every chain terminates at (Low, ∅); a cell whose chain is at that bottom
// step carries no remaining obligation and may leave the monitor.
//
// # Lattice
//
// Levels are totally ordered:
//
//	Low ⊏ Named ⊏ Anonymized ⊏ Transformed ⊏ High
//
// # Discharges
//
// A discharge is a named obligation. Four kinds exist:
//
//   - Transform: an operator (redact, substitute, identity, not, or a named
//     application), optionally parameterized.
//   - Aggregate: an aggregation method with a minimum group size.
//   - Noise: a differential-privacy budget (epsilon, delta) with a mechanism
//     tag.
//   - Scheme: a privacy scheme constraint (k-anonymity, l-diversity,
//     t-closeness).
//
// # Algebra
//
// A step's discharge set lists the operations permitted to release it: any
// one of them advances the chain past the step. Compose (⊕) merges two
// chains when two policies guard the same cell, or when cells from two
// relations meet in a join or aggregation; equal levels intersect their
// discharge sets, so the merged step releases only under an operation both
// sides permitted. Compose is commutative and associative, and the bottom
// chain is its identity.
//
// Downgrade applies a performed operation to a chain: if the operation
// satisfies one of the head's permitted discharges, the chain advances past
// the head. An operation that satisfies nothing leaves the chain unchanged;
// labels only ever descend, and obligations that are never satisfied
// survive to the sink where they block release.
//
// Chains are immutable; every operation returns a new chain.
package label
