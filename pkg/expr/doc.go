// Package expr implements the expression graph and its label transfer.
//
// The host builds expressions incrementally by identifier: every node names
// its children by the UUIDs the arena handed out earlier, and the engine
// resolves them on demand; nodes never own their children. The engine
// computes no data values; expressions whose labels depend on values
// (ternary conditions, filter predicates, arithmetic operands, function
// applications) must be reified by the host with Arrow-decoded value arrays
// before propagation touches them.
//
// Label transfer is defined per node kind: column references read the input
// frame's labels, literals and counts are unlabeled, unary and named
// applications attempt a transform discharge, binary comparisons compose
// their operands, and aggregates fold whole groups (see the plan package).
package expr
