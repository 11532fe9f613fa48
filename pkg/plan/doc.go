// Package plan implements the logical plan graph and per-operator policy
// propagation.
//
// The host announces each physical operator after executing it; the plan
// node describes the operator and, for anything that restructures rows, a
// transform descriptor carries the row topology the host actually produced
// (filter bitmap, join row pairs, group memberships, permutation). The
// engine replays that topology over the label side and yields a new frame.
//
// A plan whose semantics imply row restructuring but arrives without the
// matching descriptor is rejected with InvalidOperation: the host cannot
// rewrite frames silently.
package plan
