// Package arena provides UUID-keyed append-only object stores.
//
// Each context owns four arenas (expressions, plans, frames, policies). An
// insert assigns a fresh random v4 identifier and takes the exclusive lock
// for O(1); lookups take the shared lock. Identifiers are opaque to the
// host: the engine validates them but never dereferences an unknown one;
// lookup of an unknown identifier fails with NoEntry.
package arena
