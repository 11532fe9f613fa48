// Package errcode defines the stable error codes surfaced across the monitor
// ABI and the typed error values used throughout the engine.
//
// Every failure the engine reports maps onto one of seven stable numeric
// codes. Go callers receive typed errors that wrap an underlying cause;
// foreign callers receive the numeric code plus a human-readable message
// retrievable through the last-error slot.
//
// # Error Taxonomy
//
//   - PrivacyBreach: a discharge rule rejected an operator, or the sink found
//     a non-bottom label. Security-critical; never silenced.
//   - InvalidOperation: structural host mistakes (schema mismatch, missing
//     transform descriptor, short buffers).
//   - SerializeError: malformed wire payloads.
//   - NoEntry: unknown identifiers.
//   - Already: double initialization.
//   - FileNotFound: I/O.
package errcode
