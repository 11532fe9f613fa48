// Package logging provides the monitor's structured logger.
//
// The logger wraps log/slog with a small amount of policy: a parsed level,
// a selectable output format (json, text, console), and an optional trace
// mode that contexts toggle at runtime. Trace output is what the ABI's
// enable_tracing flag controls; it goes to a dedicated file so a host
// embedding the monitor never sees engine internals on its own streams.
package logging
