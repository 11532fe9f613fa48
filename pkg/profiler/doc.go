// Package profiler collects per-operation timings for a context.
//
// When profiling is enabled, every epilogue records one entry; the sink
// flushes the accumulated entries to profile.log in the host's working
// directory, one JSON object per line with fields op, duration_ns, rows,
// and groups.
package profiler
