// Package evidence records the monitor's enforcement decisions.
//
// Every epilogue and sink check can leave an audit record: which operator
// ran, over which frames, and whether it passed or was blocked. Records go
// to an in-memory ring by default or to SQLite for durable trails, and a
// cron-scheduled pruner enforces the retention window.
//
// Evidence is disabled by default; the monitor never requires it to
// enforce.
package evidence
