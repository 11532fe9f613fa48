// Package metrics provides Prometheus collectors for the monitor.
//
// Metrics:
//   - cellguard_operations_total: operator executions by kind and outcome
//   - cellguard_operation_duration_seconds: propagation duration by kind
//   - cellguard_privacy_breaches_total: discharge rejections and sink failures
//   - cellguard_active_contexts: currently open contexts
//   - cellguard_frame_rows: output row counts by operator kind
//
// Metrics are registered against a caller-supplied registry so an embedding
// host keeps control over its scrape surface; pass nil to register nothing
// observable against a private registry.
package metrics
