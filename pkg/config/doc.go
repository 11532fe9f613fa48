// Package config defines the monitor's engine configuration.
//
// Configuration is optional: an embedding host that never loads a file gets
// working defaults. When a file is loaded (cellguard.yaml), it is validated
// up front and can be watched for changes, so long-lived hosts pick up
// logging or evidence adjustments without a restart. Per-context flags
// (tracing, profiling) arriving on the wire override these defaults for
// their context only.
package config
