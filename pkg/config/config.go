package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the monitor.
type Config struct {
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus collectors.
	Metrics MetricsConfig `yaml:"metrics"`

	// Evidence configures the decision audit trail.
	Evidence EvidenceConfig `yaml:"evidence"`

	// Profiling enables per-operation profiling for new contexts.
	Profiling bool `yaml:"profiling"`

	// Tracing enables trace logging for new contexts.
	Tracing bool `yaml:"tracing"`

	// ProfilePath is where the profiler flushes its entries.
	ProfilePath string `yaml:"profile_path"`

	// TracePath is where trace output is appended.
	TracePath string `yaml:"trace_path"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	Level string `yaml:"level"`

	// Format is the output format ("json", "text", "console").
	Format string `yaml:"format"`
}

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Enabled registers the collectors against the host's registry. When
	// false the collectors run against a private registry and nothing is
	// exposed. Default: true.
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix.
	Namespace string `yaml:"namespace"`
}

// EvidenceConfig configures the decision audit trail.
type EvidenceConfig struct {
	// Enabled records epilogue and sink decisions.
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend ("memory" or "sqlite").
	Backend string `yaml:"backend"`

	// Path is the SQLite database file path.
	Path string `yaml:"path"`

	// RetentionDays is how long records are kept. Zero disables pruning.
	RetentionDays int `yaml:"retention_days"`

	// PruneSchedule is the cron expression for retention pruning.
	PruneSchedule string `yaml:"prune_schedule"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Logging:     LoggingConfig{Level: "info", Format: "text"},
		Metrics:     MetricsConfig{Enabled: true, Namespace: "cellguard"},
		Evidence:    EvidenceConfig{Backend: "memory", Path: "data/evidence.db", PruneSchedule: "0 3 * * *"},
		ProfilePath: "profile.log",
		TracePath:   "cellguard.log",
	}
}

// Load reads and validates a configuration file, filling unset fields with
// defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid logging level %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "json", "text", "console":
	default:
		return fmt.Errorf("invalid logging format %q", c.Logging.Format)
	}
	switch c.Evidence.Backend {
	case "", "memory", "sqlite":
	default:
		return fmt.Errorf("invalid evidence backend %q", c.Evidence.Backend)
	}
	if c.Evidence.Backend == "sqlite" && c.Evidence.Path == "" {
		return fmt.Errorf("sqlite evidence backend requires a path")
	}
	if c.Evidence.RetentionDays < 0 {
		return fmt.Errorf("retention days must not be negative")
	}
	if c.ProfilePath == "" {
		return fmt.Errorf("profile path must not be empty")
	}
	return nil
}
