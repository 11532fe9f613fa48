package monitor

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/cellguard/pkg/config"
	"mercator-hq/cellguard/pkg/errcode"
	"mercator-hq/cellguard/pkg/evidence"
	"mercator-hq/cellguard/pkg/telemetry/logging"
	"mercator-hq/cellguard/pkg/telemetry/metrics"
)

// Monitor is the process-wide registry of contexts.
type Monitor struct {
	mu       sync.RWMutex
	contexts map[uuid.UUID]*Context

	cfg       *config.Config
	logger    *logging.Logger
	collector *metrics.Collector
	store     evidence.Storage
	pruner    *evidence.Pruner
}

// New creates a monitor from the given configuration. A nil configuration
// uses the defaults. registry may be nil; metrics then stay private.
func New(cfg *config.Config, registry *prometheus.Registry) (*Monitor, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		return nil, errcode.Wrap(errcode.InvalidOperation, err, "building logger")
	}

	var store evidence.Storage
	if cfg.Evidence.Enabled {
		switch cfg.Evidence.Backend {
		case "sqlite":
			store, err = evidence.NewSQLiteStorage(cfg.Evidence.Path)
			if err != nil {
				return nil, errcode.Wrap(errcode.InvalidOperation, err, "opening evidence storage")
			}
		default:
			store = evidence.NewMemoryStorage(0)
		}
	}

	// Collectors register against the host's registry only when metrics are
	// enabled; otherwise they stay on a private registry and record into
	// the void.
	metricsRegistry := registry
	if !cfg.Metrics.Enabled {
		metricsRegistry = nil
	}

	m := &Monitor{
		contexts:  make(map[uuid.UUID]*Context),
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(&metrics.Config{Namespace: cfg.Metrics.Namespace}, metricsRegistry),
		store:     store,
	}
	if store != nil && cfg.Evidence.RetentionDays > 0 {
		pruner, err := evidence.NewPruner(store, cfg.Evidence.RetentionDays, cfg.Evidence.PruneSchedule, logger.Logger)
		if err != nil {
			return nil, errcode.Wrap(errcode.InvalidOperation, err, "building evidence pruner")
		}
		if err := pruner.Start(); err != nil {
			return nil, errcode.Wrap(errcode.InvalidOperation, err, "starting evidence pruner")
		}
		m.pruner = pruner
	}
	return m, nil
}

var (
	instance     *Monitor
	instanceOnce sync.Once
)

// Instance returns the lazily-initialized process-wide monitor, the
// registry the ABI surface binds to.
func Instance() *Monitor {
	instanceOnce.Do(func() {
		m, err := New(nil, nil)
		if err != nil {
			// Defaults cannot fail validation; a failure here is a
			// programming error.
			panic(err)
		}
		instance = m
	})
	return instance
}

// Reconfigure applies a freshly loaded configuration to the running
// monitor. Contexts opened afterwards pick up the new defaults and paths;
// the logger, metrics registration, and evidence backend are fixed at
// construction and keep their settings until the monitor is rebuilt.
func (m *Monitor) Reconfigure(cfg *config.Config) error {
	if cfg == nil {
		return errcode.New(errcode.InvalidOperation, "configuration must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return errcode.Wrap(errcode.InvalidOperation, err, "validating configuration")
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	m.logger.Info("configuration reloaded",
		"profiling", cfg.Profiling,
		"tracing", cfg.Tracing,
	)
	return nil
}

// WatchConfig hot-reloads the monitor's configuration whenever the file at
// path changes, until ctx is cancelled. An invalid rewrite is logged and
// skipped; the previous configuration stays in effect.
func (m *Monitor) WatchConfig(ctx context.Context, path string) error {
	events, err := config.Watch(ctx, path)
	if err != nil {
		return errcode.Wrap(errcode.InvalidOperation, err, "watching configuration %q", path)
	}
	go func() {
		for ev := range events {
			if ev.Err != nil {
				m.logger.Warn("configuration reload failed", "path", path, "error", ev.Err)
				continue
			}
			if err := m.Reconfigure(ev.Config); err != nil {
				m.logger.Warn("configuration reload rejected", "path", path, "error", err)
			}
		}
	}()
	return nil
}

func (m *Monitor) config() *config.Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// OpenNew opens a fresh context and returns its identifier.
func (m *Monitor) OpenNew() (uuid.UUID, error) {
	cfg := m.config()
	id := uuid.New()
	ctx := newContext(id, m.logger, m.collector, m.store, cfg.ProfilePath, cfg.TracePath)
	if cfg.Tracing {
		if err := ctx.EnableTracing(true); err != nil {
			return uuid.Nil, err
		}
	}
	ctx.EnableProfiling(cfg.Profiling)

	m.mu.Lock()
	m.contexts[id] = ctx
	m.mu.Unlock()
	m.collector.ContextOpened()
	m.logger.Info("opened context", "context", id)
	return id, nil
}

// Get returns the context with the given identifier.
func (m *Monitor) Get(id uuid.UUID) (*Context, error) {
	m.mu.RLock()
	ctx, ok := m.contexts[id]
	m.mu.RUnlock()
	if !ok {
		return nil, errcode.New(errcode.NoEntry, "context %s does not exist", id)
	}
	return ctx, nil
}

// Drop tears down a context. Its arenas become unreachable; identifiers
// minted from it are dead.
func (m *Monitor) Drop(id uuid.UUID) error {
	m.mu.Lock()
	_, ok := m.contexts[id]
	if ok {
		delete(m.contexts, id)
	}
	m.mu.Unlock()
	if !ok {
		return errcode.New(errcode.NoEntry, "context %s does not exist", id)
	}
	m.collector.ContextClosed()
	m.logger.Info("dropped context", "context", id)
	return nil
}

// Evidence returns the monitor's evidence storage, nil when disabled.
func (m *Monitor) Evidence() evidence.Storage {
	return m.store
}

// Close tears down every context and releases shared resources.
func (m *Monitor) Close() error {
	m.mu.Lock()
	for id := range m.contexts {
		delete(m.contexts, id)
		m.collector.ContextClosed()
	}
	m.mu.Unlock()
	if m.pruner != nil {
		m.pruner.Stop()
	}
	if m.store != nil {
		return m.store.Close()
	}
	return nil
}
