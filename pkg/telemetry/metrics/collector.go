package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config contains configuration for the metrics collector.
type Config struct {
	// Namespace is the metric name prefix. Default: "cellguard".
	Namespace string

	// DurationBuckets are the histogram buckets for operation durations.
	// The defaults are tuned for in-process propagation (10µs – 1s).
	DurationBuckets []float64
}

// Collector records the monitor's operational metrics.
type Collector struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	breachesTotal     prometheus.Counter
	activeContexts    prometheus.Gauge
	frameRows         *prometheus.SummaryVec
}

// NewCollector creates and registers the monitor's metrics with the
// provided registry. A nil registry creates a private one, keeping the
// collector inert but safe to call.
func NewCollector(cfg *Config, registry *prometheus.Registry) *Collector {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "cellguard"
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 0.5, 1.0}
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "operations_total",
				Help:      "Total operator executions by kind and outcome",
			},
			[]string{"op", "outcome"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of policy propagation per operator",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"op"},
		),
		breachesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Name:      "privacy_breaches_total",
				Help:      "Discharge rejections and sink failures",
			},
		),
		activeContexts: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Name:      "active_contexts",
				Help:      "Currently open contexts",
			},
		),
		frameRows: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Namespace: cfg.Namespace,
				Name:      "frame_rows",
				Help:      "Output frame row counts by operator kind",
			},
			[]string{"op"},
		),
	}

	registry.MustRegister(
		c.operationsTotal,
		c.operationDuration,
		c.breachesTotal,
		c.activeContexts,
		c.frameRows,
	)
	return c
}

// RecordOperation records one operator execution.
func (c *Collector) RecordOperation(op, outcome string, d time.Duration, rows int) {
	c.operationsTotal.WithLabelValues(op, outcome).Inc()
	c.operationDuration.WithLabelValues(op).Observe(d.Seconds())
	c.frameRows.WithLabelValues(op).Observe(float64(rows))
}

// RecordBreach records a privacy breach.
func (c *Collector) RecordBreach() {
	c.breachesTotal.Inc()
}

// ContextOpened increments the active context gauge.
func (c *Collector) ContextOpened() {
	c.activeContexts.Inc()
}

// ContextClosed decrements the active context gauge.
func (c *Collector) ContextClosed() {
	c.activeContexts.Dec()
}
