package devtools

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/zoobzio/capitan"

	"github.com/attune-dev/attune/pkg/attune"
	"github.com/attune-dev/attune/pkg/features/confsig"
	"github.com/attune-dev/attune/pkg/features/resource"
)

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "attune").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// DurationBuckets are the histogram buckets for flush and fetch
	// durations. Default: prometheus.DefBuckets.
	DurationBuckets []float64

	// PassBuckets are the histogram buckets for flush pass counts.
	PassBuckets []float64

	// Registry is the Prometheus registry to register with.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collector.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithDurationBuckets sets the duration histogram buckets.
func WithDurationBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.DurationBuckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:       "attune",
		Subsystem:       "",
		ConstLabels:     nil,
		DurationBuckets: prometheus.DefBuckets,
		PassBuckets:     []float64{1, 2, 3, 5, 8, 13, 21, 34},
		Registry:        prometheus.DefaultRegisterer,
	}
}

// PrometheusCollector exports runtime counters as Prometheus metrics.
// Pass it to a runtime via attune.WithCollector, then expose the
// registry through promhttp or the devtools Server.
//
// Metrics collected from the runtime:
//   - attune_writes_total: Counter of signal writes that changed a value
//   - attune_effect_runs_total: Counter of effect executions
//   - attune_memo_recomputes_total: Counter of memo recomputations
//   - attune_flushes_total: Counter of settled flushes
//   - attune_flush_passes: Histogram of drain passes per flush
//   - attune_flush_duration_seconds: Histogram of flush wall time
//
// ObserveEvents adds counters fed by lifecycle events:
//   - attune_storms_total: Counter of aborted flushes
//   - attune_fetches_total: Counter of settled fetches by outcome
//   - attune_fetch_retries_total: Counter of fetch retry attempts
//   - attune_fetch_duration_seconds: Histogram of fetch wall time
//   - attune_preload_lookups_total: Counter of preload lookups by result
//   - attune_config_reloads_total: Counter of config changes by outcome
//
// Example:
//
//	collector := devtools.NewPrometheusCollector().ObserveEvents()
//	rt := attune.NewRuntime(attune.WithCollector(collector))
//	http.Handle("/metrics", promhttp.Handler())
type PrometheusCollector struct {
	writes         prometheus.Counter
	effectRuns     prometheus.Counter
	memoRecomputes prometheus.Counter
	flushes        prometheus.Counter
	flushPasses    prometheus.Histogram
	flushDuration  prometheus.Histogram

	storms         prometheus.Counter
	fetchesTotal   *prometheus.CounterVec
	fetchRetries   prometheus.Counter
	fetchDuration  prometheus.Histogram
	preloadLookups *prometheus.CounterVec
	configReloads  *prometheus.CounterVec

	observeOnce sync.Once
}

// NewPrometheusCollector creates and registers the collector's metrics.
// Registration panics on duplicate metric names, so create at most one
// collector per registry.
func NewPrometheusCollector(opts ...MetricsOption) *PrometheusCollector {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &PrometheusCollector{
		writes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of signal writes that changed a value",
			ConstLabels: config.ConstLabels,
		}),

		effectRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "effect_runs_total",
			Help:        "Total number of effect executions",
			ConstLabels: config.ConstLabels,
		}),

		memoRecomputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "memo_recomputes_total",
			Help:        "Total number of memo recomputations",
			ConstLabels: config.ConstLabels,
		}),

		flushes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of settled flushes",
			ConstLabels: config.ConstLabels,
		}),

		flushPasses: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_passes",
			Help:        "Drain passes per flush",
			ConstLabels: config.ConstLabels,
			Buckets:     config.PassBuckets,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Flush wall time in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.DurationBuckets,
		}),

		storms: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "storms_total",
			Help:        "Total number of flushes aborted by the storm policy",
			ConstLabels: config.ConstLabels,
		}),

		fetchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetches_total",
			Help:        "Total number of settled resource fetches by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		fetchRetries: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_retries_total",
			Help:        "Total number of resource fetch retry attempts",
			ConstLabels: config.ConstLabels,
		}),

		fetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "fetch_duration_seconds",
			Help:        "Resource fetch wall time in seconds, including retries",
			ConstLabels: config.ConstLabels,
			Buckets:     config.DurationBuckets,
		}),

		preloadLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "preload_lookups_total",
			Help:        "Total number of preload cache lookups by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		configReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "config_reloads_total",
			Help:        "Total number of config binding changes by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),
	}
}

var _ attune.Collector = (*PrometheusCollector)(nil)

// RecordWrite implements attune.Collector.
func (c *PrometheusCollector) RecordWrite() {
	c.writes.Inc()
}

// RecordEffectRun implements attune.Collector.
func (c *PrometheusCollector) RecordEffectRun() {
	c.effectRuns.Inc()
}

// RecordMemoRecompute implements attune.Collector.
func (c *PrometheusCollector) RecordMemoRecompute() {
	c.memoRecomputes.Inc()
}

// RecordFlush implements attune.Collector.
func (c *PrometheusCollector) RecordFlush(passes, effects int, duration time.Duration) {
	c.flushes.Inc()
	c.flushPasses.Observe(float64(passes))
	c.flushDuration.Observe(duration.Seconds())
}

// ObserveEvents subscribes the collector to lifecycle events from all
// runtimes, resources and config bindings in the process. Returns the
// collector for chaining.
//
// Hooks cannot be unregistered; a collector that has observed events
// stays reachable for the life of the process. Events are delivered
// asynchronously, so the counters trail the emitting call.
func (c *PrometheusCollector) ObserveEvents() *PrometheusCollector {
	c.observeOnce.Do(c.hookEvents)
	return c
}

func (c *PrometheusCollector) hookEvents() {
	capitan.Hook(attune.FlushStormDetected, func(_ context.Context, e *capitan.Event) {
		c.storms.Inc()
	})

	capitan.Hook(resource.FetchSettled, func(_ context.Context, e *capitan.Event) {
		outcome, _ := resource.KeyOutcome.From(e)
		c.fetchesTotal.WithLabelValues(outcome).Inc()
		if d, ok := resource.KeyDuration.From(e); ok {
			c.fetchDuration.Observe(d.Seconds())
		}
	})

	capitan.Hook(resource.FetchRetried, func(_ context.Context, e *capitan.Event) {
		c.fetchRetries.Inc()
	})

	capitan.Hook(resource.PreloadHit, func(_ context.Context, e *capitan.Event) {
		c.preloadLookups.WithLabelValues("hit").Inc()
	})

	capitan.Hook(resource.PreloadMiss, func(_ context.Context, e *capitan.Event) {
		c.preloadLookups.WithLabelValues("miss").Inc()
	})

	capitan.Hook(confsig.BindingApplied, func(_ context.Context, e *capitan.Event) {
		c.configReloads.WithLabelValues("applied").Inc()
	})

	capitan.Hook(confsig.BindingRejected, func(_ context.Context, e *capitan.Event) {
		c.configReloads.WithLabelValues("rejected").Inc()
	})
}
