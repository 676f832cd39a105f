package devtools

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/attune-dev/attune/pkg/attune"
)

// Default tracer name for runtime spans.
const defaultTracerName = "attune"

// TracerConfig configures the OpenTelemetry tracer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "attune").
	TracerName string

	// MinFlushDuration drops spans for flushes that settle faster than
	// this. Zero traces every flush.
	MinFlushDuration time.Duration
}

// TracerOption configures the OpenTelemetry tracer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithMinFlushDuration sets the duration below which flushes are not
// traced.
func WithMinFlushDuration(d time.Duration) TracerOption {
	return func(c *TracerConfig) {
		c.MinFlushDuration = d
	}
}

func defaultTracerConfig() TracerConfig {
	return TracerConfig{
		TracerName:       defaultTracerName,
		MinFlushDuration: 0,
	}
}

// Tracer records runtime flushes as OpenTelemetry spans. Pass it to a
// runtime via attune.WithCollector; combine with a PrometheusCollector
// through MultiCollector.
//
// Each settled flush becomes an "attune.flush" span covering the flush's
// wall time, with pass and effect counts as attributes. Writes, effect
// runs and memo recomputations are not traced individually; at signal
// granularity the span overhead would dwarf the work being measured.
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before creating the runtime:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	)
//	otel.SetTracerProvider(tp)
//	rt := attune.NewRuntime(attune.WithCollector(devtools.NewTracer()))
type Tracer struct {
	tracer  trace.Tracer
	minDur  time.Duration
	observe sync.Once
}

// NewTracer creates a tracer resolving from the global provider.
func NewTracer(opts ...TracerOption) *Tracer {
	config := defaultTracerConfig()
	for _, opt := range opts {
		opt(&config)
	}

	return &Tracer{
		tracer: otel.Tracer(config.TracerName),
		minDur: config.MinFlushDuration,
	}
}

var _ attune.Collector = (*Tracer)(nil)

// RecordWrite implements attune.Collector. Individual writes are not
// traced.
func (t *Tracer) RecordWrite() {}

// RecordEffectRun implements attune.Collector. Individual effect runs
// are not traced; the enclosing flush span carries the run count.
func (t *Tracer) RecordEffectRun() {}

// RecordMemoRecompute implements attune.Collector.
func (t *Tracer) RecordMemoRecompute() {}

// RecordFlush implements attune.Collector. The span is recorded
// retroactively: it starts duration before now and ends now.
func (t *Tracer) RecordFlush(passes, effects int, duration time.Duration) {
	if duration < t.minDur {
		return
	}

	end := time.Now()
	_, span := t.tracer.Start(
		context.Background(),
		"attune.flush",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithTimestamp(end.Add(-duration)),
		trace.WithAttributes(
			attribute.Int("attune.flush.passes", passes),
			attribute.Int("attune.flush.effect_runs", effects),
		),
	)
	span.SetStatus(codes.Ok, "")
	span.End(trace.WithTimestamp(end))
}

// ObserveStorms additionally records an error span for every flush the
// storm policy aborts, for any runtime in the process. Returns the
// tracer for chaining.
//
// The hook cannot be unregistered, so a tracer that observes storms
// stays reachable for the life of the process.
func (t *Tracer) ObserveStorms() *Tracer {
	t.observe.Do(func() {
		capitan.Hook(attune.FlushStormDetected, func(_ context.Context, e *capitan.Event) {
			passes, _ := attune.KeyPasses.From(e)
			queued, _ := attune.KeyQueued.From(e)
			policy, _ := attune.KeyPolicy.From(e)
			effects, _ := attune.KeyEffects.From(e)

			_, span := t.tracer.Start(
				context.Background(),
				"attune.flush.storm",
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.Int("attune.flush.passes", passes),
					attribute.Int("attune.flush.queued", queued),
					attribute.String("attune.storm.policy", policy),
					attribute.String("attune.storm.effects", effects),
				),
			)
			span.SetStatus(codes.Error, "flush exceeded pass limit")
			span.End()
		})
	})
	return t
}

// MultiCollector fans collector callbacks out to several collectors, so
// one runtime can feed Prometheus and tracing at once:
//
//	rt := attune.NewRuntime(attune.WithCollector(devtools.MultiCollector{
//	    devtools.NewPrometheusCollector(),
//	    devtools.NewTracer(),
//	}))
type MultiCollector []attune.Collector

var _ attune.Collector = MultiCollector(nil)

// RecordWrite implements attune.Collector.
func (m MultiCollector) RecordWrite() {
	for _, c := range m {
		c.RecordWrite()
	}
}

// RecordEffectRun implements attune.Collector.
func (m MultiCollector) RecordEffectRun() {
	for _, c := range m {
		c.RecordEffectRun()
	}
}

// RecordMemoRecompute implements attune.Collector.
func (m MultiCollector) RecordMemoRecompute() {
	for _, c := range m {
		c.RecordMemoRecompute()
	}
}

// RecordFlush implements attune.Collector.
func (m MultiCollector) RecordFlush(passes, effects int, duration time.Duration) {
	for _, c := range m {
		c.RecordFlush(passes, effects, duration)
	}
}
