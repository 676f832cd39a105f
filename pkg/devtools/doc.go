// Package devtools provides observability for attune runtimes.
//
// This package includes:
//   - A Prometheus collector exporting scheduler and fetch metrics
//   - An OpenTelemetry tracer recording flush spans
//   - An HTTP server exposing graph stats, metrics and a live event stream
//
// # Prometheus Metrics
//
// PrometheusCollector implements attune.Collector:
//   - attune_writes_total: Signal writes that changed a value
//   - attune_effect_runs_total: Effect executions
//   - attune_flushes_total: Settled flushes
//   - attune_flush_passes: Drain passes per flush histogram
//   - attune_flush_duration_seconds: Flush duration histogram
//
// Calling ObserveEvents adds counters for storms, resource fetches,
// preload lookups and config reloads, fed by lifecycle events.
//
//	collector := devtools.NewPrometheusCollector().ObserveEvents()
//	rt := attune.NewRuntime(attune.WithCollector(collector))
//
// # Tracing
//
// Tracer records each settled flush as a span against the global
// OpenTelemetry provider. Combine both collectors with MultiCollector:
//
//	rt := attune.NewRuntime(attune.WithCollector(devtools.MultiCollector{
//	    devtools.NewPrometheusCollector(),
//	    devtools.NewTracer().ObserveStorms(),
//	}))
//
// # Debug Server
//
// Server exposes /healthz, /graph, /metrics and a /events WebSocket
// stream, typically on a loopback port:
//
//	dt := devtools.NewServer(rt)
//	defer dt.Close()
//	go http.ListenAndServe("localhost:6060", dt)
package devtools
