package devtools

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/zoobzio/capitan"

	"github.com/attune-dev/attune/pkg/attune"
	"github.com/attune-dev/attune/pkg/features/confsig"
	"github.com/attune-dev/attune/pkg/features/resource"
)

// ServerConfig configures the devtools HTTP server.
type ServerConfig struct {
	// Gatherer backs GET /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// ServerOption configures the devtools HTTP server.
type ServerOption func(*ServerConfig)

// WithGatherer sets the registry gathered by GET /metrics. Pair it with
// the registry passed to NewPrometheusCollector via WithRegistry.
func WithGatherer(g prometheus.Gatherer) ServerOption {
	return func(c *ServerConfig) {
		c.Gatherer = g
	}
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{
		Gatherer: prometheus.DefaultGatherer,
	}
}

// GraphStats is the JSON body served by GET /graph.
type GraphStats struct {
	Runtime        uint64 `json:"runtime"`
	SignalsCreated int64  `json:"signals_created"`
	LiveMemos      int64  `json:"live_memos"`
	LiveEffects    int64  `json:"live_effects"`
	Flushes        uint64 `json:"flushes"`
	EffectRuns     uint64 `json:"effect_runs"`
	QueueDepth     int    `json:"queue_depth"`
	Subscribers    int    `json:"subscribers"`
}

// Server exposes one runtime's internals over HTTP for debugging:
//
//	GET /healthz  liveness probe
//	GET /graph    graph and scheduler counters as JSON
//	GET /metrics  Prometheus exposition
//	GET /events   WebSocket stream of lifecycle events as JSON
//
// Mount it on its own port or under a router:
//
//	dt := devtools.NewServer(rt)
//	defer dt.Close()
//	go http.ListenAndServe("localhost:6060", dt)
//
// The event stream relays events from every runtime, resource and
// binding in the process, not only the registered runtime. Create one
// Server per process; each one registers its own event hooks and hooks
// cannot be unregistered.
type Server struct {
	rt  *attune.Runtime
	hub *eventHub
	mux *chi.Mux
}

// NewServer creates a devtools server for rt and subscribes it to
// lifecycle events.
func NewServer(rt *attune.Runtime, opts ...ServerOption) *Server {
	config := defaultServerConfig()
	for _, opt := range opts {
		opt(&config)
	}

	s := &Server{
		rt:  rt,
		hub: newEventHub(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/graph", s.handleGraph)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/events", s.hub.handleWebSocket)
	s.mux = r

	s.watchEvents()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Handler returns the server's router, for mounting under a path prefix.
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Subscribers returns the number of connected /events clients.
func (s *Server) Subscribers() int {
	return s.hub.clientCount()
}

// Close disconnects all event subscribers. The HTTP routes keep
// working; events emitted after Close are broadcast to nobody until a
// client reconnects.
func (s *Server) Close() {
	s.hub.close()
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	stats := s.rt.Stats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GraphStats{
		Runtime:        s.rt.ID(),
		SignalsCreated: stats.SignalsCreated,
		LiveMemos:      stats.LiveMemos,
		LiveEffects:    stats.LiveEffects,
		Flushes:        stats.Flushes,
		EffectRuns:     stats.EffectRuns,
		QueueDepth:     stats.QueueDepth,
		Subscribers:    s.hub.clientCount(),
	})
}

// emit forwards one event to the hub with a capture timestamp.
func (s *Server) emit(signal string, fields map[string]any) {
	s.hub.broadcast(StreamEvent{Signal: signal, Time: time.Now(), Fields: fields})
}

// watchEvents relays lifecycle events from all packages to the hub.
// Delivery is asynchronous, so subscribers see events shortly after the
// emitting call, in capitan's dispatch order.
func (s *Server) watchEvents() {
	capitan.Hook(attune.FlushCompleted, func(_ context.Context, e *capitan.Event) {
		rtID, _ := attune.KeyRuntime.From(e)
		passes, _ := attune.KeyPasses.From(e)
		runs, _ := attune.KeyEffectRuns.From(e)
		d, _ := attune.KeyDuration.From(e)
		s.emit("attune.flush.completed", map[string]any{
			"runtime":     rtID,
			"passes":      passes,
			"effect_runs": runs,
			"duration":    d.String(),
		})
	})

	capitan.Hook(attune.FlushStormDetected, func(_ context.Context, e *capitan.Event) {
		rtID, _ := attune.KeyRuntime.From(e)
		passes, _ := attune.KeyPasses.From(e)
		queued, _ := attune.KeyQueued.From(e)
		policy, _ := attune.KeyPolicy.From(e)
		effects, _ := attune.KeyEffects.From(e)
		s.emit("attune.flush.storm", map[string]any{
			"runtime": rtID,
			"passes":  passes,
			"queued":  queued,
			"policy":  policy,
			"effects": effects,
		})
	})

	capitan.Hook(attune.EffectDisposed, func(_ context.Context, e *capitan.Event) {
		rtID, _ := attune.KeyRuntime.From(e)
		id, _ := attune.KeyEffectID.From(e)
		name, _ := attune.KeyEffectName.From(e)
		s.emit("attune.effect.disposed", map[string]any{
			"runtime":     rtID,
			"effect_id":   id,
			"effect_name": name,
		})
	})

	capitan.Hook(resource.FetchStarted, func(_ context.Context, e *capitan.Event) {
		name, _ := resource.KeyResource.From(e)
		rtID, _ := resource.KeyRuntime.From(e)
		gen, _ := resource.KeyGeneration.From(e)
		trigger, _ := resource.KeyTrigger.From(e)
		s.emit("resource.fetch.started", map[string]any{
			"resource":   name,
			"runtime":    rtID,
			"generation": gen,
			"trigger":    trigger,
		})
	})

	capitan.Hook(resource.FetchSettled, func(_ context.Context, e *capitan.Event) {
		name, _ := resource.KeyResource.From(e)
		rtID, _ := resource.KeyRuntime.From(e)
		gen, _ := resource.KeyGeneration.From(e)
		outcome, _ := resource.KeyOutcome.From(e)
		errMsg, _ := resource.KeyError.From(e)
		d, _ := resource.KeyDuration.From(e)
		s.emit("resource.fetch.settled", map[string]any{
			"resource":   name,
			"runtime":    rtID,
			"generation": gen,
			"outcome":    outcome,
			"error":      errMsg,
			"duration":   d.String(),
		})
	})

	capitan.Hook(resource.FetchRetried, func(_ context.Context, e *capitan.Event) {
		name, _ := resource.KeyResource.From(e)
		rtID, _ := resource.KeyRuntime.From(e)
		gen, _ := resource.KeyGeneration.From(e)
		attempt, _ := resource.KeyAttempt.From(e)
		errMsg, _ := resource.KeyError.From(e)
		s.emit("resource.fetch.retried", map[string]any{
			"resource":   name,
			"runtime":    rtID,
			"generation": gen,
			"attempt":    attempt,
			"error":      errMsg,
		})
	})

	capitan.Hook(resource.FetchDiscarded, func(_ context.Context, e *capitan.Event) {
		name, _ := resource.KeyResource.From(e)
		rtID, _ := resource.KeyRuntime.From(e)
		gen, _ := resource.KeyGeneration.From(e)
		outcome, _ := resource.KeyOutcome.From(e)
		s.emit("resource.fetch.discarded", map[string]any{
			"resource":   name,
			"runtime":    rtID,
			"generation": gen,
			"outcome":    outcome,
		})
	})

	capitan.Hook(resource.PreloadHit, func(_ context.Context, e *capitan.Event) {
		key, _ := resource.KeyCacheKey.From(e)
		s.emit("resource.preload.hit", map[string]any{"key": key})
	})

	capitan.Hook(resource.PreloadMiss, func(_ context.Context, e *capitan.Event) {
		key, _ := resource.KeyCacheKey.From(e)
		s.emit("resource.preload.miss", map[string]any{"key": key})
	})

	capitan.Hook(resource.PreloadStored, func(_ context.Context, e *capitan.Event) {
		key, _ := resource.KeyCacheKey.From(e)
		s.emit("resource.preload.stored", map[string]any{"key": key})
	})

	capitan.Hook(resource.PreloadExpired, func(_ context.Context, e *capitan.Event) {
		key, _ := resource.KeyCacheKey.From(e)
		s.emit("resource.preload.expired", map[string]any{"key": key})
	})

	capitan.Hook(confsig.BindingApplied, func(_ context.Context, e *capitan.Event) {
		name, _ := confsig.KeyBinding.From(e)
		rtID, _ := confsig.KeyRuntime.From(e)
		s.emit("confsig.binding.applied", map[string]any{
			"binding": name,
			"runtime": rtID,
		})
	})

	capitan.Hook(confsig.BindingRejected, func(_ context.Context, e *capitan.Event) {
		name, _ := confsig.KeyBinding.From(e)
		rtID, _ := confsig.KeyRuntime.From(e)
		reason, _ := confsig.KeyReason.From(e)
		errMsg, _ := confsig.KeyError.From(e)
		s.emit("confsig.binding.rejected", map[string]any{
			"binding": name,
			"runtime": rtID,
			"reason":  reason,
			"error":   errMsg,
		})
	})

	capitan.Hook(confsig.BindingStateChanged, func(_ context.Context, e *capitan.Event) {
		name, _ := confsig.KeyBinding.From(e)
		rtID, _ := confsig.KeyRuntime.From(e)
		oldState, _ := confsig.KeyOldState.From(e)
		newState, _ := confsig.KeyNewState.From(e)
		s.emit("confsig.binding.state.changed", map[string]any{
			"binding":   name,
			"runtime":   rtID,
			"old_state": oldState,
			"new_state": newState,
		})
	})
}
