package attune

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// runtimeIDCounter numbers runtimes for logs and lifecycle events.
// Primitive IDs are per-runtime; this is the only process-wide counter.
var runtimeIDCounter atomic.Uint64

// Runtime owns one independent reactive graph: the tracking context that
// records dependency edges, the flush scheduler, and the ID space for the
// primitives created on it. Runtimes never share state, so isolated graphs
// (one per test, one per tenant) coexist in a single process.
//
// Tracked execution is driven by one goroutine at a time per Runtime.
// Writes may arrive from any goroutine; a write landing while another
// goroutine's flush is active is coalesced into that flush.
type Runtime struct {
	id        uint64
	idCounter atomic.Uint64

	logger    *slog.Logger
	collector Collector
	clock     clockz.Clock

	maxFlushPasses int
	stormPolicy    StormPolicy
	emitEvents     bool

	// trackMu guards the tracking pointers. It is held only for the
	// pointer swap, never across user code.
	trackMu         sync.RWMutex
	currentListener Listener
	currentOwner    *Owner

	// mu guards the scheduler state below, same holding rule.
	mu         sync.Mutex
	batchDepth int
	flushing   bool
	queue      []*Effect

	signalsCreated atomic.Int64
	liveMemos      atomic.Int64
	liveEffects    atomic.Int64
	flushes        atomic.Uint64
	effectRuns     atomic.Uint64
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the logger used for scheduler diagnostics.
// Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(rt *Runtime) {
		rt.logger = logger
	}
}

// WithCollector sets the metrics collector invoked on writes, effect runs,
// memo recomputations and flushes. Defaults to NoopCollector.
func WithCollector(c Collector) Option {
	return func(rt *Runtime) {
		rt.collector = c
	}
}

// WithClock sets the clock used to time flushes.
// Use clockz.NewFakeClock() in tests. Defaults to clockz.RealClock.
func WithClock(clock clockz.Clock) Option {
	return func(rt *Runtime) {
		rt.clock = clock
	}
}

// WithMaxFlushPasses sets how many passes a single flush may take before
// the runtime treats it as an update storm. Each pass drains the effects
// queued by the previous one, so a healthy graph settles in a handful of
// passes. Default 100.
func WithMaxFlushPasses(n int) Option {
	return func(rt *Runtime) {
		if n > 0 {
			rt.maxFlushPasses = n
		}
	}
}

// WithStormPolicy sets how the runtime reacts when a flush exceeds the
// pass limit. Default StormPanic.
func WithStormPolicy(p StormPolicy) Option {
	return func(rt *Runtime) {
		rt.stormPolicy = p
	}
}

// WithLifecycleEvents enables capitan event emission for flushes and
// disposals. Storm events are always emitted. Off by default: flushes are
// hot-path and most applications only hook the exceptional events.
func WithLifecycleEvents() Option {
	return func(rt *Runtime) {
		rt.emitEvents = true
	}
}

// NewRuntime creates an empty reactive graph.
func NewRuntime(opts ...Option) *Runtime {
	rt := &Runtime{
		id:             runtimeIDCounter.Add(1),
		logger:         slog.Default(),
		collector:      NoopCollector{},
		clock:          clockz.RealClock,
		maxFlushPasses: defaultMaxFlushPasses,
		stormPolicy:    StormPanic,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// nextID returns the next unique ID for a primitive on this runtime.
// IDs are monotonically increasing and never reused; flush ordering and
// subscriber deduplication rely on them.
func (rt *Runtime) nextID() uint64 {
	return rt.idCounter.Add(1)
}

// listener returns the computation currently tracking dependencies,
// or nil when reads should not register edges.
func (rt *Runtime) listener() Listener {
	rt.trackMu.RLock()
	l := rt.currentListener
	rt.trackMu.RUnlock()
	return l
}

// setListener installs l as the tracking target and returns the previous
// one so callers can restore it.
func (rt *Runtime) setListener(l Listener) Listener {
	rt.trackMu.Lock()
	old := rt.currentListener
	rt.currentListener = l
	rt.trackMu.Unlock()
	return old
}

// owner returns the Owner that newly created computations register with.
func (rt *Runtime) owner() *Owner {
	rt.trackMu.RLock()
	o := rt.currentOwner
	rt.trackMu.RUnlock()
	return o
}

func (rt *Runtime) setOwner(o *Owner) *Owner {
	rt.trackMu.Lock()
	old := rt.currentOwner
	rt.currentOwner = o
	rt.trackMu.Unlock()
	return old
}

// WithOwner runs fn with owner as the current owner, so computations
// created inside fn are disposed with it. Panics wrapping
// ErrDifferentRuntime if the owner was created on another runtime, and
// wrapping ErrDisposed if it has already been disposed.
func (rt *Runtime) WithOwner(owner *Owner, fn func()) {
	if owner != nil {
		owner.assertUsable(rt)
	}
	old := rt.setOwner(owner)
	defer rt.setOwner(old)
	fn()
}

// WithListener runs fn with l as the tracking target, so signal reads
// inside fn subscribe l instead of the surrounding computation. Intended
// for integrations that bridge the graph to external schedulers.
func (rt *Runtime) WithListener(l Listener, fn func()) {
	old := rt.setListener(l)
	defer rt.setListener(old)
	fn()
}

// Untracked runs fn with dependency tracking suspended: signal reads
// inside fn register no edges. For a single read, Signal.Peek is clearer.
func (rt *Runtime) Untracked(fn func()) {
	old := rt.setListener(nil)
	defer rt.setListener(old)
	fn()
}

// Untrack runs fn with dependency tracking suspended and returns its
// result.
func Untrack[T any](rt *Runtime, fn func() T) T {
	var result T
	rt.Untracked(func() {
		result = fn()
	})
	return result
}

// UntrackedGet reads a signal's value without creating a dependency.
// Equivalent to s.Peek().
func UntrackedGet[T any](s *Signal[T]) T {
	return s.Peek()
}

// OnCleanup registers fn against the currently executing computation, or
// the current owner when called outside one. It runs exactly once: before
// the computation's next re-execution or at disposal, whichever comes
// first. Outside both a computation and an owner the registration is
// dropped with a debug log, since nothing would ever run it.
func (rt *Runtime) OnCleanup(fn func()) {
	if l := rt.listener(); l != nil {
		if c, ok := l.(computation); ok {
			c.addCleanup(fn)
			return
		}
	}
	if o := rt.owner(); o != nil {
		o.OnCleanup(fn)
		return
	}
	if rt.logger.Enabled(context.Background(), slog.LevelDebug) {
		rt.logger.Debug("attune: OnCleanup outside computation and owner, dropped",
			"runtime", rt.id)
	}
}

// Stats is a point-in-time snapshot of a runtime's graph and scheduler.
type Stats struct {
	// SignalsCreated counts every signal ever created on the runtime.
	// Signals carry no disposal state, so there is no live count.
	SignalsCreated int64

	// LiveMemos and LiveEffects count computations not yet disposed.
	LiveMemos   int64
	LiveEffects int64

	// Flushes counts completed flushes; EffectRuns counts effect
	// executions including initial runs.
	Flushes    uint64
	EffectRuns uint64

	// QueueDepth is the number of effects currently awaiting a flush.
	QueueDepth int
}

// Stats returns a snapshot of the runtime's counters.
func (rt *Runtime) Stats() Stats {
	rt.mu.Lock()
	depth := len(rt.queue)
	rt.mu.Unlock()

	return Stats{
		SignalsCreated: rt.signalsCreated.Load(),
		LiveMemos:      rt.liveMemos.Load(),
		LiveEffects:    rt.liveEffects.Load(),
		Flushes:        rt.flushes.Load(),
		EffectRuns:     rt.effectRuns.Load(),
		QueueDepth:     depth,
	}
}

// ID returns the runtime's process-unique identifier, as carried in logs
// and lifecycle events.
func (rt *Runtime) ID() uint64 {
	return rt.id
}
