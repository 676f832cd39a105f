package attune

import (
	"sync"
	"sync/atomic"
)

// Effect is a reactive side effect. It runs immediately when created and
// re-runs whenever a signal or memo it read during its last run changes.
// The body may return a Cleanup to release resources; it is called before
// the next run and at disposal, along with anything registered through
// Runtime.OnCleanup during the run.
type Effect struct {
	rt *Runtime
	id uint64

	fn func() Cleanup

	// name is carried into lifecycle events and storm diagnostics.
	name string

	srcMu   sync.Mutex
	sources []*signalBase

	cleanMu  sync.Mutex
	cleanups []func()

	pending  atomic.Bool
	disposed atomic.Bool
}

// EffectOption configures an Effect at creation.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *Effect)
}

type effectOptionFunc func(*Effect)

func (f effectOptionFunc) isEffectOption()       {}
func (f effectOptionFunc) applyEffect(e *Effect) { f(e) }

// EffectName names the effect for logs and lifecycle events. Unnamed
// effects are identified by ID only.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(e *Effect) {
		e.name = name
	})
}

// CreateEffect creates an effect on rt and runs it immediately. The effect
// registers with the current owner, if any, and is disposed with it.
//
// Example:
//
//	attune.CreateEffect(rt, func() attune.Cleanup {
//	    fmt.Println("count is", count.Get())
//	    return nil
//	})
func CreateEffect(rt *Runtime, fn func() Cleanup, opts ...EffectOption) *Effect {
	e := &Effect{
		rt: rt,
		id: rt.nextID(),
		fn: fn,
	}
	for _, opt := range opts {
		opt.applyEffect(e)
	}

	if o := rt.owner(); o != nil {
		o.register(e)
	}
	rt.liveEffects.Add(1)

	e.run()
	return e
}

// MarkDirty schedules the effect for the next flush. Implements Listener.
// Marking is idempotent until the effect runs again.
func (e *Effect) MarkDirty() {
	if e.disposed.Load() {
		return
	}
	if e.pending.CompareAndSwap(false, true) {
		e.rt.enqueue(e)
	}
}

// ID returns the effect's runtime-unique identifier. Implements Listener.
func (e *Effect) ID() uint64 {
	return e.id
}

// run executes the effect body under dependency tracking. Called at
// creation and from the flush loop.
func (e *Effect) run() {
	if e.disposed.Load() {
		return
	}

	e.pending.Store(false)
	e.runCleanups()
	e.detachSources()

	old := e.rt.setListener(e)
	// Restore via defer so a panicking body leaves tracking intact for
	// the writer that will observe the panic.
	defer e.rt.setListener(old)

	cleanup := e.fn()
	if cleanup != nil {
		e.addCleanup(cleanup)
	}

	e.rt.effectRuns.Add(1)
	e.rt.collector.RecordEffectRun()
}

func (e *Effect) addSource(source *signalBase) {
	e.srcMu.Lock()
	defer e.srcMu.Unlock()
	for _, s := range e.sources {
		if s == source {
			return
		}
	}
	e.sources = append(e.sources, source)
}

func (e *Effect) detachSources() {
	e.srcMu.Lock()
	sources := e.sources
	e.sources = nil
	e.srcMu.Unlock()

	for _, src := range sources {
		src.unsubscribe(e.id)
	}
}

func (e *Effect) addCleanup(fn func()) {
	e.cleanMu.Lock()
	defer e.cleanMu.Unlock()
	e.cleanups = append(e.cleanups, fn)
}

// runCleanups runs and clears registered cleanups, newest first.
func (e *Effect) runCleanups() {
	e.cleanMu.Lock()
	cleanups := e.cleanups
	e.cleanups = nil
	e.cleanMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Dispose stops the effect permanently: cleanups run, dependency edges are
// removed, and pending flushes skip it. Safe to call more than once.
func (e *Effect) Dispose() {
	e.dispose()
}

func (e *Effect) dispose() {
	if !e.disposed.CompareAndSwap(false, true) {
		return
	}
	e.runCleanups()
	e.detachSources()
	e.rt.liveEffects.Add(-1)
	e.rt.emitEffectDisposed(e)
}
