package attune

import (
	"sync"
	"sync/atomic"
)

// Memo is a cached derived value. The computation runs once at creation;
// after that, a dirty mark from any source only invalidates the cache and
// the recomputation is deferred until the next read. Effects re-run on
// every propagation because their side effects are externally observable,
// but a pure derivation nobody is currently reading can wait.
//
// A memo is itself a dependency source: computations that read it re-run
// when it is invalidated, and by the time they read the new value the
// recomputation has happened, so no consumer ever observes a stale cache.
type Memo[T any] struct {
	signalBase

	fn func() T

	mu     sync.RWMutex
	value  T
	valid  atomic.Bool
	inCalc atomic.Bool

	srcMu   sync.Mutex
	sources []*signalBase

	cleanMu  sync.Mutex
	cleanups []func()

	disposed atomic.Bool
}

// NewMemo creates a memo on rt and computes its initial value immediately,
// registering dependencies on every signal fn reads. The memo is owned by
// the current owner, if any.
func NewMemo[T any](rt *Runtime, fn func() T) *Memo[T] {
	m := &Memo[T]{
		signalBase: signalBase{rt: rt, id: rt.nextID()},
		fn:         fn,
	}
	rt.liveMemos.Add(1)

	if o := rt.owner(); o != nil {
		o.register(m)
	}

	m.recompute()
	return m
}

// Get returns the memo's value, recomputing first if a source changed
// since the last read. Inside a tracked computation it also registers the
// memo as a dependency.
func (m *Memo[T]) Get() T {
	if !m.disposed.Load() && !m.valid.Load() {
		m.recompute()
	}

	m.track()

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// Peek returns the memo's value without registering a dependency. Like
// Get it recomputes first when invalid.
func (m *Memo[T]) Peek() T {
	if !m.disposed.Load() && !m.valid.Load() {
		m.recompute()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value
}

// recompute re-runs fn under tracking and caches the result.
func (m *Memo[T]) recompute() {
	// A memo reading itself, directly or through other memos, would
	// recurse here forever. Serve the cached value instead.
	if !m.inCalc.CompareAndSwap(false, true) {
		return
	}
	defer m.inCalc.Store(false)

	m.runCleanups()
	m.detachSources()

	old := m.rt.setListener(m)
	defer m.rt.setListener(old)

	value := m.fn()

	m.mu.Lock()
	m.value = value
	m.mu.Unlock()
	m.valid.Store(true)

	m.rt.collector.RecordMemoRecompute()
}

// MarkDirty invalidates the cache and passes the mark downstream. Only
// the first mark after a validation propagates; further marks before the
// next recomputation are no-ops, which is what keeps a diamond graph from
// running its sink twice.
func (m *Memo[T]) MarkDirty() {
	if m.disposed.Load() {
		return
	}
	if m.valid.CompareAndSwap(true, false) {
		m.notifySubscribers()
	}
}

// ID returns the memo's runtime-unique identifier.
func (m *Memo[T]) ID() uint64 {
	return m.id
}

func (m *Memo[T]) addSource(source *signalBase) {
	m.srcMu.Lock()
	defer m.srcMu.Unlock()
	for _, s := range m.sources {
		if s == source {
			return
		}
	}
	m.sources = append(m.sources, source)
}

func (m *Memo[T]) detachSources() {
	m.srcMu.Lock()
	sources := m.sources
	m.sources = nil
	m.srcMu.Unlock()

	for _, src := range sources {
		src.unsubscribe(m.id)
	}
}

func (m *Memo[T]) addCleanup(fn func()) {
	m.cleanMu.Lock()
	defer m.cleanMu.Unlock()
	m.cleanups = append(m.cleanups, fn)
}

func (m *Memo[T]) runCleanups() {
	m.cleanMu.Lock()
	cleanups := m.cleanups
	m.cleanups = nil
	m.cleanMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Dispose detaches the memo from its sources and stops future
// recomputations. Reads after disposal return the last cached value.
func (m *Memo[T]) Dispose() {
	m.dispose()
}

func (m *Memo[T]) dispose() {
	if !m.disposed.CompareAndSwap(false, true) {
		return
	}
	m.runCleanups()
	m.detachSources()
	m.valid.Store(true)
	m.rt.liveMemos.Add(-1)
}
