package attune

import (
	"sync"
	"testing"
)

// testListener records dirty marks without scheduling anything.
type testListener struct {
	id         uint64
	dirtyCount int
	mu         sync.Mutex
}

func newTestListener(rt *Runtime) *testListener {
	return &testListener{id: rt.nextID()}
}

func (l *testListener) MarkDirty() {
	l.mu.Lock()
	l.dirtyCount++
	l.mu.Unlock()
}

func (l *testListener) ID() uint64 {
	return l.id
}

func (l *testListener) getDirtyCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dirtyCount
}

func TestWithListenerTracksReads(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	listener := newTestListener(rt)

	rt.WithListener(listener, func() {
		_ = count.Get()
	})

	count.Set(1)
	if listener.getDirtyCount() != 1 {
		t.Errorf("expected 1 notification, got %d", listener.getDirtyCount())
	}
}

func TestWithListenerRestoresPrevious(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	outer := newTestListener(rt)
	inner := newTestListener(rt)

	rt.WithListener(outer, func() {
		rt.WithListener(inner, func() {
			_ = count.Get()
		})
		// Back under the outer listener; this read subscribes it.
		_ = count.Get()
	})

	count.Set(1)
	if inner.getDirtyCount() != 1 {
		t.Errorf("inner expected 1 notification, got %d", inner.getDirtyCount())
	}
	if outer.getDirtyCount() != 1 {
		t.Errorf("outer expected 1 notification, got %d", outer.getDirtyCount())
	}
}

func TestUntrackedSuppressesTracking(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	listener := newTestListener(rt)

	rt.WithListener(listener, func() {
		rt.Untracked(func() {
			_ = count.Get()
		})
	})

	count.Set(1)
	if listener.getDirtyCount() != 0 {
		t.Errorf("untracked read should not subscribe, got %d notifications", listener.getDirtyCount())
	}
}

func TestUntrackReturnsValue(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 42)

	got := Untrack(rt, func() int {
		return count.Get() + 1
	})
	if got != 43 {
		t.Errorf("expected 43, got %d", got)
	}
}

func TestUntrackedGet(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 7)
	listener := newTestListener(rt)

	rt.WithListener(listener, func() {
		if v := UntrackedGet(count); v != 7 {
			t.Errorf("expected 7, got %d", v)
		}
	})

	count.Set(8)
	if listener.getDirtyCount() != 0 {
		t.Errorf("UntrackedGet should not subscribe, got %d notifications", listener.getDirtyCount())
	}
}

func TestRuntimesAreIsolated(t *testing.T) {
	rt1 := NewRuntime()
	rt2 := NewRuntime()

	s1 := NewSignal(rt1, 0)
	s2 := NewSignal(rt2, 0)

	runs1 := 0
	CreateEffect(rt1, func() Cleanup {
		_ = s1.Get()
		runs1++
		return nil
	})

	// Writes on the other runtime never reach rt1's effect.
	s2.Set(10)
	s2.Set(20)
	if runs1 != 1 {
		t.Errorf("expected 1 run, got %d", runs1)
	}

	s1.Set(1)
	if runs1 != 2 {
		t.Errorf("expected 2 runs, got %d", runs1)
	}
}

func TestCrossRuntimeReadIsUntracked(t *testing.T) {
	rt1 := NewRuntime()
	rt2 := NewRuntime()

	foreign := NewSignal(rt2, 1)

	runs := 0
	CreateEffect(rt1, func() Cleanup {
		// The signal consults its own runtime's tracking context, so a
		// computation on another runtime registers no edge.
		_ = foreign.Get()
		runs++
		return nil
	})

	foreign.Set(2)
	if runs != 1 {
		t.Errorf("cross-runtime read must not subscribe, got %d runs", runs)
	}
}
