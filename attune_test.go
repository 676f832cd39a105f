package attune

import (
	"errors"
	"testing"

	coreattune "github.com/attune-dev/attune/pkg/attune"
)

// =============================================================================
// Runtime tests
// =============================================================================

func TestRuntimeIsCoreRuntime(t *testing.T) {
	var rt *Runtime
	var core *coreattune.Runtime

	// This should compile because they are the same type.
	rt = core
	_ = rt
}

func TestNewRuntimeOptionsExist(t *testing.T) {
	_ = WithLogger
	_ = WithCollector
	_ = WithClock
	_ = WithMaxFlushPasses
	_ = WithStormPolicy
	_ = WithLifecycleEvents
}

func TestStormPolicyConstants(t *testing.T) {
	if StormPanic.String() != "panic" {
		t.Errorf("StormPanic.String() = %q, want %q", StormPanic.String(), "panic")
	}
	if StormThrottle.String() != "throttle" {
		t.Errorf("StormThrottle.String() = %q, want %q", StormThrottle.String(), "throttle")
	}
}

// =============================================================================
// Reactive primitive tests
// =============================================================================

func TestNewSignal(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 42)
	if s.Get() != 42 {
		t.Errorf("expected 42, got %d", s.Get())
	}

	s.Set(100)
	if s.Get() != 100 {
		t.Errorf("expected 100, got %d", s.Get())
	}
}

func TestNewMemo(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 5)
	doubled := NewMemo(rt, func() int {
		return count.Get() * 2
	})

	if doubled.Get() != 10 {
		t.Errorf("expected 10, got %d", doubled.Get())
	}

	count.Set(7)
	if doubled.Get() != 14 {
		t.Errorf("expected 14 after write, got %d", doubled.Get())
	}
}

func TestCreateEffect(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)

	runs := 0
	seen := 0
	CreateEffect(rt, func() Cleanup {
		runs++
		seen = count.Get()
		return nil
	})

	if runs != 1 || seen != 1 {
		t.Fatalf("after create: runs = %d, seen = %d, want 1, 1", runs, seen)
	}

	count.Set(9)
	if runs != 2 || seen != 9 {
		t.Errorf("after write: runs = %d, seen = %d, want 2, 9", runs, seen)
	}
}

func TestCreateRootDisposes(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)

	runs := 0
	CreateRoot(rt, func(dispose func()) any {
		CreateEffect(rt, func() Cleanup {
			count.Get()
			runs++
			return nil
		})
		dispose()
		return nil
	})

	count.Set(1)
	if runs != 1 {
		t.Errorf("effect ran %d times, want 1 (disposed before write)", runs)
	}
}

func TestBatchValue(t *testing.T) {
	rt := NewRuntime()
	a := NewSignal(rt, 1)
	b := NewSignal(rt, 2)

	runs := 0
	CreateEffect(rt, func() Cleanup {
		a.Get()
		b.Get()
		runs++
		return nil
	})

	sum := BatchValue(rt, func() int {
		a.Set(10)
		b.Set(20)
		return a.Peek() + b.Peek()
	})

	if sum != 30 {
		t.Errorf("sum = %d, want 30", sum)
	}
	if runs != 2 {
		t.Errorf("effect ran %d times, want 2 (one batch, one rerun)", runs)
	}
}

func TestUntrackedGet(t *testing.T) {
	rt := NewRuntime()
	tracked := NewSignal(rt, 1)
	ignored := NewSignal(rt, 1)

	runs := 0
	CreateEffect(rt, func() Cleanup {
		tracked.Get()
		_ = UntrackedGet(ignored)
		runs++
		return nil
	})

	ignored.Set(2)
	if runs != 1 {
		t.Errorf("untracked read caused rerun: runs = %d, want 1", runs)
	}

	tracked.Set(2)
	if runs != 2 {
		t.Errorf("tracked read did not rerun: runs = %d, want 2", runs)
	}
}

func TestNeverEqualPropagatesSameValue(t *testing.T) {
	rt := NewRuntime()
	s := NewSignal(rt, 1, WithEquals(NeverEqual[int]()))

	runs := 0
	CreateEffect(rt, func() Cleanup {
		s.Get()
		runs++
		return nil
	})

	s.Set(1)
	if runs != 2 {
		t.Errorf("runs = %d, want 2 (same value must propagate)", runs)
	}
}

// =============================================================================
// Typed signal tests
// =============================================================================

func TestTypedSignalWrappers(t *testing.T) {
	rt := NewRuntime()

	n := NewIntSignal(rt, 1)
	n.Inc()
	n.Add(3)
	if n.Get() != 5 {
		t.Errorf("IntSignal = %d, want 5", n.Get())
	}

	ok := NewBoolSignal(rt, false)
	ok.Toggle()
	if !ok.Get() {
		t.Error("BoolSignal should be true after Toggle")
	}

	s := NewStringSignal(rt, "a")
	s.Set("b")
	if s.Get() != "b" {
		t.Errorf("StringSignal = %q, want %q", s.Get(), "b")
	}

	xs := NewSliceSignal(rt, []int{1})
	xs.Append(2)
	if got := xs.Get(); len(got) != 2 || got[1] != 2 {
		t.Errorf("SliceSignal = %v, want [1 2]", got)
	}

	m := NewMapSignal(rt, map[string]int{})
	m.SetKey("k", 1)
	if got, _ := m.GetKey("k"); got != 1 {
		t.Errorf("MapSignal[k] = %d, want 1", got)
	}
}

// =============================================================================
// Error re-exports
// =============================================================================

func TestErrorAliases(t *testing.T) {
	if !errors.Is(ErrUpdateStorm, coreattune.ErrUpdateStorm) {
		t.Error("ErrUpdateStorm should alias the core error")
	}
	if !errors.Is(ErrDifferentRuntime, coreattune.ErrDifferentRuntime) {
		t.Error("ErrDifferentRuntime should alias the core error")
	}
}
