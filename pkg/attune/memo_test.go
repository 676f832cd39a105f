package attune

import "testing"

func TestMemoBasic(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 2)
	doubled := NewMemo(rt, func() int {
		return count.Get() * 2
	})

	if doubled.Get() != 4 {
		t.Errorf("expected 4, got %d", doubled.Get())
	}

	count.Set(5)
	if doubled.Get() != 10 {
		t.Errorf("expected 10, got %d", doubled.Get())
	}
}

func TestMemoComputesEagerlyOnCreation(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)

	computations := 0
	NewMemo(rt, func() int {
		computations++
		return count.Get()
	})

	if computations != 1 {
		t.Errorf("expected eager initial computation, got %d", computations)
	}
}

func TestMemoRecomputesLazily(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)

	computations := 0
	doubled := NewMemo(rt, func() int {
		computations++
		return count.Get() * 2
	})

	// Invalidation alone does not recompute.
	count.Set(2)
	count.Set(3)
	if computations != 1 {
		t.Errorf("expected no recomputation before read, got %d", computations)
	}

	// The first read after invalidation recomputes once.
	if doubled.Get() != 6 {
		t.Errorf("expected 6, got %d", doubled.Get())
	}
	if computations != 2 {
		t.Errorf("expected 2 computations, got %d", computations)
	}

	// Further reads serve the cache.
	_ = doubled.Get()
	_ = doubled.Get()
	if computations != 2 {
		t.Errorf("valid memo must not recompute on read, got %d", computations)
	}
}

func TestMemoChain(t *testing.T) {
	rt := NewRuntime()
	a := NewSignal(rt, 2)
	b := NewMemo(rt, func() int { return a.Get() * 2 })
	c := NewMemo(rt, func() int { return b.Get() * 2 })

	if c.Get() != 8 {
		t.Errorf("expected 8, got %d", c.Get())
	}

	a.Set(3)
	if c.Get() != 12 {
		t.Errorf("expected 12, got %d", c.Get())
	}
}

func TestMemoAsDependency(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)
	doubled := NewMemo(rt, func() int { return count.Get() * 2 })

	var observed []int
	CreateEffect(rt, func() Cleanup {
		observed = append(observed, doubled.Get())
		return nil
	})

	count.Set(2)
	count.Set(3)

	if len(observed) != 3 || observed[0] != 2 || observed[1] != 4 || observed[2] != 6 {
		t.Errorf("expected [2 4 6], got %v", observed)
	}
}

func TestMemoSkipsUnreadRecomputation(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)

	computations := 0
	m := NewMemo(rt, func() int {
		computations++
		return count.Get()
	})

	// Ten writes, one consumer read at the end: exactly one recompute.
	for i := 2; i <= 11; i++ {
		count.Set(i)
	}
	if m.Get() != 11 {
		t.Errorf("expected 11, got %d", m.Get())
	}
	if computations != 2 {
		t.Errorf("expected 2 computations (initial + one read), got %d", computations)
	}
}

func TestMemoCleanup(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 1)

	var events []string
	m := NewMemo(rt, func() int {
		v := count.Get()
		rt.OnCleanup(func() {
			events = append(events, "cleanup")
		})
		events = append(events, "compute")
		return v
	})

	count.Set(2)
	_ = m.Get()

	// Cleanup from the first computation runs before the second.
	want := []string{"compute", "cleanup", "compute"}
	if len(events) != len(want) {
		t.Fatalf("expected %v, got %v", want, events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, events)
		}
	}

	m.Dispose()
	if events[len(events)-1] != "cleanup" {
		t.Errorf("dispose should run the pending cleanup, got %v", events)
	}
}

func TestMemoDisposeServesCachedValue(t *testing.T) {
	rt := NewRuntime()
	count := NewSignal(rt, 4)

	computations := 0
	m := NewMemo(rt, func() int {
		computations++
		return count.Get() * 10
	})

	m.Dispose()
	count.Set(5)

	if m.Get() != 40 {
		t.Errorf("disposed memo should serve its last value, got %d", m.Get())
	}
	if computations != 1 {
		t.Errorf("disposed memo must not recompute, got %d", computations)
	}
}

func TestMemoDynamicDependencies(t *testing.T) {
	rt := NewRuntime()
	useFirst := NewSignal(rt, true)
	first := NewSignal(rt, "a")
	second := NewSignal(rt, "b")

	computations := 0
	m := NewMemo(rt, func() string {
		computations++
		if useFirst.Get() {
			return first.Get()
		}
		return second.Get()
	})

	// While the memo reads first, writes to second are invisible.
	second.Set("B")
	if m.Get() != "a" {
		t.Errorf("expected %q, got %q", "a", m.Get())
	}
	if computations != 1 {
		t.Errorf("untracked branch write must not invalidate, got %d computations", computations)
	}

	useFirst.Set(false)
	if m.Get() != "B" {
		t.Errorf("expected %q, got %q", "B", m.Get())
	}

	// Edges were rebuilt: first is now the dead branch.
	first.Set("A")
	if m.Get() != "B" {
		t.Errorf("expected %q, got %q", "B", m.Get())
	}
	if computations != 2 {
		t.Errorf("expected 2 computations, got %d", computations)
	}
}
