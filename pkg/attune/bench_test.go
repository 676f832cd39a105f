package attune

import (
	"testing"
)

// Benchmarks for the reactive core.
// Target performance:
// - Signal.Get() (no tracking): < 10 ns
// - Signal.Get() (with tracking): < 50 ns
// - Signal.Set() (10 subscribers): < 200 ns
// - Memo.Get() (cached): < 15 ns
// - Batch (100 updates, one effect): < 5 µs

func BenchmarkSignalGetNoTracking(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 42)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = s.Get()
	}
}

func BenchmarkSignalGetWithTracking(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 42)
	listener := newTestListener(rt)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.WithListener(listener, func() {
			_ = s.Get()
		})
	}
}

func BenchmarkSignalPeek(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 42)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = s.Peek()
	}
}

func BenchmarkSignalSetNoSubscribers(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Set(i)
	}
}

func BenchmarkSignalSet1Subscriber(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	listener := newTestListener(rt)
	rt.WithListener(listener, func() {
		_ = s.Get()
	})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Set(i)
	}
}

func BenchmarkSignalSet10Subscribers(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)

	for i := 0; i < 10; i++ {
		listener := newTestListener(rt)
		rt.WithListener(listener, func() {
			_ = s.Get()
		})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Set(i)
	}
}

func BenchmarkSignalSet100Subscribers(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)

	for i := 0; i < 100; i++ {
		listener := newTestListener(rt)
		rt.WithListener(listener, func() {
			_ = s.Get()
		})
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Set(i)
	}
}

func BenchmarkSignalUpdate(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Update(func(n int) int { return n + 1 })
	}
}

func BenchmarkMemoGetCached(b *testing.B) {
	rt := NewRuntime()
	count := NewSignal(rt, 42)
	m := NewMemo(rt, func() int { return count.Get() * 2 })

	// Prime the cache
	_ = m.Get()

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_ = m.Get()
	}
}

func BenchmarkMemoRecompute(b *testing.B) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)
	m := NewMemo(rt, func() int { return count.Get() * 2 })

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		count.Set(i)
		_ = m.Get()
	}
}

func BenchmarkMemoChain3(b *testing.B) {
	rt := NewRuntime()
	a := NewSignal(rt, 0)
	b1 := NewMemo(rt, func() int { return a.Get() * 2 })
	c := NewMemo(rt, func() int { return b1.Get() * 2 })
	d := NewMemo(rt, func() int { return c.Get() * 2 })

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		a.Set(i)
		_ = d.Get()
	}
}

func BenchmarkMemoChain5(b *testing.B) {
	rt := NewRuntime()
	a := NewSignal(rt, 0)
	b1 := NewMemo(rt, func() int { return a.Get() * 2 })
	c := NewMemo(rt, func() int { return b1.Get() * 2 })
	d := NewMemo(rt, func() int { return c.Get() * 2 })
	e := NewMemo(rt, func() int { return d.Get() * 2 })
	f := NewMemo(rt, func() int { return e.Get() * 2 })

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		a.Set(i)
		_ = f.Get()
	}
}

func BenchmarkBatch10Updates(b *testing.B) {
	rt := NewRuntime()
	signals := make([]*Signal[int], 10)
	for i := range signals {
		signals[i] = NewSignal(rt, 0)
	}

	CreateEffect(rt, func() Cleanup {
		for _, s := range signals {
			_ = s.Get()
		}
		return nil
	})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.Batch(func() {
			for j, s := range signals {
				s.Set(i*10 + j)
			}
		})
	}
}

func BenchmarkBatch100Updates(b *testing.B) {
	rt := NewRuntime()
	signals := make([]*Signal[int], 100)
	for i := range signals {
		signals[i] = NewSignal(rt, 0)
	}

	CreateEffect(rt, func() Cleanup {
		for _, s := range signals {
			_ = s.Get()
		}
		return nil
	})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.Batch(func() {
			for j, s := range signals {
				s.Set(i*100 + j)
			}
		})
	}
}

func BenchmarkEffectCreation(b *testing.B) {
	rt := NewRuntime()
	owner := NewOwner(rt, nil)
	defer owner.Dispose()

	count := NewSignal(rt, 0)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.WithOwner(owner, func() {
			CreateEffect(rt, func() Cleanup {
				_ = count.Get()
				return nil
			})
		})
	}
}

func BenchmarkEffectRerun(b *testing.B) {
	rt := NewRuntime()
	count := NewSignal(rt, 0)

	CreateEffect(rt, func() Cleanup {
		_ = count.Get()
		return nil
	})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		count.Set(i + 1)
	}
}

func BenchmarkIntSignalInc(b *testing.B) {
	rt := NewRuntime()
	s := NewIntSignal(rt, 0)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Inc()
	}
}

func BenchmarkSliceSignalAppend(b *testing.B) {
	rt := NewRuntime()
	s := NewSliceSignal(rt, []int{})
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.Append(i)
	}
}

func BenchmarkMapSignalSetKey(b *testing.B) {
	rt := NewRuntime()
	s := NewMapSignal[string, int](rt, nil)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		s.SetKey("key", i)
	}
}

func BenchmarkWithListener(b *testing.B) {
	rt := NewRuntime()
	listener := newTestListener(rt)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.WithListener(listener, func() {})
	}
}

func BenchmarkUntracked(b *testing.B) {
	rt := NewRuntime()
	s := NewSignal(rt, 42)
	listener := newTestListener(rt)

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		rt.WithListener(listener, func() {
			rt.Untracked(func() {
				_ = s.Get()
			})
		})
	}
}

// BenchmarkRealisticComponent simulates a small component with:
// - 5 signals
// - 3 derived memos
// - 1 effect
// - User interactions causing updates
func BenchmarkRealisticComponent(b *testing.B) {
	rt := NewRuntime()
	owner := NewOwner(rt, nil)
	defer owner.Dispose()

	// Signals
	firstName := NewSignal(rt, "John")
	lastName := NewSignal(rt, "Doe")
	age := NewSignal(rt, 30)
	email := NewSignal(rt, "john@example.com")
	active := NewBoolSignal(rt, true)

	// Derived
	fullName := NewMemo(rt, func() string {
		return firstName.Get() + " " + lastName.Get()
	})
	isAdult := NewMemo(rt, func() bool {
		return age.Get() >= 18
	})
	canContact := NewMemo(rt, func() bool {
		return active.Get() && len(email.Get()) > 0
	})

	// Effect
	rt.WithOwner(owner, func() {
		CreateEffect(rt, func() Cleanup {
			_ = fullName.Get()
			_ = isAdult.Get()
			_ = canContact.Get()
			return nil
		})
	})

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		// Simulate user interaction
		rt.Batch(func() {
			firstName.Set("Jane")
			lastName.Set("Smith")
		})

		age.Set(25)
		active.Toggle()

		// Read derived values
		_ = fullName.Get()
		_ = isAdult.Get()
		_ = canContact.Get()
	}
}
