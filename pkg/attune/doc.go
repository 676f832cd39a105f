// Package attune provides a fine-grained reactive runtime for Go.
//
// Dependencies are tracked automatically: reading a signal while a memo or
// effect is executing subscribes that computation to the signal's changes.
// Writes propagate through the dependency graph glitch-free, so a computation
// downstream of several changed signals runs exactly once per update and only
// ever observes final values.
//
// # Runtime
//
// All primitives belong to a Runtime, which owns one independent reactive
// graph. Multiple runtimes coexist in a process without sharing any state:
//
//	rt := attune.NewRuntime()
//	count := attune.NewSignal(rt, 0)
//
// # Core Types
//
// Signal[T] is a reactive value container:
//
//	count := attune.NewSignal(rt, 0)
//	value := count.Get()  // Read (subscribes the current computation)
//	count.Set(5)          // Write (marks dependents, flushes)
//	count.Update(func(n int) int { return n + 1 })
//
// Memo[T] is a cached derived computation. Its initial value is computed
// eagerly at creation; afterwards it recomputes lazily, on the first read
// after a dependency changed:
//
//	doubled := attune.NewMemo(rt, func() int { return count.Get() * 2 })
//
// Effect runs side effects when dependencies change:
//
//	attune.CreateEffect(rt, func() attune.Cleanup {
//	    fmt.Println("Count is:", count.Get())
//	    return func() { /* cleanup */ }
//	})
//
// # Batching
//
// Multiple signal updates can be batched into a single flush:
//
//	rt.Batch(func() {
//	    a.Set(1)
//	    b.Set(2)
//	    c.Set(3)
//	})  // Dependent effects run once, observing final values
//
// # Ownership
//
// Owners form a disposal tree. Computations created while an owner is
// current are disposed with it, children before parents:
//
//	attune.CreateRoot(rt, func(dispose func()) struct{} {
//	    attune.CreateEffect(rt, logChanges)
//	    defer dispose()
//	    return struct{}{}
//	})
//
// # Thread Safety
//
// Signal values may be read and written from any goroutine. Tracked
// execution (memo computation, effect bodies, Batch, Untracked) is driven
// by one goroutine at a time per Runtime; writes arriving from other
// goroutines while a flush is active are coalesced into that flush.
package attune
