package attune

import (
	"fmt"
	"sort"
)

// defaultMaxFlushPasses bounds how many passes one flush may take before
// the storm policy applies. A healthy graph settles in a few passes; a
// hundred means an effect is feeding its own dependencies.
const defaultMaxFlushPasses = 100

// StormPolicy selects what the runtime does when a flush exceeds its pass
// limit, which happens when an effect writes to a signal it depends on,
// directly or transitively.
type StormPolicy uint8

const (
	// StormPanic aborts the flush and panics with an error wrapping
	// ErrUpdateStorm. The panic surfaces at the signal write that
	// triggered the flush, like any other effect failure. Default.
	StormPanic StormPolicy = iota

	// StormThrottle aborts the flush, logs at error level, and drops the
	// still-pending effects. The graph keeps working; the cycle simply
	// stops propagating until the next external write.
	StormThrottle
)

func (p StormPolicy) String() string {
	switch p {
	case StormPanic:
		return "panic"
	case StormThrottle:
		return "throttle"
	default:
		return "unknown"
	}
}

// Batch runs fn with flushing deferred: writes inside fn mark dependents
// immediately but the flush happens once, after the outermost batch ends,
// with each affected effect running once against final values. Batches
// nest. Subscribe callbacks are not deferred.
//
// The flush runs even if fn panics, so state already written propagates.
func (rt *Runtime) Batch(fn func()) {
	rt.mu.Lock()
	rt.batchDepth++
	rt.mu.Unlock()

	defer func() {
		rt.mu.Lock()
		rt.batchDepth--
		start := rt.batchDepth == 0 && !rt.flushing && len(rt.queue) > 0
		if start {
			rt.flushing = true
		}
		rt.mu.Unlock()

		if start {
			rt.flush()
		}
	}()

	fn()
}

// BatchValue runs fn in a batch and returns its result.
func BatchValue[T any](rt *Runtime, fn func() T) T {
	var result T
	rt.Batch(func() {
		result = fn()
	})
	return result
}

// enqueue adds a marked effect to the flush queue. The effect's pending
// flag already deduplicates, so the queue holds each effect at most once
// per pass.
func (rt *Runtime) enqueue(e *Effect) {
	rt.mu.Lock()
	rt.queue = append(rt.queue, e)
	rt.mu.Unlock()
}

// flushIfIdle starts a flush unless a batch is open, a flush is already
// running, or nothing is queued. Called after every successful write.
func (rt *Runtime) flushIfIdle() {
	rt.mu.Lock()
	start := rt.batchDepth == 0 && !rt.flushing && len(rt.queue) > 0
	if start {
		rt.flushing = true
	}
	rt.mu.Unlock()

	if start {
		rt.flush()
	}
}

// flush drains the effect queue in passes until it stays empty. Within a
// pass effects run in creation order; effects marked during a pass,
// including by writes from other goroutines, run in the next one. Caller
// must have set rt.flushing.
func (rt *Runtime) flush() {
	start := rt.clock.Now()
	passes := 0
	totalRuns := 0

	// An effect panic must not leave the scheduler wedged: drop the
	// queue, then let the panic reach the writer.
	defer func() {
		if r := recover(); r != nil {
			rt.abortFlush()
			panic(r)
		}
	}()

	for {
		rt.mu.Lock()
		batch := rt.queue
		rt.queue = nil
		if len(batch) == 0 {
			rt.flushing = false
			rt.mu.Unlock()
			break
		}
		rt.mu.Unlock()

		passes++
		if passes > rt.maxFlushPasses {
			rt.stormDetected(batch, passes)
			return
		}

		sort.Slice(batch, func(i, j int) bool {
			return batch[i].id < batch[j].id
		})

		for _, e := range batch {
			if e.pending.Load() {
				e.run()
				totalRuns++
			}
		}
	}

	duration := rt.clock.Now().Sub(start)
	rt.flushes.Add(1)
	rt.collector.RecordFlush(passes, totalRuns, duration)
	rt.emitFlushCompleted(passes, totalRuns, duration)
}

// abortFlush clears pending marks and the queue so a later write starts
// from a clean scheduler.
func (rt *Runtime) abortFlush() {
	rt.mu.Lock()
	for _, e := range rt.queue {
		e.pending.Store(false)
	}
	rt.queue = nil
	rt.flushing = false
	rt.mu.Unlock()
}

// stormDetected applies the storm policy. batch holds the pass that blew
// the limit; its pending marks are cleared along with the queue's.
func (rt *Runtime) stormDetected(batch []*Effect, passes int) {
	for _, e := range batch {
		e.pending.Store(false)
	}
	rt.abortFlush()

	names := make([]string, 0, len(batch))
	for _, e := range batch {
		if e.name != "" {
			names = append(names, e.name)
		}
	}

	rt.emitFlushStorm(passes, len(batch), names)

	switch rt.stormPolicy {
	case StormThrottle:
		rt.logger.Error("attune: update storm throttled",
			"runtime", rt.id,
			"passes", passes,
			"queued", len(batch),
			"effects", names)
	default:
		panic(fmt.Errorf("%w: %d passes without settling (limit %d)",
			ErrUpdateStorm, passes, rt.maxFlushPasses))
	}
}
