package attune

import (
	"sync/atomic"
	"time"
)

// Collector defines an interface for collecting runtime metrics.
// Implement this interface to integrate with monitoring systems; see
// the devtools package for a Prometheus-backed implementation.
//
// Methods are called from the hot path of writes and flushes, so
// implementations should be cheap and must be safe for concurrent use.
type Collector interface {
	// RecordWrite is called after each signal write that changed a value.
	RecordWrite()

	// RecordEffectRun is called after each effect execution, including
	// the initial run at creation.
	RecordEffectRun()

	// RecordMemoRecompute is called after each memo recomputation,
	// including the eager one at creation.
	RecordMemoRecompute()

	// RecordFlush is called after a flush settles. passes is the number
	// of drain passes it took, effects the number of effect executions,
	// duration the wall time.
	RecordFlush(passes, effects int, duration time.Duration)
}

// NoopCollector is a no-op implementation of Collector.
// Runtimes use it unless WithCollector overrides it.
type NoopCollector struct{}

func (NoopCollector) RecordWrite()                        {}
func (NoopCollector) RecordEffectRun()                    {}
func (NoopCollector) RecordMemoRecompute()                {}
func (NoopCollector) RecordFlush(int, int, time.Duration) {}

// BasicCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicCollector struct {
	Writes          atomic.Int64
	EffectRuns      atomic.Int64
	MemoRecomputes  atomic.Int64
	Flushes         atomic.Int64
	FlushPasses     atomic.Int64
	FlushTotalNanos atomic.Int64
}

// RecordWrite implements Collector.
func (b *BasicCollector) RecordWrite() {
	b.Writes.Add(1)
}

// RecordEffectRun implements Collector.
func (b *BasicCollector) RecordEffectRun() {
	b.EffectRuns.Add(1)
}

// RecordMemoRecompute implements Collector.
func (b *BasicCollector) RecordMemoRecompute() {
	b.MemoRecomputes.Add(1)
}

// RecordFlush implements Collector.
func (b *BasicCollector) RecordFlush(passes, effects int, duration time.Duration) {
	b.Flushes.Add(1)
	b.FlushPasses.Add(int64(passes))
	b.FlushTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicCollector) GetStats() BasicStats {
	return BasicStats{
		Writes:         b.Writes.Load(),
		EffectRuns:     b.EffectRuns.Load(),
		MemoRecomputes: b.MemoRecomputes.Load(),
		Flushes:        b.Flushes.Load(),
		FlushAvgPasses: b.getAvgPasses(),
		FlushAvgNanos:  b.getAvgFlushNanos(),
	}
}

func (b *BasicCollector) getAvgPasses() int64 {
	count := b.Flushes.Load()
	if count == 0 {
		return 0
	}
	return b.FlushPasses.Load() / count
}

func (b *BasicCollector) getAvgFlushNanos() int64 {
	count := b.Flushes.Load()
	if count == 0 {
		return 0
	}
	return b.FlushTotalNanos.Load() / count
}

// BasicStats is a snapshot of BasicCollector state.
type BasicStats struct {
	Writes         int64
	EffectRuns     int64
	MemoRecomputes int64
	Flushes        int64
	FlushAvgPasses int64
	FlushAvgNanos  int64
}
