package resource

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/zoobzio/clockz"

	"github.com/attune-dev/attune/pkg/attune"
)

// FetchInfo carries fetch context into the fetcher.
type FetchInfo[T any] struct {
	// Value is the most recently settled data, the zero value before the
	// first successful fetch. Lets refresh fetchers send conditional
	// requests or merge incrementally.
	Value T

	// Refetching is true when the fetch was triggered by Refetch or
	// Fetch rather than creation or a source change.
	Refetching bool
}

// Fetcher loads a resource's data. The context is canceled when the fetch
// is superseded or the resource disposed; fetchers that respect it stop
// early, fetchers that don't simply have their result discarded.
type Fetcher[T any] func(ctx context.Context, info FetchInfo[T]) (T, error)

// SourceFetcher is a Fetcher that additionally receives the current
// source value of a source-tracked resource.
type SourceFetcher[S, T any] func(ctx context.Context, src S, info FetchInfo[T]) (T, error)

// Resource manages one asynchronously loaded value. Its state, data and
// error are attune signals, so reads inside computations subscribe to
// fetch progress. All methods are safe for concurrent use.
type Resource[T any] struct {
	rt   *attune.Runtime
	name string

	state  *attune.Signal[State]
	data   *attune.Signal[T]
	err    *attune.Signal[error]
	latest *attune.Signal[T]

	clock      clockz.Clock
	retry      RetryOptions
	syncMode   bool
	staleTime  time.Duration
	baseCtx    context.Context
	limiter    waitLimiter
	onSuccess  func(T)
	onError    func(error)
	preload    *Cache
	preloadKey string

	// mu guards the fetcher and the generation bookkeeping below. The
	// fetcher is stored so Fetch and Refetch can re-drive it; for
	// source-tracked resources it is rebound on every source change.
	mu         sync.Mutex
	fetcher    Fetcher[T]
	generation uint64
	inflight   chan struct{}
	cancel     context.CancelFunc
	lastValue  T
	hasSettled bool
	lastFetch  time.Time
	disposed   bool

	sourceEffect *attune.Effect
}

// waitLimiter is the subset of rate.Limiter the resource uses.
type waitLimiter interface {
	Wait(ctx context.Context) error
}

// New creates a resource on rt and starts its first fetch immediately.
// When a preload cache is configured and holds a fresh entry for the
// resource's key, that entry seeds the resource as Ready and the first
// fetch is skipped.
func New[T any](rt *attune.Runtime, fetcher Fetcher[T], opts ...Option[T]) *Resource[T] {
	r := newResource(rt, opts...)
	r.fetcher = fetcher

	if r.seedFromPreload() {
		return r
	}
	r.start(false, fetcher)
	return r
}

// NewWithRetry creates a resource whose fetches retry with exponential
// backoff before committing an error.
func NewWithRetry[T any](rt *attune.Runtime, fetcher Fetcher[T], retry RetryOptions, opts ...Option[T]) *Resource[T] {
	return New(rt, fetcher, append(opts, WithRetry[T](retry))...)
}

// NewWithSource creates a resource driven by a reactive source. The
// source function runs under dependency tracking inside an effect: each
// change to the signals it reads triggers exactly one new fetch,
// superseding any fetch in flight. While the source reports no value
// (ok false) the resource stays Unresolved and the fetcher is not
// invoked.
//
// Use Track or TrackNonZero to adapt a signal into a source function.
func NewWithSource[S, T any](rt *attune.Runtime, source func() (S, bool), fetcher SourceFetcher[S, T], opts ...Option[T]) *Resource[T] {
	r := newResource(rt, opts...)

	seeded := r.seedFromPreload()
	first := true
	r.sourceEffect = attune.CreateEffect(rt, func() attune.Cleanup {
		src, ok := source()
		if !ok {
			first = false
			return nil
		}
		bound := func(ctx context.Context, info FetchInfo[T]) (T, error) {
			return fetcher(ctx, src, info)
		}
		r.mu.Lock()
		r.fetcher = bound
		r.mu.Unlock()
		if first && seeded {
			// The preloaded value stands in for the initial fetch.
			first = false
			return nil
		}
		first = false
		r.start(false, bound)
		return nil
	}, attune.EffectName(r.name))
	return r
}

func newResource[T any](rt *attune.Runtime, opts ...Option[T]) *Resource[T] {
	var zero T
	r := &Resource[T]{
		rt:      rt,
		state:   attune.NewSignal(rt, Unresolved),
		data:    attune.NewSignal(rt, zero),
		err:     attune.NewSignal[error](rt, nil),
		latest:  attune.NewSignal(rt, zero),
		clock:   clockz.RealClock,
		baseCtx: context.Background(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// seedFromPreload commits a fresh cache entry as the resource's initial
// Ready value. Reports whether seeding happened.
func (r *Resource[T]) seedFromPreload() bool {
	if r.preload == nil || r.preloadKey == "" {
		return false
	}
	value, ok := lookup[T](r.preload, r.preloadKey)
	if !ok {
		return false
	}

	r.mu.Lock()
	r.lastValue = value
	r.hasSettled = true
	r.lastFetch = r.clock.Now()
	r.mu.Unlock()

	r.rt.Batch(func() {
		r.data.Set(value)
		r.latest.Set(value)
		r.state.Set(Ready)
	})
	return true
}

// State returns the current lifecycle state. Tracked read.
func (r *Resource[T]) State() State {
	return r.state.Get()
}

// Loading reports whether a fetch is in flight. Tracked read.
func (r *Resource[T]) Loading() bool {
	return r.state.Get().Loading()
}

// Data returns the current data: the fetched value when Ready or
// Refreshing, the zero value while Unresolved or Pending. During an
// Errored state it keeps the last successful value. Tracked read.
func (r *Resource[T]) Data() T {
	return r.data.Get()
}

// DataOr returns Data when the resource is Ready, fallback otherwise.
// Tracked read.
func (r *Resource[T]) DataOr(fallback T) T {
	if r.state.Get() == Ready {
		return r.data.Get()
	}
	return fallback
}

// Latest returns the most recently settled value. Unlike Data it never
// resets while a newer fetch is Pending or Refreshing, so consumers can
// keep rendering the old value during a reload. Tracked read.
func (r *Resource[T]) Latest() T {
	return r.latest.Get()
}

// Err returns the error of the last failed fetch, nil unless the state
// is Errored. Tracked read.
func (r *Resource[T]) Err() error {
	return r.err.Get()
}

// Fetch re-drives the resource's fetcher unless one is already in
// flight or the current data is fresher than the configured stale time.
// Use Refetch to force.
func (r *Resource[T]) Fetch() {
	r.mu.Lock()
	if r.disposed || r.fetcher == nil {
		r.mu.Unlock()
		return
	}
	fetcher := r.fetcher
	fresh := r.hasSettled && r.staleTime > 0 && r.clock.Now().Sub(r.lastFetch) < r.staleTime
	busy := r.inflight != nil
	r.mu.Unlock()

	if fresh || busy {
		return
	}
	r.start(true, fetcher)
}

// Refetch forces a new fetch with the resource's fetcher, superseding
// any in flight. The fetcher sees Refetching true. On a source-tracked
// resource whose source has never reported a value there is nothing to
// fetch yet and the call is a no-op.
func (r *Resource[T]) Refetch() {
	r.mu.Lock()
	disposed := r.disposed
	fetcher := r.fetcher
	r.mu.Unlock()
	if disposed || fetcher == nil {
		return
	}
	r.start(true, fetcher)
}

// Invalidate marks the current data stale, so the next Fetch runs the
// fetcher even inside the configured stale time. It does not start a
// fetch itself.
func (r *Resource[T]) Invalidate() {
	r.mu.Lock()
	r.lastFetch = time.Time{}
	r.mu.Unlock()
}

// Mutate sets the data directly without invoking a fetcher: data is
// stored, the error cleared, and the state forced to Ready. An in-flight
// fetch is not canceled and will overwrite the mutation when it settles;
// callers doing optimistic updates typically Refetch afterwards.
func (r *Resource[T]) Mutate(value T) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.lastValue = value
	r.hasSettled = true
	r.mu.Unlock()

	r.rt.Batch(func() {
		r.data.Set(value)
		r.latest.Set(value)
		r.err.Set(nil)
		r.state.Set(Ready)
	})
}

// Wait blocks until the resource settles and returns its outcome: the
// data once Ready, the fetch error once Errored. It returns ErrUnresolved
// when no fetch has been issued and ctx.Err when the context ends first.
func (r *Resource[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	for {
		r.mu.Lock()
		disposed := r.disposed
		done := r.inflight
		r.mu.Unlock()

		if disposed {
			return zero, ErrDisposed
		}

		switch r.state.Peek() {
		case Ready:
			return r.data.Peek(), nil
		case Errored:
			return zero, r.err.Peek()
		case Unresolved:
			if done == nil {
				return zero, ErrUnresolved
			}
		}

		if done == nil {
			// Settling writes land just after the inflight slot clears;
			// yield and re-read.
			runtime.Gosched()
			continue
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-done:
		}
	}
}

// Dispose cancels any in-flight fetch, discards its result, and stops
// source tracking. Signals keep their last values; further Refetch and
// Mutate calls are no-ops.
func (r *Resource[T]) Dispose() {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.disposed = true
	r.generation++
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	if r.inflight != nil {
		close(r.inflight)
		r.inflight = nil
	}
	r.mu.Unlock()

	if r.sourceEffect != nil {
		r.sourceEffect.Dispose()
	}
}

// start begins a new fetch generation.
func (r *Resource[T]) start(refetching bool, fetcher Fetcher[T]) {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return
	}
	r.generation++
	gen := r.generation
	if r.cancel != nil {
		// Cooperative cancellation of the superseded fetch.
		r.cancel()
	}
	ctx, cancel := context.WithCancel(r.baseCtx)
	r.cancel = cancel
	if r.inflight != nil {
		// Wake waiters parked on the superseded generation.
		close(r.inflight)
	}
	done := make(chan struct{})
	r.inflight = done
	info := FetchInfo[T]{Value: r.lastValue, Refetching: refetching}
	r.mu.Unlock()

	prior := r.state.Peek()
	r.rt.Batch(func() {
		if refetching && (prior == Ready || prior == Refreshing) {
			r.state.Set(Refreshing)
		} else {
			var zero T
			r.data.Set(zero)
			r.state.Set(Pending)
		}
		r.err.Set(nil)
	})
	r.emitStarted(gen, refetching)

	run := func() {
		began := r.clock.Now()
		value, err := r.execute(ctx, gen, info, fetcher)
		r.commit(gen, done, value, err, r.clock.Now().Sub(began))
		cancel()
	}
	if r.syncMode {
		run()
	} else {
		go run()
	}
}

// execute drives the fetcher through the retry schedule. The final error
// after exhausting retries is returned for commit.
func (r *Resource[T]) execute(ctx context.Context, gen uint64, info FetchInfo[T], fetcher Fetcher[T]) (T, error) {
	var value T
	var err error

	attempt := 1
	for {
		if r.limiter != nil {
			if werr := r.limiter.Wait(ctx); werr != nil {
				return value, werr
			}
		}

		value, err = r.invoke(ctx, info, fetcher)
		if err == nil || attempt > r.retry.MaxRetries {
			return value, err
		}
		if ctx.Err() != nil {
			return value, ctx.Err()
		}

		// Exponential backoff: delay, 2*delay, 4*delay, ...
		delay := r.retry.Delay * time.Duration(1<<(attempt-1))
		if delay > 0 {
			timer := r.clock.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return value, ctx.Err()
			case <-timer.C():
			}
		}

		if r.retry.OnRetry != nil {
			r.retry.OnRetry(attempt, err)
		}
		r.emitRetry(gen, attempt, err)
		attempt++
	}
}

// invoke calls the fetcher with panic containment: a panicking fetcher
// settles the resource as Errored instead of crashing the caller's
// goroutine.
func (r *Resource[T]) invoke(ctx context.Context, info FetchInfo[T], fetcher Fetcher[T]) (value T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("resource %q: fetcher panicked: %v", r.name, p)
		}
	}()
	return fetcher(ctx, info)
}

// commit publishes a settled fetch, unless a newer generation superseded
// it, in which case the result is discarded.
func (r *Resource[T]) commit(gen uint64, done chan struct{}, value T, err error, took time.Duration) {
	r.mu.Lock()
	if gen != r.generation || r.disposed {
		r.mu.Unlock()
		r.emitDiscarded(gen, err)
		return
	}
	r.hasSettled = true
	if err == nil {
		r.lastValue = value
	}
	r.lastFetch = r.clock.Now()
	r.inflight = nil
	r.mu.Unlock()

	r.rt.Batch(func() {
		if err != nil {
			r.err.Set(err)
			r.state.Set(Errored)
		} else {
			r.data.Set(value)
			r.latest.Set(value)
			r.err.Set(nil)
			r.state.Set(Ready)
		}
	})

	// Waiters wake only after the signal writes above are visible.
	close(done)

	if err != nil {
		if r.onError != nil {
			r.onError(err)
		}
	} else {
		if r.onSuccess != nil {
			r.onSuccess(value)
		}
		if r.preload != nil && r.preloadKey != "" {
			r.preload.put(r.preloadKey, value)
		}
	}
	r.emitSettled(gen, err, took)
}

// Track adapts a signal into a source function that always reports a
// value, so every change to the signal triggers a fetch.
func Track[S any](sig *attune.Signal[S]) func() (S, bool) {
	return func() (S, bool) {
		return sig.Get(), true
	}
}

// TrackNonZero adapts a comparable signal into a source function that
// reports no value while the signal holds its type's zero value. A
// resource built on it stays Unresolved until the signal is first set,
// the Go rendering of skip-while-null sources.
func TrackNonZero[S comparable](sig *attune.Signal[S]) func() (S, bool) {
	return func() (S, bool) {
		var zero S
		v := sig.Get()
		return v, v != zero
	}
}
