package resource

import (
	"context"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/time/rate"
)

// Option configures a resource at creation. Options apply before the
// first fetch starts, so retry policy, clock, and context all govern it.
type Option[T any] func(*Resource[T])

// RetryOptions controls retry behavior for failed fetches. A fetch is
// attempted 1+MaxRetries times; between attempts the delay doubles,
// starting at Delay.
type RetryOptions struct {
	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// Delay is the wait before the first retry. Subsequent waits double.
	Delay time.Duration

	// OnRetry is called after each backoff wait, before the retry runs,
	// with the 1-based attempt number that failed and its error.
	OnRetry func(attempt int, err error)
}

// WithRetry enables retry with exponential backoff.
func WithRetry[T any](retry RetryOptions) Option[T] {
	return func(r *Resource[T]) {
		r.retry = retry
	}
}

// WithName labels the resource in events and panic messages.
func WithName[T any](name string) Option[T] {
	return func(r *Resource[T]) {
		r.name = name
	}
}

// WithClock substitutes the clock used for backoff timers and stale-time
// checks. Tests pass a fake clock to step through retries without
// sleeping.
func WithClock[T any](clock clockz.Clock) Option[T] {
	return func(r *Resource[T]) {
		r.clock = clock
	}
}

// WithSync runs fetches on the calling goroutine instead of a new one.
// Creation and Refetch then return only after the fetch settles, which
// makes tests deterministic. Production code should not use it.
func WithSync[T any]() Option[T] {
	return func(r *Resource[T]) {
		r.syncMode = true
	}
}

// WithStaleTime sets how long settled data satisfies Fetch without a
// network round trip. Zero, the default, means Fetch always fetches.
func WithStaleTime[T any](d time.Duration) Option[T] {
	return func(r *Resource[T]) {
		r.staleTime = d
	}
}

// WithContext sets the parent context for fetch contexts. Canceling it
// cancels in-flight fetches; their results are discarded.
func WithContext[T any](ctx context.Context) Option[T] {
	return func(r *Resource[T]) {
		r.baseCtx = ctx
	}
}

// WithRateLimit caps fetch attempts, retries included, at perSecond with
// the given burst. Attempts block in the limiter before invoking the
// fetcher and abort if the fetch context ends while waiting.
func WithRateLimit[T any](perSecond float64, burst int) Option[T] {
	return func(r *Resource[T]) {
		r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithOnSuccess registers a callback invoked after each successful fetch
// settles, outside the runtime's batch.
func WithOnSuccess[T any](fn func(T)) Option[T] {
	return func(r *Resource[T]) {
		r.onSuccess = fn
	}
}

// WithOnError registers a callback invoked after each failed fetch
// settles, outside the runtime's batch. Fetch errors always land here
// or in Err, never as panics.
func WithOnError[T any](fn func(error)) Option[T] {
	return func(r *Resource[T]) {
		r.onError = fn
	}
}

// WithPreload binds the resource to a cache entry. A fresh entry seeds
// the resource as Ready without fetching; each successful fetch stores
// its value back under the key.
func WithPreload[T any](cache *Cache, key string) Option[T] {
	return func(r *Resource[T]) {
		r.preload = cache
		r.preloadKey = key
	}
}

// WithPreloadKey is WithPreload against the default cache.
func WithPreloadKey[T any](key string) Option[T] {
	return WithPreload[T](defaultCache, key)
}
