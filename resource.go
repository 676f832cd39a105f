package attune

import (
	"context"
	"time"

	coreattune "github.com/attune-dev/attune/pkg/attune"
	"github.com/attune-dev/attune/pkg/features/resource"
)

// =============================================================================
// Resource state
// =============================================================================

// ResourceState is the lifecycle state of a resource.
type ResourceState = resource.State

// State constants for Resource: use attune.Ready, attune.Errored, etc.
const (
	Unresolved ResourceState = resource.Unresolved // No fetch issued yet
	Pending    ResourceState = resource.Pending    // Fetch in flight, no data
	Ready      ResourceState = resource.Ready      // Data loaded
	Refreshing ResourceState = resource.Refreshing // Fetch in flight, stale data readable
	Errored    ResourceState = resource.Errored    // Fetch failed after retries
)

// =============================================================================
// Resource types
// =============================================================================

// Resource manages one asynchronously loaded value with reactive state
// tracking (Unresolved -> Pending -> Ready | Errored, Refreshing on
// reload). Reads inside computations subscribe to fetch progress.
//
// Example:
//
//	users := attune.NewResource(rt, func(ctx context.Context, _ attune.FetchInfo[[]User]) ([]User, error) {
//		return api.FetchUsers(ctx)
//	})
//
//	view := attune.MatchResource(users,
//		attune.OnLoading[[]User, string](func() string { return "loading" }),
//		attune.OnErrored[[]User, string](func(err error) string { return err.Error() }),
//		attune.OnReady[[]User, string](func(us []User) string { return render(us) }),
//	)
type Resource[T any] = resource.Resource[T]

// ResourceOption configures a resource at construction.
type ResourceOption[T any] = resource.Option[T]

// Fetcher loads a resource's data.
type Fetcher[T any] = resource.Fetcher[T]

// SourceFetcher additionally receives the current source value.
type SourceFetcher[S, T any] = resource.SourceFetcher[S, T]

// FetchInfo carries the previous value and the trigger into a fetcher.
type FetchInfo[T any] = resource.FetchInfo[T]

// RetryOptions configures exponential backoff for failing fetches.
type RetryOptions = resource.RetryOptions

// ResourceResult is a non-reactive snapshot of a resource.
type ResourceResult[T any] = resource.Result[T]

// ResourceHandler handles one state in MatchResource.
type ResourceHandler[T, R any] = resource.Handler[T, R]

// =============================================================================
// Resource constructors
// =============================================================================

// NewResource creates a resource on rt and starts its first fetch.
func NewResource[T any](rt *Runtime, fetcher Fetcher[T], opts ...ResourceOption[T]) *Resource[T] {
	return resource.New(rt, fetcher, opts...)
}

// NewResourceWithRetry creates a resource whose fetches retry with
// exponential backoff before committing an error.
func NewResourceWithRetry[T any](rt *Runtime, fetcher Fetcher[T], retry RetryOptions, opts ...ResourceOption[T]) *Resource[T] {
	return resource.NewWithRetry(rt, fetcher, retry, opts...)
}

// NewResourceWithSource creates a resource that refetches whenever its
// reactive source changes. Adapt a signal with TrackSignal or
// TrackNonZero.
//
// Example:
//
//	userID := attune.NewSignal(rt, 0)
//	user := attune.NewResourceWithSource(rt, attune.TrackNonZero(userID),
//		func(ctx context.Context, id int, _ attune.FetchInfo[*User]) (*User, error) {
//			return api.FetchUser(ctx, id)
//		})
func NewResourceWithSource[S, T any](rt *Runtime, source func() (S, bool), fetcher SourceFetcher[S, T], opts ...ResourceOption[T]) *Resource[T] {
	return resource.NewWithSource(rt, source, fetcher, opts...)
}

// TrackSignal adapts a signal into a source that always has a value.
func TrackSignal[S any](sig *coreattune.Signal[S]) func() (S, bool) {
	return resource.Track(sig)
}

// TrackNonZero adapts a signal into a source that reports no value
// while the signal holds its type's zero value.
func TrackNonZero[S comparable](sig *coreattune.Signal[S]) func() (S, bool) {
	return resource.TrackNonZero(sig)
}

// =============================================================================
// Resource options
// =============================================================================

// The clock and rate-limit options live in pkg/features/resource.

// WithName attaches a diagnostic name to a resource.
func WithName[T any](name string) ResourceOption[T] {
	return resource.WithName[T](name)
}

// WithRetry configures retry-with-backoff for failing fetches.
func WithRetry[T any](retry RetryOptions) ResourceOption[T] {
	return resource.WithRetry[T](retry)
}

// WithStaleTime suppresses Fetch calls while data is younger than d.
func WithStaleTime[T any](d time.Duration) ResourceOption[T] {
	return resource.WithStaleTime[T](d)
}

// WithSync runs fetches on the calling goroutine, for deterministic tests.
func WithSync[T any]() ResourceOption[T] {
	return resource.WithSync[T]()
}

// WithOnSuccess registers a callback for each successful fetch.
func WithOnSuccess[T any](fn func(T)) ResourceOption[T] {
	return resource.WithOnSuccess(fn)
}

// WithOnError registers a callback for each failed fetch.
func WithOnError[T any](fn func(error)) ResourceOption[T] {
	return resource.WithOnError[T](fn)
}

// =============================================================================
// Match and snapshots
// =============================================================================

// MatchResource dispatches on the resource's current state: handlers
// are tried in order and the first one matching the state wins. With no
// matching handler the zero value of R is returned. Tracked read.
func MatchResource[T, R any](r *Resource[T], handlers ...ResourceHandler[T, R]) R {
	return resource.Match(r, handlers...)
}

// OnUnresolved handles the Unresolved state in MatchResource.
func OnUnresolved[T, R any](fn func() R) ResourceHandler[T, R] {
	return resource.OnUnresolved[T, R](fn)
}

// OnPending handles the Pending state in MatchResource.
func OnPending[T, R any](fn func() R) ResourceHandler[T, R] {
	return resource.OnPending[T, R](fn)
}

// OnLoading handles Pending and Refreshing in MatchResource.
func OnLoading[T, R any](fn func() R) ResourceHandler[T, R] {
	return resource.OnLoading[T, R](fn)
}

// OnReady handles the Ready state in MatchResource.
func OnReady[T, R any](fn func(T) R) ResourceHandler[T, R] {
	return resource.OnReady[T, R](fn)
}

// OnRefreshing handles the Refreshing state in MatchResource.
func OnRefreshing[T, R any](fn func(T) R) ResourceHandler[T, R] {
	return resource.OnRefreshing[T, R](fn)
}

// OnErrored handles the Errored state in MatchResource.
func OnErrored[T, R any](fn func(error) R) ResourceHandler[T, R] {
	return resource.OnErrored[T, R](fn)
}

// SnapshotResource captures the resource's state, data and error in
// one consistent, non-reactive read.
func SnapshotResource[T any](r *Resource[T]) ResourceResult[T] {
	return resource.Snapshot(r)
}

// =============================================================================
// Preloading
// =============================================================================

// PreloadCache caches preloaded values for later resource construction.
type PreloadCache = resource.Cache

// PreloadCacheOption configures a PreloadCache.
type PreloadCacheOption = resource.CacheOption

// NewPreloadCache creates a preload cache.
var NewPreloadCache = resource.NewCache

// DefaultPreloadCache returns the process-wide preload cache.
var DefaultPreloadCache = resource.DefaultCache

// Preload cache options.
var (
	WithTTL           = resource.WithTTL
	WithMaxEntries    = resource.WithMaxEntries
	WithMaxConcurrent = resource.WithMaxConcurrent
)

// Preload fetches a value into the default cache, deduplicating
// concurrent fetches of the same key.
func Preload[T any](ctx context.Context, key string, fetcher Fetcher[T]) (T, error) {
	return resource.Preload(ctx, key, fetcher)
}

// PreloadInto is Preload against an explicit cache.
func PreloadInto[T any](ctx context.Context, c *PreloadCache, key string, fetcher Fetcher[T]) (T, error) {
	return resource.PreloadInto(ctx, c, key, fetcher)
}

// GetPreloaded returns a fresh value from the default cache.
func GetPreloaded[T any](key string) (T, bool) {
	return resource.GetPreloaded[T](key)
}

// ClearPreloaded drops a key from the default cache.
var ClearPreloaded = resource.ClearPreloaded

// WithPreload seeds a resource from a cache entry when fresh,
// skipping the initial fetch.
func WithPreload[T any](cache *PreloadCache, key string) ResourceOption[T] {
	return resource.WithPreload[T](cache, key)
}

// =============================================================================
// Errors (re-export from pkg/features/resource)
// =============================================================================

// ErrUnresolved is returned by Wait when no fetch was ever issued.
var ErrUnresolved = resource.ErrUnresolved

// ErrResourceDisposed is returned by Wait after disposal.
var ErrResourceDisposed = resource.ErrDisposed
