package resource

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultPreloadTTL is how long a preloaded value stays usable.
	DefaultPreloadTTL = 5 * time.Minute

	// DefaultPreloadMaxEntries caps the cache before LRU eviction.
	DefaultPreloadMaxEntries = 128
)

// Cache holds preloaded values keyed by string, with TTL expiry and LRU
// eviction. A fetch started through Preload before a resource needs the
// value lets the resource seed itself as Ready instantly via WithPreload.
//
// Values are stored untyped; the generic accessors recover the type.
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // LRU order (front = most recent)

	ttl        time.Duration
	maxEntries int
	clock      clockz.Clock

	group singleflight.Group
	sem   *semaphore.Weighted // nil when concurrency is unlimited
}

// cacheItem holds an entry in the LRU list.
type cacheItem struct {
	key       string
	value     any
	expiresAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long entries stay fresh.
func WithTTL(d time.Duration) CacheOption {
	return func(c *Cache) { c.ttl = d }
}

// WithMaxEntries caps the cache size; the least recently used entry is
// evicted when a put exceeds it.
func WithMaxEntries(n int) CacheOption {
	return func(c *Cache) { c.maxEntries = n }
}

// WithCacheClock substitutes the clock used for expiry. Tests pass a
// fake clock to step entries past their TTL.
func WithCacheClock(clock clockz.Clock) CacheOption {
	return func(c *Cache) { c.clock = clock }
}

// WithMaxConcurrent bounds how many preload fetches run at once across
// the cache. Excess Preload calls block until a slot frees.
func WithMaxConcurrent(n int64) CacheOption {
	return func(c *Cache) { c.sem = semaphore.NewWeighted(n) }
}

// NewCache creates a preload cache.
func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        DefaultPreloadTTL,
		maxEntries: DefaultPreloadMaxEntries,
		clock:      clockz.RealClock,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// lookupAny returns the live entry for key, expiring it lazily.
func (c *Cache) lookupAny(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	item := elem.Value.(*cacheItem)
	if c.clock.Now().After(item.expiresAt) {
		c.order.Remove(elem)
		delete(c.entries, key)
		emitPreloadExpired(key)
		return nil, false
	}
	c.order.MoveToFront(elem)
	return item.value, true
}

// put stores value under key, evicting the least recently used entries
// when over capacity.
func (c *Cache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.clock.Now().Add(c.ttl)
	if elem, ok := c.entries[key]; ok {
		item := elem.Value.(*cacheItem)
		item.value = value
		item.expiresAt = expires
		c.order.MoveToFront(elem)
		return
	}

	for c.maxEntries > 0 && c.order.Len() >= c.maxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		item := oldest.Value.(*cacheItem)
		c.order.Remove(oldest)
		delete(c.entries, item.key)
	}

	elem := c.order.PushFront(&cacheItem{key: key, value: value, expiresAt: expires})
	c.entries[key] = elem
	emitPreloadStored(key)
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		c.order.Remove(elem)
		delete(c.entries, key)
	}
}

// Clear removes all entries.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order = list.New()
}

// Len returns the number of entries, counting any not yet lazily
// expired.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// lookup recovers a typed value from the cache. A stored value of a
// different type counts as a miss.
func lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	raw, ok := c.lookupAny(key)
	if !ok {
		return zero, false
	}
	value, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return value, true
}

// FromCache returns the cached value for key if present and fresh.
func FromCache[T any](c *Cache, key string) (T, bool) {
	value, ok := lookup[T](c, key)
	if ok {
		emitPreloadHit(key)
	} else {
		emitPreloadMiss(key)
	}
	return value, ok
}

// PreloadInto fetches key's value ahead of use and stores it in c. A
// fresh cached value is returned without fetching. Concurrent preloads
// of the same key share a single fetch; the context of the caller that
// starts the flight governs it.
func PreloadInto[T any](ctx context.Context, c *Cache, key string, fetcher Fetcher[T]) (T, error) {
	var zero T
	if value, ok := lookup[T](c, key); ok {
		emitPreloadHit(key)
		return value, nil
	}
	emitPreloadMiss(key)

	raw, err, _ := c.group.Do(key, func() (any, error) {
		if c.sem != nil {
			if aerr := c.sem.Acquire(ctx, 1); aerr != nil {
				return nil, aerr
			}
			defer c.sem.Release(1)
		}
		value, ferr := fetcher(ctx, FetchInfo[T]{})
		if ferr != nil {
			return nil, ferr
		}
		c.put(key, value)
		return value, nil
	})
	if err != nil {
		return zero, err
	}
	value, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("resource: preload %q holds %T, not %T", key, raw, zero)
	}
	return value, nil
}

// defaultCache backs the package-level preload helpers.
var defaultCache = NewCache()

// DefaultCache returns the process-wide preload cache used by Preload,
// GetPreloaded, and ClearPreloaded.
func DefaultCache() *Cache {
	return defaultCache
}

// Preload fetches and caches key's value in the default cache.
func Preload[T any](ctx context.Context, key string, fetcher Fetcher[T]) (T, error) {
	return PreloadInto(ctx, defaultCache, key, fetcher)
}

// GetPreloaded returns key's value from the default cache if present
// and fresh.
func GetPreloaded[T any](key string) (T, bool) {
	return FromCache[T](defaultCache, key)
}

// ClearPreloaded drops key from the default cache.
func ClearPreloaded(key string) {
	defaultCache.Delete(key)
}
