package resource

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"
)

// Lifecycle signals. Hook them for observability:
//
//	capitan.Hook(resource.FetchSettled, func(ctx context.Context, e *capitan.Event) {
//		log.Printf("settled %s in %s", resource.KeyResource.From(e), resource.KeyDuration.From(e))
//	})
//
// Fetches are orders of magnitude rarer than signal writes, so these
// emit unconditionally.
var (
	FetchStarted   = capitan.NewSignal("resource.fetch.started", "A fetch generation began")
	FetchSettled   = capitan.NewSignal("resource.fetch.settled", "A fetch committed its result")
	FetchRetried   = capitan.NewSignal("resource.fetch.retried", "A failed attempt is being retried")
	FetchDiscarded = capitan.NewSignal("resource.fetch.discarded", "A superseded fetch result was dropped")

	PreloadHit     = capitan.NewSignal("resource.preload.hit", "A preload cache lookup matched")
	PreloadMiss    = capitan.NewSignal("resource.preload.miss", "A preload cache lookup missed")
	PreloadStored  = capitan.NewSignal("resource.preload.stored", "A value was cached for preload")
	PreloadExpired = capitan.NewSignal("resource.preload.expired", "A preload entry aged out")
)

func (r *Resource[T]) emitStarted(gen uint64, refetching bool) {
	trigger := "initial"
	if refetching {
		trigger = "refetch"
	}
	capitan.Emit(context.Background(), FetchStarted,
		KeyResource.Field(r.name),
		KeyRuntime.Field(int(r.rt.ID())),
		KeyGeneration.Field(int(gen)),
		KeyTrigger.Field(trigger),
	)
}

func (r *Resource[T]) emitSettled(gen uint64, err error, took time.Duration) {
	outcome := "ready"
	msg := ""
	if err != nil {
		outcome = "errored"
		msg = err.Error()
	}
	capitan.Emit(context.Background(), FetchSettled,
		KeyResource.Field(r.name),
		KeyRuntime.Field(int(r.rt.ID())),
		KeyGeneration.Field(int(gen)),
		KeyOutcome.Field(outcome),
		KeyError.Field(msg),
		KeyDuration.Field(took),
	)
}

func (r *Resource[T]) emitRetry(gen uint64, attempt int, err error) {
	capitan.Emit(context.Background(), FetchRetried,
		KeyResource.Field(r.name),
		KeyRuntime.Field(int(r.rt.ID())),
		KeyGeneration.Field(int(gen)),
		KeyAttempt.Field(attempt),
		KeyError.Field(err.Error()),
	)
}

func (r *Resource[T]) emitDiscarded(gen uint64, err error) {
	outcome := "ready"
	if err != nil {
		outcome = "errored"
	}
	capitan.Emit(context.Background(), FetchDiscarded,
		KeyResource.Field(r.name),
		KeyRuntime.Field(int(r.rt.ID())),
		KeyGeneration.Field(int(gen)),
		KeyOutcome.Field(outcome),
	)
}

func emitPreloadHit(key string) {
	capitan.Emit(context.Background(), PreloadHit, KeyCacheKey.Field(key))
}

func emitPreloadMiss(key string) {
	capitan.Emit(context.Background(), PreloadMiss, KeyCacheKey.Field(key))
}

func emitPreloadStored(key string) {
	capitan.Emit(context.Background(), PreloadStored, KeyCacheKey.Field(key))
}

func emitPreloadExpired(key string) {
	capitan.Emit(context.Background(), PreloadExpired, KeyCacheKey.Field(key))
}
