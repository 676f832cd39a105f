package resource

import "github.com/zoobzio/capitan"

// Field keys for resource lifecycle events.
var (
	KeyResource   = capitan.NewStringKey("resource")
	KeyRuntime    = capitan.NewIntKey("runtime")
	KeyGeneration = capitan.NewIntKey("generation")
	KeyTrigger    = capitan.NewStringKey("trigger")
	KeyOutcome    = capitan.NewStringKey("outcome")
	KeyError      = capitan.NewStringKey("error")
	KeyAttempt    = capitan.NewIntKey("attempt")
	KeyDuration   = capitan.NewDurationKey("duration")
	KeyCacheKey   = capitan.NewStringKey("key")
)
