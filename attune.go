// Package attune provides the public API for the attune reactive runtime.
//
// This is the recommended import for most applications:
//
//	import "github.com/attune-dev/attune"
//
// Usage:
//
//	rt := attune.NewRuntime()
//	count := attune.NewSignal(rt, 0)
//	double := attune.NewMemo(rt, func() int { return count.Get() * 2 })
//	attune.CreateEffect(rt, func() attune.Cleanup {
//		fmt.Println("double is", double.Get())
//		return nil
//	})
//	count.Set(21)
package attune

import (
	coreattune "github.com/attune-dev/attune/pkg/attune"
)

// =============================================================================
// Runtime
// =============================================================================

// Runtime owns one independent reactive graph: its tracking scopes, its
// scheduler and its configuration. Multiple runtimes coexist in one
// process without sharing state.
type Runtime = coreattune.Runtime

// Option configures a Runtime.
type Option = coreattune.Option

// NewRuntime creates a runtime with the given options.
//
// Example:
//
//	rt := attune.NewRuntime(attune.WithLogger(slog.Default()))
var NewRuntime = coreattune.NewRuntime

// Runtime options.
var (
	WithLogger          = coreattune.WithLogger
	WithCollector       = coreattune.WithCollector
	WithClock           = coreattune.WithClock
	WithMaxFlushPasses  = coreattune.WithMaxFlushPasses
	WithStormPolicy     = coreattune.WithStormPolicy
	WithLifecycleEvents = coreattune.WithLifecycleEvents
)

// StormPolicy selects how a runtime reacts when a flush exceeds its
// pass limit.
type StormPolicy = coreattune.StormPolicy

const (
	StormPanic    = coreattune.StormPanic
	StormThrottle = coreattune.StormThrottle
)

// Stats is a point-in-time snapshot of a runtime's graph counters.
type Stats = coreattune.Stats

// =============================================================================
// Reactive primitives (re-export from pkg/attune)
// =============================================================================

// Signal type aliases.
type Signal[T any] = coreattune.Signal[T]
type Memo[T any] = coreattune.Memo[T]
type Effect = coreattune.Effect
type Owner = coreattune.Owner
type Cleanup = coreattune.Cleanup
type Listener = coreattune.Listener
type SignalOpt[T any] = coreattune.SignalOpt[T]
type EffectOption = coreattune.EffectOption

// NewSignal creates a reactive signal on rt with the given initial value.
//
// Example:
//
//	count := attune.NewSignal(rt, 0)
//	count.Set(1)
//	value := count.Get() // 1
func NewSignal[T any](rt *Runtime, initial T, opts ...SignalOpt[T]) *Signal[T] {
	return coreattune.NewSignal(rt, initial, opts...)
}

// NewMemo creates a computed value that automatically tracks the
// signals and memos its function reads.
//
// Example:
//
//	doubled := attune.NewMemo(rt, func() int {
//		return count.Get() * 2
//	})
func NewMemo[T any](rt *Runtime, fn func() T) *Memo[T] {
	return coreattune.NewMemo(rt, fn)
}

// CreateEffect registers a side effect that reruns when its
// dependencies change. The returned cleanup runs before each rerun and
// on disposal.
//
// Example:
//
//	attune.CreateEffect(rt, func() attune.Cleanup {
//		fmt.Println("count is", count.Get())
//		return nil
//	})
var CreateEffect = coreattune.CreateEffect

// CreateRoot runs fn under a fresh parentless owner and hands it the
// owner's dispose function. Everything created inside is torn down
// together.
func CreateRoot[T any](rt *Runtime, fn func(dispose func()) T) T {
	return coreattune.CreateRoot(rt, fn)
}

// NewOwner creates an explicit disposal scope under parent.
var NewOwner = coreattune.NewOwner

// EffectName attaches a diagnostic name to an effect.
var EffectName = coreattune.EffectName

// BatchValue runs fn inside a batch and returns its result. Use
// rt.Batch for the no-result form.
func BatchValue[T any](rt *Runtime, fn func() T) T {
	return coreattune.BatchValue(rt, fn)
}

// Untrack runs fn without dependency tracking and returns its result.
func Untrack[T any](rt *Runtime, fn func() T) T {
	return coreattune.Untrack(rt, fn)
}

// UntrackedGet reads a signal's value without subscribing.
func UntrackedGet[T any](s *Signal[T]) T {
	return coreattune.UntrackedGet(s)
}

// =============================================================================
// Equality policies
// =============================================================================

// WithEquals overrides the signal's change comparator.
func WithEquals[T any](equals func(a, b T) bool) SignalOpt[T] {
	return coreattune.WithEquals(equals)
}

// EqualityOf compares with ==.
func EqualityOf[T comparable]() func(T, T) bool {
	return coreattune.EqualityOf[T]()
}

// DeepEquality compares with reflect.DeepEqual.
func DeepEquality[T any]() func(T, T) bool {
	return coreattune.DeepEquality[T]()
}

// NeverEqual treats every write as a change.
func NeverEqual[T any]() func(T, T) bool {
	return coreattune.NeverEqual[T]()
}

// =============================================================================
// Typed signal wrappers
// =============================================================================

type IntSignal = coreattune.IntSignal
type Float64Signal = coreattune.Float64Signal
type BoolSignal = coreattune.BoolSignal
type StringSignal = coreattune.StringSignal
type SliceSignal[T any] = coreattune.SliceSignal[T]
type MapSignal[K comparable, V any] = coreattune.MapSignal[K, V]

var NewIntSignal = coreattune.NewIntSignal
var NewFloat64Signal = coreattune.NewFloat64Signal
var NewBoolSignal = coreattune.NewBoolSignal
var NewStringSignal = coreattune.NewStringSignal

// NewSliceSignal creates a signal holding a slice, compared element-wise.
func NewSliceSignal[T any](rt *Runtime, initial []T) *SliceSignal[T] {
	return coreattune.NewSliceSignal(rt, initial)
}

// NewMapSignal creates a signal holding a map, compared by reflect.DeepEqual.
func NewMapSignal[K comparable, V any](rt *Runtime, initial map[K]V) *MapSignal[K, V] {
	return coreattune.NewMapSignal(rt, initial)
}

// =============================================================================
// Observability
// =============================================================================

// Collector receives counters from a runtime's hot paths.
type Collector = coreattune.Collector

// NoopCollector discards everything.
type NoopCollector = coreattune.NoopCollector

// BasicCollector counts events with atomics, for tests and cheap stats.
type BasicCollector = coreattune.BasicCollector

// BasicStats is a BasicCollector snapshot.
type BasicStats = coreattune.BasicStats

// =============================================================================
// Errors (re-export from pkg/attune)
// =============================================================================

var ErrUpdateStorm = coreattune.ErrUpdateStorm
var ErrDifferentRuntime = coreattune.ErrDifferentRuntime
var ErrDisposed = coreattune.ErrDisposed
