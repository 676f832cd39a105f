package attune

import "github.com/zoobzio/capitan"

// Field keys for scheduler events.
var (
	// KeyRuntime is the emitting runtime's ID.
	KeyRuntime = capitan.NewIntKey("runtime")

	// KeyPasses is the number of passes a flush took.
	KeyPasses = capitan.NewIntKey("passes")

	// KeyEffectRuns is the number of effect executions in a flush.
	KeyEffectRuns = capitan.NewIntKey("effect_runs")

	// KeyDuration is the wall time a flush took.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyQueued is the number of effects still queued when a storm hit.
	KeyQueued = capitan.NewIntKey("queued")

	// KeyPolicy is the storm policy applied.
	KeyPolicy = capitan.NewStringKey("policy")

	// KeyEffectID identifies an effect within its runtime.
	KeyEffectID = capitan.NewIntKey("effect_id")

	// KeyEffectName is the effect's EffectName, when set.
	KeyEffectName = capitan.NewStringKey("effect_name")

	// KeyEffects is a comma-joined list of named effects still queued
	// when a storm hit.
	KeyEffects = capitan.NewStringKey("effects")
)
