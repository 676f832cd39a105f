package attune

import (
	"context"
	"strings"
	"time"

	"github.com/zoobzio/capitan"
)

// Scheduler lifecycle signals. FlushCompleted and EffectDisposed are only
// emitted when the runtime was built with WithLifecycleEvents; storms are
// always emitted.
var (
	// FlushCompleted is emitted after a flush settles.
	FlushCompleted = capitan.NewSignal(
		"attune.flush.completed",
		"Flush drained the effect queue",
	)

	// FlushStormDetected is emitted when a flush exceeds its pass limit.
	FlushStormDetected = capitan.NewSignal(
		"attune.flush.storm",
		"Flush exceeded the pass limit",
	)

	// EffectDisposed is emitted when an effect is disposed.
	EffectDisposed = capitan.NewSignal(
		"attune.effect.disposed",
		"Effect disposed",
	)
)

func (rt *Runtime) emitFlushCompleted(passes, runs int, duration time.Duration) {
	if !rt.emitEvents {
		return
	}
	capitan.Emit(context.Background(), FlushCompleted,
		KeyRuntime.Field(int(rt.id)),
		KeyPasses.Field(passes),
		KeyEffectRuns.Field(runs),
		KeyDuration.Field(duration),
	)
}

func (rt *Runtime) emitFlushStorm(passes, queued int, names []string) {
	capitan.Emit(context.Background(), FlushStormDetected,
		KeyRuntime.Field(int(rt.id)),
		KeyPasses.Field(passes),
		KeyQueued.Field(queued),
		KeyPolicy.Field(rt.stormPolicy.String()),
		KeyEffects.Field(strings.Join(names, ",")),
	)
}

func (rt *Runtime) emitEffectDisposed(e *Effect) {
	if !rt.emitEvents {
		return
	}
	capitan.Emit(context.Background(), EffectDisposed,
		KeyRuntime.Field(int(rt.id)),
		KeyEffectID.Field(int(e.id)),
		KeyEffectName.Field(e.name),
	)
}
