package confsig

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Binding lifecycle signals. Configuration changes are rare, so these
// emit unconditionally.
var (
	BindingApplied = capitan.NewSignal(
		"confsig.binding.applied",
		"A configuration change was validated and committed",
	)
	BindingRejected = capitan.NewSignal(
		"confsig.binding.rejected",
		"A configuration change failed unmarshal or validation",
	)
	BindingStateChanged = capitan.NewSignal(
		"confsig.binding.state.changed",
		"Binding health transition",
	)
)

func (b *Binding[T]) emitApplied(ctx context.Context) {
	capitan.Emit(ctx, BindingApplied,
		KeyBinding.Field(b.name),
		KeyRuntime.Field(int(b.rt.ID())),
	)
}

func (b *Binding[T]) emitRejected(ctx context.Context, reason string, err error) {
	capitan.Emit(ctx, BindingRejected,
		KeyBinding.Field(b.name),
		KeyRuntime.Field(int(b.rt.ID())),
		KeyReason.Field(reason),
		KeyError.Field(err.Error()),
	)
}

func (b *Binding[T]) emitStateChanged(ctx context.Context, old, next State) {
	capitan.Emit(ctx, BindingStateChanged,
		KeyBinding.Field(b.name),
		KeyRuntime.Field(int(b.rt.ID())),
		KeyOldState.Field(old.String()),
		KeyNewState.Field(next.String()),
	)
}
