package resource

// Result is an untracked snapshot of a resource's outcome, convenient
// for logging and assertions outside the reactive graph.
type Result[T any] struct {
	State State
	Data  T
	Err   error
}

// Ready reports whether the snapshot holds settled data.
func (res Result[T]) Ready() bool { return res.State == Ready }

// Loading reports whether a fetch was in flight at snapshot time.
func (res Result[T]) Loading() bool { return res.State.Loading() }

// Snapshot captures the resource's current state, data, and error
// without subscribing.
func Snapshot[T any](r *Resource[T]) Result[T] {
	return Result[T]{
		State: r.state.Peek(),
		Data:  r.data.Peek(),
		Err:   r.err.Peek(),
	}
}

// Handler matches one or more resource states and produces a value.
type Handler[T, R any] interface {
	handle(r *Resource[T]) (R, bool)
}

// Match dispatches on the resource state: the first handler that matches
// produces the result, the zero value of R when none do. It reads the
// state and data through tracked accessors, so calling Match inside an
// effect or memo re-evaluates it on every state transition.
func Match[T, R any](r *Resource[T], handlers ...Handler[T, R]) R {
	for _, h := range handlers {
		if out, ok := h.handle(r); ok {
			return out
		}
	}
	var zero R
	return zero
}

type readyHandler[T, R any] struct {
	fn func(T) R
}

func (h readyHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State() == Ready {
		return h.fn(r.Data()), true
	}
	var zero R
	return zero, false
}

type pendingHandler[T, R any] struct {
	fn func() R
}

func (h pendingHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State() == Pending {
		return h.fn(), true
	}
	var zero R
	return zero, false
}

type refreshingHandler[T, R any] struct {
	fn func(T) R
}

func (h refreshingHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State() == Refreshing {
		return h.fn(r.Latest()), true
	}
	var zero R
	return zero, false
}

type erroredHandler[T, R any] struct {
	fn func(error) R
}

func (h erroredHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State() == Errored {
		return h.fn(r.Err()), true
	}
	var zero R
	return zero, false
}

type unresolvedHandler[T, R any] struct {
	fn func() R
}

func (h unresolvedHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State() == Unresolved {
		return h.fn(), true
	}
	var zero R
	return zero, false
}

type loadingHandler[T, R any] struct {
	fn func() R
}

func (h loadingHandler[T, R]) handle(r *Resource[T]) (R, bool) {
	if r.State().Loading() {
		return h.fn(), true
	}
	var zero R
	return zero, false
}

// OnReady handles the Ready state with the settled data.
func OnReady[T, R any](fn func(T) R) Handler[T, R] {
	return readyHandler[T, R]{fn: fn}
}

// OnPending handles the Pending state.
func OnPending[T, R any](fn func() R) Handler[T, R] {
	return pendingHandler[T, R]{fn: fn}
}

// OnRefreshing handles the Refreshing state with the previous data,
// which stays available during the reload.
func OnRefreshing[T, R any](fn func(T) R) Handler[T, R] {
	return refreshingHandler[T, R]{fn: fn}
}

// OnErrored handles the Errored state with the fetch error.
func OnErrored[T, R any](fn func(error) R) Handler[T, R] {
	return erroredHandler[T, R]{fn: fn}
}

// OnUnresolved handles the Unresolved state.
func OnUnresolved[T, R any](fn func() R) Handler[T, R] {
	return unresolvedHandler[T, R]{fn: fn}
}

// OnLoading handles both Pending and Refreshing. Place it before the
// more specific handlers it should shadow, after those it should not.
func OnLoading[T, R any](fn func() R) Handler[T, R] {
	return loadingHandler[T, R]{fn: fn}
}
