package attune

import "errors"

// ErrUpdateStorm is the sentinel wrapped by the panic raised when a flush
// exceeds the runtime's pass limit. A storm means an effect is writing a
// signal it also (directly or transitively) depends on, so every flush pass
// re-dirties work the pass just completed.
//
// Recover the panic and check with errors.Is to distinguish storms from
// other failures:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        if err, ok := r.(error); ok && errors.Is(err, attune.ErrUpdateStorm) {
//	            // a self-dependent effect, fix the cycle
//	        }
//	    }
//	}()
//
// Runtimes configured with StormThrottle log and drop the queue instead of
// panicking.
var ErrUpdateStorm = errors.New("attune: update storm: flush pass limit exceeded")

// ErrDifferentRuntime is the sentinel wrapped by the panic raised when
// primitives from one Runtime are wired into another, for example passing
// an Owner created on runtime A to B's WithOwner. Each Runtime owns an
// isolated graph; edges never cross runtimes.
var ErrDifferentRuntime = errors.New("attune: primitive belongs to a different runtime")

// ErrDisposed is the sentinel wrapped by the panic raised when a disposed
// Owner is made current again via WithOwner. Writes to signals whose only
// subscribers are disposed computations are NOT an error; disposed
// computations are simply skipped.
var ErrDisposed = errors.New("attune: owner already disposed")
