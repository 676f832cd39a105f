package resource

import "errors"

// ErrUnresolved is returned by Wait when no fetch has been issued, so
// waiting would block forever. Source-tracked resources return it until
// their source first produces a value.
var ErrUnresolved = errors.New("resource: no fetch started")

// ErrDisposed is returned by Wait after Dispose. Refetch and Mutate on a
// disposed resource are silent no-ops, matching how disposed computations
// are skipped elsewhere in the graph.
var ErrDisposed = errors.New("resource: disposed")
