package resource

// State is a resource's position in the fetch lifecycle.
type State int32

const (
	// Unresolved means no fetch has been issued. A source-tracked
	// resource stays Unresolved while its source is absent.
	Unresolved State = iota

	// Pending means a fetch is in flight and no current data exists.
	Pending

	// Ready means the last fetch succeeded and Data holds its result.
	Ready

	// Refreshing means a fetch is in flight while previously loaded
	// data is still current and readable.
	Refreshing

	// Errored means the last fetch failed after exhausting retries.
	// Err holds the failure; Data keeps whatever loaded last.
	Errored
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Refreshing:
		return "refreshing"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Loading reports whether a fetch is in flight.
func (s State) Loading() bool {
	return s == Pending || s == Refreshing
}
