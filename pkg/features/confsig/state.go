package confsig

// State describes a binding's health.
type State int32

const (
	// Loading means no configuration has been processed yet.
	Loading State = iota

	// Healthy means the latest configuration was applied.
	Healthy

	// Degraded means the latest change was rejected; the previous valid
	// configuration is still in effect.
	Degraded

	// Empty means no configuration has ever been valid. The binding
	// keeps watching for one.
	Empty
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Healthy:
		return "healthy"
	case Degraded:
		return "degraded"
	case Empty:
		return "empty"
	default:
		return "unknown"
	}
}

// Valid reports whether the binding holds a usable configuration.
func (s State) Valid() bool {
	return s == Healthy || s == Degraded
}
