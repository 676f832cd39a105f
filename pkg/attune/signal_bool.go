package attune

// BoolSignal wraps Signal[bool] with convenience methods for flags.
type BoolSignal struct {
	*Signal[bool]
}

// NewBoolSignal creates a BoolSignal on rt with the given initial value.
func NewBoolSignal(rt *Runtime, initial bool) *BoolSignal {
	return &BoolSignal{NewSignal(rt, initial)}
}

// Toggle inverts the boolean value.
func (s *BoolSignal) Toggle() {
	s.Update(func(b bool) bool { return !b })
}

// SetTrue sets the value to true.
func (s *BoolSignal) SetTrue() {
	s.Set(true)
}

// SetFalse sets the value to false.
func (s *BoolSignal) SetFalse() {
	s.Set(false)
}
