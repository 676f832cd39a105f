package attune

// StringSignal wraps Signal[string] with convenience methods.
type StringSignal struct {
	*Signal[string]
}

// NewStringSignal creates a StringSignal on rt with the given initial value.
func NewStringSignal(rt *Runtime, initial string) *StringSignal {
	return &StringSignal{NewSignal(rt, initial)}
}

// Append adds the given string to the end.
func (s *StringSignal) Append(suffix string) {
	s.Update(func(v string) string { return v + suffix })
}

// Clear sets the value to an empty string.
func (s *StringSignal) Clear() {
	s.Set("")
}

// Len returns the length of the string.
// This reads the signal and creates a dependency.
func (s *StringSignal) Len() int {
	return len(s.Get())
}

// IsEmpty returns true if the string is empty.
// This reads the signal and creates a dependency.
func (s *StringSignal) IsEmpty() bool {
	return s.Get() == ""
}
