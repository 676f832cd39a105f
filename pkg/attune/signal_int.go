package attune

// IntSignal wraps Signal[int] with convenience methods for counters.
type IntSignal struct {
	*Signal[int]
}

// NewIntSignal creates an IntSignal on rt with the given initial value.
func NewIntSignal(rt *Runtime, initial int) *IntSignal {
	return &IntSignal{NewSignal(rt, initial)}
}

// Inc increments the value by 1.
func (s *IntSignal) Inc() {
	s.Update(func(n int) int { return n + 1 })
}

// Dec decrements the value by 1.
func (s *IntSignal) Dec() {
	s.Update(func(n int) int { return n - 1 })
}

// Add adds the given value.
func (s *IntSignal) Add(n int) {
	s.Update(func(v int) int { return v + n })
}

// Sub subtracts the given value.
func (s *IntSignal) Sub(n int) {
	s.Update(func(v int) int { return v - n })
}

// Float64Signal wraps Signal[float64] with convenience methods.
type Float64Signal struct {
	*Signal[float64]
}

// NewFloat64Signal creates a Float64Signal on rt with the given initial value.
func NewFloat64Signal(rt *Runtime, initial float64) *Float64Signal {
	return &Float64Signal{NewSignal(rt, initial)}
}

// Add adds the given value.
func (s *Float64Signal) Add(n float64) {
	s.Update(func(v float64) float64 { return v + n })
}

// Sub subtracts the given value.
func (s *Float64Signal) Sub(n float64) {
	s.Update(func(v float64) float64 { return v - n })
}

// Scale multiplies by the given factor.
func (s *Float64Signal) Scale(n float64) {
	s.Update(func(v float64) float64 { return v * n })
}
