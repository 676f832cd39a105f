package attune

// MapSignal wraps Signal[map[K]V] with convenience methods for map
// operations. Every mutation builds a fresh map rather than modifying the
// current one, so values handed out by Get stay stable and the equality
// check compares distinct snapshots.
type MapSignal[K comparable, V any] struct {
	*Signal[map[K]V]
}

// NewMapSignal creates a MapSignal on rt. A nil initial map becomes an
// empty one.
func NewMapSignal[K comparable, V any](rt *Runtime, initial map[K]V) *MapSignal[K, V] {
	if initial == nil {
		initial = make(map[K]V)
	}
	return &MapSignal[K, V]{NewSignal(rt, initial)}
}

// SetKey sets a key-value pair in the map.
func (s *MapSignal[K, V]) SetKey(key K, value V) {
	s.Update(func(m map[K]V) map[K]V {
		next := make(map[K]V, len(m)+1)
		for k, v := range m {
			next[k] = v
		}
		next[key] = value
		return next
	})
}

// RemoveKey removes a key from the map. A missing key is a no-op.
func (s *MapSignal[K, V]) RemoveKey(key K) {
	s.Update(func(m map[K]V) map[K]V {
		if _, ok := m[key]; !ok {
			return m
		}
		next := make(map[K]V, len(m))
		for k, v := range m {
			if k != key {
				next[k] = v
			}
		}
		return next
	})
}

// UpdateKey updates the value for a key using the provided function.
// A missing key is a no-op.
func (s *MapSignal[K, V]) UpdateKey(key K, fn func(V) V) {
	s.Update(func(m map[K]V) map[K]V {
		v, ok := m[key]
		if !ok {
			return m
		}
		next := make(map[K]V, len(m))
		for k, val := range m {
			next[k] = val
		}
		next[key] = fn(v)
		return next
	})
}

// GetKey returns the value for a key.
// This reads the signal and creates a dependency.
func (s *MapSignal[K, V]) GetKey(key K) (V, bool) {
	v, ok := s.Get()[key]
	return v, ok
}

// HasKey returns true if the key exists in the map.
// This reads the signal and creates a dependency.
func (s *MapSignal[K, V]) HasKey(key K) bool {
	_, ok := s.GetKey(key)
	return ok
}

// Len returns the number of keys in the map.
// This reads the signal and creates a dependency.
func (s *MapSignal[K, V]) Len() int {
	return len(s.Get())
}

// Clear removes all keys from the map.
func (s *MapSignal[K, V]) Clear() {
	s.Set(make(map[K]V))
}

// Keys returns all keys in the map, in no particular order.
// This reads the signal and creates a dependency.
func (s *MapSignal[K, V]) Keys() []K {
	m := s.Get()
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
