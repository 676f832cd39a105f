package attune

import "reflect"

// defaultEquals provides type-appropriate equality checking.
// Scalar kinds compare with ==; everything else falls back to
// reflect.DeepEqual.
func defaultEquals[T any](a, b T) bool {
	switch av := any(a).(type) {
	case int:
		return av == any(b).(int)
	case int8:
		return av == any(b).(int8)
	case int16:
		return av == any(b).(int16)
	case int32:
		return av == any(b).(int32)
	case int64:
		return av == any(b).(int64)
	case uint:
		return av == any(b).(uint)
	case uint8:
		return av == any(b).(uint8)
	case uint16:
		return av == any(b).(uint16)
	case uint32:
		return av == any(b).(uint32)
	case uint64:
		return av == any(b).(uint64)
	case float32:
		return av == any(b).(float32)
	case float64:
		return av == any(b).(float64)
	case string:
		return av == any(b).(string)
	case bool:
		return av == any(b).(bool)
	default:
		return reflect.DeepEqual(a, b)
	}
}

// EqualityOf returns a shallow == comparator for comparable types.
// Useful to opt a struct or pointer signal out of the DeepEqual fallback:
//
//	cfg := attune.NewSignal(rt, defaults, attune.WithEquals(attune.EqualityOf[Config]()))
func EqualityOf[T comparable]() func(T, T) bool {
	return func(a, b T) bool { return a == b }
}

// DeepEquality returns a reflect.DeepEqual comparator. This is the default
// for non-scalar types; use it explicitly when overriding back from a
// custom comparator.
func DeepEquality[T any]() func(T, T) bool {
	return func(a, b T) bool { return reflect.DeepEqual(a, b) }
}

// NeverEqual returns a comparator that reports every write as a change,
// so subscribers are notified even when the value is unchanged. Use for
// signals carrying mutable values updated in place.
func NeverEqual[T any]() func(T, T) bool {
	return func(T, T) bool { return false }
}
