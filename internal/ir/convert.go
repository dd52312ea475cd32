package ir

import (
	"fmt"
	"math"
	"time"
)

// FromGo converts a decoded Go value (from JSON, YAML or CUE) to a Value.
//
// Accepts nil, bool, all integer kinds, float32/float64, string, time.Time,
// []any, map[string]any and existing Values. Non-finite floats are rejected.
func FromGo(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int8:
		return Int(val), nil
	case int16:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint8:
		return Int(val), nil
	case uint16:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case uint64:
		if val > math.MaxInt64 {
			return nil, fmt.Errorf("integer %d overflows int64", val)
		}
		return Int(val), nil
	case float32:
		return fromFloat(float64(val))
	case float64:
		return fromFloat(val)
	case string:
		return String(val), nil
	case time.Time:
		return Time(val), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromGo(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// MustFromGo is like FromGo but panics on error.
// Use only in tests or with literal inputs.
func MustFromGo(v any) Value {
	val, err := FromGo(v)
	if err != nil {
		panic(err)
	}
	return val
}

func fromFloat(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite float: %v", f)
	}
	return Float(f), nil
}

// ToGo converts a Value back to plain Go types.
// Null becomes nil, Time stays time.Time, containers become []any/map[string]any.
func ToGo(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case Bool:
		return bool(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case String:
		return string(val)
	case Time:
		return time.Time(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToGo(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToGo(elem)
		}
		return out
	default:
		return nil
	}
}

// Clone returns a deep copy of v. Array and Object values are copied
// recursively; scalars are returned as is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case Array:
		if val == nil {
			return val
		}
		out := make(Array, len(val))
		for i, e := range val {
			out[i] = Clone(e)
		}
		return out
	case Object:
		if val == nil {
			return val
		}
		out := make(Object, len(val))
		for k, e := range val {
			out[k] = Clone(e)
		}
		return out
	default:
		return v
	}
}

// Equal reports whether two values are identical in type and content.
// Int(1) and Float(1) are NOT equal; the engine never coerces types.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}

	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Int:
		bv, ok := b.(Int)
		return ok && av == bv
	case Float:
		bv, ok := b.(Float)
		return ok && av == bv
	case String:
		bv, ok := b.(String)
		return ok && av == bv
	case Time:
		bv, ok := b.(Time)
		return ok && time.Time(av).Equal(time.Time(bv))
	case Array:
		bv, ok := b.(Array)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case Object:
		bv, ok := b.(Object)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			other, exists := bv[k]
			if !exists || !Equal(v, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// AsFloat returns the numeric value of an Int or Float.
func AsFloat(v Value) (float64, bool) {
	switch val := v.(type) {
	case Int:
		return float64(val), true
	case Float:
		return float64(val), true
	default:
		return 0, false
	}
}

// AsInt returns the value of an Int, or of a Float with no fractional part.
func AsInt(v Value) (int64, bool) {
	switch val := v.(type) {
	case Int:
		return int64(val), true
	case Float:
		f := float64(val)
		if f == math.Trunc(f) && f >= math.MinInt64 && f <= math.MaxInt64 {
			return int64(f), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// Add sums two numeric values.
// Int + Int stays Int; any Float operand yields Float.
// Non-numeric operands are an error, never a silent concatenation.
func Add(a, b Value) (Value, error) {
	ai, aInt := a.(Int)
	bi, bInt := b.(Int)
	if aInt && bInt {
		sum := ai + bi
		if (sum > ai) != (bi > 0) {
			return nil, fmt.Errorf("integer overflow: %d + %d", ai, bi)
		}
		return sum, nil
	}

	af, aOK := AsFloat(a)
	bf, bOK := AsFloat(b)
	if !aOK || !bOK {
		return nil, fmt.Errorf("cannot add %s and %s", TypeName(a), TypeName(b))
	}
	return fromFloat(af + bf)
}

// Compare orders two values of comparable types.
// Numbers compare numerically across Int/Float; strings and times compare
// naturally. Any other combination is an error.
func Compare(a, b Value) (int, error) {
	if af, ok := AsFloat(a); ok {
		if bf, ok := AsFloat(b); ok {
			switch {
			case af < bf:
				return -1, nil
			case af > bf:
				return 1, nil
			default:
				return 0, nil
			}
		}
	}

	switch av := a.(type) {
	case String:
		if bv, ok := b.(String); ok {
			return compareOrdered(av, bv), nil
		}
	case Time:
		if bv, ok := b.(Time); ok {
			return time.Time(av).Compare(time.Time(bv)), nil
		}
	}
	return 0, fmt.Errorf("cannot compare %s and %s", TypeName(a), TypeName(b))
}

func compareOrdered(a, b String) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Index returns element i of an Array value.
func Index(v Value, i int) (Value, error) {
	arr, ok := v.(Array)
	if !ok {
		return nil, fmt.Errorf("expected array, got %s", TypeName(v))
	}
	if i < 0 || i >= len(arr) {
		return nil, fmt.Errorf("index %d out of range [0,%d)", i, len(arr))
	}
	return arr[i], nil
}

// Field returns key k of an Object value.
func Field(v Value, k string) (Value, error) {
	obj, ok := v.(Object)
	if !ok {
		return nil, fmt.Errorf("expected object, got %s", TypeName(v))
	}
	val, ok := obj[k]
	if !ok {
		return nil, fmt.Errorf("field %q not found", k)
	}
	return val, nil
}
