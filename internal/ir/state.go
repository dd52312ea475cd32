package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pair is one (variable, value) entry of a State.
type Pair struct {
	Key   string
	Value Value
}

// P is a shorthand for Pair.
// Example: NewState(P("timestamp", Null{}), P("supply", Int(0)))
func P(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// State is an ordered snapshot of state variables.
//
// Key order is the declaration order of the initial snapshot and the key set
// never changes for the lifetime of a session. A State handed out by the
// engine is immutable; With returns a modified copy.
type State struct {
	keys   []string
	values map[string]Value
}

// NewState builds a State from pairs in the given order.
// Returns an error on duplicate or empty keys.
func NewState(pairs ...Pair) (State, error) {
	s := State{
		keys:   make([]string, 0, len(pairs)),
		values: make(map[string]Value, len(pairs)),
	}
	for _, p := range pairs {
		if p.Key == "" {
			return State{}, fmt.Errorf("state variable name must be non-empty")
		}
		if _, dup := s.values[p.Key]; dup {
			return State{}, fmt.Errorf("duplicate state variable %q", p.Key)
		}
		v := p.Value
		if v == nil {
			v = Null{}
		}
		s.keys = append(s.keys, p.Key)
		s.values[p.Key] = v
	}
	return s, nil
}

// MustState is like NewState but panics on error.
// Use only in tests or with literal inputs.
func MustState(pairs ...Pair) State {
	s, err := NewState(pairs...)
	if err != nil {
		panic(err)
	}
	return s
}

// Keys returns the variable names in declaration order.
func (s State) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of variables.
func (s State) Len() int {
	return len(s.keys)
}

// Has reports whether the variable exists.
func (s State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Get returns a variable's value, or Null if it does not exist.
func (s State) Get(key string) Value {
	if v, ok := s.values[key]; ok {
		return v
	}
	return Null{}
}

// Lookup returns a variable's value and whether it exists.
func (s State) Lookup(key string) (Value, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Clone returns a copy with its own key set. Array and Object values are
// shared with s; see DeepClone.
func (s State) Clone() State {
	c := State{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]Value, len(s.values)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.values {
		c.values[k] = v
	}
	return c
}

// DeepClone returns a copy that shares no Array or Object with s.
func (s State) DeepClone() State {
	c := State{
		keys:   make([]string, len(s.keys)),
		values: make(map[string]Value, len(s.values)),
	}
	copy(c.keys, s.keys)
	for k, v := range s.values {
		c.values[k] = Clone(v)
	}
	return c
}

// With returns a copy with one variable overwritten.
// The key must already exist: the key set of a State is fixed.
func (s State) With(key string, v Value) (State, error) {
	if !s.Has(key) {
		return State{}, fmt.Errorf("unknown state variable %q", key)
	}
	c := s.Clone()
	if v == nil {
		v = Null{}
	}
	c.values[key] = v
	return c, nil
}

// Apply returns a copy with every pair overwritten, cloning once.
// Every key must already exist. Later pairs win over earlier ones.
func (s State) Apply(pairs ...Pair) (State, error) {
	for _, p := range pairs {
		if !s.Has(p.Key) {
			return State{}, fmt.Errorf("unknown state variable %q", p.Key)
		}
	}
	c := s.Clone()
	for _, p := range pairs {
		v := p.Value
		if v == nil {
			v = Null{}
		}
		c.values[p.Key] = v
	}
	return c, nil
}

// Object returns the state as an unordered Object.
func (s State) Object() Object {
	obj := make(Object, len(s.values))
	for k, v := range s.values {
		obj[k] = v
	}
	return obj
}

// Equal reports whether two states have the same keys in the same order
// and equal values.
func (s State) Equal(other State) bool {
	if len(s.keys) != len(other.keys) {
		return false
	}
	for i, k := range s.keys {
		if other.keys[i] != k {
			return false
		}
		if !Equal(s.values[k], other.values[k]) {
			return false
		}
	}
	return true
}

// SameKeys reports whether two states have the same key set in the same order.
func (s State) SameKeys(other State) bool {
	if len(s.keys) != len(other.keys) {
		return false
	}
	for i, k := range s.keys {
		if other.keys[i] != k {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the state as a JSON object in declaration order.
func (s State) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range s.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')
		valBytes, err := marshalValue(s.values[k])
		if err != nil {
			return nil, fmt.Errorf("state variable %q: %w", k, err)
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// StateFromJSON decodes a JSON object into a State, using keys as the
// declaration order. Every key in the object must appear in keys.
func StateFromJSON(data []byte, keys []string) (State, error) {
	var obj Object
	if err := json.Unmarshal(data, &obj); err != nil {
		return State{}, fmt.Errorf("decode state: %w", err)
	}
	if len(obj) != len(keys) {
		return State{}, fmt.Errorf("decode state: got %d variables, want %d", len(obj), len(keys))
	}
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		v, ok := obj[k]
		if !ok {
			return State{}, fmt.Errorf("decode state: missing variable %q", k)
		}
		pairs = append(pairs, P(k, v))
	}
	return NewState(pairs...)
}
