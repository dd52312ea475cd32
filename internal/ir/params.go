package ir

import (
	"fmt"
	"sort"
)

// Param is one entry of a ParamSet: either a static value passed through to
// every session unchanged, or a sweepable ordered list of candidates.
//
// A static value may be an arbitrarily nested structure (for example a whole
// time-indexed table); it is opaque to the engine and never swept.
type Param struct {
	Value      Value   // static value (nil when sweepable)
	Candidates []Value // candidate values (only when Sweepable)
	Sweepable  bool
}

// Static creates a non-swept parameter.
func Static(v Value) Param {
	if v == nil {
		v = Null{}
	}
	return Param{Value: v}
}

// Sweep creates a sweepable parameter over the given candidates.
// An empty candidate list is a configuration error caught by validation.
func Sweep(candidates ...Value) Param {
	c := make([]Value, len(candidates))
	copy(c, candidates)
	return Param{Candidates: c, Sweepable: true}
}

// ParamSet is the declared parameter set of a model.
type ParamSet map[string]Param

// SortedNames returns parameter names in byte order.
// Sweep expansion uses this order so configurations are reproducible.
func (ps ParamSet) SortedNames() []string {
	names := make([]string, 0, len(ps))
	for n := range ps {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Params is one concrete parameter configuration, as seen by a session.
// Policies and updates must treat it as read-only: the static portion is
// shared by every session.
type Params struct {
	values map[string]Value
}

// NewParams builds a concrete configuration from a map.
// The map is copied.
func NewParams(values map[string]Value) Params {
	p := Params{values: make(map[string]Value, len(values))}
	for k, v := range values {
		p.values[k] = v
	}
	return p
}

// Get returns a parameter value, or Null if it does not exist.
func (p Params) Get(name string) Value {
	if v, ok := p.values[name]; ok {
		return v
	}
	return Null{}
}

// Lookup returns a parameter value and whether it exists.
func (p Params) Lookup(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Require returns a parameter value or an error naming the missing parameter.
func (p Params) Require(name string) (Value, error) {
	v, ok := p.values[name]
	if !ok {
		return nil, fmt.Errorf("parameter %q not set", name)
	}
	return v, nil
}

// Names returns parameter names in byte order.
func (p Params) Names() []string {
	names := make([]string, 0, len(p.values))
	for n := range p.values {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of parameters.
func (p Params) Len() int {
	return len(p.values)
}

// Object returns the configuration as an Object.
func (p Params) Object() Object {
	obj := make(Object, len(p.values))
	for k, v := range p.values {
		obj[k] = v
	}
	return obj
}
