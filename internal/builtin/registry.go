package builtin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
)

// Args are the arguments of a function reference (the `with` struct of a
// model file).
type Args map[string]ir.Value

// PolicyFactory builds a policy from its arguments.
type PolicyFactory func(args Args) (ir.Policy, error)

// UpdateFactory builds a state update for one target variable.
type UpdateFactory func(variable string, args Args) (ir.StateUpdate, error)

// FunctionKind distinguishes the three registry namespaces.
type FunctionKind string

const (
	KindPolicy  FunctionKind = "policy"
	KindUpdate  FunctionKind = "update"
	KindReducer FunctionKind = "reducer"
)

// UnknownFunctionError is returned when a model names a function that is
// not registered.
type UnknownFunctionError struct {
	Kind FunctionKind
	Name string
}

func (e *UnknownFunctionError) Error() string {
	return fmt.Sprintf("unknown %s %q", e.Kind, e.Name)
}

// ArgError reports an invalid argument to a registered function.
type ArgError struct {
	Function string
	Arg      string
	Message  string
}

func (e *ArgError) Error() string {
	return fmt.Sprintf("%s: argument %q: %s", e.Function, e.Arg, e.Message)
}

// Registry maps function names to factories.
//
// Thread-safety: a Registry is safe for concurrent use. Registration is
// expected to finish before models are loaded.
type Registry struct {
	mu       sync.RWMutex
	policies map[string]PolicyFactory
	updates  map[string]UpdateFactory
	reducers map[string]ir.Reducer
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		policies: make(map[string]PolicyFactory),
		updates:  make(map[string]UpdateFactory),
		reducers: make(map[string]ir.Reducer),
	}
}

// Default returns a registry holding the built-in library.
func Default() *Registry {
	r := NewRegistry()
	r.mustRegisterPolicy("table_row", TableRow)
	r.mustRegisterPolicy("constant", Constant)
	r.mustRegisterPolicy("param", Param)

	r.mustRegisterUpdate("assign", Assign)
	r.mustRegisterUpdate("accumulate", Accumulate)
	r.mustRegisterUpdate("increment", Increment)

	for name, rule := range map[string]ir.Reducer{
		"sum":     engine.Sum,
		"first":   engine.First,
		"last":    engine.Last,
		"collect": engine.Collect,
		"min":     engine.Min,
		"max":     engine.Max,
	} {
		if err := r.RegisterReducer(name, rule); err != nil {
			panic(err)
		}
	}
	return r
}

// RegisterPolicy adds a policy factory. Names are unique per kind.
func (r *Registry) RegisterPolicy(name string, f PolicyFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.policies[name]; dup {
		return fmt.Errorf("policy %q already registered", name)
	}
	r.policies[name] = f
	return nil
}

// RegisterUpdate adds a state update factory.
func (r *Registry) RegisterUpdate(name string, f UpdateFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.updates[name]; dup {
		return fmt.Errorf("update %q already registered", name)
	}
	r.updates[name] = f
	return nil
}

// RegisterReducer adds a named aggregation rule.
func (r *Registry) RegisterReducer(name string, rule ir.Reducer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.reducers[name]; dup {
		return fmt.Errorf("reducer %q already registered", name)
	}
	r.reducers[name] = rule
	return nil
}

func (r *Registry) mustRegisterPolicy(name string, f PolicyFactory) {
	if err := r.RegisterPolicy(name, f); err != nil {
		panic(err)
	}
}

func (r *Registry) mustRegisterUpdate(name string, f UpdateFactory) {
	if err := r.RegisterUpdate(name, f); err != nil {
		panic(err)
	}
}

// Policy builds the named policy.
func (r *Registry) Policy(name string, args Args) (ir.Policy, error) {
	r.mu.RLock()
	f, ok := r.policies[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFunctionError{Kind: KindPolicy, Name: name}
	}
	return f(args)
}

// Update builds the named state update targeting variable.
func (r *Registry) Update(name, variable string, args Args) (ir.StateUpdate, error) {
	r.mu.RLock()
	f, ok := r.updates[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFunctionError{Kind: KindUpdate, Name: name}
	}
	return f(variable, args)
}

// Reducer returns the named aggregation rule.
func (r *Registry) Reducer(name string) (ir.Reducer, error) {
	r.mu.RLock()
	rule, ok := r.reducers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &UnknownFunctionError{Kind: KindReducer, Name: name}
	}
	return rule, nil
}

// Names returns the registered names of one kind in sorted order.
func (r *Registry) Names(kind FunctionKind) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	switch kind {
	case KindPolicy:
		for n := range r.policies {
			names = append(names, n)
		}
	case KindUpdate:
		for n := range r.updates {
			names = append(names, n)
		}
	case KindReducer:
		for n := range r.reducers {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}
