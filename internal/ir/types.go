package ir

// Signals is the output of a policy: signal name → value.
// After aggregation it is the policy input handed to state updates.
type Signals map[string]Value

// StepContext carries everything a policy or state update may read.
//
// All fields are read-only. Timestep is the timestep being computed (1-based);
// Substep is the 1-based index of the executing block within the timestep.
type StepContext struct {
	Params   Params
	Run      int
	Subset   int
	Timestep int
	Substep  int
	History  History
	Prev     State
}

// Snapshot is one entry of a session's history.
// The initial snapshot has Timestep 0 and Substep 0.
type Snapshot struct {
	Timestep int
	Substep  int
	State    State
}

// History is a read-only view over a session's append-only history.
type History interface {
	// Len returns the number of snapshots recorded so far.
	Len() int
	// At returns snapshot i (0 is the initial snapshot).
	At(i int) Snapshot
	// Last returns the most recent snapshot.
	Last() Snapshot
}

// Policy computes signals from the current context.
// Implementations must be pure: same context, same signals.
type Policy interface {
	Evaluate(ctx StepContext) (Signals, error)
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc func(ctx StepContext) (Signals, error)

// Evaluate calls f(ctx).
func (f PolicyFunc) Evaluate(ctx StepContext) (Signals, error) {
	return f(ctx)
}

// StateUpdate computes the new value of exactly one state variable from the
// context and the aggregated policy input. The returned name must be a
// variable of the state snapshot.
type StateUpdate interface {
	Update(ctx StepContext, input Signals) (string, Value, error)
}

// UpdateFunc adapts a plain function to the StateUpdate interface.
type UpdateFunc func(ctx StepContext, input Signals) (string, Value, error)

// Update calls f(ctx, input).
func (f UpdateFunc) Update(ctx StepContext, input Signals) (string, Value, error) {
	return f(ctx, input)
}

// Reducer combines the values several policies emitted under one signal name.
// Values are passed in policy declaration order.
type Reducer interface {
	Reduce(values []Value) (Value, error)
}

// ReducerFunc adapts a plain function to the Reducer interface.
type ReducerFunc func(values []Value) (Value, error)

// Reduce calls f(values).
func (f ReducerFunc) Reduce(values []Value) (Value, error) {
	return f(values)
}

// NamedPolicy is a policy with its name inside a block.
type NamedPolicy struct {
	Name   string
	Policy Policy
}

// NamedUpdate is a state update with its name inside a block.
// By convention the name is the variable it updates.
type NamedUpdate struct {
	Name   string
	Update StateUpdate
}

// Block is a partial state update block: ordered policies and ordered
// state updates. Blocks run strictly in declaration order.
type Block struct {
	Name     string
	Policies []NamedPolicy
	Updates  []NamedUpdate
}

// Model is a complete simulation configuration.
type Model struct {
	// Runs is the number of independent repetitions (N ≥ 1).
	Runs int

	// Timesteps is the number of timesteps per session (T ≥ 0).
	Timesteps int

	// Params is the declared parameter set (M).
	Params ParamSet

	// Initial is the initial state snapshot shared (by copy) by every session.
	Initial State

	// Blocks are the partial state update blocks in execution order.
	Blocks []Block

	// Aggregation maps a signal name to its combination rule.
	// Signals without an entry use the engine default (sum).
	Aggregation map[string]Reducer
}
