// Package builtin provides the named policy, state update and reducer
// library that model files refer to.
//
// A model file never contains Go code. It names a function ("table_row",
// "assign", "sum") and passes arguments; the Registry turns that reference
// into an ir.Policy, ir.StateUpdate or ir.Reducer. Programs embedding the
// engine register their own functions on a Registry before loading models.
package builtin
