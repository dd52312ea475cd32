package builtin

import (
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// Assign sets the variable to the policy input signal of the same name, or
// of the name given in `signal`. The value is passed through untouched.
// A missing signal is an error, never a silent no-op.
func Assign(variable string, args Args) (ir.StateUpdate, error) {
	const fn = "assign"
	if err := args.only(fn, "signal"); err != nil {
		return nil, err
	}
	signal, err := args.str(fn, "signal", false)
	if err != nil {
		return nil, err
	}
	if signal == "" {
		signal = variable
	}

	return ir.UpdateFunc(func(_ ir.StepContext, input ir.Signals) (string, ir.Value, error) {
		v, ok := input[signal]
		if !ok {
			return "", nil, fmt.Errorf("signal %q not in policy input", signal)
		}
		return variable, v, nil
	}), nil
}

// Accumulate adds the signal (default: the variable's name) to the
// variable's previous value. When no policy emitted the signal this substep
// the variable keeps its value.
func Accumulate(variable string, args Args) (ir.StateUpdate, error) {
	const fn = "accumulate"
	if err := args.only(fn, "signal"); err != nil {
		return nil, err
	}
	signal, err := args.str(fn, "signal", false)
	if err != nil {
		return nil, err
	}
	if signal == "" {
		signal = variable
	}

	return ir.UpdateFunc(func(ctx ir.StepContext, input ir.Signals) (string, ir.Value, error) {
		prev := ctx.Prev.Get(variable)
		delta, ok := input[signal]
		if !ok {
			return variable, prev, nil
		}
		sum, err := ir.Add(prev, delta)
		if err != nil {
			return "", nil, err
		}
		return variable, sum, nil
	}), nil
}

// Increment adds the constant `by` (default 1) to the variable every substep.
func Increment(variable string, args Args) (ir.StateUpdate, error) {
	const fn = "increment"
	if err := args.only(fn, "by"); err != nil {
		return nil, err
	}
	by, ok := args["by"]
	if !ok {
		by = ir.Int(1)
	}
	if _, numeric := ir.AsFloat(by); !numeric {
		return nil, &ArgError{Function: fn, Arg: "by", Message: fmt.Sprintf("expected number, got %s", ir.TypeName(by))}
	}

	return ir.UpdateFunc(func(ctx ir.StepContext, _ ir.Signals) (string, ir.Value, error) {
		sum, err := ir.Add(ctx.Prev.Get(variable), by)
		if err != nil {
			return "", nil, err
		}
		return variable, sum, nil
	}), nil
}
