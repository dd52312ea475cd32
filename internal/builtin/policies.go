package builtin

import (
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// TableRow emits the fields of one row of a table parameter.
//
// At timestep t it reads row t-1 of the parameter named by `table`, so a
// table of T rows drives T timesteps. Optional `fields` restricts the
// emitted fields; optional `rename` maps a field name to a signal name.
//
//	policies: parse: {use: "table_row", with: {table: "supply_timeseries", rename: {date: "timestamp"}}}
func TableRow(args Args) (ir.Policy, error) {
	const fn = "table_row"
	if err := args.only(fn, "table", "fields", "rename"); err != nil {
		return nil, err
	}
	table, err := args.str(fn, "table", true)
	if err != nil {
		return nil, err
	}
	fields, err := args.strList(fn, "fields")
	if err != nil {
		return nil, err
	}
	rename, err := args.strMap(fn, "rename")
	if err != nil {
		return nil, err
	}

	return ir.PolicyFunc(func(ctx ir.StepContext) (ir.Signals, error) {
		data, err := ctx.Params.Require(table)
		if err != nil {
			return nil, err
		}
		rows, ok := data.(ir.Array)
		if !ok {
			return nil, fmt.Errorf("parameter %q is %s, not a table", table, ir.TypeName(data))
		}
		i := ctx.Timestep - 1
		if i < 0 || i >= len(rows) {
			return nil, fmt.Errorf("table %q has %d rows, timestep %d needs row %d", table, len(rows), ctx.Timestep, i)
		}
		row, ok := rows[i].(ir.Object)
		if !ok {
			return nil, fmt.Errorf("table %q row %d is %s, not a record", table, i, ir.TypeName(rows[i]))
		}

		keys := fields
		if keys == nil {
			keys = row.SortedKeys()
		}
		signals := make(ir.Signals, len(keys))
		for _, k := range keys {
			v, ok := row[k]
			if !ok {
				return nil, fmt.Errorf("table %q row %d has no field %q", table, i, k)
			}
			name := k
			if to, ok := rename[k]; ok {
				name = to
			}
			signals[name] = v
		}
		return signals, nil
	}), nil
}

// Constant emits its arguments as signals, unchanged, every substep.
func Constant(args Args) (ir.Policy, error) {
	signals := make(ir.Signals, len(args))
	for k, v := range args {
		signals[k] = v
	}
	return ir.PolicyFunc(func(ir.StepContext) (ir.Signals, error) {
		out := make(ir.Signals, len(signals))
		for k, v := range signals {
			out[k] = v
		}
		return out, nil
	}), nil
}

// Param emits the parameters listed in `names` as signals of the same name.
func Param(args Args) (ir.Policy, error) {
	const fn = "param"
	if err := args.only(fn, "names"); err != nil {
		return nil, err
	}
	names, err := args.strList(fn, "names")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, &ArgError{Function: fn, Arg: "names", Message: "at least one parameter name is required"}
	}

	return ir.PolicyFunc(func(ctx ir.StepContext) (ir.Signals, error) {
		signals := make(ir.Signals, len(names))
		for _, n := range names {
			v, err := ctx.Params.Require(n)
			if err != nil {
				return nil, err
			}
			signals[n] = v
		}
		return signals, nil
	}), nil
}
