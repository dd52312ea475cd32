package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// NamedSignals is the output of one policy, tagged with the policy name.
type NamedSignals struct {
	Policy  string
	Signals ir.Signals
}

// Built-in reducers. Sum is the default for signals without a registered rule.
var (
	Sum     ir.Reducer = ir.ReducerFunc(sumValues)
	First   ir.Reducer = ir.ReducerFunc(firstValue)
	Last    ir.Reducer = ir.ReducerFunc(lastValue)
	Collect ir.Reducer = ir.ReducerFunc(collectValues)
	Min     ir.Reducer = ir.ReducerFunc(minValue)
	Max     ir.Reducer = ir.ReducerFunc(maxValue)
)

// Aggregate merges policy outputs into the input handed to state updates.
//
// The result holds the union of all signal names. A name emitted by exactly
// one policy passes through unchanged; a name emitted by several policies is
// combined with rules[name], or Sum when no rule is registered. Values reach
// the reducer in policy declaration order.
//
// A failing reducer yields an *AggregationError. Signals are reduced in
// order of first appearance, so the reported signal is deterministic.
func Aggregate(outputs []NamedSignals, rules map[string]ir.Reducer) (ir.Signals, error) {
	var order []string
	grouped := make(map[string][]ir.Value)
	for _, out := range outputs {
		for _, name := range sortedSignalNames(out.Signals) {
			if _, seen := grouped[name]; !seen {
				order = append(order, name)
			}
			grouped[name] = append(grouped[name], out.Signals[name])
		}
	}

	merged := make(ir.Signals, len(order))
	for _, name := range order {
		values := grouped[name]
		if len(values) == 1 {
			merged[name] = values[0]
			continue
		}

		rule, ok := rules[name]
		if !ok || rule == nil {
			rule = Sum
		}
		v, err := reduce(rule, values)
		if err != nil {
			return nil, &AggregationError{Signal: name, Err: err}
		}
		merged[name] = v
	}
	return merged, nil
}

// reduce calls a reducer, converting a panic into an error.
func reduce(rule ir.Reducer, values []ir.Value) (v ir.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	return rule.Reduce(values)
}

func sortedSignalNames(s ir.Signals) []string {
	obj := make(ir.Object, len(s))
	for k := range s {
		obj[k] = ir.Null{}
	}
	return obj.SortedKeys()
}

var errNoValues = errors.New("no values to reduce")

func sumValues(values []ir.Value) (ir.Value, error) {
	if len(values) == 0 {
		return nil, errNoValues
	}
	acc := values[0]
	if _, ok := ir.AsFloat(acc); !ok {
		return nil, fmt.Errorf("cannot sum %s values", ir.TypeName(acc))
	}
	for _, v := range values[1:] {
		next, err := ir.Add(acc, v)
		if err != nil {
			return nil, err
		}
		acc = next
	}
	return acc, nil
}

func firstValue(values []ir.Value) (ir.Value, error) {
	if len(values) == 0 {
		return nil, errNoValues
	}
	return values[0], nil
}

func lastValue(values []ir.Value) (ir.Value, error) {
	if len(values) == 0 {
		return nil, errNoValues
	}
	return values[len(values)-1], nil
}

func collectValues(values []ir.Value) (ir.Value, error) {
	out := make(ir.Array, len(values))
	copy(out, values)
	return out, nil
}

func minValue(values []ir.Value) (ir.Value, error) {
	return extreme(values, -1)
}

func maxValue(values []ir.Value) (ir.Value, error) {
	return extreme(values, 1)
}

// extreme returns the smallest (want -1) or largest (want 1) value.
// Ties keep the earlier value.
func extreme(values []ir.Value, want int) (ir.Value, error) {
	if len(values) == 0 {
		return nil, errNoValues
	}
	best := values[0]
	for _, v := range values[1:] {
		c, err := ir.Compare(v, best)
		if err != nil {
			return nil, err
		}
		if c == want {
			best = v
		}
	}
	return best, nil
}
