package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/stepsim/internal/ir"
)

// ParamKind says how a declared parameter is turned into an ir.Param.
type ParamKind string

const (
	ParamStatic ParamKind = "static" // any value, passed through
	ParamSweep  ParamKind = "sweep"  // {sweep: [...]}
	ParamTable  ParamKind = "table"  // {table: "path"}, loaded from disk
)

// ModelSpec is a parsed, not yet resolved, model file.
// Function references are still names; tables are still paths.
type ModelSpec struct {
	Runs          int
	Timesteps     int
	TimestepsFrom string
	Initial       ir.State
	Params        []ParamSpec
	Aggregation   []AggregationSpec
	Blocks        []BlockSpec
	Pos           token.Pos
}

// ParamSpec is one entry of the `params` struct.
type ParamSpec struct {
	Name       string
	Kind       ParamKind
	Value      ir.Value   // ParamStatic
	Candidates []ir.Value // ParamSweep
	Table      string     // ParamTable, relative to the model directory
	Pos        token.Pos
}

// AggregationSpec binds a signal name to a reducer name.
type AggregationSpec struct {
	Signal  string
	Reducer string
	Pos     token.Pos
}

// FuncSpec is a function reference: `name: {use: "...", with: {...}}`.
// For updates Name is the target variable.
type FuncSpec struct {
	Name string
	Use  string
	With map[string]ir.Value
	Pos  token.Pos
}

// BlockSpec is one partial state update block.
type BlockSpec struct {
	Name     string
	Policies []FuncSpec
	Updates  []FuncSpec
	Pos      token.Pos
}

// ParseModel parses the `model` struct of a CUE value.
//
// Parsing checks shape only (types, required fields). Semantic checks that
// need the function registry are done by Validate.
func ParseModel(v cue.Value) (*ModelSpec, error) {
	if !v.Exists() {
		return nil, &LoadError{Code: ErrCodeNoModel, Message: "no `model` struct found"}
	}
	if err := v.Err(); err != nil {
		return nil, fromCUE(err)
	}

	spec := &ModelSpec{Runs: 1, Pos: v.Pos()}

	if runs := v.LookupPath(cue.ParsePath("runs")); runs.Exists() {
		n, err := toInt(runs, "runs")
		if err != nil {
			return nil, err
		}
		spec.Runs = n
	}

	ts := v.LookupPath(cue.ParsePath("timesteps"))
	from := v.LookupPath(cue.ParsePath("timesteps_from"))
	switch {
	case ts.Exists() && from.Exists():
		return nil, &CompileError{
			Field:   "timesteps",
			Message: "timesteps and timesteps_from are mutually exclusive",
			Pos:     from.Pos(),
		}
	case ts.Exists():
		n, err := toInt(ts, "timesteps")
		if err != nil {
			return nil, err
		}
		spec.Timesteps = n
	case from.Exists():
		name, err := toString(from, "timesteps_from")
		if err != nil {
			return nil, err
		}
		spec.TimestepsFrom = name
	default:
		return nil, &CompileError{
			Field:   "timesteps",
			Message: "timesteps or timesteps_from is required",
			Pos:     v.Pos(),
		}
	}

	initial, err := parseInitialState(v)
	if err != nil {
		return nil, err
	}
	spec.Initial = initial

	if spec.Params, err = parseParams(v); err != nil {
		return nil, err
	}
	if spec.Aggregation, err = parseAggregation(v); err != nil {
		return nil, err
	}
	if spec.Blocks, err = parseBlocks(v); err != nil {
		return nil, err
	}
	return spec, nil
}

// parseInitialState keeps the declaration order of the struct fields.
func parseInitialState(v cue.Value) (ir.State, error) {
	stateVal := v.LookupPath(cue.ParsePath("initial_state"))
	if !stateVal.Exists() {
		return ir.State{}, &CompileError{
			Field:   "initial_state",
			Message: "initial_state is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := stateVal.Fields()
	if err != nil {
		return ir.State{}, fromCUE(err)
	}

	var pairs []ir.Pair
	for iter.Next() {
		name := iter.Label()
		val, err := toValue(iter.Value(), "initial_state."+name)
		if err != nil {
			return ir.State{}, err
		}
		pairs = append(pairs, ir.P(name, val))
	}
	return ir.NewState(pairs...)
}

func parseParams(v cue.Value) ([]ParamSpec, error) {
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if !paramsVal.Exists() {
		return nil, nil
	}

	iter, err := paramsVal.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}

	var params []ParamSpec
	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()
		field := "params." + name
		p := ParamSpec{Name: name, Kind: ParamStatic, Pos: pv.Pos()}

		switch marker := onlyField(pv); marker {
		case "table":
			path, err := toString(pv.LookupPath(cue.ParsePath("table")), field+".table")
			if err != nil {
				return nil, err
			}
			p.Kind = ParamTable
			p.Table = path
		case "sweep":
			list := pv.LookupPath(cue.ParsePath("sweep"))
			if list.IncompleteKind() != cue.ListKind {
				return nil, &CompileError{Field: field + ".sweep", Message: "must be a list", Pos: list.Pos()}
			}
			val, err := toValue(list, field+".sweep")
			if err != nil {
				return nil, err
			}
			p.Kind = ParamSweep
			p.Candidates = val.(ir.Array)
		default:
			val, err := toValue(pv, field)
			if err != nil {
				return nil, err
			}
			p.Value = val
		}
		params = append(params, p)
	}
	return params, nil
}

// onlyField returns the label of a struct with exactly one field, else "".
func onlyField(v cue.Value) string {
	if v.IncompleteKind() != cue.StructKind {
		return ""
	}
	iter, err := v.Fields()
	if err != nil {
		return ""
	}
	label := ""
	n := 0
	for iter.Next() {
		label = iter.Label()
		n++
	}
	if n != 1 {
		return ""
	}
	return label
}

func parseAggregation(v cue.Value) ([]AggregationSpec, error) {
	aggVal := v.LookupPath(cue.ParsePath("aggregation"))
	if !aggVal.Exists() {
		return nil, nil
	}

	iter, err := aggVal.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}

	var rules []AggregationSpec
	for iter.Next() {
		signal := iter.Label()
		name, err := toString(iter.Value(), "aggregation."+signal)
		if err != nil {
			return nil, err
		}
		rules = append(rules, AggregationSpec{Signal: signal, Reducer: name, Pos: iter.Value().Pos()})
	}
	return rules, nil
}

func parseBlocks(v cue.Value) ([]BlockSpec, error) {
	blocksVal := v.LookupPath(cue.ParsePath("blocks"))
	if !blocksVal.Exists() {
		return nil, nil
	}

	iter, err := blocksVal.List()
	if err != nil {
		return nil, &CompileError{Field: "blocks", Message: "must be a list", Pos: blocksVal.Pos()}
	}

	var blocks []BlockSpec
	for i := 0; iter.Next(); i++ {
		bv := iter.Value()
		field := fmt.Sprintf("blocks[%d]", i)

		nameVal := bv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{Field: field + ".name", Message: "block name is required", Pos: bv.Pos()}
		}
		name, err := toString(nameVal, field+".name")
		if err != nil {
			return nil, err
		}

		block := BlockSpec{Name: name, Pos: bv.Pos()}
		if block.Policies, err = parseFuncs(bv, "policies", field); err != nil {
			return nil, err
		}
		if block.Updates, err = parseFuncs(bv, "updates", field); err != nil {
			return nil, err
		}
		blocks = append(blocks, block)
	}
	return blocks, nil
}

// parseFuncs reads a struct of function references in declaration order.
func parseFuncs(block cue.Value, key, field string) ([]FuncSpec, error) {
	fv := block.LookupPath(cue.ParsePath(key))
	if !fv.Exists() {
		return nil, nil
	}

	iter, err := fv.Fields()
	if err != nil {
		return nil, fromCUE(err)
	}

	var funcs []FuncSpec
	for iter.Next() {
		name := iter.Label()
		ref := iter.Value()
		path := fmt.Sprintf("%s.%s.%s", field, key, name)

		useVal := ref.LookupPath(cue.ParsePath("use"))
		if !useVal.Exists() {
			return nil, &CompileError{Field: path + ".use", Message: "function name is required", Pos: ref.Pos()}
		}
		use, err := toString(useVal, path+".use")
		if err != nil {
			return nil, err
		}

		fn := FuncSpec{Name: name, Use: use, Pos: ref.Pos()}
		if withVal := ref.LookupPath(cue.ParsePath("with")); withVal.Exists() {
			args, err := toValue(withVal, path+".with")
			if err != nil {
				return nil, err
			}
			obj, ok := args.(ir.Object)
			if !ok {
				return nil, &CompileError{Field: path + ".with", Message: "must be a struct", Pos: withVal.Pos()}
			}
			fn.With = obj
		}
		funcs = append(funcs, fn)
	}
	return funcs, nil
}
