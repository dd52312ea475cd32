package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/stepsim/internal/builtin"
	"github.com/roach88/stepsim/internal/ir"
)

// ValidationErrors is the error returned by LoadModel when validation
// finds problems. It carries every problem found.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "\n")
}

// LoadModel loads, validates and builds the model in dir.
//
// dir must hold a CUE package with a top-level `model` struct. Table
// parameters are read relative to dir. Function references are resolved
// against reg.
func LoadModel(dir string, reg *builtin.Registry) (*ir.Model, error) {
	spec, err := LoadSpec(dir)
	if err != nil {
		return nil, err
	}
	if errs := Validate(spec, reg); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return Build(spec, dir, reg)
}

// LoadSpec loads the CUE package in dir and parses its `model` struct.
func LoadSpec(dir string) (*ModelSpec, error) {
	value, err := loadPackage(dir)
	if err != nil {
		return nil, err
	}
	return ParseModel(value.LookupPath(cue.ParsePath("model")))
}

func loadPackage(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return cue.Value{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("model directory not found: %s", dir)}
	}
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing model directory: %v", err)}
	}
	if !info.IsDir() {
		return cue.Value{}, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a directory: %s", dir)}
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
	}
	if len(files) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no CUE files found in %s", dir)}
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, &LoadError{Code: ErrCodeBuildFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return value, nil
}

// FindCUEFiles returns the .cue files directly inside dir.
// Subdirectories (for example data/) are not part of the package.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".cue" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}

// Build resolves a validated spec into an executable model: tables are
// loaded relative to dir and functions are taken from reg.
func Build(spec *ModelSpec, dir string, reg *builtin.Registry) (*ir.Model, error) {
	m := &ir.Model{
		Runs:        spec.Runs,
		Timesteps:   spec.Timesteps,
		Initial:     spec.Initial,
		Params:      make(ir.ParamSet, len(spec.Params)),
		Aggregation: make(map[string]ir.Reducer, len(spec.Aggregation)),
	}

	for _, p := range spec.Params {
		switch p.Kind {
		case ParamTable:
			path := p.Table
			if !filepath.IsAbs(path) {
				path = filepath.Join(dir, path)
			}
			rows, err := LoadTable(path)
			if err != nil {
				return nil, fmt.Errorf("params.%s: %w", p.Name, err)
			}
			m.Params[p.Name] = ir.Static(rows)
		case ParamSweep:
			m.Params[p.Name] = ir.Sweep(p.Candidates...)
		default:
			m.Params[p.Name] = ir.Static(p.Value)
		}
	}

	if spec.TimestepsFrom != "" {
		table, ok := m.Params[spec.TimestepsFrom]
		rows, isTable := table.Value.(ir.Array)
		if !ok || !isTable {
			return nil, &CompileError{
				Field:   "timesteps_from",
				Message: fmt.Sprintf("%q is not a table parameter", spec.TimestepsFrom),
			}
		}
		m.Timesteps = len(rows)
	}

	for _, a := range spec.Aggregation {
		rule, err := reg.Reducer(a.Reducer)
		if err != nil {
			return nil, fmt.Errorf("aggregation.%s: %w", a.Signal, err)
		}
		m.Aggregation[a.Signal] = rule
	}

	for _, b := range spec.Blocks {
		block := ir.Block{Name: b.Name}
		for _, p := range b.Policies {
			policy, err := reg.Policy(p.Use, p.With)
			if err != nil {
				return nil, fmt.Errorf("block %q policy %q: %w", b.Name, p.Name, err)
			}
			block.Policies = append(block.Policies, ir.NamedPolicy{Name: p.Name, Policy: policy})
		}
		for _, u := range b.Updates {
			update, err := reg.Update(u.Use, u.Name, u.With)
			if err != nil {
				return nil, fmt.Errorf("block %q update %q: %w", b.Name, u.Name, err)
			}
			block.Updates = append(block.Updates, ir.NamedUpdate{Name: u.Name, Update: update})
		}
		m.Blocks = append(m.Blocks, block)
	}

	return m, nil
}
