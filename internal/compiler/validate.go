package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue/token"

	"github.com/roach88/stepsim/internal/builtin"
)

// Validation error codes (E200-E299)
const (
	ErrInvalidRuns        = "E200" // runs must be >= 1
	ErrInvalidTimesteps   = "E201" // timesteps must be >= 0
	ErrEmptyInitialState  = "E202" // initial_state declares no variables
	ErrUnknownPolicy      = "E203" // policy `use` not registered
	ErrUnknownUpdate      = "E204" // update `use` not registered
	ErrUnknownReducer     = "E205" // aggregation reducer not registered
	ErrUnknownVariable    = "E206" // update target not in initial_state
	ErrDuplicateBlock     = "E207" // two blocks share a name
	ErrEmptySweep         = "E208" // sweep list is empty
	ErrInvalidStepsSource = "E209" // timesteps_from is not a table param
	ErrInvalidArgs        = "E210" // function rejected its arguments
)

// ValidationError represents a model validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

func lineOf(pos token.Pos) int {
	if pos.IsValid() {
		return pos.Line()
	}
	return 0
}

// Validate checks a parsed model against the registry.
// Returns all errors found (does not fail-fast).
func Validate(spec *ModelSpec, reg *builtin.Registry) []ValidationError {
	var errs []ValidationError

	if spec.Runs < 1 {
		errs = append(errs, ValidationError{
			Field:   "runs",
			Message: fmt.Sprintf("must be at least 1, got %d", spec.Runs),
			Code:    ErrInvalidRuns,
		})
	}
	if spec.TimestepsFrom == "" && spec.Timesteps < 0 {
		errs = append(errs, ValidationError{
			Field:   "timesteps",
			Message: fmt.Sprintf("must not be negative, got %d", spec.Timesteps),
			Code:    ErrInvalidTimesteps,
		})
	}
	if spec.Initial.Len() == 0 {
		errs = append(errs, ValidationError{
			Field:   "initial_state",
			Message: "at least one state variable is required",
			Code:    ErrEmptyInitialState,
			Line:    lineOf(spec.Pos),
		})
	}

	tables := make(map[string]bool)
	for _, p := range spec.Params {
		switch p.Kind {
		case ParamTable:
			tables[p.Name] = true
		case ParamSweep:
			if len(p.Candidates) == 0 {
				errs = append(errs, ValidationError{
					Field:   "params." + p.Name + ".sweep",
					Message: "sweep needs at least one candidate",
					Code:    ErrEmptySweep,
					Line:    lineOf(p.Pos),
				})
			}
		}
	}
	if spec.TimestepsFrom != "" && !tables[spec.TimestepsFrom] {
		errs = append(errs, ValidationError{
			Field:   "timesteps_from",
			Message: fmt.Sprintf("%q is not a table parameter", spec.TimestepsFrom),
			Code:    ErrInvalidStepsSource,
		})
	}

	for _, a := range spec.Aggregation {
		if _, err := reg.Reducer(a.Reducer); err != nil {
			errs = append(errs, ValidationError{
				Field:   "aggregation." + a.Signal,
				Message: err.Error(),
				Code:    ErrUnknownReducer,
				Line:    lineOf(a.Pos),
			})
		}
	}

	blockNames := make(map[string]bool)
	for i, b := range spec.Blocks {
		field := fmt.Sprintf("blocks[%d]", i)
		if blockNames[b.Name] {
			errs = append(errs, ValidationError{
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate block name: %q", b.Name),
				Code:    ErrDuplicateBlock,
				Line:    lineOf(b.Pos),
			})
		}
		blockNames[b.Name] = true

		for _, p := range b.Policies {
			_, err := reg.Policy(p.Use, p.With)
			if err != nil {
				errs = append(errs, funcError(field+".policies."+p.Name, p.Pos, err, ErrUnknownPolicy))
			}
		}
		for _, u := range b.Updates {
			path := field + ".updates." + u.Name
			if !spec.Initial.Has(u.Name) {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("%q is not declared in initial_state", u.Name),
					Code:    ErrUnknownVariable,
					Line:    lineOf(u.Pos),
				})
			}
			_, err := reg.Update(u.Use, u.Name, u.With)
			if err != nil {
				errs = append(errs, funcError(path, u.Pos, err, ErrUnknownUpdate))
			}
		}
	}

	return errs
}

// funcError classifies a registry failure as unknown function or bad args.
func funcError(field string, pos token.Pos, err error, unknownCode string) ValidationError {
	code := ErrInvalidArgs
	var ue *builtin.UnknownFunctionError
	if errors.As(err, &ue) {
		code = unknownCode
	}
	return ValidationError{Field: field, Message: err.Error(), Code: code, Line: lineOf(pos)}
}
