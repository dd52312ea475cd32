package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// Validate checks a model's static structure.
//
// Returns nil or every ConfigError found, joined with errors.Join.
// Checks that need to call a state update (returned variable names) are
// done by the preflight in Execute.
func Validate(m *ir.Model) error {
	if m == nil {
		return &ConfigError{Code: ErrCodeInvalidModel, Message: "model is nil"}
	}

	var errs []error
	if m.Runs < 1 {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeInvalidRuns,
			Message: fmt.Sprintf("runs must be at least 1, got %d", m.Runs),
		})
	}
	if m.Timesteps < 0 {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeInvalidTimesteps,
			Message: fmt.Sprintf("timesteps must not be negative, got %d", m.Timesteps),
		})
	}
	if m.Initial.Len() == 0 {
		errs = append(errs, &ConfigError{
			Code:    ErrCodeEmptyState,
			Message: "initial state declares no variables",
		})
	}

	for _, name := range m.Params.SortedNames() {
		p := m.Params[name]
		if p.Sweepable && len(p.Candidates) == 0 {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeEmptySweep,
				Message:  fmt.Sprintf("sweepable parameter %q has no candidates", name),
				Variable: name,
			})
		}
	}

	for signal, rule := range m.Aggregation {
		if rule == nil {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeMissingFunction,
				Message:  fmt.Sprintf("aggregation rule for signal %q is nil", signal),
				Variable: signal,
			})
		}
	}

	blockNames := make(map[string]bool, len(m.Blocks))
	for i, b := range m.Blocks {
		if b.Name == "" {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeInvalidModel,
				Message: fmt.Sprintf("block %d has no name", i),
			})
		} else if blockNames[b.Name] {
			errs = append(errs, &ConfigError{
				Code:    ErrCodeDuplicateName,
				Message: fmt.Sprintf("block name %q declared twice", b.Name),
				Block:   b.Name,
			})
		}
		blockNames[b.Name] = true
		errs = append(errs, validateBlock(b, m.Initial)...)
	}

	return errors.Join(errs...)
}

func validateBlock(b ir.Block, initial ir.State) []error {
	var errs []error

	policies := make(map[string]bool, len(b.Policies))
	for _, p := range b.Policies {
		if policies[p.Name] {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeDuplicateName,
				Message:  fmt.Sprintf("policy %q declared twice", p.Name),
				Block:    b.Name,
				Function: p.Name,
			})
		}
		policies[p.Name] = true
		if p.Policy == nil {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeMissingFunction,
				Message:  fmt.Sprintf("policy %q has no implementation", p.Name),
				Block:    b.Name,
				Function: p.Name,
			})
		}
	}

	updates := make(map[string]bool, len(b.Updates))
	for _, u := range b.Updates {
		if updates[u.Name] {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeDuplicateTarget,
				Message:  fmt.Sprintf("state update %q declared twice", u.Name),
				Block:    b.Name,
				Function: u.Name,
				Variable: u.Name,
			})
		}
		updates[u.Name] = true
		if u.Update == nil {
			errs = append(errs, &ConfigError{
				Code:     ErrCodeMissingFunction,
				Message:  fmt.Sprintf("state update %q has no implementation", u.Name),
				Block:    b.Name,
				Function: u.Name,
			})
		}
	}
	return errs
}

// preflight runs the first timestep of the first configuration on a scratch
// session and reports any ConfigError it raises. Other failures are left
// for the real sessions to report.
func preflight(m *ir.Model, params ir.Params) error {
	if m.Timesteps == 0 || len(m.Blocks) == 0 {
		return nil
	}
	s := newSession(m, params, 1, 0)
	err := s.runTimestep(1)

	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce
	}
	return nil
}
