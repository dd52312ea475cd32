package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/builtin"
)

func codesOf(errs []ValidationError) []string {
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}

func TestValidateValid(t *testing.T) {
	spec, err := parse(t, supplyCUE)
	require.NoError(t, err)

	assert.Empty(t, Validate(spec, builtin.Default()))
}

func TestValidateCollectsAll(t *testing.T) {
	spec, err := parse(t, `
		model: {
			runs: 0
			timesteps: -1
			initial_state: {x: 0}
			params: {
				r: {sweep: []}
			}
			aggregation: {x: "median"}
			blocks: [{
				name: "b"
				policies: p: {use: "fetch"}
				updates: {
					x: {use: "assign", with: {sigal: "x"}}
					y: {use: "assign"}
				}
			}, {
				name: "b"
				updates: x: {use: "clamp"}
			}]
		}
	`)
	require.NoError(t, err)

	errs := Validate(spec, builtin.Default())
	assert.Equal(t, []string{
		ErrInvalidRuns,
		ErrInvalidTimesteps,
		ErrEmptySweep,
		ErrUnknownReducer,
		ErrUnknownPolicy,
		ErrInvalidArgs,
		ErrUnknownVariable,
		ErrDuplicateBlock,
		ErrUnknownUpdate,
	}, codesOf(errs))
}

func TestValidateTimestepsFrom(t *testing.T) {
	spec, err := parse(t, `model: {timesteps_from: "cap", initial_state: {x: 0}, params: cap: 3}`)
	require.NoError(t, err)

	errs := Validate(spec, builtin.Default())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrInvalidStepsSource, errs[0].Code)
	assert.Equal(t, `[E209] timesteps_from: "cap" is not a table parameter`, errs[0].Error())
}
