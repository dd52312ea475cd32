package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/stepsim/internal/ir"
)

// marshalState converts a state snapshot to canonical JSON TEXT.
func marshalState(s ir.State) (string, error) {
	data, err := ir.MarshalCanonical(s)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return string(data), nil
}

// unmarshalState parses a stored state using vars as declaration order.
func unmarshalState(data string, vars []string) (ir.State, error) {
	s, err := ir.StateFromJSON([]byte(data), vars)
	if err != nil {
		return ir.State{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return s, nil
}

// marshalParams converts a configuration to canonical JSON TEXT.
func marshalParams(p ir.Params) (string, error) {
	data, err := ir.MarshalCanonical(p.Object())
	if err != nil {
		return "", fmt.Errorf("marshal params: %w", err)
	}
	return string(data), nil
}

// unmarshalParams parses a stored configuration.
// Large integers survive the round trip; see ir.Object.UnmarshalJSON.
func unmarshalParams(data string) (ir.Object, error) {
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal params: %w", err)
	}
	if obj == nil {
		obj = ir.Object{}
	}
	return obj, nil
}

func marshalVariables(vars []string) (string, error) {
	if vars == nil {
		vars = []string{}
	}
	data, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("marshal variables: %w", err)
	}
	return string(data), nil
}

func unmarshalVariables(data string) ([]string, error) {
	var vars []string
	if err := json.Unmarshal([]byte(data), &vars); err != nil {
		return nil, fmt.Errorf("unmarshal variables: %w", err)
	}
	return vars, nil
}
