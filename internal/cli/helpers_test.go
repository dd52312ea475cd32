package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/testutil"
)

// counterCUE sweeps step over {1, 2}: 2 runs × 2 configurations × 4
// snapshots = 16 records. Final counts are 3 and 6.
const counterCUE = `package counter

model: {
	runs:      2
	timesteps: 3
	initial_state: {count: 0}
	params: {step: {sweep: [1, 2]}}
	blocks: [{
		name: "tick"
		policies: emit: {use: "param", with: {names: ["step"]}}
		updates: count: {use: "accumulate", with: {signal: "step"}}
	}]
}
`

// brokenCUE fails both sessions of its second configuration: adding a
// string to an int is an execution error.
const brokenCUE = `package broken

model: {
	runs:      2
	timesteps: 3
	initial_state: {count: 0}
	params: {step: {sweep: [1, "x"]}}
	blocks: [{
		name: "tick"
		policies: emit: {use: "param", with: {names: ["step"]}}
		updates: count: {use: "accumulate", with: {signal: "step"}}
	}]
}
`

// unknownPolicyCUE references a policy that is not registered.
const unknownPolicyCUE = `package bad

model: {
	runs:      1
	timesteps: 1
	initial_state: {count: 0}
	blocks: [{
		name: "tick"
		policies: emit: {use: "no_such_policy"}
		updates: count: {use: "increment"}
	}]
}
`

// writeModel writes a single-file model and returns its directory.
func writeModel(t *testing.T, cue string) string {
	t.Helper()
	return testutil.WriteFiles(t, map[string]string{"model.cue": cue})
}

// executeCommand runs the root command with args and returns stdout and
// the command error.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeResponse parses a JSON CLI response, decoding Data into data.
func decodeResponse(t *testing.T, out string, data any) CLIResponse {
	t.Helper()
	var raw struct {
		CLIResponse
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if data != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return raw.CLIResponse
}

// runToDatabase executes the model in dir into a new database and returns
// the database path and execution ID.
func runToDatabase(t *testing.T, dir string, extra ...string) (string, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	args := append([]string{"run", dir, "--db", dbPath, "--format", "json"}, extra...)
	out, err := executeCommand(t, args...)
	require.NoError(t, err, "output: %s", out)

	var summary RunSummary
	decodeResponse(t, out, &summary)
	require.NotEmpty(t, summary.ExecutionID)
	return dbPath, summary.ExecutionID
}
