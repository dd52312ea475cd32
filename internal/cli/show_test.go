package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stepsim/internal/store"
)

// shownTrajectory mirrors ShowResult with plain state maps for decoding.
type shownTrajectory struct {
	Execution store.Execution `json:"execution"`
	Sessions  []store.Session `json:"sessions"`
	Columns   []string        `json:"columns"`
	Records   []struct {
		Run      int            `json:"run"`
		Subset   int            `json:"subset"`
		Timestep int            `json:"timestep"`
		Substep  int            `json:"substep"`
		State    map[string]any `json:"state"`
	} `json:"records"`
}

func TestShowListsExecutions(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, id)

	out, err = executeCommand(t, "show", "--db", dbPath, "--format", "json")
	require.NoError(t, err)
	var execs []store.Execution
	decodeResponse(t, out, &execs)
	require.Len(t, execs, 1)
	assert.Equal(t, id, execs[0].ID)
	assert.Equal(t, []string{"count"}, execs[0].Variables)
}

func TestShowEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := executeCommand(t, "show", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No executions found in database.")
}

func TestShowFilterBySession(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id,
		"--run", "1", "--subset", "1", "--format", "json")
	require.NoError(t, err)

	var shown shownTrajectory
	resp := decodeResponse(t, out, &shown)
	assert.Equal(t, id, resp.ExecutionID)
	assert.Equal(t, []string{"count", "run", "subset", "timestep", "substep"}, shown.Columns)
	require.Len(t, shown.Records, 4)
	for i, r := range shown.Records {
		assert.Equal(t, 1, r.Run)
		assert.Equal(t, 1, r.Subset)
		assert.Equal(t, i, r.Timestep)
		assert.Equal(t, float64(2*i), r.State["count"])
	}
}

func TestShowTimestepRange(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id,
		"--from", "2", "--to", "3", "--format", "json")
	require.NoError(t, err)

	var shown shownTrajectory
	decodeResponse(t, out, &shown)
	require.Len(t, shown.Records, 8)
	for _, r := range shown.Records {
		assert.GreaterOrEqual(t, r.Timestep, 2)
		assert.LessOrEqual(t, r.Timestep, 3)
	}
}

func TestShowFromOnly(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id,
		"--from", "3", "--format", "json")
	require.NoError(t, err)

	var shown shownTrajectory
	decodeResponse(t, out, &shown)
	assert.Len(t, shown.Records, 4)
}

func TestShowTextTable(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id, "--run", "2", "--subset", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Execution "+id)
	assert.Contains(t, out, "SUBSET")
	assert.Contains(t, out, "count")
}

func TestShowNoMatchingRecords(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id, "--run", "9")
	require.NoError(t, err)
	assert.Contains(t, out, "No records match.")
}

func TestShowSessions(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", id, "--sessions", "--format", "json")
	require.NoError(t, err)

	var shown shownTrajectory
	decodeResponse(t, out, &shown)
	require.Len(t, shown.Sessions, 4)
	assert.Equal(t, 0, shown.Sessions[0].Subset)
	assert.Equal(t, 1, shown.Sessions[0].Run)
	assert.Empty(t, shown.Records)

	out, err = executeCommand(t, "show", "--db", dbPath, "--execution", id, "--sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, `{"step":2}`)
}

func TestShowInvalidRange(t *testing.T) {
	dbPath, id := runToDatabase(t, writeModel(t, counterCUE))

	_, err := executeCommand(t, "show", "--db", dbPath, "--execution", id, "--from", "3", "--to", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "empty range")
}

func TestShowUnknownExecution(t *testing.T) {
	dbPath, _ := runToDatabase(t, writeModel(t, counterCUE))

	out, err := executeCommand(t, "show", "--db", dbPath, "--execution", "nope", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)

	resp := decodeResponse(t, out, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
}

func TestShowMissingDatabase(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.db")

	_, err := executeCommand(t, "show", "--db", missing)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "database not found")
	assert.NoFileExists(t, missing)
}

func TestShowNoDatabaseConfigured(t *testing.T) {
	_, err := executeCommand(t, "show")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no database configured")
}
