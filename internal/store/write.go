package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
)

// ErrExists is returned when an execution ID is already stored.
var ErrExists = errors.New("execution already stored")

// Execution is the stored summary of one Execute call.
type Execution struct {
	ID             string   `json:"id"`
	Model          string   `json:"model"`
	Runs           int      `json:"runs"`
	Timesteps      int      `json:"timesteps"`
	Configurations int      `json:"configurations"`
	Variables      []string `json:"variables"`
	Digest         string   `json:"digest"`
	FailedSessions int      `json:"failed_sessions"`
	EngineVersion  string   `json:"engine_version"`
	FormatVersion  string   `json:"format_version"`
}

// WriteExecution stores a finished execution in one transaction.
//
// meta supplies what the result does not know (Model, Runs, Timesteps).
// ID, Configurations, Variables, Digest, FailedSessions and the version
// fields are taken from res and returned in the stored Execution.
func (s *Store) WriteExecution(ctx context.Context, meta Execution, res *engine.Result) (Execution, error) {
	digest, err := ir.TableDigest(res.Table)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}

	exec := meta
	exec.ID = res.ExecutionID
	exec.Configurations = len(res.Configurations)
	exec.Variables = res.Table.Variables
	exec.Digest = digest
	exec.FailedSessions = len(res.Failed())
	exec.EngineVersion = ir.EngineVersion
	exec.FormatVersion = ir.FormatVersion

	varsJSON, err := marshalVariables(exec.Variables)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: begin: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO executions
		(id, model, runs, timesteps, configurations, variables, digest, failed_sessions, engine_version, format_version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		exec.ID,
		exec.Model,
		exec.Runs,
		exec.Timesteps,
		exec.Configurations,
		varsJSON,
		exec.Digest,
		exec.FailedSessions,
		exec.EngineVersion,
		exec.FormatVersion,
	)
	if err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return Execution{}, fmt.Errorf("write execution: %w: %s", ErrExists, exec.ID)
	}

	if err := writeSessions(ctx, tx, exec.ID, res.Sessions); err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}
	if err := writeRecords(ctx, tx, exec.ID, res.Table.Records); err != nil {
		return Execution{}, fmt.Errorf("write execution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Execution{}, fmt.Errorf("write execution: commit: %w", err)
	}
	s.logger.Debug("execution written", "execution", exec.ID, "sessions", len(res.Sessions), "records", len(res.Table.Records))
	return exec, nil
}

func writeSessions(ctx context.Context, tx *sql.Tx, executionID string, sessions []engine.SessionResult) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sessions (execution_id, subset, run, params, params_hash, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare sessions: %w", err)
	}
	defer stmt.Close()

	for _, sess := range sessions {
		params, err := marshalParams(sess.Params)
		if err != nil {
			return fmt.Errorf("session run=%d subset=%d: %w", sess.Run, sess.Subset, err)
		}
		hash, err := ir.ParamsHash(sess.Params)
		if err != nil {
			return fmt.Errorf("session run=%d subset=%d: %w", sess.Run, sess.Subset, err)
		}
		var msg string
		if sess.Err != nil {
			msg = sess.Err.Error()
		}
		if _, err := stmt.ExecContext(ctx,
			executionID, sess.Subset, sess.Run, params, hash, string(sess.Status), msg,
		); err != nil {
			return fmt.Errorf("insert session run=%d subset=%d: %w", sess.Run, sess.Subset, err)
		}
	}
	return nil
}

func writeRecords(ctx context.Context, tx *sql.Tx, executionID string, records []ir.Record) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (execution_id, subset, run, timestep, substep, state)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare records: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		state, err := marshalState(r.State)
		if err != nil {
			return fmt.Errorf("record %d/%d/%d/%d: %w", r.Subset, r.Run, r.Timestep, r.Substep, err)
		}
		if _, err := stmt.ExecContext(ctx,
			executionID, r.Subset, r.Run, r.Timestep, r.Substep, state,
		); err != nil {
			return fmt.Errorf("insert record %d/%d/%d/%d: %w", r.Subset, r.Run, r.Timestep, r.Substep, err)
		}
	}
	return nil
}
