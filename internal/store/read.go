package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/stepsim/internal/engine"
	"github.com/roach88/stepsim/internal/ir"
	"github.com/roach88/stepsim/internal/query"
)

// ErrNotFound is returned when an execution ID is not stored.
var ErrNotFound = errors.New("execution not found")

// Session is the stored outcome of one (run, subset) session.
type Session struct {
	Run        int                  `json:"run"`
	Subset     int                  `json:"subset"`
	Params     ir.Object            `json:"params"`
	ParamsHash string               `json:"params_hash"`
	Status     engine.SessionStatus `json:"status"`
	Error      string               `json:"error,omitempty"`
}

// ReadExecution retrieves one execution summary.
// Returns an error wrapping ErrNotFound if the ID is unknown.
func (s *Store) ReadExecution(ctx context.Context, id string) (Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, model, runs, timesteps, configurations, variables, digest, failed_sessions, engine_version, format_version
		FROM executions
		WHERE id = ?
	`, id)

	exec, err := scanExecution(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Execution{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return exec, err
}

// ListExecutions returns every stored execution ordered by ID.
// UUIDv7 IDs sort in creation order.
//
// Returns an empty slice (not nil) if the store is empty.
func (s *Store) ListExecutions(ctx context.Context) ([]Execution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, model, runs, timesteps, configurations, variables, digest, failed_sessions, engine_version, format_version
		FROM executions
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query executions: %w", err)
	}
	defer rows.Close()

	execs := []Execution{}
	for rows.Next() {
		exec, err := scanExecution(rows)
		if err != nil {
			return nil, err
		}
		execs = append(execs, exec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate executions: %w", err)
	}
	return execs, nil
}

// ReadSessions returns the sessions of an execution ordered by (subset, run).
func (s *Store) ReadSessions(ctx context.Context, id string) ([]Session, error) {
	if _, err := s.ReadExecution(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT run, subset, params, params_hash, status, error
		FROM sessions
		WHERE execution_id = ?
		ORDER BY subset ASC, run ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		var (
			sess   Session
			params string
			status string
		)
		if err := rows.Scan(&sess.Run, &sess.Subset, &params, &sess.ParamsHash, &status, &sess.Error); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Params, err = unmarshalParams(params)
		if err != nil {
			return nil, fmt.Errorf("session run=%d subset=%d: %w", sess.Run, sess.Subset, err)
		}
		sess.Status = engine.SessionStatus(status)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// ReadTrajectory returns the stored records of an execution matching pred,
// in collation order. A nil pred returns the whole trajectory.
func (s *Store) ReadTrajectory(ctx context.Context, id string, pred query.Predicate) (ir.Table, error) {
	exec, err := s.ReadExecution(ctx, id)
	if err != nil {
		return ir.Table{}, err
	}

	sqlText, params, err := query.SelectRecords(id, pred)
	if err != nil {
		return ir.Table{}, fmt.Errorf("read trajectory: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, params...)
	if err != nil {
		return ir.Table{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	table := ir.Table{Variables: exec.Variables, Records: []ir.Record{}}
	for rows.Next() {
		var (
			r     ir.Record
			state string
		)
		if err := rows.Scan(&r.Run, &r.Subset, &r.Timestep, &r.Substep, &state); err != nil {
			return ir.Table{}, fmt.Errorf("scan record: %w", err)
		}
		r.State, err = unmarshalState(state, exec.Variables)
		if err != nil {
			return ir.Table{}, fmt.Errorf("record %d/%d/%d/%d: %w", r.Subset, r.Run, r.Timestep, r.Substep, err)
		}
		table.Records = append(table.Records, r)
	}
	if err := rows.Err(); err != nil {
		return ir.Table{}, fmt.Errorf("iterate records: %w", err)
	}
	return table, nil
}

// scanner is the common interface of *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanExecution(row scanner) (Execution, error) {
	var (
		exec Execution
		vars string
	)
	err := row.Scan(
		&exec.ID,
		&exec.Model,
		&exec.Runs,
		&exec.Timesteps,
		&exec.Configurations,
		&vars,
		&exec.Digest,
		&exec.FailedSessions,
		&exec.EngineVersion,
		&exec.FormatVersion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Execution{}, err
		}
		return Execution{}, fmt.Errorf("scan execution: %w", err)
	}
	exec.Variables, err = unmarshalVariables(vars)
	if err != nil {
		return Execution{}, fmt.Errorf("execution %s: %w", exec.ID, err)
	}
	return exec, nil
}
