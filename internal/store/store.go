package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// migration upgrades the schema from version-1 to version.
type migration struct {
	version int
	stmt    string
}

// migrations run in order against databases whose user_version is below
// their version. Append only.
var migrations = []migration{
	{1, `CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(execution_id, status)`},
}

// Store is a SQLite-backed trajectory store. A Store holds a single
// connection; SQLite serializes writers anyway.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

type options struct {
	busyTimeoutMS int
	logger        *slog.Logger
}

// Option configures Open.
type Option func(*options)

// WithBusyTimeout sets how long a statement waits on a locked database,
// in milliseconds. Default 5000.
func WithBusyTimeout(ms int) Option {
	return func(o *options) {
		if ms >= 0 {
			o.busyTimeoutMS = ms
		}
	}
}

// WithLogger sets the logger used for schema and write events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// Open opens the database at path, creating it if needed, and brings its
// schema up to date. Reopening an existing database keeps its data.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{busyTimeoutMS: 5000, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: o.logger}
	if err := s.init(context.Background(), o); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context, o options) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	for _, p := range []string{
		"journal_mode = WAL",
		"synchronous = NORMAL",
		fmt.Sprintf("busy_timeout = %d", o.busyTimeoutMS),
		"foreign_keys = ON",
	} {
		if _, err := s.db.ExecContext(ctx, "PRAGMA "+p); err != nil {
			return fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return s.migrate(ctx)
}

// migrate applies pending migrations and records the resulting version in
// PRAGMA user_version.
func (s *Store) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	target := current
	for _, m := range migrations {
		if m.version <= current {
			continue
		}
		if _, err := s.db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("failed to migrate schema to v%d: %w", m.version, err)
		}
		target = m.version
	}
	if target == current {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", target)); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}
	s.logger.Debug("schema migrated", "from", current, "to", target)
	return nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying handle for ad hoc queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// pragma reads the current value of a PRAGMA as text.
func (s *Store) pragma(name string) (string, error) {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return "", fmt.Errorf("failed to read pragma %s: %w", name, err)
	}
	return value, nil
}
