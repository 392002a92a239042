// Package journal records sync history in an embedded SQLite database.
//
// Every watch session and every sync attempt is written to
// <root>/.git/agsync.db, which `agsync history` reads back. The database
// lives inside git metadata so it is never mirrored.
//
// Architecture:
//   - sessions: one row per `agsync watch` run
//   - sync_runs: one row per attempt, with trigger, outcome and error
//   - run_changes: the pending changes each attempt carried
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/autogitsync/agsync/internal/daemon"
)

// FileName is the database file inside the metadata directory.
const FileName = "agsync.db"

// DB wraps the journal connection.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (creating if needed) the journal at path and ensures the
// schema exists.
//
// The caller MUST call Close() when done.
func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping journal: %w", err)
	}

	// One writer at a time; readers share WAL snapshots
	conn.SetMaxOpenConns(4)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(5 * time.Minute)

	db := &DB{conn: conn, path: path}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.InitSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection.
// Performs a WAL checkpoint so the file is self-contained.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to checkpoint journal: %v\n", err)
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close journal: %w", err)
	}

	db.conn = nil
	return nil
}

// InitSchema creates the tables if they don't exist. Idempotent.
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		root TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		ended_at INTEGER
	);

	CREATE TABLE IF NOT EXISTS sync_runs (
		id TEXT PRIMARY KEY,
		session_id TEXT REFERENCES sessions(id) ON DELETE SET NULL,
		trigger TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		committed INTEGER NOT NULL DEFAULT 0,
		commit_hash TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		change_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_changes (
		run_id TEXT NOT NULL REFERENCES sync_runs(id) ON DELETE CASCADE,
		path TEXT NOT NULL,
		kind TEXT NOT NULL,
		observed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sync_runs_started ON sync_runs(started_at DESC);
	CREATE INDEX IF NOT EXISTS idx_run_changes_run ON run_changes(run_id);
	`

	if _, err := db.conn.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create journal schema: %w", err)
	}
	return nil
}

// StartSession records the start of a watch session and returns its ID.
func (db *DB) StartSession(ctx context.Context, root string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO sessions (id, root, started_at) VALUES (?, ?, ?)`,
		id, root, at.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("failed to start session: %w", err)
	}
	return id, nil
}

// EndSession stamps the end of a session.
func (db *DB) EndSession(ctx context.Context, id string, at time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`UPDATE sessions SET ended_at = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	return nil
}

// RecordRun stores a finished attempt and the changes it carried.
// sessionID may be empty for one-off runs.
func (db *DB) RecordRun(ctx context.Context, sessionID string, res daemon.Result) error {
	id := res.ID
	if id == "" {
		id = uuid.NewString()
	}

	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sync_runs (id, session_id, trigger, started_at, finished_at, committed, commit_hash, error, change_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullString(sessionID), string(res.Trigger),
		res.StartedAt.UnixMilli(), res.FinishedAt.UnixMilli(),
		res.Outcome.Committed, res.Outcome.Commit, errText, len(res.Changes))
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	for _, c := range res.Changes {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO run_changes (run_id, path, kind, observed_at) VALUES (?, ?, ?, ?)`,
			id, c.Path, c.Kind.String(), c.ObservedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert change: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Run is a recorded sync attempt.
type Run struct {
	ID         string    `json:"id" yaml:"id"`
	SessionID  string    `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Trigger    string    `json:"trigger" yaml:"trigger"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`
	Committed  bool      `json:"committed" yaml:"committed"`
	Commit     string    `json:"commit,omitempty" yaml:"commit,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
	Changes    int       `json:"changes" yaml:"changes"`
}

// Query filters Runs.
type Query struct {
	// Since keeps runs started at or after this time; zero keeps all
	Since time.Time
	// Limit caps the result; zero means 50
	Limit int
}

// Runs returns recorded attempts, newest first.
func (db *DB) Runs(ctx context.Context, q Query) ([]Run, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	var since int64
	if !q.Since.IsZero() {
		since = q.Since.UnixMilli()
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, COALESCE(session_id, ''), trigger, started_at, finished_at, committed, commit_hash, error, change_count
		FROM sync_runs
		WHERE started_at >= ?
		ORDER BY started_at DESC
		LIMIT ?`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &r.Trigger, &started, &finished,
			&r.Committed, &r.Commit, &r.Error, &r.Changes); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.StartedAt = time.UnixMilli(started)
		r.FinishedAt = time.UnixMilli(finished)
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Change is a pending change recorded with a run.
type Change struct {
	Path       string    `json:"path" yaml:"path"`
	Kind       string    `json:"kind" yaml:"kind"`
	ObservedAt time.Time `json:"observed_at" yaml:"observed_at"`
}

// RunChanges returns the changes recorded for a run, in path order.
func (db *DB) RunChanges(ctx context.Context, runID string) ([]Change, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT path, kind, observed_at FROM run_changes WHERE run_id = ? ORDER BY path`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer rows.Close()

	var changes []Change
	for rows.Next() {
		var (
			c  Change
			at int64
		)
		if err := rows.Scan(&c.Path, &c.Kind, &at); err != nil {
			return nil, fmt.Errorf("failed to scan change: %w", err)
		}
		c.ObservedAt = time.UnixMilli(at)
		changes = append(changes, c)
	}
	return changes, rows.Err()
}

// ErrNoJournal is returned by OpenExisting when no journal was written yet.
var ErrNoJournal = errors.New("no sync history recorded")

// OpenExisting opens a journal only if it already exists.
func OpenExisting(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNoJournal
		}
		return nil, err
	}
	return Open(path)
}
