// Package ledger keeps a local history of dataset runs. The registry file
// stays the source of truth; the ledger only answers "what ran, when, by
// whom".
package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// Run is one finished dataset run.
type Run struct {
	RunID       string
	Dataset     string
	Filter      string
	ReleaseDate string
	State       string
	Locations   []string
	Operator    string
	StartedAt   time.Time
	FinishedAt  time.Time
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// SQLiteLedger stores runs in a single SQLite table.
type SQLiteLedger struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path.
func Open(path string) (*SQLiteLedger, error) {
	//nolint:gosec // G301: ledger directory is user-owned
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger: %w", err)
	}
	l, err := New(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an open database and ensures the schema exists.
func New(db *sql.DB) (*SQLiteLedger, error) {
	l := &SQLiteLedger{db: db}
	if err := l.migrate(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to migrate ledger: %w", err)
	}
	return l, nil
}

func (l *SQLiteLedger) migrate(ctx context.Context) error {
	query := `
    CREATE TABLE IF NOT EXISTS runs (
        run_id TEXT PRIMARY KEY,
        dataset TEXT NOT NULL,
        run_filter TEXT NOT NULL DEFAULT '',
        release_date TEXT NOT NULL DEFAULT '',
        state TEXT NOT NULL,
        locations JSON,
        operator TEXT NOT NULL DEFAULT '',
        started_at DATETIME,
        finished_at DATETIME
    );`
	_, err := l.db.ExecContext(ctx, query)
	return err
}

// Record inserts r, assigning a run ID when it has none.
func (l *SQLiteLedger) Record(ctx context.Context, r *Run) error {
	if r.RunID == "" {
		r.RunID = NewRunID()
	}
	locations := r.Locations
	if locations == nil {
		locations = []string{}
	}
	locJSON, err := json.Marshal(locations)
	if err != nil {
		return fmt.Errorf("failed to encode locations: %w", err)
	}

	query := `INSERT INTO runs (
		run_id, dataset, run_filter, release_date, state, locations, operator, started_at, finished_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = l.db.ExecContext(ctx, query,
		r.RunID, r.Dataset, r.Filter, r.ReleaseDate, r.State, string(locJSON), r.Operator,
		formatTime(r.StartedAt), formatTime(r.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// List returns up to limit runs, newest first.
func (l *SQLiteLedger) List(ctx context.Context, limit int) ([]*Run, error) {
	query := `
        SELECT run_id, dataset, run_filter, release_date, state, locations, operator, started_at, finished_at
        FROM runs
        ORDER BY started_at DESC, run_id
        LIMIT ?
    `
	rows, err := l.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return runs, nil
}

// Close closes the underlying database.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		r          Run
		locJSON    sql.NullString
		startedAt  sql.NullString
		finishedAt sql.NullString
	)
	if err := rows.Scan(&r.RunID, &r.Dataset, &r.Filter, &r.ReleaseDate, &r.State, &locJSON, &r.Operator, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	if locJSON.Valid && locJSON.String != "" {
		if err := json.Unmarshal([]byte(locJSON.String), &r.Locations); err != nil {
			return nil, fmt.Errorf("run %s: bad locations: %w", r.RunID, err)
		}
	}
	r.StartedAt = parseTime(startedAt.String)
	r.FinishedAt = parseTime(finishedAt.String)
	return &r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return time.Time{}
}
