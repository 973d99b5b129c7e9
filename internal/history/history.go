// Package history records every statement line entered into toydb in a
// local SQLite database, for recall in the REPL and the history command.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"
)

const createTableSQL = `CREATE TABLE IF NOT EXISTS history (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	statement     TEXT NOT NULL,
	dialect       TEXT,
	database_name TEXT,
	executed_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
	duration_ms   INTEGER,
	is_error      BOOLEAN DEFAULT FALSE
)`

const selectEntries = `SELECT id, statement, dialect, database_name, executed_at, duration_ms, is_error
FROM history`

// Entry is one executed statement line.
type Entry struct {
	ID           int64
	Statement    string
	Dialect      string
	DatabaseName string
	ExecutedAt   time.Time
	DurationMS   int64
	IsError      bool
}

// History provides SQLite-backed statement history storage.
type History struct {
	db *sql.DB
}

// Open opens (or creates) the history database at path and ensures the
// schema exists.
func Open(ctx context.Context, path string) (*History, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "history: create dir")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "history: open db")
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: create table")
	}

	return &History{db: db}, nil
}

// OpenDir opens the history database dir/history.db.
func OpenDir(ctx context.Context, dir string) (*History, error) {
	return Open(ctx, filepath.Join(dir, "history.db"))
}

// Add inserts a new history entry.
func (h *History) Add(ctx context.Context, e Entry) error {
	if e.ExecutedAt.IsZero() {
		e.ExecutedAt = time.Now().UTC()
	}
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO history (statement, dialect, database_name, executed_at, duration_ms, is_error)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.Statement,
		e.Dialect,
		e.DatabaseName,
		e.ExecutedAt,
		e.DurationMS,
		e.IsError,
	)
	if err != nil {
		return errors.Wrap(err, "history add")
	}
	return nil
}

// Search returns entries whose statement matches the SQL LIKE pattern, most
// recent first, limited to limit rows.
func (h *History) Search(ctx context.Context, pattern string, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		selectEntries+` WHERE statement LIKE ? ORDER BY executed_at DESC, id DESC LIMIT ?`,
		pattern, limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "history search")
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent returns the most recent entries, limited to limit rows.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := h.db.QueryContext(ctx,
		selectEntries+` ORDER BY executed_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, errors.Wrap(err, "history recent")
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Statements returns the text of the last limit entries, oldest first, the
// order in which the REPL recalls them.
func (h *History) Statements(ctx context.Context, limit int) ([]string, error) {
	entries, err := h.Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e.Statement
	}
	return out, nil
}

// Clear deletes all history entries.
func (h *History) Clear(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return errors.Wrap(err, "history clear")
	}
	return nil
}

// Close closes the underlying database connection.
func (h *History) Close() error {
	return h.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var e Entry
		var dialect, dbName sql.NullString
		if err := rows.Scan(
			&e.ID,
			&e.Statement,
			&dialect,
			&dbName,
			&e.ExecutedAt,
			&e.DurationMS,
			&e.IsError,
		); err != nil {
			return nil, errors.Wrap(err, "history scan")
		}
		e.Dialect = dialect.String
		e.DatabaseName = dbName.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "history rows")
	}
	return entries, nil
}
