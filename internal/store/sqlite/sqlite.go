// Package sqlite registers the SQLite catalog dialect (modernc.org/sqlite,
// no cgo). It is the default backend.
package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/cockroachdb/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sadopc/toydb/internal/store"
)

func init() {
	store.Register(&dialect{})
}

// dialect implements store.Dialect for SQLite.
type dialect struct{}

func (d *dialect) Name() string         { return "sqlite" }
func (d *dialect) GooseDialect() string { return "sqlite3" }

func (d *dialect) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	dsn = withForeignKeys(normalizeDSN(dsn))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite open")
	}

	// SQLite serialises writers anyway; one connection keeps the pragma and
	// in-memory databases stable for the lifetime of the pool.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite ping")
	}

	// Cascade and restrict rules live in foreign keys, which SQLite ignores
	// unless enabled per connection.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "sqlite enable foreign keys")
	}

	return db, nil
}

// normalizeDSN strips common SQLite URI prefixes.
func normalizeDSN(dsn string) string {
	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://")
	}
	if strings.HasPrefix(dsn, "file:") {
		return strings.TrimPrefix(dsn, "file:")
	}
	if dsn == "" {
		return ":memory:"
	}
	return dsn
}

// Redact returns dsn unchanged: a SQLite DSN is a file path.
func (d *dialect) Redact(dsn string) string { return dsn }

// withForeignKeys asks the driver to enable foreign keys on every new
// connection. In-memory databases live on the single connection Open
// configures directly.
func withForeignKeys(dsn string) string {
	if dsn == ":memory:" || strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func (d *dialect) Rebind(query string) string { return query }

func (d *dialect) InsertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (d *dialect) Classify(err error) store.Violation {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ViolationUnique
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return store.ViolationForeignKey
		}
	}
	if err == nil {
		return store.ViolationNone
	}
	// Without extended result codes only the message tells the rules apart.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return store.ViolationUnique
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return store.ViolationForeignKey
	}
	return store.ViolationNone
}
