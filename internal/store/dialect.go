package store

import (
	"context"
	"database/sql"
	"sort"
	"strings"
)

// RedactedPassword replaces passwords in redacted DSNs.
const RedactedPassword = "xxxxx"

// Violation is the integrity rule a driver error reports, if any.
type Violation int

const (
	ViolationNone Violation = iota
	ViolationUnique
	ViolationForeignKey
)

// Dialect adapts the store to one relational backend.
type Dialect interface {
	// Name is the registry key and the migrations subdirectory.
	Name() string
	// GooseDialect is the dialect name understood by goose.
	GooseDialect() string
	// Open connects to the backend and verifies the connection.
	Open(ctx context.Context, dsn string) (*sql.DB, error)
	// Rebind rewrites '?' placeholders into the backend's native form.
	Rebind(query string) string
	// InsertID runs an INSERT into a table with an "id" key and returns the
	// generated id.
	InsertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error)
	// Classify maps a driver error to the integrity rule it reports.
	Classify(err error) Violation
	// Redact returns dsn with its password replaced by RedactedPassword,
	// or "" when dsn cannot be parsed.
	Redact(dsn string) string
}

// Registry holds registered dialects by name.
var Registry = map[string]Dialect{}

// Register adds a dialect to the global registry.
func Register(d Dialect) {
	Registry[d.Name()] = d
}

// Dialects returns the registered dialect names in sorted order.
func Dialects() []string {
	names := make([]string, 0, len(Registry))
	for name := range Registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RedactDSN masks the credentials of dsn using the syntax of the named
// dialect. Unknown dialects yield "".
func RedactDSN(dialect, dsn string) string {
	d, ok := Registry[strings.ToLower(dialect)]
	if !ok || dsn == "" {
		return ""
	}
	return d.Redact(dsn)
}
