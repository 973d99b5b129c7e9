// Package postgres registers the PostgreSQL catalog dialect, driven by pgx
// through its database/sql adapter.
package postgres

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/sadopc/toydb/internal/store"
)

// SQLSTATE codes of the integrity violations the catalog relies on.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

func init() {
	store.Register(&dialect{})
}

// dialect implements store.Dialect for PostgreSQL.
type dialect struct{}

func (d *dialect) Name() string         { return "postgres" }
func (d *dialect) GooseDialect() string { return "postgres" }

func (d *dialect) Open(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "postgres: invalid dsn")
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "postgres ping")
	}
	return db, nil
}

// Rebind numbers '?' placeholders as $1, $2, ... leaving quoted text alone.
func (d *dialect) Rebind(query string) string {
	if !strings.Contains(query, "?") {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	inQuote := false
	for _, r := range query {
		switch {
		case r == '\'':
			inQuote = !inQuote
		case r == '?' && !inQuote:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Redact masks the password of a URL or a keyword/value DSN.
func (d *dialect) Redact(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		u, err := url.Parse(dsn)
		if err != nil {
			return ""
		}
		if _, ok := u.User.Password(); ok {
			u.User = url.UserPassword(u.User.Username(), store.RedactedPassword)
		}
		if q := u.Query(); q.Get("password") != "" {
			q.Set("password", store.RedactedPassword)
			u.RawQuery = q.Encode()
		}
		return u.String()
	}

	fields := strings.Fields(dsn)
	for i, f := range fields {
		if key, _, ok := strings.Cut(f, "="); ok && key == "password" {
			fields[i] = "password=" + store.RedactedPassword
		}
	}
	return strings.Join(fields, " ")
}

// InsertID relies on RETURNING since the pgx driver has no LastInsertId.
func (d *dialect) InsertID(ctx context.Context, tx *sql.Tx, query string, args ...any) (int64, error) {
	var id int64
	if err := tx.QueryRowContext(ctx, query+" RETURNING id", args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func (d *dialect) Classify(err error) store.Violation {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return store.ViolationNone
	}
	switch pgErr.Code {
	case uniqueViolation:
		return store.ViolationUnique
	case foreignKeyViolation:
		return store.ViolationForeignKey
	}
	return store.ViolationNone
}
