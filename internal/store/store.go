// Package store keeps the catalog in a relational backend. It owns the
// persisted layout (created by embedded goose migrations) and exposes
// transactional primitives; the referential rules between catalog rows are
// enforced by the backend's foreign keys.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/catalogerr"
)

//go:embed migrations
var migrations embed.FS

// goose keeps its dialect, base FS and logger in package state.
var gooseMu sync.Mutex

// Store is a handle on the catalog backend. It is safe for concurrent use;
// sessions sharing a Store rely on the backend's transaction isolation.
type Store struct {
	db      *sql.DB
	dialect Dialect
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for store and migration messages.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open connects to the backend registered under dialect.
func Open(ctx context.Context, dialect, dsn string, opts ...Option) (*Store, error) {
	d, ok := Registry[strings.ToLower(dialect)]
	if !ok {
		return nil, errors.WithHintf(
			errors.Newf("unknown store dialect %q", dialect),
			"available dialects: %s", strings.Join(Dialects(), ", "),
		)
	}

	db, err := d.Open(ctx, dsn)
	if err != nil {
		return nil, catalogerr.StoreUnavailable("open "+d.Name(), err)
	}

	s := &Store{db: db, dialect: d, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dialect returns the name of the backend dialect.
func (s *Store) Dialect() string { return s.dialect.Name() }

// Init creates the catalog tables if they are absent. It is idempotent and
// meant to run on every start.
func (s *Store) Init(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{log: s.log})
	if err := goose.SetDialect(s.dialect.GooseDialect()); err != nil {
		return errors.Wrapf(err, "goose dialect %s", s.dialect.GooseDialect())
	}
	if err := ctx.Err(); err != nil {
		return catalogerr.StoreUnavailable("initialise catalog", err)
	}

	dir := path.Join("migrations", s.dialect.Name())
	if err := goose.Up(s.db, dir); err != nil {
		return catalogerr.StoreUnavailable("initialise catalog", err)
	}
	s.log.Debug().Str("dialect", s.dialect.Name()).Msg("catalog schema ready")
	return nil
}

// Begin starts a unit of work.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalogerr.StoreUnavailable("begin", err)
	}
	return &Tx{tx: tx, dialect: s.dialect}, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(*Tx) error) error {
	tx, err := s.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return catalogerr.StoreUnavailable("ping", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// gooseLogger routes goose output into the store logger.
type gooseLogger struct {
	log zerolog.Logger
}

func (l gooseLogger) Fatal(v ...interface{}) { l.log.Error().Msg(strings.TrimSpace(fmt.Sprint(v...))) }
func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error().Msgf(strings.TrimSpace(format), v...)
}
func (l gooseLogger) Print(v ...interface{})   { l.log.Debug().Msg(strings.TrimSpace(fmt.Sprint(v...))) }
func (l gooseLogger) Println(v ...interface{}) { l.log.Debug().Msg(strings.TrimSpace(fmt.Sprint(v...))) }
func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug().Msgf(strings.TrimSpace(format), v...)
}
