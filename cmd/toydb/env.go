package main

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/audit"
	"github.com/sadopc/toydb/internal/config"
	"github.com/sadopc/toydb/internal/history"
	"github.com/sadopc/toydb/internal/logging"
	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/session"
	"github.com/sadopc/toydb/internal/store"

	// Register store dialects
	_ "github.com/sadopc/toydb/internal/store/mysql"
	_ "github.com/sadopc/toydb/internal/store/postgres"
	_ "github.com/sadopc/toydb/internal/store/sqlite"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	config   string
	dialect  string
	dsn      string
	logLevel string
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(f globalFlags) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if f.config != "" {
		cfg, err = config.Load(f.config)
	} else {
		cfg, err = config.LoadDefault()
	}
	if err != nil {
		return nil, err
	}

	if f.dialect != "" {
		cfg.Store.Dialect = f.dialect
		// A DSN from the file belongs to the file's dialect.
		if f.dsn == "" {
			cfg.Store.DSN = ""
		}
	}
	if f.dsn != "" {
		cfg.Store.DSN = f.dsn
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := logging.ParseLevel(cfg.Log.Level); err != nil {
		return nil, err
	}
	return cfg, nil
}

// env is everything a command needs to run statements.
type env struct {
	cfg     *config.Config
	dir     string
	dsn     string
	log     zerolog.Logger
	store   *store.Store
	history *history.History
	audit   *audit.Logger
	runner  *runner.Runner
	closers []func() error
}

// openEnv opens the logger, the catalog store (initialising it), history and
// the audit log. Interactive sessions log to a file by default.
func openEnv(ctx context.Context, f globalFlags, interactive bool) (_ *env, err error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, err
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrap(err, "create config dir")
	}

	e := &env{cfg: cfg, dir: dir, dsn: cfg.StoreDSN(dir)}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	w, closeLog, err := logging.Open(cfg.LogPath(dir, interactive))
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, closeLog)
	if e.log, err = logging.New(cfg.Log, w); err != nil {
		return nil, err
	}

	if e.store, err = store.Open(ctx, cfg.Store.Dialect, e.dsn, store.WithLogger(e.log)); err != nil {
		return nil, err
	}
	e.closers = append(e.closers, e.store.Close)
	if err := e.store.Init(ctx); err != nil {
		return nil, err
	}

	opts := []runner.Option{
		runner.WithLogger(e.log),
		runner.WithStore(e.store.Dialect(), e.dsn),
	}
	if cfg.History.Enabled {
		h, herr := history.OpenDir(ctx, dir)
		if herr != nil {
			e.log.Warn().Err(herr).Msg("history disabled")
		} else {
			e.history = h
			e.closers = append(e.closers, h.Close)
			opts = append(opts, runner.WithHistory(h))
		}
	}
	if cfg.Audit.Enabled {
		a, aerr := audit.New(cfg.AuditPath(dir), cfg.Audit.MaxSizeMB)
		if aerr != nil {
			e.log.Warn().Err(aerr).Msg("audit log disabled")
		} else {
			e.audit = a
			e.closers = append(e.closers, a.Close)
			opts = append(opts, runner.WithAudit(a))
		}
	}

	e.runner = runner.New(session.New(e.store, session.WithLogger(e.log)), opts...)
	return e, nil
}

// Close releases everything in reverse opening order.
func (e *env) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i]()
	}
	e.closers = nil
}
