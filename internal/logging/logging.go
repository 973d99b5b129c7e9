// Package logging builds the zerolog logger shared by the store, the session
// and the front end.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/config"
)

// New returns a logger writing to w at the configured level. The console
// format is colored only when w is a terminal.
func New(cfg config.LogConfig, w io.Writer) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		color := isTerminal(w)
		if f, ok := w.(*os.File); ok && color {
			w = colorable.NewColorable(f)
		}
		w = zerolog.ConsoleWriter{Out: w, NoColor: !color, TimeFormat: time.Kitchen}
	case "json":
	default:
		return zerolog.Nop(), errors.WithHint(
			errors.Newf("unknown log format %q", cfg.Format),
			"use console or json",
		)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}

// ParseLevel parses a zerolog level name. An empty name means error.
func ParseLevel(name string) (zerolog.Level, error) {
	if name == "" {
		return zerolog.ErrorLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return zerolog.NoLevel, errors.WithHint(
			errors.Wrapf(err, "log level %q", name),
			"use one of trace, debug, info, warn, error, fatal, panic, disabled",
		)
	}
	return level, nil
}

// Open returns the writer for path, or stderr when path is empty. The
// returned close function is never nil.
func Open(path string) (io.Writer, func() error, error) {
	if path == "" {
		return os.Stderr, func() error { return nil }, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, nil, errors.Wrap(err, "create log dir")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open log file")
	}
	return f, f.Close, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
