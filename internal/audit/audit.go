// Package audit appends one JSON line per executed catalog statement to a
// size-rotated file.
package audit

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
)

// Entry is a single audit record. DSN must already be redacted; the store
// dialects know how.
type Entry struct {
	Timestamp    time.Time `json:"timestamp"`
	Statement    string    `json:"statement"`
	Kind         string    `json:"kind"`
	Dialect      string    `json:"dialect"`
	DatabaseName string    `json:"database_name,omitempty"`
	DurationMS   int64     `json:"duration_ms"`
	Error        string    `json:"error,omitempty"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	DSN          string    `json:"dsn"`
}

// Logger writes audit entries as JSON lines.
type Logger struct {
	out *rotatingFile
	log zerolog.Logger
}

// New opens the audit file at path for appending, creating its directory.
// A positive maxSizeMB rotates the file once it grows past that size.
func New(path string, maxSizeMB int) (*Logger, error) {
	out, err := openRotating(path, int64(maxSizeMB)<<20)
	if err != nil {
		return nil, err
	}
	return &Logger{out: out, log: zerolog.New(out)}, nil
}

// Log writes e. Write failures are dropped: auditing never fails a
// statement. Log on a nil Logger is a no-op.
func (l *Logger) Log(e Entry) {
	if l == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	ev := l.log.Log().
		Time("timestamp", e.Timestamp).
		Str("statement", e.Statement).
		Str("kind", e.Kind).
		Str("dialect", e.Dialect)
	if e.DatabaseName != "" {
		ev = ev.Str("database_name", e.DatabaseName)
	}
	ev = ev.Int64("duration_ms", e.DurationMS)
	if e.Error != "" {
		ev = ev.Str("error", e.Error).Str("error_kind", e.ErrorKind)
	}
	ev.Str("dsn", e.DSN).Send()
}

// Close closes the file. Close on a nil Logger is a no-op.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	return l.out.Close()
}

// rotatingFile is an append-only file that moves itself to path.1 once it
// reaches maxSize bytes. A zero maxSize never rotates.
type rotatingFile struct {
	mu      sync.Mutex
	path    string
	maxSize int64
	f       *os.File
	size    int64
}

func openRotating(path string, maxSize int64) (*rotatingFile, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "audit: create dir")
	}
	r := &rotatingFile{path: path, maxSize: maxSize}
	if err := r.open(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *rotatingFile) open() error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return errors.Wrap(err, "audit: open file")
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrap(err, "audit: stat file")
	}
	r.f, r.size = f, info.Size()
	return nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return 0, errors.New("audit: file closed")
	}
	n, err := r.f.Write(p)
	r.size += int64(n)
	if err == nil && r.maxSize > 0 && r.size >= r.maxSize {
		err = r.rotate()
	}
	return n, err
}

// rotate keeps a single backup at path.1.
func (r *rotatingFile) rotate() error {
	if err := r.f.Close(); err != nil {
		return errors.Wrap(err, "audit: close for rotation")
	}
	r.f = nil
	if err := os.Rename(r.path, r.path+".1"); err != nil {
		return errors.Wrap(err, "audit: rotate")
	}
	return r.open()
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
