// Package runner executes statement lines against a catalog session and
// records them in history, the audit log and the application log. It is
// shared by the interactive REPL and the non-interactive commands.
package runner

import (
	"bufio"
	"context"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	"github.com/sadopc/toydb/internal/audit"
	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/history"
	"github.com/sadopc/toydb/internal/parser"
	"github.com/sadopc/toydb/internal/session"
	"github.com/sadopc/toydb/internal/statement"
	"github.com/sadopc/toydb/internal/store"
)

// ErrFailed is returned by Run when at least one statement failed.
var ErrFailed = errors.New("one or more statements failed")

// Outcome is the result of one statement. Kind is KindOther and Statement
// is the raw line when the line did not parse.
type Outcome struct {
	Statement string
	Kind      statement.Kind
	Result    *session.Result
	Err       error
	Duration  time.Duration
}

// Runner feeds lines to a Session.
type Runner struct {
	session *session.Session
	history *history.History
	audit   *audit.Logger
	log     zerolog.Logger
	dialect string
	dsn     string // redacted
}

// Option configures a Runner.
type Option func(*Runner)

// WithHistory records every line in h.
func WithHistory(h *history.History) Option {
	return func(r *Runner) { r.history = h }
}

// WithAudit appends one audit entry per statement to a.
func WithAudit(a *audit.Logger) Option {
	return func(r *Runner) { r.audit = a }
}

// WithLogger sets the logger for statement failures.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.log = l }
}

// WithStore names the backend for history and audit records. Audit
// entries carry dsn with its password redacted.
func WithStore(dialect, dsn string) Option {
	return func(r *Runner) {
		r.dialect = dialect
		r.dsn = store.RedactDSN(dialect, dsn)
	}
}

// New creates a Runner over s.
func New(s *session.Session, opts ...Option) *Runner {
	r := &Runner{session: s, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the session the runner drives.
func (r *Runner) Session() *session.Session { return r.session }

// Dialect returns the store dialect named by WithStore.
func (r *Runner) Dialect() string { return r.dialect }

// Exec runs every statement of line in order and stops at the first
// failure, which is the last outcome returned. A blank line returns nothing.
func (r *Runner) Exec(ctx context.Context, line string) []Outcome {
	if strings.TrimSpace(line) == "" {
		return nil
	}
	start := time.Now()

	var outcomes []Outcome
	stmts, err := parser.Parse(line)
	if err != nil {
		outcomes = append(outcomes, Outcome{Statement: strings.TrimSpace(line), Err: err})
		r.record(outcomes[0])
	}
	for _, stmt := range stmts {
		begin := time.Now()
		res, err := r.session.Handle(ctx, stmt)
		o := Outcome{
			Statement: stmt.String(),
			Kind:      stmt.Kind(),
			Result:    res,
			Err:       err,
			Duration:  time.Since(begin),
		}
		outcomes = append(outcomes, o)
		r.record(o)
		if err != nil {
			break
		}
	}

	r.remember(ctx, line, Failed(outcomes), time.Since(start))
	return outcomes
}

// Failed reports whether any outcome carries an error.
func Failed(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o.Err != nil {
			return true
		}
	}
	return false
}

// record logs a failed statement and writes the audit entry.
func (r *Runner) record(o Outcome) {
	db, _ := r.session.CurrentDatabaseName()
	entry := audit.Entry{
		Statement:    o.Statement,
		Kind:         o.Kind.String(),
		Dialect:      r.dialect,
		DatabaseName: db,
		DurationMS:   o.Duration.Milliseconds(),
		DSN:          r.dsn,
	}
	if o.Err != nil {
		entry.Error = o.Err.Error()
		entry.ErrorKind = ErrorKind(o.Err)
		r.log.Error().Err(o.Err).Str("statement", o.Statement).Msg("statement failed")
	}
	r.audit.Log(entry)
}

// remember stores the line in history. History failures are logged and
// otherwise ignored.
func (r *Runner) remember(ctx context.Context, line string, failed bool, d time.Duration) {
	if r.history == nil {
		return
	}
	db, _ := r.session.CurrentDatabaseName()
	err := r.history.Add(ctx, history.Entry{
		Statement:    strings.TrimSpace(line),
		Dialect:      r.dialect,
		DatabaseName: db,
		DurationMS:   d.Milliseconds(),
		IsError:      failed,
	})
	if err != nil {
		r.log.Warn().Err(err).Msg("history not recorded")
	}
}

// ErrorKind names the class of err: a catalog failure kind or "syntax error".
func ErrorKind(err error) string {
	var se *parser.SyntaxError
	if errors.As(err, &se) {
		return "syntax error"
	}
	return catalogerr.KindOf(err).String()
}

// Run reads statement lines from in and writes each outcome to out with
// write. Blank lines and lines starting with "--" are skipped. It stops at
// the first failing line unless keepGoing is set, and returns ErrFailed if
// any line failed.
func (r *Runner) Run(ctx context.Context, in io.Reader, write func([]Outcome) error, keepGoing bool) error {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	failed := false
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := sc.Text()
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}

		outcomes := r.Exec(ctx, line)
		if err := write(outcomes); err != nil {
			return errors.Wrap(err, "write output")
		}
		if Failed(outcomes) {
			failed = true
			if !keepGoing {
				break
			}
		}
	}
	if err := sc.Err(); err != nil {
		return errors.Wrap(err, "read statements")
	}
	if failed {
		return ErrFailed
	}
	return nil
}
