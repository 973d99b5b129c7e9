package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/google/go-cmp/cmp"

	"github.com/sadopc/toydb/internal/audit"
	"github.com/sadopc/toydb/internal/catalogerr"
	"github.com/sadopc/toydb/internal/history"
	"github.com/sadopc/toydb/internal/parser"
	"github.com/sadopc/toydb/internal/runner"
	"github.com/sadopc/toydb/internal/session"
	"github.com/sadopc/toydb/internal/statement"
	"github.com/sadopc/toydb/internal/store"
	_ "github.com/sadopc/toydb/internal/store/postgres"
	_ "github.com/sadopc/toydb/internal/store/sqlite"
)

func newRunner(t *testing.T, opts ...runner.Option) *runner.Runner {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, "sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.Init(ctx); err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	return runner.New(session.New(st), opts...)
}

func statements(outcomes []runner.Outcome) []string {
	var out []string
	for _, o := range outcomes {
		out = append(out, o.Statement)
	}
	return out
}

func TestExec_RunsStatementsInOrder(t *testing.T) {
	r := newRunner(t)
	outcomes := r.Exec(context.Background(), "CREATE DATABASE shop; CREATE TABLE t (id INT PRIMARY KEY); SHOW TABLES")

	want := []string{
		"CREATE DATABASE shop",
		"CREATE TABLE t (id INT PRIMARY KEY)",
		"SHOW TABLES",
	}
	if diff := cmp.Diff(want, statements(outcomes)); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
	if runner.Failed(outcomes) {
		t.Fatalf("unexpected failure: %+v", outcomes)
	}
	last := outcomes[len(outcomes)-1]
	if last.Kind != statement.KindShowTables {
		t.Errorf("last kind = %v, want %v", last.Kind, statement.KindShowTables)
	}
	if diff := cmp.Diff([][]string{{"t"}}, last.Result.Rows); diff != "" {
		t.Errorf("SHOW TABLES rows mismatch (-want +got):\n%s", diff)
	}
}

func TestExec_StopsAtFirstFailure(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	outcomes := r.Exec(ctx, "CREATE DATABASE a; USE missing; CREATE DATABASE b")

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2: %+v", len(outcomes), statements(outcomes))
	}
	if outcomes[0].Err != nil {
		t.Errorf("first statement failed: %v", outcomes[0].Err)
	}
	if got := catalogerr.KindOf(outcomes[1].Err); got != catalogerr.KindNotFound {
		t.Errorf("second error kind = %v, want %v", got, catalogerr.KindNotFound)
	}

	// b was never created.
	retry := r.Exec(ctx, "USE b")
	if got := catalogerr.KindOf(retry[0].Err); got != catalogerr.KindNotFound {
		t.Errorf("USE b error kind = %v, want %v", got, catalogerr.KindNotFound)
	}
}

func TestExec_SyntaxErrorRunsNothing(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()
	outcomes := r.Exec(ctx, "CREATE DATABASE a; CREATE TABLE (")

	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	o := outcomes[0]
	var se *parser.SyntaxError
	if !errors.As(o.Err, &se) {
		t.Fatalf("error %v is not a syntax error", o.Err)
	}
	if o.Statement != "CREATE DATABASE a; CREATE TABLE (" {
		t.Errorf("statement = %q, want the raw line", o.Statement)
	}
	if o.Kind != statement.KindOther {
		t.Errorf("kind = %v, want %v", o.Kind, statement.KindOther)
	}
	if name, ok := r.Session().CurrentDatabaseName(); ok {
		t.Errorf("database %q selected after a syntax error", name)
	}
}

func TestExec_BlankLine(t *testing.T) {
	r := newRunner(t)
	if outcomes := r.Exec(context.Background(), "   "); outcomes != nil {
		t.Errorf("blank line produced %d outcomes", len(outcomes))
	}
}

func TestErrorKind(t *testing.T) {
	_, syntaxErr := parser.Parse("CREATE TABLE (")
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"syntax", syntaxErr, "syntax error"},
		{"not found", catalogerr.NotFound("table", "t"), catalogerr.KindNotFound.String()},
		{"no database", catalogerr.NoDatabaseSelected(), catalogerr.KindNoDatabaseSelected.String()},
		{"unsupported", catalogerr.Unsupported("GRANT"), catalogerr.KindUnsupported.String()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Fatal("test error is nil")
			}
			if got := runner.ErrorKind(tt.err); got != tt.want {
				t.Errorf("ErrorKind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExec_RecordsHistory(t *testing.T) {
	ctx := context.Background()
	h, err := history.Open(ctx, filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("history.Open() error: %v", err)
	}
	t.Cleanup(func() { h.Close() })

	r := newRunner(t, runner.WithHistory(h), runner.WithStore("sqlite", ":memory:"))
	r.Exec(ctx, "CREATE DATABASE shop")
	r.Exec(ctx, "  USE nowhere  ")

	entries, err := h.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d history entries, want 2", len(entries))
	}
	// Most recent first.
	if entries[0].Statement != "USE nowhere" || !entries[0].IsError {
		t.Errorf("entries[0] = %+v, want failed USE nowhere", entries[0])
	}
	if entries[1].Statement != "CREATE DATABASE shop" || entries[1].IsError {
		t.Errorf("entries[1] = %+v, want successful CREATE DATABASE shop", entries[1])
	}
	if entries[1].DatabaseName != "shop" {
		t.Errorf("entries[1].DatabaseName = %q, want %q", entries[1].DatabaseName, "shop")
	}
	if entries[1].Dialect != "sqlite" {
		t.Errorf("entries[1].Dialect = %q, want %q", entries[1].Dialect, "sqlite")
	}
}

func readAudit(t *testing.T, path string) []audit.Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var entries []audit.Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e audit.Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid audit line %q: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestExec_WritesAuditEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	a, err := audit.New(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })

	r := newRunner(t, runner.WithAudit(a), runner.WithStore("postgres", "postgres://admin:s3cret@db/catalog"))
	r.Exec(ctx, "CREATE DATABASE shop; DROP TABLE missing")

	entries := readAudit(t, path)
	if len(entries) != 2 {
		t.Fatalf("got %d audit entries, want 2", len(entries))
	}
	if entries[0].Kind != "CREATE DATABASE" || entries[0].Error != "" {
		t.Errorf("entries[0] = %+v", entries[0])
	}
	if entries[1].ErrorKind != catalogerr.KindNotFound.String() {
		t.Errorf("entries[1].ErrorKind = %q, want %q", entries[1].ErrorKind, catalogerr.KindNotFound.String())
	}
	for _, e := range entries {
		if e.DSN != "postgres://admin:xxxxx@db/catalog" {
			t.Errorf("audit DSN = %q, want the redacted DSN", e.DSN)
		}
		if e.Dialect != "postgres" {
			t.Errorf("audit dialect = %q, want postgres", e.Dialect)
		}
	}
}

func TestRun(t *testing.T) {
	script := strings.Join([]string{
		"-- set up",
		"CREATE DATABASE shop",
		"",
		"CREATE TABLE users (id INT PRIMARY KEY)",
		"CREATE TABLE users (id INT)",
		"CREATE VIEW v AS SELECT id FROM users",
	}, "\n")

	tests := []struct {
		name      string
		keepGoing bool
		wantLines int
	}{
		{"stop at failure", false, 3},
		{"keep going", true, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRunner(t)
			lines := 0
			write := func(outcomes []runner.Outcome) error {
				lines++
				return nil
			}
			err := r.Run(context.Background(), strings.NewReader(script), write, tt.keepGoing)
			if !errors.Is(err, runner.ErrFailed) {
				t.Errorf("Run() error = %v, want ErrFailed", err)
			}
			if lines != tt.wantLines {
				t.Errorf("wrote %d lines, want %d", lines, tt.wantLines)
			}
		})
	}
}

func TestRun_Success(t *testing.T) {
	r := newRunner(t)
	var got []string
	write := func(outcomes []runner.Outcome) error {
		got = append(got, statements(outcomes)...)
		return nil
	}
	err := r.Run(context.Background(), strings.NewReader("CREATE DATABASE a\nUSE a\n"), write, false)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if diff := cmp.Diff([]string{"CREATE DATABASE a", "USE a"}, got); diff != "" {
		t.Errorf("statements mismatch (-want +got):\n%s", diff)
	}
}

func TestRun_WriteError(t *testing.T) {
	r := newRunner(t)
	boom := errors.New("disk full")
	err := r.Run(context.Background(), strings.NewReader("CREATE DATABASE a\n"), func([]runner.Outcome) error {
		return boom
	}, false)
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want wrapped %v", err, boom)
	}
}
