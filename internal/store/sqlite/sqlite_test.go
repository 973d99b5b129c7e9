package sqlite

import (
	"errors"
	"testing"

	"github.com/sadopc/toydb/internal/store"
)

func TestDialect_Name(t *testing.T) {
	d := &dialect{}
	if got := d.Name(); got != "sqlite" {
		t.Errorf("Name() = %q, want %q", got, "sqlite")
	}
	if got := d.GooseDialect(); got != "sqlite3" {
		t.Errorf("GooseDialect() = %q, want %q", got, "sqlite3")
	}
}

func TestDialect_Registration(t *testing.T) {
	d, ok := store.Registry["sqlite"]
	if !ok {
		t.Fatal("sqlite dialect not found in registry")
	}
	if d.Name() != "sqlite" {
		t.Errorf("registered dialect Name() = %q, want %q", d.Name(), "sqlite")
	}
}

func TestNormalizeDSN(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"sqlite:// prefix stripped", "sqlite:///path/to/catalog.db", "/path/to/catalog.db"},
		{"file: prefix stripped", "file:test.db", "test.db"},
		{"memory unchanged", ":memory:", ":memory:"},
		{"relative path unchanged", "relative/path.db", "relative/path.db"},
		{"empty means memory", "", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizeDSN(tt.dsn); got != tt.want {
				t.Errorf("normalizeDSN(%q) = %q, want %q", tt.dsn, got, tt.want)
			}
		})
	}
}

func TestWithForeignKeys(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{":memory:", ":memory:"},
		{"cat.db", "cat.db?_pragma=foreign_keys(1)"},
		{"cat.db?_pragma=busy_timeout(5000)", "cat.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"},
		{"cat.db?_pragma=foreign_keys(0)", "cat.db?_pragma=foreign_keys(0)"},
	}
	for _, tt := range tests {
		if got := withForeignKeys(tt.dsn); got != tt.want {
			t.Errorf("withForeignKeys(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestClassifyMessages(t *testing.T) {
	d := &dialect{}
	tests := []struct {
		err  error
		want store.Violation
	}{
		{errors.New("constraint failed: UNIQUE constraint failed: catalog_database.name (2067)"), store.ViolationUnique},
		{errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), store.ViolationForeignKey},
		{errors.New("disk I/O error"), store.ViolationNone},
		{nil, store.ViolationNone},
	}
	for _, tt := range tests {
		if got := d.Classify(tt.err); got != tt.want {
			t.Errorf("Classify(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestRedact(t *testing.T) {
	d := &dialect{}
	for _, dsn := range []string{"/path/to/catalog.db", ":memory:", "file:catalog.db?cache=shared"} {
		if got := d.Redact(dsn); got != dsn {
			t.Errorf("Redact(%q) = %q, want it unchanged", dsn, got)
		}
	}
}
