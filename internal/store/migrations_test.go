package store

import (
	"io/fs"
	"regexp"
	"strings"
	"testing"
)

var nameColumn = regexp.MustCompile(`(?m)^\s*name\s+VARCHAR\(\d+\)(.*)$`)

// Catalog names compare byte-wise on every backend; MySQL needs an explicit
// binary collation for that.
func TestMySQLNameColumnsAreCaseSensitive(t *testing.T) {
	files, err := fs.Glob(migrations, "migrations/mysql/*.sql")
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no mysql migrations embedded")
	}

	found := 0
	for _, name := range files {
		data, err := fs.ReadFile(migrations, name)
		if err != nil {
			t.Fatal(err)
		}
		for _, m := range nameColumn.FindAllStringSubmatch(string(data), -1) {
			found++
			if !strings.Contains(m[1], "COLLATE utf8mb4_bin") {
				t.Errorf("%s: name column %q lacks a binary collation", name, strings.TrimSpace(m[0]))
			}
		}
	}
	if found != 3 {
		t.Errorf("found %d name columns, want 3", found)
	}
}

func TestMigrationsCoverEveryDialect(t *testing.T) {
	for _, dir := range []string{"sqlite", "postgres", "mysql"} {
		files, err := fs.Glob(migrations, "migrations/"+dir+"/*.sql")
		if err != nil {
			t.Fatal(err)
		}
		if len(files) == 0 {
			t.Errorf("no migrations for %s", dir)
		}
	}
}
