package catalogerr

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"no database", NoDatabaseSelected(), "no database selected"},
		{"not found", NotFound("table", "users"), "table `users` not found"},
		{"already exists", AlreadyExists("database", "shop"), "database `shop` already exists"},
		{"unsupported", Unsupported("statement INSERT"), "unsupported statement INSERT"},
		{"constraint", ConstraintViolation("cannot drop table `t`", nil), "constraint violation: cannot drop table `t`"},
		{"unavailable", StoreUnavailable("begin", io.ErrUnexpectedEOF), "store unavailable: begin: unexpected EOF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := errors.Wrap(NotFound("view", "v"), "drop view")
	err = fmt.Errorf("statement 2: %w", err)

	if got := KindOf(err); got != KindNotFound {
		t.Errorf("KindOf() = %v, want %v", got, KindNotFound)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if errors.Is(err, ErrAlreadyExists) {
		t.Error("errors.Is(err, ErrAlreadyExists) = true, want false")
	}
}

func TestKindOfForeignError(t *testing.T) {
	if got := KindOf(io.EOF); got != KindUnknown {
		t.Errorf("KindOf(io.EOF) = %v, want %v", got, KindUnknown)
	}
	if got := KindOf(nil); got != KindUnknown {
		t.Errorf("KindOf(nil) = %v, want %v", got, KindUnknown)
	}
}

func TestStoreUnavailableUnwraps(t *testing.T) {
	err := StoreUnavailable("commit", io.ErrClosedPipe)
	if !errors.Is(err, io.ErrClosedPipe) {
		t.Error("cause not reachable through errors.Is")
	}
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Error("sentinel not matched")
	}
}

func TestNoDatabaseSelectedHint(t *testing.T) {
	hints := Hints(NoDatabaseSelected())
	if len(hints) != 1 || !strings.Contains(hints[0], "USE") {
		t.Errorf("Hints() = %q, want one hint mentioning USE", hints)
	}
}
