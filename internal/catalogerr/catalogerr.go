// Package catalogerr defines the typed failures returned by the catalog store
// and session. Every failure carries a Kind so callers can branch on it with
// errors.Is against the Err* sentinels or with KindOf.
package catalogerr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind classifies a catalog failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNoDatabaseSelected
	KindNotFound
	KindAlreadyExists
	KindUnsupported
	KindStoreUnavailable
	KindConstraintViolation
)

func (k Kind) String() string {
	switch k {
	case KindNoDatabaseSelected:
		return "no database selected"
	case KindNotFound:
		return "not found"
	case KindAlreadyExists:
		return "already exists"
	case KindUnsupported:
		return "unsupported"
	case KindStoreUnavailable:
		return "store unavailable"
	case KindConstraintViolation:
		return "constraint violation"
	default:
		return "unknown"
	}
}

// Sentinels matched by errors.Is for each Kind.
var (
	ErrNoDatabaseSelected  = errors.New("no database selected")
	ErrNotFound            = errors.New("not found")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnsupported         = errors.New("unsupported")
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrConstraintViolation = errors.New("constraint violation")
)

var sentinels = map[Kind]error{
	KindNoDatabaseSelected:  ErrNoDatabaseSelected,
	KindNotFound:            ErrNotFound,
	KindAlreadyExists:       ErrAlreadyExists,
	KindUnsupported:         ErrUnsupported,
	KindStoreUnavailable:    ErrStoreUnavailable,
	KindConstraintViolation: ErrConstraintViolation,
}

// Error is a catalog failure. ObjectKind and Identifier name the object the
// failure is about ("table", "users"); both may be empty.
type Error struct {
	Kind       Kind
	ObjectKind string
	Identifier string
	Detail     string
	cause      error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindNoDatabaseSelected:
		msg = "no database selected"
	case KindNotFound, KindAlreadyExists:
		switch {
		case e.ObjectKind != "" && e.Identifier != "":
			msg = fmt.Sprintf("%s `%s` %s", e.ObjectKind, e.Identifier, e.Kind)
		case e.ObjectKind != "":
			msg = fmt.Sprintf("%s %s", e.ObjectKind, e.Kind)
		default:
			msg = e.Kind.String()
		}
	case KindUnsupported:
		msg = "unsupported " + e.Identifier
	default:
		msg = e.Kind.String()
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying driver or I/O error, if any.
func (e *Error) Unwrap() error { return e.cause }

// Is reports whether target is the sentinel for e's Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// NoDatabaseSelected is returned by statements that need a current database.
func NoDatabaseSelected() error {
	return errors.WithHint(
		errors.WithStack(&Error{Kind: KindNoDatabaseSelected}),
		"select a database with USE <name> or create one with CREATE DATABASE <name>",
	)
}

// NotFound reports a lookup miss for the named object.
func NotFound(objectKind, identifier string) error {
	return errors.WithStack(&Error{Kind: KindNotFound, ObjectKind: objectKind, Identifier: identifier})
}

// AlreadyExists reports a unique name collision.
func AlreadyExists(objectKind, identifier string) error {
	return errors.WithStack(&Error{Kind: KindAlreadyExists, ObjectKind: objectKind, Identifier: identifier})
}

// Unsupported reports a statement or operation the catalog does not handle.
func Unsupported(what string) error {
	return errors.WithStack(&Error{Kind: KindUnsupported, Identifier: what})
}

// ConstraintViolation reports an integrity rule rejected by the store.
func ConstraintViolation(detail string, cause error) error {
	return errors.WithStack(&Error{Kind: KindConstraintViolation, Detail: detail, cause: cause})
}

// StoreUnavailable wraps an I/O or connectivity fault of the backing store.
func StoreUnavailable(op string, cause error) error {
	return errors.WithStack(&Error{Kind: KindStoreUnavailable, Detail: op, cause: cause})
}

// KindOf returns the Kind of the first catalog Error in err's chain, or
// KindUnknown when err is not a catalog failure.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnknown
}

// Hints returns the user-facing hints attached anywhere in err's chain.
func Hints(err error) []string {
	return errors.GetAllHints(err)
}
