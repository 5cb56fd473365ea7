package meal

import (
	"errors"
	"fmt"
)

// Kind classifies ledger failures.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotFound
	KindStore
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid argument"
	case KindNotFound:
		return "not found"
	case KindStore:
		return "store failure"
	case KindUnsupported:
		return "unsupported operation"
	default:
		return "unknown error"
	}
}

// Error is a ledger failure. Errors match each other by Kind, so
// errors.Is(err, ErrNotFound) holds for every not-found failure.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// Sentinels for errors.Is.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrStore           = &Error{Kind: KindStore}
	ErrUnsupported     = &Error{Kind: KindUnsupported}
)

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op == "" {
		return msg
	}
	return e.Op + ": " + msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func invalidf(op, format string, args ...any) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Err: fmt.Errorf(format, args...)}
}

func notFound(op, id string) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf("meal %s not found", id)}
}

// storeErr wraps a persistence failure unless it already carries a Kind.
func storeErr(op string, err error) error {
	if KindOf(err) != KindUnknown {
		return err
	}
	return &Error{Kind: KindStore, Op: op, Err: err}
}
