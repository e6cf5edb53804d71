// Package xerr tags transfer failures with a kind so callers can tell a typo
// in a source path from a broken connection without string matching.
package xerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindSourceNotFound: a local source path does not exist.
	KindSourceNotFound
	// KindIO: local read, write or directory listing failed.
	KindIO
	// KindTransport: connection, authentication, channel or storage request failed.
	KindTransport
	// KindConfigFormat: a destination or config payload could not be parsed.
	KindConfigFormat
	// KindInvalidInput: the request is well formed but cannot be honoured,
	// e.g. two sources mapping onto the same remote path.
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindSourceNotFound:
		return "source not found"
	case KindIO:
		return "io failure"
	case KindTransport:
		return "transport failure"
	case KindConfigFormat:
		return "config format error"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown error"
	}
}

// Error carries the kind, the operation that failed and the path involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New wraps err with a kind. A nil err is allowed for failures detected
// locally, such as a missing source.
func New(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// Errorf builds a kinded error from a format string.
func Errorf(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
