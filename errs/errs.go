// Package errs defines the error kinds surfaced by the simka pipeline.
package errs

import "github.com/pkg/errors"

// Kind identifies the class of error a Error wraps.
type Kind int

const (
	// Config marks inconsistent feature flags or bank counts between a
	// loaded StatisticsStore and the current run.
	Config Kind = iota
	// IO marks a failed read of a sidecar, partition output, or persisted
	// store.
	IO
	// InputFormat marks a sidecar file missing a required numeric line.
	InputFormat
)

func (k Kind) String() string {
	switch k {
	case Config:
		return "ConfigError"
	case IO:
		return "IoError"
	case InputFormat:
		return "InputFormatError"
	default:
		return "UnknownError"
	}
}

// Error is a kinded error, distinguishable via errors.Is against the
// exported sentinels below.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Msg + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for e's Kind, so callers can
// write errors.Is(err, errs.ErrConfig) etc.
func (e *Error) Is(target error) bool {
	sentinel, ok := target.(*Error)
	return ok && sentinel.Kind == e.Kind && sentinel.Msg == ""
}

// Sentinels usable with errors.Is(err, errs.ErrConfig).
var (
	ErrConfig      = &Error{Kind: Config}
	ErrIO          = &Error{Kind: IO}
	ErrInputFormat = &Error{Kind: InputFormat}
)

// New builds a new kinded error.
func New(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// FlagMismatch and SizeMismatch are the two ConfigError conditions Merge
// can raise, named distinctly since callers branch on which invariant
// broke. Built with github.com/pkg/errors, matching the rest of the
// pack's error-construction idiom rather than the stdlib errors package.
var (
	ErrFlagMismatch = errors.New("feature flag mismatch")
	ErrSizeMismatch = errors.New("bank count mismatch")
)
