package pkg

import (
	"fmt"
	"slices"
	"strings"
)

// Error represents a chain of errors, innermost first.
type Error []error

// Sentinel errors shared by the command-line packages.
// Test for them with errors.Is.
var (
	// ErrReadInput is returned when a template or data source cannot be read.
	ErrReadInput = MakeErrorf("failed to read input")

	// ErrDecodeData is returned when a data file is not valid YAML or JSON.
	ErrDecodeData = MakeErrorf("failed to decode data")

	// ErrInvalidFormat is returned when an unknown output format is requested.
	ErrInvalidFormat = MakeErrorf("invalid format")

	// ErrConfigDir is returned when the configuration directory cannot be
	// created.
	ErrConfigDir = MakeErrorf("failed to create configuration directory")
)

// MakeError constructs an Error from the given errors.
// The first argument is the innermost error in the chain.
// Nil errors are skipped.
func MakeError(errs ...error) Error {
	var e Error

	for _, err := range errs {
		if err != nil {
			e = append(e, UnwrapErrors(err)...)
		}
	}

	return e
}

// MakeErrorf constructs an Error from a formatted error message.
func MakeErrorf(format string, args ...any) Error {
	return MakeError(fmt.Errorf(format, args...))
}

// Error joins the chain from outermost to innermost with ": ".
func (e Error) Error() string {
	var sb strings.Builder

	for i := len(e) - 1; i >= 0; i-- {
		sb.WriteString(e[i].Error())

		if i > 0 {
			sb.WriteString(": ")
		}
	}

	return sb.String()
}

// Wrap returns a copy of e with err appended as the new outermost cause.
// Wrapping a sentinel therefore reads "<sentinel>: <cause>".
func (e Error) Wrap(err ...error) Error {
	out := make(Error, 0, len(e)+len(err))
	out = append(out, err...)

	return append(out, e...)
}

// Wrapf wraps a formatted error.
func (e Error) Wrapf(format string, args ...any) Error {
	return e.Wrap(fmt.Errorf(format, args...))
}

// Is reports whether every error of target appears in e, so a wrapped
// sentinel still matches the sentinel.
func (e Error) Is(target error) bool {
	t, ok := target.(Error)
	if !ok || len(t) == 0 {
		return false
	}

	for _, te := range t {
		if !slices.ContainsFunc(e, func(x error) bool { return x == te }) {
			return false
		}
	}

	return true
}

// Unwrap returns the errors contained in the chain.
func (e Error) Unwrap() []error { return e }

// UnwrapErrors recursively unwraps err and returns every error in its chain,
// innermost first.
func UnwrapErrors(err error) Error {
	if err == nil {
		return nil
	}

	chain := Error{}

	switch e := err.(type) {
	case interface{ Unwrap() []error }:
		for _, wrapped := range e.Unwrap() {
			chain = append(chain, UnwrapErrors(wrapped)...)
		}
	case interface{ Unwrap() error }:
		chain = append(chain, UnwrapErrors(e.Unwrap())...)
	}

	return append(chain, err)
}
