package diag

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// Kind classifies an [Error].
type Kind int

const (
	KindUnknown Kind = iota
	KindArity
	KindBinding
	KindArgumentRange
	KindTypeCoercion
	KindRuntimeInvocation
	KindIndex
	KindParse
)

var kindName = [...]string{
	KindUnknown:           "error",
	KindArity:             "arity",
	KindBinding:           "binding",
	KindArgumentRange:     "argument range",
	KindTypeCoercion:      "type coercion",
	KindRuntimeInvocation: "runtime invocation",
	KindIndex:             "index",
	KindParse:             "parse",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindName) {
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}

	return kindName[k]
}

// Sentinel errors, one per kind. Compare with [errors.Is].
var (
	ErrArity             = NewError(KindArity, "")
	ErrBinding           = NewError(KindBinding, "")
	ErrArgumentRange     = NewError(KindArgumentRange, "")
	ErrTypeCoercion      = NewError(KindTypeCoercion, "")
	ErrRuntimeInvocation = NewError(KindRuntimeInvocation, "")
	ErrIndex             = NewError(KindIndex, "")
	ErrParse             = NewError(KindParse, "")
)

// Error is a classified error with an optional source position and
// attributes for structured logging.
// It implements both error and slog.LogValuer interfaces.
type Error struct {
	kind  Kind
	msg   string
	err   error
	file  string
	pos   Position
	attrs []slog.Attr
}

// NewError creates a new Error of the given kind.
func NewError(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Errorf creates a new Error of the given kind with a formatted message.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// ArityMismatch reports a call to name with actual arguments where expected
// were required.
func ArityMismatch(name string, actual, expected int) *Error {
	return Errorf(KindArity,
		"Invalid number of arguments `%d` passed to `%s` while expecting `%d` arguments",
		actual, name, expected,
	).With(
		slog.String("callable", name),
		slog.Int("actual", actual),
		slog.Int("expected", expected),
	)
}

// WrapError converts err into an Error. An err that already is (or wraps) an
// Error is returned as that Error; anything else becomes a runtime
// invocation fault.
func WrapError(err error) *Error {
	if err == nil {
		return nil
	}

	var ee *Error
	if errors.As(err, &ee) {
		return ee
	}

	return &Error{kind: KindRuntimeInvocation, err: err}
}

// Kind returns the classification of e.
func (e *Error) Kind() Kind { return e.kind }

// Message returns the error text without position information.
func (e *Error) Message() string {
	// Build error message using the first available format,
	// depending on which fields are set:
	//
	//   1. "<msg>: <err>" // base and wrapped error both set
	//   2. "<msg>"        // wrapped error is nil
	//   3. "<err>"        // base error message is empty
	//   4. "<kind>"       // no fields are set
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		var inner *Error
		if errors.As(e.err, &inner) {
			part = append(part, inner.Message())
		} else {
			part = append(part, e.err.Error())
		}
	}

	if len(part) == 0 {
		return e.kind.String() + " error"
	}

	return strings.Join(part, ": ")
}

// Error implements the error interface.
func (e *Error) Error() string {
	if !e.pos.IsValid() {
		return e.Message()
	}

	return format(e.file, e.pos, SeverityError, e.Message())
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error { return e.err }

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	if t == e {
		return true
	}

	return t.msg == "" && t.err == nil && t.kind == e.kind
}

// LogValue implements slog.LogValuer.
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+4)

	attrs = append(attrs, slog.String("kind", e.kind.String()))

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.String("cause", e.err.Error()))
	}

	if e.pos.IsValid() {
		attrs = append(attrs, slog.String("pos", e.pos.String()))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap creates a new Error of the same kind wrapping another error.
func (e *Error) Wrap(err error) *Error {
	c := *e
	c.err = err

	return &c
}

// With adds attributes to the error for structured logging.
// This creates a new Error instance to maintain immutability.
func (e *Error) With(attrs ...slog.Attr) *Error {
	c := *e
	c.attrs = make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(c.attrs, e.attrs)
	copy(c.attrs[len(e.attrs):], attrs)

	return &c
}

// At returns a copy of e reported at pos in file.
// An Error that already carries a position is returned unchanged.
func (e *Error) At(file string, pos Position) *Error {
	if e.pos.IsValid() {
		return e
	}

	c := *e
	c.file = file
	c.pos = pos

	return &c
}

// Position returns the file name and source position of e.
// The position is invalid when e was never located.
func (e *Error) Position() (string, Position) {
	if e.file == "" {
		return DefaultFile, e.pos
	}

	return e.file, e.pos
}

// Diagnostic converts e into a collected message.
func (e *Error) Diagnostic() Diagnostic {
	file, pos := e.Position()

	return Diagnostic{
		Severity: SeverityError,
		File:     file,
		Pos:      pos,
		Message:  e.Message(),
	}
}

// Locate positions err at pos, converting it into an Error if needed.
func Locate(err error, file string, pos Position) *Error {
	if err == nil {
		return nil
	}

	return WrapError(err).At(file, pos)
}
