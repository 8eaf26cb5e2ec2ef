package cmd

import (
	"log/slog"
	"strings"
)

// Error represents a CLI command error with structured logging support.
type Error struct {
	msg   string
	err   error
	attrs []slog.Attr
}

func NewError(msg string) *Error {
	return &Error{msg: msg}
}

// Error formats e as "<msg>: <err>", omitting whichever part is empty.
func (e *Error) Error() string {
	part := make([]string, 0, 2)

	if e.msg != "" {
		part = append(part, e.msg)
	}

	if e.err != nil {
		part = append(part, e.err.Error())
	}

	return strings.Join(part, ": ")
}

func (e *Error) Unwrap() error { return e.err }

// Is matches e against the sentinel it was derived from.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)

	return ok && t.err == nil && t.msg == e.msg
}

func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, len(e.attrs)+2)

	if e.msg != "" {
		attrs = append(attrs, slog.String("error", e.msg))
	}

	if e.err != nil {
		attrs = append(attrs, slog.Any("cause", e.err))
	}

	return slog.GroupValue(append(attrs, e.attrs...)...)
}

// Wrap returns a copy of e caused by err.
func (e *Error) Wrap(err error) *Error {
	return &Error{
		msg:   e.msg,
		err:   err,
		attrs: e.attrs,
	}
}

// With returns a copy of e with attrs appended.
func (e *Error) With(attrs ...slog.Attr) *Error {
	newAttrs := make([]slog.Attr, len(e.attrs)+len(attrs))
	copy(newAttrs, e.attrs)
	copy(newAttrs[len(e.attrs):], attrs)

	return &Error{
		msg:   e.msg,
		err:   e.err,
		attrs: newAttrs,
	}
}

var (
	ErrJSONMarshal = NewError("marshal JSON")
	ErrYAMLMarshal = NewError("marshal YAML")
	ErrWriteConfig = NewError("write configuration file")
	ErrFileExists  = NewError("file exists (use --force to overwrite)")
	ErrTemplate    = NewError("template has errors")
	ErrRender      = NewError("render failed")
	ErrNoTerminal  = NewError("interactive session requires a terminal")
)
