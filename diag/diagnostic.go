package diag

import (
	"iter"
	"slices"
	"strings"
)

// Severity classifies a collected [Diagnostic].
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}

	return "error"
}

// Diagnostic is a message collected while parsing or rendering a template.
type Diagnostic struct {
	Severity Severity
	File     string
	Pos      Position
	Message  string
}

// String formats d as "text(<line>,<column>) : error : <message>".
func (d Diagnostic) String() string {
	return format(d.File, d.Pos, d.Severity, d.Message)
}

// Diagnostics is an ordered list of collected messages.
type Diagnostics []Diagnostic

// HasErrors reports whether any message has error severity.
func (ds Diagnostics) HasErrors() bool {
	return slices.ContainsFunc(ds, func(d Diagnostic) bool {
		return d.Severity == SeverityError
	})
}

// Errors returns an iterator over the messages with error severity.
func (ds Diagnostics) Errors() iter.Seq[Diagnostic] {
	return func(yield func(Diagnostic) bool) {
		for _, d := range ds {
			if d.Severity == SeverityError && !yield(d) {
				return
			}
		}
	}
}

// String joins all messages with newlines.
func (ds Diagnostics) String() string {
	var sb strings.Builder

	for i, d := range ds {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(d.String())
	}

	return sb.String()
}
