package repl

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"

	"github.com/ardnew/stencil/call"
)

var (
	signatureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	signatureNameStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("6")).
				Bold(true)
	currentParamStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("11")).
				Bold(true)
)

// functionCall is a function call surrounding the cursor.
type functionCall struct {
	name     string // qualified function name, e.g. "string.slice"
	argIndex int    // 0-based index of the argument under the cursor
	inCall   bool
}

// detectFunctionCall finds the call whose argument list contains cursor.
// Both call forms are recognized: f(a, b) and the command form f a b,
// where a piped value counts as the first argument.
func detectFunctionCall(input string, cursor int) functionCall {
	prefix := input[:min(cursor, len(input))]

	if fc, open := parenCall(prefix); open {
		return fc
	}

	return commandCall(prefix)
}

func isNameRune(r rune) bool {
	return r == '.' || r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// parenCall scans back from the end of prefix for an unclosed '('. open
// reports whether one was found, even when it only groups an expression.
func parenCall(prefix string) (fc functionCall, open bool) {
	depth, commas := 0, 0

	for i := len(prefix); i > 0; {
		r, size := utf8.DecodeLastRuneInString(prefix[:i])
		i -= size

		switch r {
		case ')', ']':
			depth++
		case '[':
			depth--
		case ',':
			if depth == 0 {
				commas++
			}
		case '(':
			if depth > 0 {
				depth--

				continue
			}

			start := i
			for start > 0 {
				r, size := utf8.DecodeLastRuneInString(prefix[:start])
				if !isNameRune(r) {
					break
				}

				start -= size
			}

			name := prefix[start:i]
			if name == "" {
				return functionCall{}, true
			}

			return functionCall{name: name, argIndex: commas, inCall: true}, true
		}
	}

	return functionCall{}, false
}

// commandCall recognizes the command form at the start of a statement or
// after a pipe.
func commandCall(prefix string) functionCall {
	start := strings.LastIndexAny(prefix, "|;\n")
	piped := start >= 0 && prefix[start] == '|'
	segment := prefix[start+1:]

	fields := strings.Fields(segment)
	if len(fields) == 0 {
		return functionCall{}
	}

	name := fields[0]
	if strings.IndexFunc(name, func(r rune) bool { return !isNameRune(r) }) >= 0 {
		return functionCall{}
	}

	trailing := strings.TrimRightFunc(segment, unicode.IsSpace) != segment
	if len(fields) == 1 && !trailing {
		// Still typing the name.
		return functionCall{}
	}

	args := 0

	for _, f := range fields[1:] {
		if !strings.HasSuffix(f, ":") {
			args++
		}
	}

	if !trailing && args > 0 {
		args--
	}

	if piped {
		args++
	}

	return functionCall{name: name, argIndex: args, inCall: true}
}

// paramLabels returns the display label of each parameter of fn.
func paramLabels(fn call.Callable) []string {
	labels := make([]string, 0, fn.ParameterCount())

	for i := range fn.ParameterCount() {
		p, err := fn.ParameterInfo(i)
		if err != nil {
			break
		}

		switch {
		case p.Spread:
			labels = append(labels, p.Name+"...")
		case p.HasDefault:
			labels = append(labels, p.Name+"?")
		default:
			labels = append(labels, p.Name)
		}
	}

	return labels
}

// renderSignatureHint renders fn's signature with the parameter at argIdx
// highlighted. A spread parameter stays highlighted for every later index.
func renderSignatureHint(fn call.Callable, argIdx int) string {
	labels := paramLabels(fn)

	var b strings.Builder

	b.WriteString(signatureNameStyle.Render(fn.Name()))
	b.WriteString(signatureStyle.Render("("))

	for i, label := range labels {
		if i > 0 {
			b.WriteString(signatureStyle.Render(", "))
		}

		spread := strings.HasSuffix(label, "...")
		if argIdx == i || (spread && argIdx > i) {
			b.WriteString(currentParamStyle.Render(label))
		} else {
			b.WriteString(signatureStyle.Render(label))
		}
	}

	b.WriteString(signatureStyle.Render(")"))

	return b.String()
}
