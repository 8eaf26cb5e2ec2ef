package lib

import (
	"context"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

// Comparison selects how string.index_of matches text.
type Comparison int

const (
	Ordinal Comparison = iota
	OrdinalIgnoreCase
	CurrentCulture
	CurrentCultureIgnoreCase
	InvariantCulture
	InvariantCultureIgnoreCase
)

var comparisonName = [...]string{
	Ordinal:                    "Ordinal",
	OrdinalIgnoreCase:          "OrdinalIgnoreCase",
	CurrentCulture:             "CurrentCulture",
	CurrentCultureIgnoreCase:   "CurrentCultureIgnoreCase",
	InvariantCulture:           "InvariantCulture",
	InvariantCultureIgnoreCase: "InvariantCultureIgnoreCase",
}

func (c Comparison) String() string {
	if c < 0 || int(c) >= len(comparisonName) {
		return "Comparison(?)"
	}

	return comparisonName[c]
}

// ParseComparison returns the mode named s, ignoring case.
func ParseComparison(s string) (Comparison, error) {
	for c, name := range comparisonName {
		if strings.EqualFold(s, name) {
			return Comparison(c), nil
		}
	}

	return Ordinal, diag.Errorf(diag.KindArgumentRange,
		"The string comparison type `%s` is not supported", s)
}

func stringNamespace(cfg *config) *Namespace {
	return newNamespace("string",
		call.Define("string.append", stringAppend,
			call.Required("text"), call.Required("with")),
		call.Define("string.capitalize", cfg.stringCapitalize,
			call.Required("text")),
		call.Define("string.contains", stringContains,
			call.Required("text"), call.Required("value")),
		call.Define("string.downcase", cfg.stringDowncase,
			call.Required("text")),
		call.Define("string.ends_with", stringEndsWith,
			call.Required("text"), call.Required("value")),
		call.Define("string.index_of", cfg.stringIndexOf,
			call.Required("text"), call.Required("search"),
			call.Optional("start_index", nil), call.Optional("count", nil),
			call.Optional("string_comparison", nil)),
		call.Define("string.prepend", stringPrepend,
			call.Required("text"), call.Required("by")),
		call.Define("string.replace", stringReplace,
			call.Required("text"), call.Required("match"), call.Required("replace")),
		call.Define("string.replace_first", stringReplaceFirst,
			call.Required("text"), call.Required("match"), call.Required("replace"),
			call.Optional("fromend", false)),
		call.Define("string.size", stringSize,
			call.Required("text")),
		call.Define("string.slice", stringSlice,
			call.Required("text"), call.Required("start"), call.Optional("length", nil)),
		call.Define("string.slice1", stringSlice,
			call.Required("text"), call.Required("start"), call.Optional("length", 1)),
		call.Define("string.split", stringSplit,
			call.Required("text"), call.Required("match")),
		call.Define("string.starts_with", stringStartsWith,
			call.Required("text"), call.Required("value")),
		call.Define("string.strip", stringStrip,
			call.Required("text")),
		call.Define("string.upcase", cfg.stringUpcase,
			call.Required("text")),
	)
}

// texts converts the first n arguments to strings.
func texts(a call.Args, n int) ([]string, error) {
	out := make([]string, n)

	for i := range out {
		s, err := text(a, i)
		if err != nil {
			return nil, err
		}

		out[i] = s
	}

	return out, nil
}

func stringSlice(_ context.Context, a call.Args) (string, error) {
	s, err := text(a, 0)
	if err != nil {
		return "", err
	}

	start, err := argAs[int](a, 1)
	if err != nil {
		return "", err
	}

	r := []rune(s)

	if start < 0 {
		start += len(r)
	}

	start = max(0, min(start, len(r)))

	n, ok, err := optInt(a, 2)
	if err != nil {
		return "", err
	}

	if !ok {
		return string(r[start:]), nil
	}

	n = max(0, min(n, len(r)-start))

	return string(r[start : start+n]), nil
}

func (c *config) stringIndexOf(_ context.Context, a call.Args) (int, error) {
	t, err := texts(a, 2)
	if err != nil {
		return 0, err
	}

	r := []rune(t[0])

	start, ok, err := optInt(a, 2)
	if err != nil {
		return 0, err
	}

	if !ok {
		start = 0
	}

	if start < 0 || start > len(r) {
		return 0, diag.Errorf(diag.KindArgumentRange,
			"`start_index` %d must be between 0 and the text length %d", start, len(r))
	}

	count, ok, err := optInt(a, 3)
	if err != nil {
		return 0, err
	}

	if !ok {
		count = len(r) - start
	}

	if count < 0 || start+count > len(r) {
		return 0, diag.Errorf(diag.KindArgumentRange,
			"`count` %d must be between 0 and the remaining text length %d",
			count, len(r)-start)
	}

	mode := Ordinal

	if v := a.At(4); v != nil {
		switch x := v.(type) {
		case Comparison:
			mode = x
		default:
			name, err := argAs[string](a, 4)
			if err != nil {
				return 0, err
			}

			if mode, err = ParseComparison(name); err != nil {
				return 0, err
			}
		}
	}

	return c.indexOf(r[start:start+count], t[1], mode, start), nil
}

// indexOf returns offset plus the rune index of search in window, or -1.
func (c *config) indexOf(window []rune, search string, mode Comparison, offset int) int {
	n := utf8.RuneCountInString(search)
	if n == 0 {
		return offset
	}

	var eq func(string) bool

	switch mode {
	case OrdinalIgnoreCase:
		eq = func(s string) bool { return strings.EqualFold(s, search) }

	case CurrentCulture, CurrentCultureIgnoreCase,
		InvariantCulture, InvariantCultureIgnoreCase:
		tag := c.lang
		if mode == InvariantCulture || mode == InvariantCultureIgnoreCase {
			tag = language.Und
		}

		var opts []collate.Option
		if mode == CurrentCultureIgnoreCase || mode == InvariantCultureIgnoreCase {
			opts = append(opts, collate.IgnoreCase)
		}

		coll := collate.New(tag, opts...)
		eq = func(s string) bool { return coll.CompareString(s, search) == 0 }

	default:
		eq = func(s string) bool { return s == search }
	}

	for i := 0; i+n <= len(window); i++ {
		if eq(string(window[i : i+n])) {
			return offset + i
		}
	}

	return -1
}

func stringReplaceFirst(_ context.Context, a call.Args) (string, error) {
	t, err := texts(a, 3)
	if err != nil {
		return "", err
	}

	fromEnd, err := argAs[bool](a, 3)
	if err != nil {
		return "", err
	}

	s, match, repl := t[0], t[1], t[2]
	if match == "" {
		return s, nil
	}

	i := strings.Index(s, match)
	if fromEnd {
		i = strings.LastIndex(s, match)
	}

	if i < 0 {
		return s, nil
	}

	return s[:i] + repl + s[i+len(match):], nil
}

func stringReplace(_ context.Context, a call.Args) (string, error) {
	t, err := texts(a, 3)
	if err != nil {
		return "", err
	}

	if t[1] == "" {
		return t[0], nil
	}

	return strings.ReplaceAll(t[0], t[1], t[2]), nil
}

func (c *config) stringUpcase(_ context.Context, a call.Args) (string, error) {
	s, err := text(a, 0)

	return cases.Upper(c.lang).String(s), err
}

func (c *config) stringDowncase(_ context.Context, a call.Args) (string, error) {
	s, err := text(a, 0)

	return cases.Lower(c.lang).String(s), err
}

func (c *config) stringCapitalize(_ context.Context, a call.Args) (string, error) {
	s, err := text(a, 0)
	if err != nil || s == "" {
		return s, err
	}

	_, n := utf8.DecodeRuneInString(s)

	return cases.Upper(c.lang).String(s[:n]) + s[n:], nil
}

func stringSize(_ context.Context, a call.Args) (int, error) {
	s, err := text(a, 0)

	return utf8.RuneCountInString(s), err
}

func stringContains(_ context.Context, a call.Args) (bool, error) {
	t, err := texts(a, 2)
	if err != nil {
		return false, err
	}

	return strings.Contains(t[0], t[1]), nil
}

func stringStartsWith(_ context.Context, a call.Args) (bool, error) {
	t, err := texts(a, 2)
	if err != nil {
		return false, err
	}

	return strings.HasPrefix(t[0], t[1]), nil
}

func stringEndsWith(_ context.Context, a call.Args) (bool, error) {
	t, err := texts(a, 2)
	if err != nil {
		return false, err
	}

	return strings.HasSuffix(t[0], t[1]), nil
}

func stringSplit(_ context.Context, a call.Args) ([]any, error) {
	t, err := texts(a, 2)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(t[0], t[1])
	out := make([]any, 0, len(parts))

	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}

	return out, nil
}

func stringStrip(_ context.Context, a call.Args) (string, error) {
	s, err := text(a, 0)

	return strings.TrimSpace(s), err
}

func stringAppend(_ context.Context, a call.Args) (string, error) {
	t, err := texts(a, 2)
	if err != nil {
		return "", err
	}

	return t[0] + t[1], nil
}

func stringPrepend(_ context.Context, a call.Args) (string, error) {
	t, err := texts(a, 2)
	if err != nil {
		return "", err
	}

	return t[1] + t[0], nil
}
