package repl

import (
	"maps"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/lang"
)

// ctrlCommands are the available control-mode commands.
var ctrlCommands = []string{"help", "funcs", "vars", "edit", "clear", "quit"}

// catalog indexes the names an engine makes visible to templates.
type catalog struct {
	top     []string                 // namespaces, global functions, keywords
	members map[string][]string      // namespace name -> function names
	funcs   map[string]call.Callable // qualified name -> function
}

func newCatalog(e *lang.Engine) catalog {
	c := catalog{
		members: make(map[string][]string),
		funcs:   make(map[string]call.Callable),
	}

	for _, fn := range e.Functions() {
		c.top = append(c.top, fn.Name())
		c.funcs[fn.Name()] = fn
	}

	for _, ns := range e.Namespaces() {
		c.top = append(c.top, ns.Name())

		for name, fn := range ns.All() {
			c.members[ns.Name()] = append(c.members[ns.Name()], name)
			c.funcs[fn.Name()] = fn
		}
	}

	c.top = append(c.top, lang.Keywords()...)

	return c
}

// candidates returns the completions for a word following parent. vars are
// the session variable names, offered at the top level only.
func (c catalog) candidates(parent string, vars []string) []string {
	if parent == "" {
		return append(slices.Clone(c.top), vars...)
	}

	return c.members[parent]
}

// isCallable reports whether name, qualified by parent, is a function.
func (c catalog) isCallable(parent, name string) bool {
	if parent != "" {
		name = parent + "." + name
	}

	_, ok := c.funcs[name]

	return ok
}

// isWordBoundary reports whether r delimits a completion word: whitespace,
// the member-access dot, and template operators and punctuation.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%',
		'<', '>', '=', '!',
		'&', '|', ',', ':', ';', '"', '\'':
		return true
	}

	return false
}

// wordBounds returns the word at cursor and its byte offsets in input. The
// word is empty when the cursor sits on a boundary.
func wordBounds(input string, cursor int) (word string, start, end int) {
	cursor = min(cursor, len(input))

	start = cursor
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor
	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	return input[start:end], start, end
}

// parentPath returns the member-access chain leading to the word at
// wordStart: "string" for "x | string.up". It is empty for a top-level
// word.
func parentPath(input string, wordStart int) string {
	if wordStart == 0 || input[wordStart-1] != '.' {
		return ""
	}

	prefix := input[:wordStart-1]
	pos := len(prefix)

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r != '.' && isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return prefix[pos:]
}

// computeMatches ranks the candidates for the word at the cursor, best
// first. An empty word at the top level has no matches so the hint line
// stays visible; after a dot every member matches.
func (m model) computeMatches() (matches fuzzy.Matches, wordStart, wordEnd int) {
	input := m.input.Value()

	word, wordStart, wordEnd := wordBounds(input, m.input.Position())

	var candidates []string

	parent := ""

	if m.mode == modeCtrl {
		candidates = ctrlCommands
	} else {
		parent = parentPath(input, wordStart)
		candidates = m.catalog.candidates(parent, m.varNames())
	}

	if len(candidates) == 0 || (word == "" && parent == "") {
		return nil, wordStart, wordEnd
	}

	if word == "" {
		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, wordStart, wordEnd
	}

	return fuzzy.Find(word, candidates), wordStart, wordEnd
}

// varNames returns the session variable names, sorted.
func (m model) varNames() []string {
	return slices.Sorted(maps.Keys(m.session.Vars()))
}

// renderCandidateBar builds the single-line completion bar, ellipsized to
// fit width. Matched characters are highlighted; the selected candidate
// (when tabbing) uses the selected style.
func (m model) renderCandidateBar() string {
	if len(m.matches) == 0 || m.width <= 0 {
		return ""
	}

	const sep = "  "

	parent := ""
	if m.mode == modeEval {
		parent = parentPath(m.input.Value(), m.wordStart)
	}

	ellipsis := hintStyle.Render("...")
	budget := m.width - lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range m.matches {
		rendered := renderCandidate(match,
			m.tabActive && i == m.suggIdx,
			m.catalog.isCallable(parent, match.Str))

		w := lipgloss.Width(rendered)
		if i > 0 {
			w += len(sep)
		}

		if i > 0 && i < len(m.matches)-1 && used+w > budget {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += w
	}

	return b.String()
}

// renderCandidate renders one candidate with its matched characters
// highlighted. Functions get a "()" suffix that is not inserted on
// completion.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	base, highlight := suggestionStyle, matchStyle
	if selected {
		base, highlight = selectedStyle, selectedMatchStyle
	}

	matched := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matched[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		if matched[i] {
			b.WriteString(highlight.Render(string(r)))
		} else {
			b.WriteString(base.Render(string(r)))
		}
	}

	if callable {
		b.WriteString(base.Render("()"))
	}

	return b.String()
}
