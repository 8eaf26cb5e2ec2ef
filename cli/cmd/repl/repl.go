package repl

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// editDoneMsg is sent when the editor exits normally.
type editDoneMsg struct{ source string }

// editErrorMsg is sent when the editor could not be run.
type editErrorMsg struct{ err error }

const (
	evalPrompt = "➜ "
	ctrlPrompt = " :"
)

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  help            Print this cruft
  funcs [filter]  List functions, fuzzy-filtered
  vars            List session variables
  edit            Edit and render a multi-line template in $EDITOR
  clear           Clear screen
  quit            Exit REPL

Usage:
  Type template code to evaluate it, e.g. "name = 'x' | string.upcase"
  Lines containing {{ are rendered as templates
  Assignments persist for the rest of the session
  Press Tab / Shift-Tab to cycle through completions
  Use Up/Down for history; Shift+Up/Shift+Down stay in the current mode
  Press Ctrl+C on empty line or Ctrl+D to exit
`
}

// inputMode represents the current input mode.
type inputMode int

const (
	modeEval inputMode = iota
	modeCtrl
)

// Styles.
var (
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("6")).
			Bold(true)
	ctrlPromptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("5")).
			Bold(true)
	inputStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	resultStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	hintStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	suggestionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	matchStyle      = lipgloss.NewStyle().
			Foreground(lipgloss.Color("4")).
			Bold(true)
	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4"))
	selectedMatchStyle = selectedStyle.Bold(true)
)

var prompts = map[inputMode]struct {
	text  string
	style lipgloss.Style
}{
	modeEval: {evalPrompt, promptStyle},
	modeCtrl: {ctrlPrompt, ctrlPromptStyle},
}

// echo formats a submitted line with its prompt.
func echo(mode inputMode, input string) string {
	p := prompts[mode]

	return p.style.Render(p.text) + inputStyle.Render(input)
}

// model is the Bubble Tea model for the REPL.
type model struct {
	ctxFunc      func() context.Context
	input        textinput.Model
	session      *lang.Context
	catalog      catalog
	logger       log.Logger
	history      *History
	historyIdx   int
	matches      fuzzy.Matches // current fuzzy match results
	wordStart    int           // byte offset of current word start
	wordEnd      int           // byte offset of current word end
	suggIdx      int           // selected candidate index
	tabActive    bool          // whether user is tab-cycling
	preTabText   string        // input text before tab-cycling began
	preTabCursor int           // cursor position before tab-cycling began
	width        int           // terminal width for ellipsization
	quitting     bool
	mode         inputMode
	saved        map[inputMode]savedInput // input of the inactive mode
	draft        string                   // last template opened in the editor
}

type savedInput struct {
	text   string
	cursor int
}

// Run starts an interactive session rendering with e. data, when not nil,
// is the global object. History is kept under cacheDir; an empty cacheDir
// keeps it in memory.
func Run(
	ctx context.Context,
	e *lang.Engine,
	data map[string]any,
	cacheDir string,
	logger log.Logger,
) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	session := e.NewContext()
	if data != nil {
		session.PushGlobal(data)
	}

	var history *History
	if cacheDir == "" {
		history = NewHistory("")
	} else {
		history = NewHistory(filepath.Join(cacheDir, baseHistory))
	}

	if err := history.Load(); err != nil {
		logger.WarnContext(ctx, "repl history unavailable", slog.Any("error", err))
	}

	logger.TraceContext(ctx, "repl start",
		slog.String("cache_dir", cacheDir),
		slog.Int("history", history.Len()),
		slog.Bool("has_data", data != nil),
	)

	p := tea.NewProgram(newModel(ctx, e, session, history, logger), tea.WithContext(ctx))
	_, err = p.Run()

	return err
}

const defaultWidth = 80

func newModel(
	ctx context.Context,
	e *lang.Engine,
	session *lang.Context,
	history *History,
	logger log.Logger,
) model {
	ti := textinput.New()
	ti.Prompt = promptStyle.Render(evalPrompt)
	ti.Focus()
	ti.CharLimit = 1024
	ti.Width = defaultWidth

	return model{
		ctxFunc:    func() context.Context { return ctx },
		input:      ti,
		session:    session,
		catalog:    newCatalog(e),
		logger:     logger,
		history:    history,
		historyIdx: history.Len(),
		suggIdx:    -1,
		width:      defaultWidth,
		mode:       modeEval,
		saved:      make(map[inputMode]savedInput),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - len(evalPrompt) - 2

		return m, nil

	case editDoneMsg:
		if strings.TrimSpace(msg.source) == "" {
			return m, tea.Println(hintStyle.Render("edit cancelled"))
		}

		m.draft = msg.source

		return m, m.printResult(m.evaluate(msg.source))

	case editErrorMsg:
		return m, tea.Println(errorStyle.Render("error: " + msg.err.Error()))
	}

	var cmd tea.Cmd

	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.hintLine())
	b.WriteString("\n")

	return b.String()
}

// hintLine returns the line shown below the input: the history position,
// a usage hint, the signature of the enclosing call, or the completions.
func (m model) hintLine() string {
	input := m.input.Value()

	if m.historyIdx < m.history.Len() {
		return hintStyle.Render(fmt.Sprintf("%s/%d",
			lipgloss.NewStyle().Bold(true).Render(strconv.Itoa(m.historyIdx+1)),
			m.history.Len()))
	}

	if strings.TrimSpace(input) == "" {
		if m.mode == modeEval {
			return hintStyle.Render("Type template code or press Esc for commands")
		}

		return hintStyle.Render("Type: " + strings.Join(ctrlCommands, ", ") +
			" (press Esc to return)")
	}

	if m.mode == modeEval && !m.tabActive {
		fc := detectFunctionCall(input, m.input.Position())
		if fn, ok := m.catalog.funcs[fc.name]; ok && fc.inCall {
			return renderSignatureHint(fn, fc.argIndex)
		}
	}

	return m.renderCandidateBar()
}

func (m model) handleKey(msg tea.KeyMsg) (model, tea.Cmd) {
	m.logger.TraceContext(m.ctxFunc(), "repl keypress",
		slog.String("key", msg.String()),
	)

	switch msg.Type {
	case tea.KeyCtrlC:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		m.input.SetValue("")
		m.tabActive = false
		m.historyIdx = m.history.Len()
		m.refreshMatches(false)

		return m, nil

	case tea.KeyCtrlD:
		if m.input.Value() == "" {
			m.quitting = true

			return m, tea.Quit
		}

		return m, nil

	case tea.KeyEnter:
		if m.tabActive && len(m.matches) > 0 {
			// Lock in the current candidate without executing.
			m.tabActive = false
			m.refreshMatches(true)

			return m, nil
		}

		return m.executeInput()

	case tea.KeyTab:
		return m.cycle(1), nil

	case tea.KeyShiftTab:
		return m.cycle(-1), nil

	case tea.KeyUp:
		return m.historyStep(-1, false), nil

	case tea.KeyDown:
		return m.historyStep(1, false), nil

	case tea.KeyShiftUp:
		return m.historyStep(-1, true), nil

	case tea.KeyShiftDown:
		return m.historyStep(1, true), nil

	case tea.KeyEsc:
		if m.tabActive {
			m.tabActive = false
			m.input.SetValue(m.preTabText)
			m.input.SetCursor(m.preTabCursor)
			m.refreshMatches(false)

			return m, nil
		}

		if m.mode == modeEval {
			return m.switchToMode(modeCtrl), nil
		}

		return m.switchToMode(modeEval), nil
	}

	// Typing accepts the tab candidate; a space also ends cycling.
	autoConfirm := msg.Type == tea.KeyRunes
	if !autoConfirm || msg.String() == " " {
		m.tabActive = false
	}

	var cmd tea.Cmd

	m.historyIdx = m.history.Len()
	m.input, cmd = m.input.Update(msg)
	m.refreshMatches(autoConfirm)

	return m, cmd
}

// cycle moves the tab selection by step, wrapping around. A single
// candidate is completed and confirmed immediately.
func (m model) cycle(step int) model {
	n := len(m.matches)
	if n == 0 {
		return m
	}

	if n == 1 {
		m.replaceCurrentWord(m.matches[0].Str)
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil

		return m
	}

	if m.tabActive {
		m.suggIdx = (m.suggIdx + step + n) % n
	} else {
		m.tabActive = true
		m.preTabText = m.input.Value()
		m.preTabCursor = m.input.Position()

		m.suggIdx = 0
		if step < 0 {
			m.suggIdx = n - 1
		}
	}

	m.replaceCurrentWord(m.matches[m.suggIdx].Str)

	return m
}

// replaceCurrentWord replaces the current word with replacement and moves
// the cursor past it.
func (m *model) replaceCurrentWord(replacement string) {
	input := m.input.Value()
	cursor := m.wordStart + len(replacement)

	m.input.SetValue(input[:m.wordStart] + replacement + input[m.wordEnd:])
	m.input.SetCursor(cursor)

	m.wordEnd = cursor
}

// refreshMatches recomputes the completions. With autoConfirm, a sole
// candidate equal to the typed word is accepted, so deletions and cursor
// moves never complete unexpectedly.
func (m *model) refreshMatches(autoConfirm bool) {
	m.matches, m.wordStart, m.wordEnd = m.computeMatches()

	if !m.tabActive {
		m.suggIdx = -1
	}

	if !autoConfirm || len(m.matches) != 1 {
		return
	}

	if word := m.input.Value()[m.wordStart:m.wordEnd]; word == m.matches[0].Str {
		m.tabActive = false
		m.suggIdx = -1
		m.matches = nil
	}
}

// evaluate renders input in the session. Input without a code block is
// evaluated as code.
func (m model) evaluate(input string) (string, error) {
	ctx := m.ctxFunc()

	source := input
	if !strings.Contains(input, "{{") {
		source = "{{ " + input + " }}"
	}

	tmpl := lang.Parse(ctx, source,
		lang.WithCache(false),
		lang.WithParseLogger(m.logger),
	)

	out, err := tmpl.Render(ctx, m.session)

	m.logger.TraceContext(ctx, "repl eval",
		slog.String("input", input),
		slog.Int("bytes", len(out)),
		slog.Bool("ok", err == nil),
	)

	return out, err
}

func (m model) printResult(out string, err error) tea.Cmd {
	switch {
	case err != nil:
		return tea.Println(errorStyle.Render(err.Error()))
	case out == "":
		return nil
	default:
		return tea.Println(resultStyle.Render(out))
	}
}

func (m model) executeInput() (model, tea.Cmd) {
	input := strings.TrimSpace(m.input.Value())
	if input == "" {
		return m, nil
	}

	mode := m.mode

	m.saved = make(map[inputMode]savedInput)
	m.input.SetValue("")
	m.matches = nil

	if err := m.history.Add(input, mode); err != nil {
		m.logger.DebugContext(m.ctxFunc(), "repl history write",
			slog.Any("error", err))
	}

	m.historyIdx = m.history.Len()

	if mode == modeCtrl {
		return m.executeCommand(input)
	}

	return m, tea.Sequence(
		tea.Println(echo(mode, input)),
		m.printResult(m.evaluate(input)),
	)
}

func (m model) executeCommand(input string) (model, tea.Cmd) {
	parts := strings.Fields(input)
	name, args := parts[0], parts[1:]

	echoCmd := tea.Println(echo(modeCtrl, input))

	m.logger.TraceContext(m.ctxFunc(), "repl command",
		slog.String("command", name),
		slog.Any("args", args),
	)

	switch name {
	case "q", "quit", "exit":
		m.quitting = true

		return m, tea.Sequence(echoCmd, tea.Quit)

	case "h", "help":
		return m, tea.Sequence(echoCmd, tea.Println(helpMessage()))

	case "f", "funcs":
		return m, tea.Sequence(echoCmd, tea.Println(m.listFuncs(strings.Join(args, " "))))

	case "v", "vars":
		return m, tea.Sequence(echoCmd, tea.Println(m.listVars()))

	case "c", "clear":
		return m, tea.ClearScreen

	case "e", "edit":
		cmd := &editCommand{ctxFunc: m.ctxFunc, logger: m.logger, draft: m.draft}

		return m, tea.Sequence(echoCmd, tea.Exec(cmd, func(err error) tea.Msg {
			if err != nil {
				return editErrorMsg{err: err}
			}

			return editDoneMsg{source: cmd.source}
		}))

	default:
		return m, tea.Println(
			errorStyle.Render("Unknown command: " + name + " (try 'help')"),
		)
	}
}

// listFuncs returns the signatures of the functions matching pattern.
func (m model) listFuncs(pattern string) string {
	names := slices.Sorted(maps.Keys(m.catalog.funcs))

	if pattern != "" {
		matches := fuzzy.Find(pattern, names)

		names = names[:0:0]
		for _, match := range matches {
			names = append(names, match.Str)
		}
	}

	var b strings.Builder

	for _, name := range names {
		b.WriteString("  " + hintStyle.Render(call.Signature(m.catalog.funcs[name])) + "\n")
	}

	return b.String()
}

// listVars returns the session variables and their values.
func (m model) listVars() string {
	vars := m.session.Vars()
	if len(vars) == 0 {
		return hintStyle.Render("  (no variables)")
	}

	var b strings.Builder

	for _, name := range slices.Sorted(maps.Keys(vars)) {
		fmt.Fprintf(&b, "  %s = %s\n", name, hintStyle.Render(lang.Format(vars[name])))
	}

	return b.String()
}

// historyStep moves through history by step. With sameMode only entries
// of the current mode are visited; otherwise the mode follows the entry.
// Stepping past the newest entry clears the input.
func (m model) historyStep(step int, sameMode bool) model {
	for i := m.historyIdx + step; i >= 0 && i < m.history.Len(); i += step {
		entry, err := m.history.Entry(i)
		if err != nil || (sameMode && entry.Mode != m.mode) {
			continue
		}

		if entry.Mode != m.mode {
			m = m.switchToMode(entry.Mode)
		}

		m.historyIdx = i
		m.input.SetValue(entry.Line)
		m.input.SetCursor(len(entry.Line))
		m.refreshMatches(false)

		return m
	}

	if step > 0 {
		m.historyIdx = m.history.Len()
		m.input.SetValue("")
		m.refreshMatches(false)
	}

	return m
}

// switchToMode switches to mode, keeping each mode's pending input.
func (m model) switchToMode(mode inputMode) model {
	m.saved[m.mode] = savedInput{m.input.Value(), m.input.Position()}

	m.mode = mode
	p := prompts[mode]
	m.input.Prompt = p.style.Render(p.text)

	s := m.saved[mode]
	m.input.SetValue(s.text)
	m.input.SetCursor(s.cursor)

	m.refreshMatches(false)

	return m
}
