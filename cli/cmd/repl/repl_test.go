package repl

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

func testModel(t *testing.T) model {
	t.Helper()

	e := lang.New()

	return newModel(context.Background(), e, e.NewContext(), NewHistory(""), log.Discard())
}

func TestEvaluate(t *testing.T) {
	m := testModel(t)

	tests := []struct {
		input string
		want  string
	}{
		{"x = 21", ""},
		{"x * 2", "42"},
		{"'abc' | string.upcase", "ABC"},
		{"{{ x }}!", "21!"},
		{"for i in 1..3; i; end", "123"},
	}

	for _, tt := range tests {
		got, err := m.evaluate(tt.input)
		if err != nil {
			t.Fatalf("evaluate(%q): %v", tt.input, err)
		}

		if got != tt.want {
			t.Errorf("evaluate(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}

	_, err := m.evaluate("nosuch(1)")
	if err == nil || err.Error() != "text(1,4) : error : Unknown function `nosuch`" {
		t.Errorf("evaluate(nosuch) error = %v", err)
	}
}

func TestExecuteInput(t *testing.T) {
	m := testModel(t)

	m.input.SetValue("name = 'ada' | string.capitalize")
	m, _ = m.executeInput()

	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}

	if m.history.Len() != 1 || m.historyIdx != 1 {
		t.Errorf("history len=%d idx=%d, want 1 and 1", m.history.Len(), m.historyIdx)
	}

	v, ok := m.session.Value("name")
	if !ok || v != "Ada" {
		t.Errorf("session name = %v (%v), want Ada", v, ok)
	}

	if vars := m.listVars(); !strings.Contains(vars, "name") || !strings.Contains(vars, "Ada") {
		t.Errorf("listVars = %q", vars)
	}
}

func TestExecuteCommand(t *testing.T) {
	m := testModel(t)

	if out := m.listFuncs("upcase"); !strings.Contains(out, "string.upcase(text)") {
		t.Errorf("listFuncs(upcase) = %q", out)
	}

	m, cmd := m.executeCommand("quit")
	if !m.quitting || cmd == nil {
		t.Error("quit did not stop the session")
	}
}

func TestModeToggle(t *testing.T) {
	m := testModel(t)

	m.input.SetValue("1 +")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)

	if m.mode != modeCtrl || m.input.Value() != "" {
		t.Fatalf("after Esc: mode=%v input=%q", m.mode, m.input.Value())
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)

	if m.mode != modeEval || m.input.Value() != "1 +" {
		t.Errorf("after second Esc: mode=%v input=%q", m.mode, m.input.Value())
	}
}

func TestHistoryStep(t *testing.T) {
	m := testModel(t)

	for _, e := range []HistoryEntry{{"a", modeEval}, {"help", modeCtrl}, {"b", modeEval}} {
		if err := m.history.Add(e.Line, e.Mode); err != nil {
			t.Fatal(err)
		}
	}

	m.historyIdx = m.history.Len()

	m = m.historyStep(-1, false)
	if m.input.Value() != "b" {
		t.Fatalf("up: %q", m.input.Value())
	}

	m = m.historyStep(-1, false)
	if m.input.Value() != "help" || m.mode != modeCtrl {
		t.Fatalf("up: %q mode=%v", m.input.Value(), m.mode)
	}

	m = m.switchToMode(modeEval)
	m.historyIdx = m.history.Len()

	m = m.historyStep(-1, true)
	m = m.historyStep(-1, true)

	if m.input.Value() != "a" || m.mode != modeEval {
		t.Errorf("same-mode up: %q mode=%v", m.input.Value(), m.mode)
	}

	m = m.historyStep(1, false)
	m = m.historyStep(1, false)
	m = m.historyStep(1, false)

	if m.input.Value() != "" || m.historyIdx != m.history.Len() {
		t.Errorf("down past end: %q idx=%d", m.input.Value(), m.historyIdx)
	}
}

func TestHintLine(t *testing.T) {
	m := testModel(t)

	if h := m.hintLine(); !strings.Contains(h, "Esc for commands") {
		t.Errorf("empty hint = %q", h)
	}

	m.input.SetValue("string.slice(s, ")
	m.input.SetCursor(len(m.input.Value()))

	if h := m.hintLine(); !strings.Contains(h, "string.slice") || !strings.Contains(h, "start") {
		t.Errorf("call hint = %q", h)
	}
}
