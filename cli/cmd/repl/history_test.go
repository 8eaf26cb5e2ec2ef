package repl

import (
	"os"
	"path/filepath"
	"testing"
)

func TestHistory_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}

	for _, e := range []HistoryEntry{
		{"x = 1", modeEval},
		{"vars", modeCtrl},
		{"x + 1", modeEval},
		{"x + 1", modeEval}, // repeat of the last entry
		{"   ", modeEval},   // blank
	} {
		if err := h.Add(e.Line, e.Mode); err != nil {
			t.Fatalf("Add(%q): %v", e.Line, err)
		}
	}

	want := []HistoryEntry{
		{"x = 1", modeEval},
		{"vars", modeCtrl},
		{"x + 1", modeEval},
	}

	reloaded := NewHistory(path)
	if err := reloaded.Load(); err != nil {
		t.Fatal(err)
	}

	got := reloaded.Entries()
	if len(got) != len(want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestHistory_MoveDuplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)
	h := NewHistory(path)

	for _, line := range []string{"a", "b", "a"} {
		if err := h.Add(line, modeEval); err != nil {
			t.Fatal(err)
		}
	}

	// Same line in another mode is a distinct entry.
	if err := h.Add("a", modeCtrl); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	if got, want := string(data), "E:b\nE:a\nC:a\n"; got != want {
		t.Errorf("history file = %q, want %q", got, want)
	}

	if _, err := h.Entry(h.Len()); err != ErrOutOfBounds {
		t.Errorf("Entry past end: err = %v, want ErrOutOfBounds", err)
	}
}

func TestHistory_LegacyLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), baseHistory)
	if err := os.WriteFile(path, []byte("plain\n\nC:quit\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewHistory(path)
	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	e0, _ := h.Entry(0)
	e1, _ := h.Entry(1)

	if e0 != (HistoryEntry{"plain", modeEval}) || e1 != (HistoryEntry{"quit", modeCtrl}) {
		t.Errorf("entries = %v", h.Entries())
	}
}

func TestHistory_InMemory(t *testing.T) {
	h := NewHistory("")
	if err := h.Load(); err != nil {
		t.Fatal(err)
	}

	if err := h.Add("x", modeEval); err != nil {
		t.Fatal(err)
	}

	if h.Len() != 1 {
		t.Errorf("Len = %d, want 1", h.Len())
	}
}
