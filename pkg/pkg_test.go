package pkg

import (
	"errors"
	"io"
	"os"
	"strings"
	"testing"
)

func TestName(t *testing.T) {
	if Name != "stencil" {
		t.Errorf("expected Name to be %q, got %q", "stencil", Name)
	}
}

func TestVersion(t *testing.T) {
	buf, err := os.ReadFile("VERSION")
	if err != nil {
		t.Fatalf("failed to read VERSION file: %v", err)
	}

	if content := strings.TrimSpace(string(buf)); Version != content {
		t.Errorf("expected Version to be %q, got %q", content, Version)
	}
}

func TestAuthor(t *testing.T) {
	if len(Author) == 0 {
		t.Fatal("expected Author to have at least one entry")
	}

	for i, a := range Author {
		if a.Name == "" || !strings.Contains(a.Email, "@") {
			t.Errorf("Author[%d] is incomplete: %+v", i, a)
		}
	}
}

func TestError_Wrap(t *testing.T) {
	err := ErrReadInput.Wrap(io.ErrUnexpectedEOF)

	if got, want := err.Error(), "failed to read input: unexpected EOF"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	if !errors.Is(err, ErrReadInput) {
		t.Error("wrapped error does not match its sentinel")
	}

	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("wrapped error does not match its cause")
	}

	if errors.Is(err, ErrDecodeData) {
		t.Error("wrapped error matches an unrelated sentinel")
	}
}

func TestMakeError_SkipsNil(t *testing.T) {
	if got := MakeError(nil, nil); len(got) != 0 {
		t.Errorf("expected empty chain, got %v", got)
	}

	inner := errors.New("inner")
	chain := MakeError(inner)

	if len(chain) != 1 || chain[0] != inner {
		t.Errorf("unexpected chain %v", chain)
	}
}
