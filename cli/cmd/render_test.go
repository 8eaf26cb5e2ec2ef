package cmd

import (
	"errors"
	"strings"
	"testing"
)

func TestRender(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.yaml", "name: Ada\nitems: [a, b, c]\n")
	greet := writeFile(t, dir, "greet.tmpl", "Hello, {{ name | string.upcase }}!\n")
	list := writeFile(t, dir, "list.tmpl", "{{ for item in items }}{{ item }}{{ end }}\n")

	for _, async := range []bool{false, true} {
		args := []string{"render", "-d", data, "-f", greet, "-f", list}
		if async {
			args = append(args, "--async")
		}

		res := run(t, dir, args...)
		if res.err != nil {
			t.Fatalf("render(async=%v) error = %v", async, res.err)
		}

		if want := "Hello, ADA!\nabc\n"; res.stdout != want {
			t.Errorf("render(async=%v) = %q, want %q", async, res.stdout, want)
		}
	}
}

func TestRender_Error(t *testing.T) {
	dir := t.TempDir()
	bad := writeFile(t, dir, "bad.tmpl", "{{ nosuch(1) }}")

	res := run(t, dir, "render", "-f", bad)
	if !errors.Is(res.err, ErrRender) {
		t.Fatalf("render error = %v, want %v", res.err, ErrRender)
	}

	if want := bad + "(1,4) : error : Unknown function `nosuch`"; !strings.Contains(res.stderr, want) {
		t.Errorf("stderr = %q, want it to contain %q", res.stderr, want)
	}

	if res.stdout != "" {
		t.Errorf("stdout = %q, want empty", res.stdout)
	}
}

func TestEval(t *testing.T) {
	dir := t.TempDir()
	data := writeFile(t, dir, "data.yaml", "name: grace\n")

	tests := []struct {
		args []string
		want string
	}{
		{[]string{"eval", "1 + 2"}, "3\n"},
		{[]string{"eval", "'a'", "|", "string.upcase"}, "A\n"},
		{[]string{"eval", "-d", data, "name | string.capitalize"}, "Grace\n"},
		{[]string{"eval", "--async", "[1, 2, 3] | array.size"}, "3\n"},
	}

	for _, tt := range tests {
		res := run(t, dir, tt.args...)
		if res.err != nil {
			t.Errorf("%q error = %v", tt.args, res.err)

			continue
		}

		if res.stdout != tt.want {
			t.Errorf("%q = %q, want %q", tt.args, res.stdout, tt.want)
		}
	}
}

func TestEval_Error(t *testing.T) {
	res := run(t, t.TempDir(), "eval", "1 +")
	if !errors.Is(res.err, ErrRender) {
		t.Fatalf("eval error = %v, want %v", res.err, ErrRender)
	}

	if !strings.HasPrefix(res.stderr, "text(1,") {
		t.Errorf("stderr = %q, want a text(line,column) diagnostic", res.stderr)
	}
}
