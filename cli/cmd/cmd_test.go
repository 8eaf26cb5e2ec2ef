package cmd

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/pkg"
)

// testCLI mounts every command under its usual name.
type testCLI struct {
	LoopLimit int      `default:"1000"`
	Renamer   string   `default:"snake"`
	Tags      []string `default:"a,b"`
	Empty     string

	Init   Init   `cmd:""`
	Check  Check  `cmd:""`
	Funcs  Funcs  `cmd:""`
	Eval   Eval   `cmd:""`
	Render Render `cmd:""`
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run parses args against testCLI and runs the selected command with a
// fresh engine. dir holds the configuration and cache files.
func run(t *testing.T, dir string, args ...string) result {
	t.Helper()

	var (
		cli            testCLI
		stdout, stderr bytes.Buffer
	)

	parser, err := kong.New(&cli,
		kong.Name("stencil"),
		kong.Writers(&stdout, &stderr),
		kong.Exit(func(int) { t.Fatalf("unexpected exit: %s", stderr.String()) }),
		kong.Vars{
			ConfigIdentifier: filepath.Join(dir, "config.yaml"),
			CacheIdentifier:  dir,
		},
	)
	if err != nil {
		t.Fatalf("kong.New() error = %v", err)
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", args, err)
	}

	ctx := WithContext(context.Background(), ktx)
	ktx.BindTo(ctx, (*context.Context)(nil))

	err = ktx.Run(lang.New())

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}

	return path
}

func readAll(t *testing.T, srcs []source) []string {
	t.Helper()

	got := make([]string, 0, len(srcs))

	for _, s := range srcs {
		b, err := io.ReadAll(s)
		if err != nil {
			t.Fatalf("ReadAll(%s) error = %v", s.name, err)
		}

		got = append(got, s.name+"="+string(b))
	}

	return got
}

func TestOpenSources(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tmpl", "A")
	b := writeFile(t, dir, "b.tmpl", "B")

	link := filepath.Join(dir, "link.tmpl")
	if err := os.Symlink(a, link); err != nil {
		t.Fatalf("Symlink() error = %v", err)
	}

	tests := []struct {
		name  string
		paths []string
		want  []string
	}{
		{"no paths reads stdin", nil, []string{"=IN"}},
		{"stdin moves last", []string{"-", a, b}, []string{a + "=A", b + "=B", "=IN"}},
		{"stdin once", []string{"-", a, "-"}, []string{a + "=A", "=IN"}},
		{"duplicate path", []string{a, a, b}, []string{a + "=A", b + "=B"}},
		{"duplicate through symlink", []string{a, link}, []string{a + "=A"}},
		{"uncleaned path", []string{b, dir + "/./b.tmpl"}, []string{b + "=B"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srcs, err := openSources(tt.paths, strings.NewReader("IN"))
			if err != nil {
				t.Fatalf("openSources() error = %v", err)
			}
			defer closeSources(srcs)

			got := readAll(t, srcs)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("openSources() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenSources_Missing(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.tmpl", "A")

	_, err := openSources([]string{a, filepath.Join(dir, "missing")}, nil)
	if !errors.Is(err, pkg.ErrReadInput) {
		t.Errorf("openSources() error = %v, want %v", err, pkg.ErrReadInput)
	}
}

func TestLoadData(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	data, err := loadData(ctx, "")
	if err != nil || data != nil {
		t.Errorf("loadData(\"\") = %v, %v; want nil, nil", data, err)
	}

	yml := writeFile(t, dir, "data.yaml", "name: Ada\ntags: [x, y]\n")

	data, err = loadData(ctx, yml)
	if err != nil {
		t.Fatalf("loadData(yaml) error = %v", err)
	}

	if data["name"] != "Ada" {
		t.Errorf("data[name] = %v, want Ada", data["name"])
	}

	if tags, ok := data["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("data[tags] = %#v, want two elements", data["tags"])
	}

	js := writeFile(t, dir, "data.json", `{"name": "Grace"}`)

	data, err = loadData(ctx, js)
	if err != nil {
		t.Fatalf("loadData(json) error = %v", err)
	}

	if data["name"] != "Grace" {
		t.Errorf("data[name] = %v, want Grace", data["name"])
	}

	bad := writeFile(t, dir, "bad.yaml", "- a\n- b\n")
	if _, err := loadData(ctx, bad); !errors.Is(err, pkg.ErrDecodeData) {
		t.Errorf("loadData(list) error = %v, want %v", err, pkg.ErrDecodeData)
	}

	if _, err := loadData(ctx, filepath.Join(dir, "missing")); !errors.Is(err, pkg.ErrReadInput) {
		t.Errorf("loadData(missing) error = %v, want %v", err, pkg.ErrReadInput)
	}
}

func TestOutput(t *testing.T) {
	stdout, stderr := output(context.Background())
	if stdout != os.Stdout || stderr != os.Stderr {
		t.Error("output() without kong context should use process streams")
	}
}

func TestError(t *testing.T) {
	err := ErrRender.Wrap(io.EOF)

	if !errors.Is(err, ErrRender) {
		t.Error("wrapped error should match its sentinel")
	}

	if !errors.Is(err, io.EOF) {
		t.Error("wrapped error should match its cause")
	}

	if errors.Is(err, ErrTemplate) {
		t.Error("wrapped error should not match another sentinel")
	}

	if got, want := err.Error(), "render failed: EOF"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
