package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cast"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	res := run(t, dir, "--loop-limit=50", "init")
	if res.err != nil {
		t.Fatalf("init error = %v", res.err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	var got map[string]any
	if err := yaml.UnmarshalContext(context.Background(), b, &got); err != nil {
		t.Fatalf("decode: %v\n%s", err, b)
	}

	if cast.ToInt(got["loop_limit"]) != 50 {
		t.Errorf("loop_limit = %#v, want 50", got["loop_limit"])
	}

	if got["renamer"] != "snake" {
		t.Errorf("renamer = %#v, want snake", got["renamer"])
	}

	if tags, ok := got["tags"].([]any); !ok || len(tags) != 2 {
		t.Errorf("tags = %#v, want [a b]", got["tags"])
	}

	for _, key := range []string{"empty", "help"} {
		if _, ok := got[key]; ok {
			t.Errorf("config should not contain %q", key)
		}
	}

	if info, err := os.Stat(path); err == nil && info.Mode().Perm() != configFileMode {
		t.Errorf("mode = %v, want %v", info.Mode().Perm(), configFileMode)
	}
}

func TestInit_Exists(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", "keep: true\n")

	res := run(t, dir, "init")
	if !errors.Is(res.err, ErrWriteConfig) || !errors.Is(res.err, ErrFileExists) {
		t.Fatalf("init error = %v, want %v", res.err, ErrFileExists)
	}

	if b, _ := os.ReadFile(path); string(b) != "keep: true\n" {
		t.Errorf("existing config overwritten: %q", b)
	}

	res = run(t, dir, "init", "--force")
	if res.err != nil {
		t.Fatalf("init --force error = %v", res.err)
	}

	if b, _ := os.ReadFile(path); string(b) == "keep: true\n" {
		t.Error("init --force did not overwrite")
	}
}

func TestFlagValue(t *testing.T) {
	type level string

	tests := []struct {
		in   any
		want any
	}{
		{"", nil},
		{"x", "x"},
		{level("debug"), "debug"},
		{[]string{}, nil},
		{true, true},
		{3, 3},
		{struct{}{}, nil},
		{nil, nil},
	}

	for _, tt := range tests {
		if got := flagValue(tt.in); got != tt.want {
			t.Errorf("flagValue(%#v) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}
