package repl

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/exec"

	"github.com/ardnew/stencil/log"
)

const defaultEditor = "vi"

// editCommand implements [tea.ExecCommand]. It opens the user's editor on a
// temporary copy of draft and keeps the saved text in source.
type editCommand struct {
	ctxFunc func() context.Context
	logger  log.Logger
	draft   string
	source  string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run edits the draft. An emptied file yields an empty source.
func (c *editCommand) Run() error {
	ctx := c.ctxFunc()

	f, err := os.CreateTemp("", "stencil-repl-*.tmpl")
	if err != nil {
		return err
	}

	path := f.Name()
	defer os.Remove(path)

	_, err = io.WriteString(f, c.draft)
	if cerr := f.Close(); err == nil {
		err = cerr
	}

	if err != nil {
		return err
	}

	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = c.stdin, c.stdout, c.stderr

	if err := cmd.Run(); err != nil {
		return err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	c.source = string(b)

	c.logger.TraceContext(ctx, "repl edit",
		slog.String("editor", editor),
		slog.Int("bytes", len(b)),
	)

	return nil
}
