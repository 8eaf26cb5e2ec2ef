package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// Render renders template files with optional global data.
type Render struct {
	Files []string `help:"Template file(s) or '-' for stdin"             placeholder:"FILE" short:"f"`
	Data  string   `help:"YAML or JSON file of global variables"         placeholder:"FILE" short:"d" type:"existingfile"`
	Async bool     `help:"Render through the asynchronous invoker"`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context, e *lang.Engine) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	stdout, stderr := output(ctx)

	data, err := loadData(ctx, r.Data)
	if err != nil {
		return err
	}

	srcs, err := openSources(r.Files, os.Stdin)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	for _, src := range srcs {
		out, err := r.render(ctx, e, src, data)
		if err != nil {
			fmt.Fprintln(stderr, err)

			return ErrRender.Wrap(err).With(slog.String("file", src.name))
		}

		if _, err := io.WriteString(stdout, out); err != nil {
			return err
		}
	}

	return nil
}

func (r *Render) render(
	ctx context.Context,
	e *lang.Engine,
	src source,
	data map[string]any,
) (string, error) {
	tmpl, err := lang.ParseReader(ctx, src,
		lang.WithFile(src.name),
		lang.WithParseLogger(log.Default()),
	)
	if err != nil {
		return "", err
	}

	return execute(ctx, e, tmpl, data, r.Async)
}

// execute renders tmpl with data as the global object.
func execute(
	ctx context.Context,
	e *lang.Engine,
	tmpl *lang.Template,
	data map[string]any,
	async bool,
) (string, error) {
	c := e.NewContext()
	if data != nil {
		c.PushGlobal(data)
	}

	if async {
		return tmpl.RenderAsync(ctx, c).Get(ctx)
	}

	return tmpl.Render(ctx, c)
}
