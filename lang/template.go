package lang

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

// Template is a parsed template. It is immutable and may be rendered
// concurrently with distinct Contexts.
type Template struct {
	File     string
	Source   string
	Body     []Stmt
	Messages diag.Diagnostics
}

// Name returns the file name reported in diagnostics.
func (t *Template) Name() string {
	if t.File == "" {
		return diag.DefaultFile
	}

	return t.File
}

// HasErrors reports whether parsing produced any error.
func (t *Template) HasErrors() bool { return t.Messages.HasErrors() }

// Err returns the first parse error, or nil.
func (t *Template) Err() error {
	for d := range t.Messages.Errors() {
		return diag.NewError(diag.KindParse, d.Message).At(t.File, d.Pos)
	}

	return nil
}

// Render evaluates t with c and returns the output. Host calls block until
// their results settle. The first fault aborts the render.
func (t *Template) Render(ctx context.Context, c *Context) (string, error) {
	return t.render(ctx, c, false)
}

// RenderAsync evaluates t with c without blocking the caller. Host calls
// run through the asynchronous invoker; the output is the same as
// [Template.Render].
func (t *Template) RenderAsync(ctx context.Context, c *Context) *call.Promise[string] {
	return call.Go(func() (string, error) { return t.render(ctx, c, true) })
}

func (t *Template) render(ctx context.Context, c *Context, async bool) (string, error) {
	if err := t.Err(); err != nil {
		return "", err
	}

	start := time.Now()

	c.async = async
	ev := &evaluator{ctx: ctx, c: c, file: t.File}

	err := ev.run(t.Body)

	logger := c.engine.logger
	logger.DebugContext(ctx, "render",
		slog.String("file", t.Name()),
		slog.Bool("async", async),
		slog.Int("bytes", ev.out.Len()),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		logger.DebugContext(ctx, "render failed", slog.Any("error", err))

		return "", err
	}

	return ev.out.String(), nil
}

// run executes body, converting a panic into a runtime invocation error so
// that Render and RenderAsync fail alike.
func (ev *evaluator) run(body []Stmt) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = diag.Errorf(diag.KindRuntimeInvocation, "%v", r)
		}
	}()

	return ev.exec(body)
}

// Render parses source and renders it with model pushed as the global
// object. A nil model renders with no globals.
func (e *Engine) Render(ctx context.Context, source string, model any) (string, error) {
	t := Parse(ctx, source, WithParseLogger(e.logger))

	c := e.NewContext()
	c.PushGlobal(model)

	return t.Render(ctx, c)
}
