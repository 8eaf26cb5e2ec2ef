package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

// Eval evaluates template code given on the command line.
type Eval struct {
	Code  []string `arg:"" help:"Template code, without the enclosing braces" name:"code"`
	Data  string   `       help:"YAML or JSON file of global variables"                     placeholder:"FILE" short:"d" type:"existingfile"`
	Async bool     `       help:"Evaluate through the asynchronous invoker"`
}

// Run executes the eval command.
func (ev *Eval) Run(ctx context.Context, e *lang.Engine) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	stdout, stderr := output(ctx)

	data, err := loadData(ctx, ev.Data)
	if err != nil {
		return err
	}

	code := strings.Join(ev.Code, " ")

	tmpl := lang.Parse(ctx, "{{ "+code+" }}", lang.WithParseLogger(log.Default()))

	out, err := execute(ctx, e, tmpl, data, ev.Async)
	if err != nil {
		fmt.Fprintln(stderr, err)

		return ErrRender.Wrap(err).With(slog.String("code", code))
	}

	_, err = fmt.Fprintln(stdout, out)

	return err
}
