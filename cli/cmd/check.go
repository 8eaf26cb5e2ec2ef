package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
	"github.com/ardnew/stencil/pkg"
)

// Check parses templates and reports their diagnostics without rendering.
type Check struct {
	Files  []string `help:"Template file(s) or '-' for stdin" placeholder:"FILE" short:"f"`
	Format string   `help:"Output format"                     default:"text"     enum:"text,yaml,json" short:"o"`
}

// report is the structured form of a diagnostic.
type report struct {
	File     string `json:"file"     yaml:"file"`
	Line     int    `json:"line"     yaml:"line"`
	Column   int    `json:"column"   yaml:"column"`
	Severity string `json:"severity" yaml:"severity"`
	Message  string `json:"message"  yaml:"message"`
}

func makeReport(d diag.Diagnostic) report {
	file := d.File
	if file == "" {
		file = diag.DefaultFile
	}

	return report{
		File:     file,
		Line:     d.Pos.Line,
		Column:   d.Pos.Column,
		Severity: d.Severity.String(),
		Message:  d.Message,
	}
}

// Run executes the check command. It fails when any template has errors.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	stdout, _ := output(ctx)

	srcs, err := openSources(c.Files, os.Stdin)
	if err != nil {
		return err
	}
	defer closeSources(srcs)

	var msgs diag.Diagnostics

	for _, src := range srcs {
		tmpl, err := lang.ParseReader(ctx, src,
			lang.WithFile(src.name),
			lang.WithParseLogger(log.Default()),
		)
		if err != nil {
			return err
		}

		msgs = append(msgs, tmpl.Messages...)
	}

	if err := c.write(ctx, stdout, msgs); err != nil {
		return err
	}

	if msgs.HasErrors() {
		return ErrTemplate.With(slog.Int("count", len(msgs)))
	}

	return nil
}

func (c *Check) write(ctx context.Context, w io.Writer, msgs diag.Diagnostics) error {
	reports := make([]report, 0, len(msgs))
	for _, d := range msgs {
		reports = append(reports, makeReport(d))
	}

	switch c.Format {
	case "text":
		if len(msgs) == 0 {
			return nil
		}

		_, err := io.WriteString(w, msgs.String()+"\n")

		return err

	case "yaml":
		b, err := yaml.MarshalContext(ctx, reports)
		if err != nil {
			return ErrYAMLMarshal.Wrap(err)
		}

		_, err = w.Write(b)

		return err

	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", strings.Repeat(" ", 2))

		if err := enc.Encode(reports); err != nil {
			return ErrJSONMarshal.Wrap(err)
		}

		return nil

	default:
		return pkg.ErrInvalidFormat.Wrapf("%q", c.Format)
	}
}
