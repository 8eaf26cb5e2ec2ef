package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/pkg"
)

// Funcs lists the functions visible to templates.
type Funcs struct {
	Pattern string `arg:"" help:"Fuzzy filter on qualified names"  optional:""`
	Format  string `       help:"Output format"                     default:"text" enum:"text,yaml,json" short:"o"`
	Indent  int    `       help:"Indent width for yaml and json"    default:"2"    short:"i"`
}

// funcInfo describes one function in structured output.
type funcInfo struct {
	Name      string   `json:"name"                yaml:"name"`
	Signature string   `json:"signature"           yaml:"signature"`
	Params    []string `json:"params,omitempty"    yaml:"params,omitempty"`
	Required  int      `json:"required"            yaml:"required"`
	Variadic  string   `json:"variadic"            yaml:"variadic"`
	Returns   string   `json:"returns"             yaml:"returns"`
}

func describe(c call.Callable) funcInfo {
	info := funcInfo{
		Name:      c.Name(),
		Signature: call.Signature(c),
		Required:  c.RequiredParameterCount(),
		Variadic:  c.VariadicKind().String(),
		Returns:   c.ReturnShape().String(),
	}

	for i := range c.ParameterCount() {
		if p, err := c.ParameterInfo(i); err == nil {
			info.Params = append(info.Params, p.Name)
		}
	}

	return info
}

// catalog returns every function of e: engine globals, then each namespace
// in order.
func catalog(e *lang.Engine) []call.Callable {
	fns := e.Functions()

	for _, ns := range e.Namespaces() {
		for _, fn := range ns.All() {
			fns = append(fns, fn)
		}
	}

	return fns
}

type callables []call.Callable

func (c callables) String(i int) string { return c[i].Name() }
func (c callables) Len() int            { return len(c) }

// filter returns the functions of fns whose qualified name fuzzy-matches
// pattern, best match first. An empty pattern keeps everything.
func filter(fns []call.Callable, pattern string) []call.Callable {
	if pattern == "" {
		return fns
	}

	matches := fuzzy.FindFrom(pattern, callables(fns))
	out := make([]call.Callable, 0, len(matches))

	for _, m := range matches {
		out = append(out, fns[m.Index])
	}

	return out
}

// Run executes the funcs command.
func (f *Funcs) Run(ctx context.Context, e *lang.Engine) error {
	stdout, _ := output(ctx)

	fns := filter(catalog(e), f.Pattern)

	switch f.Format {
	case "text":
		return f.text(stdout, fns)
	case "yaml":
		return f.yaml(ctx, stdout, fns)
	case "json":
		return f.json(stdout, fns)
	default:
		return pkg.ErrInvalidFormat.Wrapf("%q", f.Format)
	}
}

func (f *Funcs) text(w io.Writer, fns []call.Callable) error {
	var sb strings.Builder

	for _, fn := range fns {
		sb.WriteString(call.Signature(fn))
		sb.WriteByte('\n')
	}

	_, err := io.WriteString(w, sb.String())

	return err
}

func (f *Funcs) infos(fns []call.Callable) []funcInfo {
	infos := make([]funcInfo, 0, len(fns))
	for _, fn := range fns {
		infos = append(infos, describe(fn))
	}

	return infos
}

func (f *Funcs) yaml(ctx context.Context, w io.Writer, fns []call.Callable) error {
	var opts []yaml.EncodeOption
	if f.Indent > 0 {
		opts = append(opts, yaml.Indent(f.Indent))
	}

	b, err := yaml.MarshalContext(ctx, f.infos(fns), opts...)
	if err != nil {
		return ErrYAMLMarshal.Wrap(err).With(slog.Int("count", len(fns)))
	}

	_, err = w.Write(b)

	return err
}

func (f *Funcs) json(w io.Writer, fns []call.Callable) error {
	enc := json.NewEncoder(w)
	if f.Indent > 0 {
		enc.SetIndent("", strings.Repeat(" ", f.Indent))
	}

	if err := enc.Encode(f.infos(fns)); err != nil {
		return ErrJSONMarshal.Wrap(err).With(slog.Int("count", len(fns)))
	}

	return nil
}

