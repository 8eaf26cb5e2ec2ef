package call

import (
	"log/slog"
	"reflect"
	"slices"

	"github.com/ardnew/stencil/diag"
)

// Arg is one argument written at a call site. An empty Name marks a
// positional argument.
type Arg struct {
	Name  string
	Value any
	Pos   diag.Position
}

// Positional returns a positional argument.
func Positional(v any) Arg { return Arg{Value: v} }

// Named returns a named argument.
func Named(name string, v any) Arg { return Arg{Name: name, Value: v} }

// BoundCall is a Callable with one value per parameter slot.
// It is immutable once produced by [Bind].
type BoundCall struct {
	callable Callable
	args     []any
	site     diag.Site
}

// Callable returns the bound function.
func (b BoundCall) Callable() Callable { return b.callable }

// Args returns a copy of the bound values.
func (b BoundCall) Args() []any { return slices.Clone(b.args) }

// Site returns the source span of the call.
func (b BoundCall) Site() diag.Site { return b.site }

// Bind maps args onto the parameter slots of c.
//
// Named arguments bind first. Positional arguments then fill the remaining
// slots left to right; under [VariadicTrailingSpread] the extras are
// collected into the spread slot. Slots still empty take their default.
//
// An unknown or repeated name is a [diag.ErrBinding]. A missing required
// argument, or extra positional arguments for a non-variadic callable, is a
// [diag.ErrArity] reported at site.End.
func Bind(c Callable, site diag.Site, args []Arg) (BoundCall, error) {
	var (
		name     = c.Name()
		n        = c.ParameterCount()
		required = c.RequiredParameterCount()
		spread   = c.VariadicKind() == VariadicTrailingSpread
		fixed    = n
	)

	if spread {
		fixed--
	}

	params := make([]Param, n)
	for i := range n {
		p, err := c.ParameterInfo(i)
		if err != nil {
			return BoundCall{}, err
		}

		params[i] = p
	}

	slots := make([]any, n)
	filled := make([]bool, n)
	positional := make([]any, 0, len(args))

	for _, a := range args {
		if a.Name == "" {
			positional = append(positional, a.Value)

			continue
		}

		pos := a.Pos
		if !pos.IsValid() {
			pos = site.Start
		}

		i := slices.IndexFunc(params, func(p Param) bool { return p.Name == a.Name })
		if i < 0 {
			return BoundCall{}, diag.Errorf(diag.KindBinding,
				"Unknown named argument `%s` passed to `%s`", a.Name, name).
				With(slog.String("callable", name)).
				At(site.File, pos)
		}

		if filled[i] {
			return BoundCall{}, diag.Errorf(diag.KindBinding,
				"Argument `%s` passed to `%s` is bound more than once", a.Name, name).
				With(slog.String("callable", name)).
				At(site.File, pos)
		}

		slots[i], filled[i] = a.Value, true
	}

	var extra []any

	next := 0

	for _, v := range positional {
		for next < fixed && filled[next] {
			next++
		}

		if next < fixed {
			slots[next], filled[next] = v, true
			next++

			continue
		}

		extra = append(extra, v)
	}

	if len(extra) > 0 {
		if !spread {
			return BoundCall{}, diag.ArityMismatch(name, len(args), n).
				At(site.File, site.End)
		}

		if filled[n-1] {
			return BoundCall{}, diag.Errorf(diag.KindBinding,
				"Argument `%s` passed to `%s` is bound more than once", params[n-1].Name, name).
				With(slog.String("callable", name)).
				At(site.File, site.Start)
		}

		slots[n-1], filled[n-1] = extra, true
	}

	for i := range n {
		switch {
		case filled[i]:
			if spread && i == n-1 {
				slots[i] = spreadOf(slots[i])
			}

		case spread && i == n-1:
			slots[i] = []any{}

		case params[i].HasDefault:
			slots[i] = params[i].Default

		case i < required:
			return BoundCall{}, diag.ArityMismatch(name, len(args), required).
				At(site.File, site.End)
		}
	}

	return BoundCall{callable: c, args: slots, site: site}, nil
}

// spreadOf converts a value bound to a spread slot into a []any.
func spreadOf(v any) []any {
	switch x := v.(type) {
	case []any:
		return x
	case nil:
		return []any{}
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}

	return out
}
