package call

import (
	"context"
	"reflect"
	"strconv"

	"github.com/ardnew/stencil/diag"
)

// VariadicKind describes how a Callable accepts extra positional arguments.
type VariadicKind int

const (
	// VariadicNone rejects positional arguments beyond the declared slots.
	VariadicNone VariadicKind = iota
	// VariadicTrailingSpread collects extra positional arguments into the
	// last parameter slot as a []any.
	VariadicTrailingSpread
)

func (k VariadicKind) String() string {
	if k == VariadicTrailingSpread {
		return "spread"
	}

	return "none"
}

// ReturnShape classifies what a Callable produces.
type ReturnShape int

const (
	ShapeValue ReturnShape = iota
	ShapeFuture
	ShapeLazySequence
)

func (s ReturnShape) String() string {
	switch s {
	case ShapeValue:
		return "value"
	case ShapeFuture:
		return "future"
	case ShapeLazySequence:
		return "sequence"
	default:
		return "shape(" + strconv.Itoa(int(s)) + ")"
	}
}

// Param describes one parameter slot.
// A nil Type accepts any value.
type Param struct {
	Name       string
	Type       reflect.Type
	Default    any
	HasDefault bool
	Spread     bool
}

// Required declares a parameter that must be supplied.
func Required(name string) Param { return Param{Name: name} }

// Optional declares a parameter filled with def when not supplied.
func Optional(name string, def any) Param {
	return Param{Name: name, Default: def, HasDefault: true}
}

// Spread declares the trailing parameter that collects extra positional
// arguments.
func Spread(name string) Param { return Param{Name: name, Spread: true} }

// Callable is a function invocable from template code.
//
// Metadata is stable for the lifetime of the Callable:
// 0 <= RequiredParameterCount() <= ParameterCount(), every slot at or past
// RequiredParameterCount() has a default (the spread slot defaults to an
// empty list), and under [VariadicTrailingSpread] the spread slot is last.
type Callable interface {
	Name() string
	ParameterCount() int
	RequiredParameterCount() int
	VariadicKind() VariadicKind
	ReturnShape() ReturnShape
	ParameterInfo(index int) (Param, error)

	// Call runs the function with one value per parameter slot, as produced
	// by [Bind]. The result is raw: use an [Invoker] to normalize it.
	Call(ctx context.Context, args []any) (any, error)
}

// Args holds bound argument values, one per parameter slot.
type Args []any

// At returns the value in slot i, or nil when i is out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a) {
		return nil
	}

	return a[i]
}

// Func is a Callable defined by a Go function and a parameter list.
type Func struct {
	name     string
	params   []Param
	required int
	variadic VariadicKind
	shape    ReturnShape
	fn       func(context.Context, Args) (any, error)
}

// Define creates a Func. Its return shape is classified from T.
//
// Define panics if params are malformed: a required parameter following an
// optional one, or a spread parameter that is not last.
func Define[T any](
	name string,
	fn func(ctx context.Context, args Args) (T, error),
	params ...Param,
) *Func {
	f := &Func{
		name:   name,
		params: params,
		shape:  Classify(reflect.TypeFor[T]()),
		fn: func(ctx context.Context, args Args) (any, error) {
			v, err := fn(ctx, args)
			if err != nil {
				return nil, err
			}

			return v, nil
		},
	}

	optional := false

	for i, p := range params {
		switch {
		case p.Spread:
			if i != len(params)-1 {
				panic("call: spread parameter " + p.Name + " of " + name + " is not last")
			}

			f.variadic = VariadicTrailingSpread

		case p.HasDefault:
			optional = true

		case optional:
			panic("call: required parameter " + p.Name + " of " + name + " follows an optional one")

		default:
			f.required++
		}
	}

	return f
}

func (f *Func) Name() string                { return f.name }
func (f *Func) ParameterCount() int         { return len(f.params) }
func (f *Func) RequiredParameterCount() int { return f.required }
func (f *Func) VariadicKind() VariadicKind  { return f.variadic }
func (f *Func) ReturnShape() ReturnShape    { return f.shape }

func (f *Func) ParameterInfo(index int) (Param, error) {
	return paramAt(f.name, f.params, index)
}

func (f *Func) Call(ctx context.Context, args []any) (any, error) {
	return f.fn(ctx, args)
}

func paramAt(name string, params []Param, index int) (Param, error) {
	if index < 0 || index >= len(params) {
		return Param{}, diag.Errorf(diag.KindIndex,
			"parameter index %d out of range for `%s` with %d parameters",
			index, name, len(params))
	}

	return params[index], nil
}
