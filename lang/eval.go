package lang

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"maps"
	"reflect"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/lib"
	"github.com/ardnew/stencil/member"
)

var (
	errBreak    = errors.New("break")
	errContinue = errors.New("continue")
)

// evaluator executes the statements of one template.
type evaluator struct {
	ctx  context.Context
	c    *Context
	file string
	out  strings.Builder
}

func (ev *evaluator) exec(stmts []Stmt) error {
	for _, s := range stmts {
		if err := ev.ctx.Err(); err != nil {
			return err
		}

		if err := ev.stmt(s); err != nil {
			return err
		}
	}

	return nil
}

func (ev *evaluator) stmt(s Stmt) error {
	switch s := s.(type) {
	case *TextStmt:
		ev.out.WriteString(s.Text)

	case *ExprStmt:
		v, err := ev.eval(s.X)
		if err != nil {
			return err
		}

		if v, err = settle(ev.ctx, v); err != nil {
			return ev.locate(err, s.X.Pos())
		}

		ev.out.WriteString(format(v))

	case *AssignStmt:
		v, err := ev.eval(s.Value)
		if err != nil {
			return err
		}

		return ev.assign(s.Target, v)

	case *IfStmt:
		v, err := ev.eval(s.Cond)
		if err != nil {
			return err
		}

		if truthy(v) {
			return ev.exec(s.Then)
		}

		return ev.exec(s.Else)

	case *ForStmt:
		return ev.loop(s)

	case *BranchStmt:
		if len(ev.c.locals) == 0 {
			return diag.Errorf(diag.KindParse,
				"Unexpected `%s` outside of a loop", s.Keyword).At(ev.file, s.Pos())
		}

		if s.Keyword == "break" {
			return errBreak
		}

		return errContinue
	}

	return nil
}

func (ev *evaluator) loop(s *ForStmt) error {
	items, err := ev.items(s.Iter)
	if err != nil {
		return err
	}

	limit := ev.c.engine.loopLimit
	index := 0

	for item, err := range items {
		if err != nil {
			return ev.locate(err, s.Iter.Pos())
		}

		if limit > 0 && index >= limit {
			return diag.Errorf(diag.KindRuntimeInvocation,
				"Exceeding number of iteration limit `%d` for loop statement", limit).
				At(ev.file, s.Pos())
		}

		ev.c.locals = append(ev.c.locals, map[string]any{
			s.Var: item,
			"for": map[string]any{
				"index": index,
				"first": index == 0,
				"even":  index%2 == 0,
				"odd":   index%2 == 1,
			},
		})

		err = ev.exec(s.Body)

		ev.c.locals = ev.c.locals[:len(ev.c.locals)-1]
		index++

		switch {
		case errors.Is(err, errBreak):
			return nil
		case errors.Is(err, errContinue):
		case err != nil:
			return err
		}
	}

	return nil
}

// items evaluates the iterable of a for loop. Ranges are walked lazily so
// the loop limit bounds them.
func (ev *evaluator) items(x Expr) (iter.Seq2[any, error], error) {
	if r, ok := x.(*Range); ok {
		span, err := ev.span(r)
		if err != nil {
			return nil, err
		}

		return span.all(), nil
	}

	v, err := ev.eval(x)
	if err != nil {
		return nil, err
	}

	items, err := iterate(v)

	return items, ev.locate(err, x.Pos())
}

func (ev *evaluator) span(x *Range) (intSpan, error) {
	from, err := ev.eval(x.From)
	if err != nil {
		return intSpan{}, err
	}

	to, err := ev.eval(x.To)
	if err != nil {
		return intSpan{}, err
	}

	span, err := makeSpan(from, to, x.Exclusive)

	return span, ev.locate(err, x.Pos())
}

// iterate yields the elements of a list, map, Sequence or host iterator.
// Map entries are yielded as {key, value} in key order.
func iterate(v any) (iter.Seq2[any, error], error) {
	switch x := v.(type) {
	case nil, call.Void:
		return func(func(any, error) bool) {}, nil

	case []any:
		return func(yield func(any, error) bool) {
			for _, e := range x {
				if !yield(e, nil) {
					return
				}
			}
		}, nil

	case map[string]any:
		return func(yield func(any, error) bool) {
			for _, k := range slices.Sorted(maps.Keys(x)) {
				if !yield(map[string]any{"key": k, "value": x[k]}, nil) {
					return
				}
			}
		}, nil
	}

	if seq, ok := call.SequenceOf(v); ok {
		return seq.All(), nil
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return func(yield func(any, error) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface(), nil) {
					return
				}
			}
		}, nil

	case reflect.Map:
		keys := rv.MapKeys()
		slices.SortFunc(keys, func(a, b reflect.Value) int {
			return strings.Compare(format(a.Interface()), format(b.Interface()))
		})

		return func(yield func(any, error) bool) {
			for _, k := range keys {
				e := map[string]any{"key": k.Interface(), "value": rv.MapIndex(k).Interface()}
				if !yield(e, nil) {
					return
				}
			}
		}, nil
	}

	return nil, diag.Errorf(diag.KindTypeCoercion,
		"Cannot iterate over a value of type `%s`", typeName(v))
}

func (ev *evaluator) assign(target Expr, v any) error {
	switch t := target.(type) {
	case *Ident:
		ev.c.assign(t.Name, v)

		return nil

	case *Member:
		recv, err := ev.eval(t.X)
		if err != nil {
			return err
		}

		if ns, ok := recv.(*lib.Namespace); ok {
			return diag.Errorf(diag.KindBinding,
				"Cannot assign `%s` of built-in namespace `%s`", t.Name, ns.Name()).
				At(ev.file, t.Pos())
		}

		err = ev.c.engine.members.Set(recv, t.Name, ev.c.Renamer(), v)

		return ev.locate(err, t.Pos())

	case *Index:
		recv, err := ev.eval(t.X)
		if err != nil {
			return err
		}

		i, err := ev.eval(t.Index)
		if err != nil {
			return err
		}

		return ev.locate(setIndex(recv, i, v), t.Pos())
	}

	return diag.NewError(diag.KindParse, "Invalid assignment target").At(ev.file, target.Pos())
}

// eval evaluates x in value position: a callable named by x is invoked
// without arguments.
func (ev *evaluator) eval(x Expr) (any, error) {
	v, err := ev.evalRaw(x)
	if err != nil {
		return nil, err
	}

	switch x.(type) {
	case *Ident, *Member, *Index:
		if fn, ok := v.(call.Callable); ok {
			return ev.invoke(fn, diag.Site{File: ev.file, Start: x.Pos(), End: x.End()}, nil)
		}
	}

	return v, nil
}

func (ev *evaluator) evalRaw(x Expr) (any, error) {
	switch x := x.(type) {
	case *Literal:
		return x.Value, nil

	case *Ident:
		v, _, err := ev.c.lookup(x.Name)

		return v, ev.locate(err, x.Pos())

	case *Member:
		recv, err := ev.eval(x.X)
		if err != nil {
			return nil, err
		}

		v, err := ev.member(recv, x)

		return v, ev.locate(err, x.Pos())

	case *Index:
		recv, err := ev.eval(x.X)
		if err != nil {
			return nil, err
		}

		i, err := ev.eval(x.Index)
		if err != nil {
			return nil, err
		}

		v, err := index(recv, i)

		return v, ev.locate(err, x.Pos())

	case *Call:
		return ev.call(x)

	case *Unary:
		v, err := ev.eval(x.X)
		if err != nil {
			return nil, err
		}

		if x.Op == "-" {
			v, err = negate(v)

			return v, ev.locate(err, x.Pos())
		}

		return !truthy(v), nil

	case *Binary:
		return ev.binary(x)

	case *Range:
		span, err := ev.span(x)
		if err != nil {
			return nil, err
		}

		v, err := span.list()

		return v, ev.locate(err, x.Pos())

	case *ArrayLit:
		out := make([]any, 0, len(x.Elems))

		for _, e := range x.Elems {
			v, err := ev.eval(e)
			if err != nil {
				return nil, err
			}

			out = append(out, v)
		}

		return out, nil
	}

	return nil, diag.Errorf(diag.KindParse, "Unsupported expression %T", x).At(ev.file, x.Pos())
}

func (ev *evaluator) binary(x *Binary) (any, error) {
	l, err := ev.eval(x.X)
	if err != nil {
		return nil, err
	}

	switch x.Op {
	case "||", "or":
		if truthy(l) {
			return true, nil
		}

		r, err := ev.eval(x.Y)

		return err == nil && truthy(r), err

	case "&&", "and":
		if !truthy(l) {
			return false, nil
		}

		r, err := ev.eval(x.Y)

		return err == nil && truthy(r), err
	}

	r, err := ev.eval(x.Y)
	if err != nil {
		return nil, err
	}

	v, err := binary(x.Op, l, r)

	return v, ev.locate(err, x.Pos())
}

// call evaluates the arguments of x left to right, binds them and invokes
// the callee.
func (ev *evaluator) call(x *Call) (any, error) {
	fv, err := ev.evalRaw(x.Fun)
	if err != nil {
		return nil, err
	}

	fn, ok := fv.(call.Callable)
	if !ok {
		if fv == nil {
			return nil, diag.Errorf(diag.KindBinding,
				"Unknown function `%s`", exprName(x.Fun)).At(ev.file, x.Pos())
		}

		return nil, diag.Errorf(diag.KindBinding,
			"`%s` of type `%s` is not a function", exprName(x.Fun), typeName(fv)).
			At(ev.file, x.Pos())
	}

	args := make([]call.Arg, 0, len(x.Args))

	for _, a := range x.Args {
		v, err := ev.eval(a.Value)
		if err != nil {
			return nil, err
		}

		args = append(args, call.Arg{Name: a.Name, Value: v, Pos: a.Pos})
	}

	return ev.invoke(fn, x.Site(ev.file), args)
}

func (ev *evaluator) invoke(fn call.Callable, site diag.Site, args []call.Arg) (any, error) {
	bc, err := call.Bind(fn, site, args)
	if err != nil {
		return nil, err
	}

	inv := ev.c.engine.invoker

	if ev.c.async {
		return inv.InvokeAsync(ev.ctx, bc).Get(ev.ctx)
	}

	return inv.Invoke(ev.ctx, bc)
}

// member selects x.Name of recv.
func (ev *evaluator) member(recv any, x *Member) (any, error) {
	if ns, ok := recv.(*lib.Namespace); ok {
		fn, ok := ns.Lookup(x.Name)
		if !ok {
			return nil, diag.Errorf(diag.KindBinding,
				"`%s` has no function `%s`", ns.Name(), x.Name)
		}

		return fn, nil
	}

	if m, ok := recv.(map[string]any); ok {
		return m[x.Name], nil
	}

	if x.Name == "size" {
		if n, ok := length(recv); ok {
			return n, nil
		}
	}

	v, ok, err := ev.c.engine.members.Get(recv, x.Name, ev.c.Renamer())
	if err != nil {
		return nil, err
	}

	if !ok {
		ev.c.engine.logger.TraceContext(ev.ctx, "member not found",
			slog.String("member", x.Name),
			slog.String("type", typeName(recv)),
			slog.String("renamer", ev.c.Renamer().ID()),
		)

		return nil, diag.Errorf(diag.KindBinding,
			"`%s` has no member `%s`", typeName(recv), x.Name)
	}

	return v, nil
}

func length(v any) (int, bool) {
	if s, ok := v.(string); ok {
		return utf8.RuneCountInString(s), true
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}

	return 0, false
}

// index selects element i of recv. A negative list index counts from the
// end; an index out of range yields null.
func index(recv, i any) (any, error) {
	if recv == nil {
		return nil, diag.NewError(diag.KindIndex, "Cannot index null")
	}

	if s, ok := recv.(string); ok {
		n, err := cast.ToIntE(i)
		if err != nil {
			return nil, indexType(i)
		}

		r := []rune(s)
		if n < 0 {
			n += len(r)
		}

		if n < 0 || n >= len(r) {
			return nil, nil
		}

		return string(r[n]), nil
	}

	rv := reflect.ValueOf(recv)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n, err := cast.ToIntE(i)
		if err != nil {
			return nil, indexType(i)
		}

		if n < 0 {
			n += rv.Len()
		}

		if n < 0 || n >= rv.Len() {
			return nil, nil
		}

		return rv.Index(n).Interface(), nil

	case reflect.Map:
		k, err := mapKey(rv.Type().Key(), i)
		if err != nil {
			return nil, err
		}

		e := rv.MapIndex(k)
		if !e.IsValid() {
			return nil, nil
		}

		return e.Interface(), nil
	}

	return nil, diag.Errorf(diag.KindIndex,
		"Cannot index a value of type `%s`", typeName(recv))
}

func setIndex(recv, i, v any) error {
	rv := reflect.ValueOf(recv)

	switch rv.Kind() {
	case reflect.Slice:
		n, err := cast.ToIntE(i)
		if err != nil {
			return indexType(i)
		}

		if n < 0 {
			n += rv.Len()
		}

		if n < 0 || n >= rv.Len() {
			return diag.Errorf(diag.KindIndex,
				"Index `%d` is out of range for a list of size `%d`", n, rv.Len())
		}

		e, err := member.Coerce(v, rv.Type().Elem())
		if err != nil {
			return err
		}

		rv.Index(n).Set(e)

		return nil

	case reflect.Map:
		if rv.IsNil() {
			return diag.NewError(diag.KindIndex, "Cannot assign to a nil map")
		}

		k, err := mapKey(rv.Type().Key(), i)
		if err != nil {
			return err
		}

		e, err := member.Coerce(v, rv.Type().Elem())
		if err != nil {
			return err
		}

		rv.SetMapIndex(k, e)

		return nil
	}

	return diag.Errorf(diag.KindIndex,
		"Cannot assign an element of a value of type `%s`", typeName(recv))
}

func mapKey(t reflect.Type, i any) (reflect.Value, error) {
	k, err := member.Coerce(i, t)
	if err != nil {
		return reflect.Value{}, diag.Errorf(diag.KindIndex,
			"Invalid key `%s` for a map keyed by `%s`", format(i), t)
	}

	return k, nil
}

func indexType(i any) error {
	return diag.Errorf(diag.KindIndex, "Index of type `%s` is not an integer", typeName(i))
}

// exprName renders a callee for diagnostics.
func exprName(x Expr) string {
	switch x := x.(type) {
	case *Ident:
		return x.Name
	case *Member:
		return exprName(x.X) + "." + x.Name
	case *Index:
		return exprName(x.X) + "[...]"
	}

	return "expression"
}

func (ev *evaluator) locate(err error, pos diag.Position) error {
	if err == nil {
		return nil
	}

	return diag.Locate(err, ev.file, pos)
}
