package member

import (
	"context"
	"log/slog"
	"reflect"
	"strconv"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

var (
	contextType    = reflect.TypeFor[context.Context]()
	errorType      = reflect.TypeFor[error]()
	paramNamerType = reflect.TypeFor[ParamNamer]()
)

// ParamNamer may be implemented by host types to name their method
// parameters for named arguments. Names are listed in declaration order,
// excluding a leading context.Context. Methods without names get arg0, arg1,
// and so on.
type ParamNamer interface {
	ParamNames(method string) []string
}

// Method is the type-level description of a host method. It is shared by all
// receivers of the type; [Method.Bind] yields a Callable for one receiver.
type Method struct {
	name     string
	goName   string
	fn       reflect.Value // receiver is the first argument
	recv     reflect.Type  // pointer to the base type
	params   []call.Param
	required int
	variadic call.VariadicKind
	shape    call.ReturnShape
	result   int // number of non-error results
	withCtx  bool
	withErr  bool
}

func newMethod(name string, m reflect.Method, recv reflect.Type) *Method {
	mt := m.Type
	md := &Method{
		name:   name,
		goName: m.Name,
		fn:     m.Func,
		recv:   recv,
	}

	first := 1
	if mt.NumIn() > 1 && mt.In(1) == contextType {
		md.withCtx = true
		first = 2
	}

	names := paramNames(recv, m.Name)

	for i := first; i < mt.NumIn(); i++ {
		n := i - first

		p := call.Param{Name: "arg" + strconv.Itoa(n), Type: mt.In(i)}
		if n < len(names) && names[n] != "" {
			p.Name = names[n]
		}

		if mt.IsVariadic() && i == mt.NumIn()-1 {
			p.Type = p.Type.Elem()
			p.Spread = true
			md.variadic = call.VariadicTrailingSpread
		} else {
			md.required++
		}

		md.params = append(md.params, p)
	}

	md.result = mt.NumOut()
	if md.result > 0 && mt.Out(md.result-1) == errorType {
		md.withErr = true
		md.result--
	}

	if md.result == 1 {
		md.shape = call.Classify(mt.Out(0))
	}

	return md
}

func paramNames(recv reflect.Type, method string) []string {
	if !recv.Implements(paramNamerType) {
		return nil
	}

	pn, ok := reflect.New(recv.Elem()).Interface().(ParamNamer)
	if !ok {
		return nil
	}

	return pn.ParamNames(method)
}

func (m *Method) Name() string                    { return m.name }
func (m *Method) GoName() string                  { return m.goName }
func (m *Method) ParameterCount() int             { return len(m.params) }
func (m *Method) RequiredParameterCount() int     { return m.required }
func (m *Method) VariadicKind() call.VariadicKind { return m.variadic }
func (m *Method) ReturnShape() call.ReturnShape   { return m.shape }

func (m *Method) ParameterInfo(index int) (call.Param, error) {
	if index < 0 || index >= len(m.params) {
		return call.Param{}, diag.Errorf(diag.KindIndex,
			"parameter index %d out of range for `%s` with %d parameters",
			index, m.name, len(m.params))
	}

	return m.params[index], nil
}

// Bind returns a Callable that invokes m on recv.
// A non-pointer receiver is copied, so mutations made by the method are not
// visible to the caller.
func (m *Method) Bind(recv any) (call.Callable, error) {
	rv, err := receiver(recv, m.recv)
	if err != nil {
		return nil, err
	}

	return &BoundMethod{Method: m, recv: rv}, nil
}

// BoundMethod is a [Method] bound to a receiver.
type BoundMethod struct {
	*Method

	recv reflect.Value
}

// Call implements [call.Callable].
func (b *BoundMethod) Call(ctx context.Context, args []any) (any, error) {
	m := b.Method

	if ctx == nil {
		ctx = context.Background()
	}

	in := make([]reflect.Value, 0, len(args)+2)
	in = append(in, b.recv)

	if m.withCtx {
		in = append(in, reflect.ValueOf(&ctx).Elem())
	}

	for i, p := range m.params {
		var arg any
		if i < len(args) {
			arg = args[i]
		}

		if !p.Spread {
			v, err := Coerce(arg, p.Type)
			if err != nil {
				return nil, diag.WrapError(err).With(
					slog.String("member", m.name),
					slog.String("param", p.Name))
			}

			in = append(in, v)

			continue
		}

		rest, _ := arg.([]any)
		for _, e := range rest {
			v, err := Coerce(e, p.Type)
			if err != nil {
				return nil, diag.WrapError(err).With(
					slog.String("member", m.name),
					slog.String("param", p.Name))
			}

			in = append(in, v)
		}
	}

	out := m.fn.Call(in)

	if m.withErr {
		if e := out[len(out)-1]; !e.IsNil() {
			err, _ := e.Interface().(error)

			return nil, err
		}
	}

	switch m.result {
	case 0:
		return nil, nil
	case 1:
		return out[0].Interface(), nil
	default:
		vals := make([]any, m.result)
		for i := range vals {
			vals[i] = out[i].Interface()
		}

		return vals, nil
	}
}

// receiver returns recv as a value of type ptr (a pointer to the base type).
func receiver(recv any, ptr reflect.Type) (reflect.Value, error) {
	rv := reflect.ValueOf(recv)
	if !rv.IsValid() {
		return reflect.Value{}, diag.NewError(diag.KindBinding, "cannot access a member of null")
	}

	switch {
	case rv.Type() == ptr:
		if rv.IsNil() {
			return reflect.Value{}, diag.Errorf(diag.KindBinding,
				"cannot access a member of a nil `%s`", ptr)
		}

		return rv, nil

	case rv.Type() == ptr.Elem():
		p := reflect.New(rv.Type())
		p.Elem().Set(rv)

		return p, nil
	}

	return reflect.Value{}, diag.Errorf(diag.KindBinding,
		"receiver `%s` is not a `%s`", rv.Type(), ptr.Elem())
}
