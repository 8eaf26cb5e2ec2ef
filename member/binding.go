package member

import (
	"reflect"

	"github.com/ardnew/stencil/diag"
)

// Binding is one member of a host type under one renamer.
type Binding struct {
	name   string
	goName string
	owner  reflect.Type
	typ    reflect.Type // field type; nil for methods
	index  []int
	method *Method
}

// Name returns the script name.
func (b *Binding) Name() string { return b.name }

// GoName returns the Go field or method name.
func (b *Binding) GoName() string { return b.goName }

// IsMethod reports whether b is a method.
func (b *Binding) IsMethod() bool { return b.method != nil }

// Method returns the method metadata, or nil for a field.
func (b *Binding) Method() *Method { return b.method }

// Type returns the field type, or nil for a method.
func (b *Binding) Type() reflect.Type { return b.typ }

// CanSet reports whether b can be assigned.
func (b *Binding) CanSet() bool { return b.method == nil }

// Get reads the member from recv. A method is returned bound to recv as a
// [call.Callable].
func (b *Binding) Get(recv any) (any, error) {
	if b.method != nil {
		return b.method.Bind(recv)
	}

	v, err := b.field(reflect.ValueOf(recv))
	if err != nil {
		return nil, err
	}

	return v.Interface(), nil
}

// Set assigns value to the member of recv after coercing it to the field
// type. recv must be a non-nil pointer.
func (b *Binding) Set(recv any, value any) error {
	if b.method != nil {
		return diag.Errorf(diag.KindBinding,
			"Member `%s` of `%s` is a method and cannot be assigned", b.name, b.owner)
	}

	rv := reflect.ValueOf(recv)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return diag.Errorf(diag.KindBinding,
			"Member `%s` of `%s` cannot be assigned on a copy", b.name, b.owner)
	}

	f, err := b.field(rv)
	if err != nil {
		return err
	}

	if !f.CanSet() {
		return diag.Errorf(diag.KindBinding,
			"Member `%s` of `%s` is read-only", b.name, b.owner)
	}

	v, err := Coerce(value, b.typ)
	if err != nil {
		return err
	}

	f.Set(v)

	return nil
}

func (b *Binding) field(rv reflect.Value) (reflect.Value, error) {
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return reflect.Value{}, diag.Errorf(diag.KindBinding,
				"cannot access member `%s` of a nil `%s`", b.name, b.owner)
		}

		rv = rv.Elem()
	}

	if rv.Type() != b.owner {
		return reflect.Value{}, diag.Errorf(diag.KindBinding,
			"member `%s` of `%s` read from a `%s`", b.name, b.owner, rv.Type())
	}

	f, err := rv.FieldByIndexErr(b.index)
	if err != nil {
		return reflect.Value{}, diag.Errorf(diag.KindBinding,
			"cannot access member `%s` of `%s`", b.name, b.owner).Wrap(err)
	}

	return f, nil
}
