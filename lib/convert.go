package lib

import (
	"context"
	"fmt"
	"reflect"

	"github.com/shopspring/decimal"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/member"
)

// argAs converts argument i to T.
func argAs[T any](a call.Args, i int) (T, error) {
	var zero T

	v, err := member.Coerce(a.At(i), reflect.TypeFor[T]())
	if err != nil {
		return zero, err
	}

	out, ok := v.Interface().(T)
	if !ok {
		return zero, diag.Errorf(diag.KindTypeCoercion,
			"Unable to convert type `%T` to `%s`", a.At(i), reflect.TypeFor[T]())
	}

	return out, nil
}

// text converts argument i to a string. Null is the empty string.
func text(a call.Args, i int) (string, error) {
	if a.At(i) == nil {
		return "", nil
	}

	return argAs[string](a, i)
}

// optInt converts argument i to an int. The boolean result is false when
// the argument is null.
func optInt(a call.Args, i int) (int, bool, error) {
	if a.At(i) == nil {
		return 0, false, nil
	}

	n, err := argAs[int](a, i)

	return n, err == nil, err
}

// list converts argument i to a list. The boolean result is false when the
// argument is null. A lazy sequence is consumed.
func list(ctx context.Context, a call.Args, i int) ([]any, bool, error) {
	v := a.At(i)
	if v == nil {
		return nil, false, nil
	}

	switch x := v.(type) {
	case []any:
		return x, true, nil
	case string:
		return nil, false, diag.Errorf(diag.KindTypeCoercion,
			"Unable to convert type `string` to `list`")
	}

	if seq, ok := call.SequenceOf(v); ok {
		var out []any

		for e, err := range seq.All() {
			if err != nil {
				return nil, false, err
			}

			if err := ctx.Err(); err != nil {
				return nil, false, err
			}

			out = append(out, e)
		}

		return out, true, nil
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false, diag.Errorf(diag.KindTypeCoercion,
			"Unable to convert type `%T` to `list`", v)
	}

	out := make([]any, rv.Len())
	for j := range out {
		out[j] = rv.Index(j).Interface()
	}

	return out, true, nil
}

// isNumber reports whether v is an integer, float or decimal value.
func isNumber(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}

	_, ok := v.(decimal.Decimal)

	return ok
}

// isInteger reports whether v has an integer kind.
func isInteger(v any) bool {
	switch reflect.ValueOf(v).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}

	return false
}

// enumValue returns the name and integer value of v when v is an
// enumeration: a named integer type implementing fmt.Stringer.
func enumValue(v any) (string, int64, bool) {
	s, ok := v.(fmt.Stringer)
	if !ok || !isInteger(v) || reflect.TypeOf(v).PkgPath() == "" {
		return "", 0, false
	}

	rv := reflect.ValueOf(v)
	if rv.CanInt() {
		return s.String(), rv.Int(), true
	}

	return s.String(), int64(rv.Uint()), true //nolint:gosec
}
