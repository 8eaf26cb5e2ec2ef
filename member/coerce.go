package member

import (
	"fmt"
	"math"
	"reflect"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ardnew/stencil/diag"
)

var decimalType = reflect.TypeFor[decimal.Decimal]()

// integral rejects floats with a fractional part, which an integer target
// would otherwise truncate.
func integral(value any) error {
	var f float64

	switch x := value.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
		return fmt.Errorf("%v is not an integer", value)
	}

	return nil
}

// Coerce converts a script value to t.
//
// Assignable values pass through. Scalars convert with spf13/cast, so "42"
// becomes an int and 1 becomes true. Lists and maps convert element-wise,
// pointers through their element type, and decimal.Decimal from any number or
// numeric string. A nil t accepts anything. Failure is a
// [diag.ErrTypeCoercion].
func Coerce(value any, t reflect.Type) (reflect.Value, error) {
	if t == nil {
		if value == nil {
			return reflect.Zero(reflect.TypeFor[any]()), nil
		}

		return reflect.ValueOf(value), nil
	}

	if value == nil {
		switch t.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map,
			reflect.Func, reflect.Chan:
			return reflect.Zero(t), nil
		}

		return reflect.Value{}, mismatch(value, t, nil)
	}

	v := reflect.ValueOf(value)
	if v.Type().AssignableTo(t) {
		return v, nil
	}

	if t == decimalType {
		d, err := toDecimal(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		return reflect.ValueOf(d), nil
	}

	if d, ok := value.(decimal.Decimal); ok {
		// Numeric targets take the decimal's float value.
		value = d.InexactFloat64()
		v = reflect.ValueOf(value)
	}

	out := reflect.New(t).Elem()

	switch t.Kind() {
	case reflect.Bool:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		out.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if err := integral(value); err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		i, err := cast.ToInt64E(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		if out.OverflowInt(i) {
			return reflect.Value{}, mismatch(value, t, fmt.Errorf("%d overflows %s", i, t))
		}

		out.SetInt(i)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32,
		reflect.Uint64, reflect.Uintptr:
		if err := integral(value); err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		u, err := cast.ToUint64E(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		if out.OverflowUint(u) {
			return reflect.Value{}, mismatch(value, t, fmt.Errorf("%d overflows %s", u, t))
		}

		out.SetUint(u)

	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		out.SetFloat(f)

	case reflect.String:
		s, err := cast.ToStringE(value)
		if err != nil {
			return reflect.Value{}, mismatch(value, t, err)
		}

		out.SetString(s)

	case reflect.Slice:
		if s, ok := value.(string); ok && t.Elem().Kind() == reflect.Uint8 {
			out.SetBytes([]byte(s))

			break
		}

		if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
			return reflect.Value{}, mismatch(value, t, nil)
		}

		out.Set(reflect.MakeSlice(t, v.Len(), v.Len()))

		for i := range v.Len() {
			e, err := Coerce(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(e)
		}

	case reflect.Array:
		if (v.Kind() != reflect.Slice && v.Kind() != reflect.Array) || v.Len() != t.Len() {
			return reflect.Value{}, mismatch(value, t, nil)
		}

		for i := range v.Len() {
			e, err := Coerce(v.Index(i).Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.Index(i).Set(e)
		}

	case reflect.Map:
		if v.Kind() != reflect.Map {
			return reflect.Value{}, mismatch(value, t, nil)
		}

		out.Set(reflect.MakeMapWithSize(t, v.Len()))

		iter := v.MapRange()
		for iter.Next() {
			k, err := Coerce(iter.Key().Interface(), t.Key())
			if err != nil {
				return reflect.Value{}, err
			}

			e, err := Coerce(iter.Value().Interface(), t.Elem())
			if err != nil {
				return reflect.Value{}, err
			}

			out.SetMapIndex(k, e)
		}

	case reflect.Pointer:
		e, err := Coerce(value, t.Elem())
		if err != nil {
			return reflect.Value{}, err
		}

		p := reflect.New(t.Elem())
		p.Elem().Set(e)
		out.Set(p)

	default:
		if !v.Type().ConvertibleTo(t) {
			return reflect.Value{}, mismatch(value, t, nil)
		}

		out.Set(v.Convert(t))
	}

	return out, nil
}

func toDecimal(value any) (decimal.Decimal, error) {
	switch x := value.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		return decimal.NewFromString(x)
	case float32:
		return decimal.NewFromFloat32(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	}

	i, err := cast.ToInt64E(value)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return decimal.NewFromInt(i), nil
}

func mismatch(value any, t reflect.Type, cause error) *diag.Error {
	err := diag.Errorf(diag.KindTypeCoercion,
		"Unable to convert type `%s` to `%s`", typeName(value), t)

	if cause != nil {
		return err.Wrap(cause)
	}

	return err
}

func typeName(value any) string {
	if value == nil {
		return "null"
	}

	return reflect.TypeOf(value).String()
}
