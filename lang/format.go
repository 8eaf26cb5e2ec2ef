package lang

import (
	"context"
	"fmt"
	"iter"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ardnew/stencil/call"
)

// Format renders v the way a template prints it.
func Format(v any) string { return format(v) }

func format(v any) string {
	var sb strings.Builder

	writeValue(&sb, v, false)

	return sb.String()
}

func writeValue(sb *strings.Builder, v any, nested bool) {
	switch x := v.(type) {
	case nil, call.Void:
		if nested {
			sb.WriteString("null")
		}

	case string:
		if nested {
			sb.WriteString(strconv.Quote(x))
		} else {
			sb.WriteString(x)
		}

	case bool:
		sb.WriteString(strconv.FormatBool(x))

	case int:
		sb.WriteString(strconv.Itoa(x))

	case int64:
		sb.WriteString(strconv.FormatInt(x, 10))

	case float64:
		sb.WriteString(strconv.FormatFloat(x, 'f', -1, 64))

	case float32:
		sb.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))

	case decimal.Decimal:
		sb.WriteString(x.String())

	case []any:
		writeList(sb, slices.Values(x))

	case map[string]any:
		sb.WriteByte('{')

		for i, k := range slices.Sorted(maps.Keys(x)) {
			if i > 0 {
				sb.WriteString(", ")
			}

			sb.WriteString(k)
			sb.WriteString(": ")
			writeValue(sb, x[k], true)
		}

		sb.WriteByte('}')

	case *call.Sequence:
		writeList(sb, func(yield func(any) bool) {
			for e, err := range x.All() {
				if err != nil || !yield(e) {
					return
				}
			}
		})

	case call.Callable:
		sb.WriteString(call.Signature(x))

	case fmt.Stringer:
		sb.WriteString(x.String())

	case error:
		sb.WriteString(x.Error())

	default:
		rv := reflect.ValueOf(v)

		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
				sb.WriteString(string(rv.Bytes()))

				return
			}

			writeList(sb, func(yield func(any) bool) {
				for i := range rv.Len() {
					if !yield(rv.Index(i).Interface()) {
						return
					}
				}
			})

		default:
			fmt.Fprint(sb, v)
		}
	}
}

func writeList(sb *strings.Builder, items iter.Seq[any]) {
	sb.WriteByte('[')

	i := 0
	for e := range items {
		if i > 0 {
			sb.WriteString(", ")
		}

		writeValue(sb, e, true)

		i++
	}

	sb.WriteByte(']')
}

// settle drains every Sequence reachable from v, including those nested in
// lists and maps, so that faults raised while producing elements surface
// before rendering. Containers holding a Sequence are copied.
func settle(ctx context.Context, v any) (any, error) {
	out, _, err := drain(ctx, v)

	return out, err
}

// drain is settle reporting whether v was replaced.
func drain(ctx context.Context, v any) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	switch x := v.(type) {
	case *call.Sequence:
		out := []any{}

		for e, err := range x.All() {
			if err != nil {
				return nil, false, err
			}

			if e, _, err = drain(ctx, e); err != nil {
				return nil, false, err
			}

			out = append(out, e)
		}

		return out, true, nil

	case []any:
		return drainList(ctx, x)

	case map[string]any:
		return drainMap(ctx, x)
	}

	rv := reflect.ValueOf(v)

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() != reflect.Interface {
			return v, false, nil
		}

		list := make([]any, rv.Len())
		for i := range list {
			list[i] = rv.Index(i).Interface()
		}

		if out, changed, err := drainList(ctx, list); err != nil || changed {
			return out, changed, err
		}

	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String ||
			rv.Type().Elem().Kind() != reflect.Interface {
			return v, false, nil
		}

		m := make(map[string]any, rv.Len())
		for it := rv.MapRange(); it.Next(); {
			m[it.Key().String()] = it.Value().Interface()
		}

		if out, changed, err := drainMap(ctx, m); err != nil || changed {
			return out, changed, err
		}
	}

	return v, false, nil
}

func drainList(ctx context.Context, list []any) (any, bool, error) {
	var out []any

	for i, e := range list {
		d, changed, err := drain(ctx, e)
		if err != nil {
			return nil, false, err
		}

		if changed && out == nil {
			out = slices.Clone(list)
		}

		if out != nil {
			out[i] = d
		}
	}

	if out == nil {
		return list, false, nil
	}

	return out, true, nil
}

func drainMap(ctx context.Context, m map[string]any) (any, bool, error) {
	var out map[string]any

	for _, k := range slices.Sorted(maps.Keys(m)) {
		d, changed, err := drain(ctx, m[k])
		if err != nil {
			return nil, false, err
		}

		if changed && out == nil {
			out = maps.Clone(m)
		}

		if out != nil {
			out[k] = d
		}
	}

	if out == nil {
		return m, false, nil
	}

	return out, true, nil
}
