package lib

import (
	"context"
	"reflect"
	"slices"
	"strings"

	"github.com/expr-lang/expr/vm/runtime"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

func arrayNamespace(cfg *config) *Namespace {
	return newNamespace("array",
		call.Define("array.add", arrayAdd,
			call.Required("list"), call.Required("value")),
		call.Define("array.compact", arrayCompact,
			call.Required("list")),
		call.Define("array.contains", arrayContains,
			call.Required("list"), call.Required("item")),
		call.Define("array.first", arrayFirst,
			call.Required("list")),
		call.Define("array.insert_at", arrayInsertAt,
			call.Required("list"), call.Required("index"), call.Required("value")),
		call.Define("array.join", arrayJoin,
			call.Required("list"), call.Required("delimiter")),
		call.Define("array.last", arrayLast,
			call.Required("list")),
		call.Define("array.limit", arrayLimit,
			call.Required("list"), call.Required("count")),
		call.Define("array.offset", arrayOffset,
			call.Required("list"), call.Required("count")),
		call.Define("array.remove_at", arrayRemoveAt,
			call.Required("list"), call.Required("index")),
		call.Define("array.reverse", arrayReverse,
			call.Required("list")),
		call.Define("array.size", arraySize,
			call.Required("list")),
		call.Define("array.sort", cfg.arraySort,
			call.Required("list"), call.Optional("member", nil)),
		call.Define("array.uniq", arrayUniq,
			call.Required("list")),
	)
}

func arrayOffset(ctx context.Context, a call.Args) (any, error) {
	l, ok, err := list(ctx, a, 0)
	if err != nil || !ok {
		return a.At(0), err
	}

	n, err := argAs[int](a, 1)
	if err != nil {
		return nil, err
	}

	n = max(0, min(n, len(l)))

	return slices.Clone(l[n:]), nil
}

func arrayLimit(ctx context.Context, a call.Args) (any, error) {
	l, ok, err := list(ctx, a, 0)
	if err != nil || !ok {
		return a.At(0), err
	}

	n, err := argAs[int](a, 1)
	if err != nil {
		return nil, err
	}

	n = max(0, min(n, len(l)))

	return slices.Clone(l[:n]), nil
}

func (c *config) arraySort(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(l)
	if out == nil {
		out = []any{}
	}

	if m := a.At(1); m != nil {
		name, err := cast.ToStringE(m)
		if err != nil {
			return nil, diag.Errorf(diag.KindTypeCoercion,
				"Unable to convert type `%T` to `string`", m)
		}

		keys := make(map[int]any, len(out))

		for i, v := range out {
			if v == nil {
				continue
			}

			k, _, err := c.members.Get(v, name, nil)
			if err != nil {
				return nil, err
			}

			keys[i] = k
		}

		// Sort indices so keys stay paired with their elements.
		idx := make([]int, len(out))
		for i := range idx {
			idx[i] = i
		}

		slices.SortStableFunc(idx, func(i, j int) int { return compare(keys[i], keys[j]) })

		sorted := make([]any, len(out))
		for i, j := range idx {
			sorted[i] = out[j]
		}

		return sorted, nil
	}

	slices.SortStableFunc(out, compare)

	return out, nil
}

func arrayContains(ctx context.Context, a call.Args) (bool, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return false, err
	}

	item := a.At(1)

	return slices.ContainsFunc(l, func(e any) bool { return matches(e, item) }), nil
}

func arrayAdd(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	out := make([]any, len(l), len(l)+1)
	copy(out, l)

	return append(out, a.At(1)), nil
}

func arraySize(ctx context.Context, a call.Args) (int, error) {
	l, _, err := list(ctx, a, 0)

	return len(l), err
}

func arrayFirst(ctx context.Context, a call.Args) (any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil || len(l) == 0 {
		return nil, err
	}

	return l[0], nil
}

func arrayLast(ctx context.Context, a call.Args) (any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil || len(l) == 0 {
		return nil, err
	}

	return l[len(l)-1], nil
}

func arrayJoin(ctx context.Context, a call.Args) (string, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return "", err
	}

	sep, err := text(a, 1)
	if err != nil {
		return "", err
	}

	parts := make([]string, len(l))

	for i, v := range l {
		if v == nil {
			continue
		}

		if parts[i], err = cast.ToStringE(v); err != nil {
			return "", diag.Errorf(diag.KindTypeCoercion,
				"Unable to convert type `%T` to `string`", v)
		}
	}

	return strings.Join(parts, sep), nil
}

func arrayReverse(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	out := slices.Clone(l)
	slices.Reverse(out)

	return out, nil
}

func arrayUniq(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(l))

	for _, v := range l {
		if !slices.ContainsFunc(out, func(e any) bool { return equal(e, v) }) {
			out = append(out, v)
		}
	}

	return out, nil
}

func arrayCompact(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	out := make([]any, 0, len(l))

	for _, v := range l {
		if v != nil {
			out = append(out, v)
		}
	}

	return out, nil
}

func arrayInsertAt(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	i, err := argAs[int](a, 1)
	if err != nil {
		return nil, err
	}

	if i < 0 {
		i += len(l) + 1
	}

	if i < 0 {
		return nil, diag.Errorf(diag.KindArgumentRange,
			"index `%d` is out of range for a list of %d elements", i, len(l))
	}

	out := slices.Clone(l)
	for len(out) < i {
		out = append(out, nil)
	}

	return slices.Insert(out, i, a.At(2)), nil
}

func arrayRemoveAt(ctx context.Context, a call.Args) ([]any, error) {
	l, _, err := list(ctx, a, 0)
	if err != nil {
		return nil, err
	}

	i, err := argAs[int](a, 1)
	if err != nil {
		return nil, err
	}

	if i < 0 {
		i += len(l)
	}

	out := slices.Clone(l)
	if i < 0 || i >= len(l) {
		return out, nil
	}

	return slices.Delete(out, i, i+1), nil
}

// matches reports whether element e equals item. Enumerations also match
// their name and their integer value.
func matches(e, item any) bool {
	if equal(e, item) {
		return true
	}

	if name, n, ok := enumValue(e); ok && enumMatch(name, n, item) {
		return true
	}

	if name, n, ok := enumValue(item); ok && enumMatch(name, n, e) {
		return true
	}

	return false
}

func enumMatch(name string, n int64, v any) bool {
	if s, ok := v.(string); ok {
		return s == name
	}

	if _, _, ok := enumValue(v); ok {
		return false
	}

	return isNumber(v) && equal(n, number(v))
}

// equal compares values with the expression runtime, so numbers compare
// by value across kinds.
func equal(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = reflect.DeepEqual(a, b)
		}
	}()

	return runtime.Equal(number(a), number(b))
}

// number converts decimals to float64 and leaves everything else alone.
func number(v any) any {
	if d, ok := v.(decimal.Decimal); ok {
		return d.InexactFloat64()
	}

	return v
}

// rank orders values of different kinds: null, bool, number, string, other.
func rank(v any) int {
	switch {
	case v == nil:
		return 0
	case isNumber(v):
		return 2
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Bool:
		return 1
	case reflect.String:
		return 3
	default:
		return 4
	}
}

// compare orders a and b for sorting. It never fails: values that cannot be
// ordered compare equal and keep their relative order.
func compare(a, b any) (c int) {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		return ra - rb
	}

	switch ra {
	case 0, 4:
		return 0
	case 1:
		x, y := reflect.ValueOf(a).Bool(), reflect.ValueOf(b).Bool()
		switch {
		case x == y:
			return 0
		case y:
			return -1
		default:
			return 1
		}
	case 3:
		return strings.Compare(reflect.ValueOf(a).String(), reflect.ValueOf(b).String())
	}

	defer func() {
		if recover() != nil {
			c = 0
		}
	}()

	x, y := number(a), number(b)

	switch {
	case runtime.Less(x, y):
		return -1
	case runtime.Less(y, x):
		return 1
	default:
		return 0
	}
}
