package lib

import (
	"context"
	"math"
	"math/rand/v2"
	"slices"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

type rank100 int

const (
	First  rank100 = 100
	Second rank100 = 200
)

func (r rank100) String() string {
	switch r {
	case First:
		return "First"
	case Second:
		return "Second"
	}

	return "rank100(" + strconv.Itoa(int(r)) + ")"
}

var site = diag.Site{
	Start: diag.Position{Line: 1, Column: 4},
	End:   diag.Position{Line: 1, Column: 16},
}

func builtin(t *testing.T, name string, opts ...Option) call.Callable {
	t.Helper()

	for _, ns := range Builtins(opts...) {
		for n, fn := range ns.All() {
			if ns.Name()+"."+n == name {
				return fn
			}
		}
	}

	require.FailNow(t, "no such builtin", name)

	return nil
}

func run(t *testing.T, name string, args ...call.Arg) (any, error) {
	t.Helper()

	return runWith(t, builtin(t, name), args...)
}

func runWith(t *testing.T, fn call.Callable, args ...call.Arg) (any, error) {
	t.Helper()

	bc, err := call.Bind(fn, site, args)
	if err != nil {
		return nil, err
	}

	var inv call.Invoker

	return inv.Invoke(context.Background(), bc)
}

func pos(vs ...any) []call.Arg {
	out := make([]call.Arg, len(vs))
	for i, v := range vs {
		out[i] = call.Positional(v)
	}

	return out
}

func TestBuiltins_Namespaces(t *testing.T) {
	nss := Builtins()

	names := make([]string, len(nss))
	for i, ns := range nss {
		names[i] = ns.Name()

		var fns []string
		for n, fn := range ns.All() {
			fns = append(fns, n)

			assert.Equal(t, ns.Name()+"."+n, fn.Name())
		}

		assert.True(t, slices.IsSorted(fns))
		assert.Equal(t, ns.Len(), len(fns))
	}

	assert.Equal(t, []string{"array", "math", "string"}, names)

	_, ok := nss[2].Lookup("slice")
	assert.True(t, ok)

	_, ok = nss[2].Lookup("nope")
	assert.False(t, ok)
}

func TestArray_OffsetLimit(t *testing.T) {
	v, err := run(t, "array.offset", pos([]any{1, 2, 3}, 1)...)
	require.NoError(t, err)
	assert.Equal(t, []any{2, 3}, v)

	v, err = run(t, "array.offset", pos([]int{1, 2, 3}, 5)...)
	require.NoError(t, err)
	assert.Equal(t, []any{}, v)

	v, err = run(t, "array.offset", pos(nil, 1)...)
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = run(t, "array.limit", pos([]any{1, 2, 3}, 2)...)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, v)

	v, err = run(t, "array.limit", pos(nil, 2)...)
	require.NoError(t, err)
	assert.Nil(t, v)

	seq := call.NewSequence(func(yield func(any, error) bool) {
		for i := range 5 {
			if !yield(i, nil) {
				return
			}
		}
	})

	v, err = run(t, "array.limit", pos(seq, 2)...)
	require.NoError(t, err)
	assert.Equal(t, []any{0, 1}, v)
}

func TestArray_Sort(t *testing.T) {
	in := []any{"b", 3, nil, 1.5, true, "a", 2}

	v, err := run(t, "array.sort", pos(in)...)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, true, 1.5, 2, 3, "a", "b"}, v)
	assert.Equal(t, "b", in[0])

	v, err = run(t, "array.sort", pos([]any{2, 1})...)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, v)

	people := []any{
		map[string]any{"name": "zed", "age": 30},
		map[string]any{"name": "amy", "age": 41},
	}

	v, err = run(t, "array.sort", call.Positional(people), call.Named("member", "name"))
	require.NoError(t, err)
	assert.Equal(t, []any{people[1], people[0]}, v)
}

func TestArray_Contains(t *testing.T) {
	l := []any{First, "x", 2.5}

	tests := []struct {
		item any
		want bool
	}{
		{"First", true},
		{100, true},
		{First, true},
		{int64(100), true},
		{"Second", false},
		{101, false},
		{Second, false},
		{"x", true},
		{2.5, true},
		{nil, false},
	}

	for _, tt := range tests {
		v, err := run(t, "array.contains", pos(l, tt.item)...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v, "%v", tt.item)
	}

	v, err := run(t, "array.contains", pos([]any{1, 2}, 2.0)...)
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = run(t, "array.contains", pos([]any{"First"}, First)...)
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestArray_Add(t *testing.T) {
	in := []any{1}

	v, err := run(t, "array.add", pos(in, 2)...)
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, v)
	assert.Equal(t, []any{1}, in)

	v, err = run(t, "array.add", pos(nil, "a")...)
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, v)

	_, err = run(t, "array.add", pos("text", 1)...)
	require.ErrorIs(t, err, diag.ErrTypeCoercion)
}

func TestArray_Other(t *testing.T) {
	l := []any{3, nil, 1, 3}

	tests := []struct {
		name string
		args []call.Arg
		want any
	}{
		{"array.size", pos(l), 4},
		{"array.first", pos(l), 3},
		{"array.last", pos(l), 3},
		{"array.first", pos(nil), nil},
		{"array.join", pos([]any{1, "a", nil}, "-"), "1-a-"},
		{"array.reverse", pos([]any{1, 2}), []any{2, 1}},
		{"array.uniq", pos(l), []any{3, nil, 1}},
		{"array.compact", pos(l), []any{3, 1, 3}},
		{"array.insert_at", pos([]any{1, 3}, 1, 2), []any{1, 2, 3}},
		{"array.insert_at", pos([]any{1}, 3, 2), []any{1, nil, nil, 2}},
		{"array.remove_at", pos([]any{1, 2, 3}, -1), []any{1, 2}},
		{"array.remove_at", pos([]any{1}, 5), []any{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := run(t, tt.name, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestString_Slice(t *testing.T) {
	tests := []struct {
		name string
		args []call.Arg
		want string
	}{
		{"string.slice", pos("hello", 1), "ello"},
		{"string.slice", pos("hello", 1, 3), "ell"},
		{"string.slice", pos("hello", -3), "llo"},
		{"string.slice", pos("hello", 9), ""},
		{"string.slice", pos("héllo", 1, 1), "é"},
		{"string.slice1", pos("hello", 1), "e"},
	}

	for _, tt := range tests {
		v, err := run(t, tt.name, tt.args...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v)
	}

	_, err := run(t, "string.slice")
	require.ErrorIs(t, err, diag.ErrArity)
	assert.Equal(t,
		"text(1,16) : error : Invalid number of arguments `0` passed to `string.slice` while expecting `2` arguments",
		err.Error())

	_, err = run(t, "string.slice1", pos("x")...)
	require.ErrorIs(t, err, diag.ErrArity)
	assert.Contains(t, err.Error(), "`1` passed to `string.slice1` while expecting `2`")
}

func TestString_IndexOf(t *testing.T) {
	const s = "The the the the"

	tests := []struct {
		args []call.Arg
		want int
	}{
		{pos(s, "the"), 4},
		{pos(s, "the", 0, 2), -1},
		{pos(s, "the", 6), 8},
		{pos(s, "The", 1), -1},
		{pos(s, ""), 0},
		{
			[]call.Arg{
				call.Positional(s), call.Positional("the"),
				call.Named("string_comparison", "OrdinalIgnoreCase"),
			},
			0,
		},
		{
			[]call.Arg{
				call.Positional(s), call.Positional("THE"),
				call.Named("start_index", 1),
				call.Named("string_comparison", InvariantCultureIgnoreCase),
			},
			4,
		},
		{pos("añb", "b"), 2},
	}

	for _, tt := range tests {
		v, err := run(t, "string.index_of", tt.args...)
		require.NoError(t, err)
		assert.Equal(t, tt.want, v)
	}

	for _, args := range [][]call.Arg{
		pos(s, "the", -1),
		pos(s, "the", 16),
		pos(s, "the", 10, 6),
		pos(s, "the", 0, 1, "Nope"),
	} {
		_, err := run(t, "string.index_of", args...)
		require.ErrorIs(t, err, diag.ErrArgumentRange)
	}
}

func TestString_ReplaceFirst(t *testing.T) {
	const s = "Hello, world. Goodbye, world."

	v, err := run(t, "string.replace_first", pos(s, "world", "buddy")...)
	require.NoError(t, err)
	assert.Equal(t, "Hello, buddy. Goodbye, world.", v)

	v, err = run(t, "string.replace_first",
		call.Positional(s), call.Positional("world"), call.Positional("buddy"),
		call.Named("fromend", true))
	require.NoError(t, err)
	assert.Equal(t, "Hello, world. Goodbye, buddy.", v)

	v, err = run(t, "string.replace_first", pos(s, "moon", "buddy")...)
	require.NoError(t, err)
	assert.Equal(t, s, v)
}

func TestString_Other(t *testing.T) {
	tests := []struct {
		name string
		args []call.Arg
		want any
	}{
		{"string.upcase", pos("straße"), "STRASSE"},
		{"string.downcase", pos("ABC"), "abc"},
		{"string.capitalize", pos("hello world"), "Hello world"},
		{"string.size", pos("héllo"), 5},
		{"string.size", pos(nil), 0},
		{"string.contains", pos("hello", "ell"), true},
		{"string.starts_with", pos("hello", "he"), true},
		{"string.ends_with", pos("hello", "he"), false},
		{"string.replace", pos("a-b-c", "-", "+"), "a+b+c"},
		{"string.split", pos("a,b,,c", ","), []any{"a", "b", "c"}},
		{"string.strip", pos("  x "), "x"},
		{"string.append", pos("a", 1), "a1"},
		{"string.prepend", pos("a", "b"), "ba"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := run(t, tt.name, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, v)
		})
	}
}

func TestMath_Random(t *testing.T) {
	fn := builtin(t, "math.random", WithRand(rand.NewPCG(1, 2)))

	for range 100 {
		v, err := runWith(t, fn, pos(10, 13)...)
		require.NoError(t, err)

		n, ok := v.(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 10)
		assert.Less(t, n, 13)
	}

	_, err := runWith(t, fn, pos(11, 10)...)
	require.ErrorIs(t, err, diag.ErrArgumentRange)
	assert.Equal(t,
		"text(1,4) : error : minValue must be greater than maxValue", err.Error())

	_, err = runWith(t, fn, pos(10, 10)...)
	require.ErrorIs(t, err, diag.ErrArgumentRange)

	for _, bounds := range [][2]int{
		{math.MinInt, math.MaxInt},
		{math.MinInt, 0},
		{-1, math.MaxInt},
		{math.MaxInt - 1, math.MaxInt},
	} {
		for range 50 {
			v, err := runWith(t, fn, pos(bounds[0], bounds[1])...)
			require.NoError(t, err, bounds)

			n, ok := v.(int)
			require.True(t, ok)
			assert.GreaterOrEqual(t, n, bounds[0], bounds)
			assert.Less(t, n, bounds[1], bounds)
		}
	}
}

func TestMath_UUID(t *testing.T) {
	a, err := run(t, "math.uuid")
	require.NoError(t, err)

	b, err := run(t, "math.uuid")
	require.NoError(t, err)

	id, err := uuid.Parse(a.(string))
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
	assert.NotEqual(t, a, b)
}

func TestMath_Numbers(t *testing.T) {
	tests := []struct {
		name string
		args []call.Arg
		want any
	}{
		{"math.abs", pos(-3), 3},
		{"math.abs", pos(-1.5), 1.5},
		{"math.ceil", pos(1.2), 2.0},
		{"math.floor", pos(1.8), 1.0},
		{"math.round", pos(2.345, 2), 2.35},
		{"math.round", pos(2.5), 3.0},
		{"math.round", pos(decimal.RequireFromString("1.25"), 1), decimal.RequireFromString("1.3")},
		{"math.is_number", pos(1), true},
		{"math.is_number", pos("1"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := run(t, tt.name, tt.args...)
			require.NoError(t, err)

			if d, ok := tt.want.(decimal.Decimal); ok {
				assert.True(t, d.Equal(v.(decimal.Decimal)))

				return
			}

			assert.Equal(t, tt.want, v)
		})
	}
}
