package lang

import (
	"context"
	"errors"
	"iter"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/member"
)

type host struct {
	TestString string
	Ratio      float64
	Count      int
	Names      []string
}

func (h *host) GetTestString() string { return h.TestString }

func (h *host) Greet(name string) string { return "hello " + name }

func (h *host) Items() iter.Seq[string] {
	return slices.Values([]string{"test", "test2"})
}

func (h *host) ItemsLater() *call.Promise[iter.Seq[string]] {
	return call.Go(func() (iter.Seq[string], error) {
		return slices.Values([]string{"test", "test2"}), nil
	})
}

func (h *host) FailLater() *call.Task {
	return call.Go(func() (call.Void, error) {
		return call.Void{}, errors.New("backend unavailable")
	})
}

func (h *host) Faulty() iter.Seq2[int, error] {
	return func(yield func(int, error) bool) {
		if yield(1, nil) {
			yield(0, errors.New("disk gone"))
		}
	}
}

func (h *host) Twice(v int) *call.Promise[int] {
	return call.Go(func() (int, error) { return v * 2, nil })
}

func render(t *testing.T, e *Engine, source string, globals ...any) (string, error) {
	t.Helper()

	tmpl := Parse(context.Background(), source, WithCache(false))
	require.False(t, tmpl.HasErrors(), tmpl.Messages.String())

	c := e.NewContext()
	for _, g := range globals {
		c.PushGlobal(g)
	}

	return tmpl.Render(context.Background(), c)
}

func TestRender(t *testing.T) {
	e := New()

	tests := []struct {
		name   string
		source string
		model  any
		want   string
	}{
		{"text", "plain text", nil, "plain text"},
		{"pipe", `Hello {{ "world" | string.upcase }}`, nil, "Hello WORLD"},
		{"arithmetic", "{{ 1 + 2 * 3 }}", nil, "7"},
		{"divide", "{{ 7 / 2 }}", nil, "3.5"},
		{"floor divide", "{{ 7 // 2 }}", nil, "3"},
		{"modulo", "{{ 7 % 4 }}", nil, "3"},
		{"concat", `{{ "a" + 1 }}`, nil, "a1"},
		{"compare", "{{ 2 >= 1 }}", nil, "true"},
		{"not", "{{ !true }} {{ not false }}", nil, "false true"},
		{"negative", "{{ -3 | math.abs }}", nil, "3"},
		{"sort", "{{ x = [3, 1, 2]; x | array.sort }}", nil, "[1, 2, 3]"},
		{"sort short circuit", "{{ array.sort([1, 2]) || false }}", nil, "true"},
		{"short circuit before call", "{{ [1,2] || array.sort }}", nil, "true"},
		{"command", `{{ string.slice "hello" 1 3 }}`, nil, "ell"},
		{"command after pipe", `{{ "hello" | string.slice 1 3 }}`, nil, "ell"},
		{"paren call", `{{ string.slice("hello", 1, length: 3) }}`, nil, "ell"},
		{"named", `{{ string.replace_first "a-b-a" "a" "x" fromend: true }}`, nil, "a-b-x"},
		{"list size", "{{ [1, 2].size }}", nil, "2"},
		{"array arg", "{{ array.size [1, 2, 3] }}", nil, "3"},
		{"index", "{{ x = [1, 2, 3]; x[-1] }}", nil, "3"},
		{"index out of range", "{{ x = [1]; x[5] }}", nil, ""},
		{"range", "{{ for i in 1..3 }}{{ i }},{{ end }}", nil, "1,2,3,"},
		{"exclusive range", "{{ for i in 1..<3 }}{{ i }}{{ end }}", nil, "12"},
		{"else if", "{{ if 1 > 2 }}a{{ else if 2 > 1 }}b{{ else }}c{{ end }}", nil, "b"},
		{"break", "{{ for x in [1, 2, 3, 4] }}{{ if x == 3 }}{{ break }}{{ end }}{{ x }}{{ end }}", nil, "12"},
		{"continue", "{{ for x in [1, 2, 3] }}{{ if x == 2; continue; end }}{{ x }}{{ end }}", nil, "13"},
		{"loop info", "{{ for x in ['a', 'b'] }}{{ for.index }}{{ x }}{{ end }}", nil, "0a1b"},
		{"comment", "{{ # ignored\n 1 }}", nil, "1"},
		{"trim", "a  {{- 1 -}}  b", nil, "a1b"},
		{"assign", "{{ x = 1 }}{{ x = x + 1 }}{{ x }}", nil, "2"},
		{"null", "[{{ null }}]", nil, "[]"},
		{"globals", "{{ name }}", map[string]any{"name": "gopher"}, "gopher"},
		{"map loop", "{{ for e in data }}{{ e.key }}={{ e.value }};{{ end }}",
			map[string]any{"data": map[string]any{"b": 2, "a": 1}}, "a=1;b=2;"},
		{"host method", "{{ get_test_string }}", &host{TestString: "x"}, "x"},
		{"host field", "{{ test_string | string.upcase }}", &host{TestString: "x"}, "X"},
		{"host call", `{{ greet "bob" }}`, &host{}, "hello bob"},
		{"host future", "{{ twice 21 }}", &host{}, "42"},
		{"host sequence", "{{ for x in items }}{{ x }}{{ end }}", &host{}, "testtest2"},
		{"host list", "{{ names | array.join ',' }}", &host{Names: []string{"a", "b"}}, "a,b"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var globals []any
			if tt.model != nil {
				globals = append(globals, tt.model)
			}

			got, err := render(t, e, tt.source, globals...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRender_Diagnostics(t *testing.T) {
	e := New()

	tests := []struct {
		name   string
		source string
		want   string
		kind   error
	}{
		{
			"missing arguments",
			"{{ string.slice }}",
			"text(1,16) : error : Invalid number of arguments `0` passed to `string.slice` while expecting `2` arguments",
			diag.ErrArity,
		},
		{
			"missing arguments with default",
			"{{ string.slice1 }}",
			"text(1,17) : error : Invalid number of arguments `0` passed to `string.slice1` while expecting `2` arguments",
			diag.ErrArity,
		},
		{
			"one argument",
			`{{ string.slice "a" }}`,
			"text(1,16) : error : Invalid number of arguments `1` passed to `string.slice` while expecting `2` arguments",
			diag.ErrArity,
		},
		{
			"too many arguments",
			`{{ string.upcase "a" "b" }}`,
			"text(1,17) : error : Invalid number of arguments `2` passed to `string.upcase` while expecting `1` arguments",
			diag.ErrArity,
		},
		{
			"argument range",
			"{{ math.random 11 10 }}",
			"text(1,4) : error : minValue must be greater than maxValue",
			diag.ErrArgumentRange,
		},
		{
			"unknown named argument",
			`{{ string.upcase text: "a" nope: 1 }}`,
			"text(1,28) : error : Unknown named argument `nope` passed to `string.upcase`",
			diag.ErrBinding,
		},
		{
			"unknown function",
			"{{ nope(1) }}",
			"text(1,4) : error : Unknown function `nope`",
			diag.ErrBinding,
		},
		{
			"unknown namespace member",
			"{{ array.nope }}",
			"text(1,4) : error : `array` has no function `nope`",
			diag.ErrBinding,
		},
		{
			"second line",
			"line\n  {{ string.slice }}",
			"text(2,18) : error : Invalid number of arguments `0` passed to `string.slice` while expecting `2` arguments",
			diag.ErrArity,
		},
		{
			"operator",
			"{{ [1] - 1 }}",
			"text(1,4) : error : Operator `-` cannot be applied to `[]interface {}` and `int`",
			diag.ErrTypeCoercion,
		},
		{
			"divide by zero",
			"{{ 1 / 0 }}",
			"text(1,4) : error : Cannot divide by zero",
			diag.ErrArgumentRange,
		},
		{
			"iterate",
			"{{ for x in 1 }}{{ end }}",
			"text(1,13) : error : Cannot iterate over a value of type `int`",
			diag.ErrTypeCoercion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := render(t, e, tt.source)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestRender_HostFaults(t *testing.T) {
	e := New()

	t.Run("future", func(t *testing.T) {
		_, err := render(t, e, "ok {{ fail_later }}", &host{})
		require.Error(t, err)
		assert.ErrorIs(t, err, diag.ErrRuntimeInvocation)
		assert.Equal(t, "text(1,7) : error : backend unavailable", err.Error())
	})

	t.Run("sequence", func(t *testing.T) {
		for _, src := range []string{"{{ faulty }}", "{{ [faulty] }}", "{{ [[1], [faulty]] }}"} {
			_, err := render(t, e, src, &host{})
			require.Error(t, err, src)
			assert.ErrorIs(t, err, diag.ErrRuntimeInvocation, src)
			assert.Equal(t, "text(1,4) : error : disk gone", err.Error(), src)
		}
	})

	t.Run("sequence in map", func(t *testing.T) {
		c := e.NewContext()
		bad := call.NewSequence(func(yield func(any, error) bool) {
			for v, err := range (&host{}).Faulty() {
				if !yield(v, err) {
					return
				}
			}
		})
		c.SetValue("m", map[string]any{"ok": 1, "bad": bad})

		_, err := Parse(context.Background(), "{{ m }}").Render(context.Background(), c)
		require.Error(t, err)
		assert.Equal(t, "text(1,4) : error : disk gone", err.Error())
	})

	t.Run("missing member", func(t *testing.T) {
		h := &host{}

		c := e.NewContext()
		c.SetValue("h", h)

		_, err := Parse(context.Background(), "{{ h.nope }}").Render(context.Background(), c)
		require.Error(t, err)
		assert.ErrorIs(t, err, diag.ErrBinding)
		assert.Equal(t, "text(1,4) : error : `*lang.host` has no member `nope`", err.Error())
	})
}

func TestRender_FutureOfSequence(t *testing.T) {
	e := New()

	for _, async := range []bool{false, true} {
		c := e.NewContext()
		c.PushGlobal(&host{})

		tmpl := Parse(context.Background(), "{{ for x in items_later }}{{ x }}{{ end }}")

		var (
			got string
			err error
		)

		if async {
			got, err = tmpl.RenderAsync(context.Background(), c).Get(context.Background())
		} else {
			got, err = tmpl.Render(context.Background(), c)
		}

		require.NoError(t, err)
		assert.Equal(t, "testtest2", got)
	}
}

func TestRender_AsyncParity(t *testing.T) {
	e := New(WithRand(rand.NewPCG(1, 2)))

	sources := []string{
		"{{ twice 4 }}-{{ get_test_string | string.upcase }}",
		"{{ for x in items }}{{ x | string.size }}{{ end }}",
		"{{ for i in 1..3 }}{{ twice i }} {{ end }}",
		"{{ fail_later }}",
		"{{ string.slice }}",
	}

	for _, src := range sources {
		tmpl := Parse(context.Background(), src)

		c := e.NewContext()
		c.PushGlobal(&host{TestString: "go"})

		want, wantErr := tmpl.Render(context.Background(), c)

		c = e.NewContext()
		c.PushGlobal(&host{TestString: "go"})

		got, gotErr := tmpl.RenderAsync(context.Background(), c).Get(context.Background())

		assert.Equal(t, want, got, src)

		if wantErr == nil {
			assert.NoError(t, gotErr, src)
		} else {
			require.Error(t, gotErr, src)
			assert.Equal(t, wantErr.Error(), gotErr.Error(), src)
		}
	}
}

func TestRender_Assignment(t *testing.T) {
	e := New()
	h := &host{}

	c := e.NewContext()
	c.SetValue("h", h)

	got, err := Parse(context.Background(), "{{ h.ratio = 42.0 }}{{ h.ratio }}").
		Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "42", got)
	assert.InDelta(t, 42.0, h.Ratio, 0)

	v, ok, err := e.Members().Get(h, "ratio", nil)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	got, err = Parse(context.Background(), `{{ h.count = "7"; h.count + 1 }}`).
		Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "8", got)

	_, err = Parse(context.Background(), "{{ h.get_test_string = 1 }}").
		Render(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, diag.ErrBinding)

	m := map[string]any{"a": 1}
	c.SetValue("m", m)

	_, err = Parse(context.Background(), `{{ m.b = 2; m["c"] = 3 }}`).
		Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "c": 3}, m)
}

func TestRender_Renamer(t *testing.T) {
	e := New()
	h := &host{TestString: "id"}

	c := e.NewContext()
	c.PushGlobal(h)
	c.SetRenamer(member.IdentityRenamer)

	got, err := Parse(context.Background(), "{{ GetTestString }}").Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "id", got)

	c.SetRenamer(nil)

	got, err = Parse(context.Background(), "{{ get_test_string }}").Render(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "id", got)

	lower := member.NewRenamer("lower", strings.ToLower)
	e = New(WithRenamer(lower))

	got, err = e.Render(context.Background(), "{{ getteststring }}", h)
	require.NoError(t, err)
	assert.Equal(t, "id", got)
}

func TestRender_LoopLimit(t *testing.T) {
	e := New(WithLoopLimit(3))

	_, err := render(t, e, "{{ for i in 1..5 }}{{ i }}{{ end }}")
	require.Error(t, err)
	assert.ErrorIs(t, err, diag.ErrRuntimeInvocation)
	assert.Equal(t,
		"text(1,4) : error : Exceeding number of iteration limit `3` for loop statement",
		err.Error())

	got, err := render(t, e, "{{ for i in 1..3 }}{{ i }}{{ end }}")
	require.NoError(t, err)
	assert.Equal(t, "123", got)

	for _, src := range []string{
		"{{ for i in 0..4611686018427387903 }}{{ i }}{{ end }}",
		"{{ for i in 10000000000..<0 }}{{ i }}{{ end }}",
	} {
		_, err := render(t, e, src)
		require.Error(t, err, src)
		assert.ErrorIs(t, err, diag.ErrRuntimeInvocation, src)
		assert.Contains(t, err.Error(), "iteration limit `3`", src)
	}
}

func TestRender_RangeLength(t *testing.T) {
	e := New(WithLoopLimit(10))

	for _, src := range []string{
		"{{ x = 0..10000000000 }}",
		"{{ 0..4611686018427387903 | array.size }}",
	} {
		tmpl := Parse(context.Background(), src, WithCache(false))
		require.False(t, tmpl.HasErrors(), tmpl.Messages.String())

		_, err := tmpl.Render(context.Background(), e.NewContext())
		require.Error(t, err, src)
		assert.ErrorIs(t, err, diag.ErrArgumentRange, src)
		assert.Contains(t, err.Error(), "exceeds the maximum length", src)

		_, asyncErr := tmpl.RenderAsync(context.Background(), e.NewContext()).Get(context.Background())
		require.Error(t, asyncErr, src)
		assert.Equal(t, err.Error(), asyncErr.Error(), src)
	}

	got, err := render(t, e, "{{ (1..20) | array.size }}")
	require.NoError(t, err)
	assert.Equal(t, "20", got)
}

func TestEngine_WithFunction(t *testing.T) {
	double := call.Define("double", func(_ context.Context, a call.Args) (int, error) {
		n, _ := a.At(0).(int)

		return n * 2, nil
	}, call.Required("value"))

	e := New(WithFunction(double))

	got, err := render(t, e, "{{ double 21 }} {{ 4 | double }}")
	require.NoError(t, err)
	assert.Equal(t, "42 8", got)

	names := make([]string, 0)
	for _, fn := range e.Functions() {
		names = append(names, fn.Name())
	}

	assert.True(t, slices.IsSorted(names))
	assert.Contains(t, names, "double")
	assert.Contains(t, names, "string.slice")
}

func TestEngine_Concurrent(t *testing.T) {
	e := New()
	tmpl := Parse(context.Background(), "{{ get_test_string | string.upcase }}")

	var wg sync.WaitGroup

	for i := range 16 {
		wg.Go(func() {
			c := e.NewContext()
			c.PushGlobal(&host{TestString: strings.Repeat("a", i)})

			got, err := tmpl.Render(context.Background(), c)
			assert.NoError(t, err)
			assert.Equal(t, strings.Repeat("A", i), got)
		})
	}

	wg.Wait()
}
