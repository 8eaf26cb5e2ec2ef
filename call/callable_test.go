package call

import (
	"context"
	"iter"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ardnew/stencil/diag"
)

func TestDefine_Metadata(t *testing.T) {
	f := Define("string.index_of",
		func(context.Context, Args) (int, error) { return 0, nil },
		Required("text"),
		Required("search"),
		Optional("start_index", nil),
		Optional("count", nil),
		Optional("string_comparison", nil),
	)

	assert.Equal(t, "string.index_of", f.Name())
	assert.Equal(t, 5, f.ParameterCount())
	assert.Equal(t, 2, f.RequiredParameterCount())
	assert.Equal(t, VariadicNone, f.VariadicKind())
	assert.Equal(t, ShapeValue, f.ReturnShape())

	p, err := f.ParameterInfo(2)
	require.NoError(t, err)
	assert.Equal(t, "start_index", p.Name)
	assert.True(t, p.HasDefault)

	for _, i := range []int{-1, 5} {
		_, err = f.ParameterInfo(i)
		assert.ErrorIs(t, err, diag.ErrIndex)
	}

	assert.Equal(t,
		"string.index_of(text, search, start_index = null, count = null, string_comparison = null)",
		Signature(f))
}

func TestDefine_Spread(t *testing.T) {
	f := Define("join", func(context.Context, Args) (string, error) { return "", nil },
		Required("sep"), Spread("parts"))

	assert.Equal(t, VariadicTrailingSpread, f.VariadicKind())
	assert.Equal(t, 2, f.ParameterCount())
	assert.Equal(t, 1, f.RequiredParameterCount())
	assert.Equal(t, "join(sep, parts...)", Signature(f))
}

func TestDefine_PanicsOnMalformedParams(t *testing.T) {
	noop := func(context.Context, Args) (any, error) { return nil, nil }

	assert.Panics(t, func() { Define("f", noop, Optional("a", 1), Required("b")) })
	assert.Panics(t, func() { Define("f", noop, Spread("a"), Required("b")) })
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want ReturnShape
	}{
		{"int", reflect.TypeFor[int](), ShapeValue},
		{"any", reflect.TypeFor[any](), ShapeValue},
		{"slice", reflect.TypeFor[[]string](), ShapeValue},
		{"promise", reflect.TypeFor[*Promise[string]](), ShapeFuture},
		{"task", reflect.TypeFor[*Task](), ShapeFuture},
		{"future interface", reflect.TypeFor[Future](), ShapeFuture},
		{"seq", reflect.TypeFor[iter.Seq[string]](), ShapeLazySequence},
		{"seq2 error", reflect.TypeFor[iter.Seq2[int, error]](), ShapeLazySequence},
		{"seq2 other", reflect.TypeFor[iter.Seq2[int, string]](), ShapeValue},
		{"recv chan", reflect.TypeFor[<-chan int](), ShapeLazySequence},
		{"send chan", reflect.TypeFor[chan<- int](), ShapeValue},
		{"sequence", reflect.TypeFor[*Sequence](), ShapeLazySequence},
		{"promise of seq", reflect.TypeFor[*Promise[iter.Seq[string]]](), ShapeLazySequence},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.typ))
		})
	}

	assert.True(t, IsVoidFuture(reflect.TypeFor[*Task]()))
	assert.False(t, IsVoidFuture(reflect.TypeFor[*Promise[string]]()))
}
