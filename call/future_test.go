package call

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromise(t *testing.T) {
	ctx := context.Background()

	t.Run("resolve once", func(t *testing.T) {
		p := NewPromise[int]()
		assert.True(t, p.Resolve(1))
		assert.False(t, p.Resolve(2))
		assert.False(t, p.Reject(errors.New("late")))

		v, err := p.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, v)
	})

	t.Run("rejected", func(t *testing.T) {
		_, err := Rejected[string](errors.New("bad")).Await(ctx)
		assert.EqualError(t, err, "bad")
	})

	t.Run("go recovers panic", func(t *testing.T) {
		_, err := Go(func() (int, error) { panic(errors.New("boom")) }).Get(ctx)
		assert.EqualError(t, err, "boom")
	})

	t.Run("context done", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		_, err := NewPromise[int]().Get(cctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("done channel", func(t *testing.T) {
		p := Resolved("x")

		select {
		case <-p.Done():
		default:
			t.Fatal("resolved promise not done")
		}
	})

	t.Run("nil promise", func(t *testing.T) {
		var p *Promise[int]

		v, err := p.Get(ctx)
		require.NoError(t, err)
		assert.Zero(t, v)
	})
}
