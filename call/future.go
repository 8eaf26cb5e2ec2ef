package call

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// Future is a value that completes later.
type Future interface {
	// Await blocks until the future completes or ctx is done.
	Await(ctx context.Context) (any, error)
}

// Void is the result of a future that completes without a value.
// It renders as the empty string.
type Void struct{}

func (Void) String() string { return "" }

// Promise is a single-assignment [Future] of type T.
// The zero value is not usable; use [NewPromise], [Go], [Resolved] or
// [Rejected].
type Promise[T any] struct {
	done chan struct{}
	once sync.Once
	val  T
	err  error
}

// Task is a Promise that completes without a value.
type Task = Promise[Void]

// NewPromise returns an incomplete Promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{done: make(chan struct{})}
}

// Go runs fn on a new goroutine and returns a Promise of its result.
// A panic in fn rejects the Promise.
func Go[T any](fn func() (T, error)) *Promise[T] {
	p := NewPromise[T]()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(recovered(r))
			}
		}()

		p.complete(fn())
	}()

	return p
}

// Resolved returns a Promise completed with v.
func Resolved[T any](v T) *Promise[T] {
	p := NewPromise[T]()
	p.Resolve(v)

	return p
}

// Rejected returns a Promise completed with err.
func Rejected[T any](err error) *Promise[T] {
	p := NewPromise[T]()
	p.Reject(err)

	return p
}

// Resolve completes p with v. It reports false if p was already complete.
func (p *Promise[T]) Resolve(v T) bool { return p.complete(v, nil) }

// Reject completes p with err. It reports false if p was already complete.
func (p *Promise[T]) Reject(err error) bool {
	var zero T

	return p.complete(zero, err)
}

func (p *Promise[T]) complete(v T, err error) (ok bool) {
	p.once.Do(func() {
		p.val, p.err = v, err
		close(p.done)
		ok = true
	})

	return ok
}

// Done returns a channel closed when p completes.
func (p *Promise[T]) Done() <-chan struct{} { return p.done }

// Get blocks until p completes or ctx is done.
// A nil Promise completes immediately with the zero value.
func (p *Promise[T]) Get(ctx context.Context) (T, error) {
	var zero T

	if p == nil {
		return zero, nil
	}

	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		return zero, context.Cause(ctx)
	}
}

// Await implements [Future].
func (p *Promise[T]) Await(ctx context.Context) (any, error) {
	v, err := p.Get(ctx)
	if err != nil {
		return nil, err
	}

	return v, nil
}

// ResultType returns T. It may be called on a nil *Promise.
func (*Promise[T]) ResultType() reflect.Type { return reflect.TypeFor[T]() }

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("%v", r)
}
