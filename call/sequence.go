package call

import (
	"iter"
	"reflect"
	"sync"

	"github.com/ardnew/stencil/diag"
)

// ErrConsumed is returned when a [Sequence] is consumed a second time.
var ErrConsumed = diag.NewError(diag.KindRuntimeInvocation, "sequence already consumed")

// Sequence is a one-shot, forward-only lazy sequence.
//
// Elements are produced on demand. A fault raised by the producer surfaces
// from [Sequence.Next] or [Sequence.All] at the point of iteration.
type Sequence struct {
	mu   sync.Mutex
	src  iter.Seq2[any, error]
	next func() (any, error, bool)
	stop func()
	used bool
	done bool
}

// NewSequence wraps src in a Sequence.
func NewSequence(src iter.Seq2[any, error]) *Sequence {
	if src == nil {
		src = func(func(any, error) bool) {}
	}

	return &Sequence{src: src}
}

// SequenceOf adapts v into a Sequence. It accepts *Sequence,
// iter.Seq[T], iter.Seq2[T, error], and receive channels.
func SequenceOf(v any) (*Sequence, bool) {
	switch x := v.(type) {
	case *Sequence:
		return x, x != nil
	case iter.Seq2[any, error]:
		return NewSequence(x), true
	case iter.Seq[any]:
		return NewSequence(func(yield func(any, error) bool) {
			for e := range x {
				if !yield(e, nil) {
					return
				}
			}
		}), true
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() || !IsSequenceType(rv.Type()) {
		return nil, false
	}

	if rv.IsNil() {
		return NewSequence(nil), true
	}

	if rv.Kind() == reflect.Chan {
		return NewSequence(func(yield func(any, error) bool) {
			for {
				e, ok := rv.Recv()
				if !ok || !yield(e.Interface(), nil) {
					return
				}
			}
		}), true
	}

	yt := rv.Type().In(0)

	return NewSequence(func(yield func(any, error) bool) {
		fn := reflect.MakeFunc(yt, func(in []reflect.Value) []reflect.Value {
			var err error
			if len(in) == 2 && !in[1].IsNil() {
				err, _ = in[1].Interface().(error)
			}

			return []reflect.Value{reflect.ValueOf(yield(in[0].Interface(), err))}
		})

		rv.Call([]reflect.Value{fn})
	}), true
}

// Next returns the next element. It reports false once the sequence is
// exhausted or has faulted.
func (s *Sequence) Next() (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.used = true

	return s.pull()
}

// Stop releases the producer. Further calls to Next report exhaustion.
func (s *Sequence) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.finish()
}

// All returns an iterator over the remaining elements and stops the
// producer when iteration ends. A Sequence can be ranged over once: a second
// call yields [ErrConsumed].
func (s *Sequence) All() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		s.mu.Lock()
		used := s.used
		s.used = true
		s.mu.Unlock()

		if used {
			yield(nil, ErrConsumed)

			return
		}

		defer s.Stop()

		for {
			s.mu.Lock()
			v, ok, err := s.pull()
			s.mu.Unlock()

			if err != nil {
				yield(nil, err)

				return
			}

			if !ok || !yield(v, nil) {
				return
			}
		}
	}
}

// pull must be called with s.mu held.
func (s *Sequence) pull() (v any, ok bool, err error) {
	if s.done {
		return nil, false, nil
	}

	if s.next == nil {
		s.next, s.stop = iter.Pull2(s.src)
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				v, err, ok = nil, recovered(r), true
			}
		}()

		v, err, ok = s.next()
	}()

	switch {
	case !ok:
		s.finish()

		return nil, false, nil

	case err != nil:
		s.finish()

		return nil, false, diag.WrapError(err)
	}

	return v, true, nil
}

func (s *Sequence) finish() {
	if s.done {
		return
	}

	s.done = true

	if s.stop != nil {
		defer func() { _ = recover() }()

		s.stop()
	}
}
