package call

import (
	"reflect"
)

var (
	errorType       = reflect.TypeFor[error]()
	futureType      = reflect.TypeFor[Future]()
	resultTyperType = reflect.TypeFor[resultTyper]()
	sequenceType    = reflect.TypeFor[*Sequence]()
	voidType        = reflect.TypeFor[Void]()
)

// resultTyper is implemented by futures that know their result type without
// being awaited.
type resultTyper interface {
	ResultType() reflect.Type
}

// Classify returns the shape of values of the declared type t.
func Classify(t reflect.Type) ReturnShape {
	if t == nil {
		return ShapeValue
	}

	if IsSequenceType(t) {
		return ShapeLazySequence
	}

	if t.Implements(futureType) {
		if r := FutureResultType(t); r != nil && IsSequenceType(r) {
			return ShapeLazySequence
		}

		return ShapeFuture
	}

	return ShapeValue
}

// FutureResultType returns the type a future of type t resolves to, or nil
// when t does not declare it.
func FutureResultType(t reflect.Type) reflect.Type {
	if t == nil || t.Kind() == reflect.Interface || !t.Implements(resultTyperType) {
		return nil
	}

	// Pointer receivers are safe to call on the nil zero value.
	rt, ok := reflect.Zero(t).Interface().(resultTyper)
	if !ok {
		return nil
	}

	return rt.ResultType()
}

// IsVoidFuture reports whether t is a future that resolves to no value.
func IsVoidFuture(t reflect.Type) bool {
	return FutureResultType(t) == voidType
}

// IsSequenceType reports whether t is a lazily produced sequence:
// iter.Seq[T], iter.Seq2[T, error], a receive channel, or *Sequence.
func IsSequenceType(t reflect.Type) bool {
	if t == sequenceType {
		return true
	}

	switch t.Kind() {
	case reflect.Chan:
		return t.ChanDir()&reflect.RecvDir != 0

	case reflect.Func:
		if t.NumIn() != 1 || t.NumOut() != 0 {
			return false
		}

		y := t.In(0)
		if y.Kind() != reflect.Func || y.NumOut() != 1 ||
			y.Out(0).Kind() != reflect.Bool {
			return false
		}

		switch y.NumIn() {
		case 1:
			return true
		case 2:
			return y.In(1) == errorType
		}
	}

	return false
}
