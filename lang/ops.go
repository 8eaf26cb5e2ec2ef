package lang

import (
	"fmt"
	"iter"
	"math"
	"reflect"

	"github.com/expr-lang/expr/vm/runtime"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

// binary applies an infix operator other than the logical ones.
// Values the runtime cannot combine are a type coercion error.
func binary(op string, x, y any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, diag.Errorf(diag.KindTypeCoercion,
				"Operator `%s` cannot be applied to `%s` and `%s`",
				op, typeName(x), typeName(y))
		}
	}()

	if dx, dy, ok := decimals(x, y); ok {
		return decimalOp(op, dx, dy)
	}

	switch op {
	case "+":
		_, sx := x.(string)
		_, sy := y.(string)

		if sx || sy {
			return format(x) + format(y), nil
		}

		return runtime.Add(x, y), nil

	case "-":
		return runtime.Subtract(x, y), nil

	case "*":
		return runtime.Multiply(x, y), nil

	case "/":
		if isZero(y) {
			return nil, divideByZero()
		}

		return runtime.Divide(x, y), nil

	case "//":
		if isZero(y) {
			return nil, divideByZero()
		}

		if isInt(x) && isInt(y) {
			a, b := cast.ToInt(x), cast.ToInt(y)
			q := a / b

			if (a%b != 0) && ((a < 0) != (b < 0)) {
				q--
			}

			return q, nil
		}

		return math.Floor(runtime.Divide(x, y)), nil

	case "%":
		if isZero(y) {
			return nil, divideByZero()
		}

		return runtime.Modulo(x, y), nil

	case "==":
		return equal(x, y), nil

	case "!=":
		return !equal(x, y), nil

	case "<":
		return runtime.Less(x, y), nil

	case "<=":
		return runtime.LessOrEqual(x, y), nil

	case ">":
		return runtime.More(x, y), nil

	case ">=":
		return runtime.MoreOrEqual(x, y), nil
	}

	return nil, diag.Errorf(diag.KindParse, "Unknown operator `%s`", op)
}

// negate applies unary minus.
func negate(x any) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, diag.Errorf(diag.KindTypeCoercion,
				"Operator `-` cannot be applied to `%s`", typeName(x))
		}
	}()

	if d, ok := x.(decimal.Decimal); ok {
		return d.Neg(), nil
	}

	return runtime.Negate(x), nil
}

// equal compares with numeric promotion; nil equals only nil.
func equal(x, y any) bool {
	if x == nil || y == nil {
		return x == nil && y == nil
	}

	if dx, dy, ok := decimals(x, y); ok {
		return dx.Equal(dy)
	}

	eq, ok := func() (eq, ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()

		return runtime.Equal(x, y), true
	}()
	if ok {
		return eq
	}

	return reflect.DeepEqual(x, y)
}

// decimals converts x and y to decimals when either one is a decimal and
// the other is a number.
func decimals(x, y any) (decimal.Decimal, decimal.Decimal, bool) {
	_, dx := x.(decimal.Decimal)
	_, dy := y.(decimal.Decimal)

	if !dx && !dy {
		return decimal.Decimal{}, decimal.Decimal{}, false
	}

	a, errA := toDecimal(x)
	b, errB := toDecimal(y)

	return a, b, errA == nil && errB == nil
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string, bool, nil:
		return decimal.Decimal{}, fmt.Errorf("not a number: %T", v)
	}

	f, err := cast.ToFloat64E(v)
	if err != nil {
		return decimal.Decimal{}, err
	}

	return decimal.NewFromFloat(f), nil
}

func decimalOp(op string, x, y decimal.Decimal) (any, error) {
	switch op {
	case "+":
		return x.Add(y), nil
	case "-":
		return x.Sub(y), nil
	case "*":
		return x.Mul(y), nil
	case "/", "//", "%":
		if y.IsZero() {
			return nil, divideByZero()
		}

		switch op {
		case "/":
			return x.Div(y), nil
		case "//":
			return x.Div(y).Floor(), nil
		}

		return x.Mod(y), nil
	case "==":
		return x.Equal(y), nil
	case "!=":
		return !x.Equal(y), nil
	case "<":
		return x.LessThan(y), nil
	case "<=":
		return x.LessThanOrEqual(y), nil
	case ">":
		return x.GreaterThan(y), nil
	case ">=":
		return x.GreaterThanOrEqual(y), nil
	}

	return nil, diag.Errorf(diag.KindParse, "Unknown operator `%s`", op)
}

// MaxRangeLength is the largest range that may be used as a list value.
// A for loop over a range is bounded by the loop limit instead.
const MaxRangeLength = 1 << 20

// intSpan is an inclusive integer range walked by step.
type intSpan struct {
	first, last, step int
	empty             bool
}

// makeSpan validates the bounds of from..to (or from..<to when exclusive).
func makeSpan(from, to any, exclusive bool) (intSpan, error) {
	a, err := cast.ToIntE(from)
	if err != nil {
		return intSpan{}, diag.Errorf(diag.KindTypeCoercion,
			"Range bound `%s` is not an integer", typeName(from))
	}

	b, err := cast.ToIntE(to)
	if err != nil {
		return intSpan{}, diag.Errorf(diag.KindTypeCoercion,
			"Range bound `%s` is not an integer", typeName(to))
	}

	step := 1
	if b < a {
		step = -1
	}

	if exclusive {
		if a == b {
			return intSpan{empty: true}, nil
		}

		b -= step
	}

	return intSpan{first: a, last: b, step: step}, nil
}

// distance returns the number of steps from first to last. It cannot
// overflow, unlike last-first.
func (s intSpan) distance() uint64 {
	if s.step > 0 {
		return uint64(s.last) - uint64(s.first)
	}

	return uint64(s.first) - uint64(s.last)
}

// all yields the elements of s lazily.
func (s intSpan) all() iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if s.empty {
			return
		}

		for i := s.first; ; i += s.step {
			if !yield(i, nil) || i == s.last {
				return
			}
		}
	}
}

// list materializes s. Ranges longer than MaxRangeLength are rejected.
func (s intSpan) list() ([]any, error) {
	if s.empty {
		return []any{}, nil
	}

	if s.distance() >= MaxRangeLength {
		return nil, diag.Errorf(diag.KindArgumentRange,
			"Range `%d..%d` exceeds the maximum length `%d`",
			s.first, s.last, MaxRangeLength)
	}

	out := make([]any, 0, s.distance()+1)
	for v := range s.all() {
		out = append(out, v)
	}

	return out, nil
}

// truthy reports whether v counts as true in a condition.
func truthy(v any) bool {
	switch x := v.(type) {
	case nil, call.Void:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case decimal.Decimal:
		return !x.IsZero()
	}

	if isInt(v) || isFloat(v) {
		return !isZero(v)
	}

	return true
}

func isInt(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return true
	}

	return false
}

func isFloat(v any) bool {
	switch v.(type) {
	case float32, float64:
		return true
	}

	return false
}

func isZero(v any) bool {
	switch {
	case isInt(v), isFloat(v):
		return cast.ToFloat64(v) == 0
	}

	if d, ok := v.(decimal.Decimal); ok {
		return d.IsZero()
	}

	return false
}

func divideByZero() *diag.Error {
	return diag.NewError(diag.KindArgumentRange, "Cannot divide by zero")
}

func typeName(v any) string {
	if v == nil {
		return "null"
	}

	return fmt.Sprintf("%T", v)
}
