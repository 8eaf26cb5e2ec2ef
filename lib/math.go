package lib

import (
	"context"
	"reflect"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ardnew/stencil/call"
	"github.com/ardnew/stencil/diag"
)

func mathNamespace(cfg *config) *Namespace {
	return newNamespace("math",
		call.Define("math.abs", mathUnary(decimal.Decimal.Abs),
			call.Required("value")),
		call.Define("math.ceil", mathUnary(decimal.Decimal.Ceil),
			call.Required("value")),
		call.Define("math.floor", mathUnary(decimal.Decimal.Floor),
			call.Required("value")),
		call.Define("math.is_number", mathIsNumber,
			call.Required("value")),
		call.Define("math.random", cfg.mathRandom,
			call.Required("min"), call.Required("max")),
		call.Define("math.round", mathRound,
			call.Required("value"), call.Optional("precision", 0)),
		call.Define("math.uuid", mathUUID),
	)
}

func (c *config) mathRandom(_ context.Context, a call.Args) (int, error) {
	lo, err := argAs[int](a, 0)
	if err != nil {
		return 0, err
	}

	hi, err := argAs[int](a, 1)
	if err != nil {
		return 0, err
	}

	if lo >= hi {
		return 0, diag.NewError(diag.KindArgumentRange,
			"minValue must be greater than maxValue")
	}

	// The span is computed unsigned since hi-lo may overflow int. The sum
	// wraps back into [lo, hi).
	return lo + int(c.uint64N(uint64(hi)-uint64(lo))), nil
}

func mathUUID(context.Context, call.Args) (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	return id.String(), nil
}

func mathIsNumber(_ context.Context, a call.Args) (bool, error) {
	return isNumber(a.At(0)), nil
}

func mathUnary(fn func(decimal.Decimal) decimal.Decimal) func(context.Context, call.Args) (any, error) {
	return func(_ context.Context, a call.Args) (any, error) {
		d, err := argAs[decimal.Decimal](a, 0)
		if err != nil {
			return nil, err
		}

		return numberLike(a.At(0), fn(d)), nil
	}
}

func mathRound(_ context.Context, a call.Args) (any, error) {
	d, err := argAs[decimal.Decimal](a, 0)
	if err != nil {
		return nil, err
	}

	places, err := argAs[int32](a, 1)
	if err != nil {
		return nil, err
	}

	return numberLike(a.At(0), d.Round(places)), nil
}

// numberLike returns d as the same kind of number as v: an int for integer
// input, the decimal itself for decimal input, float64 otherwise.
func numberLike(v any, d decimal.Decimal) any {
	switch {
	case isInteger(v):
		return int(d.IntPart())
	case reflect.TypeOf(v) == reflect.TypeFor[decimal.Decimal]():
		return d
	default:
		return d.InexactFloat64()
	}
}
