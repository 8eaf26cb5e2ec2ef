package call

import (
	"context"
	"log/slog"
	"time"

	"github.com/ardnew/stencil/diag"
	"github.com/ardnew/stencil/log"
)

// Invoker executes bound calls and normalizes their results by return shape.
// The zero value is ready to use and does not log.
type Invoker struct {
	logger log.Logger
}

// NewInvoker returns an Invoker that logs through logger.
func NewInvoker(logger log.Logger) *Invoker {
	return &Invoker{logger: logger}
}

// Invoke runs bc and blocks until its result is settled.
//
// A Future result is awaited; a future without a value yields [Void]. A lazy
// sequence result is returned as a one-shot [*Sequence]. Any error or panic
// raised by the callee is returned as a [diag.ErrRuntimeInvocation] located
// at the call site, unless it already carries another kind.
func (inv *Invoker) Invoke(ctx context.Context, bc BoundCall) (any, error) {
	start := time.Now()

	v, err := inv.invoke(ctx, bc)

	inv.logger.TraceContext(ctx, "invoke",
		slog.String("callable", bc.callable.Name()),
		slog.String("shape", bc.callable.ReturnShape().String()),
		slog.Int("args", len(bc.args)),
		slog.Duration("elapsed", time.Since(start)),
		slog.Bool("ok", err == nil),
	)

	if err != nil {
		inv.logger.DebugContext(ctx, "invoke failed",
			slog.String("callable", bc.callable.Name()),
			slog.Any("error", err),
		)
	}

	return v, err
}

// InvokeAsync runs bc without blocking the caller. The returned Promise
// settles with the same value or error [Invoker.Invoke] would return.
func (inv *Invoker) InvokeAsync(ctx context.Context, bc BoundCall) *Promise[any] {
	return Go(func() (any, error) { return inv.Invoke(ctx, bc) })
}

func (inv *Invoker) invoke(ctx context.Context, bc BoundCall) (any, error) {
	raw, err := inv.call(ctx, bc)
	if err != nil {
		return nil, err
	}

	switch bc.callable.ReturnShape() {
	case ShapeFuture:
		v, err := await(ctx, raw)
		if err != nil {
			return nil, fault(bc, err)
		}

		return v, nil

	case ShapeLazySequence:
		v, err := await(ctx, raw)
		if err != nil {
			return nil, fault(bc, err)
		}

		if _, void := v.(Void); v == nil || void {
			return NewSequence(nil), nil
		}

		seq, ok := SequenceOf(v)
		if !ok {
			return nil, fault(bc, diag.Errorf(diag.KindRuntimeInvocation,
				"`%s` produced %T where a sequence was declared",
				bc.callable.Name(), v))
		}

		return seq, nil

	default:
		return raw, nil
	}
}

func (inv *Invoker) call(ctx context.Context, bc BoundCall) (raw any, err error) {
	defer func() {
		if r := recover(); r != nil {
			raw, err = nil, fault(bc, recovered(r))
		}
	}()

	raw, err = bc.callable.Call(ctx, bc.Args())
	if err != nil {
		return nil, fault(bc, err)
	}

	return raw, nil
}

// await settles v if it is a Future. Value-less futures yield Void.
func await(ctx context.Context, v any) (any, error) {
	f, ok := v.(Future)
	if !ok {
		return v, nil
	}

	r, err := f.Await(ctx)
	if err != nil {
		return nil, err
	}

	if r == nil {
		return Void{}, nil
	}

	return r, nil
}

// fault locates err at the call site of bc. Arity errors are reported past
// the callee name; everything else at the start of the call.
func fault(bc BoundCall, err error) error {
	e := diag.WrapError(err)

	pos := bc.site.Start
	if e.Kind() == diag.KindArity {
		pos = bc.site.End
	}

	return e.At(bc.site.File, pos).
		With(slog.String("callable", bc.callable.Name()))
}
