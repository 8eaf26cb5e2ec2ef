// Package call bridges template code to Go functions.
//
// A [Callable] describes a function's parameters, how extra positional
// arguments are handled, and the shape of its result. [Bind] matches script
// arguments to a Callable's parameters and yields an immutable [BoundCall].
// An [Invoker] executes a BoundCall either blocking ([Invoker.Invoke]) or
// asynchronously ([Invoker.InvokeAsync]) and normalizes the raw result:
// futures are awaited and lazy sequences are wrapped in a one-shot
// [Sequence]. Every fault raised by the callee is reported as a
// [diag.ErrRuntimeInvocation] located at the call site.
//
// Result shapes are decided from declared Go types, never by running the
// function:
//
//   - Future:       a type implementing [Future], such as *[Promise][T]
//   - LazySequence: [iter.Seq], [iter.Seq2] with an error value, a receive
//     channel, [*Sequence], or a Promise of any of those
//   - Value:        everything else
package call
