// Package member exposes the fields and methods of host Go values to
// template code.
//
// Script names are derived from Go names by a [Renamer]. The default,
// [DefaultRenamer], produces snake_case: a field TestInt is visible as
// test_int and a method GetTestString as get_test_string. A renamer must be
// injective over each type's members; a collision is reported as a
// [diag.ErrBinding] when the type's member table is first built.
//
// A [Cache] builds the member table of each (type, renamer) pair exactly
// once, even under concurrent first use, and returns the same [*Binding]
// for every later lookup of a name.
//
// Methods become [call.Callable] values once bound to a receiver. Their
// return shape is classified from the declared result type, a leading
// [context.Context] parameter is supplied by the caller's context, and a
// trailing error result is reported as a runtime invocation fault.
package member
