// Package lib provides the built-in functions of the template language,
// grouped into the array, string and math namespaces.
//
// Every function is a [call.Callable] whose name is qualified by its
// namespace, as in "string.slice", so arity and binding errors name the
// function the way a template spells it.
//
// Lists are []any. Functions that take a list also accept typed slices,
// arrays and lazy sequences, which are copied into a new list; null is an
// empty list. Functions never modify their arguments.
package lib
