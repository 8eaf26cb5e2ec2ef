// Package diag defines source positions, collected diagnostics, and the error
// kinds raised while binding and invoking functions from template code.
//
// Every positioned error formats as
//
//	text(<line>,<column>) : error : <message>
//
// where "text" is replaced by the template's file name when one is known.
// Use [errors.Is] with the Err* sentinels to test an error's kind.
package diag
