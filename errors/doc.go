// Package errors provides the error taxonomy shared by the seqkit packages.
// It implements a structured error type with machine-readable codes and
// sentinel values that work with the standard errors.Is and errors.As.
//
// Four kinds of failure surface from a pipeline:
//
//   - argument errors (INVALID_ARGUMENT), raised while a pipeline is built
//   - empty-sequence errors (EMPTY_SEQUENCE), raised by non-nullable aggregations
//   - callback errors, returned verbatim and never wrapped
//   - cancellation (CANCELED, DEADLINE_EXCEEDED), wrapping the context error
package errors
