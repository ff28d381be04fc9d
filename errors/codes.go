package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction errors
const (
	// CodeInvalidArgument indicates a pipeline was built with a nil source,
	// a nil callback, or an out-of-range size.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// CodeInvalidConfig indicates engine configuration failed validation.
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Terminal operation errors
const (
	// CodeEmptySequence indicates a non-nullable aggregation ran over no elements.
	CodeEmptySequence ErrorCode = "EMPTY_SEQUENCE"
	// CodeOverflow indicates an integer accumulation left the range of its kind.
	CodeOverflow ErrorCode = "OVERFLOW"
	// CodeIndexOutOfRange indicates ElementAt asked past the end of a sequence.
	CodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"
)

// Iteration outcomes
const (
	// CodeCanceled indicates the cancellation signal was observed.
	CodeCanceled ErrorCode = "CANCELED"
	// CodeDeadlineExceeded indicates the signal's deadline passed.
	CodeDeadlineExceeded ErrorCode = "DEADLINE_EXCEEDED"
	// CodeConcurrentAdvance indicates a second Next was issued while one was in flight.
	CodeConcurrentAdvance ErrorCode = "CONCURRENT_ADVANCE"
)

var cancellationCodes = map[ErrorCode]bool{
	CodeCanceled:         true,
	CodeDeadlineExceeded: true,
}

// IsCancellationCode returns true if the code reports a cancellation outcome
// rather than a failure.
func IsCancellationCode(code ErrorCode) bool {
	return cancellationCodes[code]
}
