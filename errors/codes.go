package errors

// ErrorCode is the machine-readable kind of a conversion error.
type ErrorCode string

// Per-record errors (policy controlled)
const (
	// ErrCodeRequiredField indicates a required field was empty.
	ErrCodeRequiredField ErrorCode = "REQUIRED_FIELD"
	// ErrCodeTypeConversion indicates a field value could not be coerced to its target type.
	ErrCodeTypeConversion ErrorCode = "TYPE_CONVERSION"
	// ErrCodeConstraintViolation indicates a verifier rejected a materialized object.
	ErrCodeConstraintViolation ErrorCode = "CONSTRAINT_VIOLATION"
)

// Fatal errors (never subject to the error policy)
const (
	// ErrCodeStructural indicates the record shape violates header, position or required-column expectations.
	ErrCodeStructural ErrorCode = "STRUCTURAL"
	// ErrCodeBadConfiguration indicates a mapper or pipeline could not be constructed.
	ErrCodeBadConfiguration ErrorCode = "BAD_CONFIGURATION"
	// ErrCodeSourceFailure indicates the record source or sink failed (I/O, malformed text).
	ErrCodeSourceFailure ErrorCode = "SOURCE_FAILURE"
	// ErrCodeCancelled indicates the run was cancelled through its context.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodeInternal indicates an unexpected failure such as a panicking converter.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeStructural:          true,
	ErrCodeBadConfiguration:    true,
	ErrCodeSourceFailure:       true,
	ErrCodeCancelled:           true,
	ErrCodeInternal:            true,
	ErrCodeRequiredField:       false,
	ErrCodeTypeConversion:      false,
	ErrCodeConstraintViolation: false,
}

// IsFatalCode returns true if errors of this kind always stop processing,
// regardless of the error policy.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
