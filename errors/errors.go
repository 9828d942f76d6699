package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"strings"
)

// AppError is the unified conversion error type.
type AppError struct {
	// Code is the error kind.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Line is the source line of the record that failed, 0 when unknown.
	Line int64 `json:"line,omitempty"`
	// Details contains additional context such as the field, value or raw record.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	if e.Line > 0 {
		fmt.Fprintf(&b, " (line %d)", e.Line)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		fmt.Fprintf(&b, " (cause: %v)", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// Fatal reports whether the error always stops processing.
func (e *AppError) Fatal() bool { return IsFatalCode(e.Code) }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithRecord echoes the offending raw record into the details.
func (e *AppError) WithRecord(fields []string) *AppError {
	echo := make([]string, len(fields))
	copy(echo, fields)
	return e.WithDetail("record", echo)
}

// At returns a copy of the error tagged with the given line. The receiver is
// left untouched so shared error values stay safe across goroutines.
func (e *AppError) At(line int64) *AppError {
	cp := *e
	cp.Line = line
	cp.Details = maps.Clone(e.Details)
	return &cp
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Per-record constructors ---

// RequiredField creates an error for a required field that was empty.
func RequiredField(field string) *AppError {
	return &AppError{
		Code: ErrCodeRequiredField, Message: fmt.Sprintf("required field %q is empty", field),
		Details: map[string]any{"field": field},
	}
}

// TypeConversion creates an error for a value that could not be converted to targetType.
func TypeConversion(field, value, targetType string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeTypeConversion,
		Message: fmt.Sprintf("cannot convert %q to %s for field %q", value, targetType, field),
		Details: map[string]any{"field": field, "value": value, "type": targetType},
		Cause:   cause,
	}
}

// ConstraintViolation creates an error for an object rejected by a verifier.
func ConstraintViolation(message string) *AppError {
	return &AppError{Code: ErrCodeConstraintViolation, Message: message}
}

// --- Fatal constructors ---

// Structural creates an error for a record whose shape is inconsistent with the header or required columns.
func Structural(message string) *AppError {
	return &AppError{Code: ErrCodeStructural, Message: message}
}

// FieldCount creates a structural error for a record with an unexpected number of fields.
func FieldCount(got, want int) *AppError {
	return &AppError{
		Code:    ErrCodeStructural,
		Message: fmt.Sprintf("record has %d fields, expected %d", got, want),
		Details: map[string]any{"fields": got, "expected": want},
	}
}

// BadConfiguration creates an error for a mapper or pipeline that cannot be constructed.
func BadConfiguration(reason string) *AppError {
	return &AppError{Code: ErrCodeBadConfiguration, Message: reason}
}

// SourceFailure creates an error for a failing record source or sink.
func SourceFailure(cause error) *AppError {
	return &AppError{Code: ErrCodeSourceFailure, Message: "record source failed", Cause: cause}
}

// Cancelled creates an error for a run stopped through its context.
func Cancelled(cause error) *AppError {
	return &AppError{Code: ErrCodeCancelled, Message: "conversion cancelled", Cause: cause}
}

// Internal creates an error for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "unexpected conversion failure", Cause: cause}
}

// --- Inspection helpers ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Wrap returns err as an AppError. AppErrors anywhere in the chain are
// returned as-is; other errors become INTERNAL_ERROR with err as the cause.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}

// KindOf returns the error kind of err, or an empty code if err carries none.
func KindOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// IsFatal reports whether err is an AppError of a fatal kind.
func IsFatal(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Fatal()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
