package validation

import (
	"strings"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/pipeline"
)

// Struct returns a verifier that checks T's `validate` struct tags. T may be
// a struct or a pointer to one.
func Struct[T any]() pipeline.Verifier[T] {
	return pipeline.VerifierFunc[T](func(obj T) (bool, error) {
		if err := Validate(obj); err != nil {
			return false, err
		}
		return true, nil
	})
}

// FieldRule checks one value extracted from T against a validator tag.
type FieldRule[T any] struct {
	Name string
	Tag  string
	Get  func(obj T) any
}

// Fields returns a verifier for types without struct tags, such as rows
// built from a declarative schema. All rules run; failures are reported together.
func Fields[T any](rules ...FieldRule[T]) pipeline.Verifier[T] {
	return pipeline.VerifierFunc[T](func(obj T) (bool, error) {
		var failed []FieldError
		for _, r := range rules {
			err := validateVar(r.Name, r.Get(obj), r.Tag)
			if err == nil {
				continue
			}
			failed = append(failed, FieldErrorsOf(err)...)
		}
		if len(failed) > 0 {
			return false, violation(failed)
		}
		return true, nil
	})
}

// FieldErrorsOf returns the field errors carried by a validation error.
func FieldErrorsOf(err error) []FieldError {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return nil
	}
	fields, _ := appErr.Details["fields"].([]FieldError)
	return fields
}

// FieldError represents a validation error for a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// violation builds the error for a non-empty list of field errors.
func violation(fieldErrors []FieldError) *errors.AppError {
	messages := make([]string, len(fieldErrors))
	for i, e := range fieldErrors {
		messages[i] = e.Field + ": " + e.Message
	}
	return errors.ConstraintViolation(strings.Join(messages, "; ")).
		WithDetail("fields", fieldErrors)
}
