package validation

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/recordbind/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator instance. It is safe for
// concurrent use, which pipeline workers rely on.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Report fields by their csv column name, then json, then snake_case.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"csv", "json"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return toSnakeCase(fld.Name)
		})
	})
	return validate
}

// Validate validates a struct using `validate:"..."` tags and returns a
// CONSTRAINT_VIOLATION error on failure.
func Validate(s any) error {
	err := getValidator().Struct(s)
	if err == nil {
		return nil
	}
	return fromValidatorError(err, "")
}

// validateVar checks a single value against a tag expression such as
// "min=1,max=10", reporting failures under field.
func validateVar(field string, value any, tag string) error {
	err := getValidator().Var(value, tag)
	if err == nil {
		return nil
	}
	return fromValidatorError(err, field)
}

// ValidTag reports whether tag is a well-formed validator expression.
func ValidTag(tag string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.BadConfiguration("invalid validation tag " + tag)
		}
	}()
	_ = getValidator().Var("", tag)
	return nil
}

func fromValidatorError(err error, field string) *errors.AppError {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return errors.ConstraintViolation("validation failed").WithCause(err)
	}
	fieldErrors := make([]FieldError, 0, len(validationErrors))
	for _, e := range validationErrors {
		name := field
		if name == "" {
			name = e.Field()
		}
		fieldErrors = append(fieldErrors, FieldError{
			Field:   name,
			Message: formatValidationError(e),
		})
	}
	return violation(fieldErrors)
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + e.Param()
	case "max", "lte":
		return "must be at most " + e.Param()
	case "gt":
		return "must be greater than " + e.Param()
	case "lt":
		return "must be less than " + e.Param()
	case "len":
		return "must have length " + e.Param()
	case "url":
		return "must be a valid URL"
	case "uuid":
		return "must be a valid UUID"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "failed " + e.Tag() + " check"
	}
}

// toSnakeCase converts a field name to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		if r >= 'A' && r <= 'Z' {
			result.WriteRune(r + 32) // lowercase
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
