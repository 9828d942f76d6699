package mapping

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cast"
)

// TypeError reports a value that could not be parsed into its target type.
// Schema turns it into a TYPE_CONVERSION error naming the column.
type TypeError struct {
	Value string
	Type  string
	Err   error
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s: %v", e.Value, e.Type, e.Err)
}

func (e *TypeError) Unwrap() error { return e.Err }

func typeErr(value, typ string, err error) error {
	return &TypeError{Value: value, Type: typ, Err: err}
}

// String assigns the raw value.
func String[T any](assign func(obj *T, v string)) Setter[T] {
	return func(obj *T, value string) error {
		assign(obj, value)
		return nil
	}
}

// Int parses a base-10 int.
func Int[T any](assign func(obj *T, v int)) Setter[T] {
	return func(obj *T, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return typeErr(value, "int", err)
		}
		assign(obj, n)
		return nil
	}
}

// Int64 parses a base-10 int64.
func Int64[T any](assign func(obj *T, v int64)) Setter[T] {
	return func(obj *T, value string) error {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return typeErr(value, "int64", err)
		}
		assign(obj, n)
		return nil
	}
}

// Float64 parses a floating point number.
func Float64[T any](assign func(obj *T, v float64)) Setter[T] {
	return func(obj *T, value string) error {
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return typeErr(value, "float64", err)
		}
		assign(obj, f)
		return nil
	}
}

// Bool parses 1, t, true, 0, f, false and their upper-case forms.
func Bool[T any](assign func(obj *T, v bool)) Setter[T] {
	return func(obj *T, value string) error {
		b, err := cast.ToBoolE(value)
		if err != nil {
			return typeErr(value, "bool", err)
		}
		assign(obj, b)
		return nil
	}
}

// Time parses with layout, or with a set of common formats when layout is "".
func Time[T any](layout string, assign func(obj *T, v time.Time)) Setter[T] {
	return func(obj *T, value string) error {
		var (
			t   time.Time
			err error
		)
		if layout != "" {
			t, err = time.Parse(layout, value)
		} else {
			t, err = cast.ToTimeE(value)
		}
		if err != nil {
			return typeErr(value, "time", err)
		}
		assign(obj, t)
		return nil
	}
}

// Duration parses values such as "1h30m". Bare numbers are nanoseconds.
func Duration[T any](assign func(obj *T, v time.Duration)) Setter[T] {
	return func(obj *T, value string) error {
		d, err := cast.ToDurationE(value)
		if err != nil {
			return typeErr(value, "duration", err)
		}
		assign(obj, d)
		return nil
	}
}

// Format renders a field with its natural string form.
func Format[T, V any](get func(obj T) V) Getter[T] {
	return func(obj T) (string, error) {
		return toString(get(obj))
	}
}

// FormatTime renders a time field with layout. Zero times render as "".
func FormatTime[T any](layout string, get func(obj T) time.Time) Getter[T] {
	return func(obj T) (string, error) {
		t := get(obj)
		if t.IsZero() {
			return "", nil
		}
		return t.Format(layout), nil
	}
}

func toString(v any) (string, error) {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String(), nil
	}
	return cast.ToStringE(v)
}
