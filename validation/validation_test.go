package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/recordbind/errors"
)

type order struct {
	ID       string  `csv:"ORDER_ID" validate:"required"`
	Total    float64 `json:"total" validate:"gte=0"`
	Customer string  `validate:"max=5"`
}

func TestStructVerifier(t *testing.T) {
	verify := Struct[*order]()

	ok, err := verify.Verify(&order{ID: "1", Total: 10, Customer: "acme"})
	if !ok || err != nil {
		t.Fatalf("expected valid order, got %v %v", ok, err)
	}

	ok, err = verify.Verify(&order{Total: -1, Customer: "too long"})
	if ok || err == nil {
		t.Fatal("expected rejection")
	}
	if errors.KindOf(err) != errors.ErrCodeConstraintViolation {
		t.Errorf("expected CONSTRAINT_VIOLATION, got %v", errors.KindOf(err))
	}
	got := map[string]bool{}
	for _, fe := range FieldErrorsOf(err) {
		got[fe.Field] = true
	}
	for _, want := range []string{"ORDER_ID", "total", "customer"} {
		if !got[want] {
			t.Errorf("expected field %q in %v", want, got)
		}
	}
}

func TestFieldsVerifier(t *testing.T) {
	type row map[string]any
	verify := Fields(
		FieldRule[row]{Name: "QTY", Tag: "gte=1", Get: func(r row) any { return r["QTY"] }},
		FieldRule[row]{Name: "SKU", Tag: "required,len=4", Get: func(r row) any { return r["SKU"] }},
	)

	if ok, err := verify.Verify(row{"QTY": 2, "SKU": "AB12"}); !ok || err != nil {
		t.Fatalf("expected pass, got %v %v", ok, err)
	}
	ok, err := verify.Verify(row{"QTY": 0, "SKU": "A"})
	if ok || err == nil {
		t.Fatal("expected rejection")
	}
	fields := FieldErrorsOf(err)
	if len(fields) != 2 || fields[0].Field != "QTY" || fields[1].Field != "SKU" {
		t.Errorf("unexpected fields %+v", fields)
	}
	if !strings.Contains(err.Error(), "QTY: must be at least 1") {
		t.Errorf("message should list fields, got %q", err.Error())
	}
}

func TestValidateVar(t *testing.T) {
	if err := validateVar("qty", 5, "min=1,max=10"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	err := validateVar("qty", 0, "min=1")
	if err == nil {
		t.Fatal("expected error")
	}
	fields := FieldErrorsOf(err)
	if len(fields) != 1 || fields[0].Field != "qty" || fields[0].Message != "must be at least 1" {
		t.Errorf("unexpected fields %+v", fields)
	}
}

func TestValidTag(t *testing.T) {
	if err := ValidTag("required,min=1"); err != nil {
		t.Errorf("expected valid tag, got %v", err)
	}
	err := ValidTag("no_such_rule")
	if errors.KindOf(err) != errors.ErrCodeBadConfiguration {
		t.Errorf("expected BAD_CONFIGURATION, got %v", err)
	}
}

func TestFieldErrorsOfPlainError(t *testing.T) {
	if got := FieldErrorsOf(nil); got != nil {
		t.Errorf("expected nil, got %v", got)
	}
	if got := FieldErrorsOf(errors.Structural("x")); got != nil {
		t.Errorf("expected nil for non-validation error, got %v", got)
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{"Customer": "customer", "OrderID": "order_i_d", "total": "total"}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
