// Package validation checks converted objects before they leave a pipeline.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their csv tag when present:
//
//	type Order struct {
//	    ID    string  `csv:"ID" validate:"required"`
//	    Total float64 `csv:"TOTAL" validate:"gte=0"`
//	}
//	stage.Verifiers = append(stage.Verifiers, validation.Struct[*Order]())
//
// Types without struct tags, such as rows built from a declarative schema,
// attach tags per extracted value with Fields. All rules run before
// reporting:
//
//	validation.Fields(validation.FieldRule[Row]{
//	    Name: "TOTAL", Tag: "gte=0", Get: func(r Row) any { return r["TOTAL"] },
//	})
//
// Every failure is a CONSTRAINT_VIOLATION whose "fields" detail lists the
// offending fields.
package validation
