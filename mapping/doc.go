// Package mapping binds raw records to typed objects.
//
// A FieldMapper decides which column feeds which field, creates instances
// and renders objects back to records. Schema is the implementation shipped
// here: columns are registered explicitly with typed setters and getters, so
// no reflection runs per record and a Schema is safe to share between
// pipeline workers once its header is captured.
//
//	schema, err := mapping.NewSchema(mapping.ByName, nil,
//	    mapping.Column[Order]{Name: "ID", Required: true,
//	        Set: mapping.Int(func(o *Order, v int) { o.ID = v }),
//	        Get: mapping.Format(func(o Order) int { return o.ID })},
//	    mapping.Column[Order]{Name: "NAME",
//	        Set: mapping.String(func(o *Order, v string) { o.Name = v }),
//	        Get: mapping.Format(func(o Order) string { return o.Name })},
//	)
//
// Rows (map[string]any) can be described at runtime with a SchemaDef, which
// is how the CLI reads its YAML schema files.
package mapping
