// Package binding is the entry point for converting whole inputs.
//
// Reader turns a record source into typed objects through a FieldMapper and
// the concurrent pipeline. The same run can be consumed three ways: Parse
// materializes a slice, Stream yields objects lazily and Iterator pulls them
// one at a time with at most two records resident.
//
//	src, _ := record.NewCSVSource(file)
//	r, _ := binding.NewReader(src, schema, pipeline.WithErrorPolicy(pipeline.CollectPolicy))
//	orders, err := r.Parse(ctx)
//	for _, c := range r.CapturedErrors() {
//	    log.Printf("line %d: %s", c.Line, c.Kind)
//	}
//
// Writer renders objects back to records, preceded by a header when the
// mapper binds by name.
package binding
