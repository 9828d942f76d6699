package mapping

import (
	"context"

	"github.com/kbukum/recordbind/record"
)

// FieldMapper converts between records and objects of type T.
//
// CaptureHeader is called once before streaming. Every other method must be
// safe for concurrent use afterwards, since pipeline workers call ToObject
// and ToRecord in parallel.
type FieldMapper[T any] interface {
	// CaptureHeader reads whatever the mapper needs from the start of src.
	CaptureHeader(ctx context.Context, src record.Source) error
	// FindField returns the column bound to record position col.
	FindField(col int) (Column[T], bool)
	// CreateInstance returns a fresh object to populate.
	CreateInstance() T
	// VerifyLength fails with a STRUCTURAL error when a record of n fields
	// cannot be bound.
	VerifyLength(n int) error
	// GenerateHeader returns the header row written before rendered records.
	GenerateHeader(sample T) ([]string, error)
	// ToObject converts one record.
	ToObject(ctx context.Context, rec record.Record) (T, error)
	// ToRecord renders one object.
	ToRecord(ctx context.Context, obj T) ([]string, error)
	// BindsByName reports whether records carry a header row.
	BindsByName() bool
}
