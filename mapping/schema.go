package mapping

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/record"
)

// Binding selects how record columns are matched to schema columns.
type Binding int

const (
	// ByName matches columns against a header row.
	ByName Binding = iota
	// ByPosition matches columns by their zero-based Position.
	ByPosition
)

func (b Binding) String() string {
	if b == ByPosition {
		return "position"
	}
	return "name"
}

// ParseBinding accepts "name" (or "") and "position".
func ParseBinding(s string) (Binding, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "name", "header":
		return ByName, nil
	case "position", "index":
		return ByPosition, nil
	default:
		return ByName, errors.BadConfiguration("unknown binding " + s)
	}
}

// Setter parses value into obj.
type Setter[T any] func(obj *T, value string) error

// Getter renders one field of obj.
type Getter[T any] func(obj T) (string, error)

// Column binds one record column to a field of T.
type Column[T any] struct {
	// Name is matched case-insensitively against the header.
	Name string
	// Position is the zero-based column index used by ByPosition.
	Position int
	// Required rejects records where the column is empty.
	Required bool
	Set      Setter[T]
	// Get renders the field when writing. Nil renders "".
	Get Getter[T]
}

// Schema is a FieldMapper built from explicitly registered columns.
type Schema[T any] struct {
	binding Binding
	newFn   func() T
	cols    []Column[T]
	byName  map[string]int

	// Filled by CaptureHeader for ByName, at construction for ByPosition.
	pos       []int
	byRecord  map[int]int
	headerLen int
	minLen    int
}

var _ FieldMapper[struct{}] = (*Schema[struct{}])(nil)

// NewSchema validates the column definitions. newFn may be nil, in which case
// instances start from the zero value of T.
func NewSchema[T any](binding Binding, newFn func() T, cols ...Column[T]) (*Schema[T], error) {
	if len(cols) == 0 {
		return nil, errors.BadConfiguration("schema has no columns")
	}
	if binding != ByName && binding != ByPosition {
		return nil, errors.BadConfiguration(fmt.Sprintf("unknown binding %d", binding))
	}
	s := &Schema[T]{
		binding: binding,
		newFn:   newFn,
		cols:    cols,
		byName:  make(map[string]int, len(cols)),
	}
	positions := make(map[int]string, len(cols))
	for i, c := range cols {
		key := normalize(c.Name)
		if key == "" {
			return nil, errors.BadConfiguration(fmt.Sprintf("column %d has no name", i))
		}
		if _, dup := s.byName[key]; dup {
			return nil, errors.BadConfiguration("duplicate column " + c.Name)
		}
		if c.Set == nil {
			return nil, errors.BadConfiguration("column " + c.Name + " has no setter")
		}
		s.byName[key] = i
		if binding == ByPosition {
			if c.Position < 0 {
				return nil, errors.BadConfiguration("column " + c.Name + " has a negative position")
			}
			if other, dup := positions[c.Position]; dup {
				return nil, errors.BadConfiguration(fmt.Sprintf("columns %s and %s share position %d", other, c.Name, c.Position))
			}
			positions[c.Position] = c.Name
		}
	}
	if binding == ByPosition {
		s.pos = make([]int, len(cols))
		s.byRecord = make(map[int]int, len(cols))
		for i, c := range cols {
			s.pos[i] = c.Position
			s.byRecord[c.Position] = i
			if c.Required && c.Position+1 > s.minLen {
				s.minLen = c.Position + 1
			}
		}
	}
	return s, nil
}

// Binding returns how the schema matches columns.
func (s *Schema[T]) Binding() Binding { return s.binding }

// BindsByName reports whether a header row is expected.
func (s *Schema[T]) BindsByName() bool { return s.binding == ByName }

// Columns returns the registered columns in declaration order.
func (s *Schema[T]) Columns() []Column[T] { return s.cols }

// CaptureHeader reads the header row for ByName schemas. It is a no-op for
// ByPosition. Header columns the schema does not know are ignored.
func (s *Schema[T]) CaptureHeader(ctx context.Context, src record.Source) error {
	if s.binding != ByName {
		return nil
	}
	if s.pos != nil {
		return errors.BadConfiguration("header already captured")
	}
	header, ok, err := src.Next(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Structural("input has no header row")
	}

	pos := make([]int, len(s.cols))
	for i := range pos {
		pos[i] = -1
	}
	byRecord := make(map[int]int, len(s.cols))
	for col, name := range header.Fields {
		if col == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		i, known := s.byName[normalize(name)]
		if !known || pos[i] >= 0 {
			continue
		}
		pos[i] = col
		byRecord[col] = i
	}

	var missing []string
	for i, c := range s.cols {
		if c.Required && pos[i] < 0 {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return errors.Structural("header is missing required columns: "+strings.Join(missing, ", ")).
			At(header.Line).
			WithRecord(header.Fields).
			WithDetail("missing", missing)
	}

	s.pos = pos
	s.byRecord = byRecord
	s.headerLen = len(header.Fields)
	return nil
}

// FindField returns the column bound to record position col.
func (s *Schema[T]) FindField(col int) (Column[T], bool) {
	i, ok := s.byRecord[col]
	if !ok {
		return Column[T]{}, false
	}
	return s.cols[i], true
}

// CreateInstance returns a new object.
func (s *Schema[T]) CreateInstance() T {
	if s.newFn != nil {
		return s.newFn()
	}
	var zero T
	return zero
}

// VerifyLength checks a record's field count. ByName records must match the
// header width; ByPosition records must reach the last required column.
func (s *Schema[T]) VerifyLength(n int) error {
	switch s.binding {
	case ByName:
		if s.pos == nil {
			return errors.Structural("header not captured")
		}
		if n != s.headerLen {
			return errors.FieldCount(n, s.headerLen)
		}
	case ByPosition:
		if n < s.minLen {
			return errors.FieldCount(n, s.minLen)
		}
	}
	return nil
}

// ToObject converts rec into a new instance.
func (s *Schema[T]) ToObject(_ context.Context, rec record.Record) (T, error) {
	var zero T
	if err := s.VerifyLength(len(rec.Fields)); err != nil {
		return zero, annotate(err, rec)
	}
	obj := s.CreateInstance()
	for i, c := range s.cols {
		col := s.pos[i]
		if col < 0 || col >= len(rec.Fields) {
			continue
		}
		value := rec.Fields[col]
		if strings.TrimSpace(value) == "" {
			if c.Required {
				return zero, errors.RequiredField(c.Name).At(rec.Line).WithRecord(rec.Fields)
			}
			continue
		}
		if err := c.Set(&obj, value); err != nil {
			return zero, annotate(setError(c.Name, value, err), rec)
		}
	}
	return obj, nil
}

// GenerateHeader returns the column names. For ByPosition the header is as
// wide as the highest position and unbound positions are empty.
func (s *Schema[T]) GenerateHeader(T) ([]string, error) {
	row := s.blankRow()
	for i, c := range s.cols {
		row[s.writePos(i)] = c.Name
	}
	return row, nil
}

// ToRecord renders obj with each column's getter.
func (s *Schema[T]) ToRecord(_ context.Context, obj T) ([]string, error) {
	row := s.blankRow()
	for i, c := range s.cols {
		if c.Get == nil {
			continue
		}
		v, err := c.Get(obj)
		if err != nil {
			return nil, setError(c.Name, "", err)
		}
		row[s.writePos(i)] = v
	}
	return row, nil
}

func (s *Schema[T]) blankRow() []string {
	if s.binding == ByName {
		return make([]string, len(s.cols))
	}
	width := 0
	for _, c := range s.cols {
		if c.Position+1 > width {
			width = c.Position + 1
		}
	}
	return make([]string, width)
}

func (s *Schema[T]) writePos(i int) int {
	if s.binding == ByName {
		return i
	}
	return s.cols[i].Position
}

// setError maps a setter or getter failure to TYPE_CONVERSION unless it is
// already a classified error.
func setError(field, value string, err error) *errors.AppError {
	var te *TypeError
	if stderrors.As(err, &te) {
		return errors.TypeConversion(field, te.Value, te.Type, te.Err)
	}
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}
	return errors.TypeConversion(field, value, "value", err)
}

func annotate(err error, rec record.Record) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return err
	}
	return appErr.At(rec.Line).WithRecord(rec.Fields)
}

func normalize(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
