package mapping

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/kbukum/recordbind/errors"
	"github.com/kbukum/recordbind/pipeline"
	"github.com/kbukum/recordbind/validation"
)

// Row is a generic object keyed by column name.
type Row map[string]any

// Column types understood by SchemaDef.
const (
	TypeString   = "string"
	TypeInt      = "int"
	TypeFloat    = "float"
	TypeBool     = "bool"
	TypeTime     = "time"
	TypeDuration = "duration"
)

// ColumnDef declares one Row column.
type ColumnDef struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	Required bool   `yaml:"required" json:"required"`
	Position int    `yaml:"position" json:"position"`
	// Layout is the time layout for time columns. Defaults to RFC 3339.
	Layout string `yaml:"layout" json:"layout"`
	// Validate is a validator tag checked after conversion, e.g. "gte=0".
	Validate string `yaml:"validate" json:"validate"`
}

// SchemaDef declares a Row schema.
type SchemaDef struct {
	Binding string      `yaml:"binding" json:"binding"`
	Columns []ColumnDef `yaml:"columns" json:"columns"`
}

// ParseSchemaDef decodes a YAML schema definition.
func ParseSchemaDef(data []byte) (SchemaDef, error) {
	var def SchemaDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return def, errors.BadConfiguration("invalid schema: " + err.Error()).WithCause(err)
	}
	return def, nil
}

// Build creates the Row schema. Unknown types fail with BAD_CONFIGURATION.
func (d SchemaDef) Build() (*Schema[Row], error) {
	binding, err := ParseBinding(d.Binding)
	if err != nil {
		return nil, err
	}
	cols := make([]Column[Row], 0, len(d.Columns))
	for _, def := range d.Columns {
		col, err := def.column()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
	}
	return NewSchema(binding, func() Row { return make(Row, len(cols)) }, cols...)
}

// Verifier returns a verifier enforcing the columns' validate tags, or nil
// when no column declares one.
func (d SchemaDef) Verifier() (pipeline.Verifier[Row], error) {
	var rules []validation.FieldRule[Row]
	for _, def := range d.Columns {
		if def.Validate == "" {
			continue
		}
		if err := validation.ValidTag(def.Validate); err != nil {
			return nil, errors.BadConfiguration(fmt.Sprintf("column %s: invalid validate tag %q", def.Name, def.Validate))
		}
		name := def.Name
		rules = append(rules, validation.FieldRule[Row]{
			Name: name,
			Tag:  def.Validate,
			Get:  func(r Row) any { return r[name] },
		})
	}
	if len(rules) == 0 {
		return nil, nil
	}
	return validation.Fields(rules...), nil
}

// Normalize converts loosely typed values, such as those decoded from JSON,
// to the Go types the column types produce. Missing and nil values are kept
// as they are; unknown keys are left untouched.
func (d SchemaDef) Normalize(r Row) (Row, error) {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	for _, def := range d.Columns {
		v, ok := r[def.Name]
		if !ok || v == nil {
			continue
		}
		nv, err := def.coerce(v)
		if err != nil {
			return nil, errors.TypeConversion(def.Name, fmt.Sprint(v), def.Type, err)
		}
		out[def.Name] = nv
	}
	return out, nil
}

// jsonNumber is satisfied by the number type JSON decoders produce with
// UseNumber.
type jsonNumber interface {
	Int64() (int64, error)
	Float64() (float64, error)
	String() string
}

func (def ColumnDef) coerce(v any) (any, error) {
	typ := strings.ToLower(def.Type)
	if typ == "" || typ == TypeString {
		return toString(v)
	}
	if n, ok := v.(jsonNumber); ok {
		if i, err := n.Int64(); err == nil {
			v = i
		} else if f, err := n.Float64(); err == nil {
			v = f
		} else {
			return nil, err
		}
	}
	switch typ {
	case TypeInt, "int64", "integer":
		return toInt64(v)
	case TypeFloat, "float64", "number":
		return cast.ToFloat64E(v)
	case TypeBool, "boolean":
		return cast.ToBoolE(v)
	case TypeTime, "timestamp", "date":
		if s, ok := v.(string); ok && def.Layout != "" {
			if t, err := time.Parse(def.Layout, s); err == nil {
				return t, nil
			}
		}
		return cast.ToTimeE(v)
	case TypeDuration:
		return cast.ToDurationE(v)
	default:
		return nil, fmt.Errorf("unknown type %q", def.Type)
	}
}

// toInt64 refuses lossy conversions: fractional floats and non-decimal
// strings are errors rather than truncated or octal values.
func toInt64(v any) (int64, error) {
	switch x := v.(type) {
	case string:
		return strconv.ParseInt(strings.TrimSpace(x), 10, 64)
	case float32:
		return floatToInt64(float64(x))
	case float64:
		return floatToInt64(x)
	default:
		return cast.ToInt64E(v)
	}
}

func floatToInt64(f float64) (int64, error) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("%v is not an integer", f)
	}
	return int64(f), nil
}

func (def ColumnDef) column() (Column[Row], error) {
	name := def.Name
	col := Column[Row]{Name: name, Position: def.Position, Required: def.Required}
	put := func(r *Row, v any) { (*r)[name] = v }

	switch strings.ToLower(def.Type) {
	case "", TypeString:
		col.Set = String(func(r *Row, v string) { put(r, v) })
	case TypeInt, "int64", "integer":
		col.Set = Int64(func(r *Row, v int64) { put(r, v) })
	case TypeFloat, "float64", "number":
		col.Set = Float64(func(r *Row, v float64) { put(r, v) })
	case TypeBool, "boolean":
		col.Set = Bool(func(r *Row, v bool) { put(r, v) })
	case TypeTime, "timestamp", "date":
		layout := def.Layout
		if layout == "" {
			layout = time.RFC3339
		}
		col.Set = Time(layout, func(r *Row, v time.Time) { put(r, v) })
		col.Get = func(r Row) (string, error) {
			if t, ok := r[name].(time.Time); ok {
				return t.Format(layout), nil
			}
			return rowValue(r, name)
		}
		return col, nil
	case TypeDuration:
		col.Set = Duration(func(r *Row, v time.Duration) { put(r, v) })
	default:
		return col, errors.BadConfiguration(fmt.Sprintf("column %s: unknown type %q", name, def.Type))
	}
	col.Get = func(r Row) (string, error) { return rowValue(r, name) }
	return col, nil
}

func rowValue(r Row, name string) (string, error) {
	v, ok := r[name]
	if !ok || v == nil {
		return "", nil
	}
	return toString(v)
}
