package plugin

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"sort"
	"strconv"
	"strings"
)

// FieldType is the type of a configuration field.
type FieldType string

const (
	TypeInteger FieldType = "integer"
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
)

// Valid reports whether the field type is known.
func (t FieldType) Valid() bool {
	switch t {
	case TypeInteger, TypeString, TypeBoolean:
		return true
	}
	return false
}

// Field describes a single configuration setting.
type Field struct {
	Name        string
	Type        FieldType
	Default     any
	Nullable    bool
	Min         *int
	Max         *int
	Enum        []string
	Label       string
	Description string
	Secret      bool
}

// FieldOption customizes a field as it is declared.
type FieldOption func(*Field)

// Min sets the inclusive lower bound of an integer field.
func Min(v int) FieldOption {
	return func(f *Field) {
		f.Min = &v
	}
}

// Max sets the inclusive upper bound of an integer field.
func Max(v int) FieldOption {
	return func(f *Field) {
		f.Max = &v
	}
}

// Enum restricts a string field to the given values.
func Enum(values ...string) FieldOption {
	return func(f *Field) {
		f.Enum = append([]string(nil), values...)
	}
}

// Nullable allows the field to resolve to nil.
func Nullable() FieldOption {
	return func(f *Field) {
		f.Nullable = true
	}
}

// Secret marks the field as sensitive; its value is masked on display.
func Secret() FieldOption {
	return func(f *Field) {
		f.Secret = true
	}
}

// Label sets the human-readable field label.
func Label(label string) FieldOption {
	return func(f *Field) {
		f.Label = label
	}
}

// Describe sets the field description.
func Describe(description string) FieldOption {
	return func(f *Field) {
		f.Description = description
	}
}

// Schema is an ordered set of configuration fields.
type Schema struct {
	fields []Field
	index  map[string]int
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{index: make(map[string]int)}
}

// Integer declares an integer field.
func (s *Schema) Integer(name string, def any, opts ...FieldOption) *Schema {
	return s.Add(newField(name, TypeInteger, def, opts))
}

// String declares a string field.
func (s *Schema) String(name string, def any, opts ...FieldOption) *Schema {
	return s.Add(newField(name, TypeString, def, opts))
}

// Boolean declares a boolean field.
func (s *Schema) Boolean(name string, def any, opts ...FieldOption) *Schema {
	return s.Add(newField(name, TypeBoolean, def, opts))
}

func newField(name string, typ FieldType, def any, opts []FieldOption) Field {
	f := Field{Name: name, Type: typ, Default: def}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// Add declares a field. Declaring an existing name replaces it in place.
func (s *Schema) Add(f Field) *Schema {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	if i, ok := s.index[f.Name]; ok {
		s.fields[i] = f
		return s
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
	return s
}

// Fields returns the declared fields in declaration order.
func (s *Schema) Fields() []Field {
	if s == nil {
		return nil
	}
	return slices.Clone(s.fields)
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// Len returns the number of declared fields.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.fields)
}

// Check verifies that every field is well formed and that its default
// satisfies its own constraints.
func (s *Schema) Check() error {
	verr := &ValidationError{}
	for _, f := range s.Fields() {
		if f.Name == "" {
			verr.Add("config field name is required")
			continue
		}
		if !f.Type.Valid() {
			verr.Addf("config field %q: unknown type %q", f.Name, f.Type)
			continue
		}
		if f.Min != nil && f.Max != nil && *f.Min > *f.Max {
			verr.Addf("config field %q: min %d is greater than max %d", f.Name, *f.Min, *f.Max)
		}
		if f.Default == nil {
			continue
		}
		if _, err := f.check(f.Default); err != nil {
			verr.Addf("config field %q: invalid default: %v", f.Name, err)
		}
	}
	if verr.HasErrors() {
		return verr
	}
	return nil
}

// Validate resolves raw user settings against the schema. Unknown keys are
// rejected; missing or nil values fall back to the field default. The result
// holds exactly one entry per declared field. Validation is all-or-nothing.
func (s *Schema) Validate(raw map[string]any) (Config, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, ok := s.Field(k); !ok {
			return Config{}, &ConfigError{Field: k, Rule: ErrUnknownField, Message: "not declared by the plugin"}
		}
	}

	values := make(map[string]any, s.Len())
	for _, f := range s.Fields() {
		v, ok := raw[f.Name]
		if !ok || v == nil {
			v = f.Default
		}
		if v == nil {
			if !f.Nullable {
				return Config{}, &ConfigError{Field: f.Name, Rule: ErrNullValue, Message: "a value is required"}
			}
			values[f.Name] = nil
			continue
		}
		nv, err := f.check(v)
		if err != nil {
			return Config{}, err
		}
		values[f.Name] = nv
	}
	return Config{values: values}, nil
}

// check type-checks v and applies range and enum constraints, returning the
// normalized value.
func (f Field) check(v any) (any, error) {
	switch f.Type {
	case TypeInteger:
		n, ok := toInt(v)
		if !ok {
			return nil, f.violation(ErrInvalidType, "expected integer, got %T", v)
		}
		if f.Min != nil && n < *f.Min {
			return nil, f.violation(ErrOutOfRange, "%d is below the minimum %d", n, *f.Min)
		}
		if f.Max != nil && n > *f.Max {
			return nil, f.violation(ErrOutOfRange, "%d is above the maximum %d", n, *f.Max)
		}
		return n, nil
	case TypeString:
		str, ok := v.(string)
		if !ok {
			return nil, f.violation(ErrInvalidType, "expected string, got %T", v)
		}
		if len(f.Enum) > 0 && !slices.Contains(f.Enum, str) {
			return nil, f.violation(ErrNotInEnum, "%q is not one of %s", str, strings.Join(f.Enum, ", "))
		}
		return str, nil
	case TypeBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, f.violation(ErrInvalidType, "expected boolean, got %T", v)
		}
		return b, nil
	}
	return nil, f.violation(ErrInvalidType, "unknown field type %q", f.Type)
}

func (f Field) violation(rule error, format string, args ...any) *ConfigError {
	return &ConfigError{Field: f.Name, Rule: rule, Message: fmt.Sprintf(format, args...)}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), n >= math.MinInt && n <= math.MaxInt
	case uint:
		return int(n), n <= math.MaxInt
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return int(n), uint64(n) <= math.MaxInt
	case uint64:
		return int(n), n <= math.MaxInt
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := strconv.ParseInt(n.String(), 10, 0)
		if err != nil {
			return 0, false
		}
		return int(i), true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}
