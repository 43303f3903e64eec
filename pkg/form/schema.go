package form

import "slices"

// Values is a submitted or cleaned value tree. Nested forms appear as nested
// maps keyed by slot name.
type Values = map[string]any

// Files mirrors Values for uploaded files.
type Files = map[string]any

// FieldType is the simplified field kind used by the field schema.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeObject  FieldType = "object"
)

// Field describes one slot of a form. Embedded forms carry their own schema
// in Nested.
type Field struct {
	Name     string
	Type     FieldType
	Label    string
	Required bool
	Nested   *FieldSchema
}

// FieldSchema is the ordered set of slots a form exposes. Slot names are
// unique; re-setting a name keeps its original position.
type FieldSchema struct {
	order  []string
	fields map[string]Field
}

// NewFieldSchema builds a schema from fields in order.
func NewFieldSchema(fields ...Field) *FieldSchema {
	schema := &FieldSchema{fields: make(map[string]Field, len(fields))}
	for _, field := range fields {
		schema.Set(field)
	}
	return schema
}

// Set adds or replaces a slot.
func (s *FieldSchema) Set(field Field) {
	if s.fields == nil {
		s.fields = make(map[string]Field)
	}
	if _, exists := s.fields[field.Name]; !exists {
		s.order = append(s.order, field.Name)
	}
	s.fields[field.Name] = field
}

// Get returns the slot named name.
func (s *FieldSchema) Get(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	field, ok := s.fields[name]
	return field, ok
}

// Has reports whether the slot exists.
func (s *FieldSchema) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Remove drops a slot. It reports whether the slot existed.
func (s *FieldSchema) Remove(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.fields[name]; !ok {
		return false
	}
	delete(s.fields, name)
	s.order = slices.DeleteFunc(s.order, func(candidate string) bool { return candidate == name })
	return true
}

// Names returns slot names in order.
func (s *FieldSchema) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

// Fields returns slots in order.
func (s *FieldSchema) Fields() []Field {
	if s == nil {
		return nil
	}
	out := make([]Field, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.fields[name])
	}
	return out
}

// Len returns the number of slots.
func (s *FieldSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Clone returns a copy whose slot list can be mutated independently. Nested
// schemas are shared.
func (s *FieldSchema) Clone() *FieldSchema {
	clone := NewFieldSchema()
	if s == nil {
		return clone
	}
	for _, name := range s.order {
		clone.Set(s.fields[name])
	}
	return clone
}

func cloneValues(values Values) Values {
	if values == nil {
		return nil
	}
	out := make(Values, len(values))
	for key, value := range values {
		if nested, ok := value.(Values); ok {
			out[key] = cloneValues(nested)
			continue
		}
		out[key] = value
	}
	return out
}

func asValues(value any) (Values, bool) {
	values, ok := value.(Values)
	return values, ok
}
