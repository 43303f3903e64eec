package openapi

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formgen-orm/pkg/form"
)

// orderExtension positions a property in the generated field schema.
// Properties without it follow, sorted by name.
const orderExtension = "x-formgen-order"

// ErrUnknownSchema reports a component schema lookup miss.
var ErrUnknownSchema = errors.New("openapi: unknown component schema")

// ParserOptions toggles document handling.
type ParserOptions struct {
	// Validate runs kin-openapi document validation after loading.
	Validate bool
}

// ParserOption mutates ParserOptions.
type ParserOption func(*ParserOptions)

// WithValidation toggles document validation.
func WithValidation(enabled bool) ParserOption {
	return func(opts *ParserOptions) {
		opts.Validate = enabled
	}
}

// Components holds the component schemas of a parsed document.
type Components struct {
	location string
	schemas  openapi3.Schemas
}

// Parse loads doc and indexes its component schemas. Component-only
// documents without paths are accepted.
func Parse(ctx context.Context, doc Document, options ...ParserOption) (*Components, error) {
	cfg := ParserOptions{Validate: true}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw := doc.Raw()
	if len(raw) == 0 {
		return nil, errors.New("openapi parser: document payload is empty")
	}

	loader := &openapi3.Loader{Context: ctx}
	parsed, err := loader.LoadFromData(raw)
	if err != nil {
		return nil, fmt.Errorf("openapi parser: load document: %w", err)
	}
	if cfg.Validate {
		if err := parsed.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
			return nil, fmt.Errorf("openapi parser: validate: %w", err)
		}
	}

	components := &Components{location: doc.Location()}
	if parsed.Components != nil {
		components.schemas = parsed.Components.Schemas
	}
	return components, nil
}

// Names lists the component schema names in sorted order.
func (c *Components) Names() []string {
	names := make([]string, 0, len(c.schemas))
	for name := range c.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FormSchemas converts the object schema name into a field schema and the
// matching validator schema. Read-only and array properties are skipped.
func (c *Components) FormSchemas(name string) (*form.FieldSchema, *form.ValidatorSchema, error) {
	ref, ok := c.schemas[name]
	if !ok || ref == nil || ref.Value == nil {
		return nil, nil, fmt.Errorf("%w: %q in %s", ErrUnknownSchema, name, c.location)
	}
	if !ref.Value.Type.Is(openapi3.TypeObject) && len(ref.Value.Properties) == 0 {
		return nil, nil, fmt.Errorf("openapi: schema %q is not an object", name)
	}
	return convertObject(name, ref.Value, map[*openapi3.Schema]bool{})
}

// Factory returns a child form factory building entity forms from the
// component schema name.
func (c *Components) Factory(name string, options ...form.Option) (form.ChildFormFactory, error) {
	fields, validators, err := c.FormSchemas(name)
	if err != nil {
		return nil, err
	}
	return form.EntityFormFactory(fields, validators, options...), nil
}

// Register adds a factory for every object component to registry under
// "<Name>Form".
func (c *Components) Register(registry *form.Registry, options ...form.Option) error {
	for _, name := range c.Names() {
		value := c.schemas[name].Value
		if value == nil || (!value.Type.Is(openapi3.TypeObject) && len(value.Properties) == 0) {
			continue
		}
		factory, err := c.Factory(name, options...)
		if err != nil {
			return err
		}
		registry.Register(name+"Form", factory)
	}
	return nil
}

func convertObject(path string, schema *openapi3.Schema, visiting map[*openapi3.Schema]bool) (*form.FieldSchema, *form.ValidatorSchema, error) {
	if visiting[schema] {
		return nil, nil, fmt.Errorf("openapi: %s refers back to itself", path)
	}
	visiting[schema] = true
	defer delete(visiting, schema)

	fields := form.NewFieldSchema()
	validators := form.NewValidatorSchema()
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	for _, name := range orderedProperties(schema.Properties) {
		property := schema.Properties[name]
		if property == nil || property.Value == nil {
			continue
		}
		value := property.Value
		if value.ReadOnly || value.Type.Is(openapi3.TypeArray) {
			continue
		}

		field := form.Field{Name: name, Label: label(name, value), Required: required[name]}
		var validator form.Validator
		switch {
		case value.Type.Is(openapi3.TypeString):
			field.Type = form.FieldTypeString
			str := form.String{Required: field.Required, MinLength: int(value.MinLength)}
			if value.MaxLength != nil {
				str.MaxLength = int(*value.MaxLength)
			}
			if value.Pattern != "" {
				pattern, err := regexp.Compile(value.Pattern)
				if err != nil {
					return nil, nil, fmt.Errorf("openapi: %s.%s pattern: %w", path, name, err)
				}
				str.Pattern = pattern
			}
			validator = str
		case value.Type.Is(openapi3.TypeInteger):
			field.Type = form.FieldTypeInteger
			integer := form.Integer{Required: field.Required}
			if value.Min != nil {
				lower := int64(*value.Min)
				integer.Min = &lower
			}
			if value.Max != nil {
				upper := int64(*value.Max)
				integer.Max = &upper
			}
			validator = integer
		case value.Type.Is(openapi3.TypeNumber):
			field.Type = form.FieldTypeNumber
			number := form.Number{Required: field.Required}
			if value.Min != nil {
				lower := *value.Min
				number.Min = &lower
			}
			if value.Max != nil {
				upper := *value.Max
				number.Max = &upper
			}
			validator = number
		case value.Type.Is(openapi3.TypeBoolean):
			field.Type = form.FieldTypeBoolean
			validator = form.Boolean{}
		case value.Type.Is(openapi3.TypeObject):
			nestedFields, nestedValidators, err := convertObject(path+"."+name, value, visiting)
			if err != nil {
				return nil, nil, err
			}
			field.Type = form.FieldTypeObject
			field.Nested = nestedFields
			validator = nestedValidators
		default:
			return nil, nil, fmt.Errorf("openapi: %s.%s has unsupported type %q", path, name, typeName(value.Type))
		}

		fields.Set(field)
		validators.Set(name, validator)
	}
	return fields, validators, nil
}

func orderedProperties(properties openapi3.Schemas) []string {
	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}
	sort.SliceStable(names, func(i, j int) bool {
		left, leftOK := order(properties[names[i]])
		right, rightOK := order(properties[names[j]])
		switch {
		case leftOK && rightOK && left != right:
			return left < right
		case leftOK != rightOK:
			return leftOK
		default:
			return names[i] < names[j]
		}
	})
	return names
}

func order(ref *openapi3.SchemaRef) (float64, bool) {
	if ref == nil || ref.Value == nil {
		return 0, false
	}
	switch typed := ref.Value.Extensions[orderExtension].(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	}
	return 0, false
}

func label(name string, schema *openapi3.Schema) string {
	if title := strings.TrimSpace(schema.Title); title != "" {
		return title
	}
	words := strings.Fields(strings.ReplaceAll(name, "_", " "))
	for idx, word := range words {
		words[idx] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func typeName(types *openapi3.Types) string {
	if types == nil {
		return ""
	}
	return strings.Join(types.Slice(), ",")
}
