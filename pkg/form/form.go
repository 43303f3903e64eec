// Package form layers dynamic reconfiguration and one-to-many collection
// embedding on top of a small form core.
//
// A Form owns a field schema, a validator schema, a default value tree and an
// ordered set of embedded child forms. Binding first gives every embedded form
// the chance to rebuild itself from the submitted values (ConfigureWithValues),
// then validates the whole tree in one pass and cascades the bound state down
// to the children. EntityForm backs a form with a persisted entity,
// NoObjectForm has no backing entity, and CollectionForm reconciles the rows
// of a relation against submitted slot keys.
package form

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Embeddable is anything that can occupy a child slot of a form.
type Embeddable interface {
	// Base exposes the underlying form state.
	Base() *Form
	// ConfigureWithValues lets the form rebuild its structure from submitted
	// values before validation. It reports whether the structure changed.
	ConfigureWithValues(values Values, files Files) (bool, error)
}

// Form is the shared form core. The zero value is not usable; call New or one
// of the typed constructors.
type Form struct {
	fields     *FieldSchema
	validators *ValidatorSchema
	defaults   Values

	embedded      map[string]Embeddable
	embeddedOrder []string

	bound        bool
	tainted      Values
	taintedFiles Files
	values       Values
	errors       *ErrorSchema
	formFields   []FormField

	// self receives ConfigureWithValues during Bind so wrapping types can
	// replace the reconfiguration step.
	self interface {
		ConfigureWithValues(values Values, files Files) (bool, error)
	}

	logger    *slog.Logger
	sanitizer Sanitizer
	resolver  orm.Resolver
}

var _ Embeddable = (*Form)(nil)

// New constructs a plain form.
func New(options ...Option) *Form {
	f := newForm(options)
	f.self = f
	return f
}

func newForm(options []Option) *Form {
	f := &Form{
		fields:     NewFieldSchema(),
		validators: NewValidatorSchema(),
		defaults:   Values{},
		embedded:   make(map[string]Embeddable),
		logger:     discardLogger(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(f)
	}
	if f.defaults == nil {
		f.defaults = Values{}
	}
	return f
}

// Base returns f.
func (f *Form) Base() *Form { return f }

func (f *Form) Fields() *FieldSchema         { return f.fields }
func (f *Form) Validators() *ValidatorSchema { return f.validators }
func (f *Form) Logger() *slog.Logger         { return f.logger }

// AddField registers a scalar slot with its validator.
func (f *Form) AddField(field Field, validator Validator) {
	if validator == nil {
		validator = Pass()
	}
	f.fields.Set(field)
	f.validators.Set(field.Name, validator)
	f.resetFormFields()
}

// Defaults returns a copy of the default value tree.
func (f *Form) Defaults() Values {
	return cloneValues(f.defaults)
}

// SetDefault sets the default value for one slot.
func (f *Form) SetDefault(name string, value any) {
	f.defaults[name] = value
	f.resetFormFields()
}

// SetDefaults replaces the default value tree.
func (f *Form) SetDefaults(defaults Values) {
	f.defaults = cloneValues(defaults)
	if f.defaults == nil {
		f.defaults = Values{}
	}
	f.resetFormFields()
}

// Embed places child under name, replacing any form already there while
// keeping its position. The child's field schema, validator schema and
// defaults become the slot's nested entries.
func (f *Form) Embed(name string, child Embeddable) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: embedded form name is required", ErrInvalidArgument)
	}
	if child == nil || child.Base() == nil {
		return fmt.Errorf("%w: embedded form %q is nil", ErrInvalidArgument, name)
	}
	if child.Base() == f {
		return fmt.Errorf("%w: form cannot embed itself", ErrInvalidArgument)
	}

	base := child.Base()
	if _, exists := f.embedded[name]; !exists {
		f.embeddedOrder = append(f.embeddedOrder, name)
	}
	f.embedded[name] = child
	f.fields.Set(Field{Name: name, Type: FieldTypeObject, Nested: base.fields})
	f.validators.Set(name, base.validators)
	f.defaults[name] = base.Defaults()
	f.resetFormFields()
	return nil
}

// EmbeddedForm returns the child in slot name.
func (f *Form) EmbeddedForm(name string) (Embeddable, bool) {
	child, ok := f.embedded[name]
	return child, ok
}

// EmbeddedNames lists child slots in embedding order.
func (f *Form) EmbeddedNames() []string {
	return slices.Clone(f.embeddedOrder)
}

func (f *Form) removeEmbedded(name string) {
	if _, ok := f.embedded[name]; !ok {
		return
	}
	delete(f.embedded, name)
	f.embeddedOrder = slices.DeleteFunc(f.embeddedOrder, func(candidate string) bool { return candidate == name })
}

// Bind reconfigures the form tree from values, then validates it. Validation
// failures are reported through IsValid and Errors; the returned error is
// reserved for fatal conditions.
func (f *Form) Bind(values Values, files Files) error {
	if values == nil {
		values = Values{}
	}
	if f.sanitizer != nil {
		values = f.sanitizer.SanitizeValues(values)
	}
	if files == nil {
		files = Files{}
	}

	configurer := f.self
	if configurer == nil {
		configurer = f
	}
	if _, err := configurer.ConfigureWithValues(values, files); err != nil {
		return err
	}
	return f.doBind(values, files)
}

func (f *Form) doBind(values Values, files Files) error {
	cleaned, err := f.validators.Clean(values)
	errs := NewErrorSchema()
	if err != nil {
		var schemaErr *ErrorSchema
		var validationErr *ValidationError
		switch {
		case errors.As(err, &schemaErr):
			errs = schemaErr
		case errors.As(err, &validationErr):
			errs.AddGlobal(validationErr)
		default:
			return fmt.Errorf("form: bind: %w", err)
		}
	}

	partial, _ := cleaned.(Values)
	f.setBound(values, files, partial, errs)
	return nil
}

func (f *Form) setBound(tainted Values, files Files, partial Values, errs *ErrorSchema) {
	if errs == nil {
		errs = NewErrorSchema()
	}
	f.bound = true
	f.tainted = tainted
	f.taintedFiles = files
	f.errors = errs
	if errs.Empty() {
		f.values = partial
		if f.values == nil {
			f.values = Values{}
		}
	} else {
		f.values = nil
	}
	f.resetFormFields()

	for _, name := range f.embeddedOrder {
		childTainted, _ := asValues(tainted[name])
		childFiles, _ := asValues(files[name])
		childPartial, _ := asValues(partial[name])
		childErrs := errs.Child(name)
		if childErrs == nil {
			childErrs = NewErrorSchema()
			if leaf, ok := errs.Named[name]; ok {
				var validationErr *ValidationError
				if errors.As(leaf, &validationErr) {
					childErrs.AddGlobal(validationErr)
				}
			}
		}
		f.embedded[name].Base().setBound(childTainted, childFiles, childPartial, childErrs)
	}
}

// IsBound reports whether Bind has run.
func (f *Form) IsBound() bool { return f.bound }

// IsValid reports whether the form is bound and free of validation errors.
func (f *Form) IsValid() bool {
	return f.bound && f.errors.Empty()
}

// Values returns the cleaned value tree, or nil when the form is unbound or
// invalid.
func (f *Form) Values() Values {
	return cloneValues(f.values)
}

// TaintedValues returns the submitted values as received by Bind.
func (f *Form) TaintedValues() Values {
	return cloneValues(f.tainted)
}

// Errors returns the validation errors of the last bind.
func (f *Form) Errors() *ErrorSchema {
	if f.errors == nil {
		return NewErrorSchema()
	}
	return f.errors
}

// FormField is a read-only view combining schema, value and errors of a
// slot. Nested holds the view of embedded forms.
type FormField struct {
	Name   string
	Type   FieldType
	Label  string
	Value  any
	Errors []string
	Nested []FormField
}

// FormFields returns the derived field view, rebuilding it after any
// structural change or bind.
func (f *Form) FormFields() []FormField {
	if f.formFields == nil {
		f.formFields = buildFormFields(f.fields, f.currentValues(), f.errors)
	}
	return f.formFields
}

func (f *Form) currentValues() Values {
	if f.bound {
		return f.tainted
	}
	return f.defaults
}

func (f *Form) resetFormFields() {
	f.formFields = nil
}

func buildFormFields(schema *FieldSchema, values Values, errs *ErrorSchema) []FormField {
	fields := schema.Fields()
	out := make([]FormField, 0, len(fields))
	for _, field := range fields {
		view := FormField{
			Name:  field.Name,
			Type:  field.Type,
			Label: field.Label,
			Value: values[field.Name],
		}
		if errs != nil {
			if leaf, ok := errs.Named[field.Name]; ok {
				if _, nested := leaf.(*ErrorSchema); !nested {
					view.Errors = append(view.Errors, leaf.Error())
				}
			}
		}
		if field.Nested != nil {
			nestedValues, _ := asValues(values[field.Name])
			view.Value = nil
			view.Nested = buildFormFields(field.Nested, nestedValues, errs.Child(field.Name))
			if nestedErrs := errs.Child(field.Name); nestedErrs != nil {
				for _, global := range nestedErrs.Global {
					view.Errors = append(view.Errors, global.Message())
				}
			}
		}
		out = append(out, view)
	}
	return out
}
