package form

import (
	"fmt"
	"slices"
)

// UnsetAllExcept removes every slot whose name is not in keep from the field
// and validator schemas. Embedded forms and defaults in removed slots go with
// them. A nil keep list removes everything.
func (f *Form) UnsetAllExcept(keep []string) {
	names := f.fields.Names()
	for _, name := range f.validators.Names() {
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	for _, name := range names {
		if slices.Contains(keep, name) {
			continue
		}
		f.unset(name)
	}
	f.resetFormFields()
}

func (f *Form) unset(name string) {
	f.fields.Remove(name)
	f.validators.Remove(name)
	delete(f.defaults, name)
	f.removeEmbedded(name)
}

// HasEmbeddedForm reports whether a child form occupies slot name.
func (f *Form) HasEmbeddedForm(name string) bool {
	_, ok := f.embedded[name]
	return ok
}

// ReplaceValidatorSchema swaps the active validator schema for schema after
// copying every current slot validator and any pre/post validator into it.
func (f *Form) ReplaceValidatorSchema(schema *ValidatorSchema) error {
	if schema == nil {
		return fmt.Errorf("%w: validator schema is nil", ErrInvalidArgument)
	}
	f.validators = copyValidatorSchema(f.validators, schema)
	return nil
}

// BindWithDefaults binds the form against its own cleaned defaults, which is
// how an object is validated without user input.
func (f *Form) BindWithDefaults() error {
	return f.Bind(f.CleanedDefaults(), nil)
}

// CleanedDefaults returns the default tree restricted to slots present in
// the field schema, recursing into embedded schemas. The form is not
// modified.
func (f *Form) CleanedDefaults() Values {
	return cleanDefaults(f.defaults, f.fields)
}

func cleanDefaults(defaults Values, schema *FieldSchema) Values {
	out := make(Values, len(defaults))
	for name, value := range defaults {
		field, ok := schema.Get(name)
		if !ok {
			continue
		}
		if nested, isMap := asValues(value); isMap && field.Nested != nil {
			out[name] = cleanDefaults(nested, field.Nested)
			continue
		}
		out[name] = value
	}
	return out
}

// RemoveEmbeddedForms drops the named child slots, or every child slot when
// names is empty, from the child set and both schemas. Unknown names fail
// before anything is removed.
func (f *Form) RemoveEmbeddedForms(names []string) error {
	if len(names) == 0 {
		names = f.EmbeddedNames()
	}
	for _, name := range names {
		if !f.HasEmbeddedForm(name) {
			return fmt.Errorf("%w: embedded form %q does not exist", ErrInvalidArgument, name)
		}
	}
	for _, name := range names {
		f.removeEmbedded(name)
		f.fields.Remove(name)
		f.validators.Remove(name)
	}
	f.resetFormFields()
	return nil
}

// ConfigureWithValues hands every embedded form its slice of the submitted
// values. Slots whose submitted value is missing, empty or not a map are
// skipped. A child that reports a structural change is re-embedded so the
// parent schemas pick it up, and the change is reported upwards.
func (f *Form) ConfigureWithValues(values Values, files Files) (bool, error) {
	changed := false
	for _, name := range f.EmbeddedNames() {
		child := f.embedded[name]
		childValues, ok := asValues(values[name])
		if !ok || len(childValues) == 0 {
			continue
		}
		childFiles, ok := asValues(files[name])
		if !ok {
			childFiles = Files{}
		}

		childChanged, err := child.ConfigureWithValues(childValues, childFiles)
		if err != nil {
			return false, fmt.Errorf("form: configure %q: %w", name, err)
		}
		if !childChanged {
			continue
		}
		if err := f.Embed(name, child); err != nil {
			return false, err
		}
		f.logger.Debug("embedded form reconfigured", "slot", name)
		changed = true
	}
	return changed, nil
}
