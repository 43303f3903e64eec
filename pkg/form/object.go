package form

import (
	"context"
	"fmt"
	"slices"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// ObjectCarrier is implemented by every form that takes part in the update
// and save cascade, whether or not it has a real backing entity.
type ObjectCarrier interface {
	Embeddable
	Object() orm.Entity
	// UpdateObject copies values into the backing entity and cascades to
	// embedded forms. Nil values fall back to the form's cleaned values.
	UpdateObject(values Values) error
	// SaveEmbeddedForms persists embedded forms in embedding order.
	SaveEmbeddedForms(ctx context.Context, conn orm.Conn) error
}

// ObjectForm is the capability set of forms backed by a real entity.
// NoObjectForm deliberately does not implement it.
type ObjectForm interface {
	ObjectCarrier
	IsNew() bool
	Save(ctx context.Context, conn orm.Conn) error
	EmbedRelation(alias string, options ...CollectionOption) (*CollectionForm, error)
}

// EntityForm is a form backed by a persisted (or to be persisted) entity.
type EntityForm struct {
	*Form
	object orm.Entity
}

var _ ObjectForm = (*EntityForm)(nil)

// NewEntityForm builds a form for object. Scalar slots without an explicit
// default take their default from the entity.
func NewEntityForm(object orm.Entity, options ...Option) (*EntityForm, error) {
	if object == nil {
		return nil, configurationError("entity form requires an object")
	}
	f := &EntityForm{Form: New(options...), object: object}
	f.updateDefaultsFromObject()
	return f, nil
}

func (f *EntityForm) updateDefaultsFromObject() {
	for _, field := range f.fields.Fields() {
		if field.Nested != nil {
			continue
		}
		if _, explicit := f.defaults[field.Name]; explicit {
			continue
		}
		if value, ok := f.object.Get(field.Name); ok {
			f.defaults[field.Name] = value
		}
	}
	f.resetFormFields()
}

// Object returns the backing entity.
func (f *EntityForm) Object() orm.Entity { return f.object }

// IsNew reports whether the backing entity has not been saved yet.
func (f *EntityForm) IsNew() bool { return f.object.IsNew() }

// UpdateObject writes scalar values into the entity then cascades to the
// embedded forms.
func (f *EntityForm) UpdateObject(values Values) error {
	if values == nil {
		if !f.IsValid() {
			return usageError("cannot update the object of an invalid form")
		}
		values = f.Values()
	}
	for _, field := range f.fields.Fields() {
		if field.Nested != nil || f.HasEmbeddedForm(field.Name) {
			continue
		}
		value, ok := values[field.Name]
		if !ok {
			continue
		}
		if err := f.object.Set(field.Name, value); err != nil {
			return fmt.Errorf("form: set %q: %w", field.Name, err)
		}
	}
	return updateEmbeddedObjects(f.Form, values)
}

// Save validates state, updates the entity, saves it and then cascades to
// embedded forms. Wrap the call in a transaction for atomicity.
func (f *EntityForm) Save(ctx context.Context, conn orm.Conn) error {
	if !f.IsValid() {
		return usageError("cannot save an invalid form")
	}
	conn, err := orm.Resolve(ctx, conn, f.resolver)
	if err != nil {
		return err
	}
	if err := f.UpdateObject(nil); err != nil {
		return err
	}
	if err := f.object.Save(ctx, conn); err != nil {
		return fmt.Errorf("form: save object: %w", err)
	}
	return f.SaveEmbeddedForms(ctx, conn)
}

// SaveEmbeddedForms persists embedded forms in embedding order.
func (f *EntityForm) SaveEmbeddedForms(ctx context.Context, conn orm.Conn) error {
	conn, err := orm.Resolve(ctx, conn, f.resolver)
	if err != nil {
		return err
	}
	return saveEmbeddedForms(ctx, f.Form, conn)
}

// EmbedRelation builds a collection form over the entity's one-to-many
// relation alias and embeds it under the alias.
func (f *EntityForm) EmbedRelation(alias string, options ...CollectionOption) (*CollectionForm, error) {
	options = append([]CollectionOption{WithFormOptions(WithLogger(f.logger), WithConnectionResolver(f.resolver))}, options...)
	collection, err := NewCollectionForm(f.object, alias, options...)
	if err != nil {
		return nil, err
	}
	if err := f.Embed(alias, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

// updateEmbeddedObjects hands each carrier its slice of values. Slots named
// in skip are left alone.
func updateEmbeddedObjects(f *Form, values Values, skip ...string) error {
	for _, name := range f.EmbeddedNames() {
		if slices.Contains(skip, name) {
			continue
		}
		carrier, ok := f.embedded[name].(ObjectCarrier)
		if !ok {
			continue
		}
		childValues, _ := asValues(values[name])
		if err := carrier.UpdateObject(childValues); err != nil {
			return fmt.Errorf("form: update %q: %w", name, err)
		}
	}
	return nil
}

// saveEmbeddedForms saves each carrier's entity before descending into its
// own embedded forms, so children can resolve their parent's identifier.
// Plain embedded forms are transparent containers.
func saveEmbeddedForms(ctx context.Context, f *Form, conn orm.Conn) error {
	for _, name := range f.EmbeddedNames() {
		child := f.embedded[name]
		carrier, ok := child.(ObjectCarrier)
		if !ok {
			if err := saveEmbeddedForms(ctx, child.Base(), conn); err != nil {
				return err
			}
			continue
		}
		if err := carrier.Object().Save(ctx, conn); err != nil {
			return fmt.Errorf("form: save %q: %w", name, err)
		}
		f.logger.Debug("embedded object saved", "slot", name)
		if err := carrier.SaveEmbeddedForms(ctx, conn); err != nil {
			return err
		}
	}
	return nil
}
