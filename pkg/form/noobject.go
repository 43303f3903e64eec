package form

import (
	"context"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// NoObjectForm has no backing entity. It serves as the base of
// CollectionForm and as a root form that embeds several candidate sub-forms,
// each producing its own object.
type NoObjectForm struct {
	*Form
	object orm.Entity
	// carrier receives UpdateObject and SaveEmbeddedForms from Save so
	// wrapping types can replace either step.
	carrier ObjectCarrier
}

var _ ObjectCarrier = (*NoObjectForm)(nil)

// NewNoObjectForm builds a form backed by the null entity.
func NewNoObjectForm(options ...Option) *NoObjectForm {
	f := newNoObjectForm(options)
	f.Form.self = f.Form
	return f
}

func newNoObjectForm(options []Option) *NoObjectForm {
	f := &NoObjectForm{Form: newForm(options), object: orm.NullEntity{}}
	f.carrier = f
	return f
}

// Object returns the null entity.
func (f *NoObjectForm) Object() orm.Entity { return f.object }

// ModelName is empty: there is no backing model.
func (f *NoObjectForm) ModelName() string { return "" }

// Connection resolves the ambient default connection.
func (f *NoObjectForm) Connection(ctx context.Context) (orm.Conn, error) {
	return orm.Resolve(ctx, nil, f.resolver)
}

// UpdateObject only cascades to embedded forms; there is nothing to copy
// into.
func (f *NoObjectForm) UpdateObject(values Values) error {
	if values == nil {
		if !f.IsValid() {
			return usageError("cannot update the objects of an invalid form")
		}
		values = f.Values()
	}
	return updateEmbeddedObjects(f.Form, values)
}

// SaveEmbeddedForms persists embedded forms in embedding order.
func (f *NoObjectForm) SaveEmbeddedForms(ctx context.Context, conn orm.Conn) error {
	conn, err := orm.Resolve(ctx, conn, f.resolver)
	if err != nil {
		return err
	}
	return saveEmbeddedForms(ctx, f.Form, conn)
}

// Save requires a valid form, then runs the update step followed by the
// embedded save cascade.
func (f *NoObjectForm) Save(ctx context.Context, conn orm.Conn) error {
	if !f.IsValid() {
		return usageError("cannot save an invalid form")
	}
	return f.doSave(ctx, conn)
}

func (f *NoObjectForm) doSave(ctx context.Context, conn orm.Conn) error {
	conn, err := orm.Resolve(ctx, conn, f.resolver)
	if err != nil {
		return err
	}
	if err := f.carrier.UpdateObject(nil); err != nil {
		return err
	}
	return f.carrier.SaveEmbeddedForms(ctx, conn)
}
