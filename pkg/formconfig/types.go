package formconfig

import (
	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/orm/sqlite"
)

// Store holds every definition found by LoadFS.
type Store struct {
	forms       map[string]Form
	collections map[string]Collection
	tables      []sqlite.Table
}

// OpenAPIRef points a form at a component schema. File is resolved relative
// to the configuration document that declares it.
type OpenAPIRef struct {
	File   string `json:"file" yaml:"file"`
	Schema string `json:"schema" yaml:"schema"`
}

// FieldConfig declares one inline field and its validator.
type FieldConfig struct {
	Name      string   `json:"name" yaml:"name"`
	Type      string   `json:"type" yaml:"type"`
	Label     string   `json:"label" yaml:"label"`
	Required  bool     `json:"required" yaml:"required"`
	MinLength int      `json:"minLength" yaml:"minLength"`
	MaxLength int      `json:"maxLength" yaml:"maxLength"`
	Pattern   string   `json:"pattern" yaml:"pattern"`
	Minimum   *float64 `json:"minimum" yaml:"minimum"`
	Maximum   *float64 `json:"maximum" yaml:"maximum"`
}

// Form is a resolved form definition. Inline fields are applied after the
// OpenAPI schema, so they can override generated slots.
type Form struct {
	ID         string
	Source     string
	OpenAPI    *OpenAPIRef
	Fields     *form.FieldSchema
	Validators *form.ValidatorSchema
}

// Factory returns a child form factory for the definition. Every form built
// by it receives its own copy of the schemas.
func (f Form) Factory(options ...form.Option) form.ChildFormFactory {
	return form.EntityFormFactory(f.Fields, f.Validators, options...)
}

// Messages overrides the cardinality messages of a collection.
type Messages struct {
	Min string `json:"min" yaml:"min"`
	Max string `json:"max" yaml:"max"`
}

// Collection binds a relation alias to a child form.
type Collection struct {
	ID        string   `json:"-" yaml:"-"`
	Source    string   `json:"-" yaml:"-"`
	Relation  string   `json:"relation" yaml:"relation"`
	ChildForm string   `json:"childForm" yaml:"childForm"`
	Min       int      `json:"min" yaml:"min"`
	Max       int      `json:"max" yaml:"max"`
	Messages  Messages `json:"messages" yaml:"messages"`
}

// Options translates the binding into collection form options.
func (c Collection) Options() []form.CollectionOption {
	options := []form.CollectionOption{form.WithMin(c.Min), form.WithMax(c.Max)}
	if c.ChildForm != "" {
		options = append(options, form.WithChildForm(c.ChildForm))
	}
	if c.Messages.Min != "" || c.Messages.Max != "" {
		options = append(options, form.WithMessages(c.Messages.Min, c.Messages.Max))
	}
	return options
}
