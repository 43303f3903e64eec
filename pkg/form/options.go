package form

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Option customises a form at construction time.
type Option func(*Form)

// WithFieldSchema installs the field schema. The schema is cloned so forms
// built from a shared definition do not affect each other.
func WithFieldSchema(schema *FieldSchema) Option {
	return func(f *Form) {
		f.fields = schema.Clone()
	}
}

// WithValidatorSchema installs the validator schema. Field validators are
// copied into a fresh schema for the same reason as WithFieldSchema.
func WithValidatorSchema(schema *ValidatorSchema) Option {
	return func(f *Form) {
		if schema == nil {
			return
		}
		f.validators = copyValidatorSchema(schema, NewValidatorSchema())
	}
}

// WithDefaults sets the default value tree.
func WithDefaults(defaults Values) Option {
	return func(f *Form) {
		f.defaults = cloneValues(defaults)
	}
}

// WithLogger routes debug records about reconfiguration and saving.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithSanitizer cleans submitted strings before validation.
func WithSanitizer(sanitizer Sanitizer) Option {
	return func(f *Form) {
		f.sanitizer = sanitizer
	}
}

// WithConnectionResolver supplies the ambient default connection used when a
// save call does not receive one.
func WithConnectionResolver(resolver orm.Resolver) Option {
	return func(f *Form) {
		f.resolver = resolver
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func copyValidatorSchema(from, to *ValidatorSchema) *ValidatorSchema {
	for _, name := range from.Names() {
		validator, _ := from.Get(name)
		to.Set(name, validator)
	}
	if pre := from.PreValidator(); pre != nil {
		to.SetPreValidator(pre)
	}
	if post := from.PostValidator(); post != nil {
		to.SetPostValidator(post)
	}
	return to
}
