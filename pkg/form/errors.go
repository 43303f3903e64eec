package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Fatal error classes. Callers classify with errors.Is.
var (
	// ErrConfiguration reports bad construction options: missing parent,
	// missing relation alias, min greater than max, composite identifiers or
	// unpersisted related entities at setup.
	ErrConfiguration = errors.New("form: invalid configuration")
	// ErrUsage reports misuse of a form, such as updating an invalid
	// collection or removing an embedded form that does not exist.
	ErrUsage = errors.New("form: invalid usage")
	// ErrInvalidArgument reports an argument that does not satisfy the
	// expected capability.
	ErrInvalidArgument = errors.New("form: invalid argument")
	// ErrReconciliation reports submitted slot keys that reference entities
	// no longer related to the parent. It is treated as tampering or stale
	// client state.
	ErrReconciliation = errors.New("form: stale collection reference")
)

func configurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrUsage, fmt.Sprintf(format, args...))
}

// ValidationError is a recoverable, user-facing validation failure. Template
// carries %name% placeholders filled from Params.
type ValidationError struct {
	Code     string
	Template string
	Params   map[string]any
}

// NewValidationError builds a ValidationError.
func NewValidationError(code, template string, params map[string]any) *ValidationError {
	return &ValidationError{Code: code, Template: template, Params: params}
}

// Message renders the template with its parameters substituted.
func (e *ValidationError) Message() string {
	if e == nil {
		return ""
	}
	if len(e.Params) == 0 {
		return e.Template
	}
	keys := make([]string, 0, len(e.Params))
	for key := range e.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys)*2)
	for _, key := range keys {
		pairs = append(pairs, "%"+key+"%", fmt.Sprint(e.Params[key]))
	}
	return strings.NewReplacer(pairs...).Replace(e.Template)
}

func (e *ValidationError) Error() string {
	return e.Message()
}

// ErrorSchema groups validation errors by slot. Named entries hold either a
// *ValidationError or a nested *ErrorSchema for embedded forms.
type ErrorSchema struct {
	Global []*ValidationError
	Named  map[string]error
}

// NewErrorSchema returns an empty schema.
func NewErrorSchema() *ErrorSchema {
	return &ErrorSchema{}
}

// AddGlobal records a schema-level error.
func (s *ErrorSchema) AddGlobal(err *ValidationError) {
	if err == nil {
		return
	}
	s.Global = append(s.Global, err)
}

// AddNamed records an error for the named slot. Nested schemas merge with an
// existing nested schema for the same slot.
func (s *ErrorSchema) AddNamed(name string, err error) {
	if err == nil {
		return
	}
	if s.Named == nil {
		s.Named = make(map[string]error)
	}
	if nested, ok := err.(*ErrorSchema); ok {
		if existing, ok := s.Named[name].(*ErrorSchema); ok {
			existing.merge(nested)
			return
		}
	}
	s.Named[name] = err
}

func (s *ErrorSchema) merge(other *ErrorSchema) {
	if other == nil {
		return
	}
	s.Global = append(s.Global, other.Global...)
	for name, err := range other.Named {
		s.AddNamed(name, err)
	}
}

// Child returns the nested schema recorded for name, or nil.
func (s *ErrorSchema) Child(name string) *ErrorSchema {
	if s == nil {
		return nil
	}
	nested, _ := s.Named[name].(*ErrorSchema)
	return nested
}

// Len counts every leaf error in the schema.
func (s *ErrorSchema) Len() int {
	if s == nil {
		return 0
	}
	count := len(s.Global)
	for _, err := range s.Named {
		if nested, ok := err.(*ErrorSchema); ok {
			count += nested.Len()
			continue
		}
		count++
	}
	return count
}

// Empty reports whether the schema holds no errors.
func (s *ErrorSchema) Empty() bool {
	return s.Len() == 0
}

// Flatten maps dotted slot paths to messages. Global errors use the empty
// path of their schema.
func (s *ErrorSchema) Flatten() map[string][]string {
	out := make(map[string][]string)
	s.flatten("", out)
	if len(out) == 0 {
		return nil
	}
	return out
}

func (s *ErrorSchema) flatten(prefix string, out map[string][]string) {
	if s == nil {
		return
	}
	for _, err := range s.Global {
		out[prefix] = append(out[prefix], err.Message())
	}
	for name, err := range s.Named {
		path := joinPath(prefix, name)
		if nested, ok := err.(*ErrorSchema); ok {
			nested.flatten(path, out)
			continue
		}
		out[path] = append(out[path], err.Error())
	}
}

func (s *ErrorSchema) Error() string {
	flat := s.Flatten()
	if len(flat) == 0 {
		return "form: no errors"
	}
	paths := make([]string, 0, len(flat))
	for path := range flat {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	parts := make([]string, 0, len(paths))
	for _, path := range paths {
		label := path
		if label == "" {
			label = "form"
		}
		parts = append(parts, label+": "+strings.Join(flat[path], "; "))
	}
	return strings.Join(parts, ", ")
}

func joinPath(parent, child string) string {
	if parent == "" {
		return child
	}
	if child == "" {
		return parent
	}
	return parent + "." + child
}
