package form

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Validator cleans a single submitted value. Recoverable failures are
// returned as *ValidationError or *ErrorSchema; any other error is fatal.
type Validator interface {
	Clean(value any) (any, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(value any) (any, error)

func (fn ValidatorFunc) Clean(value any) (any, error) { return fn(value) }

// SchemaValidator runs against the whole value map of a schema, before
// (pre) or after (post) the field validators.
type SchemaValidator interface {
	Validate(values Values) (Values, error)
}

// SchemaValidatorFunc adapts a function to SchemaValidator.
type SchemaValidatorFunc func(values Values) (Values, error)

func (fn SchemaValidatorFunc) Validate(values Values) (Values, error) { return fn(values) }

// ValidatorSchema holds one validator per slot plus optional schema-level
// validators. It is itself a Validator so embedded forms nest naturally.
type ValidatorSchema struct {
	order      []string
	validators map[string]Validator
	pre        SchemaValidator
	post       SchemaValidator
}

var _ Validator = (*ValidatorSchema)(nil)

// NewValidatorSchema returns an empty schema.
func NewValidatorSchema() *ValidatorSchema {
	return &ValidatorSchema{validators: make(map[string]Validator)}
}

// Set adds or replaces the validator for name.
func (s *ValidatorSchema) Set(name string, validator Validator) *ValidatorSchema {
	if s.validators == nil {
		s.validators = make(map[string]Validator)
	}
	if _, exists := s.validators[name]; !exists {
		s.order = append(s.order, name)
	}
	s.validators[name] = validator
	return s
}

func (s *ValidatorSchema) Get(name string) (Validator, bool) {
	if s == nil {
		return nil, false
	}
	validator, ok := s.validators[name]
	return validator, ok
}

func (s *ValidatorSchema) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

// Remove drops the validator for name and reports whether it existed.
func (s *ValidatorSchema) Remove(name string) bool {
	if s == nil {
		return false
	}
	if _, ok := s.validators[name]; !ok {
		return false
	}
	delete(s.validators, name)
	s.order = slices.DeleteFunc(s.order, func(candidate string) bool { return candidate == name })
	return true
}

func (s *ValidatorSchema) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.order)
}

func (s *ValidatorSchema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *ValidatorSchema) PreValidator() SchemaValidator  { return s.pre }
func (s *ValidatorSchema) PostValidator() SchemaValidator { return s.post }

func (s *ValidatorSchema) SetPreValidator(validator SchemaValidator)  { s.pre = validator }
func (s *ValidatorSchema) SetPostValidator(validator SchemaValidator) { s.post = validator }

// Clean validates a value map. The post validator only runs once every
// field validator succeeded. Partially cleaned values are returned alongside
// an *ErrorSchema so callers can still inspect what passed.
func (s *ValidatorSchema) Clean(value any) (any, error) {
	var input Values
	switch typed := value.(type) {
	case nil:
		input = Values{}
	case Values:
		input = typed
	default:
		return nil, NewValidationError("invalid", "Invalid.", nil)
	}

	errs := NewErrorSchema()
	if s.pre != nil {
		cleaned, err := s.pre.Validate(input)
		if fatal := collectSchemaError(errs, err); fatal != nil {
			return nil, fatal
		}
		if err == nil && cleaned != nil {
			input = cleaned
		}
	}

	clean := make(Values, len(s.order))
	for _, name := range s.order {
		cleaned, err := s.validators[name].Clean(input[name])
		if err != nil {
			if !isValidationFailure(err) {
				return nil, fmt.Errorf("form: clean %q: %w", name, err)
			}
			errs.AddNamed(name, err)
			if cleaned != nil {
				clean[name] = cleaned
			}
			continue
		}
		clean[name] = cleaned
	}

	if errs.Empty() && s.post != nil {
		cleaned, err := s.post.Validate(clean)
		if fatal := collectSchemaError(errs, err); fatal != nil {
			return nil, fatal
		}
		if err == nil && cleaned != nil {
			clean = cleaned
		}
	}

	if !errs.Empty() {
		return clean, errs
	}
	return clean, nil
}

func collectSchemaError(errs *ErrorSchema, err error) error {
	if err == nil {
		return nil
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		errs.AddGlobal(validationErr)
		return nil
	}
	var schemaErr *ErrorSchema
	if errors.As(err, &schemaErr) {
		errs.merge(schemaErr)
		return nil
	}
	return err
}

func isValidationFailure(err error) bool {
	var validationErr *ValidationError
	var schemaErr *ErrorSchema
	return errors.As(err, &validationErr) || errors.As(err, &schemaErr)
}

// Pass accepts any value unchanged.
func Pass() Validator {
	return ValidatorFunc(func(value any) (any, error) { return value, nil })
}

func requiredError() *ValidationError {
	return NewValidationError("required", "Required.", nil)
}

func invalidError(value any) *ValidationError {
	return NewValidationError("invalid", "\"%value%\" is invalid.", map[string]any{"value": value})
}

func isEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	default:
		return false
	}
}

// String validates scalar text input.
type String struct {
	Required  bool
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
}

func (v String) Clean(value any) (any, error) {
	if isEmpty(value) {
		if v.Required {
			return nil, requiredError()
		}
		return nil, nil
	}
	var text string
	switch typed := value.(type) {
	case string:
		text = strings.TrimSpace(typed)
	case bool, int, int32, int64, float32, float64:
		text = fmt.Sprint(typed)
	default:
		return nil, invalidError(value)
	}
	length := len([]rune(text))
	if v.MinLength > 0 && length < v.MinLength {
		return nil, NewValidationError("min_length", "\"%value%\" is too short (%min_length% characters min).",
			map[string]any{"value": text, "min_length": v.MinLength})
	}
	if v.MaxLength > 0 && length > v.MaxLength {
		return nil, NewValidationError("max_length", "\"%value%\" is too long (%max_length% characters max).",
			map[string]any{"value": text, "max_length": v.MaxLength})
	}
	if v.Pattern != nil && !v.Pattern.MatchString(text) {
		return nil, invalidError(text)
	}
	return text, nil
}

// Integer validates whole numbers, accepting numeric strings.
type Integer struct {
	Required bool
	Min      *int64
	Max      *int64
}

func (v Integer) Clean(value any) (any, error) {
	if isEmpty(value) {
		if v.Required {
			return nil, requiredError()
		}
		return nil, nil
	}
	number, ok := toInt64(value)
	if !ok {
		return nil, invalidError(value)
	}
	if v.Min != nil && number < *v.Min {
		return nil, NewValidationError("min", "\"%value%\" must be at least %min%.",
			map[string]any{"value": number, "min": *v.Min})
	}
	if v.Max != nil && number > *v.Max {
		return nil, NewValidationError("max", "\"%value%\" must be at most %max%.",
			map[string]any{"value": number, "max": *v.Max})
	}
	return number, nil
}

// Number validates floating point input, accepting numeric strings.
type Number struct {
	Required bool
	Min      *float64
	Max      *float64
}

func (v Number) Clean(value any) (any, error) {
	if isEmpty(value) {
		if v.Required {
			return nil, requiredError()
		}
		return nil, nil
	}
	number, ok := toFloat64(value)
	if !ok {
		return nil, invalidError(value)
	}
	if v.Min != nil && number < *v.Min {
		return nil, NewValidationError("min", "\"%value%\" must be at least %min%.",
			map[string]any{"value": number, "min": *v.Min})
	}
	if v.Max != nil && number > *v.Max {
		return nil, NewValidationError("max", "\"%value%\" must be at most %max%.",
			map[string]any{"value": number, "max": *v.Max})
	}
	return number, nil
}

// Boolean maps checkbox style input to bool. Missing input is false.
type Boolean struct{}

func (Boolean) Clean(value any) (any, error) {
	switch typed := value.(type) {
	case nil:
		return false, nil
	case bool:
		return typed, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(typed)) {
		case "", "0", "false", "off", "no":
			return false, nil
		case "1", "true", "on", "yes":
			return true, nil
		}
	}
	return nil, invalidError(value)
}

func toInt64(value any) (int64, bool) {
	switch typed := value.(type) {
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case int64:
		return typed, true
	case float64:
		if typed != math.Trunc(typed) {
			return 0, false
		}
		return int64(typed), true
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}

func toFloat64(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
