package form_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgen-orm/pkg/form"
)

func int64Ptr(v int64) *int64 { return &v }

func TestScalarValidators(t *testing.T) {
	cases := []struct {
		name      string
		validator form.Validator
		input     any
		want      any
		wantCode  string
	}{
		{name: "string trims", validator: form.String{}, input: "  hi ", want: "hi"},
		{name: "string optional empty", validator: form.String{}, input: "", want: nil},
		{name: "string required", validator: form.String{Required: true}, input: " ", wantCode: "required"},
		{name: "string too short", validator: form.String{MinLength: 3}, input: "ab", wantCode: "min_length"},
		{name: "string too long", validator: form.String{MaxLength: 2}, input: "abc", wantCode: "max_length"},
		{name: "string pattern", validator: form.String{Pattern: regexp.MustCompile(`^\d+$`)}, input: "12a", wantCode: "invalid"},
		{name: "string from number", validator: form.String{}, input: 42, want: "42"},
		{name: "string rejects map", validator: form.String{}, input: form.Values{}, wantCode: "invalid"},
		{name: "integer parses", validator: form.Integer{}, input: "17", want: int64(17)},
		{name: "integer from float", validator: form.Integer{}, input: float64(3), want: int64(3)},
		{name: "integer rejects fraction", validator: form.Integer{}, input: 3.5, wantCode: "invalid"},
		{name: "integer min", validator: form.Integer{Min: int64Ptr(5)}, input: 4, wantCode: "min"},
		{name: "integer max", validator: form.Integer{Max: int64Ptr(5)}, input: "6", wantCode: "max"},
		{name: "integer required", validator: form.Integer{Required: true}, input: nil, wantCode: "required"},
		{name: "number parses", validator: form.Number{}, input: "2.5", want: 2.5},
		{name: "boolean on", validator: form.Boolean{}, input: "on", want: true},
		{name: "boolean missing", validator: form.Boolean{}, input: nil, want: false},
		{name: "boolean invalid", validator: form.Boolean{}, input: "maybe", wantCode: "invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.validator.Clean(tc.input)
			if tc.wantCode != "" {
				var validationErr *form.ValidationError
				if !errors.As(err, &validationErr) || validationErr.Code != tc.wantCode {
					t.Fatalf("expected %s error, got %v", tc.wantCode, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Fatalf("cleaned value mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidatorSchema_Clean(t *testing.T) {
	schema := form.NewValidatorSchema().
		Set("title", form.String{Required: true}).
		Set("pages", form.Integer{})

	var postCalls int
	schema.SetPostValidator(form.SchemaValidatorFunc(func(values form.Values) (form.Values, error) {
		postCalls++
		return values, nil
	}))

	cleaned, err := schema.Clean(form.Values{"title": "Dune", "pages": "412", "ignored": true})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	want := form.Values{"title": "Dune", "pages": int64(412)}
	if diff := cmp.Diff(want, cleaned); diff != "" {
		t.Fatalf("cleaned mismatch (-want +got):\n%s", diff)
	}

	_, err = schema.Clean(form.Values{"pages": "x"})
	var errs *form.ErrorSchema
	if !errors.As(err, &errs) {
		t.Fatalf("expected error schema, got %v", err)
	}
	if errs.Len() != 2 {
		t.Fatalf("expected two field errors, got %v", errs)
	}
	if postCalls != 1 {
		t.Fatalf("expected post validator to be skipped on field errors, calls=%d", postCalls)
	}

	if _, err := schema.Clean("not a map"); err == nil {
		t.Fatalf("expected invalid error for non-map input")
	}
}

func TestValidatorSchema_FatalErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	schema := form.NewValidatorSchema().Set("broken", form.ValidatorFunc(func(any) (any, error) {
		return nil, boom
	}))
	if _, err := schema.Clean(form.Values{}); !errors.Is(err, boom) {
		t.Fatalf("expected fatal error, got %v", err)
	}

	f := form.New(form.WithValidatorSchema(schema))
	if err := f.Bind(form.Values{}, nil); !errors.Is(err, boom) {
		t.Fatalf("expected Bind to return the fatal error, got %v", err)
	}
}

func TestValidationErrorMessage(t *testing.T) {
	err := form.NewValidationError("min", "At least %min% of %total% (%min%)", map[string]any{"min": 2, "total": 5})
	if got := err.Message(); got != "At least 2 of 5 (2)" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestErrorSchemaFlatten(t *testing.T) {
	nested := form.NewErrorSchema()
	nested.AddGlobal(form.NewValidationError("max", "At most %max%.", map[string]any{"max": 1}))
	nested.AddNamed("transient_0", form.NewValidationError("required", "Required.", nil))

	root := form.NewErrorSchema()
	root.AddNamed("name", form.NewValidationError("required", "Required.", nil))
	root.AddNamed("Books", nested)

	want := map[string][]string{
		"name":              {"Required."},
		"Books":             {"At most 1."},
		"Books.transient_0": {"Required."},
	}
	if diff := cmp.Diff(want, root.Flatten()); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
	if root.Len() != 3 {
		t.Fatalf("expected 3 errors, got %d", root.Len())
	}
}
