package form_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgen-orm/pkg/form"
)

func profileForm(t *testing.T) *form.Form {
	t.Helper()

	f := form.New(form.WithDefaults(form.Values{"name": "Ann", "email": "ann@example.com", "legacy": "x"}))
	f.AddField(form.Field{Name: "name", Type: form.FieldTypeString}, form.String{Required: true})
	f.AddField(form.Field{Name: "email", Type: form.FieldTypeString}, form.String{})
	f.AddField(form.Field{Name: "age", Type: form.FieldTypeInteger}, form.Integer{})

	address := form.New(form.WithDefaults(form.Values{"city": "Oslo", "zip": "0150", "stale": true}))
	address.AddField(form.Field{Name: "city", Type: form.FieldTypeString}, form.String{Required: true})
	address.AddField(form.Field{Name: "zip", Type: form.FieldTypeString}, form.String{})
	if err := f.Embed("address", address); err != nil {
		t.Fatalf("embed: %v", err)
	}
	return f
}

func TestUnsetAllExcept(t *testing.T) {
	f := profileForm(t)
	f.UnsetAllExcept([]string{"name", "address"})

	if diff := cmp.Diff([]string{"name", "address"}, f.Fields().Names()); diff != "" {
		t.Fatalf("field schema mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"name", "address"}, f.Validators().Names()); diff != "" {
		t.Fatalf("validator schema mismatch (-want +got):\n%s", diff)
	}
	if !f.HasEmbeddedForm("address") {
		t.Fatalf("expected address to be kept")
	}

	f.UnsetAllExcept(nil)
	if f.Fields().Len() != 0 || f.Validators().Len() != 0 || f.HasEmbeddedForm("address") {
		t.Fatalf("expected nil keep list to remove every slot")
	}
}

func TestHasEmbeddedForm(t *testing.T) {
	f := profileForm(t)
	if !f.HasEmbeddedForm("address") {
		t.Fatalf("expected address slot")
	}
	if f.HasEmbeddedForm("name") {
		t.Fatalf("scalar fields are not embedded forms")
	}
}

func TestReplaceValidatorSchema(t *testing.T) {
	f := profileForm(t)
	post := form.SchemaValidatorFunc(func(values form.Values) (form.Values, error) {
		return nil, form.NewValidationError("post", "post failed", nil)
	})
	f.Validators().SetPostValidator(post)

	replacement := form.NewValidatorSchema().Set("extra", form.Pass())
	if err := f.ReplaceValidatorSchema(replacement); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if f.Validators() != replacement {
		t.Fatalf("expected replacement to become the active schema")
	}
	want := []string{"extra", "name", "email", "age", "address"}
	if diff := cmp.Diff(want, replacement.Names()); diff != "" {
		t.Fatalf("validators not carried over (-want +got):\n%s", diff)
	}
	if replacement.PostValidator() == nil {
		t.Fatalf("expected post validator to be carried over")
	}

	if err := f.ReplaceValidatorSchema(nil); !errors.Is(err, form.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestCleanedDefaults(t *testing.T) {
	f := profileForm(t)
	want := form.Values{
		"name":    "Ann",
		"email":   "ann@example.com",
		"address": form.Values{"city": "Oslo", "zip": "0150"},
	}
	if diff := cmp.Diff(want, f.CleanedDefaults()); diff != "" {
		t.Fatalf("cleaned defaults mismatch (-want +got):\n%s", diff)
	}
	if _, ok := f.Defaults()["legacy"]; !ok {
		t.Fatalf("expected CleanedDefaults not to modify the form defaults")
	}
}

func TestBindWithDefaults(t *testing.T) {
	f := profileForm(t)
	if err := f.BindWithDefaults(); err != nil {
		t.Fatalf("bind with defaults: %v", err)
	}
	if !f.IsValid() {
		t.Fatalf("expected defaults to validate, got %v", f.Errors())
	}
	if got := f.Values()["address"].(form.Values)["city"]; got != "Oslo" {
		t.Fatalf("expected nested default value, got %v", got)
	}
}

func TestRemoveEmbeddedForms(t *testing.T) {
	t.Run("named", func(t *testing.T) {
		f := profileForm(t)
		if err := f.RemoveEmbeddedForms([]string{"address"}); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if f.HasEmbeddedForm("address") || f.Fields().Has("address") || f.Validators().Has("address") {
			t.Fatalf("expected address removed from every schema")
		}
		if !f.Fields().Has("name") {
			t.Fatalf("expected scalar fields to remain")
		}
	})

	t.Run("unknown name", func(t *testing.T) {
		f := profileForm(t)
		err := f.RemoveEmbeddedForms([]string{"address", "missing"})
		if !errors.Is(err, form.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got %v", err)
		}
		if !f.HasEmbeddedForm("address") {
			t.Fatalf("expected nothing removed when a name is unknown")
		}
	})

	t.Run("all", func(t *testing.T) {
		lib := newLibrary(t, "5", "9")
		collection := lib.collection(t)
		if err := collection.RemoveEmbeddedForms(nil); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if len(collection.EmbeddedNames()) != 0 || collection.Fields().Len() != 0 || collection.Validators().Len() != 0 {
			t.Fatalf("expected child map and both schemas emptied")
		}
		if len(collection.FormFields()) != 0 {
			t.Fatalf("expected derived form fields to be regenerated")
		}
	})
}

type shapeShifter struct {
	*form.Form
	calls []form.Values
}

func (s *shapeShifter) ConfigureWithValues(values form.Values, _ form.Files) (bool, error) {
	s.calls = append(s.calls, values)
	for name := range values {
		if !s.Fields().Has(name) {
			s.AddField(form.Field{Name: name, Type: form.FieldTypeString}, form.String{})
			return true, nil
		}
	}
	return false, nil
}

func TestConfigureWithValues(t *testing.T) {
	parent := form.New()
	child := &shapeShifter{Form: form.New()}
	skipped := &shapeShifter{Form: form.New()}
	if err := parent.Embed("child", child); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := parent.Embed("skipped", skipped); err != nil {
		t.Fatalf("embed: %v", err)
	}

	changed, err := parent.ConfigureWithValues(form.Values{
		"child":   form.Values{"nickname": "A"},
		"skipped": "not a map",
	}, nil)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if !changed {
		t.Fatalf("expected parent to report the child change")
	}
	if len(skipped.calls) != 0 {
		t.Fatalf("expected non-map slice to be skipped")
	}
	nested, _ := parent.Fields().Get("child")
	if nested.Nested == nil || !nested.Nested.Has("nickname") {
		t.Fatalf("expected re-embedded child schema to expose the new field")
	}

	changed, err = parent.ConfigureWithValues(form.Values{"child": form.Values{}}, nil)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if changed || len(child.calls) != 1 {
		t.Fatalf("expected empty slice to be skipped, calls=%d changed=%v", len(child.calls), changed)
	}
}

func TestBindRunsReconfigurationFirst(t *testing.T) {
	parent := form.New()
	child := &shapeShifter{Form: form.New()}
	if err := parent.Embed("child", child); err != nil {
		t.Fatalf("embed: %v", err)
	}
	if err := parent.Bind(form.Values{"child": form.Values{"nickname": "Neo"}}, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if got := parent.Values()["child"].(form.Values)["nickname"]; got != "Neo" {
		t.Fatalf("expected field added during reconfiguration to be validated, got %v", got)
	}
	if got := child.Values()["nickname"]; got != "Neo" {
		t.Fatalf("expected bound state cascaded to the child, got %v", got)
	}
}

func TestEmbedRejectsInvalidSlots(t *testing.T) {
	f := form.New()
	if err := f.Embed("", form.New()); !errors.Is(err, form.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for empty name, got %v", err)
	}
	if err := f.Embed("self", f); !errors.Is(err, form.ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument for self embedding, got %v", err)
	}
}

func TestFormFields(t *testing.T) {
	f := profileForm(t)
	if err := f.Bind(form.Values{"name": "", "address": form.Values{"city": "Bergen"}}, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	fields := f.FormFields()
	if len(fields) != 4 {
		t.Fatalf("expected 4 form fields, got %d", len(fields))
	}
	if fields[0].Name != "name" || len(fields[0].Errors) != 1 {
		t.Fatalf("expected required error on name, got %+v", fields[0])
	}
	address := fields[3]
	if address.Name != "address" || len(address.Nested) != 2 || address.Nested[0].Value != "Bergen" {
		t.Fatalf("unexpected nested view: %+v", address)
	}
}
