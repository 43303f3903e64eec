package prompt_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/prompt"
	"github.com/goliatone/go-formgen-orm/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	confirm      []bool
	multiIdx     [][]int
	infoMessages []string
	prompts      []prompt.InputConfig
	inputPos     int
	confirmPos   int
	multiPos     int
}

func (s *stubDriver) Input(_ context.Context, cfg prompt.InputConfig) (string, error) {
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	s.prompts = append(s.prompts, cfg)
	if cfg.Validator != nil {
		if err := cfg.Validator(val); err != nil {
			return "", err
		}
	}
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ prompt.ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) MultiSelect(_ context.Context, _ prompt.SelectConfig) ([]int, error) {
	if s.multiPos >= len(s.multiIdx) {
		return nil, errors.New("no multiselect scripted")
	}
	val := s.multiIdx[s.multiPos]
	s.multiPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func bookSchemas() (*form.FieldSchema, *form.ValidatorSchema) {
	fields := form.NewFieldSchema(
		form.Field{Name: "title", Type: form.FieldTypeString, Label: "Title", Required: true},
		form.Field{Name: "pages", Type: form.FieldTypeInteger, Label: "Pages"},
	)
	validators := form.NewValidatorSchema().
		Set("title", form.String{Required: true}).
		Set("pages", form.Integer{})
	return fields, validators
}

func TestFields(t *testing.T) {
	fields := form.NewFieldSchema(
		form.Field{Name: "title", Type: form.FieldTypeString, Label: "Title", Required: true},
		form.Field{Name: "pages", Type: form.FieldTypeInteger},
		form.Field{Name: "in_print", Type: form.FieldTypeBoolean},
		form.Field{Name: "address", Type: form.FieldTypeObject, Nested: form.NewFieldSchema()},
	)
	driver := &stubDriver{inputs: []string{"Dune", "412"}, confirm: []bool{true}}

	values, err := prompt.Fields(context.Background(), driver, fields, form.Values{"title": "Old", "pages": int64(10)})
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	want := form.Values{"title": "Dune", "pages": "412", "in_print": true}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if driver.prompts[0].Default != "Old" || driver.prompts[1].Default != "10" || driver.prompts[1].Message != "pages" {
		t.Fatalf("unexpected prompts %+v", driver.prompts)
	}
}

func TestFields_ValidatesAnswers(t *testing.T) {
	fields := form.NewFieldSchema(form.Field{Name: "pages", Type: form.FieldTypeInteger, Required: true})

	if _, err := prompt.Fields(context.Background(), &stubDriver{inputs: []string{"many"}}, fields, nil); err == nil {
		t.Fatalf("expected number validation error")
	}
	if _, err := prompt.Fields(context.Background(), &stubDriver{inputs: []string{" "}}, fields, nil); err == nil {
		t.Fatalf("expected required validation error")
	}
}

func TestCollection(t *testing.T) {
	store := testsupport.NewStore(100)
	author := store.Persisted("Author", int64(1), nil)
	author.HasMany("Books", "Book", "author_id",
		store.Persisted("Book", int64(5), map[string]any{"title": "Dune"}),
		store.Persisted("Book", int64(9), map[string]any{"title": "Emma"}),
	)
	fields, validators := bookSchemas()
	collection, err := form.NewCollectionForm(author, "Books",
		form.WithChildFactory(form.EntityFormFactory(fields, validators)), form.WithMax(2))
	if err != nil {
		t.Fatalf("new collection form: %v", err)
	}

	driver := &stubDriver{
		multiIdx: [][]int{{1}},
		inputs:   []string{"Dune Messiah", "", "Persuasion", "320"},
		confirm:  []bool{true},
	}
	values, err := prompt.Collection(context.Background(), driver, collection, fields)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}

	want := form.Values{
		"persistent_5": form.Values{"title": "Dune Messiah", "pages": ""},
		"transient_0":  form.Values{"title": "Persuasion", "pages": "320"},
	}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"persistent_5 (Dune)"}, driver.infoMessages); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}

	if err := collection.Bind(values, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if !collection.IsValid() {
		t.Fatalf("expected valid collection, got %v", collection.Errors())
	}
	if err := collection.UpdateObject(nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := len(collection.ScheduledDeletes()); got != 1 {
		t.Fatalf("expected one scheduled delete, got %d", got)
	}
}

func TestCollection_Aborts(t *testing.T) {
	store := testsupport.NewStore(0)
	author := store.Persisted("Author", int64(1), nil)
	author.HasMany("Books", "Book", "author_id")
	fields, validators := bookSchemas()
	collection, err := form.NewCollectionForm(author, "Books", form.WithChildFactory(form.EntityFormFactory(fields, validators)))
	if err != nil {
		t.Fatalf("new collection form: %v", err)
	}

	if _, err := prompt.Collection(context.Background(), &stubDriver{}, collection, fields); err == nil {
		t.Fatalf("expected driver error to propagate")
	}
}

func TestCollection_RefusesEmptying(t *testing.T) {
	store := testsupport.NewStore(100)
	author := store.Persisted("Author", int64(1), nil)
	author.HasMany("Books", "Book", "author_id",
		store.Persisted("Book", int64(5), map[string]any{"title": "Dune"}),
		store.Persisted("Book", int64(9), map[string]any{"title": "Emma"}),
	)
	fields, validators := bookSchemas()
	collection, err := form.NewCollectionForm(author, "Books", form.WithChildFactory(form.EntityFormFactory(fields, validators)))
	if err != nil {
		t.Fatalf("new collection form: %v", err)
	}

	driver := &stubDriver{
		multiIdx: [][]int{{0, 1}},
		confirm:  []bool{false},
	}
	values, err := prompt.Collection(context.Background(), driver, collection, fields)
	if !errors.Is(err, prompt.ErrEmptyCollection) {
		t.Fatalf("expected ErrEmptyCollection, got %v (values %v)", err, values)
	}
	if len(driver.infoMessages) != 1 {
		t.Fatalf("expected the user to be told, got %v", driver.infoMessages)
	}

	driver = &stubDriver{
		multiIdx: [][]int{{0, 1}},
		inputs:   []string{"Persuasion", ""},
		confirm:  []bool{true, false},
	}
	values, err = prompt.Collection(context.Background(), driver, collection, fields)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	want := form.Values{"transient_0": form.Values{"title": "Persuasion", "pages": ""}}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
