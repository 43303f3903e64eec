package openapi_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/openapi"
	"github.com/goliatone/go-formgen-orm/pkg/testsupport"
)

func loadLibrary(t *testing.T) *openapi.Components {
	t.Helper()

	doc, err := openapi.NewLoader().Load(context.Background(), openapi.SourceFromFile("testdata/library.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	components, err := openapi.Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return components
}

func TestComponents_FormSchemas(t *testing.T) {
	components := loadLibrary(t)

	if diff := cmp.Diff([]string{"Author", "Book", "Genre"}, components.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	fields, validators, err := components.FormSchemas("Book")
	if err != nil {
		t.Fatalf("form schemas: %v", err)
	}
	if diff := cmp.Diff([]string{"title", "pages", "in_print", "isbn", "rating"}, fields.Names()); diff != "" {
		t.Fatalf("field order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(fields.Names(), validators.Names()); diff != "" {
		t.Fatalf("validator names mismatch (-want +got):\n%s", diff)
	}

	title, _ := fields.Get("title")
	if title.Label != "Book title" || !title.Required || title.Type != form.FieldTypeString {
		t.Fatalf("unexpected title field %+v", title)
	}
	inPrint, _ := fields.Get("in_print")
	if inPrint.Label != "In Print" || inPrint.Type != form.FieldTypeBoolean {
		t.Fatalf("unexpected in_print field %+v", inPrint)
	}

	cleaned, err := validators.Clean(form.Values{"title": "Dune", "pages": "412", "isbn": "978-0441013593", "rating": "4.5"})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	want := form.Values{"title": "Dune", "pages": int64(412), "isbn": "978-0441013593", "rating": 4.5, "in_print": false}
	if diff := cmp.Diff(want, cleaned); diff != "" {
		t.Fatalf("cleaned mismatch (-want +got):\n%s", diff)
	}

	_, err = validators.Clean(form.Values{"pages": 0, "isbn": "x", "rating": 9})
	var errs *form.ErrorSchema
	if !errors.As(err, &errs) {
		t.Fatalf("expected error schema, got %v", err)
	}
	got := make(map[string]bool)
	for path := range errs.Flatten() {
		got[path] = true
	}
	if diff := cmp.Diff(map[string]bool{"title": true, "pages": true, "isbn": true, "rating": true}, got); diff != "" {
		t.Fatalf("error paths mismatch (-want +got):\n%s", diff)
	}
}

func TestComponents_NestedObjects(t *testing.T) {
	fields, validators, err := loadLibrary(t).FormSchemas("Author")
	if err != nil {
		t.Fatalf("form schemas: %v", err)
	}
	address, ok := fields.Get("address")
	if !ok || address.Type != form.FieldTypeObject || address.Nested == nil {
		t.Fatalf("expected nested address field, got %+v", address)
	}
	if diff := cmp.Diff([]string{"city"}, address.Nested.Names()); diff != "" {
		t.Fatalf("nested names mismatch (-want +got):\n%s", diff)
	}
	cleaned, err := validators.Clean(form.Values{"name": "Ann", "address": form.Values{"city": " Oslo "}})
	if err != nil {
		t.Fatalf("clean: %v", err)
	}
	if diff := cmp.Diff(form.Values{"name": "Ann", "address": form.Values{"city": "Oslo"}}, cleaned); diff != "" {
		t.Fatalf("cleaned mismatch (-want +got):\n%s", diff)
	}
}

func TestComponents_Errors(t *testing.T) {
	components := loadLibrary(t)
	if _, _, err := components.FormSchemas("Publisher"); !errors.Is(err, openapi.ErrUnknownSchema) {
		t.Fatalf("expected ErrUnknownSchema, got %v", err)
	}
	if _, _, err := components.FormSchemas("Genre"); err == nil {
		t.Fatalf("expected error for scalar schema")
	}
}

func TestComponents_RecursiveReferences(t *testing.T) {
	const document = `{
  "openapi": "3.0.0",
  "info": { "title": "Cycle", "version": "1.0.0" },
  "paths": {},
  "components": {
    "schemas": {
      "PublishingHouse": {
        "type": "object",
        "properties": {
          "headquarters": { "$ref": "#/components/schemas/Headquarters" }
        }
      },
      "Headquarters": {
        "type": "object",
        "properties": {
          "publisher": { "$ref": "#/components/schemas/PublishingHouse" }
        }
      }
    }
  }
}`
	doc := openapi.MustNewDocument(openapi.SourceFromFS("cycle.json"), []byte(document))
	components, err := openapi.Parse(context.Background(), doc, openapi.WithValidation(false))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, _, err := components.FormSchemas("PublishingHouse"); err == nil {
		t.Fatalf("expected recursion error")
	}
}

func TestComponents_RegisterBuildsEntityForms(t *testing.T) {
	files := fstest.MapFS{
		"api/books.yaml": &fstest.MapFile{Data: []byte(`openapi: 3.0.3
info: { title: Books, version: 1.0.0 }
paths: {}
components:
  schemas:
    Book:
      type: object
      required: [title]
      properties:
        title: { type: string }
`)},
	}
	doc, err := openapi.NewLoader(openapi.WithFileSystem(files)).Load(context.Background(), openapi.SourceFromFS("api/books.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	components, err := openapi.Parse(context.Background(), doc)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	registry := form.NewRegistry()
	if err := components.Register(registry); err != nil {
		t.Fatalf("register: %v", err)
	}
	factory, ok := registry.Resolve("BookForm")
	if !ok {
		t.Fatalf("expected BookForm, got %v", registry.Names())
	}

	store := testsupport.NewStore(0)
	child, err := factory(store.Persisted("Book", int64(1), map[string]any{"title": "Dune"}))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if diff := cmp.Diff(form.Values{"title": "Dune"}, child.Base().Defaults()); diff != "" {
		t.Fatalf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoader_RequiresFileSystemForFSSources(t *testing.T) {
	if _, err := openapi.NewLoader().Load(context.Background(), openapi.SourceFromFS("api.yaml")); err == nil {
		t.Fatalf("expected error without filesystem")
	}
	if _, err := openapi.NewLoader().Load(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil source")
	}
}
