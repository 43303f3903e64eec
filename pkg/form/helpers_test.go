package form_test

import (
	"database/sql"
	"testing"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/orm"
	"github.com/goliatone/go-formgen-orm/pkg/testsupport"
)

// conn is never dereferenced by the in-memory entities; it only has to be a
// non-nil connection.
var conn orm.Conn = &sql.DB{}

func bookSchemas() (*form.FieldSchema, *form.ValidatorSchema) {
	fields := form.NewFieldSchema(
		form.Field{Name: "title", Type: form.FieldTypeString, Label: "Title", Required: true},
		form.Field{Name: "pages", Type: form.FieldTypeInteger, Label: "Pages"},
	)
	validators := form.NewValidatorSchema().
		Set("title", form.String{Required: true, MaxLength: 40}).
		Set("pages", form.Integer{})
	return fields, validators
}

func bookRegistry() *form.Registry {
	fields, validators := bookSchemas()
	registry := form.NewRegistry()
	registry.Register("BookForm", form.EntityFormFactory(fields, validators))
	return registry
}

type library struct {
	store  *testsupport.Store
	author *testsupport.Entity
	books  *testsupport.Relation
	byID   map[string]*testsupport.Entity
}

// newLibrary builds an author (id 1) owning one persisted book per id.
func newLibrary(t *testing.T, ids ...string) *library {
	t.Helper()

	store := testsupport.NewStore(100)
	author := store.Persisted("Author", int64(1), map[string]any{"name": "Ann"})
	lib := &library{store: store, author: author, byID: make(map[string]*testsupport.Entity)}

	books := make([]*testsupport.Entity, 0, len(ids))
	for _, id := range ids {
		book := store.Persisted("Book", id, map[string]any{"title": "Book " + id, "author_id": int64(1)})
		lib.byID[id] = book
		books = append(books, book)
	}
	lib.books = author.HasMany("Books", "Book", "author_id", books...)
	return lib
}

func (l *library) collection(t *testing.T, options ...form.CollectionOption) *form.CollectionForm {
	t.Helper()

	options = append([]form.CollectionOption{form.WithRegistry(bookRegistry())}, options...)
	collection, err := form.NewCollectionForm(l.author, "Books", options...)
	if err != nil {
		t.Fatalf("new collection form: %v", err)
	}
	return collection
}

func row(title string) form.Values {
	return form.Values{"title": title}
}
