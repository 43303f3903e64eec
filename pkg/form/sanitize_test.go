package form_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/testsupport"
)

func TestStripTags(t *testing.T) {
	input := form.Values{
		"title": "<b>Dune</b>",
		"plain": "no markup",
		"pages": 412,
		"Books": form.Values{
			"transient_0": form.Values{"title": "<script>alert(1)</script>Fresh"},
		},
		"tags": []any{"<i>sf</i>", 3},
	}
	want := form.Values{
		"title": "Dune",
		"plain": "no markup",
		"pages": 412,
		"Books": form.Values{
			"transient_0": form.Values{"title": "Fresh"},
		},
		"tags": []any{"sf", 3},
	}
	if diff := cmp.Diff(want, form.StripTags().SanitizeValues(input)); diff != "" {
		t.Fatalf("sanitized mismatch (-want +got):\n%s", diff)
	}
}

func TestBindSanitizesBeforeValidation(t *testing.T) {
	f := form.New(form.WithSanitizer(form.StripTags()))
	f.AddField(form.Field{Name: "title", Type: form.FieldTypeString}, form.String{Required: true})

	if err := f.Bind(form.Values{"title": "<em></em>"}, nil); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if f.IsValid() {
		t.Fatalf("expected markup-only input to fail the required check")
	}
}

func TestStripTagsKeepsPlainText(t *testing.T) {
	cases := map[string]string{
		"Tom & Jerry":               "Tom & Jerry",
		"1 < 2 > 0":                 "1 < 2 > 0",
		"<b>Tom</b> & Jerry":        "Tom & Jerry",
		"Q&A <i>and</i> \"quotes\"": "Q&A and \"quotes\"",
	}
	for input, want := range cases {
		got := form.StripTags().SanitizeValues(form.Values{"title": input})["title"]
		if got != want {
			t.Fatalf("sanitize %q: got %q, want %q", input, got, want)
		}
	}
}

func TestStripTagsRoundTripsThroughSave(t *testing.T) {
	lib := newLibrary(t, "5")
	collection := lib.collection(t, form.WithFormOptions(form.WithSanitizer(form.StripTags())))

	for pass := 0; pass < 2; pass++ {
		title := lib.byID["5"].Fields["title"]
		if pass == 0 {
			title = "Tom & Jerry"
		}
		if err := collection.Bind(form.Values{"persistent_5": form.Values{"title": title}}, nil); err != nil {
			t.Fatalf("pass %d: bind: %v", pass, err)
		}
		if err := collection.Save(testsupport.Context(), conn); err != nil {
			t.Fatalf("pass %d: save: %v", pass, err)
		}
		if got := lib.byID["5"].Fields["title"]; got != "Tom & Jerry" {
			t.Fatalf("pass %d: stored title %q", pass, got)
		}
	}
}
