package formconfig

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formgen-orm/pkg/form"
	"github.com/goliatone/go-formgen-orm/pkg/openapi"
	"github.com/goliatone/go-formgen-orm/pkg/orm/sqlite"
)

// LoadFS walks fsys and parses every JSON/YAML configuration document.
// OpenAPI documents found during the walk are skipped; forms reference them
// explicitly. A nil fsys yields an empty store.
func LoadFS(ctx context.Context, fsys fs.FS) (*Store, error) {
	store := &Store{
		forms:       make(map[string]Form),
		collections: make(map[string]Collection),
	}
	if fsys == nil {
		return store, nil
	}

	tables := make(map[string]string)
	loader := openapi.NewLoader(openapi.WithFileSystem(fsys))
	components := make(map[string]*openapi.Components)

	err := fs.WalkDir(fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isConfigFile(name) {
			return nil
		}

		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("formconfig: read %s: %w", name, err)
		}
		doc, err := parseDocument(data, name)
		if err != nil {
			return err
		}
		if doc.OpenAPI != "" {
			return nil
		}

		for _, table := range doc.Tables {
			id := strings.TrimSpace(table.Name)
			if id == "" {
				return fmt.Errorf("formconfig: file %s defines a table without a name", name)
			}
			if previous, exists := tables[id]; exists {
				return fmt.Errorf("formconfig: duplicate table %q (files %s, %s)", id, previous, name)
			}
			tables[id] = name
			table.Name = id
			store.tables = append(store.tables, table)
		}

		for formID, raw := range doc.Forms {
			id := strings.TrimSpace(formID)
			if id == "" {
				return fmt.Errorf("formconfig: file %s defines an empty form id", name)
			}
			if _, exists := store.forms[id]; exists {
				return fmt.Errorf("formconfig: duplicate form %q (file %s)", id, name)
			}
			def, err := normaliseForm(ctx, loader, components, raw, id, name)
			if err != nil {
				return err
			}
			store.forms[id] = def
		}

		for collectionID, raw := range doc.Collections {
			id := strings.TrimSpace(collectionID)
			if id == "" {
				return fmt.Errorf("formconfig: file %s defines an empty collection id", name)
			}
			if _, exists := store.collections[id]; exists {
				return fmt.Errorf("formconfig: duplicate collection %q (file %s)", id, name)
			}
			collection, err := normaliseCollection(raw, id, name)
			if err != nil {
				return err
			}
			store.collections[id] = collection
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Form returns the form definition registered under id.
func (s *Store) Form(id string) (Form, bool) {
	if s == nil {
		return Form{}, false
	}
	def, ok := s.forms[id]
	return def, ok
}

// Collection returns the collection binding registered under id.
func (s *Store) Collection(id string) (Collection, bool) {
	if s == nil {
		return Collection{}, false
	}
	collection, ok := s.collections[id]
	return collection, ok
}

// CollectionsFor returns the bindings targeting relation, sorted by id.
func (s *Store) CollectionsFor(relation string) []Collection {
	if s == nil {
		return nil
	}
	var out []Collection
	for _, collection := range s.collections {
		if collection.Relation == relation {
			out = append(out, collection)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Tables returns the declared table mappings in declaration order.
func (s *Store) Tables() []sqlite.Table {
	if s == nil {
		return nil
	}
	return append([]sqlite.Table(nil), s.tables...)
}

// Register adds a factory for every form definition to registry.
func (s *Store) Register(registry *form.Registry, options ...form.Option) {
	if s == nil {
		return
	}
	for id, def := range s.forms {
		registry.Register(id, def.Factory(options...))
	}
}

// Empty reports whether the store holds no definitions.
func (s *Store) Empty() bool {
	return s == nil || (len(s.forms) == 0 && len(s.collections) == 0 && len(s.tables) == 0)
}

type documentFile struct {
	OpenAPI     string                    `json:"openapi" yaml:"openapi"`
	Tables      []sqlite.Table            `json:"tables" yaml:"tables"`
	Forms       map[string]formFile       `json:"forms" yaml:"forms"`
	Collections map[string]collectionFile `json:"collections" yaml:"collections"`
}

type formFile struct {
	OpenAPI *OpenAPIRef   `json:"openapi" yaml:"openapi"`
	Fields  []FieldConfig `json:"fields" yaml:"fields"`
}

type collectionFile struct {
	Relation  string   `json:"relation" yaml:"relation"`
	ChildForm string   `json:"childForm" yaml:"childForm"`
	Min       int      `json:"min" yaml:"min"`
	Max       int      `json:"max" yaml:"max"`
	Messages  Messages `json:"messages" yaml:"messages"`
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("formconfig: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return documentFile{}, fmt.Errorf("formconfig: parse %s: %w", source, err)
	}
	return doc, nil
}

func normaliseForm(ctx context.Context, loader *openapi.Loader, cache map[string]*openapi.Components, raw formFile, id, source string) (Form, error) {
	def := Form{
		ID:         id,
		Source:     source,
		Fields:     form.NewFieldSchema(),
		Validators: form.NewValidatorSchema(),
	}

	if raw.OpenAPI != nil {
		ref := *raw.OpenAPI
		if strings.TrimSpace(ref.File) == "" || strings.TrimSpace(ref.Schema) == "" {
			return Form{}, fmt.Errorf("formconfig: form %q (file %s) openapi reference needs file and schema", id, source)
		}
		location := path.Join(path.Dir(source), ref.File)
		components, ok := cache[location]
		if !ok {
			doc, err := loader.Load(ctx, openapi.SourceFromFS(location))
			if err != nil {
				return Form{}, fmt.Errorf("formconfig: form %q (file %s): %w", id, source, err)
			}
			components, err = openapi.Parse(ctx, doc)
			if err != nil {
				return Form{}, fmt.Errorf("formconfig: form %q (file %s): %w", id, source, err)
			}
			cache[location] = components
		}
		fields, validators, err := components.FormSchemas(ref.Schema)
		if err != nil {
			return Form{}, fmt.Errorf("formconfig: form %q (file %s): %w", id, source, err)
		}
		def.OpenAPI = &ref
		def.Fields = fields
		def.Validators = validators
	}

	for idx, cfg := range raw.Fields {
		field, validator, err := buildField(cfg)
		if err != nil {
			return Form{}, fmt.Errorf("formconfig: form %q (file %s) field %d: %w", id, source, idx, err)
		}
		def.Fields.Set(field)
		def.Validators.Set(field.Name, validator)
	}

	if def.Fields.Len() == 0 {
		return Form{}, fmt.Errorf("formconfig: form %q (file %s) declares no fields", id, source)
	}
	return def, nil
}

func buildField(cfg FieldConfig) (form.Field, form.Validator, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return form.Field{}, nil, errors.New("name is required")
	}
	field := form.Field{Name: name, Label: cfg.Label, Required: cfg.Required}
	if field.Label == "" {
		field.Label = name
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "string":
		field.Type = form.FieldTypeString
		validator := form.String{Required: cfg.Required, MinLength: cfg.MinLength, MaxLength: cfg.MaxLength}
		if cfg.Pattern != "" {
			pattern, err := regexp.Compile(cfg.Pattern)
			if err != nil {
				return form.Field{}, nil, fmt.Errorf("%s pattern: %w", name, err)
			}
			validator.Pattern = pattern
		}
		return field, validator, nil
	case "integer":
		field.Type = form.FieldTypeInteger
		validator := form.Integer{Required: cfg.Required}
		if cfg.Minimum != nil {
			lower := int64(*cfg.Minimum)
			validator.Min = &lower
		}
		if cfg.Maximum != nil {
			upper := int64(*cfg.Maximum)
			validator.Max = &upper
		}
		return field, validator, nil
	case "number":
		field.Type = form.FieldTypeNumber
		return field, form.Number{Required: cfg.Required, Min: cfg.Minimum, Max: cfg.Maximum}, nil
	case "boolean":
		field.Type = form.FieldTypeBoolean
		return field, form.Boolean{}, nil
	default:
		return form.Field{}, nil, fmt.Errorf("%s has unsupported type %q", name, cfg.Type)
	}
}

func normaliseCollection(raw collectionFile, id, source string) (Collection, error) {
	collection := Collection{
		ID:        id,
		Source:    source,
		Relation:  strings.TrimSpace(raw.Relation),
		ChildForm: strings.TrimSpace(raw.ChildForm),
		Min:       raw.Min,
		Max:       raw.Max,
		Messages:  raw.Messages,
	}
	if collection.Relation == "" {
		return Collection{}, fmt.Errorf("formconfig: collection %q (file %s) needs a relation", id, source)
	}
	if collection.Min < 0 || collection.Max < 0 {
		return Collection{}, fmt.Errorf("formconfig: collection %q (file %s) bounds must not be negative", id, source)
	}
	if collection.Max > 0 && collection.Min > collection.Max {
		return Collection{}, fmt.Errorf("formconfig: collection %q (file %s) min %d exceeds max %d", id, source, collection.Min, collection.Max)
	}
	return collection, nil
}

func isConfigFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
