package testsupport

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Store is an in-memory entity backend for tests. It records every write so
// tests can assert the order of deletes, updates and inserts.
type Store struct {
	nextID int64
	Ops    []string
}

// NewStore returns a store whose generated identifiers start after start.
func NewStore(start int64) *Store {
	return &Store{nextID: start}
}

// Persisted returns an entity that already exists in storage.
func (s *Store) Persisted(typ string, id any, fields map[string]any) *Entity {
	entity := s.NewEntity(typ, fields)
	entity.Keys = []any{id}
	entity.persisted = true
	return entity
}

// NewEntity returns an unsaved entity.
func (s *Store) NewEntity(typ string, fields map[string]any) *Entity {
	if fields == nil {
		fields = make(map[string]any)
	}
	return &Entity{
		Type:      typ,
		Fields:    fields,
		store:     s,
		relations: make(map[string]*Relation),
	}
}

// Entity is an in-memory orm.Entity.
type Entity struct {
	Type   string
	Keys   []any
	Fields map[string]any
	// FailDelete, FailSave and FailSet make the matching operation fail.
	FailDelete error
	FailSave   error
	FailSet    error

	store     *Store
	persisted bool
	deleted   bool
	owner     *Relation
	relations map[string]*Relation
}

var _ orm.Entity = (*Entity)(nil)

func (e *Entity) PrimaryKey() []any { return e.Keys }

func (e *Entity) IsNew() bool { return !e.persisted }

// Deleted reports whether Delete succeeded.
func (e *Entity) Deleted() bool { return e.deleted }

func (e *Entity) Get(field string) (any, bool) {
	value, ok := e.Fields[field]
	return value, ok
}

func (e *Entity) Set(field string, value any) error {
	if e.FailSet != nil {
		return e.FailSet
	}
	e.Fields[field] = value
	return nil
}

func (e *Entity) Save(_ context.Context, _ orm.Conn) error {
	if e.FailSave != nil {
		return e.FailSave
	}
	if e.deleted {
		return errors.New("testsupport: save of deleted entity")
	}
	if e.persisted {
		e.store.Ops = append(e.store.Ops, fmt.Sprintf("update %s %v", e.Type, e.Keys[0]))
		return nil
	}
	e.store.nextID++
	e.Keys = []any{e.store.nextID}
	e.persisted = true
	if e.owner != nil && e.owner.ForeignKey != "" {
		e.Fields[e.owner.ForeignKey] = e.owner.parent.Keys[0]
	}
	e.store.Ops = append(e.store.Ops, fmt.Sprintf("insert %s %v", e.Type, e.Keys[0]))
	return nil
}

func (e *Entity) Delete(_ context.Context, _ orm.Conn) error {
	if e.FailDelete != nil {
		return e.FailDelete
	}
	if !e.persisted {
		return errors.New("testsupport: delete of unsaved entity")
	}
	e.deleted = true
	e.store.Ops = append(e.store.Ops, fmt.Sprintf("delete %s %v", e.Type, e.Keys[0]))
	return nil
}

func (e *Entity) Related(alias string) (orm.Relation, error) {
	relation, ok := e.relations[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s", orm.ErrUnknownRelation, alias)
	}
	return relation, nil
}

// HasMany declares a one-to-many relation holding children.
func (e *Entity) HasMany(alias, target, foreignKey string, children ...*Entity) *Relation {
	relation := &Relation{target: target, ForeignKey: foreignKey, parent: e}
	for _, child := range children {
		child.owner = relation
		relation.items = append(relation.items, child)
	}
	e.relations[alias] = relation
	return relation
}

// Relation is an in-memory orm.Relation.
type Relation struct {
	ForeignKey string

	target string
	parent *Entity
	items  []*Entity
}

var (
	_ orm.Relation = (*Relation)(nil)
	_ orm.Detacher = (*Relation)(nil)
)

func (r *Relation) Target() string { return r.target }

// All returns the live (not deleted) entities.
func (r *Relation) All() []orm.Entity {
	out := make([]orm.Entity, 0, len(r.items))
	for _, item := range r.items {
		if item.deleted {
			continue
		}
		out = append(out, item)
	}
	return out
}

func (r *Relation) New() (orm.Entity, error) {
	entity := r.parent.store.NewEntity(r.target, nil)
	entity.owner = r
	r.items = append(r.items, entity)
	return entity, nil
}

func (r *Relation) Detach(entity orm.Entity) bool {
	before := len(r.items)
	r.items = slices.DeleteFunc(r.items, func(candidate *Entity) bool {
		return orm.Entity(candidate) == entity
	})
	return len(r.items) != before
}

// Len counts every entity in the relation, including unsaved ones.
func (r *Relation) Len() int { return len(r.items) }
