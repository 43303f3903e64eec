package sqlite

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Record is one row of a mapped table.
type Record struct {
	store     *Store
	table     *Table
	id        int64
	values    map[string]any
	deleted   bool
	owner     *Relation
	relations map[string]*Relation
}

var _ orm.Entity = (*Record)(nil)

func newRecord(store *Store, table *Table) *Record {
	return &Record{
		store:     store,
		table:     table,
		values:    make(map[string]any, len(table.Columns)),
		relations: make(map[string]*Relation),
	}
}

// ID returns the row identifier, zero while unsaved.
func (r *Record) ID() int64 { return r.id }

// Type returns the entity type of the record's table.
func (r *Record) Type() string { return r.table.Type }

// Table returns the record's mapping.
func (r *Record) Table() *Table { return r.table }

func (r *Record) PrimaryKey() []any {
	if r.id == 0 {
		return []any{nil}
	}
	return []any{r.id}
}

func (r *Record) IsNew() bool { return r.id == 0 }

func (r *Record) Get(field string) (any, bool) {
	if field == r.table.PrimaryKey {
		return r.id, r.id != 0
	}
	value, ok := r.values[field]
	return value, ok
}

func (r *Record) Set(field string, value any) error {
	if !r.table.hasColumn(field) {
		return fmt.Errorf("sqlite: %s has no column %q", r.table.Type, field)
	}
	r.values[field] = value
	return nil
}

// Save inserts or updates the row through conn. Records allocated through a
// relation take their foreign key from the parent, which must be saved
// first.
func (r *Record) Save(ctx context.Context, conn orm.Conn) error {
	if conn == nil {
		return orm.ErrNoConnection
	}
	if r.deleted {
		return fmt.Errorf("sqlite: %s %d was deleted", r.table.Type, r.id)
	}
	if r.owner != nil {
		if r.owner.parent.IsNew() {
			return fmt.Errorf("sqlite: save %s: parent %s is not saved", r.table.Type, r.owner.parent.table.Type)
		}
		r.values[r.owner.def.ForeignKey] = r.owner.parent.id
	}

	columns := r.table.columnNames()
	args := make([]any, 0, len(columns)+1)
	for _, column := range columns {
		args = append(args, r.values[column])
	}

	if r.IsNew() {
		quoted := make([]string, len(columns))
		for idx, column := range columns {
			quoted[idx] = quote(column)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(r.table.Name), strings.Join(quoted, ", "), placeholders)
		if len(columns) == 0 {
			stmt = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", quote(r.table.Name))
		}
		result, err := conn.ExecContext(ctx, stmt, args...)
		if err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", r.table.Type, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("sqlite: insert %s: %w", r.table.Type, err)
		}
		r.id = id
		return nil
	}

	if len(columns) == 0 {
		return nil
	}
	assignments := make([]string, len(columns))
	for idx, column := range columns {
		assignments[idx] = quote(column) + " = ?"
	}
	args = append(args, r.id)
	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE %s = ?", quote(r.table.Name), strings.Join(assignments, ", "), quote(r.table.PrimaryKey))
	if _, err := conn.ExecContext(ctx, stmt, args...); err != nil {
		return fmt.Errorf("sqlite: update %s %d: %w", r.table.Type, r.id, err)
	}
	return nil
}

// Delete removes the row through conn.
func (r *Record) Delete(ctx context.Context, conn orm.Conn) error {
	if conn == nil {
		return orm.ErrNoConnection
	}
	if r.IsNew() {
		return fmt.Errorf("sqlite: delete %s: record is not saved", r.table.Type)
	}
	stmt := fmt.Sprintf("DELETE FROM %s WHERE %s = ?", quote(r.table.Name), quote(r.table.PrimaryKey))
	if _, err := conn.ExecContext(ctx, stmt, r.id); err != nil {
		return fmt.Errorf("sqlite: delete %s %d: %w", r.table.Type, r.id, err)
	}
	r.deleted = true
	return nil
}

// Related returns the relation behind alias, loading it on first access.
func (r *Record) Related(alias string) (orm.Relation, error) {
	relation, err := r.relation(alias)
	if err != nil {
		return nil, err
	}
	if !relation.loaded {
		if err := relation.Load(context.Background(), r.store.db); err != nil {
			return nil, err
		}
	}
	return relation, nil
}

// Preload loads the named relations with ctx so later Related calls do not
// hit the database.
func (r *Record) Preload(ctx context.Context, aliases ...string) error {
	for _, alias := range aliases {
		relation, err := r.relation(alias)
		if err != nil {
			return err
		}
		if err := relation.Load(ctx, r.store.db); err != nil {
			return err
		}
	}
	return nil
}

func (r *Record) relation(alias string) (*Relation, error) {
	if relation, ok := r.relations[alias]; ok {
		return relation, nil
	}
	def, ok := r.table.Relations[alias]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", orm.ErrUnknownRelation, r.table.Type, alias)
	}
	target, ok := r.store.tables[def.Table]
	if !ok {
		return nil, fmt.Errorf("sqlite: relation %s.%s targets unknown table %q", r.table.Type, alias, def.Table)
	}
	relation := &Relation{parent: r, def: def, target: target}
	r.relations[alias] = relation
	return relation, nil
}

// Relation is the loaded one-to-many collection of a record.
type Relation struct {
	parent *Record
	def    HasMany
	target *Table
	items  []*Record
	loaded bool
}

var (
	_ orm.Relation = (*Relation)(nil)
	_ orm.Detacher = (*Relation)(nil)
)

// Load (re)reads the persisted rows. Unsaved rows allocated through New are
// kept.
func (r *Relation) Load(ctx context.Context, conn orm.Conn) error {
	var persisted []*Record
	if !r.parent.IsNew() {
		records, err := r.parent.store.query(ctx, conn, r.target, quote(r.def.ForeignKey)+" = ?", r.parent.id)
		if err != nil {
			return err
		}
		persisted = records
	}
	for _, item := range r.items {
		if item.IsNew() {
			persisted = append(persisted, item)
		}
	}
	r.items = persisted
	r.loaded = true
	return nil
}

func (r *Relation) Target() string { return r.target.Type }

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
	if r.parent.deleted {
		return nil, errors.New("sqlite: cannot add to a deleted record")
	}
	record := newRecord(r.parent.store, r.target)
	record.owner = r
	r.items = append(r.items, record)
	r.loaded = true
	return record, nil
}

func (r *Relation) Detach(entity orm.Entity) bool {
	before := len(r.items)
	r.items = slices.DeleteFunc(r.items, func(candidate *Record) bool {
		return orm.Entity(candidate) == entity
	})
	return len(r.items) != before
}
