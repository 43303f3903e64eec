// Package sqlite maps single-key tables onto orm.Entity records backed by
// github.com/mattn/go-sqlite3.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-formgen-orm/pkg/orm"
)

// Column describes a non-key column. Type is a SQLite type name such as
// TEXT, INTEGER or REAL.
type Column struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// HasMany declares a one-to-many relation from the owning table to Table,
// joined on ForeignKey in the related table.
type HasMany struct {
	Table      string `json:"table" yaml:"table"`
	ForeignKey string `json:"foreignKey" yaml:"foreignKey"`
}

// Table maps a table onto an entity type. The primary key is a single
// INTEGER column, "id" unless PrimaryKey says otherwise.
type Table struct {
	Name       string             `json:"name" yaml:"name"`
	Type       string             `json:"type" yaml:"type"`
	PrimaryKey string             `json:"primaryKey" yaml:"primaryKey"`
	Columns    []Column           `json:"columns" yaml:"columns"`
	Relations  map[string]HasMany `json:"relations" yaml:"relations"`
}

func (t *Table) hasColumn(name string) bool {
	for _, column := range t.Columns {
		if column.Name == name {
			return true
		}
	}
	return false
}

func (t *Table) columnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, column := range t.Columns {
		names = append(names, column.Name)
	}
	return names
}

// Option customises a Store.
type Option func(*Store)

// WithTables registers table mappings.
func WithTables(tables ...Table) Option {
	return func(s *Store) {
		for _, table := range tables {
			s.register(table)
		}
	}
}

// Store loads and creates records for the registered tables.
type Store struct {
	db     *sql.DB
	tables map[string]*Table
}

// Open opens (or creates) the database file at path with foreign key
// enforcement on every pooled connection.
func Open(path string, options ...Option) (*Store, error) {
	separator := "?"
	if strings.Contains(path, "?") {
		separator = "&"
	}
	db, err := sql.Open("sqlite3", path+separator+"_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	return New(db, options...), nil
}

// New wraps an existing database handle.
func New(db *sql.DB, options ...Option) *Store {
	s := &Store{db: db, tables: make(map[string]*Table)}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Store) register(table Table) {
	if table.PrimaryKey == "" {
		table.PrimaryKey = "id"
	}
	if table.Type == "" {
		table.Type = table.Name
	}
	s.tables[table.Name] = &table
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Resolver exposes the database as the ambient default connection.
func (s *Store) Resolver() orm.Resolver {
	return func(context.Context) (orm.Conn, error) {
		if s.db == nil {
			return nil, orm.ErrNoConnection
		}
		return s.db, nil
	}
}

// Table returns the mapping registered under name.
func (s *Store) Table(name string) (*Table, bool) {
	table, ok := s.tables[name]
	return table, ok
}

// Migrate creates every registered table that does not exist yet. Related
// tables get a foreign key with ON DELETE CASCADE.
func (s *Store) Migrate(ctx context.Context) error {
	foreignKeys := make(map[string][]string)
	for _, table := range s.tables {
		for alias, relation := range table.Relations {
			if _, ok := s.tables[relation.Table]; !ok {
				return fmt.Errorf("sqlite: relation %s.%s targets unknown table %q", table.Name, alias, relation.Table)
			}
			foreignKeys[relation.Table] = append(foreignKeys[relation.Table], fmt.Sprintf(
				"FOREIGN KEY (%s) REFERENCES %s(%s) ON DELETE CASCADE",
				quote(relation.ForeignKey), quote(table.Name), quote(table.PrimaryKey)))
		}
	}

	for _, table := range s.tables {
		defs := []string{quote(table.PrimaryKey) + " INTEGER PRIMARY KEY AUTOINCREMENT"}
		for _, column := range table.Columns {
			typ := strings.ToUpper(strings.TrimSpace(column.Type))
			if typ == "" {
				typ = "TEXT"
			}
			defs = append(defs, quote(column.Name)+" "+typ)
		}
		defs = append(defs, foreignKeys[table.Name]...)
		stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quote(table.Name), strings.Join(defs, ", "))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: create table %s: %w", table.Name, err)
		}
	}
	return nil
}

// NewRecord returns an unsaved record of table.
func (s *Store) NewRecord(table string) (*Record, error) {
	mapping, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("sqlite: unknown table %q", table)
	}
	return newRecord(s, mapping), nil
}

// Find loads the record with id.
func (s *Store) Find(ctx context.Context, table string, id int64) (*Record, error) {
	mapping, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("sqlite: unknown table %q", table)
	}
	records, err := s.query(ctx, s.db, mapping, quote(mapping.PrimaryKey)+" = ?", id)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sqlite: %s %d not found", mapping.Type, id)
	}
	return records[0], nil
}

// All loads every record of table ordered by primary key.
func (s *Store) All(ctx context.Context, table string) ([]*Record, error) {
	mapping, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("sqlite: unknown table %q", table)
	}
	return s.query(ctx, s.db, mapping, "")
}

func (s *Store) query(ctx context.Context, conn orm.Conn, table *Table, where string, args ...any) ([]*Record, error) {
	columns := append([]string{table.PrimaryKey}, table.columnNames()...)
	quoted := make([]string, len(columns))
	for idx, column := range columns {
		quoted[idx] = quote(column)
	}
	stmt := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quote(table.Name))
	if where != "" {
		stmt += " WHERE " + where
	}
	stmt += " ORDER BY " + quote(table.PrimaryKey)

	rows, err := conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query %s: %w", table.Name, err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var id int64
		values := make([]any, len(columns)-1)
		dest := []any{&id}
		for idx := range values {
			dest = append(dest, &values[idx])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("sqlite: scan %s: %w", table.Name, err)
		}
		record := newRecord(s, table)
		record.id = id
		for idx, column := range table.Columns {
			record.values[column.Name] = normalize(values[idx])
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate %s: %w", table.Name, err)
	}
	return records, nil
}

func normalize(value any) any {
	if raw, ok := value.([]byte); ok {
		return string(raw)
	}
	return value
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}
