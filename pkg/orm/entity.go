package orm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is returned by entities that cannot honour a capability,
	// for example relation access on the null entity.
	ErrUnsupported = errors.New("orm: operation not supported")
	// ErrNoConnection signals that no connection was supplied and no default
	// resolver is configured.
	ErrNoConnection = errors.New("orm: no connection available")
	// ErrUnknownRelation is returned when an alias does not name a relation.
	ErrUnknownRelation = errors.New("orm: unknown relation")
)

// Conn is the handle accepted by entity save/delete operations. Both *sql.DB
// and *sql.Tx satisfy it, so callers that need atomicity across a save cascade
// pass a transaction.
type Conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolver yields the ambient default connection. It is only consulted at the
// integration boundary when a caller does not pass a connection explicitly.
type Resolver func(ctx context.Context) (Conn, error)

// Resolve returns conn when non-nil, otherwise asks resolver for the default.
func Resolve(ctx context.Context, conn Conn, resolver Resolver) (Conn, error) {
	if conn != nil {
		return conn, nil
	}
	if resolver == nil {
		return nil, ErrNoConnection
	}
	resolved, err := resolver(ctx)
	if err != nil {
		return nil, fmt.Errorf("orm: resolve connection: %w", err)
	}
	if resolved == nil {
		return nil, ErrNoConnection
	}
	return resolved, nil
}

// Entity is the persisted-object contract the form layer depends on.
type Entity interface {
	// PrimaryKey returns the identifier columns. More than one value denotes
	// a composite key; an unsaved entity may return nil values.
	PrimaryKey() []any
	// IsNew reports whether the entity has not been persisted yet.
	IsNew() bool
	Get(field string) (any, bool)
	Set(field string, value any) error
	Save(ctx context.Context, conn Conn) error
	Delete(ctx context.Context, conn Conn) error
	// Related returns the collection behind a one-to-many alias.
	Related(alias string) (Relation, error)
}

// Relation is an addressable collection of related entities.
type Relation interface {
	// Target names the related entity type, e.g. "Book".
	Target() string
	All() []Entity
	// New allocates an unpersisted related entity and appends it to the
	// collection.
	New() (Entity, error)
}

// Detacher is implemented by relations that can forget an entity allocated
// through New without persisting it.
type Detacher interface {
	Detach(entity Entity) bool
}

// IdentifierString renders a single-column identifier. It fails for composite
// or missing keys.
func IdentifierString(entity Entity) (string, error) {
	if entity == nil {
		return "", errors.New("orm: entity is nil")
	}
	pk := entity.PrimaryKey()
	switch len(pk) {
	case 0:
		return "", errors.New("orm: entity has no identifier")
	case 1:
		if pk[0] == nil {
			return "", errors.New("orm: entity identifier is empty")
		}
		return fmt.Sprint(pk[0]), nil
	default:
		return "", fmt.Errorf("orm: composite identifier with %d columns", len(pk))
	}
}
