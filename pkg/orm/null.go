package orm

import "context"

// NullEntity stands in for a backing object on forms that have none. It
// accepts every lifecycle call and persists nothing.
type NullEntity struct{}

var _ Entity = NullEntity{}

func (NullEntity) PrimaryKey() []any { return nil }

// IsNew is always false so callers never try to insert it.
func (NullEntity) IsNew() bool { return false }

func (NullEntity) Get(string) (any, bool) { return nil, false }

func (NullEntity) Set(string, any) error { return nil }

func (NullEntity) Save(context.Context, Conn) error { return nil }

func (NullEntity) Delete(context.Context, Conn) error { return nil }

func (NullEntity) Related(string) (Relation, error) { return nil, ErrUnsupported }

// IsNull reports whether entity is the null stand-in.
func IsNull(entity Entity) bool {
	switch entity.(type) {
	case NullEntity, *NullEntity:
		return true
	default:
		return false
	}
}
