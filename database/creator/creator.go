// Package creator resolves the user that created a row.
//
// Record types declare how they relate to their owning user by implementing
// Resolvable. Lookups are usually wrapped with a Cache.
package creator

import (
	"context"
	"errors"
	"fmt"

	"github.com/safing/occbase/database/storage"
)

// UserID identifies a user.
type UserID string

// Resolvable is implemented by record types that belong to a user.
type Resolvable interface {
	// CreatorRelationName returns the name of the relation to the creating
	// user, if the type has one.
	CreatorRelationName() (name string, ok bool)
	// CreatorUserID returns the ID of the user that created the row with the
	// given primary key. It returns false if the row has no creator.
	CreatorUserID(ctx context.Context, key interface{}) (id UserID, ok bool, err error)
}

// ColumnResolver resolves the creator from a column of the row itself.
type ColumnResolver struct {
	db     storage.Interface
	table  *storage.Table
	column string
}

// NewColumnResolver returns a resolver reading the creator from the given
// data column of table.
func NewColumnResolver(db storage.Interface, table *storage.Table, column string) (*ColumnResolver, error) {
	if !table.IsDataColumn(column) {
		return nil, fmt.Errorf("%w: %q in table %s", storage.ErrUnknownColumn, column, table.Name)
	}
	return &ColumnResolver{
		db:     db,
		table:  table,
		column: column,
	}, nil
}

// CreatorRelationName returns the creator column.
func (cr *ColumnResolver) CreatorRelationName() (string, bool) {
	return cr.column, true
}

// CreatorUserID reads the creator column of the row. Missing rows and
// empty columns have no creator.
func (cr *ColumnResolver) CreatorUserID(ctx context.Context, key interface{}) (UserID, bool, error) {
	row, err := cr.db.Get(ctx, cr.table, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", false, nil
		}
		return "", false, err
	}

	switch v := row[cr.column].(type) {
	case nil:
		return "", false, nil
	case string:
		if v == "" {
			return "", false, nil
		}
		return UserID(v), true, nil
	case []byte:
		if len(v) == 0 {
			return "", false, nil
		}
		return UserID(v), true, nil
	default:
		return UserID(fmt.Sprint(v)), true, nil
	}
}
