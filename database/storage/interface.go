package storage

import (
	"context"
)

// Interface defines the database storage API. Every write primitive is a
// single atomic statement: the primary key match, the condition and the
// field changes are evaluated and applied together.
type Interface interface {
	// Schema
	EnsureTable(ctx context.Context, t *Table) error

	// Retrieve
	Get(ctx context.Context, t *Table, key interface{}) (map[string]interface{}, error)
	Exists(ctx context.Context, t *Table, key interface{}) (bool, error)

	// Modify
	Insert(ctx context.Context, t *Table, key interface{}, fields map[string]interface{}) error
	UpdateWhere(ctx context.Context, t *Table, key interface{}, fields map[string]interface{}, condition string, params []interface{}) (rowsAffected int64, err error)
	DeleteWhere(ctx context.Context, t *Table, key interface{}, condition string, params []interface{}) (rowsAffected int64, err error)

	// Now returns the current server time as a value usable as a field
	// value in Insert and UpdateWhere.
	Now() interface{}

	// Shutdown shuts down the storage.
	Shutdown() error
}

// Expr is a raw expression that is evaluated by the storage engine instead of
// being bound as a parameter. Only relational storages support it.
type Expr string
