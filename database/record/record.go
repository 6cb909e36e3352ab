// Package record provides the versioned record used for optimistic locking.
//
// A Record holds the current attribute values of one row, the version
// counter read from storage and a snapshot of the attributes as they were
// loaded. The snapshot is only used to detect changes and is never written.
package record

import (
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/copystructure"

	"github.com/safing/occbase/database/storage"
)

// Record is a versioned row. Records are not safe for concurrent use, use
// Lock and Unlock when sharing one between goroutines.
type Record struct {
	lock sync.Mutex

	table *storage.Table
	key   interface{}

	version    int64
	attributes map[string]interface{}
	snapshot   map[string]interface{}

	createdAt time.Time
	updatedAt time.Time
}

// New returns a record that was not loaded from storage. It has no snapshot,
// so it is never dirty.
func New(table *storage.Table, key interface{}) *Record {
	return &Record{
		table:      table,
		key:        key,
		attributes: make(map[string]interface{}),
		snapshot:   make(map[string]interface{}),
	}
}

// Load creates a record from a storage row and captures its snapshot.
func Load(table *storage.Table, row map[string]interface{}) (*Record, error) {
	key, ok := row[table.PrimaryKey]
	if !ok || key == nil {
		return nil, fmt.Errorf("%w %s of table %s", ErrMissingKey, table.PrimaryKey, table.Name)
	}

	r := &Record{
		table: table,
		key:   key,
	}
	if err := r.Refresh(row); err != nil {
		return nil, err
	}
	return r, nil
}

// Refresh replaces the state of the record with the given storage row and
// captures a new snapshot. The primary key of the row must match.
func (r *Record) Refresh(row map[string]interface{}) error {
	if key, ok := row[r.table.PrimaryKey]; ok && !looseEqual(key, r.key) {
		return fmt.Errorf("cannot refresh record %v with row %v", r.key, key)
	}

	version, err := toInt64(row[r.table.VersionColumn])
	if err != nil {
		return fmt.Errorf("invalid version column %s: %w", r.table.VersionColumn, err)
	}
	createdAt, err := toTime(row[r.table.CreatedColumn])
	if err != nil {
		return fmt.Errorf("invalid created column %s: %w", r.table.CreatedColumn, err)
	}
	updatedAt, err := toTime(row[r.table.UpdatedColumn])
	if err != nil {
		return fmt.Errorf("invalid updated column %s: %w", r.table.UpdatedColumn, err)
	}

	attributes := make(map[string]interface{}, len(r.table.Columns))
	for _, column := range r.table.Columns {
		attributes[column] = row[column]
	}
	snapshot, err := copystructure.Copy(attributes)
	if err != nil {
		return fmt.Errorf("failed to copy snapshot: %w", err)
	}

	r.version = version
	r.attributes = attributes
	r.snapshot = snapshot.(map[string]interface{}) //nolint:forcetypeassert
	r.createdAt = createdAt
	r.updatedAt = updatedAt
	return nil
}

// Lock locks the record.
func (r *Record) Lock() {
	r.lock.Lock()
}

// Unlock unlocks the record.
func (r *Record) Unlock() {
	r.lock.Unlock()
}

// Table returns the table of the record.
func (r *Record) Table() *storage.Table {
	return r.table
}

// Key returns the primary key of the record.
func (r *Record) Key() interface{} {
	return r.key
}

// Version returns the version the record was last read or written with.
func (r *Record) Version() int64 {
	return r.version
}

// CreatedAt returns the creation time, if known.
func (r *Record) CreatedAt() time.Time {
	return r.createdAt
}

// UpdatedAt returns the time of the last update, if known.
func (r *Record) UpdatedAt() time.Time {
	return r.updatedAt
}

// Get returns the current value of a field.
func (r *Record) Get(name string) (value interface{}, ok bool) {
	value, ok = r.attributes[name]
	return
}

// Set sets a data field. The primary key and the bookkeeping columns cannot
// be set.
func (r *Record) Set(name string, value interface{}) error {
	if !r.table.IsDataColumn(name) {
		return fmt.Errorf("%w %q in table %s", ErrUnknownField, name, r.table.Name)
	}
	r.attributes[name] = value
	return nil
}

// Attributes returns a copy of the current attributes.
func (r *Record) Attributes() map[string]interface{} {
	copied := make(map[string]interface{}, len(r.attributes))
	for name, value := range r.attributes {
		copied[name] = value
	}
	return copied
}

// Written applies a successful write to the record: the version is set to
// the written version, which must be the next one, and written data fields
// are taken over. The snapshot is kept until the next load.
func (r *Record) Written(version int64, fields map[string]interface{}) error {
	if version != r.version+1 {
		return fmt.Errorf("%w: from %d to %d", ErrVersionSkipped, r.version, version)
	}
	r.version = version

	for name, value := range fields {
		if r.table.IsDataColumn(name) {
			r.attributes[name] = value
		}
	}
	if t, err := toTime(fields[r.table.UpdatedColumn]); err == nil && !t.IsZero() {
		r.updatedAt = t
	} else {
		r.updatedAt = time.Now().UTC()
	}
	return nil
}
