// Package docstore implements the storage interface on top of any
// transactional key/value engine. Rows are stored as JSON documents and
// conditions are evaluated with the predicate dialect inside the write
// transaction, so check and write form one atomic step.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/safing/occbase/database/predicate"
	"github.com/safing/occbase/database/storage"
)

// Store is a document storage.
type Store struct {
	name string
	kv   KV
}

// New returns a new document storage backed by kv.
func New(name string, kv KV) *Store {
	return &Store{
		name: name,
		kv:   kv,
	}
}

// Name returns the name of the storage.
func (s *Store) Name() string {
	return s.name
}

// dbKey returns the key of a row. The type of the primary key is part of the
// key, so "1" and 1 are different rows.
func dbKey(t *storage.Table, key interface{}) ([]byte, error) {
	v, err := predicate.Normalize(key)
	if err != nil {
		return nil, err
	}

	var tag byte
	switch v.(type) {
	case string:
		tag = 's'
	case int64:
		tag = 'i'
	case float64:
		tag = 'f'
	case bool:
		tag = 'b'
	default:
		return nil, fmt.Errorf("%w: %T primary key", storage.ErrInvalidIdentifier, key)
	}
	return []byte(fmt.Sprintf("%s:%c:%v", t.Name, tag, v)), nil
}

// EnsureTable is a no-op, documents need no schema.
func (s *Store) EnsureTable(_ context.Context, t *storage.Table) error {
	return t.Validate()
}

// Get returns the row with the given primary key.
func (s *Store) Get(_ context.Context, t *storage.Table, key interface{}) (map[string]interface{}, error) {
	k, err := dbKey(t, key)
	if err != nil {
		return nil, err
	}

	var row map[string]interface{}
	err = s.kv.View(func(txn Txn) error {
		doc, err := txn.Get(k)
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}
		row = Decode(doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Exists returns whether a row with the given primary key exists.
func (s *Store) Exists(_ context.Context, t *storage.Table, key interface{}) (bool, error) {
	k, err := dbKey(t, key)
	if err != nil {
		return false, err
	}

	var exists bool
	err = s.kv.View(func(txn Txn) error {
		doc, err := txn.Get(k)
		exists = doc != nil
		return err
	})
	return exists, err
}

// Insert creates a new row. The created column defaults to the current time
// and the version column to 0.
func (s *Store) Insert(_ context.Context, t *storage.Table, key interface{}, fields map[string]interface{}) error {
	if err := t.CheckFields(fields); err != nil {
		return err
	}
	k, err := dbKey(t, key)
	if err != nil {
		return err
	}

	row := make(map[string]interface{}, len(fields)+4)
	for name, value := range fields {
		row[name] = value
	}
	row[t.PrimaryKey] = key
	if _, ok := row[t.CreatedColumn]; !ok {
		row[t.CreatedColumn] = s.Now()
	}
	if _, ok := row[t.UpdatedColumn]; !ok {
		row[t.UpdatedColumn] = nil
	}
	if _, ok := row[t.VersionColumn]; !ok {
		row[t.VersionColumn] = int64(0)
	}
	doc, err := Patch([]byte("{}"), row)
	if err != nil {
		return err
	}

	return s.kv.Update(func(txn Txn) error {
		existing, err := txn.Get(k)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, k)
		}
		return txn.Put(k, doc)
	})
}

// UpdateWhere applies the field changes to the row with the given primary key
// if it matches the condition.
func (s *Store) UpdateWhere(_ context.Context, t *storage.Table, key interface{}, fields map[string]interface{}, condition string, params []interface{}) (int64, error) {
	if err := t.CheckFields(fields); err != nil {
		return 0, err
	}
	k, err := dbKey(t, key)
	if err != nil {
		return 0, err
	}
	pred, err := predicate.Parse(condition, params)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.kv.Update(func(txn Txn) error {
		affected = 0
		doc, err := txn.Get(k)
		if err != nil || doc == nil || !pred.Matches(doc) {
			return err
		}

		updated, err := Patch(doc, fields)
		if err != nil {
			return err
		}
		if err := txn.Put(k, updated); err != nil {
			return err
		}
		affected = 1
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return 0, nil
	}
	return affected, err
}

// DeleteWhere deletes the row with the given primary key if it matches the
// condition.
func (s *Store) DeleteWhere(_ context.Context, t *storage.Table, key interface{}, condition string, params []interface{}) (int64, error) {
	k, err := dbKey(t, key)
	if err != nil {
		return 0, err
	}
	pred, err := predicate.Parse(condition, params)
	if err != nil {
		return 0, err
	}

	var affected int64
	err = s.kv.Update(func(txn Txn) error {
		affected = 0
		doc, err := txn.Get(k)
		if err != nil || doc == nil || !pred.Matches(doc) {
			return err
		}
		if err := txn.Delete(k); err != nil {
			return err
		}
		affected = 1
		return nil
	})
	if errors.Is(err, ErrConflict) {
		return 0, nil
	}
	return affected, err
}

// Now returns the current time in the storage time format.
func (s *Store) Now() interface{} {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Shutdown closes the underlying engine.
func (s *Store) Shutdown() error {
	return s.kv.Close()
}

// Patch sets the given fields on the JSON document.
func Patch(doc []byte, fields map[string]interface{}) ([]byte, error) {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	patched := doc
	for _, name := range names {
		if _, ok := fields[name].(storage.Expr); ok {
			return nil, storage.ErrExprUnsupported
		}
		v, err := predicate.Normalize(fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
		patched, err = sjson.SetBytes(patched, name, v)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", name, err)
		}
	}
	return patched, nil
}

// Decode converts a JSON document into a row. Integral numbers are returned
// as int64, other numbers as float64.
func Decode(doc []byte) map[string]interface{} {
	row := make(map[string]interface{})
	gjson.ParseBytes(doc).ForEach(func(key, value gjson.Result) bool {
		switch value.Type {
		case gjson.Null:
			row[key.String()] = nil
		case gjson.Number:
			if isIntegral(value.Raw) {
				row[key.String()] = value.Int()
			} else {
				row[key.String()] = value.Num
			}
		default:
			row[key.String()] = value.Value()
		}
		return true
	})
	return row
}

func isIntegral(raw string) bool {
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case '.', 'e', 'E':
			return false
		}
	}
	return true
}
