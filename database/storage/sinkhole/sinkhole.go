package sinkhole

import (
	"context"
	"time"

	"github.com/safing/occbase/database/storage"
)

// Sinkhole is a dummy storage. It accepts inserts and discards them, so every
// conditional write affects zero rows.
type Sinkhole struct {
	name string
}

func init() {
	_ = storage.Register("sinkhole", NewSinkhole)
}

// NewSinkhole creates a dummy database.
func NewSinkhole(name, _ string) (storage.Interface, error) {
	return &Sinkhole{
		name: name,
	}, nil
}

// EnsureTable validates the table.
func (s *Sinkhole) EnsureTable(_ context.Context, t *storage.Table) error {
	return t.Validate()
}

// Get returns storage.ErrNotFound.
func (s *Sinkhole) Get(_ context.Context, _ *storage.Table, _ interface{}) (map[string]interface{}, error) {
	return nil, storage.ErrNotFound
}

// Exists returns false.
func (s *Sinkhole) Exists(_ context.Context, _ *storage.Table, _ interface{}) (bool, error) {
	return false, nil
}

// Insert discards the row.
func (s *Sinkhole) Insert(_ context.Context, t *storage.Table, _ interface{}, fields map[string]interface{}) error {
	return t.CheckFields(fields)
}

// UpdateWhere affects no rows.
func (s *Sinkhole) UpdateWhere(_ context.Context, t *storage.Table, _ interface{}, fields map[string]interface{}, _ string, _ []interface{}) (int64, error) {
	return 0, t.CheckFields(fields)
}

// DeleteWhere affects no rows.
func (s *Sinkhole) DeleteWhere(_ context.Context, _ *storage.Table, _ interface{}, _ string, _ []interface{}) (int64, error) {
	return 0, nil
}

// Now returns the current time.
func (s *Sinkhole) Now() interface{} {
	return time.Now().UTC().Format(time.RFC3339Nano)
}

// Shutdown shuts down the database.
func (s *Sinkhole) Shutdown() error {
	return nil
}
