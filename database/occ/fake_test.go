package occ

import (
	"context"
	"sync"
	"time"

	"github.com/safing/occbase/database/storage"
)

// fakeStorage records conditional writes and answers them with the queued
// affected row counts, or 1 if the queue is empty.
type fakeStorage struct {
	sync.Mutex

	results    []int64
	err        error
	conditions []string
	params     [][]interface{}
	fields     []map[string]interface{}
}

func (fs *fakeStorage) EnsureTable(_ context.Context, t *storage.Table) error {
	return t.Validate()
}

func (fs *fakeStorage) Get(context.Context, *storage.Table, interface{}) (map[string]interface{}, error) {
	return nil, storage.ErrNotFound
}

func (fs *fakeStorage) Exists(context.Context, *storage.Table, interface{}) (bool, error) {
	return true, nil
}

func (fs *fakeStorage) Insert(context.Context, *storage.Table, interface{}, map[string]interface{}) error {
	return nil
}

func (fs *fakeStorage) write(condition string, params []interface{}, fields map[string]interface{}) (int64, error) {
	fs.Lock()
	defer fs.Unlock()

	fs.conditions = append(fs.conditions, condition)
	fs.params = append(fs.params, params)
	fs.fields = append(fs.fields, fields)
	if fs.err != nil {
		return 0, fs.err
	}
	if len(fs.results) == 0 {
		return 1, nil
	}
	n := fs.results[0]
	fs.results = fs.results[1:]
	return n, nil
}

func (fs *fakeStorage) UpdateWhere(_ context.Context, _ *storage.Table, _ interface{}, fields map[string]interface{}, condition string, params []interface{}) (int64, error) {
	return fs.write(condition, params, fields)
}

func (fs *fakeStorage) DeleteWhere(_ context.Context, _ *storage.Table, _ interface{}, condition string, params []interface{}) (int64, error) {
	return fs.write(condition, params, nil)
}

func (fs *fakeStorage) Now() interface{} {
	return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC).Format(time.RFC3339Nano)
}

func (fs *fakeStorage) Shutdown() error {
	return nil
}

func (fs *fakeStorage) writes() int {
	fs.Lock()
	defer fs.Unlock()

	return len(fs.conditions)
}
