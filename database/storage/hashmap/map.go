package hashmap

import (
	"sync"

	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/database/storage/docstore"
)

// HashMap is an in-memory key/value engine.
type HashMap struct {
	db     map[string][]byte
	dbLock sync.RWMutex
}

func init() {
	_ = storage.Register("hashmap", NewHashMap)
}

// NewHashMap creates a hashmap database.
func NewHashMap(name, _ string) (storage.Interface, error) {
	return docstore.New(name, &HashMap{
		db: make(map[string][]byte),
	}), nil
}

type txn struct {
	hm      *HashMap
	changes map[string][]byte
	deleted map[string]struct{}
}

func (t *txn) Get(key []byte) ([]byte, error) {
	if v, ok := t.changes[string(key)]; ok {
		return v, nil
	}
	if _, ok := t.deleted[string(key)]; ok {
		return nil, nil
	}
	return t.hm.db[string(key)], nil
}

func (t *txn) Put(key, value []byte) error {
	if t.changes == nil {
		return errReadOnly
	}
	delete(t.deleted, string(key))
	t.changes[string(key)] = append([]byte(nil), value...)
	return nil
}

func (t *txn) Delete(key []byte) error {
	if t.changes == nil {
		return errReadOnly
	}
	delete(t.changes, string(key))
	t.deleted[string(key)] = struct{}{}
	return nil
}

// View runs fn in a read-only transaction.
func (hm *HashMap) View(fn func(docstore.Txn) error) error {
	hm.dbLock.RLock()
	defer hm.dbLock.RUnlock()

	return fn(&txn{hm: hm})
}

// Update runs fn in a read-write transaction. Changes are only applied if fn
// returns no error.
func (hm *HashMap) Update(fn func(docstore.Txn) error) error {
	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	t := &txn{
		hm:      hm,
		changes: make(map[string][]byte),
		deleted: make(map[string]struct{}),
	}
	if err := fn(t); err != nil {
		return err
	}

	for key := range t.deleted {
		delete(hm.db, key)
	}
	for key, value := range t.changes {
		hm.db[key] = value
	}
	return nil
}

// Close drops all data.
func (hm *HashMap) Close() error {
	hm.dbLock.Lock()
	defer hm.dbLock.Unlock()

	hm.db = make(map[string][]byte)
	return nil
}
