package badger

import (
	"errors"

	"github.com/dgraph-io/badger"

	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/database/storage/docstore"
)

// Badger key/value engine made pluggable for the document storage.
type Badger struct {
	db *badger.DB
}

func init() {
	_ = storage.Register("badger", NewBadger)
}

// NewBadger opens/creates a badger database.
func NewBadger(name, location string) (storage.Interface, error) {
	opts := badger.DefaultOptions(location)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return docstore.New(name, &Badger{db: db}), nil
}

type txn struct {
	txn *badger.Txn
}

func (t txn) Get(key []byte) ([]byte, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if item.IsDeletedOrExpired() {
		return nil, nil
	}
	return item.ValueCopy(nil)
}

func (t txn) Put(key, value []byte) error {
	return t.txn.Set(key, value)
}

func (t txn) Delete(key []byte) error {
	return t.txn.Delete(key)
}

// View runs fn in a read-only transaction.
func (b *Badger) View(fn func(docstore.Txn) error) error {
	return b.db.View(func(t *badger.Txn) error {
		return fn(txn{txn: t})
	})
}

// Update runs fn in a read-write transaction. A transaction that read a key
// written by a concurrent transaction fails with docstore.ErrConflict.
func (b *Badger) Update(fn func(docstore.Txn) error) error {
	err := b.db.Update(func(t *badger.Txn) error {
		return fn(txn{txn: t})
	})
	if errors.Is(err, badger.ErrConflict) {
		return docstore.ErrConflict
	}
	return err
}

// Close closes the database.
func (b *Badger) Close() error {
	return b.db.Close()
}
