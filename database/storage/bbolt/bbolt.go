package bbolt

import (
	"errors"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/database/storage/docstore"
)

var bucketName = []byte{0}

// BBolt key/value engine made pluggable for the document storage.
type BBolt struct {
	db *bbolt.DB
}

func init() {
	_ = storage.Register("bbolt", NewBBolt)
}

// NewBBolt opens/creates a bbolt database.
func NewBBolt(name, location string) (storage.Interface, error) {
	db, err := bbolt.Open(filepath.Join(location, "db.bbolt"), 0o600, nil)
	if err != nil {
		return nil, err
	}

	// Create bucket
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return docstore.New(name, &BBolt{db: db}), nil
}

type txn struct {
	bucket *bbolt.Bucket
}

func (t txn) Get(key []byte) ([]byte, error) {
	value := t.bucket.Get(key)
	if value == nil {
		return nil, nil
	}

	// copy data, values are only valid during the transaction
	duplicate := make([]byte, len(value))
	copy(duplicate, value)
	return duplicate, nil
}

func (t txn) Put(key, value []byte) error {
	return t.bucket.Put(key, value)
}

func (t txn) Delete(key []byte) error {
	return t.bucket.Delete(key)
}

// View runs fn in a read-only transaction.
func (b *BBolt) View(fn func(docstore.Txn) error) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		if bucket == nil {
			return errors.New("bucket missing")
		}
		return fn(txn{bucket: bucket})
	})
}

// Update runs fn in a read-write transaction.
func (b *BBolt) Update(fn func(docstore.Txn) error) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return fn(txn{bucket: tx.Bucket(bucketName)})
	})
}

// Close closes the database.
func (b *BBolt) Close() error {
	return b.db.Close()
}
