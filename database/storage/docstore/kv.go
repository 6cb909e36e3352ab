package docstore

import "errors"

// ErrConflict is returned by a KV when a write transaction lost against a
// concurrent transaction. The Store reports such writes as not applied.
var ErrConflict = errors.New("transaction conflict")

// Txn is a key/value transaction.
type Txn interface {
	// Get returns the value of key, or nil if it does not exist. The value
	// must not be used after the transaction ended.
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
}

// KV is a transactional key/value engine.
type KV interface {
	View(fn func(txn Txn) error) error
	Update(fn func(txn Txn) error) error
	Close() error
}
