package storage

import "errors"

// Errors for storages.
var (
	ErrNotFound          = errors.New("storage entry not found")
	ErrDuplicateKey      = errors.New("storage entry with this key already exists")
	ErrInvalidIdentifier = errors.New("invalid identifier")
	ErrDuplicateColumn   = errors.New("duplicate column")
	ErrUnknownColumn     = errors.New("unknown or read-only column")
	ErrUnknownTable      = errors.New("unknown table")
	ErrExprUnsupported   = errors.New("raw expressions are not supported by this storage")
)
