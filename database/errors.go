package database

import (
	"errors"

	"github.com/safing/occbase/database/storage"
)

// Errors.
var (
	ErrNotFound           = storage.ErrNotFound
	ErrUnknownTable       = storage.ErrUnknownTable
	ErrShuttingDown       = errors.New("database system is shutting down")
	ErrNotRegistered      = errors.New("database not registered")
	ErrAlreadyRegistered  = errors.New("database already registered")
	ErrInvalidStorageType = errors.New("invalid database storage type")
)
