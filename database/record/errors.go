package record

import "errors"

// Errors.
var (
	ErrUnknownField   = errors.New("unknown field")
	ErrMissingKey     = errors.New("row is missing the primary key")
	ErrVersionSkipped = errors.New("version must advance by exactly one")
)
