package config

import (
	"errors"
	"fmt"
)

// Errors. Use errors.Is to check for them, errors.As with *OptionError to
// get the option.
var (
	ErrUnknownOption = errors.New("unknown option")
	ErrInvalidOption = errors.New("invalid option definition")
	ErrInvalidValue  = errors.New("invalid option value")
	ErrInvalidFile   = errors.New("invalid config file")
)

// OptionError reports a rejected option definition or value.
type OptionError struct {
	Key string
	// Value is the rejected value, nil for definition errors.
	Value  interface{}
	Reason string

	kind  error
	cause error
}

func (e *OptionError) Error() string {
	if e.kind == ErrInvalidValue {
		return fmt.Sprintf("config: %s: %s %+v: %s", e.Key, e.kind, e.Value, e.Reason)
	}
	return fmt.Sprintf("config: %s: %s: %s", e.Key, e.kind, e.Reason)
}

// Is reports whether target is the kind of the error.
func (e *OptionError) Is(target error) bool {
	return target == e.kind
}

// Unwrap returns the underlying cause, if any.
func (e *OptionError) Unwrap() error {
	return e.cause
}

func definitionError(key, reason string, cause error) *OptionError {
	return &OptionError{Key: key, Reason: reason, kind: ErrInvalidOption, cause: cause}
}

func valueError(key string, value interface{}, reason string) *OptionError {
	return &OptionError{Key: key, Value: value, Reason: reason, kind: ErrInvalidValue}
}
