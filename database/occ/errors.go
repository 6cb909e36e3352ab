package occ

import (
	"errors"
)

// Errors. Use errors.Is to check for them, errors.As to get the details.
var (
	ErrStaleObject          = errors.New("stale object")
	ErrUnsupportedCondition = errors.New("unsupported condition kind")
)

// StaleObjectError is returned when a conditional write did not affect
// exactly one row, because the row was changed or deleted concurrently or
// did not match the base condition.
type StaleObjectError struct {
	Op              string
	Table           string
	Key             interface{}
	ExpectedVersion int64
	RowsAffected    int64
	// Condition is the composed condition the write was issued with.
	Condition string
}

func (e *StaleObjectError) Error() string {
	return resolveMessage(MsgStaleObject, e.Op, e.Table, e.Key, e.ExpectedVersion, e.RowsAffected)
}

// Is reports whether target is ErrStaleObject.
func (e *StaleObjectError) Is(target error) bool {
	return target == ErrStaleObject
}

// UnsupportedConditionError is returned for conditions that are not plain
// text.
type UnsupportedConditionError struct {
	TypeName string
}

func (e *UnsupportedConditionError) Error() string {
	return resolveMessage(MsgUnsupportedCondition, e.TypeName)
}

// Is reports whether target is ErrUnsupportedCondition.
func (e *UnsupportedConditionError) Is(target error) bool {
	return target == ErrUnsupportedCondition
}
