// Package occ implements optimistic concurrency control for single-row
// updates and deletes.
//
// Every conditional write embeds the predicate "<version column> = <expected
// version>" into its condition and increments the version column in the same
// statement. The number of affected rows is the only conflict oracle: a write
// that does not affect exactly one row failed with a *StaleObjectError.
package occ

import (
	"context"
	"fmt"

	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/log"
)

// Operations.
const (
	OpUpdate = "update"
	OpDelete = "delete"
)

// Result describes a write.
type Result struct {
	// RowsAffected is 1 for an applied write.
	RowsAffected int64
	// Condition is the composed condition the last write was issued with.
	// It can be passed as the base condition of the next write on the same
	// record, the contained version predicate is replaced.
	Condition string
	// Version is the version of the record after the write.
	Version int64
	// Attempts is the number of writes issued.
	Attempts int
	State    RetryState
}

// Succeeded returns whether the write was applied.
func (res *Result) Succeeded() bool {
	return res != nil && res.State == StateSucceeded
}

// Writer issues conditional writes to a storage.
type Writer struct {
	db storage.Interface
}

// NewWriter returns a new writer for the given storage.
func NewWriter(db storage.Interface) *Writer {
	return &Writer{
		db: db,
	}
}

// Update writes the given data fields of the record, if the stored version
// still equals the version of the record and the row matches condition.
// Condition must be textual, may use "?" placeholders for params and may be
// the Condition of a previous Result.
//
// On success, the version of the record is incremented and the written
// fields are applied to it. Otherwise a *StaleObjectError is returned and the
// record is not changed.
func (w *Writer) Update(ctx context.Context, r *record.Record, fields map[string]interface{}, condition interface{}, params ...interface{}) (*Result, error) {
	base, err := ValidateCondition(condition)
	if err != nil {
		return nil, err
	}

	table := r.Table()
	expected := r.Version()
	composed := BuildCondition(base, table.VersionColumn, expected)

	write := make(map[string]interface{}, len(fields)+2)
	for name, value := range fields {
		if !table.IsDataColumn(name) {
			return nil, fmt.Errorf("%w: %q in table %s", storage.ErrUnknownColumn, name, table.Name)
		}
		write[name] = value
	}
	newVersion := expected + 1
	write[table.VersionColumn] = newVersion
	// Set manually, as conditional writes are not timestamped by the storage.
	write[table.UpdatedColumn] = w.db.Now()

	n, err := w.db.UpdateWhere(ctx, table, r.Key(), write, composed, params)
	if err != nil {
		return nil, fmt.Errorf("occ: failed to update %s %v: %w", table.Name, r.Key(), err)
	}
	if n != 1 {
		countWrite(OpUpdate, false)
		return nil, &StaleObjectError{
			Op:              OpUpdate,
			Table:           table.Name,
			Key:             r.Key(),
			ExpectedVersion: expected,
			RowsAffected:    n,
			Condition:       composed,
		}
	}

	countWrite(OpUpdate, true)
	if err := r.Written(newVersion, write); err != nil {
		return nil, err
	}
	log.Tracef("occ: updated %s %v to version %d", table.Name, r.Key(), newVersion)

	return &Result{
		RowsAffected: n,
		Condition:    composed,
		Version:      newVersion,
		Attempts:     1,
		State:        StateSucceeded,
	}, nil
}

// Save updates the dirty fields of the record. If nothing changed since the
// record was loaded, nothing is written and the result reports zero affected
// rows.
func (w *Writer) Save(ctx context.Context, r *record.Record, condition interface{}, params ...interface{}) (*Result, error) {
	changes := r.Changes()
	if len(changes) > 0 {
		return w.Update(ctx, r, changes, condition, params...)
	}

	base, err := ValidateCondition(condition)
	if err != nil {
		return nil, err
	}
	return &Result{
		Condition: base,
		Version:   r.Version(),
		State:     StateSucceeded,
	}, nil
}

// Delete deletes the row of the record, if the stored version still equals
// the version of the record and the row matches condition. Otherwise a
// *StaleObjectError is returned.
func (w *Writer) Delete(ctx context.Context, r *record.Record, condition interface{}, params ...interface{}) (*Result, error) {
	base, err := ValidateCondition(condition)
	if err != nil {
		return nil, err
	}

	table := r.Table()
	composed := BuildCondition(base, table.VersionColumn, r.Version())

	n, err := w.db.DeleteWhere(ctx, table, r.Key(), composed, params)
	if err != nil {
		return nil, fmt.Errorf("occ: failed to delete %s %v: %w", table.Name, r.Key(), err)
	}
	if n != 1 {
		countWrite(OpDelete, false)
		return nil, &StaleObjectError{
			Op:              OpDelete,
			Table:           table.Name,
			Key:             r.Key(),
			ExpectedVersion: r.Version(),
			RowsAffected:    n,
			Condition:       composed,
		}
	}

	countWrite(OpDelete, true)
	log.Tracef("occ: deleted %s %v at version %d", table.Name, r.Key(), r.Version())

	return &Result{
		RowsAffected: n,
		Condition:    composed,
		Version:      r.Version(),
		Attempts:     1,
		State:        StateSucceeded,
	}, nil
}
