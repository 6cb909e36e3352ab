package storage

import (
	"fmt"
	"regexp"
)

// Default names of the optimistic locking columns.
const (
	DefaultCreatedColumn = "created_at"
	DefaultUpdatedColumn = "updated_at"
	DefaultVersionColumn = "version"
)

var identifierFormat = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Table describes the schema contract of a table participating in optimistic
// locking: a primary key, the data columns and the three bookkeeping columns
// for creation time, update time and the version counter.
type Table struct {
	Name       string
	PrimaryKey string
	Columns    []string

	CreatedColumn string
	UpdatedColumn string
	VersionColumn string

	columnSet map[string]struct{}
}

// NewTable returns a validated table with the default bookkeeping columns.
func NewTable(name, primaryKey string, columns ...string) (*Table, error) {
	t := &Table{
		Name:          name,
		PrimaryKey:    primaryKey,
		Columns:       columns,
		CreatedColumn: DefaultCreatedColumn,
		UpdatedColumn: DefaultUpdatedColumn,
		VersionColumn: DefaultVersionColumn,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the table definition and prepares it for use. It must be
// called again after modifying the table.
func (t *Table) Validate() error {
	if !identifierFormat.MatchString(t.Name) {
		return fmt.Errorf("%w: table name %q", ErrInvalidIdentifier, t.Name)
	}

	seen := make(map[string]struct{}, len(t.Columns)+4)
	check := func(kind, name string) error {
		if !identifierFormat.MatchString(name) {
			return fmt.Errorf("%w: %s column %q of table %s", ErrInvalidIdentifier, kind, name, t.Name)
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("%w: %s column %q of table %s", ErrDuplicateColumn, kind, name, t.Name)
		}
		seen[name] = struct{}{}
		return nil
	}

	if err := check("primary key", t.PrimaryKey); err != nil {
		return err
	}
	if err := check("created", t.CreatedColumn); err != nil {
		return err
	}
	if err := check("updated", t.UpdatedColumn); err != nil {
		return err
	}
	if err := check("version", t.VersionColumn); err != nil {
		return err
	}

	columnSet := make(map[string]struct{}, len(t.Columns))
	for _, column := range t.Columns {
		if err := check("data", column); err != nil {
			return err
		}
		columnSet[column] = struct{}{}
	}
	t.columnSet = columnSet

	return nil
}

// IsDataColumn returns whether the given name is one of the data columns.
func (t *Table) IsDataColumn(name string) bool {
	_, ok := t.columnSet[name]
	return ok
}

// IsWritable returns whether the given column may be set by a write: any
// data column and the bookkeeping columns, but never the primary key.
func (t *Table) IsWritable(name string) bool {
	switch name {
	case t.CreatedColumn, t.UpdatedColumn, t.VersionColumn:
		return true
	}
	return t.IsDataColumn(name)
}

// AllColumns returns all columns in schema order: primary key, data
// columns, created, updated and version.
func (t *Table) AllColumns() []string {
	all := make([]string, 0, len(t.Columns)+4)
	all = append(all, t.PrimaryKey)
	all = append(all, t.Columns...)
	return append(all, t.CreatedColumn, t.UpdatedColumn, t.VersionColumn)
}

// CheckFields returns an error if any of the given fields is not writable.
func (t *Table) CheckFields(fields map[string]interface{}) error {
	for name := range fields {
		if !t.IsWritable(name) {
			return fmt.Errorf("%w: %q in table %s", ErrUnknownColumn, name, t.Name)
		}
	}
	return nil
}
