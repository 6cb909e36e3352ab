// Package sqlite provides a relational storage backed by an embedded SQLite
// database. Conditions are passed to SQLite verbatim.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // register driver

	"github.com/safing/occbase/database/storage"
)

// MemoryLocation opens a private in-memory database.
const MemoryLocation = ":memory:"

// nowExpr renders the current time in the same format as the document
// storages.
const nowExpr = storage.Expr(`strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`)

// SQLite storage.
type SQLite struct {
	name string
	db   *sql.DB
}

func init() {
	_ = storage.Register("sqlite", NewSQLite)
}

// NewSQLite opens/creates a SQLite database in the location directory. An
// empty location or MemoryLocation opens an in-memory database.
func NewSQLite(name, location string) (storage.Interface, error) {
	var dsn string
	inMemory := location == "" || location == MemoryLocation
	if inMemory {
		dsn = MemoryLocation
	} else {
		if err := os.MkdirAll(location, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = "file:" + filepath.Join(location, "db.sqlite") +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	if inMemory {
		// every connection would get its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	return &SQLite{
		name: name,
		db:   db,
	}, nil
}

func quote(identifier string) string {
	return `"` + identifier + `"`
}

// EnsureTable creates the table if it does not exist.
func (s *SQLite) EnsureTable(ctx context.Context, t *storage.Table) error {
	if err := t.Validate(); err != nil {
		return err
	}

	columns := make([]string, 0, len(t.Columns)+4)
	columns = append(columns, quote(t.PrimaryKey)+" PRIMARY KEY NOT NULL")
	for _, column := range t.Columns {
		columns = append(columns, quote(column))
	}
	columns = append(columns,
		quote(t.CreatedColumn)+" TEXT NOT NULL DEFAULT ("+string(nowExpr)+")",
		quote(t.UpdatedColumn)+" TEXT",
		quote(t.VersionColumn)+" INTEGER NOT NULL DEFAULT 0",
	)

	_, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)",
		quote(t.Name), strings.Join(columns, ",\n\t"),
	))
	return err
}

// Get returns the row with the given primary key.
func (s *SQLite) Get(ctx context.Context, t *storage.Table, key interface{}) (map[string]interface{}, error) {
	all := t.AllColumns()
	quoted := make([]string, 0, len(all))
	for _, column := range all {
		quoted = append(quoted, quote(column))
	}

	values := make([]interface{}, len(all))
	dest := make([]interface{}, len(all))
	for i := range values {
		dest[i] = &values[i]
	}

	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT %s FROM %s WHERE %s = ?",
		strings.Join(quoted, ", "), quote(t.Name), quote(t.PrimaryKey),
	), key).Scan(dest...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}

	row := make(map[string]interface{}, len(all))
	for i, column := range all {
		if b, ok := values[i].([]byte); ok {
			values[i] = string(b)
		}
		row[column] = values[i]
	}
	return row, nil
}

// Exists returns whether a row with the given primary key exists.
func (s *SQLite) Exists(ctx context.Context, t *storage.Table, key interface{}) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(
		"SELECT COUNT(*) FROM %s WHERE %s = ?",
		quote(t.Name), quote(t.PrimaryKey),
	), key).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// sortedFields returns the field names in stable order.
func sortedFields(fields map[string]interface{}) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Insert creates a new row.
func (s *SQLite) Insert(ctx context.Context, t *storage.Table, key interface{}, fields map[string]interface{}) error {
	if err := t.CheckFields(fields); err != nil {
		return err
	}

	columns := []string{quote(t.PrimaryKey)}
	placeholders := []string{"?"}
	args := []interface{}{key}
	for _, name := range sortedFields(fields) {
		columns = append(columns, quote(name))
		if expr, ok := fields[name].(storage.Expr); ok {
			placeholders = append(placeholders, string(expr))
			continue
		}
		placeholders = append(placeholders, "?")
		args = append(args, fields[name])
	}

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT DO NOTHING",
		quote(t.Name), strings.Join(columns, ", "), strings.Join(placeholders, ", "),
	), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s/%v", storage.ErrDuplicateKey, t.Name, key)
	}
	return nil
}

func where(t *storage.Table, condition string) string {
	clause := quote(t.PrimaryKey) + " = ?"
	if strings.TrimSpace(condition) != "" {
		clause += " AND (" + condition + ")"
	}
	return clause
}

// UpdateWhere applies the field changes to the row with the given primary key
// if it matches the condition.
func (s *SQLite) UpdateWhere(ctx context.Context, t *storage.Table, key interface{}, fields map[string]interface{}, condition string, params []interface{}) (int64, error) {
	if err := t.CheckFields(fields); err != nil {
		return 0, err
	}

	assignments := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+len(params)+1)
	for _, name := range sortedFields(fields) {
		if expr, ok := fields[name].(storage.Expr); ok {
			assignments = append(assignments, quote(name)+" = "+string(expr))
			continue
		}
		assignments = append(assignments, quote(name)+" = ?")
		args = append(args, fields[name])
	}
	if len(assignments) == 0 {
		assignments = append(assignments, quote(t.PrimaryKey)+" = "+quote(t.PrimaryKey))
	}
	args = append(args, key)
	args = append(args, params...)

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		quote(t.Name), strings.Join(assignments, ", "), where(t, condition),
	), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteWhere deletes the row with the given primary key if it matches the
// condition.
func (s *SQLite) DeleteWhere(ctx context.Context, t *storage.Table, key interface{}, condition string, params []interface{}) (int64, error) {
	args := make([]interface{}, 0, len(params)+1)
	args = append(args, key)
	args = append(args, params...)

	res, err := s.db.ExecContext(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s",
		quote(t.Name), where(t, condition),
	), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Now returns an expression evaluated by the database server.
func (s *SQLite) Now() interface{} {
	return nowExpr
}

// Shutdown closes the database.
func (s *SQLite) Shutdown() error {
	return s.db.Close()
}
