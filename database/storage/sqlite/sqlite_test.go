package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/database/storage/storagetest"
)

func TestSQLiteMemory(t *testing.T) {
	t.Parallel()

	db, err := NewSQLite("test", MemoryLocation)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Shutdown())
	}()

	storagetest.Run(t, db)
}

func TestSQLiteFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	db, err := NewSQLite("test", dir)
	require.NoError(t, err)
	storagetest.Run(t, db)
	require.NoError(t, db.Shutdown())

	// data survives reopening
	db, err = NewSQLite("test", dir)
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Shutdown())
	}()

	ctx := context.Background()
	table, err := storage.NewTable("notes", "id", "title", "body", "count")
	require.NoError(t, err)
	require.NoError(t, db.EnsureTable(ctx, table))
	require.NoError(t, db.Insert(ctx, table, "persisted", map[string]interface{}{"title": "x"}))
	require.NoError(t, db.Shutdown())

	db, err = NewSQLite("test", dir)
	require.NoError(t, err)
	ok, err := db.Exists(ctx, table, "persisted")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestServerTimestamp(t *testing.T) {
	t.Parallel()

	db, err := NewSQLite("test", "")
	require.NoError(t, err)
	defer func() {
		require.NoError(t, db.Shutdown())
	}()

	ctx := context.Background()
	table, err := storage.NewTable("events", "id", "name")
	require.NoError(t, err)
	require.NoError(t, db.EnsureTable(ctx, table))
	require.NoError(t, db.Insert(ctx, table, 1, map[string]interface{}{"name": "start"}))

	n, err := db.UpdateWhere(ctx, table, 1, map[string]interface{}{
		"updated_at": db.Now(),
		"version":    1,
	}, "version = 0", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	row, err := db.Get(ctx, table, 1)
	require.NoError(t, err)
	for _, column := range []string{"created_at", "updated_at"} {
		s, ok := row[column].(string)
		require.True(t, ok, column)
		_, err = time.Parse(time.RFC3339Nano, s)
		assert.NoError(t, err, column)
	}
}
