// Package storagetest provides a conformance test for storage
// implementations.
package storagetest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/occbase/database/storage"
)

// Run tests the conditional write contract of a storage.
func Run(t *testing.T, db storage.Interface) {
	t.Helper()

	ctx := context.Background()
	table, err := storage.NewTable("notes", "id", "title", "body", "count")
	require.NoError(t, err)
	require.NoError(t, db.EnsureTable(ctx, table))
	// ensuring twice is fine
	require.NoError(t, db.EnsureTable(ctx, table))

	// insert
	require.NoError(t, db.Insert(ctx, table, "a", map[string]interface{}{
		"title": "hello",
		"count": 1,
	}))
	err = db.Insert(ctx, table, "a", map[string]interface{}{"title": "again"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	err = db.Insert(ctx, table, "b", map[string]interface{}{"id": "c"})
	assert.ErrorIs(t, err, storage.ErrUnknownColumn)

	// exists
	ok, err := db.Exists(ctx, table, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = db.Exists(ctx, table, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	// get
	row, err := db.Get(ctx, table, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", row["id"])
	assert.Equal(t, "hello", row["title"])
	assert.Nil(t, row["body"])
	assert.EqualValues(t, 1, row["count"])
	assert.EqualValues(t, 0, row["version"])
	assert.NotNil(t, row["created_at"])
	assert.Nil(t, row["updated_at"])
	_, err = db.Get(ctx, table, "b")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// keys of different types are different rows
	require.NoError(t, db.Insert(ctx, table, "1", map[string]interface{}{"title": "text key"}))
	require.NoError(t, db.Insert(ctx, table, int64(1), map[string]interface{}{"title": "int key"}))
	row, err = db.Get(ctx, table, "1")
	require.NoError(t, err)
	assert.Equal(t, "text key", row["title"])
	row, err = db.Get(ctx, table, 1)
	require.NoError(t, err)
	assert.Equal(t, "int key", row["title"])
	assert.EqualValues(t, 1, row["id"])

	// conditional update
	n, err := db.UpdateWhere(ctx, table, "a", map[string]interface{}{
		"title":      "changed",
		"version":    1,
		"updated_at": db.Now(),
	}, "version = 0", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	row, err = db.Get(ctx, table, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", row["title"])
	assert.EqualValues(t, 1, row["version"])
	assert.NotNil(t, row["updated_at"])

	// stale condition
	n, err = db.UpdateWhere(ctx, table, "a", map[string]interface{}{"title": "lost"}, "version = 0", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	// parameters
	n, err = db.UpdateWhere(ctx, table, "a", map[string]interface{}{
		"body":    "it's here",
		"version": 2,
	}, "title = ? AND version = 1", []interface{}{"changed"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// missing row
	n, err = db.UpdateWhere(ctx, table, "b", map[string]interface{}{"title": "x"}, "TRUE", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	// unknown column
	_, err = db.UpdateWhere(ctx, table, "a", map[string]interface{}{"missing": 1}, "TRUE", nil)
	assert.ErrorIs(t, err, storage.ErrUnknownColumn)

	row, err = db.Get(ctx, table, "a")
	require.NoError(t, err)
	assert.Equal(t, "changed", row["title"])
	assert.Equal(t, "it's here", row["body"])
	assert.EqualValues(t, 2, row["version"])

	// concurrent compare and set
	var (
		wg   sync.WaitGroup
		wins int64
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := db.UpdateWhere(ctx, table, "a", map[string]interface{}{"version": 3}, "version = 2", nil)
			assert.NoError(t, err)
			atomic.AddInt64(&wins, n)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins)

	// conditional delete
	n, err = db.DeleteWhere(ctx, table, "a", "version = 2", nil)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
	n, err = db.DeleteWhere(ctx, table, "a", "version = ?", []interface{}{3})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	ok, err = db.Exists(ctx, table, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
