package database

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/occbase/config"
	"github.com/safing/occbase/database/occ"
	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/database/storage"
	_ "github.com/safing/occbase/database/storage/badger"
	_ "github.com/safing/occbase/database/storage/bbolt"
	_ "github.com/safing/occbase/database/storage/hashmap"
	_ "github.com/safing/occbase/database/storage/sqlite"
)

func testDatabase(t *testing.T, name, storageType, location string) *Interface {
	t.Helper()

	db, err := Open(name, storageType, location)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})

	_, err = db.RegisterTable(context.Background(), "tickets", "id", "title", "status")
	require.NoError(t, err)
	return db
}

func TestDatabase(t *testing.T) {
	t.Parallel()

	for _, storageType := range []string{"sqlite", "bbolt", "badger", "hashmap"} {
		storageType := storageType
		t.Run(storageType, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			db := testDatabase(t, "test-"+storageType, storageType, t.TempDir())

			key := NewKey()
			r, err := db.Insert(ctx, "tickets", key, map[string]interface{}{
				"title":  "Printer on fire",
				"status": "open",
			})
			require.NoError(t, err)
			assert.Equal(t, key, r.Key())
			assert.EqualValues(t, 0, r.Version())
			assert.False(t, r.CreatedAt().IsZero())

			_, err = db.Insert(ctx, "tickets", key, nil)
			assert.ErrorIs(t, err, storage.ErrDuplicateKey)
			_, err = db.Insert(ctx, "tickets", NewKey(), map[string]interface{}{"version": 3})
			assert.ErrorIs(t, err, storage.ErrUnknownColumn)
			_, err = db.Insert(ctx, "missing", NewKey(), nil)
			assert.ErrorIs(t, err, ErrUnknownTable)

			exists, err := db.Exists(ctx, "tickets", key)
			require.NoError(t, err)
			assert.True(t, exists)
			_, err = db.Load(ctx, "tickets", NewKey())
			assert.ErrorIs(t, err, ErrNotFound)

			// two sessions race
			first, err := db.Load(ctx, "tickets", key)
			require.NoError(t, err)
			second, err := db.Load(ctx, "tickets", key)
			require.NoError(t, err)

			require.NoError(t, first.Set("status", "closed"))
			res, err := db.Writer().Save(ctx, first, nil)
			require.NoError(t, err)
			assert.EqualValues(t, 1, res.RowsAffected)

			require.NoError(t, second.Set("title", "Printer fixed"))
			_, err = db.Writer().Save(ctx, second, nil)
			assert.ErrorIs(t, err, occ.ErrStaleObject)

			// reload and try again
			require.NoError(t, db.Reload(ctx, second))
			assert.EqualValues(t, 1, second.Version())
			require.NoError(t, second.Set("title", "Printer fixed"))
			_, err = db.Writer().Save(ctx, second, "status = ?", "closed")
			require.NoError(t, err)

			stored, err := db.Load(ctx, "tickets", key)
			require.NoError(t, err)
			assert.EqualValues(t, 2, stored.Version())
			assert.Equal(t, map[string]interface{}{
				"title":  "Printer fixed",
				"status": "closed",
			}, stored.Attributes())
			assert.False(t, stored.UpdatedAt().IsZero())

			_, err = db.Writer().Delete(ctx, first, nil)
			assert.ErrorIs(t, err, occ.ErrStaleObject)
			_, err = db.Writer().Delete(ctx, stored, nil)
			require.NoError(t, err)
			exists, err = db.Exists(ctx, "tickets", key)
			require.NoError(t, err)
			assert.False(t, exists)
		})
	}
}

func TestRetryingWriterReloads(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testDatabase(t, "test-retry", "hashmap", "")

	r, err := db.Insert(ctx, "tickets", "t1", map[string]interface{}{"title": "a", "status": "open"})
	require.NoError(t, err)
	other, err := db.Load(ctx, "tickets", "t1")
	require.NoError(t, err)
	_, err = db.Writer().Update(ctx, other, map[string]interface{}{"title": "b"}, nil)
	require.NoError(t, err)

	res, err := db.RetryingWriter(&occ.RetryOptions{MaxAttempts: 2, Delay: -1}).UpdateFunc(
		ctx, r,
		func(r *record.Record) (map[string]interface{}, error) {
			title, _ := r.Get("title")
			return map[string]interface{}{"title": title.(string) + "c"}, nil //nolint:forcetypeassert
		},
		"status = 'open'",
	)
	require.NoError(t, err)
	assert.True(t, res.Succeeded())
	assert.Equal(t, 2, res.Attempts)
	title, _ := r.Get("title")
	assert.Equal(t, "bc", title)
}

func TestRetryingWriterKeepsConcurrentUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testDatabase(t, "test-retry-fixed", "hashmap", "")

	_, err := db.Insert(ctx, "tickets", "t1", map[string]interface{}{"title": "a", "status": "new"})
	require.NoError(t, err)
	outdated, err := db.Load(ctx, "tickets", "t1")
	require.NoError(t, err)
	other, err := db.Load(ctx, "tickets", "t1")
	require.NoError(t, err)
	_, err = db.Writer().Update(ctx, other, map[string]interface{}{"status": "closed-by-other"}, nil)
	require.NoError(t, err)

	res, err := db.RetryingWriter(&occ.RetryOptions{MaxAttempts: 3, Delay: -1}).Update(
		ctx, outdated, map[string]interface{}{"status": "open"}, nil,
	)
	require.NoError(t, err)
	assert.False(t, res.Succeeded())
	assert.Equal(t, occ.StateExhausted, res.State)
	assert.Equal(t, 3, res.Attempts)
	assert.EqualValues(t, 0, outdated.Version())

	stored, err := db.Load(ctx, "tickets", "t1")
	require.NoError(t, err)
	status, _ := stored.Get("status")
	assert.Equal(t, "closed-by-other", status)
	assert.EqualValues(t, 1, stored.Version())
}

func TestCreator(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testDatabase(t, "test-creator", "hashmap", "")
	_, err := db.RegisterTable(ctx, "notes", "id", "text", "owner")
	require.NoError(t, err)

	_, ok, err := db.Creator(ctx, "notes", "n1")
	require.NoError(t, err)
	assert.False(t, ok, "no creator column yet")

	assert.ErrorIs(t, db.SetCreatorColumn("notes", "missing"), storage.ErrUnknownColumn)
	assert.ErrorIs(t, db.SetCreatorColumn("missing", "owner"), ErrUnknownTable)
	require.NoError(t, db.SetCreatorColumn("notes", "owner"))

	r, err := db.Insert(ctx, "notes", "n1", map[string]interface{}{"text": "hi", "owner": "alice"})
	require.NoError(t, err)
	id, ok, err := db.Creator(ctx, "notes", "n1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "alice", string(id))

	// cached until forgotten
	_, err = db.Writer().Update(ctx, r, map[string]interface{}{"owner": "bob"}, nil)
	require.NoError(t, err)
	id, _, err = db.Creator(ctx, "notes", "n1")
	require.NoError(t, err)
	assert.Equal(t, "alice", string(id))
	db.ForgetCreator("notes", "n1")
	id, _, err = db.Creator(ctx, "notes", "n1")
	require.NoError(t, err)
	assert.Equal(t, "bob", string(id))
}

func TestRegistry(t *testing.T) {
	_, err := Open("x", "hashmap", "")
	assert.Error(t, err)
	_, err = Open("test-invalid", "floppy", "")
	assert.ErrorIs(t, err, ErrInvalidStorageType)

	db, err := Open("test-registry", "hashmap", "")
	require.NoError(t, err)
	_, err = Open("test-registry", "hashmap", "")
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	found, err := Get("test-registry")
	require.NoError(t, err)
	assert.Same(t, db, found)
	assert.Contains(t, Names(), "test-registry")

	_, err = db.RegisterTable(context.Background(), "tickets", "id", "title")
	require.NoError(t, err)

	require.NoError(t, Shutdown())
	_, err = Get("test-registry")
	assert.ErrorIs(t, err, ErrNotRegistered)
	_, err = db.Load(context.Background(), "tickets", "t1")
	assert.True(t, errors.Is(err, ErrShuttingDown))
}

func TestConfiguredColumns(t *testing.T) {
	require.NoError(t, config.SetConfigOption(CfgVersionColumnKey, "lock_version"))
	defer func() {
		require.NoError(t, config.SetConfigOption(CfgVersionColumnKey, nil))
	}()

	db, err := Inject("test-columns", mustHashMap(t))
	require.NoError(t, err)
	defer func() {
		_ = db.Close()
	}()

	table, err := db.RegisterTable(context.Background(), "tickets", "id", "title")
	require.NoError(t, err)
	assert.Equal(t, "lock_version", table.VersionColumn)
	assert.Equal(t, storage.DefaultCreatedColumn, table.CreatedColumn)

	r, err := db.Insert(context.Background(), "tickets", "t1", map[string]interface{}{"title": "a"})
	require.NoError(t, err)
	res, err := db.Writer().Update(context.Background(), r, map[string]interface{}{"title": "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "lock_version = 0", res.Condition)

	assert.Error(t, config.SetConfigOption(CfgVersionColumnKey, "not valid"))
}

func mustHashMap(t *testing.T) storage.Interface {
	t.Helper()

	s, err := storage.StartDatabase("test", "hashmap", "")
	require.NoError(t, err)
	return s
}
