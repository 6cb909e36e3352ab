package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/occbase/database/storage"
)

func testTable(t *testing.T) *storage.Table {
	t.Helper()

	table, err := storage.NewTable("posts", "id", "title", "body", "views")
	require.NoError(t, err)
	return table
}

func testRow() map[string]interface{} {
	return map[string]interface{}{
		"id":         "p1",
		"title":      "Hello",
		"body":       nil,
		"views":      int64(3),
		"created_at": "2024-03-01T11:00:00.5Z",
		"updated_at": nil,
		"version":    int64(4),
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	r, err := Load(testTable(t), testRow())
	require.NoError(t, err)

	assert.Equal(t, "p1", r.Key())
	assert.EqualValues(t, 4, r.Version())
	assert.Equal(t, time.Date(2024, 3, 1, 11, 0, 0, 500000000, time.UTC), r.CreatedAt())
	assert.True(t, r.UpdatedAt().IsZero())
	assert.Equal(t, []string{"body", "title", "views"}, r.Fields())

	title, ok := r.Get("title")
	assert.True(t, ok)
	assert.Equal(t, "Hello", title)
	_, ok = r.Get("version")
	assert.False(t, ok)

	row := testRow()
	delete(row, "id")
	_, err = Load(testTable(t), row)
	assert.ErrorIs(t, err, ErrMissingKey)

	row = testRow()
	row["version"] = "four"
	_, err = Load(testTable(t), row)
	assert.Error(t, err)
}

func TestSet(t *testing.T) {
	t.Parallel()

	r, err := Load(testTable(t), testRow())
	require.NoError(t, err)

	assert.NoError(t, r.Set("title", "World"))
	for _, name := range []string{"id", "version", "updated_at", "missing"} {
		assert.ErrorIs(t, r.Set(name, 1), ErrUnknownField, name)
	}
	assert.EqualValues(t, 4, r.Version())
}

func TestDirty(t *testing.T) {
	t.Parallel()

	r, err := Load(testTable(t), testRow())
	require.NoError(t, err)
	assert.False(t, r.IsDirty())

	// null and empty string are equal
	require.NoError(t, r.Set("body", ""))
	assert.False(t, r.IsDirty())
	assert.False(t, r.IsAttributeDirty("body"))

	// numbers equal their text
	require.NoError(t, r.Set("views", "3"))
	assert.False(t, r.IsDirty())

	require.NoError(t, r.Set("title", "Changed"))
	assert.True(t, r.IsDirty())
	assert.True(t, r.IsAttributeDirty("title"))
	assert.False(t, r.IsAttributeDirty("missing"))
	assert.Equal(t, []string{"title"}, r.DirtyFields())
	assert.Equal(t, map[string]interface{}{"title": "Changed"}, r.Changes())

	// the snapshot is not touched by edits
	require.NoError(t, r.Set("title", "Hello"))
	assert.False(t, r.IsDirty())
}

func TestNewRecordIsNeverDirty(t *testing.T) {
	t.Parallel()

	r := New(testTable(t), "p2")
	require.NoError(t, r.Set("title", "Fresh"))
	assert.False(t, r.IsDirty())
	assert.Empty(t, r.DirtyFields())
	assert.EqualValues(t, 0, r.Version())
}

func TestWritten(t *testing.T) {
	t.Parallel()

	r, err := Load(testTable(t), testRow())
	require.NoError(t, err)
	require.NoError(t, r.Set("title", "Changed"))

	assert.ErrorIs(t, r.Written(6, nil), ErrVersionSkipped)
	assert.ErrorIs(t, r.Written(4, nil), ErrVersionSkipped)
	assert.EqualValues(t, 4, r.Version())

	require.NoError(t, r.Written(5, map[string]interface{}{
		"title":      "Changed",
		"views":      int64(4),
		"version":    int64(5),
		"updated_at": "2024-03-02T08:00:00Z",
	}))
	assert.EqualValues(t, 5, r.Version())
	views, _ := r.Get("views")
	assert.EqualValues(t, 4, views)
	assert.Equal(t, time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), r.UpdatedAt())

	// snapshot stays until the next load
	assert.True(t, r.IsAttributeDirty("title"))

	row := testRow()
	row["title"] = "Changed"
	row["version"] = int64(5)
	require.NoError(t, r.Refresh(row))
	assert.False(t, r.IsDirty())

	row["id"] = "other"
	assert.Error(t, r.Refresh(row))
}

func TestLooseEqual(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b  interface{}
		equal bool
	}{
		{nil, nil, true},
		{nil, "", true},
		{"", nil, true},
		{nil, []byte{}, true},
		{nil, 0, false},
		{nil, "x", false},
		{1, int64(1), true},
		{1, 1.0, true},
		{"1", 1, true},
		{"1.50", 1.5, true},
		{"abc", "abc", true},
		{"abc", []byte("abc"), true},
		{"abc", "abd", false},
		{true, true, true},
		{true, false, false},
		{"a", 1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.equal, looseEqual(tt.a, tt.b), "%#v == %#v", tt.a, tt.b)
	}
}
