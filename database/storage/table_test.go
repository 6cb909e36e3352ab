package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable(t *testing.T) {
	t.Parallel()

	tbl, err := NewTable("posts", "id", "title", "body")
	require.NoError(t, err)

	assert.True(t, tbl.IsDataColumn("title"))
	assert.False(t, tbl.IsDataColumn("version"))
	assert.True(t, tbl.IsWritable("version"))
	assert.False(t, tbl.IsWritable("id"))
	assert.Equal(t, []string{"id", "title", "body", "created_at", "updated_at", "version"}, tbl.AllColumns())

	assert.NoError(t, tbl.CheckFields(map[string]interface{}{"title": "x", "updated_at": "now"}))
	assert.ErrorIs(t, tbl.CheckFields(map[string]interface{}{"id": 1}), ErrUnknownColumn)
	assert.ErrorIs(t, tbl.CheckFields(map[string]interface{}{"author": 1}), ErrUnknownColumn)
}

func TestTableValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTable("posts; drop", "id")
	assert.ErrorIs(t, err, ErrInvalidIdentifier)

	_, err = NewTable("posts", "id", "title", "title")
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	_, err = NewTable("posts", "id", "version")
	assert.ErrorIs(t, err, ErrDuplicateColumn)

	tbl := &Table{
		Name:          "posts",
		PrimaryKey:    "id",
		Columns:       []string{"title"},
		CreatedColumn: "ctime",
		UpdatedColumn: "mtime",
		VersionColumn: "lock_version",
	}
	require.NoError(t, tbl.Validate())
	assert.True(t, tbl.IsWritable("lock_version"))
}
