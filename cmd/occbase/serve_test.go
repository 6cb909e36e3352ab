package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safing/occbase/database/storage"
)

func TestParseTableDef(t *testing.T) {
	t.Parallel()

	name, pk, columns, err := parseTableDef("tickets:id:title, status,")
	require.NoError(t, err)
	assert.Equal(t, "tickets", name)
	assert.Equal(t, "id", pk)
	assert.Equal(t, []string{"title", "status"}, columns)

	_, _, _, err = parseTableDef("tickets:id")
	assert.Error(t, err)
}

func TestParseCreatorDef(t *testing.T) {
	t.Parallel()

	table, column, err := parseCreatorDef("notes:owner")
	require.NoError(t, err)
	assert.Equal(t, "notes", table)
	assert.Equal(t, "owner", column)

	for _, def := range []string{"notes", "notes:", ":owner"} {
		_, _, err = parseCreatorDef(def)
		assert.Error(t, err, def)
	}
}

func TestStorageTypes(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"badger", "bbolt", "hashmap", "sinkhole", "sqlite"}, storage.Types())
}
