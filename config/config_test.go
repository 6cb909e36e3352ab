package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerTestOptions(t *testing.T) {
	t.Helper()

	require.NoError(t, Register(&Option{
		Name:         "Monkey",
		Key:          "test/monkey",
		OptType:      OptTypeString,
		DefaultValue: "banana",
	}))
	require.NoError(t, Register(&Option{
		Name:            "Elephants",
		Key:             "test/zoo/elephants",
		OptType:         OptTypeInt,
		DefaultValue:    2,
		ValidationRegex: "^[0-9]+$",
	}))
	require.NoError(t, Register(&Option{
		Name:            "Keeper",
		Key:             "test/zoo/keeper",
		OptType:         OptTypeString,
		DefaultValue:    "anna",
		ValidationRegex: "^[a-z]+$",
	}))
}

func TestGet(t *testing.T) {
	registerTestOptions(t)

	monkey := GetAsString("test/monkey", "none")
	elephants := GetAsInt("test/zoo/elephants", -1)
	missing := GetAsInt("test/missing", 7)

	assert.Equal(t, "banana", monkey())
	assert.Equal(t, int64(2), elephants())
	assert.Equal(t, int64(7), missing())

	require.NoError(t, SetConfigOption("test/monkey", "coconut"))
	require.NoError(t, SetConfigOption("test/zoo/elephants", uint8(5)))
	assert.Equal(t, "coconut", monkey())
	assert.Equal(t, int64(5), elephants())

	// reset to default
	require.NoError(t, SetConfigOption("test/monkey", nil))
	assert.Equal(t, "banana", monkey())
}

func TestGetConcurrently(t *testing.T) {
	registerTestOptions(t)

	elephants := GetAsInt("test/zoo/elephants", -1)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if i == 0 {
					_ = SetConfigOption("test/zoo/elephants", j)
				}
				assert.GreaterOrEqual(t, elephants(), int64(0))
			}
		}(i)
	}
	wg.Wait()

	require.NoError(t, SetConfigOption("test/zoo/elephants", 3))
	assert.Equal(t, int64(3), elephants())
}

func TestValidation(t *testing.T) {
	registerTestOptions(t)

	var optErr *OptionError
	err := SetConfigOption("test/zoo/elephants", "many")
	require.ErrorAs(t, err, &optErr)
	assert.Equal(t, "test/zoo/elephants", optErr.Key)
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = SetConfigOption("test/zoo/elephants", -3)
	assert.ErrorIs(t, err, ErrInvalidValue, "regex should reject negative numbers")
	err = SetConfigOption("test/zoo/elephants", 2.5)
	assert.ErrorIs(t, err, ErrInvalidValue)
	err = SetConfigOption("test/zoo/elephants", uint64(1<<63))
	assert.ErrorIs(t, err, ErrInvalidValue)
	err = SetConfigOption("test/zoo/keeper", "Bob")
	assert.ErrorIs(t, err, ErrInvalidValue)

	err = SetConfigOption("test/unknown", 1)
	assert.ErrorIs(t, err, ErrUnknownOption)

	err = Register(&Option{Name: "Bad", Key: "nocategory", OptType: OptTypeInt})
	assert.ErrorIs(t, err, ErrInvalidOption)
	err = Register(&Option{Name: "Bad", Key: "test/bad", OptType: OptTypeInt, DefaultValue: "x"})
	assert.ErrorIs(t, err, ErrInvalidOption)
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestLoadFile(t *testing.T) {
	registerTestOptions(t)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"test": {"monkey": "mango", "zoo": {"elephants": 9}}}`), 0o600))
	require.NoError(t, LoadFile(jsonPath))
	assert.Equal(t, "mango", GetAsString("test/monkey", "")())
	assert.Equal(t, int64(9), GetAsInt("test/zoo/elephants", 0)())

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("test:\n  zoo:\n    elephants: 4\n    keeper: tom\n"), 0o600))
	require.NoError(t, LoadFile(yamlPath))
	assert.Equal(t, "tom", GetAsString("test/zoo/keeper", "")())
	assert.Equal(t, int64(4), GetAsInt("test/zoo/elephants", 0)())

	// valid values are applied, all failures are reported
	badPath := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(badPath, []byte(`{"test": {"monkey": "kiwi", "unknown": 1, "zoo": {"elephants": -1}}}`), 0o600))
	err := LoadFile(badPath)
	assert.ErrorIs(t, err, ErrUnknownOption)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.Equal(t, "kiwi", GetAsString("test/monkey", "")())

	_, err = JSONToMap([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrInvalidFile)
}
