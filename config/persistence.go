package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghodss/yaml"
	"github.com/tidwall/gjson"

	"github.com/safing/occbase/log"
)

// LoadFile reads a JSON or YAML config file and applies its values to the
// user defined config. Nested objects are flattened into option keys, ie.
// {"occ": {"retry": {"maxAttempts": 3}}} sets "occ/retry/maxAttempts".
func LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.YAMLToJSON(data)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrInvalidFile, err)
		}
	}

	newValues, err := JSONToMap(data)
	if err != nil {
		return err
	}

	log.Debugf("config: loaded %d values from %s", len(newValues), path)
	return SetConfig(newValues)
}

// JSONToMap parses and flattens a hierarchical json object.
func JSONToMap(jsonData []byte) (map[string]interface{}, error) {
	if !gjson.ValidBytes(jsonData) {
		return nil, fmt.Errorf("%w: not valid json", ErrInvalidFile)
	}
	root := gjson.ParseBytes(jsonData)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrInvalidFile)
	}

	flat := make(map[string]interface{})
	flatten(flat, root, "")
	return flat, nil
}

func flatten(flat map[string]interface{}, obj gjson.Result, prefix string) {
	obj.ForEach(func(key, value gjson.Result) bool {
		subbedKey := key.String()
		if prefix != "" {
			subbedKey = prefix + "/" + subbedKey
		}

		if value.IsObject() {
			flatten(flat, value, subbedKey)
		} else if prefix != "" {
			// only set if not on root level
			flat[subbedKey] = value.Value()
		}
		return true
	})
}
