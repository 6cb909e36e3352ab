package config

import (
	"fmt"
	"regexp"
	"sync"
)

var (
	optionsLock sync.RWMutex
	options     = make(map[string]*Option)

	keyFormat = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*(/[a-zA-Z0-9][a-zA-Z0-9_-]*)+$`)
)

// Register registers a new configuration option. Registering an option with
// an existing key replaces the previous registration.
func Register(option *Option) error {
	if option.Name == "" {
		return definitionError(option.Key, "missing name", nil)
	}
	if !keyFormat.MatchString(option.Key) {
		return definitionError(option.Key, "key must look like category/name", nil)
	}
	if getTypeName(option.OptType) == "unknown" {
		return definitionError(option.Key, fmt.Sprintf("unsupported option type %d", option.OptType), nil)
	}

	if option.ValidationRegex != "" {
		var err error
		option.compiledRegex, err = regexp.Compile(option.ValidationRegex)
		if err != nil {
			return definitionError(option.Key, "validation regex does not compile", err)
		}
	}

	if option.DefaultValue != nil {
		def, err := normalize(option, option.DefaultValue)
		if err != nil {
			return definitionError(option.Key, "invalid default value", err)
		}
		option.DefaultValue = def
	}

	optionsLock.Lock()
	options[option.Key] = option
	optionsLock.Unlock()

	signalChanges()
	return nil
}

// GetOption returns the option with the given key.
func GetOption(key string) (*Option, error) {
	optionsLock.RLock()
	defer optionsLock.RUnlock()

	option, ok := options[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	return option, nil
}
