package config

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"
)

var (
	validityFlag     = abool.NewBool(true)
	validityFlagLock sync.RWMutex
)

// getValidityFlag returns the flag of the current config state. It is unset
// with the next change and must only be read.
func getValidityFlag() *abool.AtomicBool {
	validityFlagLock.RLock()
	defer validityFlagLock.RUnlock()
	return validityFlag
}

// signalChanges invalidates all cached option values.
func signalChanges() {
	validityFlagLock.Lock()
	defer validityFlagLock.Unlock()

	validityFlag.UnSet()
	validityFlag = abool.NewBool(true)
}

// SetConfigOption sets the user value of an option. A nil value resets the
// option to its default.
func SetConfigOption(key string, value interface{}) error {
	if err := setValue(key, value); err != nil {
		return err
	}
	signalChanges()
	return nil
}

// SetConfig sets all given user values. Values that cannot be set are
// skipped and their errors are returned together.
func SetConfig(newValues map[string]interface{}) error {
	var result *multierror.Error
	for key, value := range newValues {
		if err := setValue(key, value); err != nil {
			result = multierror.Append(result, err)
		}
	}
	signalChanges()
	return result.ErrorOrNil()
}

func setValue(key string, value interface{}) error {
	option, err := GetOption(key)
	if err != nil {
		return err
	}

	var normalized interface{}
	if value != nil {
		normalized, err = normalize(option, value)
		if err != nil {
			return err
		}
	}

	option.Lock()
	option.activeValue = normalized
	option.Unlock()
	return nil
}
