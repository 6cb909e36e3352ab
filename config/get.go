package config

import (
	"sync/atomic"

	"github.com/tevino/abool"

	"github.com/safing/occbase/log"
)

type (
	// StringOption returns the current value of a string option.
	StringOption func() string
	// IntOption returns the current value of an int option.
	IntOption func() int64
)

type cachedValue[T any] struct {
	valid *abool.AtomicBool
	value T
}

// watch returns a getter that caches the value of key and reads it again
// only after the config changed. The getter is safe for concurrent use.
func watch[T any](key string, read func(key string) T) func() T {
	var current atomic.Pointer[cachedValue[T]]
	refresh := func() *cachedValue[T] {
		// take the flag first, so a change during the read is not missed
		c := &cachedValue[T]{valid: getValidityFlag()}
		c.value = read(key)
		current.Store(c)
		return c
	}
	refresh()

	return func() T {
		c := current.Load()
		if !c.valid.IsSet() {
			c = refresh()
		}
		return c.value
	}
}

// GetAsString returns a getter for a string option. The fallback is used
// while the option is not registered.
func GetAsString(key string, fallback string) StringOption {
	return watch(key, func(key string) string {
		if v, ok := lookup(key).(string); ok {
			return v
		}
		return fallback
	})
}

// GetAsInt returns a getter for an int option. The fallback is used while
// the option is not registered.
func GetAsInt(key string, fallback int64) IntOption {
	return watch(key, func(key string) int64 {
		if v, err := toInt64(lookup(key)); err == nil {
			return v
		}
		return fallback
	})
}

func lookup(key string) interface{} {
	option, err := GetOption(key)
	if err != nil {
		log.Debugf("config: request for unregistered option %s", key)
		return nil
	}
	return option.value()
}
