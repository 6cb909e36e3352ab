package storage

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// A Factory creates a new storage of its type.
type Factory func(name, location string) (Interface, error)

var (
	storages     = make(map[string]Factory)
	storagesLock sync.Mutex
)

// Register registers a new storage type.
func Register(name string, factory Factory) error {
	storagesLock.Lock()
	defer storagesLock.Unlock()

	_, ok := storages[name]
	if ok {
		return errors.New("factory for this type already exists")
	}

	storages[name] = factory
	return nil
}

// StartDatabase starts a new storage of the given type with the given name
// at location.
func StartDatabase(name, storageType, location string) (Interface, error) {
	storagesLock.Lock()
	factory, ok := storages[storageType]
	storagesLock.Unlock()

	if !ok {
		return nil, fmt.Errorf("storage of this type (%s) does not exist", storageType)
	}

	return factory(name, location)
}

// Types returns the names of all registered storage types.
func Types() []string {
	storagesLock.Lock()
	defer storagesLock.Unlock()

	types := make([]string, 0, len(storages))
	for name := range storages {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
