package database

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slices"

	"github.com/safing/occbase/database/storage"
	"github.com/safing/occbase/log"
)

var (
	databases     = make(map[string]*Interface)
	databasesLock sync.Mutex

	nameConstraint = regexp.MustCompile("^[A-Za-z0-9_-]{3,}$")
)

// Open starts a storage of the given type at location and registers it
// under name.
func Open(name, storageType, location string) (*Interface, error) {
	if !nameConstraint.MatchString(name) {
		return nil, fmt.Errorf("invalid database name %q: must only contain alphanumeric and `_-` characters and be at least 3 characters long", name)
	}

	databasesLock.Lock()
	defer databasesLock.Unlock()

	if _, ok := databases[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	if !slices.Contains(storage.Types(), storageType) {
		return nil, fmt.Errorf("%w: %q, available: %v", ErrInvalidStorageType, storageType, storage.Types())
	}
	s, err := storage.StartDatabase(name, storageType, location)
	if err != nil {
		return nil, fmt.Errorf("could not start database %s (type %s): %w", name, storageType, err)
	}

	db := NewInterface(name, s)
	databases[name] = db
	log.Infof("database: started %s (type %s)", name, storageType)
	return db, nil
}

// Inject registers an already running storage under name.
func Inject(name string, s storage.Interface) (*Interface, error) {
	databasesLock.Lock()
	defer databasesLock.Unlock()

	if _, ok := databases[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyRegistered, name)
	}

	db := NewInterface(name, s)
	databases[name] = db
	return db, nil
}

// Get returns the database registered under name.
func Get(name string) (*Interface, error) {
	databasesLock.Lock()
	defer databasesLock.Unlock()

	db, ok := databases[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, name)
	}
	return db, nil
}

// Names returns the names of all registered databases.
func Names() []string {
	databasesLock.Lock()
	defer databasesLock.Unlock()

	names := make([]string, 0, len(databases))
	for name := range databases {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown shuts down all registered databases.
func Shutdown() error {
	databasesLock.Lock()
	defer databasesLock.Unlock()

	var result *multierror.Error
	for name, db := range databases {
		if err := db.Close(); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to shut down %s: %w", name, err))
		}
		delete(databases, name)
	}
	return result.ErrorOrNil()
}
