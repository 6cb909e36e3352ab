package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/tevino/abool"

	"github.com/safing/occbase/database/creator"
	"github.com/safing/occbase/database/occ"
	"github.com/safing/occbase/database/record"
	"github.com/safing/occbase/database/storage"
)

// Interface provides access to the tables of one storage.
type Interface struct {
	name    string
	storage storage.Interface
	writer  *occ.Writer

	tables     map[string]*storage.Table
	creators   map[string]*creator.Cache
	tablesLock sync.RWMutex

	shuttingDown *abool.AtomicBool
}

// NewInterface returns a new Interface to the given storage. It is not
// registered, see Open and Inject.
func NewInterface(name string, s storage.Interface) *Interface {
	return &Interface{
		name:         name,
		storage:      s,
		writer:       occ.NewWriter(s),
		tables:       make(map[string]*storage.Table),
		creators:     make(map[string]*creator.Cache),
		shuttingDown: abool.New(),
	}
}

// Creator lookup cache settings.
const (
	creatorCacheSize = 1000
	creatorCacheTTL  = 10 * time.Minute
)

// NewKey returns a new random primary key.
func NewKey() string {
	return uuid.Must(uuid.NewV4()).String()
}

// Name returns the name of the database.
func (i *Interface) Name() string {
	return i.name
}

// Storage returns the underlying storage.
func (i *Interface) Storage() storage.Interface {
	return i.storage
}

// RegisterTable registers and creates a table with the configured names of
// the bookkeeping columns.
func (i *Interface) RegisterTable(ctx context.Context, name, primaryKey string, columns ...string) (*storage.Table, error) {
	t := &storage.Table{
		Name:          name,
		PrimaryKey:    primaryKey,
		Columns:       columns,
		CreatedColumn: cfgCreatedColumn(),
		UpdatedColumn: cfgUpdatedColumn(),
		VersionColumn: cfgVersionColumn(),
	}
	if err := i.AddTable(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// AddTable registers and creates the given table.
func (i *Interface) AddTable(ctx context.Context, t *storage.Table) error {
	if i.shuttingDown.IsSet() {
		return ErrShuttingDown
	}
	if err := t.Validate(); err != nil {
		return err
	}
	if err := i.storage.EnsureTable(ctx, t); err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}

	i.tablesLock.Lock()
	defer i.tablesLock.Unlock()
	i.tables[t.Name] = t
	return nil
}

// Table returns the registered table with the given name.
func (i *Interface) Table(name string) (*storage.Table, error) {
	i.tablesLock.RLock()
	defer i.tablesLock.RUnlock()

	t, ok := i.tables[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	return t, nil
}

// SetCreatorColumn declares that the given data column of table holds the
// user that created a row. Lookups are cached.
func (i *Interface) SetCreatorColumn(table, column string) error {
	t, err := i.Table(table)
	if err != nil {
		return err
	}
	resolver, err := creator.NewColumnResolver(i.storage, t, column)
	if err != nil {
		return err
	}

	i.tablesLock.Lock()
	defer i.tablesLock.Unlock()
	i.creators[table] = creator.NewCache(resolver, creatorCacheSize, creatorCacheTTL)
	return nil
}

// Creator returns the user that created the row. It returns false if the
// table has no creator column or the row has no creator.
func (i *Interface) Creator(ctx context.Context, table string, key interface{}) (creator.UserID, bool, error) {
	i.tablesLock.RLock()
	resolver, ok := i.creators[table]
	i.tablesLock.RUnlock()
	if !ok {
		return "", false, nil
	}
	return resolver.CreatorUserID(ctx, key)
}

// ForgetCreator drops the cached creator of a row after it was changed or
// deleted.
func (i *Interface) ForgetCreator(table string, key interface{}) {
	i.tablesLock.RLock()
	resolver, ok := i.creators[table]
	i.tablesLock.RUnlock()
	if ok {
		resolver.Forget(key)
	}
}

// Insert creates a new row and returns it as loaded record.
func (i *Interface) Insert(ctx context.Context, table string, key interface{}, fields map[string]interface{}) (*record.Record, error) {
	if i.shuttingDown.IsSet() {
		return nil, ErrShuttingDown
	}
	t, err := i.Table(table)
	if err != nil {
		return nil, err
	}
	for name := range fields {
		if !t.IsDataColumn(name) {
			return nil, fmt.Errorf("%w: %q in table %s", storage.ErrUnknownColumn, name, t.Name)
		}
	}

	if err := i.storage.Insert(ctx, t, key, fields); err != nil {
		return nil, err
	}
	return i.Load(ctx, table, key)
}

// Load loads the row with the given primary key.
func (i *Interface) Load(ctx context.Context, table string, key interface{}) (*record.Record, error) {
	if i.shuttingDown.IsSet() {
		return nil, ErrShuttingDown
	}
	t, err := i.Table(table)
	if err != nil {
		return nil, err
	}

	row, err := i.storage.Get(ctx, t, key)
	if err != nil {
		return nil, err
	}
	return record.Load(t, row)
}

// Reload replaces the state of the record with the stored row and captures a
// new snapshot.
func (i *Interface) Reload(ctx context.Context, r *record.Record) error {
	if i.shuttingDown.IsSet() {
		return ErrShuttingDown
	}

	row, err := i.storage.Get(ctx, r.Table(), r.Key())
	if err != nil {
		return err
	}
	return r.Refresh(row)
}

// Exists returns whether a row with the given primary key exists.
func (i *Interface) Exists(ctx context.Context, table string, key interface{}) (bool, error) {
	if i.shuttingDown.IsSet() {
		return false, ErrShuttingDown
	}
	t, err := i.Table(table)
	if err != nil {
		return false, err
	}
	return i.storage.Exists(ctx, t, key)
}

// Writer returns the conditional writer of the database.
func (i *Interface) Writer() *occ.Writer {
	return i.writer
}

// RetryingWriter returns a retrying writer. If opts has no Refresh function,
// UpdateFunc reloads records from the database before every retry. Update
// never reloads.
func (i *Interface) RetryingWriter(opts *occ.RetryOptions) *occ.RetryingWriter {
	var o occ.RetryOptions
	if opts != nil {
		o = *opts
	}
	if o.Refresh == nil {
		o.Refresh = i.Reload
	}
	return occ.NewRetryingWriter(i.writer, &o)
}

// Close shuts down the storage.
func (i *Interface) Close() error {
	if !i.shuttingDown.SetToIf(false, true) {
		return nil
	}
	return i.storage.Shutdown()
}
