package creator

import (
	"context"
	"fmt"
	"time"

	"github.com/bluele/gcache"
)

type cacheEntry struct {
	id UserID
	ok bool
}

type cacheKey struct {
	key interface{}
}

// Cache caches the results of any Resolvable, including rows without a
// creator.
type Cache struct {
	Resolvable

	cache gcache.Cache
}

// NewCache wraps resolver with an LRU cache of the given size and TTL.
func NewCache(resolver Resolvable, size int, ttl time.Duration) *Cache {
	c := &Cache{
		Resolvable: resolver,
	}
	c.cache = gcache.New(size).
		LRU().
		Expiration(ttl).
		Build()
	return c
}

// CreatorUserID returns the cached creator or resolves it.
func (c *Cache) CreatorUserID(ctx context.Context, key interface{}) (UserID, bool, error) {
	k := cacheKey{key: fmt.Sprint(key)}

	if cached, err := c.cache.Get(k); err == nil {
		entry := cached.(cacheEntry) //nolint:forcetypeassert
		return entry.id, entry.ok, nil
	}

	id, ok, err := c.Resolvable.CreatorUserID(ctx, key)
	if err != nil {
		return "", false, err
	}
	_ = c.cache.Set(k, cacheEntry{id: id, ok: ok})
	return id, ok, nil
}

// Forget removes the cached creator of a row.
func (c *Cache) Forget(key interface{}) {
	c.cache.Remove(cacheKey{key: fmt.Sprint(key)})
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return c.cache.Len(false)
}
