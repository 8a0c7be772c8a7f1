package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// cached wraps a ByteStorage with a bounded, in-process read cache: Get
// checks the cache before the base store, and Put/Get both populate it.
// Writes are allowed through to base rather than rejected, since node
// storage here is written to directly (by unload), not only warmed from
// elsewhere.
type cached struct {
	base  ByteStorage
	cache *lru.Cache[string, []byte]
}

// NewCached wraps base with an LRU read cache of the given size. Content
// hashes are immutable storage keys, so a cache entry never needs
// invalidation beyond the ordinary LRU eviction policy.
func NewCached(base ByteStorage, size int) (ByteStorage, error) {
	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("storage: create cache: %w", err)
	}
	return &cached{base: base, cache: cache}, nil
}

func (c *cached) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}

	data, err := c.base.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return data, nil
}

func (c *cached) Put(ctx context.Context, key string, data []byte) error {
	if err := c.base.Put(ctx, key, data); err != nil {
		return err
	}
	c.cache.Add(key, data)
	return nil
}

func (c *cached) Remove(ctx context.Context, key string) error {
	c.cache.Remove(key)
	return c.base.Remove(ctx, key)
}

func (c *cached) Keys(ctx context.Context) ([]string, error) {
	return c.base.Keys(ctx)
}
