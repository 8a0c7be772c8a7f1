// Package storage implements the byte-storage capability the B-tree core
// spills nodes to: put a blob under a string key, fetch it back, and
// enumerate keys. It is deliberately thin: the core dispatches on this
// interface polymorphically and never knows which backend it is talking to,
// and wrappers compose against the interface itself without caring which
// concrete store sits underneath.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	datastore "github.com/ipfs/go-datastore"
	dsq "github.com/ipfs/go-datastore/query"
)

// ErrNotFound is returned by Get when key is absent.
var ErrNotFound = errors.New("storage: key not found")

// ByteStorage is the capability set the core requires of a storage backend.
// Put overwriting the same key with identical bytes is expected to be a
// no-op in practice, since keys are content hashes of those bytes.
type ByteStorage interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Keys(ctx context.Context) ([]string, error)
	Remove(ctx context.Context, key string) error
}

// datastoreBackend adapts any github.com/ipfs/go-datastore Datastore into a
// ByteStorage. Both default backends (in-memory map, one-file-per-key
// directory) are instances of this same adapter over different Datastore
// implementations.
type datastoreBackend struct {
	ds datastore.Datastore
}

func toKey(key string) datastore.Key {
	return datastore.NewKey("/" + key)
}

func fromKey(k string) string {
	return strings.TrimPrefix(k, "/")
}

func (b *datastoreBackend) Put(ctx context.Context, key string, data []byte) error {
	if err := b.ds.Put(ctx, toKey(key), data); err != nil {
		return fmt.Errorf("storage: put %s: %w", key, err)
	}
	return nil
}

func (b *datastoreBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := b.ds.Get(ctx, toKey(key))
	if err != nil {
		if errors.Is(err, datastore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: get %s: %w", key, err)
	}
	return data, nil
}

func (b *datastoreBackend) Remove(ctx context.Context, key string) error {
	if err := b.ds.Delete(ctx, toKey(key)); err != nil {
		return fmt.Errorf("storage: remove %s: %w", key, err)
	}
	return nil
}

func (b *datastoreBackend) Keys(ctx context.Context) ([]string, error) {
	results, err := b.ds.Query(ctx, dsq.Query{KeysOnly: true})
	if err != nil {
		return nil, fmt.Errorf("storage: query keys: %w", err)
	}
	defer results.Close()

	entries, err := results.Rest()
	if err != nil {
		return nil, fmt.Errorf("storage: collect keys: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		keys = append(keys, fromKey(e.Key))
	}
	return keys, nil
}
