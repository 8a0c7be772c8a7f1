package btree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jvillste/argumentica/storage"
)

// rootsKey is the well-known metadata key under which every named root
// snapshot is recorded.
const rootsKey = ":roots"

// RootSnapshot is a named commit of the tree: a content-hash root, the time
// it was stored, and caller-supplied metadata.
type RootSnapshot struct {
	StorageKey      string `json:"storage_key"`
	StoredTimeNanos int64  `json:"stored_time"`
	UserMetadata    any    `json:"metadata"`
}

// StoreRoot evicts every resident node, then appends a new root snapshot
// recording the fully-persisted root.
func (t *Tree) StoreRoot(ctx context.Context, nowNanos int64, userMetadata any) (RootSnapshot, error) {
	if err := t.UnloadTree(ctx); err != nil {
		return RootSnapshot{}, err
	}
	if !t.rootID.IsPersisted() {
		return RootSnapshot{}, invariantf("store_root: root %s is not persisted after unload_tree", t.rootID)
	}

	snapshot := RootSnapshot{
		StorageKey:      t.rootID.StorageKey(),
		StoredTimeNanos: nowNanos,
		UserMetadata:    userMetadata,
	}

	roots, err := t.Roots(ctx)
	if err != nil {
		return RootSnapshot{}, err
	}
	roots = append(roots, snapshot)

	data, err := json.Marshal(roots)
	if err != nil {
		return RootSnapshot{}, fmt.Errorf("btree: marshal roots: %w", err)
	}
	if err := t.metadataStorage.Put(ctx, rootsKey, data); err != nil {
		return RootSnapshot{}, fmt.Errorf("btree: write roots: %w", err)
	}

	return snapshot, nil
}

// Roots reads the full set of named root snapshots.
func (t *Tree) Roots(ctx context.Context) ([]RootSnapshot, error) {
	data, err := t.metadataStorage.Get(ctx, rootsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("btree: read roots: %w", err)
	}

	var roots []RootSnapshot
	if err := json.Unmarshal(data, &roots); err != nil {
		return nil, fmt.Errorf("btree: unmarshal roots: %w", err)
	}
	return roots, nil
}

// LatestRoot returns the root snapshot with the greatest StoredTimeNanos.
func (t *Tree) LatestRoot(ctx context.Context) (RootSnapshot, bool, error) {
	roots, err := t.Roots(ctx)
	if err != nil {
		return RootSnapshot{}, false, err
	}
	if len(roots) == 0 {
		return RootSnapshot{}, false, nil
	}
	latest := roots[0]
	for _, r := range roots[1:] {
		if r.StoredTimeNanos > latest.StoredTimeNanos {
			latest = r
		}
	}
	return latest, true, nil
}

// metadataCacheSize bounds the decoded-metadata cache used by the
// reachability walk below.
const metadataCacheSize = 4096

// readMetadata fetches and decodes the metadata entry for a storage key,
// through an LRU cache. The cache lives for a single liveKeys walk, so a
// node shared by several roots is fetched and parsed once per walk; each
// UnusedStorageKeys call starts with an empty cache.
func (t *Tree) readMetadata(ctx context.Context, cache *lru.Cache[string, metaEntry], key string) (metaEntry, error) {
	if m, ok := cache.Get(key); ok {
		return m, nil
	}

	data, err := t.metadataStorage.Get(ctx, key)
	if err != nil {
		return metaEntry{}, fmt.Errorf("btree: read metadata %s: %w", key, err)
	}
	var m metaEntry
	if err := json.Unmarshal(data, &m); err != nil {
		return metaEntry{}, fmt.Errorf("btree: unmarshal metadata %s: %w", key, err)
	}
	cache.Add(key, m)
	return m, nil
}

// liveKeys computes the transitive closure of storage keys reachable from
// every stored root snapshot, walking metadata child_ids only: it never
// decompresses a node's value payload.
func (t *Tree) liveKeys(ctx context.Context) (map[string]struct{}, error) {
	roots, err := t.Roots(ctx)
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, metaEntry](metadataCacheSize)
	if err != nil {
		return nil, fmt.Errorf("btree: create metadata cache: %w", err)
	}

	live := make(map[string]struct{})
	var walk func(key string) error
	walk = func(key string) error {
		if _, seen := live[key]; seen {
			return nil
		}
		live[key] = struct{}{}

		m, err := t.readMetadata(ctx, cache, key)
		if err != nil {
			return err
		}
		for _, child := range m.ChildIDs {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range roots {
		if err := walk(r.StorageKey); err != nil {
			return nil, err
		}
	}
	return live, nil
}

// UnusedStorageKeys returns the set difference between keys present in node
// storage and the live set reachable from every stored root. GC is never
// forced by the core; this only exposes the candidate set.
func (t *Tree) UnusedStorageKeys(ctx context.Context) ([]string, error) {
	live, err := t.liveKeys(ctx)
	if err != nil {
		return nil, err
	}

	present, err := t.nodeStorage.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("btree: list node storage keys: %w", err)
	}

	var unused []string
	for _, k := range present {
		if _, ok := live[k]; !ok {
			unused = append(unused, k)
		}
	}
	return unused, nil
}
