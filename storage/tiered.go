package storage

import (
	"context"
	"errors"
)

// tiered reads from fresh first and falls back to base on a miss, writing
// only to fresh: a caller can prefer recently-written blocks over an
// archival base store while still being able to write. The core expects
// every ByteStorage it is handed to accept Put, so "read-through" here
// means "prefer fresh on read," not "read-only."
type tiered struct {
	fresh ByteStorage
	base  ByteStorage
}

// NewTiered returns a ByteStorage that checks fresh before falling back to
// base on Get, and writes new data to fresh only.
func NewTiered(fresh, base ByteStorage) ByteStorage {
	return &tiered{fresh: fresh, base: base}
}

func (t *tiered) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := t.fresh.Get(ctx, key)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return t.base.Get(ctx, key)
}

func (t *tiered) Put(ctx context.Context, key string, data []byte) error {
	return t.fresh.Put(ctx, key, data)
}

func (t *tiered) Remove(ctx context.Context, key string) error {
	return t.fresh.Remove(ctx, key)
}

func (t *tiered) Keys(ctx context.Context) ([]string, error) {
	freshKeys, err := t.fresh.Keys(ctx)
	if err != nil {
		return nil, err
	}
	baseKeys, err := t.base.Keys(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(freshKeys))
	out := make([]string, 0, len(freshKeys)+len(baseKeys))
	for _, k := range freshKeys {
		seen[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range baseKeys {
		if _, ok := seen[k]; !ok {
			out = append(out, k)
		}
	}
	return out, nil
}
