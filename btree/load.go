package btree

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jvillste/argumentica/codec"
	"github.com/jvillste/argumentica/storage"
)

// metaEntry is the per-node metadata sidecar: enough to walk and size the
// tree without decompressing value payloads.
type metaEntry struct {
	ChildIDs         []string `json:"child_ids,omitempty"`
	ValueCount       int      `json:"value_count"`
	StorageByteCount int      `json:"storage_byte_count"`
}

// load fetches a persisted node's bytes, decodes them, installs the result
// under a fresh resident id, and rewrites whichever pointer referred to it
// (parentID's child list, or the root pointer if parentID is nil) from the
// storage key to the new id.
func (t *Tree) load(ctx context.Context, parentID *NodeID, id NodeID) (NodeID, error) {
	key := id.StorageKey()

	data, err := t.nodeStorage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return NodeID{}, fmt.Errorf("%w: node storage key %s", ErrNotFound, key)
		}
		return NodeID{}, fmt.Errorf("btree: load %s: %w", key, err)
	}

	payload, err := codec.Decode(key, data)
	if err != nil {
		return NodeID{}, fmt.Errorf("btree: decode node %s: %w", key, err)
	}

	values := make([]any, len(payload.Values))
	copy(values, payload.Values)
	for i := 1; i < len(values); i++ {
		for j := i; j > 0 && t.cfg.comparator(values[j-1], values[j]) > 0; j-- {
			values[j-1], values[j] = values[j], values[j-1]
		}
	}

	var children []NodeID
	if payload.ChildIDs != nil {
		children = make([]NodeID, len(payload.ChildIDs))
		for i, k := range payload.ChildIDs {
			children[i] = Persisted(k)
		}
	}

	newID := t.allocate(&node{values: values, children: children})

	if parentID == nil {
		t.rootID = newID
	} else {
		parent := t.table[parentID.ResidentID()]
		ci := indexOfChild(parent.children, id)
		if ci < 0 {
			return NodeID{}, invariantf("load: storage key %s not found among parent %s children", key, *parentID)
		}
		parent.children[ci] = newID
	}

	return newID, nil
}

// unload evicts the node at the end of cursor. The node must be a leaf or
// have no resident children; UnloadExcess always passes such a node (via
// leastUsedCursor), so eviction proceeds bottom-up automatically.
func (t *Tree) unload(ctx context.Context, cursor []NodeID) error {
	id := cursor[len(cursor)-1]
	n := t.table[id.ResidentID()]

	for _, c := range n.children {
		if c.IsResident() {
			return invariantf("unload: node %s still has resident child %s", id, c)
		}
	}

	childIDs := make([]string, len(n.children))
	for i, c := range n.children {
		childIDs[i] = c.StorageKey()
	}

	data, err := codec.Encode(codec.Payload{Values: n.values, ChildIDs: nilIfEmpty(childIDs)})
	if err != nil {
		return fmt.Errorf("btree: encode node %s: %w", id, err)
	}
	key := codec.Hash(data)

	if err := t.nodeStorage.Put(ctx, key, data); err != nil {
		return fmt.Errorf("btree: write node bytes %s: %w", key, err)
	}

	meta := metaEntry{
		ChildIDs:         nilIfEmpty(childIDs),
		ValueCount:       len(n.values),
		StorageByteCount: len(data),
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("btree: marshal metadata for %s: %w", key, err)
	}
	if err := t.metadataStorage.Put(ctx, key, metaBytes); err != nil {
		return fmt.Errorf("btree: write metadata %s: %w", key, err)
	}

	persisted := Persisted(key)
	if len(cursor) == 1 {
		t.rootID = persisted
	} else {
		parentID := cursor[len(cursor)-2]
		parent := t.table[parentID.ResidentID()]
		ci := indexOfChild(parent.children, id)
		if ci < 0 {
			return invariantf("unload: node %s not found among parent %s children", id, parentID)
		}
		parent.children[ci] = persisted
	}

	delete(t.table, id.ResidentID())
	t.usage.forget(id.ResidentID())
	return nil
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// leastUsedCursor starts at the root and descends by repeatedly picking the
// resident child with the smallest usage priority, stopping at a leaf or at
// a node with no resident children (that node is immediately unloadable,
// since its children are already on disk).
func (t *Tree) leastUsedCursor() []NodeID {
	cursor := []NodeID{t.rootID}
	for {
		n := t.table[cursor[len(cursor)-1].ResidentID()]
		bestIdx := -1
		var bestPriority uint64
		for i, c := range n.children {
			if !c.IsResident() {
				continue
			}
			p := t.usage.priorityOf(c.ResidentID())
			if bestIdx == -1 || p < bestPriority {
				bestIdx, bestPriority = i, p
			}
		}
		if bestIdx == -1 {
			return cursor
		}
		cursor = append(cursor, n.children[bestIdx])
	}
}

// UnloadExcess evicts least-used nodes, bottom-up, until at most
// maxResident nodes remain resident.
func (t *Tree) UnloadExcess(ctx context.Context, maxResident int) error {
	for t.residentCount() > maxResident {
		cursor := t.leastUsedCursor()
		if err := t.unload(ctx, cursor); err != nil {
			return err
		}
	}
	return nil
}

// UnloadTree is UnloadExcess(ctx, 0).
func (t *Tree) UnloadTree(ctx context.Context) error {
	return t.UnloadExcess(ctx, 0)
}
