// Package btree implements a persistent, content-addressed B-tree index: a
// balanced tree of resident (in-memory, integer-identified) and persisted
// (storage-backed, content-hash identified) nodes, grown by top-down
// splits, spilled to a pluggable byte store, and read through a lazy range
// iterator that faults nodes back in on demand.
//
// The structural shape generalizes a content-addressed tree over a
// pluggable block store from a hash-fanout Merkle Search Tree to a classic
// split-on-fullness B-tree with an explicit resident/persisted dual
// identity and LRU-style eviction.
package btree

import (
	"context"
	"fmt"

	"github.com/jvillste/argumentica/compare"
	"github.com/jvillste/argumentica/storage"
)

// Tree is a single mutable B-tree handle. It assumes exclusive access by its
// caller for the duration of any operation: there is no internal locking.
type Tree struct {
	cfg *config

	table      map[uint64]*node
	nextNodeID uint64
	rootID     NodeID

	usage *usageClock

	nodeStorage     storage.ByteStorage
	metadataStorage storage.ByteStorage
}

// New creates a tree with a single empty leaf as root.
func New(cmp compare.Comparator, opts ...Option) (*Tree, error) {
	cfg, err := newConfig(cmp, opts...)
	if err != nil {
		return nil, err
	}

	t := &Tree{
		cfg:             cfg,
		table:           make(map[uint64]*node),
		usage:           newUsageClock(),
		nodeStorage:     cfg.nodeStorage,
		metadataStorage: cfg.metadataStorage,
	}
	rootID := t.allocate(&node{})
	t.rootID = rootID
	return t, nil
}

func (t *Tree) allocate(n *node) NodeID {
	id := t.nextNodeID
	t.nextNodeID++
	t.table[id] = n
	t.usage.touch(id)
	return Resident(id)
}

func (t *Tree) residentCount() int { return len(t.table) }

// Add inserts value into the tree, descending toward its leaf and splitting
// nodes along the way as needed. Inserting a value already present (as a
// leaf value or as an internal splitter) is a no-op.
func (t *Tree) Add(ctx context.Context, value any) error {
	rootID, err := t.ensureResident(ctx, nil, t.rootID)
	if err != nil {
		return err
	}
	t.rootID = rootID

	root := t.table[rootID.ResidentID()]
	if t.cfg.full(len(root.values)) {
		if err := t.splitRoot(ctx); err != nil {
			return err
		}
	}

	return t.addToHandle(ctx, value)
}

// addToHandle is the atomic descend-and-split loop over the handle: it
// repeatedly faults in and splits children until it reaches the leaf that
// should hold value.
func (t *Tree) addToHandle(ctx context.Context, value any) error {
	current := t.rootID
	for {
		n := t.table[current.ResidentID()]
		if n.isLeaf() {
			n.values = insertSorted(n.values, value, t.cfg.comparator)
			t.usage.touch(current.ResidentID())
			return nil
		}

		idx, isSplitter := childIndex(n.values, value, t.cfg.comparator)
		if isSplitter {
			return nil
		}

		childID, err := t.ensureResident(ctx, &current, n.children[idx])
		if err != nil {
			return err
		}
		n.children[idx] = childID

		child := t.table[childID.ResidentID()]
		if t.cfg.full(len(child.values)) {
			if err := t.splitChild(ctx, current, childID); err != nil {
				return err
			}
			idx, isSplitter = childIndex(n.values, value, t.cfg.comparator)
			if isSplitter {
				return nil
			}
			childID = n.children[idx]
		}

		current = childID
	}
}

// ensureResident faults in id if it names a storage key, installing the
// decoded node under a fresh resident id and rewriting parentID's child
// pointer (or the root pointer, if parentID is nil) to match. If id is
// already resident it is returned unchanged.
func (t *Tree) ensureResident(ctx context.Context, parentID *NodeID, id NodeID) (NodeID, error) {
	if id.IsResident() {
		return id, nil
	}
	return t.load(ctx, parentID, id)
}

// Get returns (value, true, nil) if value is present in the tree under the
// comparator, or (nil, false, nil) if not.
func (t *Tree) Get(ctx context.Context, value any) (any, bool, error) {
	it := t.InclusiveSubsequence(ctx, value)
	v, ok, err := it.Next(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	if t.cfg.comparator(v, value) == 0 {
		return v, true, nil
	}
	return nil, false, nil
}

func (t *Tree) String() string {
	return fmt.Sprintf("Tree{root=%s, resident=%d}", t.rootID, t.residentCount())
}
