package btree

import "context"

// RangeIter is a lazy, pull-based range iterator: it yields every stored
// value >= its start value, in ascending order, faulting persisted nodes in
// as the consumer crosses leaf boundaries. It holds a reference to the tree
// handle and always re-resolves node state from the handle's table rather
// than caching node pointers across calls, so that a fault triggered by one
// Next call is immediately visible to the next. This is appropriate for a
// single-writer mutable handle rather than a persistent/copy-on-write one.
type RangeIter struct {
	tree  *Tree
	start any

	started bool
	done    bool
	pending []any

	// path is the current cursor: NodeIDs from root to the node the
	// iterator is positioned at (a leaf, or, only during the very first
	// step, an internal node where start matched a splitter exactly).
	path []NodeID

	// pivot identifies the nearest ancestor splitter not yet consumed that
	// separates path's current subtree from the one to its right: the
	// splitter at depth pivotDepth, index pivotIdx within that node's
	// values. pivotFound is false once there is no such splitter (the
	// rightmost edge of the tree has been reached).
	pivotFound bool
	pivotDepth int
	pivotIdx   int
}

// InclusiveSubsequence returns an iterator over every value >= start.
func (t *Tree) InclusiveSubsequence(ctx context.Context, start any) *RangeIter {
	return &RangeIter{tree: t, start: start, pending: []any{}}
}

// Next returns the next value in the sequence, or (nil, false, nil) once
// exhausted.
func (it *RangeIter) Next(ctx context.Context) (any, bool, error) {
	if it.done {
		return nil, false, nil
	}

	if !it.started {
		it.started = true
		if err := it.descendToStart(ctx); err != nil {
			return nil, false, err
		}
	}

	for len(it.pending) == 0 {
		if !it.pivotFound {
			it.done = true
			return nil, false, nil
		}
		if err := it.advance(ctx); err != nil {
			return nil, false, err
		}
	}

	v := it.pending[0]
	it.pending = it.pending[1:]
	return v, true, nil
}

// descendToStart descends from the root using splitter selection, faulting
// nodes in as needed, until either a splitter exactly matches start or a
// leaf is reached.
func (it *RangeIter) descendToStart(ctx context.Context) error {
	start := it.start
	t := it.tree

	var path []NodeID
	current := t.rootID
	for {
		var parentID *NodeID
		if len(path) > 0 {
			p := path[len(path)-1]
			parentID = &p
		}
		resolved, err := t.ensureResident(ctx, parentID, current)
		if err != nil {
			return err
		}
		path = append(path, resolved)

		n := t.table[resolved.ResidentID()]
		if n.isLeaf() {
			tail := valuesAtLeast(n.values, start, t.cfg.comparator)
			it.path = path
			it.pending = tail
			it.setPivotFromPath(path)
			if it.pivotFound {
				it.pending = append(it.pending, t.table[it.path[it.pivotDepth].ResidentID()].values[it.pivotIdx])
			}
			return nil
		}

		idx, isSplitter := childIndex(n.values, start, t.cfg.comparator)
		if isSplitter {
			it.path = path
			it.pivotFound = true
			it.pivotDepth = len(path) - 1
			it.pivotIdx = idx
			it.pending = []any{n.values[idx]}
			return nil
		}
		current = n.children[idx]
	}
}

// setPivotFromPath walks up from the leaf at the end of path until an
// ancestor is found where the child we came from is not the rightmost one;
// the splitter immediately to its right becomes the pivot.
func (it *RangeIter) setPivotFromPath(path []NodeID) {
	t := it.tree
	for d := len(path) - 2; d >= 0; d-- {
		n := t.table[path[d].ResidentID()]
		ci := indexOfChild(n.children, path[d+1])
		if ci < len(n.values) {
			it.pivotFound = true
			it.pivotDepth = d
			it.pivotIdx = ci
			return
		}
	}
	it.pivotFound = false
}

// advance descends from the pivot splitter to the node immediately after
// it and follows its left spine to the next leaf, yielding that leaf's
// values plus its own trailing splitter.
func (it *RangeIter) advance(ctx context.Context) error {
	t := it.tree

	ancestorID := it.path[it.pivotDepth]
	ancestor := t.table[ancestorID.ResidentID()]

	rightChild := ancestor.children[it.pivotIdx+1]
	resolved, err := t.ensureResident(ctx, &ancestorID, rightChild)
	if err != nil {
		return err
	}
	ancestor.children[it.pivotIdx+1] = resolved

	path := append([]NodeID{}, it.path[:it.pivotDepth+1]...)
	path = append(path, resolved)
	current := resolved

	for {
		n := t.table[current.ResidentID()]
		if n.isLeaf() {
			break
		}
		parentID := path[len(path)-1]
		leftChild, err := t.ensureResident(ctx, &parentID, n.children[0])
		if err != nil {
			return err
		}
		n.children[0] = leftChild
		path = append(path, leftChild)
		current = leftChild
	}

	leaf := t.table[current.ResidentID()]
	pending := append([]any{}, leaf.values...)

	it.path = path
	it.setPivotFromPath(path)
	if it.pivotFound {
		pending = append(pending, t.table[it.path[it.pivotDepth].ResidentID()].values[it.pivotIdx])
	}
	it.pending = pending
	return nil
}
