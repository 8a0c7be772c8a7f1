package btree

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jvillste/argumentica/compare"
)

func newIntTree(t *testing.T, opts ...Option) *Tree {
	t.Helper()
	tr, err := New(compare.Natural, opts...)
	require.NoError(t, err)
	return tr
}

func collect(t *testing.T, tr *Tree, start any) []any {
	t.Helper()
	ctx := context.Background()
	it := tr.InclusiveSubsequence(ctx, start)
	var out []any
	for {
		v, ok, err := it.Next(ctx)
		require.NoError(t, err)
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}

func addAll(t *testing.T, tr *Tree, values ...int) {
	t.Helper()
	ctx := context.Background()
	for _, v := range values {
		require.NoError(t, tr.Add(ctx, v))
	}
}

func TestAddAndIterateSmallSet(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 3, 1, 4, 1, 5, 9, 2, 6)

	got := collect(t, tr, 0)
	require.Equal(t, []any{1, 2, 3, 4, 5, 6, 9}, got)
}

func TestAddDuplicateIsNoOp(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3)

	before := collect(t, tr, 0)
	addAll(t, tr, 2)
	after := collect(t, tr, 0)

	require.Equal(t, before, after)
}

// TestRootSplitsOnFullness inserts [1,2,3,4,5] under full-at-3. The root
// becomes full (3 values) processing the insert of 3 itself, but the
// preemptive fullness check in Add only fires at the start of the *next*
// call, so the actual split happens while processing the insert of 4,
// against a root still holding [1,2,3]. That gives median index 3/2=1,
// i.e. splitter 2 (see DESIGN.md's "worked example" note for why this
// differs from a naively-read splitter value of 3).
func TestRootSplitsOnFullness(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3, 4, 5)

	root := tr.table[tr.rootID.ResidentID()]
	require.False(t, root.isLeaf())
	require.Equal(t, []any{2}, root.values)
	require.Len(t, root.children, 2)

	left := tr.table[root.children[0].ResidentID()]
	right := tr.table[root.children[1].ResidentID()]
	require.Equal(t, []any{1}, left.values)
	require.Equal(t, []any{3, 4, 5}, right.values)

	require.Equal(t, []any{1, 2, 3, 4, 5}, collect(t, tr, 0))
}

// TestInsertIntoEmptyTreeProducesOneLeafWithOneValue checks that inserting
// into an empty tree produces a single leaf holding exactly that one value.
func TestInsertIntoEmptyTreeProducesOneLeafWithOneValue(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	require.NoError(t, tr.Add(context.Background(), 42))

	root := tr.table[tr.rootID.ResidentID()]
	require.True(t, root.isLeaf())
	require.Equal(t, []any{42}, root.values)

	require.Equal(t, []any{42}, collect(t, tr, 0))
}

// TestRangeIterationStartingAtSplitterIncludesIt checks that starting a
// range at a value that is itself an internal splitter returns a sequence
// beginning with that splitter.
func TestRangeIterationStartingAtSplitterIncludesIt(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3, 4, 5)

	root := tr.table[tr.rootID.ResidentID()]
	require.False(t, root.isLeaf())
	splitter := root.values[0]
	require.Equal(t, 2, splitter)

	got := collect(t, tr, splitter)
	require.Equal(t, []any{2, 3, 4, 5}, got)
}

func TestInclusiveSubsequenceStartsMidSequence(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3, 4, 5, 6, 7, 8, 9)

	got := collect(t, tr, 5)
	require.Equal(t, []any{5, 6, 7, 8, 9}, got)
}

func TestInclusiveSubsequenceStartBetweenValues(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 4, 5, 7, 8)

	got := collect(t, tr, 3)
	require.Equal(t, []any{4, 5, 7, 8}, got)
}

func TestInclusiveSubsequencePastEndIsEmpty(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3)

	got := collect(t, tr, 100)
	require.Empty(t, got)
}

func TestGetFindsAndMisses(t *testing.T) {
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3, 4, 5)

	v, ok, err := tr.Get(context.Background(), 3)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, v)

	_, ok, err = tr.Get(context.Background(), 42)
	require.NoError(t, err)
	require.False(t, ok)
}

// TestUnloadExcessExactCountOnASpine inserts [0..9] under full-at-3 and
// checks that unload_excess(3) leaves exactly 3 resident nodes forming a
// single root-to-leaf spine, and that every evicted node's bytes are
// retrievable under the key its former parent now holds.
func TestUnloadExcessExactCountOnASpine(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Add(ctx, i))
	}

	require.NoError(t, tr.UnloadExcess(ctx, 3))
	require.Equal(t, 3, tr.residentCount())

	cursor := []NodeID{tr.rootID}
	for {
		n := tr.table[cursor[len(cursor)-1].ResidentID()]
		residentChildren := 0
		var nextChild NodeID
		for _, c := range n.children {
			if c.IsResident() {
				residentChildren++
				nextChild = c
			}
		}
		require.LessOrEqual(t, residentChildren, 1, "resident nodes must form a single spine")
		if residentChildren == 0 {
			break
		}
		cursor = append(cursor, nextChild)
	}
	require.Len(t, cursor, 3)

	for _, id := range cursor {
		n := tr.table[id.ResidentID()]
		for _, c := range n.children {
			if c.IsPersisted() {
				_, err := tr.nodeStorage.Get(ctx, c.StorageKey())
				require.NoError(t, err)
			}
		}
	}

	got := collect(t, tr, 0)
	expected := make([]any, 10)
	for i := range expected {
		expected[i] = i
	}
	require.Equal(t, expected, got)
}

func TestUnloadExcessKeepsTreeReadable(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Add(ctx, i))
	}

	require.NoError(t, tr.UnloadExcess(ctx, 3))
	require.LessOrEqual(t, tr.residentCount(), 3)

	got := collect(t, tr, 0)
	expected := make([]any, 20)
	for i := range expected {
		expected[i] = i
	}
	require.Equal(t, expected, got)
}

func TestUnloadTreeThenReloadFromRoot(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Add(ctx, i))
	}

	require.NoError(t, tr.UnloadTree(ctx))
	require.Equal(t, 0, tr.residentCount())
	require.True(t, tr.rootID.IsPersisted())

	got := collect(t, tr, 0)
	expected := make([]any, 20)
	for i := range expected {
		expected[i] = i
	}
	require.Equal(t, expected, got)
}

func TestUnloadExcessZeroUnloadsWholeTree(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	for i := 0; i < 10; i++ {
		require.NoError(t, tr.Add(ctx, i))
	}

	require.NoError(t, tr.UnloadExcess(ctx, 0))
	require.Equal(t, 0, tr.residentCount())
}

func TestIterateAcrossUnloadedSiblingLeaves(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	for i := 0; i < 20; i++ {
		require.NoError(t, tr.Add(ctx, i))
	}
	require.NoError(t, tr.UnloadTree(ctx))

	got := collect(t, tr, 7)
	expected := make([]any, 0, 13)
	for i := 7; i < 20; i++ {
		expected = append(expected, i)
	}
	require.Equal(t, expected, got)
}

func TestAddAfterUnloadTreeFaultsRootBackIn(t *testing.T) {
	ctx := context.Background()
	tr := newIntTree(t, WithFull(3))
	addAll(t, tr, 1, 2, 3, 4, 5)
	require.NoError(t, tr.UnloadTree(ctx))

	require.NoError(t, tr.Add(ctx, 6))
	require.Equal(t, []any{1, 2, 3, 4, 5, 6}, collect(t, tr, 0))
}

func TestMaxValuesMustBeOdd(t *testing.T) {
	_, err := New(compare.Natural, WithFull(4))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvariant)
}

func TestCrossTypeTreeHandlesMixedValues(t *testing.T) {
	tr, err := New(compare.CrossType, WithFull(3))
	require.NoError(t, err)

	ctx := context.Background()
	for _, v := range []any{"banana", 1, true, "apple", 2.5} {
		require.NoError(t, tr.Add(ctx, v))
	}

	got := collect(t, tr, false)
	require.Equal(t, []any{true, 1, 2.5, "apple", "banana"}, got)
}
