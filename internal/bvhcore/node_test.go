package bvhcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeRef_LeafTagRoundTrip(t *testing.T) {
	leafRef := nodeRefFor(5, true)
	nodeRef := nodeRefFor(5, false)

	assert.True(t, leafRef.IsLeaf())
	assert.False(t, nodeRef.IsLeaf())
	assert.Equal(t, uint64(5), leafRef.blockIndex())
	assert.Equal(t, uint64(5), nodeRef.blockIndex())
}

func TestNodeRef_InvalidIsNotValid(t *testing.T) {
	assert.False(t, InvalidRef.IsValid())
	assert.True(t, nodeRefFor(0, false).IsValid())
}

func TestNewEmptyNode_AllSlotsInvalid(t *testing.T) {
	n := NewEmptyNode()
	for _, c := range n.Children {
		assert.Equal(t, InvalidRef, c.Ref)
	}
	assert.Equal(t, 0, n.Count)
}

func TestNode_SetChildGrowsCount(t *testing.T) {
	n := NewEmptyNode()
	b := AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}
	n.SetChild(0, nodeRefFor(1, true), b)
	n.SetChild(2, nodeRefFor(2, true), b)

	assert.Equal(t, 3, n.Count)
	assert.Equal(t, InvalidRef, n.Children[1].Ref)
}

func TestNode_BoundsUnionsChildren(t *testing.T) {
	n := NewEmptyNode()
	n.SetChild(0, nodeRefFor(1, true), AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}})
	n.SetChild(1, nodeRefFor(2, true), AABB{Lower: Vec3{2, 2, 2}, Upper: Vec3{3, 3, 3}})

	b := n.Bounds()
	assert.Equal(t, Vec3{0, 0, 0}, b.Lower)
	assert.Equal(t, Vec3{3, 3, 3}, b.Upper)
}

func TestLeaf_NumBlocks(t *testing.T) {
	l := &Leaf{Records: make([]LeafRecord, 5)}
	assert.Equal(t, 2, l.NumBlocks())

	empty := &Leaf{}
	assert.Equal(t, 0, empty.NumBlocks())
}

func TestNodeStore_AllocNodeAndLeaf(t *testing.T) {
	store := NewNodeStore(nil)
	nodeRef, node := store.AllocNode()
	require.False(t, nodeRef.IsLeaf())
	node.SetChild(0, InvalidRef, EmptyAABB())

	leafRef := store.AllocLeaf([]LeafRecord{{GeomID: 1, PrimID: 2}}, AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}})
	require.True(t, leafRef.IsLeaf())

	assert.Same(t, node, store.Node(nodeRef))
	assert.Equal(t, uint32(1), store.Leaf(leafRef).Records[0].GeomID)
	assert.Equal(t, 1, store.NumNodes())
	assert.Equal(t, 1, store.NumLeaves())
}

func TestNodeStore_NewAllocatorNilArena(t *testing.T) {
	store := NewNodeStore(nil)
	assert.Nil(t, store.NewAllocator())
}

func TestAllocLeafRecords_FallsBackWithoutAllocator(t *testing.T) {
	recs := AllocLeafRecords(nil, 3)
	assert.Len(t, recs, 3)
}

func TestAllocLeafRecords_UsesArena(t *testing.T) {
	arena := NewArena(DefaultBlockSize, 0)
	alloc := NewCachedAllocator(arena)
	recs := AllocLeafRecords(alloc, 4)
	require.Len(t, recs, 4)
	recs[0] = LeafRecord{GeomID: 9, PrimID: 3}
	assert.Equal(t, uint32(9), recs[0].GeomID)
}

func TestNodeStore_ByteSize(t *testing.T) {
	store := NewNodeStore(nil)
	store.AllocNode()
	store.AllocLeaf(make([]LeafRecord, 4), EmptyAABB())

	nodeBytes, leafBytes := store.ByteSize()
	assert.Equal(t, int64(MaxBranching*bytesPerChildSlot), nodeBytes)
	assert.Equal(t, int64(4*bytesPerLeafRecord), leafBytes)
}
