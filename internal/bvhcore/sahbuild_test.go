package bvhcore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSAHBuilder_BuildCoversAllPrimitives(t *testing.T) {
	refs := makeRefsAlongX(50)
	info := ComputePrimInfo(refs)
	store := NewNodeStore(nil)
	settings := DefaultSAHSettings()
	settings.SpatialSplits = false

	builder := NewSAHBuilder(store, settings, 0, nil)
	root, bounds, errs := builder.Build(context.Background(), refs, info)

	require.Empty(t, errs)
	require.True(t, root.IsValid())
	assert.True(t, bounds.Valid())
	assert.Equal(t, len(refs), countLeafRecords(store, root))
}

func TestSAHBuilder_RespectsMaxLeafSize(t *testing.T) {
	refs := makeRefsAlongX(100)
	info := ComputePrimInfo(refs)
	store := NewNodeStore(nil)
	settings := DefaultSAHSettings()
	settings.SpatialSplits = false
	settings.MaxLeafSize = 4
	settings.MinLeafSize = 1

	builder := NewSAHBuilder(store, settings, 0, nil)
	root, _, _ := builder.Build(context.Background(), refs, info)

	var walk func(NodeRef)
	walk = func(ref NodeRef) {
		if !ref.IsValid() {
			return
		}
		if ref.IsLeaf() {
			assert.LessOrEqual(t, len(store.Leaf(ref).Records), settings.MaxLeafSize*RecordsPerBlock*4)
			return
		}
		node := store.Node(ref)
		for i := 0; i < node.Count; i++ {
			walk(node.Children[i].Ref)
		}
	}
	walk(root)
}

func TestSAHBuilder_EmptyInput(t *testing.T) {
	store := NewNodeStore(nil)
	builder := NewSAHBuilder(store, DefaultSAHSettings(), 0, nil)
	root, bounds, errs := builder.Build(context.Background(), nil, EmptyPrimInfo())

	assert.False(t, root.IsValid())
	assert.True(t, bounds.Empty())
	assert.Empty(t, errs)
}

func TestSAHBuilder_SpatialSplitsDisabledOverBitBudget(t *testing.T) {
	store := NewNodeStore(nil)
	builder := NewSAHBuilder(store, DefaultSAHSettings(), MaxSpatialGeomID+1, nil)
	assert.False(t, builder.spatialOK)
}

func TestSAHBuilder_SpatialSplitsEnabledWithinBudget(t *testing.T) {
	store := NewNodeStore(nil)
	builder := NewSAHBuilder(store, DefaultSAHSettings(), 10, nil)
	assert.True(t, builder.spatialOK)
}

func TestPartitionObject_SplitsByAxisPosition(t *testing.T) {
	refs := makeRefsAlongX(10)
	mid := partitionObject(refs, 0, 5.0)

	for i := 0; i < mid; i++ {
		assert.Less(t, refs[i].Centroid().X, 5.0)
	}
	for i := mid; i < len(refs); i++ {
		assert.GreaterOrEqual(t, refs[i].Centroid().X, 5.0)
	}
}

func TestSAHBuilder_ParallelAboveThreshold(t *testing.T) {
	refs := makeRefsAlongX(200)
	info := ComputePrimInfo(refs)
	store := NewNodeStore(nil)
	settings := DefaultSAHSettings()
	settings.SpatialSplits = false
	settings.SingleThreadThreshold = 10

	builder := NewSAHBuilder(store, settings, 0, nil)
	root, _, errs := builder.Build(context.Background(), refs, info)

	require.Empty(t, errs)
	assert.Equal(t, len(refs), countLeafRecords(store, root))
}
