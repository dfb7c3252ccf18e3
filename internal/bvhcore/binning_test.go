package bvhcore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeRefsAlongX(n int) []PrimRef {
	refs := make([]PrimRef, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		refs[i] = PrimRef{Bounds: AABB{Lower: Vec3{x, 0, 0}, Upper: Vec3{x + 0.1, 1, 1}}, PrimID: uint32(i)}
	}
	return refs
}

func TestEvaluateObjectSplit_FindsSplitAlongWidestAxis(t *testing.T) {
	refs := makeRefsAlongX(8)
	info := ComputePrimInfo(refs)

	split := EvaluateObjectSplit(refs, 0, len(refs), info.CentroidBounds, DefaultCosts(), NumBins)

	require.False(t, split.NoSplit())
	assert.Equal(t, 0, split.Axis)
	assert.Greater(t, split.LeftCount, 0)
	assert.Greater(t, split.RightCount, 0)
	assert.Equal(t, len(refs), split.LeftCount+split.RightCount)
}

func TestEvaluateObjectSplit_SingleRefProducesNoSplit(t *testing.T) {
	refs := makeRefsAlongX(1)
	info := ComputePrimInfo(refs)
	split := EvaluateObjectSplit(refs, 0, len(refs), info.CentroidBounds, DefaultCosts(), NumBins)
	assert.True(t, split.NoSplit())
}

func TestEvaluateObjectSplit_DegenerateBoundsNoSplit(t *testing.T) {
	refs := []PrimRef{
		{Bounds: AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}},
		{Bounds: AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}},
	}
	info := ComputePrimInfo(refs)
	split := EvaluateObjectSplit(refs, 0, len(refs), info.CentroidBounds, DefaultCosts(), NumBins)
	assert.True(t, split.NoSplit())
}

func TestBinIndex_ClampsToRange(t *testing.T) {
	assert.Equal(t, 0, binIndex(-5, 0, 10, 8))
	assert.Equal(t, 7, binIndex(100, 0, 10, 8))
	assert.Equal(t, 0, binIndex(5, 10, 10, 8)) // degenerate range
}

func TestLeafCost(t *testing.T) {
	assert.Equal(t, 4.0, LeafCost(4, Costs{Intersection: 1.0}))
	assert.Equal(t, 8.0, LeafCost(4, Costs{Intersection: 2.0}))
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, 2, ceilDiv(5, 4))
	assert.Equal(t, 1, ceilDiv(4, 4))
	assert.Equal(t, 0, ceilDiv(0, 4))
}
