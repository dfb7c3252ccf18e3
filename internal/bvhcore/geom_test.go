package bvhcore

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmptyAABB_UnionIsIdentity(t *testing.T) {
	e := EmptyAABB()
	b := AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}

	assert.Equal(t, b, e.Union(b))
	assert.True(t, e.Empty())
}

func TestAABB_ExtendGrowsBounds(t *testing.T) {
	b := EmptyAABB()
	b = b.Extend(Vec3{1, 2, 3})
	b = b.Extend(Vec3{-1, 0, 5})

	assert.Equal(t, Vec3{-1, 0, 3}, b.Lower)
	assert.Equal(t, Vec3{1, 2, 5}, b.Upper)
}

func TestAABB_Contains(t *testing.T) {
	outer := AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{10, 10, 10}}
	inner := AABB{Lower: Vec3{1, 1, 1}, Upper: Vec3{2, 2, 2}}

	assert.True(t, outer.Contains(inner))
	assert.False(t, inner.Contains(outer))
}

func TestAABB_Valid(t *testing.T) {
	assert.True(t, (AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}).Valid())
	assert.False(t, (AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{math.NaN(), 1, 1}}).Valid())
	assert.False(t, (AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{math.Inf(1), 1, 1}}).Valid())
	assert.False(t, EmptyAABB().Valid())
}

func TestAABB_SurfaceArea(t *testing.T) {
	unit := AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{1, 1, 1}}
	assert.Equal(t, 6.0, unit.SurfaceArea())
	assert.Equal(t, 0.0, EmptyAABB().SurfaceArea())
}

func TestAABB_Clip(t *testing.T) {
	b := AABB{Lower: Vec3{0, 0, 0}, Upper: Vec3{10, 10, 10}}

	lower := b.Clip(0, 4, false)
	assert.Equal(t, 4.0, lower.Upper.X)
	assert.Equal(t, 0.0, lower.Lower.X)

	upper := b.Clip(0, 4, true)
	assert.Equal(t, 4.0, upper.Lower.X)
	assert.Equal(t, 10.0, upper.Upper.X)
}

func TestVec3_Axis(t *testing.T) {
	v := Vec3{1, 2, 3}
	assert.Equal(t, 1.0, v.Axis(0))
	assert.Equal(t, 2.0, v.Axis(1))
	assert.Equal(t, 3.0, v.Axis(2))

	v2 := v.SetAxis(1, 9)
	assert.Equal(t, 9.0, v2.Y)
	assert.Equal(t, 2.0, v.Y) // original untouched
}
