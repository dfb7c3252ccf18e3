// Package bvhcore implements the tree construction algorithms: the
// top-down SAH builder with spatial splits and the bottom-up Morton-code
// (LBVH) builder, plus the arena, binning, and rotation passes they share.
package bvhcore

import "math"

// Vec3 is a three-component float64 vector.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }

// Scale returns v * s.
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }

// Axis returns the component along the given axis (0=x, 1=y, 2=z).
func (v Vec3) Axis(axis int) float64 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// SetAxis returns a copy of v with the given axis set to value.
func (v Vec3) SetAxis(axis int, value float64) Vec3 {
	switch axis {
	case 0:
		v.X = value
	case 1:
		v.Y = value
	default:
		v.Z = value
	}
	return v
}

// Min returns the component-wise minimum of a and b.
func MinVec3(a, b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}

// Max returns the component-wise maximum of a and b.
func MaxVec3(a, b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}

// AABB is an axis-aligned bounding box. An empty box has Lower=+Inf,
// Upper=-Inf on every axis so that Extend and Union are no-ops against it.
type AABB struct {
	Lower Vec3
	Upper Vec3
}

// EmptyAABB returns an AABB with inverted bounds, the identity for Extend/Union.
func EmptyAABB() AABB {
	return AABB{
		Lower: Vec3{math.Inf(1), math.Inf(1), math.Inf(1)},
		Upper: Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}
}

// Extend grows the box to include p.
func (b AABB) Extend(p Vec3) AABB {
	return AABB{Lower: MinVec3(b.Lower, p), Upper: MaxVec3(b.Upper, p)}
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	return AABB{Lower: MinVec3(b.Lower, o.Lower), Upper: MaxVec3(b.Upper, o.Upper)}
}

// Contains reports whether b fully contains o.
func (b AABB) Contains(o AABB) bool {
	return b.Lower.X <= o.Lower.X && b.Lower.Y <= o.Lower.Y && b.Lower.Z <= o.Lower.Z &&
		b.Upper.X >= o.Upper.X && b.Upper.Y >= o.Upper.Y && b.Upper.Z >= o.Upper.Z
}

// Empty reports whether the box contains no points.
func (b AABB) Empty() bool {
	return b.Lower.X > b.Upper.X || b.Lower.Y > b.Upper.Y || b.Lower.Z > b.Upper.Z
}

// Valid reports whether every bound is finite (no NaN, no Inf) and the box
// is not inverted. Used to detect an invalid primitive.
func (b AABB) Valid() bool {
	coords := []float64{b.Lower.X, b.Lower.Y, b.Lower.Z, b.Upper.X, b.Upper.Y, b.Upper.Z}
	for _, c := range coords {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return !b.Empty()
}

// Center returns the midpoint of the box.
func (b AABB) Center() Vec3 {
	return b.Lower.Add(b.Upper).Scale(0.5)
}

// Extent returns Upper - Lower.
func (b AABB) Extent() Vec3 {
	return b.Upper.Sub(b.Lower)
}

// SurfaceArea returns S(b) = 2*(dx*dy + dy*dz + dx*dz), or 0 for an empty box.
func (b AABB) SurfaceArea() float64 {
	if b.Empty() {
		return 0
	}
	d := b.Extent()
	return 2 * (d.X*d.Y + d.Y*d.Z + d.X*d.Z)
}

// HalfArea is SurfaceArea/2, the form most SAH cost formulas actually need;
// kept separate so callers can skip a multiply-then-divide on the hot path.
func (b AABB) HalfArea() float64 {
	if b.Empty() {
		return 0
	}
	d := b.Extent()
	return d.X*d.Y + d.Y*d.Z + d.X*d.Z
}

// Clip returns b clipped to the half-space axis <= pos (upper=true clips to
// axis >= pos instead). Used as the AABB-only fallback when a primitive's
// own geometry is not available for a tight spatial-split clip.
func (b AABB) Clip(axis int, pos float64, upper bool) AABB {
	c := b
	if upper {
		if pos > c.Lower.Axis(axis) {
			c.Lower = c.Lower.SetAxis(axis, pos)
		}
	} else {
		if pos < c.Upper.Axis(axis) {
			c.Upper = c.Upper.SetAxis(axis, pos)
		}
	}
	return c
}
