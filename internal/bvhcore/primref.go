package bvhcore

// geomIDReservedBits is the number of top bits of geomID reserved for a
// split-replication tag when spatial splits are active.
const geomIDReservedBits = 5

// MaxSpatialGeomID is the largest geomID a scene may use and still be
// eligible for spatial splits (maxGeomID < 2^(32-R)).
const MaxSpatialGeomID = uint32(1)<<(32-geomIDReservedBits) - 1

// PrimRef is a single primitive reference: an AABB plus the (geomID,
// primID) pair identifying the primitive that produced it. The top
// geomIDReservedBits bits of GeomID encode a split-replication tag when
// the spatial builder is active; use GeomIDOf/SplitTagOf to unpack.
type PrimRef struct {
	Bounds AABB
	GeomID uint32
	PrimID uint32
}

// PackGeomID combines a geometry id and split tag into the packed field.
// It returns ok=false if geomID exceeds MaxSpatialGeomID.
func PackGeomID(geomID uint32, splitTag uint8) (packed uint32, ok bool) {
	if geomID > MaxSpatialGeomID {
		return geomID, false
	}
	return geomID | (uint32(splitTag) << (32 - geomIDReservedBits)), true
}

// GeomIDOf extracts the true geometry id from a packed GeomID field.
func GeomIDOf(packed uint32) uint32 {
	return packed & MaxSpatialGeomID
}

// SplitTagOf extracts the split-replication tag from a packed GeomID field.
func SplitTagOf(packed uint32) uint8 {
	return uint8(packed >> (32 - geomIDReservedBits))
}

// Centroid returns the center of the primitive's AABB.
func (p PrimRef) Centroid() Vec3 {
	return p.Bounds.Center()
}

// PrimInfo aggregates a contiguous PrimRef range: count, the union of
// every primitive's bounds, and the union of every primitive's centroid.
// Invariant: GeomBounds contains every PrimRef.Bounds in range, and
// CentroidBounds contains every PrimRef.Centroid() in range.
type PrimInfo struct {
	Count          int
	GeomBounds     AABB
	CentroidBounds AABB
}

// EmptyPrimInfo returns a PrimInfo with no primitives, both bounds empty.
func EmptyPrimInfo() PrimInfo {
	return PrimInfo{GeomBounds: EmptyAABB(), CentroidBounds: EmptyAABB()}
}

// Extend folds a single PrimRef into the aggregate.
func (pi PrimInfo) Extend(p PrimRef) PrimInfo {
	pi.Count++
	pi.GeomBounds = pi.GeomBounds.Union(p.Bounds)
	pi.CentroidBounds = pi.CentroidBounds.Extend(p.Centroid())
	return pi
}

// Merge combines two PrimInfo aggregates over disjoint ranges.
func (pi PrimInfo) Merge(o PrimInfo) PrimInfo {
	return PrimInfo{
		Count:          pi.Count + o.Count,
		GeomBounds:     pi.GeomBounds.Union(o.GeomBounds),
		CentroidBounds: pi.CentroidBounds.Union(o.CentroidBounds),
	}
}

// MaxExtentAxis returns the axis (0, 1, or 2) along which CentroidBounds
// is widest; binning and Morton-code generation both key off this choice
// when an implementation wants to bin a single dominant axis, though the
// builders here bin all three axes and let the SAH choose.
func (pi PrimInfo) MaxExtentAxis() int {
	d := pi.CentroidBounds.Extent()
	axis := 0
	best := d.X
	if d.Y > best {
		axis, best = 1, d.Y
	}
	if d.Z > best {
		axis = 2
	}
	return axis
}

// ComputePrimInfo reduces a PrimRef slice into a single PrimInfo. Callers
// needing parallelism should instead fold local ranges with Extend/Merge
// and combine the partials; see BuildPrimRefs for the parallel form.
func ComputePrimInfo(refs []PrimRef) PrimInfo {
	info := EmptyPrimInfo()
	for _, r := range refs {
		info = info.Extend(r)
	}
	return info
}
