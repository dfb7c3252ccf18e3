package bvhcore

import "math"

// ClipBounds is implemented by a Scene's Geometry to provide a tight clip
// of one primitive against an axis-aligned half-space. Geometries that
// cannot clip their own shape (e.g. opaque user primitives) may return
// their AABB clipped via AABB.Clip, trading some SAH quality for
// correctness; spatial splits remain valid either way.
type ClipBounds interface {
	ClipPrimitive(primID uint32, axis int, pos float64, upper bool) AABB
}

// SplitBudget tracks the global spatial-split replication allowance: a
// pre-reserved splitFactor*N tail of the PrimRef array that spatial splits
// consume from as they append the second half of a straddling primitive.
// Exhaustion degrades the builder to a plain object split, never an error.
type SplitBudget struct {
	total     int
	remaining int
}

// NewSplitBudget reserves `slots` replication slots.
func NewSplitBudget(slots int) *SplitBudget {
	return &SplitBudget{total: slots, remaining: slots}
}

// Consumed reports how many replication slots have been spent.
func (b *SplitBudget) Consumed() int {
	if b == nil {
		return 0
	}
	return b.total - b.remaining
}

// Take consumes one slot, reporting whether one was available.
func (b *SplitBudget) Take() bool {
	if b == nil || b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining reports the number of unconsumed replication slots.
func (b *SplitBudget) Remaining() int {
	if b == nil {
		return 0
	}
	return b.remaining
}

// SpatialSplitsAllowed reports whether maxGeomID fits the bit budget
// reserved for the split-replication tag.
func SpatialSplitsAllowed(maxGeomID uint32) bool {
	return maxGeomID <= MaxSpatialGeomID
}

// EvaluateSpatialSplit bins refs[begin:end] exactly as EvaluateObjectSplit
// does, except a primitive whose AABB straddles a bin boundary is counted
// (and unioned) into every bin it overlaps rather than only the bin its
// centroid falls in.
func EvaluateSpatialSplit(refs []PrimRef, begin, end int, centroidBounds, geomBounds AABB, costs Costs, numBins int) Split {
	if numBins <= 0 {
		numBins = NumBins
	}
	n := end - begin
	best := Split{Cost: math.Inf(1)}
	if n < 2 {
		return best
	}
	parentSA := geomBounds.SurfaceArea()

	for axis := 0; axis < 3; axis++ {
		cmin := centroidBounds.Lower.Axis(axis)
		cmax := centroidBounds.Upper.Axis(axis)
		if cmax <= cmin {
			continue
		}
		bins := make([]bin, numBins)
		for i := range bins {
			bins[i].bounds = EmptyAABB()
		}
		for i := begin; i < end; i++ {
			lo := binIndex(refs[i].Bounds.Lower.Axis(axis), cmin, cmax, numBins)
			hi := binIndex(refs[i].Bounds.Upper.Axis(axis), cmin, cmax, numBins)
			if lo > hi {
				lo, hi = hi, lo
			}
			for k := lo; k <= hi; k++ {
				bins[k].bounds = bins[k].bounds.Union(refs[i].Bounds)
				bins[k].count++
			}
		}

		rightBounds := make([]AABB, numBins+1)
		rightCount := make([]int, numBins+1)
		rightBounds[numBins] = EmptyAABB()
		for k := numBins - 1; k >= 0; k-- {
			rightBounds[k] = rightBounds[k+1].Union(bins[k].bounds)
			rightCount[k] = rightCount[k+1] + bins[k].count
		}

		leftAcc := EmptyAABB()
		leftCount := 0
		for k := 0; k < numBins-1; k++ {
			leftAcc = leftAcc.Union(bins[k].bounds)
			leftCount += bins[k].count

			nl := leftCount
			nr := rightCount[k+1]
			if nl == 0 || nr == 0 {
				continue
			}
			nlBlocks := ceilDiv(nl, SAHBlockSize)
			nrBlocks := ceilDiv(nr, SAHBlockSize)

			sa := leftAcc.SurfaceArea()
			sb := rightBounds[k+1].SurfaceArea()
			cost := costs.Traversal
			if parentSA > 0 {
				cost += (sa*float64(nlBlocks) + sb*float64(nrBlocks)) / parentSA * costs.Intersection
			}

			if cost < best.Cost {
				pos := cmin + (cmax-cmin)*float64(k+1)/float64(numBins)
				best = Split{
					Axis: axis, Pos: pos, Cost: cost, Spatial: true,
					LeftBounds: leftAcc, RightBounds: rightBounds[k+1],
					LeftCount: nl, RightCount: nr,
				}
			}
		}
	}

	return best
}

// ApplySpatialSplit clips ref against split's plane and returns the left
// and right sub-references. clipper, if non-nil, is used for a tight
// geometry clip; otherwise the AABB-only fallback (AABB.Clip) is used,
// which is still conformant but yields looser bounds.
func ApplySpatialSplit(ref PrimRef, split Split, clipper ClipBounds) (left, right PrimRef, straddles bool) {
	lo := ref.Bounds.Lower.Axis(split.Axis)
	hi := ref.Bounds.Upper.Axis(split.Axis)
	if split.Pos <= lo || split.Pos >= hi {
		straddles = false
		if split.Pos >= hi {
			left = ref
		} else {
			right = ref
		}
		return
	}

	var leftBounds, rightBounds AABB
	if clipper != nil {
		leftBounds = clipper.ClipPrimitive(ref.PrimID, split.Axis, split.Pos, false)
		rightBounds = clipper.ClipPrimitive(ref.PrimID, split.Axis, split.Pos, true)
	} else {
		leftBounds = ref.Bounds.Clip(split.Axis, split.Pos, false)
		rightBounds = ref.Bounds.Clip(split.Axis, split.Pos, true)
	}

	// Each half keeps the true geomID but tags itself 0 (left) / 1 (right)
	// in the reserved bits, so a leaf holding both fragments can tell them
	// apart without a second lookup. Falls back to the untagged id when
	// geomID exceeds the bit budget (caller should have refused spatial
	// splits in that case; this keeps the function total regardless).
	leftID, ok := PackGeomID(GeomIDOf(ref.GeomID), 0)
	if !ok {
		leftID = ref.GeomID
	}
	rightID, ok := PackGeomID(GeomIDOf(ref.GeomID), 1)
	if !ok {
		rightID = ref.GeomID
	}

	left = PrimRef{Bounds: leftBounds, GeomID: leftID, PrimID: ref.PrimID}
	right = PrimRef{Bounds: rightBounds, GeomID: rightID, PrimID: ref.PrimID}
	straddles = true
	return
}
