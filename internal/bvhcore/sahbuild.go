package bvhcore

import (
	"context"
	"sync"

	"github.com/lange-studios/gobvh/pkg/parallel"
)

// SAHSettings configures the top-down SAH builder.
type SAHSettings struct {
	Branching             int
	MinLeafSize           int
	MaxLeafSize           int
	MaxDepth              int
	NumBins               int
	Costs                 Costs
	SpatialSplits         bool
	SplitFactor           float64
	SingleThreadThreshold int
}

// DefaultSAHSettings returns a reasonable baseline configuration:
// binary fan-out, 32 bins, spatial splits on.
func DefaultSAHSettings() SAHSettings {
	return SAHSettings{
		Branching:             2,
		MinLeafSize:           1,
		MaxLeafSize:           8,
		MaxDepth:              64,
		NumBins:               NumBins,
		Costs:                 DefaultCosts(),
		SpatialSplits:         true,
		SplitFactor:           0.3,
		SingleThreadThreshold: 4096,
	}
}

// SAHBuilder implements recursive SAH partition with optional spatial
// splits, greedy N-ary fan-out, and goroutine-parallel recursion above
// SingleThreadThreshold.
type SAHBuilder struct {
	store    *NodeStore
	settings SAHSettings
	budget   *SplitBudget
	clipper  ClipBounds
	spatialOK bool

	mu   sync.Mutex
	errs []error
}

// SplitsConsumed reports how many spatial-split replication slots the
// most recent Build call spent.
func (b *SAHBuilder) SplitsConsumed() int {
	return b.budget.Consumed()
}

// SpatialSplitsApplied reports whether this build actually performed
// spatial splits, as opposed to merely having them requested in
// SAHSettings. The two diverge when SpatialSplitsAllowed rejects the
// scene's geomID range for the bit budget; a request the budget
// overrode is exactly what the advisor's bit-budget rule needs to detect.
func (b *SAHBuilder) SpatialSplitsApplied() bool {
	return b.spatialOK
}

// NewSAHBuilder creates a builder writing into store. maxGeomID is the
// largest geomID present in the scene, used to decide whether spatial
// splits are permitted under the bit-budget constraint; clipper, if
// non-nil, provides a tight per-primitive clip for spatial splits,
// otherwise AABB-only clipping is used.
func NewSAHBuilder(store *NodeStore, settings SAHSettings, maxGeomID uint32, clipper ClipBounds) *SAHBuilder {
	if settings.Branching < 2 {
		settings.Branching = 2
	}
	if settings.Branching > MaxBranching {
		settings.Branching = MaxBranching
	}
	return &SAHBuilder{
		store:     store,
		settings:  settings,
		clipper:   clipper,
		spatialOK: settings.SpatialSplits && SpatialSplitsAllowed(maxGeomID),
	}
}

// Build constructs a tree over refs (which may be reordered and grown by
// spatial splits up to splitFactor*len(refs) extra entries) and returns
// the root ref, root bounds, and any recoverable errors collected during
// the build (depth-limit force-emits, for example).
func (b *SAHBuilder) Build(ctx context.Context, refs []PrimRef, info PrimInfo) (NodeRef, AABB, []error) {
	if len(refs) == 0 {
		return InvalidRef, EmptyAABB(), nil
	}
	b.budget = NewSplitBudget(int(float64(len(refs)) * b.settings.SplitFactor))
	alloc := b.store.NewAllocator()
	ref, bounds := b.buildRange(ctx, alloc, refs, info.CentroidBounds, info.GeomBounds, 0)
	return ref, bounds, b.errs
}

func (b *SAHBuilder) recordErr(err error) {
	b.mu.Lock()
	b.errs = append(b.errs, err)
	b.mu.Unlock()
}

func (b *SAHBuilder) buildRange(ctx context.Context, alloc *CachedAllocator, refs []PrimRef, centroidBounds, geomBounds AABB, depth int) (NodeRef, AABB) {
	n := len(refs)
	if n <= b.settings.MinLeafSize {
		return b.emitLeaf(alloc, refs)
	}
	if depth >= b.settings.MaxDepth {
		if n > b.settings.MaxLeafSize*RecordsPerBlock {
			b.recordErr(&depthLimitError{depth: depth, count: n})
		}
		return b.emitLeaf(alloc, refs)
	}

	objSplit := EvaluateObjectSplit(refs, 0, n, centroidBounds, b.settings.Costs, b.settings.NumBins)
	best := objSplit
	useSpatial := false

	if b.spatialOK && b.budget.Remaining() > 0 {
		spSplit := EvaluateSpatialSplit(refs, 0, n, centroidBounds, geomBounds, b.settings.Costs, b.settings.NumBins)
		if !spSplit.NoSplit() && spSplit.Cost < best.Cost {
			best = spSplit
			useSpatial = true
		}
	}

	leafCost := LeafCost(n, b.settings.Costs)
	if best.NoSplit() || best.Cost >= leafCost {
		return b.emitLeaf(alloc, refs)
	}

	var ranges [][]PrimRef
	if useSpatial {
		left, right := b.partitionSpatial(refs, best)
		ranges = [][]PrimRef{left, right}
	} else {
		mid := partitionObject(refs, best.Axis, best.Pos)
		ranges = [][]PrimRef{refs[:mid], refs[mid:]}
	}

	for len(ranges) < b.settings.Branching {
		bi := largestPrimRange(ranges)
		r := ranges[bi]
		if len(r) <= b.settings.MinLeafSize {
			break
		}
		rInfo := ComputePrimInfo(r)
		subSplit := EvaluateObjectSplit(r, 0, len(r), rInfo.CentroidBounds, b.settings.Costs, b.settings.NumBins)
		if subSplit.NoSplit() || subSplit.Cost >= LeafCost(len(r), b.settings.Costs) {
			break
		}
		mid := partitionObject(r, subSplit.Axis, subSplit.Pos)
		ranges[bi] = r[:mid]
		ranges = append(ranges, r[mid:])
	}

	ref, node := b.store.AllocNode()
	total := EmptyAABB()

	if n > b.settings.SingleThreadThreshold {
		type childResult struct {
			ref    NodeRef
			bounds AABB
		}
		config := parallel.DefaultPoolConfig()
		total = parallel.MapReduce(ctx, ranges, config,
			func(ctx context.Context, r []PrimRef) childResult {
				// Each task acts as its own worker: it gets a private
				// cached allocator rather than sharing the parent's, so
				// leaf-record allocation never contends across subtrees
				// built concurrently.
				workerAlloc := b.store.NewAllocator()
				rInfo := ComputePrimInfo(r)
				cr, cb := b.buildRange(ctx, workerAlloc, r, rInfo.CentroidBounds, rInfo.GeomBounds, depth+1)
				return childResult{ref: cr, bounds: cb}
			},
			func(mapped []childResult) AABB {
				union := EmptyAABB()
				for i, res := range mapped {
					node.SetChild(i, res.ref, res.bounds)
					union = union.Union(res.bounds)
				}
				return union
			},
		)
	} else {
		for i, r := range ranges {
			rInfo := ComputePrimInfo(r)
			cr, cb := b.buildRange(ctx, alloc, r, rInfo.CentroidBounds, rInfo.GeomBounds, depth+1)
			node.SetChild(i, cr, cb)
			total = total.Union(cb)
		}
	}

	return ref, total
}

func (b *SAHBuilder) emitLeaf(alloc *CachedAllocator, refs []PrimRef) (NodeRef, AABB) {
	bounds := EmptyAABB()
	records := AllocLeafRecords(alloc, len(refs))
	for i, r := range refs {
		bounds = bounds.Union(r.Bounds)
		records[i] = LeafRecord{GeomID: r.GeomID, PrimID: r.PrimID}
	}
	ref := b.store.AllocLeaf(records, bounds)
	return ref, bounds
}

// partitionObject performs an in-place Hoare partition of refs by
// centroid position on the given axis, returning the split index. Used
// for both the top-level object split and fan-out sub-splits.
func partitionObject(refs []PrimRef, axis int, pos float64) int {
	i, j := 0, len(refs)-1
	for i <= j {
		if refs[i].Centroid().Axis(axis) < pos {
			i++
			continue
		}
		if refs[j].Centroid().Axis(axis) >= pos {
			j--
			continue
		}
		refs[i], refs[j] = refs[j], refs[i]
		i++
		j--
	}
	return i
}

// partitionSpatial classifies every ref in refs against split's plane: a
// ref fully on one side is kept whole, a straddling ref is clipped into
// two replicas if the split budget allows one, otherwise it degrades to a
// centroid-side assignment (an implicit object split for that one ref).
// Returns fresh left/right slices; unlike partitionObject this cannot be
// done in place because replication changes the element count.
func (b *SAHBuilder) partitionSpatial(refs []PrimRef, split Split) (left, right []PrimRef) {
	left = make([]PrimRef, 0, len(refs))
	right = make([]PrimRef, 0, len(refs))
	for _, r := range refs {
		lo := r.Bounds.Lower.Axis(split.Axis)
		hi := r.Bounds.Upper.Axis(split.Axis)
		switch {
		case hi <= split.Pos:
			left = append(left, r)
		case lo >= split.Pos:
			right = append(right, r)
		case b.budget.Take():
			l, rr, _ := ApplySpatialSplit(r, split, b.clipper)
			left = append(left, l)
			right = append(right, rr)
		default:
			if r.Centroid().Axis(split.Axis) < split.Pos {
				left = append(left, r)
			} else {
				right = append(right, r)
			}
		}
	}
	return
}

func largestPrimRange(ranges [][]PrimRef) int {
	best := 0
	for i := 1; i < len(ranges); i++ {
		if len(ranges[i]) > len(ranges[best]) {
			best = i
		}
	}
	return best
}
