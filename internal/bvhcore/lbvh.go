package bvhcore

import (
	"context"

	"github.com/lange-studios/gobvh/pkg/parallel"
)

// LBVHLeafThreshold is the maximum number of primitives packed into one
// Morton-builder leaf before the top-down split keeps recursing.
const LBVHLeafThreshold = 4

// LBVHTopLevelItemThreshold is the record count a pending range must still
// exceed for the top-level forest split to keep growing. Once at least
// numThreads ranges exist and every pending range has dropped to or below
// this count, the forest stops growing and each range is handed to its
// own goroutine.
const LBVHTopLevelItemThreshold = 4096

// LBVHBuilder constructs a BVH bottom-up from a sorted MortonRecord array:
// a top-down split on the highest differing Morton bit (binary search)
// followed by a bottom-up bounds refit. When the input is large enough
// and numThreads > 1, Build first splits the record array into a forest
// of top-level subtrees and builds that forest in parallel before
// recursing sequentially within each subtree.
type LBVHBuilder struct {
	store      *NodeStore
	records    []MortonRecord
	refs       map[uint64]PrimRef // keyed by (geomID<<32|primID), for leaf bounds
	n          int
	branching  int
	numThreads int
	alloc      *CachedAllocator
}

// NewLBVHBuilder creates a builder over sorted (ascending Code) records.
// refs supplies the original PrimRef (for exact bounds) keyed by geomID
// and primID; callers typically build this map once from the same
// PrimRef slice ComputeMortonCodes consumed. branching is N, clamped to
// [2, MaxBranching]. numThreads bounds the top-level forest split
// described above; values below 2 disable it and Build runs fully
// sequential.
func NewLBVHBuilder(store *NodeStore, sorted []MortonRecord, refs map[uint64]PrimRef, branching, numThreads int) *LBVHBuilder {
	if branching < 2 {
		branching = 2
	}
	if branching > MaxBranching {
		branching = MaxBranching
	}
	if numThreads < 1 {
		numThreads = 1
	}
	return &LBVHBuilder{
		store:      store,
		records:    sorted,
		refs:       refs,
		n:          len(sorted),
		branching:  branching,
		numThreads: numThreads,
		alloc:      store.NewAllocator(),
	}
}

func mortonKey(geomID, primID uint32) uint64 {
	return uint64(geomID)<<32 | uint64(primID)
}

// Build constructs the tree over records[0:n] and returns its root ref and
// bounds. An empty input returns InvalidRef.
func (b *LBVHBuilder) Build(ctx context.Context) (NodeRef, AABB) {
	if b.n == 0 {
		return InvalidRef, EmptyAABB()
	}
	if b.numThreads > 1 && b.n > LBVHTopLevelItemThreshold {
		return b.splitTopLevel(ctx, 0, b.n)
	}
	return b.split(b.alloc, 0, b.n)
}

// findSplit performs the binary search for the highest Morton bit that
// differs between records[begin] and records[end-1], returning the index
// of the first element on the "1" side of that bit. When the two codes
// are identical (bitpos saturates past bit 0, i.e. CommonPrefixLen
// reaches 63), the range is deterministic only by record order, so it
// falls back to a plain midpoint split rather than looping forever.
func (b *LBVHBuilder) findSplit(begin, end int) int {
	first := b.records[begin].Code
	last := b.records[end-1].Code
	commonPrefix := CommonPrefixLen(first, last)
	if commonPrefix >= 63 {
		return (begin + end) / 2
	}

	split := begin
	step := end - begin
	for {
		step = (step + 1) / 2
		newSplit := split + step
		if newSplit < end {
			code := b.records[newSplit].Code
			prefix := CommonPrefixLen(first, code)
			if prefix > commonPrefix {
				split = newSplit
			}
		}
		if step <= 1 {
			break
		}
	}
	return split + 1
}

// mortonRange is a pending [begin, end) range awaiting either further
// binary splitting (to grow the N-ary fan-out) or subtree construction.
type mortonRange struct{ begin, end int }

func (r mortonRange) count() int { return r.end - r.begin }

// growForest repeatedly binary-splits the largest pending range (greedy
// fan-out) until stop reports the forest is large/fine-grained enough to
// stop growing, or every remaining range is at or below LBVHLeafThreshold.
func (b *LBVHBuilder) growForest(begin, end int, stop func(ranges []mortonRange) bool) []mortonRange {
	ranges := []mortonRange{{begin, end}}
	for !stop(ranges) {
		bi := largestRangeIdx(ranges)
		r := ranges[bi]
		if r.count() <= LBVHLeafThreshold {
			break
		}
		mid := b.findSplit(r.begin, r.end)
		if mid <= r.begin || mid >= r.end {
			mid = (r.begin + r.end) / 2
		}
		ranges[bi] = mortonRange{r.begin, mid}
		ranges = append(ranges, mortonRange{mid, r.end})
	}
	return ranges
}

// split recursively partitions records[begin:end] into an N-ary node: it
// grows the forest (see growForest) until either b.branching ranges
// exist or every remaining range is at or below LBVHLeafThreshold, then
// recurses sequentially into each as a subtree, all sharing alloc.
func (b *LBVHBuilder) split(alloc *CachedAllocator, begin, end int) (NodeRef, AABB) {
	n := end - begin
	if n <= LBVHLeafThreshold {
		return b.emitLeaf(alloc, begin, end)
	}

	ranges := b.growForest(begin, end, func(ranges []mortonRange) bool {
		return len(ranges) >= b.branching
	})

	ref, node := b.store.AllocNode()
	total := EmptyAABB()
	for i, r := range ranges {
		childRef, childBounds := b.split(alloc, r.begin, r.end)
		node.SetChild(i, childRef, childBounds)
		total = total.Union(childBounds)
	}
	return ref, total
}

// childItem is one already-built subtree root awaiting promotion into a
// parent node, used by splitTopLevel/combineForest to fold a forest of
// independently built subtrees back into a single tree.
type childItem struct {
	ref    NodeRef
	bounds AABB
}

// splitTopLevel grows the forest past b.branching, stopping only once at
// least numThreads ranges exist and every range has dropped to or below
// LBVHTopLevelItemThreshold (or growth bottoms out at LBVHLeafThreshold).
// Each resulting range is then built into a subtree on its own goroutine,
// via pkg/parallel, each with its own CachedAllocator so leaf-record
// allocation never contends across subtrees built concurrently. The
// forest of subtree roots is then folded back into a single tree by
// combineForest.
func (b *LBVHBuilder) splitTopLevel(ctx context.Context, begin, end int) (NodeRef, AABB) {
	ranges := b.growForest(begin, end, func(ranges []mortonRange) bool {
		if len(ranges) < b.numThreads {
			return false
		}
		return ranges[largestRangeIdx(ranges)].count() <= LBVHTopLevelItemThreshold
	})

	if len(ranges) <= 1 {
		return b.split(b.alloc, begin, end)
	}

	config := parallel.DefaultPoolConfig().WithWorkers(b.numThreads)
	mapped := parallel.MapReduce(ctx, ranges, config,
		func(ctx context.Context, r mortonRange) childItem {
			workerAlloc := b.store.NewAllocator()
			ref, bounds := b.split(workerAlloc, r.begin, r.end)
			return childItem{ref: ref, bounds: bounds}
		},
		func(mapped []childItem) []childItem { return mapped },
	)

	return b.combineForest(mapped)
}

// combineForest folds a forest of already-built subtree roots into a
// single tree, grouping up to b.branching items per interior node and
// repeating until one root remains.
func (b *LBVHBuilder) combineForest(items []childItem) (NodeRef, AABB) {
	for len(items) > 1 {
		next := make([]childItem, 0, (len(items)+b.branching-1)/b.branching)
		for i := 0; i < len(items); i += b.branching {
			group := items[i:min(i+b.branching, len(items))]
			if len(group) == 1 {
				next = append(next, group[0])
				continue
			}
			ref, node := b.store.AllocNode()
			total := EmptyAABB()
			for j, it := range group {
				node.SetChild(j, it.ref, it.bounds)
				total = total.Union(it.bounds)
			}
			next = append(next, childItem{ref: ref, bounds: total})
		}
		items = next
	}
	return items[0].ref, items[0].bounds
}

// largestRangeIdx returns the index of the pending range with the most
// records, the one growForest always splits next.
func largestRangeIdx(ranges []mortonRange) int {
	best := 0
	for i := 1; i < len(ranges); i++ {
		if ranges[i].count() > ranges[best].count() {
			best = i
		}
	}
	return best
}

func (b *LBVHBuilder) emitLeaf(alloc *CachedAllocator, begin, end int) (NodeRef, AABB) {
	bounds := EmptyAABB()
	records := AllocLeafRecords(alloc, end-begin)
	for i := begin; i < end; i++ {
		rec := b.records[i]
		records[i-begin] = LeafRecord{GeomID: rec.GeomID, PrimID: rec.PrimID}
		if ref, ok := b.refs[mortonKey(rec.GeomID, rec.PrimID)]; ok {
			bounds = bounds.Union(ref.Bounds)
		}
	}
	ref := b.store.AllocLeaf(records, bounds)
	return ref, bounds
}

// RefitBottomUp recomputes every interior node's stored child bounds as
// the union of that child's own bounds, starting from root. The Morton
// pipeline (Builder.buildMorton) runs it over the whole tree after
// LBVHBuilder.Build; RefitToplevel is the variant for a toplevel-only
// rebuild.
func RefitBottomUp(store *NodeStore, root NodeRef) AABB {
	if !root.IsValid() {
		return EmptyAABB()
	}
	if root.IsLeaf() {
		return store.Leaf(root).Bounds
	}
	node := store.Node(root)
	b := EmptyAABB()
	for i := 0; i < node.Count; i++ {
		slot := &node.Children[i]
		if !slot.Ref.IsValid() {
			continue
		}
		slot.Bounds = RefitBottomUp(store, slot.Ref)
		b = b.Union(slot.Bounds)
	}
	return b
}

// RefitToplevel recomputes bounds only for the node subtree rooted at
// toplevelRoot, stopping the recursion at any child already marked
// unchanged by unchangedBelow. Used when only the leaves below a stable
// upper region of the tree were rebuilt, so the refit can skip the parts
// that provably did not change.
func RefitToplevel(store *NodeStore, toplevelRoot NodeRef, unchangedBelow func(NodeRef) bool) AABB {
	if !toplevelRoot.IsValid() {
		return EmptyAABB()
	}
	if toplevelRoot.IsLeaf() {
		return store.Leaf(toplevelRoot).Bounds
	}
	if unchangedBelow != nil && unchangedBelow(toplevelRoot) {
		return store.Node(toplevelRoot).Bounds()
	}
	node := store.Node(toplevelRoot)
	b := EmptyAABB()
	for i := 0; i < node.Count; i++ {
		slot := &node.Children[i]
		if !slot.Ref.IsValid() {
			continue
		}
		slot.Bounds = RefitToplevel(store, slot.Ref, unchangedBelow)
		b = b.Union(slot.Bounds)
	}
	return b
}
