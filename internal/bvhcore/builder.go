package bvhcore

import (
	"context"
	"runtime"

	"go.opentelemetry.io/otel"

	"github.com/lange-studios/gobvh/pkg/bvherr"
	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/lange-studios/gobvh/pkg/filter"
	"github.com/lange-studios/gobvh/pkg/utils"
)

var tracer = otel.Tracer("github.com/lange-studios/gobvh/internal/bvhcore")

// Strategy selects which of the two builders (SAH or LBVH) produces the
// tree.
type Strategy string

const (
	StrategySAH    Strategy = "sah"
	StrategyMorton Strategy = "morton"
)

// Settings bundles everything a Builder needs. SettingsFromConfig fills it
// from pkg/config.BuilderConfig; MaxDepth and SingleThreadThreshold are
// fixed there rather than read from the config.
type Settings struct {
	Strategy  Strategy
	Branching int
	SAH       SAHSettings
	NumWorkers int
}

// SettingsFromConfig adapts a loaded BuilderConfig into bvhcore Settings.
func SettingsFromConfig(c config.BuilderConfig) Settings {
	workers := c.MaxWorker
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return Settings{
		Strategy:  Strategy(c.Strategy),
		Branching: c.BranchingFactor,
		NumWorkers: workers,
		SAH: SAHSettings{
			Branching:   c.BranchingFactor,
			MinLeafSize: c.MinLeafSize,
			MaxLeafSize: c.MaxLeafSize,
			MaxDepth:    64,
			NumBins:     c.NumBins,
			Costs: Costs{
				Traversal:    c.TraversalCost,
				Intersection: c.IntersectionCost,
			},
			SpatialSplits:         c.SpatialSplits,
			SplitFactor:           c.SplitFactor,
			SingleThreadThreshold: 4096,
		},
	}
}

// BuildStats reports what a single Build call did, mirroring the
// per-phase breakdown a Timer naturally produces: every duration here
// comes from a utils.Timer phase rather than a package-level clock.
type BuildStats struct {
	Strategy       Strategy
	PrimCount      int
	NodeCount      int
	LeafCount      int
	NodeBytes      int64
	LeafBytes      int64
	SpatialSplits  bool
	SpatialSplitsApplied bool
	SplitsConsumed int
	PromotedLeaves int
	Warnings       []error
	Timer          *utils.Timer
}

// BVH is the result of a completed build: the tree itself plus the stats
// gathered while producing it.
type BVH struct {
	Store *NodeStore
	Root  NodeRef
	Bounds AABB
	Stats BuildStats
}

// Builder orchestrates the full construction pipeline, end to end, for
// both builder strategies. A Builder is reusable across scenes; each
// Build call starts from a fresh NodeStore.
type Builder struct {
	settings Settings
	filter   *filter.GeometryFilter
}

// NewBuilder creates a Builder. gf may be nil to use filter.DefaultFilter.
func NewBuilder(settings Settings, gf *filter.GeometryFilter) *Builder {
	return &Builder{settings: settings, filter: gf}
}

// Build performs a complete construction over scn and returns the
// resulting BVH, or the first unrecoverable error. Recoverable errors are
// instead surfaced via BuildStats.Warnings and do not abort the build, so
// a Build call always produces a usable tree when one is possible at all.
func (b *Builder) Build(ctx context.Context, scn Scene) (*BVH, error) {
	ctx, span := tracer.Start(ctx, "bvhcore.Build")
	defer span.End()

	timer := utils.NewBuildTimer(string(b.settings.Strategy))

	prt := timer.Start("primref-generation")
	ctx, primSpan := tracer.Start(ctx, "primref-generation")
	refs, info, primErrs := BuildPrimRefs(ctx, scn, b.filter)
	primSpan.End()
	prt.Stop()

	if len(refs) == 0 {
		return &BVH{Store: NewNodeStore(nil), Root: InvalidRef, Bounds: EmptyAABB(), Stats: BuildStats{Warnings: primErrs, Timer: timer}}, nil
	}

	select {
	case <-ctx.Done():
		return nil, bvherr.Wrap(bvherr.CodeCancelled, "build cancelled during primref generation", ctx.Err())
	default:
	}

	arena := NewArena(DefaultBlockSize, 0)
	if err := arena.InitEstimate(len(refs) * bytesPerLeafRecord); err != nil {
		return nil, err
	}
	store := NewNodeStore(arena)
	var root NodeRef
	var bounds AABB
	var buildErrs []error

	ctx, partitionSpan := tracer.Start(ctx, "partition."+string(b.settings.Strategy))
	splitsConsumed := 0
	spatialSplitsApplied := false
	switch b.settings.Strategy {
	case StrategyMorton:
		root, bounds, buildErrs = b.buildMorton(ctx, timer, store, refs, info)
	default:
		var sah *SAHBuilder
		root, bounds, buildErrs, sah = b.buildSAH(ctx, timer, store, refs, info)
		splitsConsumed = sah.SplitsConsumed()
		spatialSplitsApplied = sah.SpatialSplitsApplied()
	}
	partitionSpan.End()

	rt := timer.Start("rotate")
	_, rotateSpan := tracer.Start(ctx, "rotate")
	RotateTree(store, root, b.settings.SAH.Costs)
	rotateSpan.End()
	rt.Stop()

	lnt := timer.Start("large-node-layout")
	_, layoutSpan := tracer.Start(ctx, "large-node-layout")
	promoted := LargeNodeLayout(store, root)
	store.PromoteLargeLeaves(promoted)
	layoutSpan.End()
	lnt.Stop()

	nodeBytes, leafBytes := store.ByteSize()

	stats := BuildStats{
		Strategy:      b.settings.Strategy,
		PrimCount:     len(refs),
		NodeCount:     store.NumNodes(),
		LeafCount:     store.NumLeaves(),
		NodeBytes:     nodeBytes,
		LeafBytes:     leafBytes,
		SpatialSplits:  b.settings.SAH.SpatialSplits,
		SpatialSplitsApplied: spatialSplitsApplied,
		SplitsConsumed: splitsConsumed,
		PromotedLeaves: len(promoted),
		Warnings:       append(append([]error{}, primErrs...), buildErrs...),
		Timer:         timer,
	}

	return &BVH{Store: store, Root: root, Bounds: bounds, Stats: stats}, nil
}

func (b *Builder) buildSAH(ctx context.Context, timer *utils.Timer, store *NodeStore, refs []PrimRef, info PrimInfo) (NodeRef, AABB, []error, *SAHBuilder) {
	maxGeomID := uint32(0)
	for _, r := range refs {
		if g := r.GeomID; g > maxGeomID {
			maxGeomID = g
		}
	}

	pt := timer.Start("sah-partition")
	defer pt.Stop()

	builder := NewSAHBuilder(store, b.settings.SAH, maxGeomID, nil)
	root, bounds, errs := builder.Build(ctx, refs, info)
	return root, bounds, errs, builder
}

func (b *Builder) buildMorton(ctx context.Context, timer *utils.Timer, store *NodeStore, refs []PrimRef, info PrimInfo) (NodeRef, AABB, []error) {
	mt := timer.Start("morton-codes")
	records := ComputeMortonCodes(refs, info.CentroidBounds)
	mt.Stop()

	st := timer.Start("radix-sort")
	SortMortonRecords(ctx, records, b.settings.NumWorkers)
	st.Stop()

	refMap := make(map[uint64]PrimRef, len(refs))
	for _, r := range refs {
		refMap[mortonKey(GeomIDOf(r.GeomID), r.PrimID)] = r
	}

	lt := timer.Start("lbvh-build")
	lbvh := NewLBVHBuilder(store, records, refMap, b.settings.Branching, b.settings.NumWorkers)
	root, bounds := lbvh.Build(ctx)
	lt.Stop()

	ft := timer.Start("refit")
	bounds = RefitBottomUp(store, root)
	ft.Stop()

	return root, bounds, nil
}

// Clear is a no-op placeholder: a Builder holds no retained intermediate
// arrays between Build calls (each Build starts a fresh NodeStore), so
// there is nothing to drop. Kept as an explicit method so callers get an
// explicit build()/clear() pair rather than assuming clear() happens
// implicitly.
func (b *Builder) Clear() {}
