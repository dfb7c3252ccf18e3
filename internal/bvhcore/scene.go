package bvhcore

import (
	"context"

	"github.com/lange-studios/gobvh/pkg/filter"
	"github.com/lange-studios/gobvh/pkg/parallel"
)

// Scene is the external collaborator primitive-ref generation walks to
// produce PrimRefs: a count and per-index geometry access, plus a
// scene-level hint about whether the accel structure is expected to be
// rebuilt often.
type Scene interface {
	// Len returns the number of geometries in the scene.
	Len() int
	// Geometry returns the geometry at index i, 0 <= i < Len().
	Geometry(i int) Geometry
	// IsStaticAccel reports whether the scene expects its BVH to be built
	// once and reused, as opposed to rebuilt every frame.
	IsStaticAccel() bool
}

// Geometry is a single mesh-like object within a Scene.
type Geometry interface {
	// Kind reports the primitive kind this geometry contributes.
	Kind() filter.PrimitiveKind
	// Len returns the number of primitives in this geometry.
	Len() int
	// Bounds returns the AABB of primitive i, 0 <= i < Len().
	Bounds(i int) AABB
	// Enabled reports whether this geometry currently participates in builds.
	Enabled() bool
	// Name returns a debug name, used only for filter prefix rules.
	Name() string
}

// ProgressFunc is called periodically during a build with (completed,
// total) primitive counts. Returning false requests cancellation.
type ProgressFunc func(completed, total int64) bool

// BuildPrimRefs walks every enabled, filter-passing geometry in scn and
// produces one PrimRef per primitive, plus the PrimInfo reduction over the
// result. Output order is stable: primitives are appended in scene order,
// geometry by geometry, so two builds over an unchanged scene produce
// identical PrimRef order.
//
// Per-geometry AABB computation runs in parallel; only the final append
// into the shared output slice is serialized by writing into a
// pre-computed, disjoint range per geometry (no lock on the hot path).
func BuildPrimRefs(ctx context.Context, scn Scene, gf *filter.GeometryFilter) ([]PrimRef, PrimInfo, []error) {
	if gf == nil {
		gf = filter.DefaultFilter
	}

	n := scn.Len()
	type geomWork struct {
		geomID uint32
		geom   Geometry
		offset int
		count  int
	}

	work := make([]geomWork, 0, n)
	total := 0
	for i := 0; i < n; i++ {
		g := scn.Geometry(i)
		if g == nil || !g.Enabled() {
			continue
		}
		if gf.ShouldSkip(uint32(i), g.Kind(), g.Name()) {
			continue
		}
		count := g.Len()
		if count == 0 {
			continue
		}
		gf.RememberKind(uint32(i), g.Kind())
		work = append(work, geomWork{geomID: uint32(i), geom: g, offset: total, count: count})
		total += count
	}

	refs := make([]PrimRef, total)
	type partial struct {
		info PrimInfo
		errs []error
	}

	config := parallel.DefaultPoolConfig()
	partials := parallel.MapReduce(ctx, work, config,
		func(ctx context.Context, w geomWork) partial {
			local := EmptyPrimInfo()
			var errs []error
			for j := 0; j < w.count; j++ {
				b := w.geom.Bounds(j)
				if !b.Valid() {
					errs = append(errs, &invalidPrimitiveError{geomID: w.geomID, primID: uint32(j)})
					refs[w.offset+j] = PrimRef{Bounds: EmptyAABB(), GeomID: w.geomID, PrimID: uint32(j)}
					continue
				}
				ref := PrimRef{Bounds: b, GeomID: w.geomID, PrimID: uint32(j)}
				refs[w.offset+j] = ref
				local = local.Extend(ref)
			}
			return partial{info: local, errs: errs}
		},
		func(parts []partial) []partial { return parts },
	)

	info := EmptyPrimInfo()
	var allErrs []error
	for _, p := range partials {
		info = info.Merge(p.info)
		allErrs = append(allErrs, p.errs...)
	}

	if len(allErrs) > 0 {
		refs = compactValid(refs, allErrs)
	}

	return refs, info, allErrs
}

// compactValid drops PrimRefs that correspond to an invalid-primitive
// error so they never reach a leaf.
func compactValid(refs []PrimRef, errs []error) []PrimRef {
	invalid := make(map[[2]uint32]bool, len(errs))
	for _, e := range errs {
		if ip, ok := e.(*invalidPrimitiveError); ok {
			invalid[[2]uint32{ip.geomID, ip.primID}] = true
		}
	}
	out := refs[:0]
	for _, r := range refs {
		if invalid[[2]uint32{r.GeomID, r.PrimID}] {
			continue
		}
		out = append(out, r)
	}
	return out
}
