// Package testutil provides synthetic scenes and assertion helpers shared
// across this module's test suites.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/internal/scene"
	"github.com/lange-studios/gobvh/pkg/filter"
)

// Box builds an AABB from explicit lower/upper coordinates.
func Box(minX, minY, minZ, maxX, maxY, maxZ float64) bvhcore.AABB {
	return bvhcore.AABB{
		Lower: bvhcore.Vec3{X: minX, Y: minY, Z: minZ},
		Upper: bvhcore.Vec3{X: maxX, Y: maxY, Z: maxZ},
	}
}

// UnitCubeGrid builds a scene of n*n*n axis-aligned unit cubes spaced one
// unit apart along each axis, one triangle primitive per geometry. This is
// scenario S1's shape from the end-to-end walkthroughs: a regular grid
// with no degenerate bounds and an obvious SAH-optimal split plane.
func UnitCubeGrid(n int) *scene.Scene {
	geoms := make([]bvhcore.Geometry, 0, n*n*n)
	for x := 0; x < n; x++ {
		for y := 0; y < n; y++ {
			for z := 0; z < n; z++ {
				fx, fy, fz := float64(x), float64(y), float64(z)
				bounds := []bvhcore.AABB{Box(fx, fy, fz, fx+1, fy+1, fz+1)}
				geoms = append(geoms, scene.NewGeometry("cube", filter.KindTriangle, true, bounds))
			}
		}
	}
	return scene.NewScene(geoms, true)
}

// DegenerateScene builds a scene with one zero-volume (flat) primitive and
// one well-formed one, exercising the degenerate-bounds edge case builders
// must tolerate without dividing by zero.
func DegenerateScene() *scene.Scene {
	flat := scene.NewGeometry("flat", filter.KindTriangle, true, []bvhcore.AABB{Box(0, 0, 0, 1, 0, 1)})
	solid := scene.NewGeometry("solid", filter.KindTriangle, true, []bvhcore.AABB{Box(5, 5, 5, 6, 6, 6)})
	return scene.NewScene([]bvhcore.Geometry{flat, solid}, true)
}

// ClusteredScene builds two tight clusters of primitives far apart, the
// shape that should produce a clean top-level object split.
func ClusteredScene(perCluster int) *scene.Scene {
	geoms := make([]bvhcore.Geometry, 0, perCluster*2)
	for i := 0; i < perCluster; i++ {
		off := float64(i) * 0.1
		geoms = append(geoms, scene.NewGeometry("a", filter.KindTriangle, true, []bvhcore.AABB{Box(off, off, off, off+0.5, off+0.5, off+0.5)}))
	}
	for i := 0; i < perCluster; i++ {
		off := 100 + float64(i)*0.1
		geoms = append(geoms, scene.NewGeometry("b", filter.KindTriangle, true, []bvhcore.AABB{Box(off, off, off, off+0.5, off+0.5, off+0.5)}))
	}
	return scene.NewScene(geoms, true)
}

// DisabledGeometryScene builds a scene where one geometry is disabled,
// exercising the filter package's enabled-kind gating.
func DisabledGeometryScene() *scene.Scene {
	live := scene.NewGeometry("live", filter.KindTriangle, true, []bvhcore.AABB{Box(0, 0, 0, 1, 1, 1)})
	dead := scene.NewGeometry("dead", filter.KindTriangle, false, []bvhcore.AABB{Box(10, 10, 10, 11, 11, 11)})
	return scene.NewScene([]bvhcore.Geometry{live, dead}, true)
}

// WriteJSONScene writes a minimal native-JSON scene document to a temp
// file under t's directory and returns its path, for exercising
// internal/scene.JSONLoader end to end.
func WriteJSONScene(t *testing.T, doc string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("testutil: write scene fixture: %v", err)
	}
	return path
}
