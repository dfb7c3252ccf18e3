package scene

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/pkg/filter"
)

// JSONLoader parses the package's native JSON scene format:
//
//	{
//	  "static": true,
//	  "geometries": [
//	    {"name": "mesh0", "kind": "triangle", "enabled": true,
//	     "bounds": [[0,0,0,1,1,1], [1,1,1,2,2,2]]}
//	  ]
//	}
//
// Each entry in "bounds" is a flat [minX,minY,minZ,maxX,maxY,maxZ] AABB for
// one primitive.
type JSONLoader struct{}

func (l *JSONLoader) Name() string { return "json" }

type jsonDoc struct {
	Static     bool              `json:"static"`
	Geometries []jsonGeometryDoc `json:"geometries"`
}

type jsonGeometryDoc struct {
	Name    string      `json:"name"`
	Kind    string      `json:"kind"`
	Enabled *bool       `json:"enabled"`
	Bounds  [][6]float64 `json:"bounds"`
}

// Load parses a jsonDoc and returns a Scene wrapping its geometries.
func (l *JSONLoader) Load(ctx context.Context, r io.Reader) (bvhcore.Scene, error) {
	var doc jsonDoc
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("scene: decode json: %w", err)
	}

	geoms := make([]bvhcore.Geometry, 0, len(doc.Geometries))
	for _, g := range doc.Geometries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		enabled := true
		if g.Enabled != nil {
			enabled = *g.Enabled
		}
		bounds := make([]bvhcore.AABB, len(g.Bounds))
		for i, b := range g.Bounds {
			bounds[i] = bvhcore.AABB{
				Lower: bvhcore.Vec3{X: b[0], Y: b[1], Z: b[2]},
				Upper: bvhcore.Vec3{X: b[3], Y: b[4], Z: b[5]},
			}
		}
		geoms = append(geoms, &Geometry{
			name:    g.Name,
			kind:    parseKind(g.Kind),
			enabled: enabled,
			bounds:  bounds,
		})
	}

	return &Scene{geoms: geoms, static: doc.Static}, nil
}

func parseKind(s string) filter.PrimitiveKind {
	switch s {
	case "triangle":
		return filter.KindTriangle
	case "quad":
		return filter.KindQuad
	case "curve":
		return filter.KindCurve
	case "user":
		return filter.KindUser
	case "instance":
		return filter.KindInstance
	default:
		return filter.KindUnknown
	}
}

// Scene is the in-memory bvhcore.Scene produced by JSONLoader, and is also
// convenient for building synthetic scenes by hand (see internal/testutil).
type Scene struct {
	geoms  []bvhcore.Geometry
	static bool
}

// NewScene wraps a slice of geometries as a Scene.
func NewScene(geoms []bvhcore.Geometry, static bool) *Scene {
	return &Scene{geoms: geoms, static: static}
}

func (s *Scene) Len() int                        { return len(s.geoms) }
func (s *Scene) Geometry(i int) bvhcore.Geometry { return s.geoms[i] }
func (s *Scene) IsStaticAccel() bool             { return s.static }

// Geometry is the in-memory bvhcore.Geometry produced by JSONLoader.
type Geometry struct {
	name    string
	kind    filter.PrimitiveKind
	enabled bool
	bounds  []bvhcore.AABB
}

// NewGeometry builds a Geometry from an explicit bounds slice.
func NewGeometry(name string, kind filter.PrimitiveKind, enabled bool, bounds []bvhcore.AABB) *Geometry {
	return &Geometry{name: name, kind: kind, enabled: enabled, bounds: bounds}
}

func (g *Geometry) Kind() filter.PrimitiveKind { return g.kind }
func (g *Geometry) Len() int                   { return len(g.bounds) }
func (g *Geometry) Bounds(i int) bvhcore.AABB  { return g.bounds[i] }
func (g *Geometry) Enabled() bool              { return g.enabled }
func (g *Geometry) Name() string               { return g.name }
