package scene

import (
	"context"
	"strings"
	"testing"

	"github.com/lange-studios/gobvh/pkg/filter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `{
  "static": true,
  "geometries": [
    {"name": "mesh0", "kind": "triangle", "bounds": [[0,0,0,1,1,1],[1,1,1,2,2,2]]},
    {"name": "mesh1", "kind": "curve", "enabled": false, "bounds": [[5,5,5,6,6,6]]}
  ]
}`

func TestJSONLoader_ParsesGeometriesAndBounds(t *testing.T) {
	scn, err := (&JSONLoader{}).Load(context.Background(), strings.NewReader(sampleDoc))
	require.NoError(t, err)
	require.Equal(t, 2, scn.Len())
	assert.True(t, scn.IsStaticAccel())

	g0 := scn.Geometry(0)
	assert.Equal(t, "mesh0", g0.Name())
	assert.Equal(t, filter.KindTriangle, g0.Kind())
	assert.True(t, g0.Enabled())
	require.Equal(t, 2, g0.Len())
	assert.Equal(t, 1.0, g0.Bounds(0).Upper.X)

	g1 := scn.Geometry(1)
	assert.False(t, g1.Enabled())
	assert.Equal(t, filter.KindCurve, g1.Kind())
}

func TestJSONLoader_UnknownKindDefaultsUnknown(t *testing.T) {
	doc := `{"geometries":[{"name":"x","kind":"sphere","bounds":[[0,0,0,1,1,1]]}]}`
	scn, err := (&JSONLoader{}).Load(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, filter.KindUnknown, scn.Geometry(0).Kind())
}

func TestJSONLoader_InvalidJSONErrors(t *testing.T) {
	_, err := (&JSONLoader{}).Load(context.Background(), strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestRegistry_GetAndLoad(t *testing.T) {
	r := NewRegistry()
	r.Register(&JSONLoader{})

	l, ok := r.Get("json")
	require.True(t, ok)
	assert.Equal(t, "json", l.Name())

	scn, err := r.Load(context.Background(), "json", strings.NewReader(sampleDoc))
	require.NoError(t, err)
	assert.Equal(t, 2, scn.Len())
}

func TestRegistry_UnknownFormatErrors(t *testing.T) {
	r := NewRegistry()
	_, err := r.Load(context.Background(), "obj", strings.NewReader(""))
	assert.Error(t, err)
}

func TestDefaultRegistry_HasJSONLoader(t *testing.T) {
	formats := DefaultRegistry.Formats()
	assert.Contains(t, formats, "json")
}
