package bvhcore

import (
	"context"
	"testing"

	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func simpleScene(n int) *fakeScene {
	bounds := make([]AABB, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		bounds[i] = AABB{Lower: Vec3{x, 0, 0}, Upper: Vec3{x + 0.5, 1, 1}}
	}
	return &fakeScene{geoms: []Geometry{&fakeGeometry{enabled: true, name: "g", bounds: bounds}}}
}

func TestBuilder_BuildSAHStrategy(t *testing.T) {
	settings := SettingsFromConfig(config.BuilderConfig{
		BranchingFactor: 2, MaxLeafSize: 4, MinLeafSize: 1,
		TraversalCost: 1, IntersectionCost: 1, NumBins: 16,
		SpatialSplits: false, SplitFactor: 0.2, Strategy: "sah",
	})
	b := NewBuilder(settings, nil)

	bvh, err := b.Build(context.Background(), simpleScene(40))
	require.NoError(t, err)
	require.True(t, bvh.Root.IsValid())
	assert.Equal(t, 40, bvh.Stats.PrimCount)
	assert.Equal(t, StrategySAH, bvh.Stats.Strategy)
	assert.Equal(t, 40, countLeafRecords(bvh.Store, bvh.Root))
}

func TestBuilder_BuildMortonStrategy(t *testing.T) {
	settings := SettingsFromConfig(config.BuilderConfig{
		BranchingFactor: 4, MaxLeafSize: 4, MinLeafSize: 1,
		TraversalCost: 1, IntersectionCost: 1, NumBins: 16,
		SpatialSplits: false, SplitFactor: 0.0, Strategy: "morton",
	})
	b := NewBuilder(settings, nil)

	bvh, err := b.Build(context.Background(), simpleScene(60))
	require.NoError(t, err)
	require.True(t, bvh.Root.IsValid())
	assert.Equal(t, StrategyMorton, bvh.Stats.Strategy)
	assert.Equal(t, 60, countLeafRecords(bvh.Store, bvh.Root))
}

func TestBuilder_EmptySceneProducesInvalidRoot(t *testing.T) {
	settings := SettingsFromConfig(config.BuilderConfig{Strategy: "sah", BranchingFactor: 2})
	b := NewBuilder(settings, nil)

	bvh, err := b.Build(context.Background(), &fakeScene{})
	require.NoError(t, err)
	assert.False(t, bvh.Root.IsValid())
}

func TestSettingsFromConfig_DefaultsWorkersToNumCPU(t *testing.T) {
	settings := SettingsFromConfig(config.BuilderConfig{MaxWorker: 0, Strategy: "sah"})
	assert.Greater(t, settings.NumWorkers, 0)
}

func TestSettingsFromConfig_PreservesExplicitWorkerCount(t *testing.T) {
	settings := SettingsFromConfig(config.BuilderConfig{MaxWorker: 3, Strategy: "sah"})
	assert.Equal(t, 3, settings.NumWorkers)
}
