package advisor

import (
	"testing"

	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/pkg/bvherr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseSettings() bvhcore.Settings {
	return bvhcore.Settings{
		Strategy: bvhcore.StrategySAH,
		SAH:      bvhcore.DefaultSAHSettings(),
	}
}

func TestAdvise_NoWarningsProducesNoSuggestions(t *testing.T) {
	ctx := &RuleContext{
		Settings: baseSettings(),
		Stats: bvhcore.BuildStats{
			Strategy:             bvhcore.StrategySAH,
			PrimCount:            100,
			NodeCount:            20,
			SpatialSplits:        true,
			SpatialSplitsApplied: true,
		},
	}
	got := NewAdvisor().Advise(ctx)
	assert.Empty(t, got)
}

func TestAdvise_DepthLimitReachedSuggestsRaisingMinLeafSize(t *testing.T) {
	settings := baseSettings()
	ctx := &RuleContext{
		Settings: settings,
		Stats: bvhcore.BuildStats{
			Strategy: bvhcore.StrategySAH,
			Warnings: []error{
				bvherr.Wrap(bvherr.CodeDepthLimit, "depth limit 64 reached with 10 primitives remaining, force-emitting oversized leaf", nil),
			},
		},
	}
	got := NewAdvisor().Advise(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "depth_limit_reached", got[0].Rule)
	assert.Contains(t, got[0].Message, "MinLeafSize")
}

func TestAdvise_SpatialSplitBitBudgetMismatchSurfacesVerbatim(t *testing.T) {
	ctx := &RuleContext{
		Settings: baseSettings(),
		Stats: bvhcore.BuildStats{
			Strategy:             bvhcore.StrategySAH,
			SpatialSplits:        true,
			SpatialSplitsApplied: false,
		},
	}
	got := NewAdvisor().Advise(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "spatial_split_bit_budget", got[0].Rule)
	assert.Contains(t, got[0].Message, "geomID range exceeds")
}

func TestAdvise_SpatialSplitBitBudgetSilentWhenApplied(t *testing.T) {
	ctx := &RuleContext{
		Settings: baseSettings(),
		Stats: bvhcore.BuildStats{
			Strategy:             bvhcore.StrategySAH,
			SpatialSplits:        true,
			SpatialSplitsApplied: true,
		},
	}
	got := NewAdvisor().Advise(ctx)
	for _, s := range got {
		assert.NotEqual(t, "spatial_split_bit_budget", s.Rule)
	}
}

func TestAdvise_SAHCostOverheadFiresWhenTreeIsDisproportionatelyLarge(t *testing.T) {
	settings := baseSettings()
	settings.SAH.NumBins = 8
	ctx := &RuleContext{
		Settings: settings,
		Stats: bvhcore.BuildStats{
			Strategy:  bvhcore.StrategySAH,
			PrimCount: 10,
			NodeCount: 1000,
		},
	}
	got := NewAdvisor().Advise(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "sah_cost_overhead", got[0].Rule)
	assert.Contains(t, got[0].Message, "finer NumBins")
}

func TestAdvise_MortonStrategySkipsSAHOnlyRules(t *testing.T) {
	ctx := &RuleContext{
		Settings: bvhcore.Settings{Strategy: bvhcore.StrategyMorton, SAH: bvhcore.DefaultSAHSettings()},
		Stats: bvhcore.BuildStats{
			Strategy:  bvhcore.StrategyMorton,
			PrimCount: 10,
			NodeCount: 1000,
		},
	}
	got := NewAdvisor().Advise(ctx)
	assert.Empty(t, got)
}

func TestAdvise_IsIdempotent(t *testing.T) {
	ctx := &RuleContext{
		Settings: baseSettings(),
		Stats: bvhcore.BuildStats{
			Strategy: bvhcore.StrategySAH,
			Warnings: []error{bvherr.Wrap(bvherr.CodeDepthLimit, "depth limit 64 reached with 3 primitives remaining, force-emitting oversized leaf", nil)},
		},
	}
	a := NewAdvisor()
	first := a.Advise(ctx)
	second := a.Advise(ctx)
	assert.Equal(t, first, second)
}

func TestNewAdvisorWithRules_RunsOnlyGivenRules(t *testing.T) {
	called := false
	custom := Rule{Name: "custom", Check: func(ctx *RuleContext) []Suggestion {
		called = true
		return nil
	}}
	a := NewAdvisorWithRules([]Rule{custom})
	a.Advise(&RuleContext{Settings: baseSettings()})
	assert.True(t, called)
}
