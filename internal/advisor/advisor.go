// Package advisor is a rule-based tuning advisor that reads a
// completed build's bvhcore.BuildStats and bvhcore.Settings and emits plain
// suggestions for the next build. It never touches the BVH or the
// Settings it is handed; Advise is a pure function of its RuleContext, so
// calling it twice on the same stats produces identical output.
package advisor

import (
	"fmt"

	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/pkg/bvherr"
)

// Suggestion is one piece of advice the advisor produced.
type Suggestion struct {
	Rule     string
	Severity string
	Message  string
}

// RuleContext carries everything a Rule needs to evaluate.
type RuleContext struct {
	Stats    bvhcore.BuildStats
	Settings bvhcore.Settings
}

// RuleCheckFunc evaluates one rule against ctx, returning zero or more
// suggestions.
type RuleCheckFunc func(ctx *RuleContext) []Suggestion

// Rule pairs a name with the function that evaluates it.
type Rule struct {
	Name  string
	Check RuleCheckFunc
}

// Advisor runs a fixed set of Rules over a RuleContext.
type Advisor struct {
	rules []Rule
}

// NewAdvisor returns an Advisor with the built-in rule set.
func NewAdvisor() *Advisor {
	return &Advisor{rules: defaultRules()}
}

// NewAdvisorWithRules returns an Advisor running exactly rules, for tests
// or callers wanting a narrower set than the defaults.
func NewAdvisorWithRules(rules []Rule) *Advisor {
	return &Advisor{rules: rules}
}

// Advise runs every rule against ctx and returns their suggestions in rule
// order. It reads ctx only; nothing about BuildStats or Settings is
// mutated, so repeated calls with the same ctx are side-effect free and
// return equal results.
func (a *Advisor) Advise(ctx *RuleContext) []Suggestion {
	var out []Suggestion
	for _, r := range a.rules {
		out = append(out, r.Check(ctx)...)
	}
	return out
}

func defaultRules() []Rule {
	return []Rule{
		{Name: "depth_limit_reached", Check: checkDepthLimitReached},
		{Name: "spatial_split_bit_budget", Check: checkSpatialSplitBitBudget},
		{Name: "sah_cost_overhead", Check: checkSAHCostOverhead},
	}
}

// checkDepthLimitReached flags builds where one or more ranges hit
// MaxDepth and were force-emitted as oversized leaves. A build that never
// needed to do this has no such warnings, so the rule fires only when the
// configured MinLeafSize is forcing splits deeper than MaxDepth allows.
func checkDepthLimitReached(ctx *RuleContext) []Suggestion {
	hits := 0
	for _, err := range ctx.Stats.Warnings {
		if bvherr.IsDepthLimit(err) {
			hits++
		}
	}
	if hits == 0 {
		return nil
	}
	return []Suggestion{{
		Rule:     "depth_limit_reached",
		Severity: "warning",
		Message: fmt.Sprintf(
			"%d range(s) hit the depth limit (%d) and were force-emitted as oversized leaves; "+
				"try raising MinLeafSize so splitting stops before MaxDepth is exhausted",
			hits, ctx.Settings.SAH.MaxDepth),
	}}
}

// checkSpatialSplitBitBudget flags the mismatch between a requested and an
// actually-applied spatial split setting: SpatialSplits reflects what was
// asked for, SpatialSplitsApplied reflects what SpatialSplitsAllowed's
// geomID bit-budget check actually permitted (bvhcore.NewSAHBuilder).
// When they disagree, the scene's geomID range disqualified spatial
// splits outright; surfacing this verbatim avoids a user concluding their
// SplitFactor setting is being ignored for no reason.
func checkSpatialSplitBitBudget(ctx *RuleContext) []Suggestion {
	if ctx.Stats.Strategy != bvhcore.StrategySAH {
		return nil
	}
	if ctx.Stats.SpatialSplits && !ctx.Stats.SpatialSplitsApplied {
		return []Suggestion{{
			Rule:     "spatial_split_bit_budget",
			Severity: "info",
			Message: "spatial splits were requested but disabled for this build: " +
				"the scene's geomID range exceeds the bit budget spatial references need",
		}}
	}
	return nil
}

// checkSAHCostOverhead compares a cost proxy built from NodeCount and
// PrimCount against the brute-force cost of testing every primitive
// directly. BuildStats does not retain the SAH cost the builder actually
// minimized over (it is a per-range scratch value, not a build-wide
// total), so this rule approximates it from the shape of the finished
// tree rather than re-deriving the exact figure.
func checkSAHCostOverhead(ctx *RuleContext) []Suggestion {
	if ctx.Stats.Strategy != bvhcore.StrategySAH || ctx.Stats.PrimCount == 0 {
		return nil
	}
	costs := ctx.Settings.SAH.Costs
	treeCost := costs.Traversal*float64(ctx.Stats.NodeCount) + costs.Intersection*float64(ctx.Stats.PrimCount)
	bruteCost := costs.Intersection * float64(ctx.Stats.PrimCount)
	if bruteCost <= 0 || treeCost < bruteCost*2.0 {
		return nil
	}

	numBins := ctx.Settings.SAH.NumBins
	var msg string
	switch {
	case numBins < 16:
		msg = fmt.Sprintf(
			"estimated traversal cost (%.1f) is well above the brute-force cost (%.1f) for %d bins; "+
				"try a finer NumBins to find tighter splits", treeCost, bruteCost, numBins)
	case numBins > 64:
		msg = fmt.Sprintf(
			"estimated traversal cost (%.1f) is well above the brute-force cost (%.1f) despite %d bins; "+
				"try a coarser NumBins, the extra resolution isn't paying for itself here", treeCost, bruteCost, numBins)
	default:
		msg = fmt.Sprintf(
			"estimated traversal cost (%.1f) is well above the brute-force cost (%.1f); "+
				"consider adjusting NumBins in either direction", treeCost, bruteCost)
	}
	return []Suggestion{{Rule: "sah_cost_overhead", Severity: "info", Message: msg}}
}
