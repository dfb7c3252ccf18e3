package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/lange-studios/gobvh/internal/bvhcore"
)

var (
	benchInput      string
	benchFormat     string
	benchRepeat     int
	benchStrategies []string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Compare builder strategies over a scene",
	Long: `Run the requested strategies over the same scene file repeat
times each and print average wall-clock duration and tree shape for each,
useful for judging whether SAH's extra build cost over Morton pays for
itself on a given scene.`,
	RunE: runBench,
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().StringVarP(&benchInput, "input", "i", "", "scene file to build (required)")
	benchCmd.Flags().StringVarP(&benchFormat, "format", "f", "json", "scene format (loader name)")
	benchCmd.Flags().IntVar(&benchRepeat, "repeat", 3, "number of builds to average per strategy")
	benchCmd.Flags().StringSliceVar(&benchStrategies, "strategy", []string{"sah", "morton"}, "strategies to compare")
	benchCmd.MarkFlagRequired("input")
}

type benchResult struct {
	Strategy   string
	Runs       int
	AvgMS      float64
	NodeCount  int
	LeafCount  int
	PrimCount  int
}

func runBench(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	c := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if benchRepeat < 1 {
		return fmt.Errorf("--repeat must be at least 1")
	}

	results := make([]benchResult, 0, len(benchStrategies))
	for _, strategyName := range benchStrategies {
		settings := bvhcore.SettingsFromConfig(c.Builder)
		settings.Strategy = bvhcore.Strategy(strategyName)

		var total time.Duration
		var lastStats bvhcore.BuildStats
		for i := 0; i < benchRepeat; i++ {
			scn, err := loadScene(ctx, benchInput, benchFormat)
			if err != nil {
				return err
			}

			builder := bvhcore.NewBuilder(settings, nil)
			start := time.Now()
			bvh, err := builder.Build(ctx, scn)
			if err != nil {
				return fmt.Errorf("strategy %s run %d failed: %w", strategyName, i, err)
			}
			total += time.Since(start)
			lastStats = bvh.Stats
		}

		avgMS := float64(total.Milliseconds()) / float64(benchRepeat)
		results = append(results, benchResult{
			Strategy:  strategyName,
			Runs:      benchRepeat,
			AvgMS:     avgMS,
			NodeCount: lastStats.NodeCount,
			LeafCount: lastStats.LeafCount,
			PrimCount: lastStats.PrimCount,
		})
		log.Info("strategy %-7s avg %.2f ms over %d runs (%d nodes, %d leaves)", strategyName, avgMS, benchRepeat, lastStats.NodeCount, lastStats.LeafCount)
	}

	fmt.Println()
	fmt.Printf("%-8s %10s %8s %8s %8s\n", "strategy", "avg(ms)", "nodes", "leaves", "prims")
	for _, r := range results {
		fmt.Printf("%-8s %10.2f %8d %8d %8d\n", r.Strategy, r.AvgMS, r.NodeCount, r.LeafCount, r.PrimCount)
	}

	return nil
}
