package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/lange-studios/gobvh/internal/advisor"
	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/internal/repository"
	"github.com/lange-studios/gobvh/internal/report"
	"github.com/lange-studios/gobvh/internal/scene"
	"github.com/lange-studios/gobvh/internal/treestore"
	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/lange-studios/gobvh/pkg/writer"
)

var (
	buildInput     string
	buildFormat    string
	buildPersist   bool
	buildCache     bool
	buildAdvise    bool
	buildReportFmt string
	buildOutput    string
	buildGzip      bool
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build a tree from a scene file",
	Long: `Load a scene description, run the configured builder strategy over
it, and report the result. Use --persist to record the run in the
build-run repository, --cache to upload the serialized tree to object
storage, and --advise to run the tuning advisor over the result.`,
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildInput, "input", "i", "", "scene file to build (required)")
	buildCmd.Flags().StringVarP(&buildFormat, "format", "f", "json", "scene format (loader name)")
	buildCmd.Flags().BoolVar(&buildPersist, "persist", false, "persist the build run to the repository")
	buildCmd.Flags().BoolVar(&buildCache, "cache", false, "serialize and upload the built tree to storage")
	buildCmd.Flags().BoolVar(&buildAdvise, "advise", false, "run the tuning advisor over the result")
	buildCmd.Flags().StringVar(&buildReportFmt, "report", "text", "report format: text, json, or markdown")
	buildCmd.Flags().StringVar(&buildOutput, "output", "", "write the build-run record as JSON to this file, independent of --persist")
	buildCmd.Flags().BoolVar(&buildGzip, "gzip", false, "gzip-compress the --output file")
	buildCmd.MarkFlagRequired("input")
}

func runBuild(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	c := GetConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scn, err := loadScene(ctx, buildInput, buildFormat)
	if err != nil {
		return err
	}

	settings := bvhcore.SettingsFromConfig(c.Builder)
	builder := bvhcore.NewBuilder(settings, nil)

	log.Info("building %s with strategy %s", buildInput, settings.Strategy)
	start := time.Now()
	bvh, err := builder.Build(ctx, scn)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	elapsed := time.Since(start)

	warnings := make([]string, 0, len(bvh.Stats.Warnings))
	for _, w := range bvh.Stats.Warnings {
		warnings = append(warnings, w.Error())
	}

	run := &repository.BuildRun{
		SceneName:  buildInput,
		Strategy:   string(bvh.Stats.Strategy),
		PrimCount:  bvh.Stats.PrimCount,
		NodeCount:  bvh.Stats.NodeCount,
		LeafCount:  bvh.Stats.LeafCount,
		NodeBytes:  bvh.Stats.NodeBytes,
		LeafBytes:  bvh.Stats.LeafBytes,
		DurationMS: elapsed.Milliseconds(),
		Warnings:   warnings,
		CreatedAt:  start,
	}

	if buildCache {
		key, err := cacheTree(ctx, c, bvh)
		if err != nil {
			log.Warn("cache upload failed: %v", err)
		} else {
			run.BlobKey = key
		}
	}

	if buildPersist {
		if err := persistRun(ctx, c, run); err != nil {
			log.Warn("persist failed: %v", err)
		}
	}

	if buildOutput != "" {
		if err := writeRunSnapshot(run, buildOutput, buildGzip); err != nil {
			log.Warn("write output snapshot failed: %v", err)
		}
	}

	var suggestions []advisor.Suggestion
	if buildAdvise {
		adv := advisor.NewAdvisor()
		suggestions = adv.Advise(&advisor.RuleContext{Stats: bvh.Stats, Settings: settings})
	}

	formatter, err := report.New(report.Kind(buildReportFmt))
	if err != nil {
		return err
	}
	out, err := formatter.Format(&report.Input{Run: run, Suggestions: suggestions})
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	fmt.Println(string(out))

	return nil
}

func loadScene(ctx context.Context, path, format string) (bvhcore.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open scene file: %w", err)
	}
	defer f.Close()

	registry := scene.NewRegistry()
	registry.Register(&scene.JSONLoader{})

	return registry.Load(ctx, format, f)
}

func cacheTree(ctx context.Context, c *config.Config, bvh *bvhcore.BVH) (string, error) {
	nodes, leaves, err := bvh.Store.Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize tree: %w", err)
	}
	blob := treestore.NewTreeBlob(nodes, leaves, uint64(bvh.Root))

	storage, err := treestore.New(c.Storage)
	if err != nil {
		return "", fmt.Errorf("open storage backend: %w", err)
	}

	key := fmt.Sprintf("blobs/%s.bin", blob.ContentHash)
	if err := treestore.Put(ctx, storage, key, blob, c.Storage.Compress); err != nil {
		return "", fmt.Errorf("upload tree blob: %w", err)
	}
	return key, nil
}

func writeRunSnapshot(run *repository.BuildRun, path string, gzipOut bool) error {
	if gzipOut {
		return writer.NewGzipWriter[*repository.BuildRun]().WriteToFile(run, path)
	}
	return writer.NewPrettyJSONWriter[*repository.BuildRun]().WriteToFile(run, path)
}

func persistRun(ctx context.Context, c *config.Config, run *repository.BuildRun) error {
	repo, err := repository.Open(c.Database)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	defer repo.Close()

	return repo.Save(ctx, run)
}
