package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/lange-studios/gobvh/internal/bvhcore"
	"github.com/lange-studios/gobvh/internal/repository"
	"github.com/lange-studios/gobvh/internal/scheduler"
	"github.com/lange-studios/gobvh/internal/scheduler/source"
	"github.com/lange-studios/gobvh/pkg/utils"
)

var (
	serveWatchDir string
	serveHTTPAddr string
	servePersist  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a long-lived build service",
	Long: `Start the build scheduler: one or more sources (a directory
watch, an HTTP submission endpoint) feed build requests into a bounded
worker pool that runs a full build for each. Use --persist to record
every completed run in the build-run repository.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveWatchDir, "watch-dir", "", "directory to watch for new scene files")
	serveCmd.Flags().StringVar(&serveHTTPAddr, "http-addr", ":8088", "listen address for the build-submission HTTP endpoint")
	serveCmd.Flags().BoolVar(&servePersist, "persist", true, "persist every completed build run to the repository")
}

func runServe(cmd *cobra.Command, args []string) error {
	log := GetLogger()
	c := GetConfig()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var repo *repository.GormRepository
	if servePersist {
		var err error
		repo, err = repository.Open(c.Database)
		if err != nil {
			return fmt.Errorf("open repository: %w", err)
		}
		defer repo.Close()
	}

	sources, err := buildSources(log)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("serve requires at least one source: pass --watch-dir and/or leave --http-addr set")
	}

	agg := source.NewAggregator(sources, 64, log)
	if err := agg.Start(ctx); err != nil {
		return fmt.Errorf("start sources: %w", err)
	}
	defer agg.Stop()

	settings := bvhcore.SettingsFromConfig(c.Builder)
	buildFn := func(ctx context.Context, req source.BuildRequest) error {
		return handleBuildRequest(ctx, log, repo, settings, req)
	}

	sched := scheduler.New(scheduler.FromConfig(c.Scheduler), agg, buildFn, log)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()

	log.Info("bvhctl serving: watch-dir=%q http-addr=%q persist=%v", serveWatchDir, serveHTTPAddr, servePersist)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down...")
	return nil
}

func buildSources(log utils.Logger) ([]source.Source, error) {
	var sources []source.Source

	if serveWatchDir != "" {
		fs, err := source.NewFSWatchSource(&source.Config{
			Type: source.TypeFSWatch,
			Name: "watch",
			Options: map[string]interface{}{
				"dir":    serveWatchDir,
				"format": "json",
			},
		})
		if err != nil {
			return nil, fmt.Errorf("create fswatch source: %w", err)
		}
		sources = append(sources, fs)
	}

	if serveHTTPAddr != "" {
		http := source.NewHTTPSourceWithOptions("api", &source.HTTPOptions{
			ListenAddr:   serveHTTPAddr,
			Path:         "/build-requests",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			MaxBodySize:  1 << 20,
		}, nil)
		sources = append(sources, http)
	}

	return sources, nil
}

func handleBuildRequest(ctx context.Context, log utils.Logger, repo *repository.GormRepository, settings bvhcore.Settings, req source.BuildRequest) error {
	scn, err := loadScene(ctx, req.ScenePath, req.SceneFormat)
	if err != nil {
		return fmt.Errorf("load scene %s: %w", req.ScenePath, err)
	}

	builder := bvhcore.NewBuilder(settings, nil)
	start := time.Now()
	bvh, err := builder.Build(ctx, scn)
	if err != nil {
		return fmt.Errorf("build %s: %w", req.ScenePath, err)
	}
	elapsed := time.Since(start)

	log.Info("built %s: %d prims, %d nodes, %d leaves in %v", req.ScenePath, bvh.Stats.PrimCount, bvh.Stats.NodeCount, bvh.Stats.LeafCount, elapsed)

	if repo == nil {
		return nil
	}

	warnings := make([]string, 0, len(bvh.Stats.Warnings))
	for _, w := range bvh.Stats.Warnings {
		warnings = append(warnings, w.Error())
	}
	run := &repository.BuildRun{
		SceneName:  req.ScenePath,
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
	if err := repo.Save(ctx, run); err != nil {
		log.Warn("persist build run for %s failed: %v", req.ScenePath, err)
	}
	return nil
}
