package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/lange-studios/gobvh/pkg/config"
	"github.com/lange-studios/gobvh/pkg/telemetry"
	"github.com/lange-studios/gobvh/pkg/utils"
)

var (
	verbose    bool
	configPath string

	logger utils.Logger
	cfg    *config.Config

	telemetryShutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "bvhctl",
	Short: "Build, benchmark, and serve BVH construction",
	Long: `bvhctl drives the bounding volume hierarchy construction library
from the command line: build a tree from a scene file, benchmark the two
builder strategies against each other, or run the package as a long-lived
build service that pulls requests from a filesystem watch or an HTTP
endpoint.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logLevel := utils.LevelInfo
		if verbose {
			logLevel = utils.LevelDebug
		}
		logger = utils.NewDefaultLogger(logLevel, os.Stdout)

		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded

		shutdown, err := telemetry.Init(context.Background())
		if err != nil {
			logger.Warn("telemetry init failed, continuing without tracing: %v", err)
			shutdown = nil
		}
		telemetryShutdown = shutdown
		if telemetry.Enabled() {
			logger.Info("tracing enabled, exporting to %s", telemetry.GetConfig().Endpoint)
		}
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if telemetryShutdown != nil {
			if err := telemetryShutdown(context.Background()); err != nil {
				logger.Warn("telemetry shutdown failed: %v", err)
			}
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a config file (defaults to ./config.yaml)")

	binName := BinName()
	rootCmd.Example = `  # Build a tree from a scene file and print a text report
  ` + binName + ` build -i scene.json

  # Build, persist the run, and cache the serialized tree
  ` + binName + ` build -i scene.json --persist --cache

  # Compare SAH and Morton builders over the same scene
  ` + binName + ` bench -i scene.json --repeat 5

  # Run as a build service watching a directory for new scenes
  ` + binName + ` serve --watch-dir ./incoming`
}

// GetLogger returns the configured logger.
func GetLogger() utils.Logger {
	return logger
}

// GetConfig returns the loaded configuration.
func GetConfig() *config.Config {
	return cfg
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
