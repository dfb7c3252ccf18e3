// Package config provides configuration management for the builder service.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Builder   BuilderConfig   `mapstructure:"builder"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Log       LogConfig       `mapstructure:"log"`
}

// BuilderConfig holds BVH construction configuration.
type BuilderConfig struct {
	DataDir          string  `mapstructure:"data_dir"`
	MaxWorker        int     `mapstructure:"max_worker"`
	BranchingFactor  int     `mapstructure:"branching_factor"`
	MaxLeafSize      int     `mapstructure:"max_leaf_size"`
	MinLeafSize      int     `mapstructure:"min_leaf_size"`
	TraversalCost    float64 `mapstructure:"traversal_cost"`    // Ct in the SAH cost model
	IntersectionCost float64 `mapstructure:"intersection_cost"` // Ci in the SAH cost model
	NumBins          int     `mapstructure:"num_bins"`
	SpatialSplits    bool    `mapstructure:"spatial_splits"`
	SplitFactor      float64 `mapstructure:"split_factor"` // spatial-split replication slots, as a fraction of the primitive count
	Strategy         string  `mapstructure:"strategy"`     // "sah" or "morton"
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	Type     string `mapstructure:"type"` // postgres, mysql, or sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	MaxConns int    `mapstructure:"max_conns"`
}

// StorageConfig holds object storage configuration for built tree blobs.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // cos or local
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	SecretID  string `mapstructure:"secret_id"`
	SecretKey string `mapstructure:"secret_key"`
	Domain    string `mapstructure:"domain"`     // e.g., "myqcloud.com"
	Scheme    string `mapstructure:"scheme"`     // e.g., "https" or "http"
	LocalPath string `mapstructure:"local_path"` // for local storage
	Compress  string `mapstructure:"compress"`   // "none", "gzip", or "zstd"
}

// TelemetryConfig holds distributed tracing configuration.
type TelemetryConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
	Enabled     bool    `mapstructure:"enabled"`
}

// SchedulerConfig holds build-scheduler configuration.
type SchedulerConfig struct {
	PollInterval  int `mapstructure:"poll_interval"` // in seconds
	WorkerCount   int `mapstructure:"worker_count"`
	PrioritySlots int `mapstructure:"priority_slots"`
	TaskBatchSize int `mapstructure:"task_batch_size"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"` // json or text
}

// Load reads configuration from the specified file path.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/gobvh")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else if os.IsNotExist(err) {
			fmt.Printf("Config file %s not found, using defaults\n", configPath)
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an in-memory buffer (useful for testing).
func LoadFromReader(configType string, content []byte) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigType(configType)
	if err := v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Builder defaults
	v.SetDefault("builder.data_dir", "./data")
	v.SetDefault("builder.max_worker", 5)
	v.SetDefault("builder.branching_factor", 2)
	v.SetDefault("builder.max_leaf_size", 8)
	v.SetDefault("builder.min_leaf_size", 1)
	v.SetDefault("builder.traversal_cost", 1.0)
	v.SetDefault("builder.intersection_cost", 1.0)
	v.SetDefault("builder.num_bins", 32)
	v.SetDefault("builder.spatial_splits", true)
	v.SetDefault("builder.split_factor", 0.3)
	v.SetDefault("builder.strategy", "sah")

	// Database defaults
	v.SetDefault("database.type", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.max_conns", 10)

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local_path", "./storage")
	v.SetDefault("storage.compress", "zstd")

	// Telemetry defaults
	v.SetDefault("telemetry.service_name", "gobvh")
	v.SetDefault("telemetry.sample_ratio", 1.0)
	v.SetDefault("telemetry.enabled", false)

	// Scheduler defaults
	v.SetDefault("scheduler.poll_interval", 2)
	v.SetDefault("scheduler.worker_count", 5)
	v.SetDefault("scheduler.priority_slots", 2)
	v.SetDefault("scheduler.task_batch_size", 10)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.output_path", "./logs")
	v.SetDefault("log.format", "text")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Database.Type {
	case "postgres", "mysql":
		if c.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
	case "sqlite":
		// sqlite dials a local file, not a host.
	default:
		return fmt.Errorf("unsupported database type: %s", c.Database.Type)
	}

	// Storage config validation is delegated to the treestore package.

	if c.Scheduler.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.Builder.BranchingFactor < 2 {
		return fmt.Errorf("branching factor must be at least 2")
	}
	if c.Builder.MaxLeafSize < c.Builder.MinLeafSize {
		return fmt.Errorf("max leaf size must be >= min leaf size")
	}
	if c.Builder.Strategy != "sah" && c.Builder.Strategy != "morton" {
		return fmt.Errorf("unsupported build strategy: %s", c.Builder.Strategy)
	}

	return nil
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *Config) EnsureDataDir() error {
	if c.Builder.DataDir == "" {
		return nil
	}
	return os.MkdirAll(c.Builder.DataDir, 0755)
}

// GetRunDir returns the build-run-specific directory path.
func (c *Config) GetRunDir(runUUID string) string {
	return filepath.Join(c.Builder.DataDir, runUUID)
}
