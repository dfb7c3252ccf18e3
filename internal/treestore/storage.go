// Package treestore persists and retrieves built tree blobs: the
// serialized node/leaf arrays of a completed BVH, compressed and pushed to
// either the local filesystem or Tencent COS, for the CLI's build --cache
// flag.
package treestore

import (
	"context"
	"fmt"
	"io"

	"github.com/lange-studios/gobvh/pkg/config"
)

// Storage defines object storage operations for tree blobs.
type Storage interface {
	// Upload uploads data from reader to the specified key.
	Upload(ctx context.Context, key string, reader io.Reader) error

	// Download downloads data from the specified key.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete deletes the object at the specified key.
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists at the specified key.
	Exists(ctx context.Context, key string) (bool, error)

	// GetURL returns the URL or path for the specified key.
	GetURL(key string) string
}

// Type identifies a storage backend.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New creates a Storage backend from cfg.
func New(cfg config.StorageConfig) (Storage, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch Type(cfg.Type) {
	case TypeCOS:
		return NewCOSStorage(COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalStorage(cfg.LocalPath)
	}
}

// ValidateConfig validates a StorageConfig before New constructs a backend.
func ValidateConfig(cfg config.StorageConfig) error {
	t := Type(cfg.Type)
	if t == "" {
		t = TypeLocal
	}

	switch t {
	case TypeLocal:
		if cfg.LocalPath == "" {
			return fmt.Errorf("treestore: local storage path is required")
		}
	case TypeCOS:
		if cfg.Bucket == "" {
			return fmt.Errorf("treestore: COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("treestore: COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("treestore: COS credentials are required")
		}
	default:
		return fmt.Errorf("treestore: unsupported storage type: %s", cfg.Type)
	}

	switch cfg.Compress {
	case "", "none", "gzip", "zstd":
	default:
		return fmt.Errorf("treestore: unsupported compression: %s", cfg.Compress)
	}

	return nil
}
