package artifacts

import (
	"context"
	"fmt"
	"path/filepath"
)

// StoreType represents the type of object storage backend.
type StoreType string

const (
	StoreTypeFS     StoreType = "fs"
	StoreTypeS3     StoreType = "s3"
	StoreTypeGCS    StoreType = "gcs"
	StoreTypeMemory StoreType = "memory"
)

// StoreConfig selects and configures a backend.
type StoreConfig struct {
	Type     StoreType
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string
	DataDir  string // Base directory for the filesystem store
}

// NewStore creates a store for cfg.Type. An empty type means S3.
func NewStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	switch cfg.Type {
	case StoreTypeS3, "":
		return newS3Store(ctx, cfg)
	case StoreTypeGCS:
		return newGCSStore(ctx, cfg)
	case StoreTypeFS:
		dataDir := cfg.DataDir
		if dataDir == "" {
			dataDir = "data"
		}
		return NewFileStore(filepath.Join(dataDir, cfg.Bucket))
	case StoreTypeMemory:
		return NewMemoryStore(cfg.Bucket), nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

func newS3Store(ctx context.Context, cfg StoreConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for S3 storage")
	}
	region := cfg.Region
	if region == "" {
		region = "eu-west-2"
	}
	return NewS3Store(ctx, S3StoreConfig{
		Bucket:   cfg.Bucket,
		Region:   region,
		Endpoint: cfg.Endpoint,
		Prefix:   cfg.Prefix,
	})
}
