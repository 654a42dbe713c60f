//go:build gcp

package artifacts

import (
	"context"
	"fmt"
)

func newGCSStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required for GCS storage")
	}
	return NewGCSStore(ctx, GCSStoreConfig{
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	})
}
