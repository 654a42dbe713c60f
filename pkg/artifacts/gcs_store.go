//go:build gcp

package artifacts

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
)

// GCSStore implements Store using Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string // Optional key prefix
}

// GCSStoreConfig holds configuration for GCSStore.
type GCSStoreConfig struct {
	Bucket string
	Prefix string // Optional key prefix
}

// NewGCSStore creates a new GCS-backed store.
func NewGCSStore(ctx context.Context, cfg GCSStoreConfig) (*GCSStore, error) {
	// Create GCS client (uses ADC by default)
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	return &GCSStore{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}, nil
}

func (s *GCSStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	attrs, err := s.client.Bucket(s.bucket).Object(s.prefix + key).Attrs(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, &StorageError{Op: "attrs", Key: key, Err: err}
	}
	return ObjectInfo{Key: key, Size: attrs.Size}, nil
}

func (s *GCSStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w := s.client.Bucket(s.bucket).Object(s.prefix + key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("gcs write failed: %w", err)}
	}
	if err := w.Close(); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("gcs close failed: %w", err)}
	}
	return nil
}

func (s *GCSStore) URI(key string) string {
	return fmt.Sprintf("gs://%s/%s%s", s.bucket, s.prefix, key)
}

// Close closes the GCS client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}
