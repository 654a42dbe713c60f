package artifacts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrObjectNotFound is returned by Stat when no object exists at the key.
var ErrObjectNotFound = errors.New("object not found")

// ObjectInfo describes an existing object. Size is the only comparison
// signal the publisher uses; there is no content hash.
type ObjectInfo struct {
	Key  string
	Size int64
}

// Store defines the contract for the bronze object store.
type Store interface {
	// Stat reports existence and size. Missing objects yield ErrObjectNotFound.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Put creates or overwrites the object at key.
	Put(ctx context.Context, key string, data []byte, contentType string) error
	// URI returns the fully-qualified location of key.
	URI(key string) string
}

// StorageError wraps a backend failure that is not a plain not-found.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// FileStore is a filesystem-backed implementation of Store. Keys map to
// paths below baseDir.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileStore creates a store rooted at baseDir.
func NewFileStore(baseDir string) (*FileStore, error) {
	//nolint:gosec // G301: 0755 is intentional for shared archive directory
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to ensure archive dir: %w", err)
	}
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve archive dir: %w", err)
	}
	return &FileStore{baseDir: abs}, nil
}

func (s *FileStore) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key: %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

func (s *FileStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.path(key)
	if err != nil {
		return ObjectInfo{}, &StorageError{Op: "stat", Key: key, Err: err}
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectInfo{}, ErrObjectNotFound
		}
		return ObjectInfo{}, &StorageError{Op: "stat", Key: key, Err: err}
	}
	return ObjectInfo{Key: key, Size: fi.Size()}, nil
}

func (s *FileStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(key)
	if err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}
	//nolint:gosec // G301: 0755 is intentional for shared archive directory
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &StorageError{Op: "put", Key: key, Err: err}
	}

	// Write to temp, then rename
	tmpPath := path + ".tmp"
	//nolint:gosec // G306: 0644 is intentional for readable archive files
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("failed to write object: %w", err)}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return &StorageError{Op: "put", Key: key, Err: fmt.Errorf("failed to commit object: %w", err)}
	}
	return nil
}

func (s *FileStore) URI(key string) string {
	return "file://" + filepath.ToSlash(filepath.Join(s.baseDir, filepath.FromSlash(key)))
}

// Read returns the bytes stored at key.
func (s *FileStore) Read(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path) //nolint:gosec // key validated above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return data, nil
}
