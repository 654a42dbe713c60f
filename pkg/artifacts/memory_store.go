package artifacts

import (
	"context"
	"sync"
)

// MemoryStore keeps objects in memory. Failure hooks let callers simulate
// backend errors such as missing credentials.
type MemoryStore struct {
	Bucket string

	// PutErr, when set, is consulted before every Put. A non-nil return
	// aborts the write.
	PutErr func(key string) error
	// StatErr, when set, is consulted before every Stat.
	StatErr func(key string) error

	mu      sync.RWMutex
	objects map[string][]byte
	puts    []string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(bucket string) *MemoryStore {
	return &MemoryStore{Bucket: bucket, objects: make(map[string][]byte)}
}

func (s *MemoryStore) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	if s.StatErr != nil {
		if err := s.StatErr(key); err != nil {
			return ObjectInfo{}, &StorageError{Op: "stat", Key: key, Err: err}
		}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return ObjectInfo{}, ErrObjectNotFound
	}
	return ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.PutErr != nil {
		if err := s.PutErr(key); err != nil {
			return &StorageError{Op: "put", Key: key, Err: err}
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = append([]byte(nil), data...)
	s.puts = append(s.puts, key)
	return nil
}

func (s *MemoryStore) URI(key string) string {
	return "mem://" + s.Bucket + "/" + key
}

// Get returns a copy of the object at key.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Puts returns the keys written so far, in order.
func (s *MemoryStore) Puts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.puts...)
}
