package registry

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Store loads and saves the whole registry. There is no partial write
// and no locking: concurrent writers race and the last Save wins.
type Store interface {
	Load(ctx context.Context) (*Registry, error)
	Save(ctx context.Context, reg *Registry) error
}

// StoreError reports a failed read or write of the registry. It is never
// swallowed by callers.
type StoreError struct {
	Op   string
	Path string
	Err  error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("registry %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// FileStore persists the registry as a YAML file.
type FileStore struct {
	path string
}

// NewFileStore returns a store backed by the YAML file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the registry file path.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(ctx context.Context) (*Registry, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StoreError{Op: "read", Path: s.path, Err: err}
	}
	reg, err := Decode(data)
	if err != nil {
		return nil, &StoreError{Op: "parse", Path: s.path, Err: err}
	}
	if err := Validate(reg); err != nil {
		return nil, &StoreError{Op: "validate", Path: s.path, Err: err}
	}
	return reg, nil
}

// Save rewrites the file in full via a temp file and rename.
func (s *FileStore) Save(ctx context.Context, reg *Registry) error {
	data, err := Encode(reg)
	if err != nil {
		return &StoreError{Op: "encode", Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	//nolint:gosec // G302: registry file is checked into the repository
	if err := os.Chmod(tmpPath, 0644); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return &StoreError{Op: "write", Path: s.path, Err: err}
	}
	return nil
}

// Decode parses registry YAML.
func Decode(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Encode renders reg as block-style YAML with every mapping's keys sorted,
// so rewrites produce reproducible diffs.
func Encode(reg *Registry) ([]byte, error) {
	var node yaml.Node
	if err := node.Encode(reg); err != nil {
		return nil, err
	}
	sortMappingKeys(&node)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&node); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func sortMappingKeys(n *yaml.Node) {
	if n.Kind == yaml.MappingNode {
		pairs := make([][2]*yaml.Node, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, [2]*yaml.Node{n.Content[i], n.Content[i+1]})
		}
		sort.SliceStable(pairs, func(i, j int) bool {
			return pairs[i][0].Value < pairs[j][0].Value
		})
		n.Content = n.Content[:0]
		for _, p := range pairs {
			n.Content = append(n.Content, p[0], p[1])
		}
	}
	n.Style &^= yaml.FlowStyle
	for _, c := range n.Content {
		sortMappingKeys(c)
	}
}

// MemoryStore keeps the registry in memory as encoded YAML so that every
// Load returns an independent copy, like re-reading a file.
type MemoryStore struct {
	mu    sync.Mutex
	data  []byte
	saves int
}

// NewMemoryStore seeds a store with reg.
func NewMemoryStore(reg *Registry) (*MemoryStore, error) {
	data, err := Encode(reg)
	if err != nil {
		return nil, err
	}
	return &MemoryStore{data: data}, nil
}

func (s *MemoryStore) Load(ctx context.Context) (*Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reg, err := Decode(s.data)
	if err != nil {
		return nil, &StoreError{Op: "parse", Path: "memory", Err: err}
	}
	return reg, nil
}

func (s *MemoryStore) Save(ctx context.Context, reg *Registry) error {
	data, err := Encode(reg)
	if err != nil {
		return &StoreError{Op: "encode", Path: "memory", Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = data
	s.saves++
	return nil
}

// Saves returns the number of Save calls.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

// Bytes returns the current encoded registry.
func (s *MemoryStore) Bytes() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.data...)
}
