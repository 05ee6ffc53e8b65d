package testsupport

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Lllllllleong/bookcastflow/internal/pipeline"
)

// ObjectStore is an in-memory pipeline.ObjectStore.
type ObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	writes  map[string]int
}

var _ pipeline.ObjectStore = (*ObjectStore)(nil)

func NewObjectStore() *ObjectStore {
	return &ObjectStore{
		objects: make(map[string][]byte),
		writes:  make(map[string]int),
	}
}

func (s *ObjectStore) Write(_ context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
	s.writes[path]++
	return "mem://" + path, nil
}

func (s *ObjectStore) WriteIfAbsent(_ context.Context, path string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[path]; !ok {
		s.objects[path] = append([]byte(nil), data...)
		s.writes[path]++
	}
	return "mem://" + path, nil
}

func (s *ObjectStore) Download(_ context.Context, path string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", path, pipeline.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Put stores an object without counting it as a write.
func (s *ObjectStore) Put(path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), data...)
}

// WriteCount returns how many times path was written.
func (s *ObjectStore) WriteCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[path]
}

// Paths lists stored object paths in sorted order.
func (s *ObjectStore) Paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	paths := make([]string, 0, len(s.objects))
	for p := range s.objects {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
