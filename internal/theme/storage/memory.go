// Package storage implements theme object storage backends.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"storefront/internal/theme/ports"
	"storefront/pkg/platform/sentinel"
)

type memoryFile struct {
	data     []byte
	modified time.Time
}

// InMemory keeps theme files per store. Used by tests and the embedded demo theme.
type InMemory struct {
	mu    sync.RWMutex
	files map[string]map[string]memoryFile
}

func NewInMemory() *InMemory {
	return &InMemory{files: make(map[string]map[string]memoryFile)}
}

// Put stores or replaces a file.
func (s *InMemory) Put(storeID, path string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.files[storeID] == nil {
		s.files[storeID] = make(map[string]memoryFile)
	}
	s.files[storeID][path] = memoryFile{data: append([]byte(nil), data...), modified: time.Now()}
}

// PutAll stores every path/content pair for storeID.
func (s *InMemory) PutAll(storeID string, files map[string]string) {
	for p, content := range files {
		s.Put(storeID, p, []byte(content))
	}
}

func (s *InMemory) Remove(storeID, path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.files[storeID], path)
}

func (s *InMemory) ListFiles(_ context.Context, storeID string) ([]ports.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ports.FileInfo, 0, len(s.files[storeID]))
	for p, f := range s.files[storeID] {
		out = append(out, ports.FileInfo{Path: p, Size: int64(len(f.data)), LastModified: f.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *InMemory) ReadFile(_ context.Context, storeID, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.files[storeID][path]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return append([]byte(nil), f.data...), nil
}
