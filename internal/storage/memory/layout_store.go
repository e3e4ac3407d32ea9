package memory

import (
	"context"
	"sort"
	"sync"

	"telemetry-lab/internal/domain"
	"telemetry-lab/internal/storage"
)

// LayoutStore is an in-memory implementation of storage.LayoutStore.
type LayoutStore struct {
	mu   sync.RWMutex
	data map[string]*domain.LayoutRecord // keyed by name
}

// NewLayoutStore creates a new in-memory layout store.
func NewLayoutStore() *LayoutStore {
	return &LayoutStore{
		data: make(map[string]*domain.LayoutRecord),
	}
}

// Compile-time interface check.
var _ storage.LayoutStore = (*LayoutStore)(nil)

// Save inserts or replaces the layout under its name.
func (s *LayoutStore) Save(_ context.Context, rec *domain.LayoutRecord) error {
	if rec == nil || rec.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	recCopy := *rec
	recCopy.Document = append([]byte(nil), rec.Document...)
	s.data[rec.Name] = &recCopy
	return nil
}

// Get retrieves a layout by name. Returns ErrNotFound if not exists.
func (s *LayoutStore) Get(_ context.Context, name string) (*domain.LayoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	recCopy := *rec
	recCopy.Document = append([]byte(nil), rec.Document...)
	return &recCopy, nil
}

// List returns all layout names, sorted.
func (s *LayoutStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a layout by name. Returns ErrNotFound if not exists.
func (s *LayoutStore) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[name]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, name)
	return nil
}
