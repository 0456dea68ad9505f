package storage

import (
	"context"
	"sync"
)

// InMemoryStore implements Store in process memory. Stores opened for the
// same profile through the registry share their contents, which mirrors two
// handles on one state file.
type InMemoryStore struct {
	data *memoryData

	mu     sync.Mutex
	closed bool
}

type memoryData struct {
	sync.RWMutex
	values map[string]string
}

// Global in-memory data shared by registry-opened stores, keyed by profile.
var globalInMemoryStore = struct {
	sync.Mutex
	profiles map[string]*memoryData
}{
	profiles: make(map[string]*memoryData),
}

// NewInMemoryStore creates a private, empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{data: &memoryData{values: make(map[string]string)}}
}

// OpenInMemoryStore returns a store over the shared in-memory data of
// profile.
func OpenInMemoryStore(profile string) *InMemoryStore {
	globalInMemoryStore.Lock()
	defer globalInMemoryStore.Unlock()
	d, ok := globalInMemoryStore.profiles[profile]
	if !ok {
		d = &memoryData{values: make(map[string]string)}
		globalInMemoryStore.profiles[profile] = d
	}
	return &InMemoryStore{data: d}
}

// ClearAllInMemoryStores drops all shared in-memory data (for testing).
func ClearAllInMemoryStores() {
	globalInMemoryStore.Lock()
	globalInMemoryStore.profiles = make(map[string]*memoryData)
	globalInMemoryStore.Unlock()
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.check(ctx); err != nil {
		return "", false, err
	}
	s.data.RLock()
	defer s.data.RUnlock()
	v, ok := s.data.values[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(ctx context.Context, key, value string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.data.Lock()
	s.data.values[key] = value
	s.data.Unlock()
	return nil
}

func (s *InMemoryStore) Delete(ctx context.Context, key string) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	s.data.Lock()
	delete(s.data.values, key)
	s.data.Unlock()
	return nil
}

// Close releases any resources (no-op apart from rejecting later calls).
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) check(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Ensure InMemoryStore implements Store at compile time
var _ Store = (*InMemoryStore)(nil)
