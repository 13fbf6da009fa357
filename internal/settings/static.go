package settings

import (
	"context"
	"sync"
)

// Static is an in-memory Provider. Used in tests and as a bootstrap source
// before the durable store is reachable.
type Static struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewStatic creates a Static provider seeded with the given values.
func NewStatic(values map[string]string) *Static {
	m := make(map[string]string, len(values))
	for k, v := range values {
		m[k] = v
	}
	return &Static{values: m}
}

// Get returns the value for key and whether it was set.
func (s *Static) Get(ctx context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Set stores a value, overwriting any previous one.
func (s *Static) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}
