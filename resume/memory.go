package resume

import (
	"context"
	"sync"
)

// MemoryStore provides an in-memory implementation of the Store interface.
// It is thread-safe and suitable for development, testing, and single-process
// deployments. For resumption across process restarts, use RedisStore.
type MemoryStore struct {
	mu      sync.RWMutex
	handles map[string]string
}

// NewMemoryStore creates a new in-memory handle store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		handles: make(map[string]string),
	}
}

// Load retrieves the stored handle for a session.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrInvalidID
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	handle, exists := s.handles[sessionID]
	if !exists {
		return "", ErrNotFound
	}
	return handle, nil
}

// Save stores the handle for a session, replacing any previous one.
func (s *MemoryStore) Save(_ context.Context, sessionID, handle string) error {
	if sessionID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.handles[sessionID] = handle
	return nil
}

// Clear removes the stored handle for a session.
func (s *MemoryStore) Clear(_ context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.handles, sessionID)
	return nil
}
