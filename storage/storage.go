package storage

import (
	"context"
	"sync"

	"github.com/tracebeam/courier/types"
)

// KV is a durable keyed slot store.
//
// Implementations MUST be safe for concurrent use. Get returns
// types.ErrKeyNotFound when no value exists for the key.
type KV interface {
	// Get returns the value stored under key.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - key: The slot key
	//
	// Returns:
	//   - []byte: The stored value
	//   - error: types.ErrKeyNotFound if the key has no value
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any existing value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the value stored under key. Deleting an absent key
	// is not an error.
	Delete(ctx context.Context, key string) error
}

// MemoryStore is an in-memory KV implementation.
//
// Values do not survive process restarts. Use it in tests or when the
// host accepts losing pending events on shutdown.
type MemoryStore struct {
	mu    sync.RWMutex
	slots map[string][]byte
}

// Compile-time assertion that MemoryStore implements KV.
var _ KV = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{slots: make(map[string][]byte)}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.slots[key]
	if !ok {
		return nil, types.ErrKeyNotFound
	}

	out := make([]byte, len(value))
	copy(out, value)

	return out, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.slots[key] = stored

	return nil
}

// Delete removes the value stored under key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.slots, key)

	return nil
}
