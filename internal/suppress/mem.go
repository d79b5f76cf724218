package suppress

import (
	"sync"
	"time"
)

var _ Store = (*MemStore)(nil)

// MemStore holds suppression windows in memory. Unit tests use it in place of
// a BoltStore, and watch mode falls back to it when chat cooldowns are off.
type MemStore struct {
	mu      sync.Mutex
	window  time.Duration
	expires map[string]int64 // key → unix expiry seconds
}

// NewMemStore creates an empty store with the given window.
func NewMemStore(window time.Duration) *MemStore {
	return &MemStore{window: window, expires: make(map[string]int64)}
}

func (m *MemStore) Allow(key string) bool {
	m.mu.Lock()
	expiry, ok := m.expires[key]
	m.mu.Unlock()
	return !ok || time.Now().Unix() >= expiry
}

func (m *MemStore) Record(key string) error {
	expiry := time.Now().Add(m.window).Unix()
	m.mu.Lock()
	m.expires[key] = expiry
	m.mu.Unlock()
	return nil
}

func (m *MemStore) Prune() error {
	now := time.Now().Unix()
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, expiry := range m.expires {
		if expiry <= now {
			delete(m.expires, k)
		}
	}
	return nil
}

// Path returns the empty string; there is no backing file.
func (m *MemStore) Path() string { return "" }

// Close does nothing; nothing is held open.
func (m *MemStore) Close() error { return nil }
