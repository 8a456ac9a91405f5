package session

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	updatedAt time.Time
}

// MemoryStore keeps session values in process memory with an idle timeout.
type MemoryStore struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
	timeout time.Duration
	now     func() time.Time
}

// NewMemoryStore creates a store whose entries expire after timeout without writes.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		timeout: timeout,
		now:     time.Now,
	}
}

func (m *MemoryStore) expired(e memoryEntry) bool {
	return m.now().Sub(e.updatedAt) > m.timeout
}

// Get returns the value for key if present and not expired.
func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || m.expired(e) {
		return "", false, nil
	}
	return e.value, true, nil
}

// Set stores value under key.
func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{value: value, updatedAt: m.now()}
	return nil
}

// SetIfAbsent stores value unless a live entry exists, under a single lock.
func (m *MemoryStore) SetIfAbsent(_ context.Context, key, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && !m.expired(e) {
		return e.value, nil
	}
	m.entries[key] = memoryEntry{value: value, updatedAt: m.now()}
	return value, nil
}

// CompareAndSwap stores value when the live entry holds old or is missing.
func (m *MemoryStore) CompareAndSwap(_ context.Context, key, old, value string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok && !m.expired(e) && e.value != old {
		return e.value, nil
	}
	m.entries[key] = memoryEntry{value: value, updatedAt: m.now()}
	return value, nil
}

// Delete removes a key.
func (m *MemoryStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cleanup removes expired entries and returns how many were dropped.
func (m *MemoryStore) Cleanup() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if m.expired(e) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// RunCleanup calls Cleanup every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
