package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/civiclens/webclient/types"
)

type memoryEntry struct {
	session   types.Session
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Entries expire lazily.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore constructs a memory store. A zero ttl keeps entries until
// they are deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, id string) (types.Session, error) {
	m.mu.RLock()
	entry, ok := m.entries[id]
	m.mu.RUnlock()
	if !ok {
		return types.Session{}, ErrNotFound
	}
	if !entry.expiresAt.IsZero() && !m.now().Before(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, id)
		m.mu.Unlock()
		return types.Session{}, ErrNotFound
	}
	return entry.session, nil
}

func (m *MemoryStore) Put(_ context.Context, id string, session types.Session) error {
	entry := memoryEntry{session: session}
	if m.ttl > 0 {
		entry.expiresAt = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	m.entries[id] = entry
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.entries, id)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Close() error { return nil }
