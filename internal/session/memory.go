package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the process-local store used with a single bot instance.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore builds a store; a zero ttl keeps sessions until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session), ttl: ttl, now: time.Now}
}

func (m *MemoryStore) Get(_ context.Context, submitterID int64) (Session, bool, error) {
	m.mu.RLock()
	s, ok := m.sessions[submitterID]
	m.mu.RUnlock()
	if !ok {
		return Session{}, false, nil
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		m.mu.Lock()
		if cur, ok := m.sessions[submitterID]; ok && cur.UpdatedAt.Equal(s.UpdatedAt) {
			delete(m.sessions, submitterID)
		}
		m.mu.Unlock()
		return Session{}, false, nil
	}
	return s, true, nil
}

func (m *MemoryStore) Put(_ context.Context, s Session) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = m.now()
	}
	m.mu.Lock()
	m.sessions[s.SubmitterID] = s
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, submitterID int64) error {
	m.mu.Lock()
	delete(m.sessions, submitterID)
	m.mu.Unlock()
	return nil
}

// Len reports how many sessions are held.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
