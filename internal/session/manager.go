package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSessions = 1000
	DefaultSessionTTL  = 4 * time.Hour
)

// Manager mounts and unmounts sessions. Sessions expire after ttl without
// use, and the least recently used one is evicted when size is reached.
type Manager struct {
	deps     Deps
	sessions *expirable.LRU[string, *Session]
}

func NewManager(deps Deps, size int, ttl time.Duration) *Manager {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		deps: deps,
		sessions: expirable.NewLRU[string, *Session](size, func(id string, s *Session) {
			s.Close()
		}, ttl),
	}
}

// Mount creates a fresh session.
func (m *Manager) Mount() *Session {
	id := uuid.NewString()
	s := New(id, m.deps)
	m.sessions.Add(id, s)
	debugLog("[session] %s mounted", id)
	return s
}

// Get returns a live session and refreshes its expiry.
func (m *Manager) Get(id string) (*Session, bool) {
	if id == "" {
		return nil, false
	}
	s, ok := m.sessions.Get(id)
	if !ok || s.Closed() {
		return nil, false
	}
	m.sessions.Add(id, s)
	return s, true
}

// Unmount tears the session down. Unknown ids are ignored.
func (m *Manager) Unmount(id string) {
	m.sessions.Remove(id)
}

func (m *Manager) Len() int {
	return m.sessions.Len()
}

// Shutdown unmounts every session.
func (m *Manager) Shutdown() {
	m.sessions.Purge()
}
