package store

import (
	"sync"
	"time"
)

// Session binds a browser session to a signed-in user.
type Session struct {
	UserID    int64
	Username  string
	UpdatedAt time.Time
}

// SessionStore keeps sessions in memory. Entries idle for longer than the
// TTL are dropped on access.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Login records the user for the session, replacing any previous user.
func (m *SessionStore) Login(sessionID string, userID int64, username string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sessionID] = Session{UserID: userID, Username: username, UpdatedAt: m.now()}
}

// Get returns the session if it exists and has not expired. A hit refreshes it.
func (m *SessionStore) Get(sessionID string) (Session, bool) {
	if sessionID == "" {
		return Session{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	if m.ttl > 0 && m.now().Sub(s.UpdatedAt) > m.ttl {
		delete(m.sessions, sessionID)
		return Session{}, false
	}
	s.UpdatedAt = m.now()
	m.sessions[sessionID] = s
	return s, true
}

func (m *SessionStore) Logout(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

// Len reports the number of stored sessions, expired ones included.
func (m *SessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops every expired session.
func (m *SessionStore) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ttl <= 0 {
		return 0
	}
	n := 0
	now := m.now()
	for id, s := range m.sessions {
		if now.Sub(s.UpdatedAt) > m.ttl {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
