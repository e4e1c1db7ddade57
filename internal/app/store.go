package app

import (
	"sync"
	"time"
)

// SessionStore is the process-wide chat-to-session map. It only guards the map
// itself; each session carries its own lock, so unrelated chats never serialize
// against each other.
type SessionStore struct {
	rules Rules
	now   func() time.Time

	mu       sync.RWMutex
	sessions map[int64]*Session
}

func NewSessionStore(rules Rules) *SessionStore {
	return NewSessionStoreWithClock(rules, time.Now)
}

// NewSessionStoreWithClock allows deterministic timestamps in tests.
func NewSessionStoreWithClock(rules Rules, now func() time.Time) *SessionStore {
	return &SessionStore{
		rules:    rules,
		now:      now,
		sessions: make(map[int64]*Session),
	}
}

func (s *SessionStore) GetOrCreate(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[chatID]; ok {
		return session
	}
	session := newSessionWithClock(chatID, s.rules, s.now)
	s.sessions[chatID] = session
	return session
}

func (s *SessionStore) Get(chatID int64) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[chatID]
	return session, ok
}

// Reset installs a fresh session for the chat, replacing any existing one.
// Used when a rematch seeds a new game under the same key.
func (s *SessionStore) Reset(chatID int64) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session := newSessionWithClock(chatID, s.rules, s.now)
	s.sessions[chatID] = session
	return session
}

func (s *SessionStore) Remove(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, chatID)
}
