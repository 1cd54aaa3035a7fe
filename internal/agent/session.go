package agent

import "sync"

// SessionStore serializes turns per conversation: concurrent requests
// on the same conversation ID queue behind each other while different
// conversations proceed independently.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewSessionStore creates an empty session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-conversation lock, creating it on first use,
// and returns the unlock function.
func (s *SessionStore) Lock(conversationID string) func() {
	s.mu.Lock()
	m, ok := s.sessions[conversationID]
	if !ok {
		m = &sync.Mutex{}
		s.sessions[conversationID] = m
	}
	s.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Len reports how many conversations hold a session lock entry.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
