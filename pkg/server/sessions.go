package server

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-schemaform/pkg/schema"
)

// Session is the state of one preview socket.
type Session struct {
	ID        string
	Form      string
	CreatedAt time.Time

	mu   sync.Mutex
	mode schema.Mode
}

// Mode returns the mode the session currently previews.
func (s *Session) Mode() schema.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) setMode(mode schema.Mode) {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
}

// Sessions tracks open preview sessions.
type Sessions struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessions constructs an empty tracker.
func NewSessions() *Sessions {
	return &Sessions{sessions: make(map[string]*Session)}
}

// Create registers a session for form with a fresh uuid.
func (s *Sessions) Create(form string, mode schema.Mode) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Form:      form,
		CreatedAt: time.Now(),
		mode:      mode,
	}
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get looks a session up by id.
func (s *Sessions) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Remove forgets a session.
func (s *Sessions) Remove(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Len reports the number of open sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs lists open session ids in sorted order.
func (s *Sessions) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
