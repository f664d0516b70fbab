package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kimkjin/BannerComposer/internal/composer"
)

// Session is one campaign being composed. State lives only in memory.
type Session struct {
	ID        string                 `json:"id"`
	Name      string                 `json:"name,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	Composer  *composer.Orchestrator `json:"-"`

	seq uint64
}

type SessionStore struct {
	sessions map[string]*Session
	next     uint64
	mu       sync.RWMutex
}

func New() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session around o under a fresh ID.
func (s *SessionStore) Create(name string, o *composer.Orchestrator) *Session {
	session := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
		Composer:  o,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	session.seq = s.next
	s.sessions[session.ID] = session
	return session
}

func (s *SessionStore) Get(sessionID string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, exists := s.sessions[sessionID]
	return session, exists
}

// List returns every session, oldest first.
func (s *SessionStore) List() []*Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Session, 0, len(s.sessions))
	for _, v := range s.sessions {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].seq < result[j].seq })
	return result
}

// Delete removes a session and reports whether it existed.
func (s *SessionStore) Delete(sessionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	return exists
}
