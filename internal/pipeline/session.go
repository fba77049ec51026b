package pipeline

import (
	"sync"
	"time"

	"github.com/carebuddy/carebuddy/internal/models"
)

// Session holds one conversation's shared mutable state. History is
// append-only; the session mutex is the single required mutual-exclusion
// boundary, serializing turns that arrive concurrently for the same
// conversation.
type Session struct {
	mu         sync.Mutex
	ID         string
	PatientID  string
	Specialist models.SpecialistMode
	History    []models.ConversationMessage
	lastActive time.Time
}

// Lock acquires the session for one conversational turn.
func (s *Session) Lock() { s.mu.Lock() }

// Unlock releases the session.
func (s *Session) Unlock() { s.mu.Unlock() }

// Append records a completed exchange and refreshes the idle clock. The
// caller must hold the session lock.
func (s *Session) Append(userMessage, reply string) {
	s.History = append(s.History,
		models.ConversationMessage{Role: "user", Content: userMessage},
		models.ConversationMessage{Role: "assistant", Content: reply},
	)
	s.lastActive = time.Now()
}

// HistorySnapshot copies the history for handing to a pipeline run. The
// caller must hold the session lock.
func (s *Session) HistorySnapshot() []models.ConversationMessage {
	out := make([]models.ConversationMessage, len(s.History))
	copy(out, s.History)
	return out
}

// SessionStore is the session lifecycle collaborator: create on first
// message, evict on idle timeout. The pipeline itself stays stateless.
type SessionStore interface {
	GetOrCreate(id string) *Session
	Get(id string) (*Session, bool)
	Delete(id string)
	EvictIdle(maxIdle time.Duration) int
}

// InMemorySessionStore keeps sessions in a mutex-guarded map.
type InMemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewInMemorySessionStore creates an empty session store.
func NewInMemorySessionStore() *InMemorySessionStore {
	return &InMemorySessionStore{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first use.
func (s *InMemorySessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		return sess
	}
	sess := &Session{ID: id, Specialist: models.SpecialistGeneral, lastActive: time.Now()}
	s.sessions[id] = sess
	return sess
}

// Get returns the session for id if it exists.
func (s *InMemorySessionStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete removes a session.
func (s *InMemorySessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// EvictIdle drops sessions idle longer than maxIdle and reports how many
// were removed.
func (s *InMemorySessionStore) EvictIdle(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	evicted := 0
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted
}
