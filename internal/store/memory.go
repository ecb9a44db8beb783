package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/ingest"
	"github.com/AngelCh415/ppc-searchterm-analyzer/internal/models"
)

// Session is one analysis: the normalized table, the thresholds it was
// classified with, and the derived artifacts. It is read-only once stored.
type Session struct {
	ID         string
	CreatedAt  time.Time
	Filename   string
	Table      *ingest.Table
	Thresholds models.Thresholds
	Results    models.CategoryResults
	Summary    []models.CategorySummary
	Report     []byte
	Bulk       []byte
}

// MemoryStore keeps sessions in process memory. Sessions are created and
// disposed of explicitly; Sweep drops the ones older than a TTL.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Create stores s under a fresh id and returns the id.
func (s *MemoryStore) Create(sess *Session) string {
	sess.ID = uuid.NewString()
	sess.CreatedAt = s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return sess.ID
}

func (s *MemoryStore) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Delete disposes of a session; it reports whether it existed.
func (s *MemoryStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// Sweep removes sessions created more than ttl ago and returns how many.
func (s *MemoryStore) Sweep(ttl time.Duration) int {
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
