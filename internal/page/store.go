package page

import (
	"context"
	"sync"
	"time"
)

// DefaultIdleTTL is how long a page session survives without any request.
const DefaultIdleTTL = 30 * time.Minute

// MemoryStore holds live page sessions. Sessions idle for longer than the
// TTL are closed by Cleanup or on their next Get.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewMemoryStore creates a store. A non-positive ttl means DefaultIdleTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &MemoryStore{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Put adds a session. After Close the session is closed instead of stored.
func (s *MemoryStore) Put(sess *Session) {
	sess.touch(s.now())
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.Close()
		return
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
}

// Get returns the session and marks it as used. An idle session is closed
// and removed, and ErrSessionExpired returned.
func (s *MemoryStore) Get(id string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}

	now := s.now()
	if now.Sub(sess.idleSince()) > s.ttl {
		s.remove(id, sess)
		return nil, ErrSessionExpired
	}
	sess.touch(now)
	return sess, nil
}

// Delete closes and removes a session.
func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	sess.Close()
	return nil
}

// Cleanup closes and removes every idle session and returns how many were
// removed.
func (s *MemoryStore) Cleanup(_ context.Context) (int, error) {
	now := s.now()
	var expired []*Session

	s.mu.Lock()
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > s.ttl {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.Close()
	}
	return len(expired), nil
}

// Wake releases every parked WaitVersion call without closing its session.
func (s *MemoryStore) Wake() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sess := range s.sessions {
		sess.bump()
	}
}

// Close closes every session. Sessions put afterwards are closed on arrival.
func (s *MemoryStore) Close() {
	s.mu.Lock()
	all := s.sessions
	s.sessions = make(map[string]*Session)
	s.closed = true
	s.mu.Unlock()
	for _, sess := range all {
		sess.Close()
	}
}

// Count returns the number of stored sessions.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) remove(id string, sess *Session) {
	s.mu.Lock()
	if s.sessions[id] == sess {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	sess.Close()
}
