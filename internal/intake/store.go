package intake

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned when the user has no active session.
var ErrNoSession = errors.New("no active intake session")

// Store persists sessions keyed by user id.
type Store interface {
	Load(ctx context.Context, userID int64) (*Session, error)
	Save(ctx context.Context, session *Session) error
	Delete(ctx context.Context, userID int64) error
}

// MemoryStore keeps sessions in process memory. Sessions untouched for longer than the TTL are
// treated as absent on Load and removed by Sweep.
type MemoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[int64]Session
}

// NewMemoryStore builds a store. A non-positive ttl disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: map[int64]Session{}}
}

func (s *MemoryStore) Load(_ context.Context, userID int64) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok {
		return nil, ErrNoSession
	}
	if s.expired(session) {
		delete(s.sessions, userID)
		return nil, ErrNoSession
	}
	return &session, nil
}

func (s *MemoryStore) Save(_ context.Context, session *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.UserID] = *session
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}

// Sweep evicts expired sessions and returns how many remain.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, session := range s.sessions {
		if s.expired(session) {
			delete(s.sessions, id)
		}
	}
	return len(s.sessions)
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// RunJanitor sweeps every interval until ctx is done. report receives the remaining count.
func (s *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration, report func(remaining int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			remaining := s.Sweep()
			if report != nil {
				report(remaining)
			}
		}
	}
}

func (s *MemoryStore) expired(session Session) bool {
	return s.ttl > 0 && s.now().Sub(session.UpdatedAt) > s.ttl
}
