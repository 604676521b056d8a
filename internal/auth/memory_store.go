package auth

import (
	"sync"
	"time"
)

// MemorySessionStore keeps session state in-memory. It is safe for concurrent
// use and intended for development or single-instance deployments.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]SessionRecord
}

// NewMemorySessionStore constructs an in-memory store implementation.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]SessionRecord)}
}

// Save records the session details for the provided hashed token.
func (s *MemorySessionStore) Save(hashedToken, userID string, expiresAt, absoluteExpiresAt time.Time) error {
	s.mu.Lock()
	s.sessions[hashedToken] = SessionRecord{
		Token:             hashedToken,
		UserID:            userID,
		ExpiresAt:         expiresAt,
		AbsoluteExpiresAt: absoluteExpiresAt,
	}
	s.mu.Unlock()
	return nil
}

// Get retrieves the session record for the provided hashed token.
func (s *MemorySessionStore) Get(hashedToken string) (SessionRecord, bool, error) {
	s.mu.RLock()
	record, ok := s.sessions[hashedToken]
	s.mu.RUnlock()
	return record, ok, nil
}

// Delete removes the session token from the store.
func (s *MemorySessionStore) Delete(hashedToken string) error {
	s.mu.Lock()
	delete(s.sessions, hashedToken)
	s.mu.Unlock()
	return nil
}

// PurgeExpired removes any expired sessions from the store.
func (s *MemorySessionStore) PurgeExpired(now time.Time) error {
	s.mu.Lock()
	for token, record := range s.sessions {
		if now.After(record.ExpiresAt) || (!record.AbsoluteExpiresAt.IsZero() && now.After(record.AbsoluteExpiresAt)) {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()
	return nil
}
