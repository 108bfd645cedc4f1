// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// SessionStore implements auth.SessionRepository with a mutex-guarded map.
// Create and Delete are atomic per session id; independent sessions share
// the store lock only for the duration of the map operation.
type SessionStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.Session
	byToken map[string]ulid.ULID
}

// NewSessionStore creates an empty SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		byID:    make(map[ulid.ULID]*auth.Session),
		byToken: make(map[string]ulid.ULID),
	}
}

// Create stores a new session.
func (s *SessionStore) Create(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := *session
	s.byID[sess.ID] = &sess
	s.byToken[sess.TokenHash] = sess.ID
	return nil
}

// GetByTokenHash retrieves a session by its token hash.
func (s *SessionStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	sess := *s.byID[id]
	return &sess, nil
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(_ context.Context, id ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	delete(s.byToken, session.TokenHash)
	delete(s.byID, id)
	return nil
}

// DeleteByUser removes all sessions for a user. Zero deletions is a valid
// outcome.
func (s *SessionStore) DeleteByUser(_ context.Context, userID ulid.ULID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, session := range s.byID {
		if session.UserID == userID {
			delete(s.byToken, session.TokenHash)
			delete(s.byID, id)
		}
	}
	return nil
}

// DeleteExpired removes all expired sessions and returns the count.
func (s *SessionStore) DeleteExpired(_ context.Context) (int64, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, session := range s.byID {
		if session.IsExpiredAt(now) {
			delete(s.byToken, session.TokenHash)
			delete(s.byID, id)
			n++
		}
	}
	return n, nil
}

// UpdateLastSeen updates the LastSeenAt timestamp for a session.
func (s *SessionStore) UpdateLastSeen(_ context.Context, id ulid.ULID, lastSeen time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.byID[id]
	if !ok {
		return oops.Code("SESSION_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	session.LastSeenAt = lastSeen
	return nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionStore)(nil)
