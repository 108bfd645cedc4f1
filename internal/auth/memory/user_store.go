// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package memory provides in-memory repository implementations, used for
// development mode and unit tests. State lives for the process lifetime.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// UserStore implements auth.UserRepository with a mutex-guarded map.
// The uniqueness check and the insert happen under one lock, which is the
// in-memory equivalent of the database unique index: concurrent
// registrations of the same username serialize here.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[ulid.ULID]*auth.User
	byLower map[string]ulid.ULID
}

// NewUserStore creates an empty UserStore.
func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[ulid.ULID]*auth.User),
		byLower: make(map[string]ulid.ULID),
	}
}

// Create stores a new user, rejecting duplicate usernames atomically.
func (s *UserStore) Create(_ context.Context, user *auth.User) error {
	key := strings.ToLower(user.Username)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byLower[key]; exists {
		return oops.Code("AUTH_USERNAME_TAKEN").
			With("username", user.Username).
			Wrap(auth.ErrUsernameTaken)
	}

	u := *user
	s.byID[u.ID] = &u
	s.byLower[key] = u.ID
	return nil
}

// GetByID retrieves a user by ID.
func (s *UserStore) GetByID(_ context.Context, id ulid.ULID) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	u := *user
	return &u, nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (s *UserStore) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byLower[strings.ToLower(username)]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	u := *s.byID[id]
	return &u, nil
}

// List returns all users ordered by id ascending.
func (s *UserStore) List(_ context.Context) ([]auth.UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	refs := make([]auth.UserRef, 0, len(s.byID))
	for _, u := range s.byID {
		refs = append(refs, u.Ref())
	}
	sort.Slice(refs, func(i, j int) bool {
		return refs[i].ID.Compare(refs[j].ID) < 0
	})
	return refs, nil
}

// UpdatePassword replaces the stored password hash for a user.
func (s *UserStore) UpdatePassword(_ context.Context, id ulid.ULID, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	return nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserStore)(nil)
