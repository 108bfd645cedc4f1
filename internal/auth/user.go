// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Username constraints. Usernames are stored as entered but compared and
// kept unique case-insensitively.
const MaxUsernameLength = 64

// MinPasswordLength is the registration password policy: strictly more
// than three characters.
const MinPasswordLength = 4

// User is an identity record. The ID is assigned at creation and never
// changes; the username is fixed for the life of the account.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRef is the public projection of a User: identity and username only,
// never the password hash.
type UserRef struct {
	ID       ulid.ULID
	Username string
}

// Ref returns the public projection of the user.
func (u *User) Ref() UserRef {
	return UserRef{ID: u.ID, Username: u.Username}
}

// NewUser creates a validated User with a freshly assigned ID.
// The password hash must already be computed; plaintext never reaches
// this constructor.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_EMPTY_HASH").Errorf("password hash cannot be empty")
	}

	now := time.Now()
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ValidateUsername validates a candidate username.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").Errorf("username cannot be empty")
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Errorf("username must be at most %d characters", MaxUsernameLength)
	}
	return nil
}

// UserRepository is the credential store: it owns User records exclusively.
type UserRepository interface {
	// Create stores a new user. Returns an error wrapping ErrUsernameTaken
	// when the username is already in use; this check is atomic with the
	// insert, so concurrent registrations of the same username resolve to
	// exactly one winner.
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID.
	GetByID(ctx context.Context, id ulid.ULID) (*User, error)

	// GetByUsername retrieves a user by username (case-insensitive),
	// including the password hash.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users as (id, username) pairs ordered by id
	// ascending, which is creation order.
	List(ctx context.Context) ([]UserRef, error)

	// UpdatePassword replaces the stored password hash for a user.
	UpdatePassword(ctx context.Context, id ulid.ULID, passwordHash string) error
}
