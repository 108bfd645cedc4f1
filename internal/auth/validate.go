// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// CredentialValidator holds the precondition gates the flows run before
// touching state. Each gate is pure given the store state: same input, same
// outcome. Gates run in a fixed order per flow and short-circuit on the
// first failure.
type CredentialValidator struct {
	users UserRepository
}

// NewCredentialValidator creates a CredentialValidator.
func NewCredentialValidator(users UserRepository) (*CredentialValidator, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	return &CredentialValidator{users: users}, nil
}

// EnsureUsernameFree fails with ErrUsernameTaken if the username is already
// in use. This is a fast-path courtesy check; the store's atomic
// check-and-insert remains the correctness guarantee under concurrency.
func (v *CredentialValidator) EnsureUsernameFree(ctx context.Context, username string) error {
	_, err := v.users.GetByUsername(ctx, username)
	if err == nil {
		return oops.Code("AUTH_USERNAME_TAKEN").
			With("username", username).
			Wrap(ErrUsernameTaken)
	}
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return oops.Code("AUTH_CHECK_FAILED").
		With("operation", "ensure username free").
		Wrap(err)
}

// EnsurePasswordStrong fails with ErrPasswordTooShort unless the password
// is strictly longer than three characters.
func (v *CredentialValidator) EnsurePasswordStrong(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Wrap(ErrPasswordTooShort)
	}
	return nil
}

// EnsureUsernameExists yields the matching user record (including the
// password hash, for the verify stage) or fails with ErrUnknownUsername.
func (v *CredentialValidator) EnsureUsernameExists(ctx context.Context, username string) (*User, error) {
	user, err := v.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("AUTH_UNKNOWN_USERNAME").Wrap(ErrUnknownUsername)
		}
		return nil, oops.Code("AUTH_CHECK_FAILED").
			With("operation", "ensure username exists").
			Wrap(err)
	}
	return user, nil
}
