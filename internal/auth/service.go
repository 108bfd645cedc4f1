// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Service orchestrates the register, login and logout flows. Each flow runs
// its steps strictly in sequence; concurrency happens across requests, not
// within a flow.
type Service struct {
	users     UserRepository
	sessions  SessionRepository
	hasher    PasswordHasher
	validator *CredentialValidator
	expiry    time.Duration
	logger    *slog.Logger
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithSessionExpiry sets the session lifetime.
func WithSessionExpiry(d time.Duration) ServiceOption {
	return func(s *Service) { s.expiry = d }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service.
func NewService(users UserRepository, sessions SessionRepository, hasher PasswordHasher, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("session repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password hasher is required")
	}

	validator, err := NewCredentialValidator(users)
	if err != nil {
		return nil, err
	}

	s := &Service{
		users:     users,
		sessions:  sessions,
		hasher:    hasher,
		validator: validator,
		expiry:    DefaultSessionExpiry,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("logger cannot be nil")
	}
	return s, nil
}

// dummyPasswordHash is verified against when a username doesn't exist, so
// that login takes the same time either way and response timing cannot be
// used to enumerate usernames. It is not a credential and matches nothing.
//
//nolint:gosec // G101: intentionally fake hash for timing defense, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Register creates a new user: username free, password strong, hash, insert.
// Any failing gate short-circuits the rest. A store-level uniqueness
// rejection surfaces as the same ErrUsernameTaken the fast-path check uses.
func (s *Service) Register(ctx context.Context, username, password string) (UserRef, error) {
	if err := s.validator.EnsureUsernameFree(ctx, username); err != nil {
		return UserRef{}, err
	}
	if err := s.validator.EnsurePasswordStrong(password); err != nil {
		return UserRef{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return UserRef{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return UserRef{}, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		// The unique index closes the race the fast-path check leaves open.
		if errors.Is(err, ErrUsernameTaken) {
			return UserRef{}, err
		}
		return UserRef{}, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	s.logger.Info("user registered",
		slog.String("user_id", user.ID.String()),
		slog.String("username", user.Username),
	)
	return user.Ref(), nil
}

// Login authenticates a user and creates a session. Returns the session and
// the plaintext token for the boundary layer to hand to the client.
//
// An unknown username and a wrong password both fail with
// ErrInvalidCredentials; password verification runs in both cases so the
// two are indistinguishable by timing as well as by outcome.
func (s *Service) Login(ctx context.Context, username, password string) (*Session, string, error) {
	user, lookupErr := s.validator.EnsureUsernameExists(ctx, username)

	targetHash := dummyPasswordHash
	if lookupErr == nil {
		targetHash = user.PasswordHash
	} else if !errors.Is(lookupErr, ErrUnknownUsername) {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "look up user").
			Wrap(lookupErr)
	}

	valid := s.hasher.Verify(password, targetHash)
	if lookupErr != nil || !valid {
		return nil, "", oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	// Transparently recompute hashes written under an older scheme.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			_ = s.users.UpdatePassword(ctx, user.ID, newHash) //nolint:errcheck // best effort, login succeeds regardless
		}
	}

	token, tokenHash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "generate session token").
			Wrap(err)
	}

	session, err := NewSession(user.Ref(), tokenHash, time.Now().Add(s.expiry))
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "create session").
			Wrap(err)
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}

	s.logger.Info("user logged in",
		slog.String("user_id", user.ID.String()),
		slog.String("session_id", session.ID.String()),
	)
	return session, token, nil
}

// Logout destroys a session. A missing session reports ErrNoActiveSession,
// which callers treat as "already logged out", not as a failure.
func (s *Service) Logout(ctx context.Context, sessionID ulid.ULID) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").
				With("session_id", sessionID.String()).
				Wrap(ErrNoActiveSession)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "delete session").
			With("session_id", sessionID.String()).
			Wrap(err)
	}

	s.logger.Info("user logged out", slog.String("session_id", sessionID.String()))
	return nil
}

// LogoutByToken destroys the session a client token refers to. An expired
// but still-stored session is destroyed all the same; only a token that
// resolves to nothing reports ErrNoActiveSession.
func (s *Service) LogoutByToken(ctx context.Context, token string) error {
	if token == "" {
		return oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrNoActiveSession)
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return oops.Code("SESSION_NOT_FOUND").Wrap(ErrNoActiveSession)
		}
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	return s.Logout(ctx, session.ID)
}

// ValidateSession resolves a client token to a live session, bumping its
// LastSeenAt best-effort. Unknown tokens and expired sessions both fail
// with ErrNoActiveSession.
func (s *Service) ValidateSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_TOKEN_EMPTY").Wrap(ErrNoActiveSession)
	}

	session, err := s.sessions.GetByTokenHash(ctx, HashSessionToken(token))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, oops.Code("SESSION_INVALID").Wrap(ErrNoActiveSession)
		}
		return nil, oops.Code("SESSION_VALIDATE_FAILED").
			With("operation", "get session by token hash").
			Wrap(err)
	}

	if session.IsExpired() {
		return nil, oops.Code("SESSION_EXPIRED").Wrap(ErrNoActiveSession)
	}

	_ = s.sessions.UpdateLastSeen(ctx, session.ID, time.Now()) //nolint:errcheck // best effort, validation succeeds regardless

	return session, nil
}

// ListUsers returns all users as (id, username) pairs ordered by id.
func (s *Service) ListUsers(ctx context.Context) ([]UserRef, error) {
	refs, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_LIST_FAILED").
			With("operation", "list users").
			Wrap(err)
	}
	return refs, nil
}

// PurgeExpired removes expired sessions. Called periodically by the serve
// command's sweeper; the flows themselves never garbage-collect.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx)
	if err != nil {
		return 0, oops.Code("SESSION_PURGE_FAILED").Wrap(err)
	}
	if n > 0 {
		s.logger.Info("expired sessions purged", slog.Int64("count", n))
	}
	return n, nil
}
