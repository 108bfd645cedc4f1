// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors for the authentication flows. Callers branch with
// errors.Is; the HTTP layer maps them onto the response contract.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when a registration collides with an
	// existing username, whether caught by the validator's fast-path check
	// or by the store's unique constraint.
	ErrUsernameTaken = errors.New("username taken")

	// ErrPasswordTooShort is returned when a candidate password fails the
	// minimum length policy.
	ErrPasswordTooShort = errors.New("password too short")

	// ErrUnknownUsername is returned by the validator when no user matches.
	// It never crosses the service boundary distinctly: login collapses it
	// into ErrInvalidCredentials.
	ErrUnknownUsername = errors.New("unknown username")

	// ErrInvalidCredentials is the uniform login failure. It deliberately
	// does not distinguish an unknown username from a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNoActiveSession signals logout without a live session. It is a
	// signal, not a failure: callers treat it as "already logged out".
	ErrNoActiveSession = errors.New("no active session")
)
