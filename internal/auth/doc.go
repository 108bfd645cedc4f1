// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth implements the credential authentication core.
//
// # Domain Types
//
// Domain types (User, Session) should be created using their constructors:
//   - NewUser - creates a User with a validated username and password hash
//   - NewSession - creates a Session bound to a user and token hash
//
// Direct struct initialization bypasses validation and may create invalid
// state. Repository implementations receive pre-validated types from these
// constructors.
//
// # Services
//
// Service orchestrates the three request flows (register, login, logout)
// plus session validation for authenticated routes. CredentialValidator
// holds the precondition gates each flow runs before touching state.
//
// Username uniqueness is ultimately enforced by the credential store
// (a unique index, or a serialized check-and-insert for the in-memory
// store). The validator's free-username check is a fast-path courtesy
// only; two concurrent registrations racing past it still resolve to
// exactly one winner at the store.
package auth
