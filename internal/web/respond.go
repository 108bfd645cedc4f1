// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web is the HTTP boundary: routing, request parsing, and the
// serialization of flow outcomes onto the wire contract.
package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// messageResponse is the {"message": ...} envelope most endpoints use.
type messageResponse struct {
	Message string `json:"message"`
}

// userResponse is the registration success body.
type userResponse struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// maxBodyBytes caps request bodies; credential payloads are tiny.
const maxBodyBytes = 1 << 16

// decodeJSON parses a JSON request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err //nolint:wrapcheck // boundary parse error, reported as 400 by the caller
	}
	return nil
}

// writeJSON serializes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}

// writeMessage writes a {"message": ...} body with the given status.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

// writeFlowError maps a flow error onto the response contract. Credential
// errors carry fixed messages that reveal nothing beyond the contract;
// anything unmapped is an infrastructure failure and reports generically.
func writeFlowError(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		writeMessage(w, http.StatusUnprocessableEntity, "Username taken")
	case errors.Is(err, auth.ErrPasswordTooShort):
		writeMessage(w, http.StatusUnprocessableEntity, "Password must be longer than 3 chars")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		errutil.LogError(logger, "request failed", err)
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}
