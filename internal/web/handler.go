// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
)

// AuthService is the slice of auth.Service the handlers need.
type AuthService interface {
	Register(ctx context.Context, username, password string) (auth.UserRef, error)
	Login(ctx context.Context, username, password string) (*auth.Session, string, error)
	LogoutByToken(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (*auth.Session, error)
	ListUsers(ctx context.Context) ([]auth.UserRef, error)
}

// HandlerConfig configures the auth handlers.
type HandlerConfig struct {
	CookieName   string
	CookieSecure bool
	SessionTTL   time.Duration
}

// AuthHandler serves the register, login and logout endpoints plus the
// authenticated user listing.
type AuthHandler struct {
	service AuthService
	config  HandlerConfig
	metrics *observability.Metrics // nil when the metrics listener is disabled
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler. metrics may be nil.
func NewAuthHandler(service AuthService, config HandlerConfig, metrics *observability.Metrics, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		service: service,
		config:  config,
		metrics: metrics,
		logger:  logger,
	}
}

// credentialsRequest is the register/login request body.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	ref, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.countAuth("register", outcomeOf(err))
		writeFlowError(h.logger, w, err)
		return
	}

	h.countAuth("register", "ok")
	writeJSON(w, http.StatusOK, userResponse{
		UserID:   ref.ID.String(),
		Username: ref.Username,
	})
}

// Login handles POST /api/auth/login. On success the session token travels
// back as an HttpOnly cookie; the body only acknowledges.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	session, token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.countAuth("login", outcomeOf(err))
		writeFlowError(h.logger, w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.config.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	h.countAuth("login", "ok")
	if h.metrics != nil {
		h.metrics.SessionsActive.Inc()
	}
	writeMessage(w, http.StatusOK, fmt.Sprintf("Welcome %s!", session.Username))
}

// Logout handles GET /api/auth/logout. Both outcomes are successes: a
// missing or dead session reports "no session" with a 200, never an error.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var token string
	if cookie, err := r.Cookie(h.config.CookieName); err == nil {
		token = cookie.Value
	}

	// Clear the cookie regardless of what the token resolves to.
	http.SetCookie(w, &http.Cookie{
		Name:     h.config.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	err := h.service.LogoutByToken(r.Context(), token)
	switch {
	case err == nil:
		h.countAuth("logout", "ok")
		if h.metrics != nil {
			h.metrics.SessionsActive.Dec()
		}
		writeMessage(w, http.StatusOK, "logged out")
	case errors.Is(err, auth.ErrNoActiveSession):
		h.countAuth("logout", "no_session")
		writeMessage(w, http.StatusOK, "no session")
	default:
		h.countAuth("logout", "error")
		writeFlowError(h.logger, w, err)
	}
}

// ListUsers handles GET /api/users. Requires a valid session (enforced by
// the session middleware).
func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	refs, err := h.service.ListUsers(r.Context())
	if err != nil {
		writeFlowError(h.logger, w, err)
		return
	}

	users := make([]userResponse, 0, len(refs))
	for _, ref := range refs {
		users = append(users, userResponse{
			UserID:   ref.ID.String(),
			Username: ref.Username,
		})
	}
	writeJSON(w, http.StatusOK, users)
}

// decodeCredentials parses and screens the request body. Malformed JSON and
// username problems are boundary errors; passwords pass through untouched
// so the length policy owns every rejection, empty included.
func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.Username == "" {
		writeMessage(w, http.StatusBadRequest, "username is required")
		return req, false
	}
	if len(req.Username) > auth.MaxUsernameLength {
		writeMessage(w, http.StatusBadRequest, "username too long")
		return req, false
	}
	return req, true
}

func (h *AuthHandler) countAuth(flow, outcome string) {
	if h.metrics != nil {
		h.metrics.AuthAttempts.WithLabelValues(flow, outcome).Inc()
	}
}

// outcomeOf labels an error for the attempts counter.
func outcomeOf(err error) string {
	switch {
	case errors.Is(err, auth.ErrUsernameTaken):
		return "username_taken"
	case errors.Is(err, auth.ErrPasswordTooShort):
		return "password_too_short"
	case errors.Is(err, auth.ErrInvalidCredentials):
		return "invalid_credentials"
	default:
		return "error"
	}
}
