// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gatehouse/gatehouse/internal/observability"
)

// RouterDeps bundles what NewRouter needs.
type RouterDeps struct {
	Service AuthService
	Config  HandlerConfig
	Metrics *observability.Metrics // nil disables metric recording
	Logger  *slog.Logger
}

// NewRouter builds the API router.
//
// Middleware order: Recoverer -> RequestLogger -> RequestMetrics.
// The auth flow routes are open; /api/users sits behind RequireSession.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(deps.Logger))
	r.Use(RequestLogger(deps.Logger))
	r.Use(RequestMetrics(deps.Metrics))

	h := NewAuthHandler(deps.Service, deps.Config, deps.Metrics, deps.Logger)

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/logout", h.Logout)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(deps.Service, deps.Config.CookieName, deps.Logger))
		r.Get("/api/users", h.ListUsers)
	})

	return r
}
