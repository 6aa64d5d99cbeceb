// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the gateway's router: the login flow endpoints are
// mounted first, then the gatekeeper fronts everything else, with
// authorized requests handed to the downstream application.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	// The /auth/ subtree is the gateway's own surface. Unknown paths
	// under it are a 404, never forwarded upstream.
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLogin)
		r.Get("/callback", s.handleCallback)
		r.Get("/logout", s.handleLogout)
		r.Get("/session", s.handleSession)
		r.NotFound(http.NotFound)
	})

	// Everything else is the protected dashboard surface.
	r.NotFound(s.gatekeeper.Middleware(s.downstream).ServeHTTP)

	return r
}
