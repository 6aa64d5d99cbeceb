// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package server wires the gateway together: the login flow endpoints,
// the gatekeeper in front of every other route, and the HTTP server
// lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/replidash/gateway/pkg/config"
	"github.com/replidash/gateway/pkg/gatekeeper"
	"github.com/replidash/gateway/pkg/identity"
	"github.com/replidash/gateway/pkg/logger"
	"github.com/replidash/gateway/pkg/session"
)

// loginPath is the gateway's own login endpoint, routed ahead of the
// gatekeeper and used as the redirect target for denied requests.
const loginPath = "/auth/login"

// OIDCClient is the provider surface the login flow needs. Implemented
// by *provider.Provider; injected so handler tests can fake the code
// exchange without a live identity provider.
type OIDCClient interface {
	AuthCodeURL(ctx context.Context, state, nonce string) (string, error)
	Exchange(ctx context.Context, code, nonce string) (*identity.Profile, error)
}

// Server is the authentication gateway HTTP server.
type Server struct {
	oidc       OIDCClient
	minter     *session.Minter
	cookies    *session.CookieCodec
	gatekeeper *gatekeeper.Gatekeeper
	downstream http.Handler
	listenAddr string

	httpServer *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDownstream replaces the proxied upstream with an in-process
// handler. Used by embedders and tests.
func WithDownstream(h http.Handler) Option {
	return func(s *Server) {
		s.downstream = h
	}
}

// New assembles a Server from validated configuration.
func New(cfg *config.Config, oidcClient OIDCClient, opts ...Option) (*Server, error) {
	if oidcClient == nil {
		return nil, errors.New("oidc client is required")
	}

	minter, err := session.NewMinter(cfg.Session.Secret, cfg.Session.TTL)
	if err != nil {
		return nil, fmt.Errorf("failed to create session minter: %w", err)
	}
	cookies := session.NewCookieCodec(cfg.Session.CookieName, cfg.Session.CookieSecure)

	// Static-asset defaults plus any configured extras. The gateway's
	// own /auth/ endpoints are routed ahead of the gatekeeper and need
	// no bypass entry.
	bypass := make([]string, 0, len(gatekeeper.DefaultBypassPrefixes)+len(cfg.Authz.BypassPrefixes))
	bypass = append(bypass, gatekeeper.DefaultBypassPrefixes...)
	bypass = append(bypass, cfg.Authz.BypassPrefixes...)

	gk, err := gatekeeper.New(minter, gatekeeper.Config{
		ActiveOrgID: cfg.Authz.ActiveOrgID,
		Policy:      gatekeeper.RequireRole(cfg.Authz.RequiredRole),
		Bypass:      gatekeeper.NewBypassList(bypass...),
		Cookies:     cookies,
		LoginPath:   loginPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gatekeeper: %w", err)
	}

	s := &Server{
		oidc:       oidcClient,
		minter:     minter,
		cookies:    cookies,
		gatekeeper: gk,
		listenAddr: cfg.ListenAddr,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.downstream == nil {
		if cfg.UpstreamURL == "" {
			return nil, errors.New("either an upstream URL or a downstream handler is required")
		}
		upstream, err := url.Parse(cfg.UpstreamURL)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream URL: %w", err)
		}
		s.downstream = httputil.NewSingleHostReverseProxy(upstream)
	}

	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
	}

	return s, nil
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("gateway listening on %s", s.listenAddr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("gateway stopped")
	return nil
}
