// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package gatekeeper

import (
	"errors"
	"net/http"

	"github.com/replidash/gateway/pkg/identity"
	"github.com/replidash/gateway/pkg/logger"
	"github.com/replidash/gateway/pkg/session"
)

// DefaultLoginPath is where denied requests are redirected.
const DefaultLoginPath = "/auth/login"

// TokenVerifier verifies a raw session token and returns its claims.
// Implemented by session.Minter; injected so tests can count or fail
// verification without real cryptography.
type TokenVerifier interface {
	Verify(token string) (*session.Claims, error)
}

// denyReason distinguishes denial causes for logging only. The HTTP
// response is identical for every reason, so callers cannot probe
// membership or role assignments.
type denyReason string

const (
	reasonNoToken          denyReason = "no_token"
	reasonTokenInvalid     denyReason = "token_invalid"
	reasonNoProfile        denyReason = "no_profile"
	reasonNotAMember       denyReason = "not_a_member"
	reasonInsufficientRole denyReason = "insufficient_role"
)

// Config holds the static, deployment-wide gatekeeper settings. All
// fields are read at startup and immutable thereafter.
type Config struct {
	// ActiveOrgID is the single organization this deployment serves.
	ActiveOrgID string

	// Policy evaluated against the caller's membership in the active
	// organization. Defaults to RequireRole(DefaultRole).
	Policy Policy

	// Bypass lists the path prefixes that skip evaluation entirely.
	// Defaults to DefaultBypassPrefixes.
	Bypass *BypassList

	// Cookies reads the session cookie. Defaults to the default codec.
	Cookies *session.CookieCodec

	// LoginPath is the redirect target for denied requests. Defaults to
	// DefaultLoginPath.
	LoginPath string
}

// Gatekeeper is a stateless request filter. The decision for a request
// depends only on the verified token's contents and this configuration;
// the steady-state path performs no network or disk I/O.
type Gatekeeper struct {
	verifier  TokenVerifier
	activeOrg string
	policy    Policy
	bypass    *BypassList
	cookies   *session.CookieCodec
	loginPath string
}

// New creates a Gatekeeper. The active organization id is required;
// everything else defaults to the reference deployment behavior.
func New(verifier TokenVerifier, cfg Config) (*Gatekeeper, error) {
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if cfg.ActiveOrgID == "" {
		return nil, errors.New("active organization id is required")
	}

	g := &Gatekeeper{
		verifier:  verifier,
		activeOrg: cfg.ActiveOrgID,
		policy:    cfg.Policy,
		bypass:    cfg.Bypass,
		cookies:   cfg.Cookies,
		loginPath: cfg.LoginPath,
	}
	if g.policy == nil {
		g.policy = RequireRole(DefaultRole)
	}
	if g.bypass == nil {
		g.bypass = NewBypassList(DefaultBypassPrefixes...)
	}
	if g.cookies == nil {
		g.cookies = session.NewCookieCodec("", false)
	}
	if g.loginPath == "" {
		g.loginPath = DefaultLoginPath
	}

	return g, nil
}

// Middleware intercepts every inbound request not excluded by the bypass
// list and allows or denies it based on the caller's membership in the
// active organization.
func (g *Gatekeeper) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The bypass check runs before any token decoding so static
		// asset requests incur no verification cost.
		if g.bypass.Bypassed(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := g.cookies.FromRequest(r)
		if err != nil {
			g.deny(w, r, reasonNoToken)
			return
		}

		claims, err := g.verifier.Verify(tokenString)
		if err != nil {
			// Expired, malformed and bad-signature tokens all land
			// here; a transient failure is a hard deny, not retried.
			g.deny(w, r, reasonTokenInvalid)
			return
		}

		if claims.Profile == nil {
			// A token minted without a provider profile carries no
			// memberships and must never be trusted.
			g.deny(w, r, reasonNoProfile)
			return
		}

		membership, ok := claims.Profile.Membership(g.activeOrg)
		if !ok {
			g.deny(w, r, reasonNotAMember)
			return
		}

		if !g.policy.Evaluate(membership) {
			g.deny(w, r, reasonInsufficientRole)
			return
		}

		id := identity.Identity{
			Subject: claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
		}
		ctx := identity.WithIdentity(r.Context(), &id)
		ctx = session.WithSession(ctx, session.Project(claims))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// deny rejects the request with a response that is byte-identical across
// all denial reasons; the reason is recorded in logs only.
func (g *Gatekeeper) deny(w http.ResponseWriter, r *http.Request, reason denyReason) {
	logger.Debugw("request denied",
		"path", r.URL.Path,
		"reason", string(reason),
	)
	http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
}
