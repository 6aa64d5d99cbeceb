// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"time"

	"github.com/replidash/gateway/pkg/identity"
)

// Session is the user-facing view derived from a verified session token.
// It is reconstructed per request and never persisted. No validation
// happens here: by the time a handler sees a Session the gatekeeper has
// already authorized the request, so profile fields can be read directly.
type Session struct {
	Subject   string    `json:"subject"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`

	// Profile is the token's profile claim, copied verbatim.
	Profile *identity.Profile `json:"profile,omitempty"`
}

// Project derives a Session from verified token claims. The profile is
// carried over without transformation.
func Project(claims *Claims) Session {
	s := Session{
		Subject: claims.Subject,
		Name:    claims.Name,
		Email:   claims.Email,
		Profile: claims.Profile,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s
}

// contextKey provides type-safe context storage for the Session.
type contextKey struct{}

// WithSession stores a Session in the context for downstream handlers.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

// FromContext retrieves the Session placed in the context by the
// gatekeeper. Returns the session and true if present.
func FromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(contextKey{}).(Session)
	return s, ok
}
