// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/replidash/gateway/pkg/identity"
)

// DefaultTTL is the session lifetime used when none is configured.
const DefaultTTL = time.Hour

// minSecretLength guards against trivially brute-forceable HMAC keys.
const minSecretLength = 32

// Minter signs and verifies session tokens with an HMAC secret shared by
// all gateway instances of a deployment. It is safe for concurrent use;
// all state is immutable after construction.
type Minter struct {
	secret []byte
	ttl    time.Duration

	// now is replaceable in tests.
	now func() time.Time
}

// NewMinter creates a Minter from the configured signing secret and TTL.
func NewMinter(secret string, ttl time.Duration) (*Minter, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Minter{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Mint issues a signed session token for the authenticated identity.
// Enrichment is a straight copy: the full provider profile, including all
// org memberships, is embedded in the token as-is. A nil profile mints a
// token without the enrichment claim.
func (m *Minter) Mint(id identity.Identity, profile *identity.Profile) (string, error) {
	issuedAt := m.now()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(m.ttl)),
			ID:        uuid.NewString(),
		},
		Name:    id.Name,
		Email:   id.Email,
		Profile: profile,
	}

	return m.sign(claims)
}

// Refresh re-issues a token from existing claims with a fresh expiry.
// No new provider profile is available on refresh, so the profile claim
// passes through unchanged; it is never erased or shrunk.
func (m *Minter) Refresh(claims *Claims) (string, error) {
	if claims == nil {
		return "", ErrTokenInvalid
	}

	issuedAt := m.now()
	refreshed := *claims
	refreshed.IssuedAt = jwt.NewNumericDate(issuedAt)
	refreshed.ExpiresAt = jwt.NewNumericDate(issuedAt.Add(m.ttl))

	return m.sign(&refreshed)
}

func (m *Minter) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature and expiry and returns its claims.
// All failure modes collapse to ErrTokenInvalid except expiry, which is
// reported as ErrTokenExpired; callers deny in either case.
func (m *Minter) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrNoToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}

// TTL returns the configured session lifetime.
func (m *Minter) TTL() time.Duration {
	return m.ttl
}
