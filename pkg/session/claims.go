// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package session implements the enriched session token: minting at
// login, verification and pass-through on every subsequent request, the
// cookie carrying it, and the read-only Session view projected from it.
package session

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/replidash/gateway/pkg/identity"
)

// Common errors
var (
	ErrNoToken      = errors.New("no session token provided")
	ErrTokenInvalid = errors.New("invalid session token")
	ErrTokenExpired = errors.New("session token expired")
)

// Claims is the payload of the signed session token. On top of the
// standard claims it carries exactly one extension: the full identity
// profile, copied verbatim from the provider at mint time. Signature and
// expiry enforcement are delegated to the JWT library.
type Claims struct {
	jwt.RegisteredClaims

	// Name and Email mirror the minimal identity projection so pages
	// that only need a display name never touch the profile.
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`

	// Profile is the enrichment slot. Nil when no provider profile was
	// available at login; the gatekeeper treats that as no memberships.
	Profile *identity.Profile `json:"profile,omitempty"`
}
