// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"net/http"
	"time"
)

// DefaultCookieName is the session cookie name used when none is configured.
const DefaultCookieName = "gateway_session"

// CookieCodec writes and reads the single HTTP cookie carrying the opaque
// session token. The token's encoding is the signed JWT; the codec only
// deals in presence/absence and raw string value.
type CookieCodec struct {
	// Name of the session cookie.
	Name string

	// Secure marks the cookie as HTTPS-only. Disabled for localhost
	// development deployments.
	Secure bool
}

// NewCookieCodec creates a codec, defaulting the cookie name.
func NewCookieCodec(name string, secure bool) *CookieCodec {
	if name == "" {
		name = DefaultCookieName
	}
	return &CookieCodec{Name: name, Secure: secure}
}

// Set writes the session cookie on the response.
func (c *CookieCodec) Set(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires the session cookie on the response.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromRequest extracts the raw session token from the request cookie.
// Returns ErrNoToken when the cookie is absent or empty.
func (c *CookieCodec) FromRequest(r *http.Request) (string, error) {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrNoToken
		}
		return "", err
	}
	if cookie.Value == "" {
		return "", ErrNoToken
	}
	return cookie.Value, nil
}
