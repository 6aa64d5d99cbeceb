// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/replidash/gateway/pkg/logger"
	"github.com/replidash/gateway/pkg/provider"
	"github.com/replidash/gateway/pkg/session"
)

// flowCookieName carries the in-flight login state between the redirect
// to the provider and the callback. Scoped to /auth/ and short-lived.
const flowCookieName = "gateway_oidc_flow"

// flowCookieTTL bounds how long a login attempt may sit at the provider's
// consent screen before the callback rejects it.
const flowCookieTTL = 10 * time.Minute

// handleLogin starts the authorization-code flow: generate state and
// nonce, stash them in the flow cookie, and redirect to the provider.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.NewString()
	nonce := uuid.NewString()

	authURL, err := s.oidc.AuthCodeURL(r.Context(), state, nonce)
	if err != nil {
		logger.Errorf("failed to build authorization URL: %v", err)
		http.Error(w, "login is temporarily unavailable", http.StatusBadGateway)
		return
	}

	flow := url.Values{}
	flow.Set("state", state)
	flow.Set("nonce", nonce)
	if next := safeReturnPath(r.URL.Query().Get("next")); next != "" {
		flow.Set("next", next)
	}
	s.setFlowCookie(w, flow)

	http.Redirect(w, r, authURL, http.StatusSeeOther)
}

// handleCallback finishes the flow: validate state against the flow
// cookie, exchange the code, mint the enriched session token, and send
// the user to where they were headed.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	flow, err := s.flowFromRequest(r)
	if err != nil {
		http.Error(w, "login flow expired, please retry", http.StatusBadRequest)
		return
	}

	query := r.URL.Query()
	if errCode := query.Get("error"); errCode != "" {
		logger.Infof("provider returned authorization error: %s", errCode)
		s.clearFlowCookie(w)
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}

	state := query.Get("state")
	if state == "" || state != flow.Get("state") {
		logger.Warn("callback state mismatch")
		s.clearFlowCookie(w)
		http.Error(w, "invalid login state", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		s.clearFlowCookie(w)
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	profile, err := s.oidc.Exchange(r.Context(), code, flow.Get("nonce"))
	if err != nil {
		s.clearFlowCookie(w)
		switch {
		case errors.Is(err, provider.ErrProviderUnavailable):
			logger.Errorf("code exchange failed, provider unavailable: %v", err)
			http.Error(w, "login is temporarily unavailable", http.StatusBadGateway)
		case errors.Is(err, provider.ErrNonceMismatch):
			logger.Warnf("code exchange rejected: %v", err)
			http.Error(w, "invalid login state", http.StatusBadRequest)
		default:
			logger.Errorf("code exchange failed: %v", err)
			http.Error(w, "login failed", http.StatusBadGateway)
		}
		return
	}

	id := profile.Identity()
	token, err := s.minter.Mint(id, profile)
	if err != nil {
		s.clearFlowCookie(w)
		logger.Errorf("failed to mint session token: %v", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	s.cookies.Set(w, token, time.Now().Add(s.minter.TTL()))
	s.clearFlowCookie(w)

	next := safeReturnPath(flow.Get("next"))
	if next == "" {
		next = "/"
	}
	logger.Infow("login completed", "user", id.String())
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// handleLogout clears the session cookie and lands on the login page.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.cookies.Clear(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

// handleSession renders the caller's own session as JSON. It is routed
// ahead of the gatekeeper, so it verifies the token itself; calls
// without a valid session get a 401.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	token, err := s.cookies.FromRequest(r)
	if err == nil {
		var claims *session.Claims
		claims, err = s.minter.Verify(token)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			if encErr := json.NewEncoder(w).Encode(session.Project(claims)); encErr != nil {
				logger.Errorf("failed to encode session: %v", encErr)
			}
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"no active session"}` + "\n"))
}

func (s *Server) setFlowCookie(w http.ResponseWriter, flow url.Values) {
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    flow.Encode(),
		Path:     "/auth/",
		MaxAge:   int(flowCookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearFlowCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     flowCookieName,
		Value:    "",
		Path:     "/auth/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) flowFromRequest(r *http.Request) (url.Values, error) {
	cookie, err := r.Cookie(flowCookieName)
	if err != nil {
		return nil, err
	}
	flow, err := url.ParseQuery(cookie.Value)
	if err != nil {
		return nil, err
	}
	if flow.Get("state") == "" || flow.Get("nonce") == "" {
		return nil, errors.New("incomplete login flow cookie")
	}
	return flow, nil
}

// safeReturnPath accepts only same-origin absolute paths for the
// post-login redirect, rejecting open-redirect vectors like //evil.com.
func safeReturnPath(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return ""
	}
	if strings.ContainsAny(next, "\r\n") {
		return ""
	}
	return next
}
