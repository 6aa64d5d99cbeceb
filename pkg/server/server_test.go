// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replidash/gateway/pkg/config"
	"github.com/replidash/gateway/pkg/identity"
	"github.com/replidash/gateway/pkg/provider"
	"github.com/replidash/gateway/pkg/session"
)

// fakeOIDC satisfies OIDCClient without a live identity provider.
type fakeOIDC struct {
	authURL     string
	authErr     error
	profile     *identity.Profile
	exchangeErr error

	// recorded inputs
	lastState string
	lastNonce string
	lastCode  string
}

func (f *fakeOIDC) AuthCodeURL(_ context.Context, state, nonce string) (string, error) {
	f.lastState = state
	f.lastNonce = nonce
	if f.authErr != nil {
		return "", f.authErr
	}
	return f.authURL + "?state=" + url.QueryEscape(state), nil
}

func (f *fakeOIDC) Exchange(_ context.Context, code, nonce string) (*identity.Profile, error) {
	f.lastCode = code
	f.lastNonce = nonce
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.profile, nil
}

func testConfig() *config.Config {
	return &config.Config{
		ListenAddr: "127.0.0.1:0",
		OIDC: config.OIDC{
			IssuerURL:    "https://idp.example.com",
			ClientID:     "gateway",
			ClientSecret: "secret",
			RedirectURL:  "https://dashboard.example.com/auth/callback",
		},
		Session: config.Session{
			Secret:     strings.Repeat("s", 32),
			TTL:        time.Hour,
			CookieName: "gateway_session",
		},
		Authz: config.Authz{
			ActiveOrgID:  "org-1",
			RequiredRole: "Member",
		},
	}
}

func memberProfile() *identity.Profile {
	return &identity.Profile{
		UserID:    "user-1",
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		OrgMemberships: map[string]identity.OrgMembership{
			"org-1": {
				OrgID:          "org-1",
				OrgName:        "Acme",
				EffectiveRoles: []string{"Member", "Admin"},
				Permissions:    []string{"peers.read"},
				CurrentRole:    "Admin",
			},
		},
	}
}

func newTestServer(t *testing.T, oidc OIDCClient) *Server {
	t.Helper()

	downstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("dashboard"))
	})

	srv, err := New(testConfig(), oidc, WithDownstream(downstream))
	require.NoError(t, err)
	return srv
}

func flowCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == flowCookieName && c.Value != "" {
			return c
		}
	}
	t.Fatal("flow cookie not set")
	return nil
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "gateway_session" && c.Value != "" {
			return c
		}
	}
	return nil
}

func TestNewRequiresOIDCClient(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), nil)
	assert.Error(t, err)
}

func TestNewRequiresDownstream(t *testing.T) {
	t.Parallel()

	_, err := New(testConfig(), &fakeOIDC{})
	assert.ErrorContains(t, err, "upstream")
}

func TestLoginRedirectsToProvider(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize"}
	srv := newTestServer(t, oidc)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login?next=/peers", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "https://idp.example.com/authorize")
	assert.NotEmpty(t, oidc.lastState)
	assert.NotEmpty(t, oidc.lastNonce)

	flow, err := url.ParseQuery(flowCookie(t, rec).Value)
	require.NoError(t, err)
	assert.Equal(t, oidc.lastState, flow.Get("state"))
	assert.Equal(t, oidc.lastNonce, flow.Get("nonce"))
	assert.Equal(t, "/peers", flow.Get("next"))
}

func TestLoginRejectsExternalReturnPath(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize"}
	srv := newTestServer(t, oidc)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login?next=//evil.com/", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	flow, err := url.ParseQuery(flowCookie(t, rec).Value)
	require.NoError(t, err)
	assert.Empty(t, flow.Get("next"))
}

func TestLoginProviderUnavailable(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authErr: provider.ErrProviderUnavailable}
	srv := newTestServer(t, oidc)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

// loginThenCallback drives the full flow and returns the callback response.
func loginThenCallback(t *testing.T, srv *Server, oidc *fakeOIDC, tamperState string) *httptest.ResponseRecorder {
	t.Helper()

	loginRec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(loginRec, httptest.NewRequest(http.MethodGet, "/auth/login?next=/peers", nil))
	require.Equal(t, http.StatusSeeOther, loginRec.Code)
	flow := flowCookie(t, loginRec)

	state := oidc.lastState
	if tamperState != "" {
		state = tamperState
	}

	callback := httptest.NewRequest(http.MethodGet,
		"/auth/callback?code=auth-code&state="+url.QueryEscape(state), nil)
	callback.AddCookie(flow)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, callback)
	return rec
}

func TestCallbackMintsSessionAndRedirects(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize", profile: memberProfile()}
	srv := newTestServer(t, oidc)

	rec := loginThenCallback(t, srv, oidc, "")

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/peers", rec.Header().Get("Location"))
	assert.Equal(t, "auth-code", oidc.lastCode)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie, "session cookie not set")

	claims, err := srv.minter.Verify(cookie.Value)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	require.NotNil(t, claims.Profile)
	membership, ok := claims.Profile.Membership("org-1")
	require.True(t, ok)
	assert.True(t, membership.HasRole("Member"))
}

func TestCallbackStateMismatch(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize", profile: memberProfile()}
	srv := newTestServer(t, oidc)

	rec := loginThenCallback(t, srv, oidc, "forged-state")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, sessionCookie(rec))
}

func TestCallbackWithoutFlowCookie(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/callback?code=c&state=s", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackExchangeFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "provider unavailable", err: provider.ErrProviderUnavailable, wantCode: http.StatusBadGateway},
		{name: "nonce mismatch", err: provider.ErrNonceMismatch, wantCode: http.StatusBadRequest},
		{name: "other failure", err: errors.New("boom"), wantCode: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize", exchangeErr: tt.err}
			srv := newTestServer(t, oidc)

			rec := loginThenCallback(t, srv, oidc, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestCallbackProviderError(t *testing.T) {
	t.Parallel()

	oidc := &fakeOIDC{authURL: "https://idp.example.com/authorize"}
	srv := newTestServer(t, oidc)

	loginRec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(loginRec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
	flow := flowCookie(t, loginRec)

	callback := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
	callback.AddCookie(flow)

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, callback)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestLogoutClearsSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/logout", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))

	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == "gateway_session" && c.MaxAge < 0 {
			cleared = true
		}
	}
	assert.True(t, cleared, "session cookie not cleared")
}

func TestSessionEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	profile := memberProfile()
	token, err := srv.minter.Mint(profile.Identity(), profile)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.AddCookie(&http.Cookie{Name: "gateway_session", Value: token})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got session.Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "user-1", got.Subject)
	assert.Equal(t, "Ada Lovelace", got.Name)
	require.NotNil(t, got.Profile)
	assert.Contains(t, got.Profile.OrgMemberships, "org-1")
}

func TestSessionEndpointWithoutToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRequiresSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/peers", nil))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/auth/login", rec.Header().Get("Location"))
}

func TestProtectedRouteWithSession(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	profile := memberProfile()
	token, err := srv.minter.Mint(profile.Identity(), profile)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/peers", nil)
	req.AddCookie(&http.Cookie{Name: "gateway_session", Value: token})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "dashboard", rec.Body.String())
}

func TestUnknownAuthPathIsNotForwardedUpstream(t *testing.T) {
	t.Parallel()

	var reachedDownstream bool
	downstream := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reachedDownstream = true
		w.WriteHeader(http.StatusOK)
	})
	srv, err := New(testConfig(), &fakeOIDC{}, WithDownstream(downstream))
	require.NoError(t, err)

	for _, path := range []string{"/auth/unknown", "/auth/anything-at-all", "/auth/login/extra"} {
		rec := httptest.NewRecorder()
		srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusNotFound, rec.Code, "path %s", path)
	}
	assert.False(t, reachedDownstream, "unauthenticated /auth/* request reached the upstream")
}

func TestStaticAssetsBypassGatekeeper(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, &fakeOIDC{})

	rec := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/app.css", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
