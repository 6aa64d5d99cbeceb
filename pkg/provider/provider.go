// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package provider wraps a generic OAuth2/OIDC client with endpoint
// discovery for the deployment's identity provider and maps the
// provider's raw profile into the identity model.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/replidash/gateway/pkg/identity"
	"github.com/replidash/gateway/pkg/logger"
	"github.com/replidash/gateway/pkg/networking"
)

// ErrProviderUnavailable indicates that discovery or the code exchange
// failed. It aborts the login flow; the user re-initiates login, nothing
// is retried automatically.
var ErrProviderUnavailable = errors.New("identity provider unavailable")

// ErrNonceMismatch is returned when the nonce claim in the ID token does
// not match the expected nonce from the authorization request.
var ErrNonceMismatch = errors.New("ID token nonce does not match expected value")

// defaultScopes are requested when the config names none. openid is
// mandatory for ID tokens per OIDC Core.
var defaultScopes = []string{"openid", "profile", "email"}

// Config holds the static identity-provider settings, read at startup
// and immutable thereafter.
type Config struct {
	// IssuerURL is the base discovery URL; the discovery document is
	// fetched from {IssuerURL}/.well-known/openid-configuration.
	IssuerURL string

	// ClientID and ClientSecret identify this gateway to the provider.
	ClientID     string
	ClientSecret string

	// RedirectURL is the login callback URL registered with the provider.
	RedirectURL string

	// Scopes requested during login. Defaults to openid, profile, email.
	Scopes []string

	// CACertPath optionally points at a CA bundle for provider calls.
	CACertPath string

	// AllowPrivateIP permits providers on private addresses, for
	// development deployments.
	AllowPrivateIP bool
}

// Validate checks that the config has all required fields.
func (c *Config) Validate() error {
	if c.IssuerURL == "" {
		return errors.New("issuer URL is required")
	}
	if err := networking.ValidateEndpointURL(c.IssuerURL); err != nil {
		return fmt.Errorf("invalid issuer URL: %w", err)
	}
	if c.ClientID == "" {
		return errors.New("client ID is required")
	}
	if c.ClientSecret == "" {
		return errors.New("client secret is required")
	}
	if c.RedirectURL == "" {
		return errors.New("redirect URL is required")
	}
	if len(c.Scopes) > 0 && !slices.Contains(c.Scopes, "openid") {
		return errors.New("openid scope is required")
	}
	return nil
}

// DiscoveryDocument is the subset of the provider's discovery metadata
// the gateway validates. Fetching and issuer verification are delegated
// to go-oidc; this exists for endpoint-origin validation go-oidc skips.
type DiscoveryDocument struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserinfoEndpoint      string `json:"userinfo_endpoint"`
	JWKSURI               string `json:"jwks_uri"`
}

func validateDocument(doc *DiscoveryDocument) error {
	if doc.AuthorizationEndpoint == "" {
		return errors.New("missing authorization_endpoint")
	}
	if doc.TokenEndpoint == "" {
		return errors.New("missing token_endpoint")
	}
	if doc.JWKSURI == "" {
		return errors.New("missing jwks_uri")
	}

	endpoints := map[string]string{
		"authorization_endpoint": doc.AuthorizationEndpoint,
		"token_endpoint":         doc.TokenEndpoint,
		"userinfo_endpoint":      doc.UserinfoEndpoint,
		"jwks_uri":               doc.JWKSURI,
	}
	for name, endpoint := range endpoints {
		if endpoint == "" {
			continue
		}
		if err := networking.ValidateEndpointURL(endpoint); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// Provider is the adapter for the deployment's identity provider. It is
// constructed once at startup, holds only immutable cached data after
// discovery, and needs no teardown. Safe for concurrent use.
type Provider struct {
	config     Config
	httpClient *http.Client

	// Discovery state, populated lazily under mu. The discovery
	// document is effectively static, so the first successful fetch is
	// cached for the process lifetime; failures are not cached, each
	// login attempt retries.
	mu       sync.Mutex
	oidcp    *oidc.Provider
	doc      *DiscoveryDocument
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets a custom HTTP client for all provider calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// New creates a provider adapter. No network calls happen here; the
// discovery document is fetched lazily on first use so the gateway can
// start while the provider is briefly unreachable, but logins require
// discovery to resolve.
func New(config Config, opts ...Option) (*Provider, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}
	if len(config.Scopes) == 0 {
		config.Scopes = defaultScopes
	}

	p := &Provider{config: config}
	for _, opt := range opts {
		opt(p)
	}

	if p.httpClient == nil {
		client, err := networking.NewHttpClientBuilder().
			WithCABundle(config.CACertPath).
			WithPrivateIPs(config.AllowPrivateIP).
			Build()
		if err != nil {
			return nil, fmt.Errorf("failed to create HTTP client: %w", err)
		}
		p.httpClient = client
	}

	return p, nil
}

// discover fetches and caches the discovery document. First successful
// fetch wins; concurrent cold-start callers serialize on the mutex and
// observe the same immutable result.
func (p *Provider) discover(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.oidcp != nil {
		return nil
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)
	oidcp, err := oidc.NewProvider(ctx, p.config.IssuerURL)
	if err != nil {
		return fmt.Errorf("%w: discovery failed: %w", ErrProviderUnavailable, err)
	}

	// go-oidc validates the issuer but not endpoint origins.
	doc := &DiscoveryDocument{}
	if err := oidcp.Claims(doc); err != nil {
		return fmt.Errorf("%w: malformed discovery document: %w", ErrProviderUnavailable, err)
	}
	if err := validateDocument(doc); err != nil {
		return fmt.Errorf("%w: invalid discovery document: %w", ErrProviderUnavailable, err)
	}

	p.oidcp = oidcp
	p.doc = doc
	p.verifier = oidcp.Verifier(&oidc.Config{ClientID: p.config.ClientID})
	p.oauth = &oauth2.Config{
		ClientID:     p.config.ClientID,
		ClientSecret: p.config.ClientSecret,
		RedirectURL:  p.config.RedirectURL,
		Scopes:       p.config.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   doc.AuthorizationEndpoint,
			TokenURL:  doc.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}

	logger.Infow("resolved identity provider endpoints",
		"issuer", doc.Issuer,
		"authorization_endpoint", doc.AuthorizationEndpoint,
	)
	return nil
}

// Discovery returns the cached discovery document, fetching it on first
// use. Failures surface as ErrProviderUnavailable.
func (p *Provider) Discovery(ctx context.Context) (*DiscoveryDocument, error) {
	if err := p.discover(ctx); err != nil {
		return nil, err
	}
	return p.doc, nil
}

// AuthCodeURL builds the provider authorization URL for a login attempt.
// The state binds the callback to the browser session; the nonce binds
// the ID token to this authorization request.
func (p *Provider) AuthCodeURL(ctx context.Context, state, nonce string) (string, error) {
	if err := p.discover(ctx); err != nil {
		return "", err
	}
	return p.oauth.AuthCodeURL(state, oidc.Nonce(nonce)), nil
}

// Exchange redeems an authorization code, verifies the returned ID token
// (signature and nonce, delegated to go-oidc) and returns the raw
// identity profile. The profile is loaded from the userinfo endpoint
// when the provider advertises one, otherwise from the ID token claims.
func (p *Provider) Exchange(ctx context.Context, code, nonce string) (*identity.Profile, error) {
	if err := p.discover(ctx); err != nil {
		return nil, err
	}

	ctx = oidc.ClientContext(ctx, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %w", ErrProviderUnavailable, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%w: token response missing id_token", ErrProviderUnavailable)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%w: ID token verification failed: %w", ErrProviderUnavailable, err)
	}
	if nonce != "" && idToken.Nonce != nonce {
		return nil, ErrNonceMismatch
	}

	return p.loadProfile(ctx, token, idToken)
}

// loadProfile maps the provider's raw profile into the identity model.
// Mapping is total: missing optional fields degrade the profile, they
// never fail the login.
func (p *Provider) loadProfile(
	ctx context.Context,
	token *oauth2.Token,
	idToken *oidc.IDToken,
) (*identity.Profile, error) {
	profile := &identity.Profile{}

	if p.doc.UserinfoEndpoint != "" {
		userInfo, err := p.oidcp.UserInfo(ctx, oauth2.StaticTokenSource(token))
		if err != nil {
			return nil, fmt.Errorf("%w: userinfo fetch failed: %w", ErrProviderUnavailable, err)
		}
		if err := userInfo.Claims(profile); err != nil {
			return nil, fmt.Errorf("%w: malformed userinfo response: %w", ErrProviderUnavailable, err)
		}
	} else if err := idToken.Claims(profile); err != nil {
		return nil, fmt.Errorf("%w: malformed ID token claims: %w", ErrProviderUnavailable, err)
	}

	if profile.UserID == "" {
		// Degraded but non-fatal: fall back to the token subject so the
		// session always has a stable identifier.
		profile.UserID = idToken.Subject
	}

	return profile, nil
}
