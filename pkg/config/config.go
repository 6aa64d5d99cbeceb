// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package config contains the definition of the gateway configuration
// and the logic required to load and validate it.
//
// The configuration surface is environment-style: every value is read
// once at startup from GATEWAY_-prefixed environment variables and is
// immutable thereafter.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/replidash/gateway/pkg/networking"
)

// Default values for optional settings.
const (
	DefaultListenAddr = ":8080"
	DefaultCookieName = "gateway_session"
	DefaultSessionTTL = time.Hour
	DefaultRole       = "Member"

	minSessionSecretLength = 32
)

// OIDC holds the identity-provider settings.
type OIDC struct {
	// IssuerURL is the provider's base discovery URL.
	IssuerURL string `mapstructure:"issuer_url"`

	// ClientID and ClientSecret are the OAuth client credentials.
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// RedirectURL is the login callback registered with the provider.
	RedirectURL string `mapstructure:"redirect_url"`

	// Scopes requested at login; empty means the OIDC defaults.
	Scopes []string `mapstructure:"scopes"`

	// CACertPath optionally points at a CA bundle for provider calls.
	CACertPath string `mapstructure:"ca_cert_path"`

	// AllowPrivateIP permits providers on private addresses for
	// development deployments.
	AllowPrivateIP bool `mapstructure:"allow_private_ip"`
}

// Session holds the session-token settings.
type Session struct {
	// Secret signs session tokens. Shared across gateway instances.
	Secret string `mapstructure:"secret"`

	// TTL is the fixed session lifetime from issuance.
	TTL time.Duration `mapstructure:"ttl"`

	// CookieName names the session cookie.
	CookieName string `mapstructure:"cookie_name"`

	// CookieSecure marks the cookie HTTPS-only.
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// Authz holds the authorization settings.
type Authz struct {
	// ActiveOrgID is the single organization this deployment serves.
	ActiveOrgID string `mapstructure:"active_org_id"`

	// RequiredRole is the role the default policy requires within the
	// active organization.
	RequiredRole string `mapstructure:"required_role"`

	// BypassPrefixes are literal path prefixes that skip the
	// gatekeeper, in addition to the built-in static-asset prefixes.
	BypassPrefixes []string `mapstructure:"bypass_prefixes"`
}

// Config represents the configuration of the gateway.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// UpstreamURL is the dashboard application authorized requests are
	// proxied to.
	UpstreamURL string `mapstructure:"upstream_url"`

	OIDC    OIDC    `mapstructure:"oidc"`
	Session Session `mapstructure:"session"`
	Authz   Authz   `mapstructure:"authz"`
}

// Load reads the configuration from the environment and applies defaults.
// The result is not validated; call Validate before serving.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEWAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about, so
	// every key is declared with its default here.
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("upstream_url", "")
	v.SetDefault("oidc.issuer_url", "")
	v.SetDefault("oidc.client_id", "")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.redirect_url", "")
	v.SetDefault("oidc.scopes", []string{})
	v.SetDefault("oidc.ca_cert_path", "")
	v.SetDefault("oidc.allow_private_ip", false)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.ttl", DefaultSessionTTL)
	v.SetDefault("session.cookie_name", DefaultCookieName)
	v.SetDefault("session.cookie_secure", true)
	v.SetDefault("authz.active_org_id", "")
	v.SetDefault("authz.required_role", DefaultRole)
	v.SetDefault("authz.bypass_prefixes", []string{})

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	// Space-separated lists for env-only configuration.
	cfg.OIDC.Scopes = splitList(cfg.OIDC.Scopes)
	cfg.Authz.BypassPrefixes = splitList(cfg.Authz.BypassPrefixes)

	return cfg, nil
}

// splitList normalizes list values that arrive from the environment as a
// single space-separated string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		out = append(out, strings.Fields(value)...)
	}
	return out
}

// Validate checks the configuration, collecting every problem so a
// misconfigured deployment fails fast with a complete report.
func (c *Config) Validate() error {
	var errs []error

	if c.UpstreamURL != "" {
		if err := networking.ValidateEndpointURL(c.UpstreamURL); err != nil {
			errs = append(errs, fmt.Errorf("invalid upstream URL: %w", err))
		}
	}

	if c.OIDC.IssuerURL == "" {
		errs = append(errs, errors.New("oidc issuer URL is required (GATEWAY_OIDC_ISSUER_URL)"))
	} else if err := networking.ValidateEndpointURL(c.OIDC.IssuerURL); err != nil {
		errs = append(errs, fmt.Errorf("invalid oidc issuer URL: %w", err))
	}
	if c.OIDC.ClientID == "" {
		errs = append(errs, errors.New("oidc client id is required (GATEWAY_OIDC_CLIENT_ID)"))
	}
	if c.OIDC.ClientSecret == "" {
		errs = append(errs, errors.New("oidc client secret is required (GATEWAY_OIDC_CLIENT_SECRET)"))
	}
	if c.OIDC.RedirectURL == "" {
		errs = append(errs, errors.New("oidc redirect URL is required (GATEWAY_OIDC_REDIRECT_URL)"))
	}

	if len(c.Session.Secret) < minSessionSecretLength {
		errs = append(errs, fmt.Errorf(
			"session secret must be at least %d bytes (GATEWAY_SESSION_SECRET)", minSessionSecretLength))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("session ttl must be positive (GATEWAY_SESSION_TTL)"))
	}

	if c.Authz.ActiveOrgID == "" {
		errs = append(errs, errors.New("active organization id is required (GATEWAY_AUTHZ_ACTIVE_ORG_ID)"))
	}
	if c.Authz.RequiredRole == "" {
		errs = append(errs, errors.New("required role must not be empty (GATEWAY_AUTHZ_REQUIRED_ROLE)"))
	}

	return errors.Join(errs...)
}
