// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package identity defines the federated-identity payload produced by the
// identity provider, together with the minimal projection used by the
// generic session layer.
package identity

import (
	"encoding/json"
	"slices"
	"strings"
)

// OrgMembership describes a user's membership in a single organization.
type OrgMembership struct {
	// OrgID is the organization identifier. It always matches the key
	// under which the membership is stored in Profile.OrgMemberships.
	OrgID string `json:"org_id"`

	// OrgName is the display name of the organization.
	OrgName string `json:"org_name"`

	// URLSafeOrgName is the URL-safe slug of the organization name.
	URLSafeOrgName string `json:"url_safe_org_name"`

	// EffectiveRoles is the inherited role chain plus the user's
	// explicitly assigned role, most-specific last. It is the
	// authoritative source for role checks.
	EffectiveRoles []string `json:"inherited_user_roles_plus_current_role"`

	// Permissions is the set of fine-grained permission strings,
	// independent of role names.
	Permissions []string `json:"user_permissions"`

	// CurrentRole is the single explicitly assigned role. Informational;
	// use EffectiveRoles for checks.
	CurrentRole string `json:"user_role"`

	// OrgMetadata is an open bag of organization-level settings.
	OrgMetadata map[string]any `json:"org_metadata,omitempty"`
}

// HasRole reports whether the role appears in the effective role chain.
func (m *OrgMembership) HasRole(role string) bool {
	return slices.Contains(m.EffectiveRoles, role)
}

// HasPermission reports whether the membership carries the given
// fine-grained permission.
func (m *OrgMembership) HasPermission(permission string) bool {
	return slices.Contains(m.Permissions, permission)
}

// Profile is the authoritative federated-identity payload returned by the
// identity provider. It is immutable once received; the gateway copies it
// into the session token at login and never mutates it afterwards.
type Profile struct {
	UserID string `json:"user_id"`

	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`

	HasPassword bool `json:"has_password"`

	Username   string `json:"username,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	PictureURL string `json:"picture_url,omitempty"`

	Locked     bool `json:"locked"`
	Enabled    bool `json:"enabled"`
	MFAEnabled bool `json:"mfa_enabled"`

	// CreatedAt and LastActiveAt are seconds since epoch.
	CreatedAt    int64 `json:"created_at"`
	LastActiveAt int64 `json:"last_active_at"`

	// LegacyUserID is an optional migration alias.
	LegacyUserID string `json:"legacy_user_id,omitempty"`

	// Properties is an open, provider-specific extension bag.
	Properties map[string]any `json:"properties,omitempty"`

	// OrgMemberships maps organization id to the user's membership in
	// that organization. One entry per organization; order irrelevant.
	OrgMemberships map[string]OrgMembership `json:"org_id_to_org_member_info"`
}

// profileAlias breaks the UnmarshalJSON recursion and captures the legacy
// org map key some provider responses still use.
type profileAlias Profile

type profileWire struct {
	profileAlias
	LegacyOrgMemberships map[string]OrgMembership `json:"org_id_to_org_info"`
}

// UnmarshalJSON decodes a provider profile. The provider has emitted the
// organization map under two names (org_id_to_org_member_info and
// org_id_to_org_info); both decode into OrgMemberships, with the
// member-info key winning when both are present. Each membership's OrgID
// is normalized to its map key.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var wire profileWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	if wire.OrgMemberships == nil {
		wire.OrgMemberships = wire.LegacyOrgMemberships
	}

	for orgID, membership := range wire.OrgMemberships {
		if membership.OrgID != orgID {
			membership.OrgID = orgID
			wire.OrgMemberships[orgID] = membership
		}
	}

	*p = Profile(wire.profileAlias)
	return nil
}

// Membership looks up the user's membership in the given organization.
func (p *Profile) Membership(orgID string) (OrgMembership, bool) {
	if p == nil {
		return OrgMembership{}, false
	}
	membership, ok := p.OrgMemberships[orgID]
	return membership, ok
}

// DisplayName derives a human-readable name from the profile. Missing
// name fields degrade the result rather than failing: first plus last
// name when available, then a single name, then username, then email.
func (p *Profile) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(p.FirstName) + " " + strings.TrimSpace(p.LastName))
	if name != "" {
		return name
	}
	if p.Username != "" {
		return p.Username
	}
	return p.Email
}

// Identity returns the minimal local-identity projection used by the
// generic session layer. The full profile travels separately inside the
// session token for authorization use.
func (p *Profile) Identity() Identity {
	return Identity{
		Subject: p.UserID,
		Name:    p.DisplayName(),
		Email:   p.Email,
	}
}
