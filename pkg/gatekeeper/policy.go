// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

// Package gatekeeper implements the per-request authorization filter: it
// extracts the session token, resolves the caller's membership in the
// deployment's active organization and evaluates a role policy, allowing
// or denying the request.
package gatekeeper

import (
	"slices"

	"github.com/replidash/gateway/pkg/identity"
)

// DefaultRole is the role required by the reference deployment policy.
const DefaultRole = "Member"

// Policy decides whether an organization membership permits access. A
// policy must be a pure function of the membership so the gatekeeper's
// decision stays deterministic and unit-testable.
type Policy interface {
	Evaluate(membership identity.OrgMembership) bool
}

// PolicyFunc adapts a plain function to the Policy interface.
type PolicyFunc func(membership identity.OrgMembership) bool

// Evaluate calls f(membership).
func (f PolicyFunc) Evaluate(membership identity.OrgMembership) bool {
	return f(membership)
}

// RequireRole allows memberships whose effective role chain contains the
// given role. Because the chain includes inherited roles, this acts as a
// hierarchical "has at least role" check.
func RequireRole(role string) Policy {
	return PolicyFunc(func(m identity.OrgMembership) bool {
		return m.HasRole(role)
	})
}

// RequirePermission allows memberships carrying the given fine-grained
// permission, independent of role names.
func RequirePermission(permission string) Policy {
	return PolicyFunc(func(m identity.OrgMembership) bool {
		return m.HasPermission(permission)
	})
}

// RequireMinRole allows memberships whose effective roles reach at least
// the given rank in the ordering, least-privileged first. Roles absent
// from the ordering are ignored.
func RequireMinRole(ordering []string, min string) Policy {
	minRank := slices.Index(ordering, min)

	return PolicyFunc(func(m identity.OrgMembership) bool {
		if minRank < 0 {
			return false
		}
		for _, role := range m.EffectiveRoles {
			if rank := slices.Index(ordering, role); rank >= minRank && rank >= 0 {
				return true
			}
		}
		return false
	})
}

// AllOf allows a membership only when every policy allows it.
func AllOf(policies ...Policy) Policy {
	return PolicyFunc(func(m identity.OrgMembership) bool {
		for _, p := range policies {
			if !p.Evaluate(m) {
				return false
			}
		}
		return true
	})
}

// AnyOf allows a membership when at least one policy allows it.
func AnyOf(policies ...Policy) Policy {
	return PolicyFunc(func(m identity.OrgMembership) bool {
		for _, p := range policies {
			if p.Evaluate(m) {
				return true
			}
		}
		return false
	})
}
