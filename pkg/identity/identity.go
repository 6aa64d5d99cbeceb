// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package identity

import "fmt"

// Identity is the minimal projection of an authenticated principal,
// consumed by the generic session layer (subject, display name, email).
// Authorization decisions never read this type; they operate on the full
// Profile carried in the session token.
type Identity struct {
	// Subject is the unique identifier for the principal.
	Subject string

	// Name is the human-readable display name, possibly degraded when
	// the provider omitted name fields.
	Name string

	// Email is the email address, if available.
	Email string
}

// String returns a compact representation carrying only the subject, so
// logging an Identity never leaks profile data.
func (i *Identity) String() string {
	if i == nil {
		return "<nil>"
	}
	return fmt.Sprintf("Identity{Subject:%q}", i.Subject)
}
