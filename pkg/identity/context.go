// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package identity

import "context"

// contextKey provides type-safe context storage. Using an empty struct as
// the key prevents collisions with other packages' context keys.
type contextKey struct{}

// WithIdentity stores an Identity in the context. If identity is nil, the
// original context is returned unchanged.
//
// This is called by the gatekeeper after an allow decision to make the
// identity available to downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, identity)
}

// FromContext retrieves the Identity from the context. Returns the
// identity and true if present, nil and false otherwise.
func FromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(contextKey{}).(*Identity)
	return identity, ok
}
