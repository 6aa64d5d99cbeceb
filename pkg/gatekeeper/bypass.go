// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package gatekeeper

import "strings"

// DefaultBypassPrefixes are the request paths that skip the gatekeeper:
// static assets, images and the favicon.
var DefaultBypassPrefixes = []string{
	"/static/",
	"/images/",
	"/favicon.ico",
}

// BypassList is a static, ordered set of literal path-prefix exclusions.
// Matching is plain string-prefix comparison, not glob or regex, so the
// bypass set stays cheap and auditable. It is evaluated before any token
// decoding, so bypassed requests never pay verification cost.
type BypassList struct {
	prefixes []string
}

// NewBypassList creates a bypass list from literal path prefixes. Empty
// entries are dropped; entries are normalized to a leading slash.
func NewBypassList(prefixes ...string) *BypassList {
	list := &BypassList{}
	for _, prefix := range prefixes {
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			continue
		}
		if !strings.HasPrefix(prefix, "/") {
			prefix = "/" + prefix
		}
		list.prefixes = append(list.prefixes, prefix)
	}
	return list
}

// Bypassed reports whether the request path skips gatekeeper evaluation.
func (b *BypassList) Bypassed(path string) bool {
	for _, prefix := range b.prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
