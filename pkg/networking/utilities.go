// SPDX-FileCopyrightText: Copyright 2026 Replidash, Inc.
// SPDX-License-Identifier: Apache-2.0

package networking

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

var privateIPBlocks []*net.IPNet

func init() {
	for _, cidr := range []string{
		"127.0.0.0/8",    // IPv4 loopback
		"10.0.0.0/8",     // RFC1918
		"172.16.0.0/12",  // RFC1918
		"192.168.0.0/16", // RFC1918
		"169.254.0.0/16", // RFC3927 link-local
		"::1/128",        // IPv6 loopback
		"fe80::/10",      // IPv6 link-local
		"fc00::/7",       // IPv6 unique local
	} {
		_, block, _ := net.ParseCIDR(cidr)
		privateIPBlocks = append(privateIPBlocks, block)
	}
}

// AddressReferencesPrivateIP returns an error if the host:port address
// resolves to a private, loopback or link-local IP.
func AddressReferencesPrivateIP(address string) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		host = address
	}

	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("unable to parse IP address from %q", address)
	}

	for _, block := range privateIPBlocks {
		if block.Contains(ip) {
			return fmt.Errorf("access to private IP address %s is not allowed", ip)
		}
	}

	return nil
}

// IsLocalhost returns true if the host refers to the local machine.
// Accepts host or host:port forms.
func IsLocalhost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}

	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ValidateEndpointURL checks that the given endpoint is a well-formed
// HTTPS URL. Plain HTTP is only allowed for localhost, to support
// development deployments.
func ValidateEndpointURL(endpoint string) error {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("malformed URL %q: %w", endpoint, err)
	}

	if parsed.Host == "" {
		return fmt.Errorf("URL %q has no host", endpoint)
	}

	switch parsed.Scheme {
	case "https":
		return nil
	case "http":
		if IsLocalhost(parsed.Host) {
			return nil
		}
		return fmt.Errorf("URL %q must use HTTPS", endpoint)
	default:
		return fmt.Errorf("URL %q has unsupported scheme %q", endpoint, parsed.Scheme)
	}
}
