// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP helpers shared by the tracker client and
// the tracker emulator.
//
// Response reads are bounded at MaxResponseSize so a misbehaving server
// cannot exhaust memory. RequireSecureURL is the transport policy: the
// tracker is reached over HTTPS, with plain HTTP allowed only to
// loopback hosts where a local emulator runs.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
)

// MaxResponseSize bounds JSON API response body reads: 32 MB. A page
// of fifty issues with full descriptions and comments is well under
// one megabyte.
const MaxResponseSize int64 = 32 << 20

// ReadResponse reads a JSON API response body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// DecodeRequest reads a JSON request body (up to MaxResponseSize bytes)
// into v. The emulator uses it for every write endpoint.
func DecodeRequest(body io.Reader, v any) error {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if len(data) == 0 {
		return fmt.Errorf("empty request body")
	}
	return json.Unmarshal(data, v)
}

// RequireSecureURL parses rawURL and returns it without a trailing
// slash. The scheme must be https, or http with a loopback host.
func RequireSecureURL(rawURL string) (string, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(rawURL), "/")
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", rawURL, err)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("invalid URL %q: no host", rawURL)
	}
	switch parsed.Scheme {
	case "https":
		return trimmed, nil
	case "http":
		if IsLoopbackHost(parsed.Hostname()) {
			return trimmed, nil
		}
		return "", fmt.Errorf("refusing plain HTTP to non-loopback host %q (use https)", parsed.Host)
	default:
		return "", fmt.Errorf("unsupported URL scheme %q in %q", parsed.Scheme, rawURL)
	}
}

// IsLoopbackHost reports whether host is "localhost" or a loopback IP.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
