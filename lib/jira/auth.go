// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/secret"
)

// AuthScheme selects how the API token is presented.
type AuthScheme string

const (
	// AuthBasic is Jira Cloud's scheme: HTTP basic auth with the
	// account email and an API token.
	AuthBasic AuthScheme = "basic"

	// AuthBearer sends the token as a bearer token, as Jira Data
	// Center personal access tokens require.
	AuthBearer AuthScheme = "bearer"
)

// ParseAuthScheme accepts "basic" or "bearer" (any case). Empty means
// basic.
func ParseAuthScheme(value string) (AuthScheme, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(AuthBasic):
		return AuthBasic, nil
	case string(AuthBearer):
		return AuthBearer, nil
	}
	return "", fmt.Errorf("unknown auth scheme %q (expected basic or bearer)", value)
}

// authenticator supplies the Authorization header. The header is built
// once, at construction, and held in protected memory.
type authenticator struct {
	header *secret.Buffer
}

func newAuthenticator(scheme AuthScheme, email string, token *secret.Buffer) (*authenticator, error) {
	if token == nil {
		return nil, fmt.Errorf("jira: no API token configured")
	}

	var header []byte
	switch scheme {
	case AuthBasic, "":
		if email == "" {
			return nil, fmt.Errorf("jira: basic auth requires an account email")
		}
		credentials := make([]byte, 0, len(email)+1+len(token.Bytes()))
		credentials = append(credentials, email...)
		credentials = append(credentials, ':')
		credentials = append(credentials, token.Bytes()...)

		encoded := make([]byte, base64.StdEncoding.EncodedLen(len(credentials)))
		base64.StdEncoding.Encode(encoded, credentials)
		clear(credentials)

		header = append([]byte("Basic "), encoded...)
		clear(encoded)
	case AuthBearer:
		header = append([]byte("Bearer "), token.Bytes()...)
	default:
		return nil, fmt.Errorf("jira: unknown auth scheme %q", scheme)
	}

	buffer, err := secret.NewFromBytes(header)
	if err != nil {
		return nil, fmt.Errorf("jira: storing authorization header: %w", err)
	}
	return &authenticator{header: buffer}, nil
}

// authorizationHeader returns the header value for one request.
func (auth *authenticator) authorizationHeader() string {
	return auth.header.String()
}

func (auth *authenticator) close() error {
	return auth.header.Close()
}
