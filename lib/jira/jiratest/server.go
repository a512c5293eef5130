// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"net/http/httptest"
	"testing"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/secret"
)

// Serve starts an HTTPS test server for the emulator. The server is
// closed when the test ends.
func (emulator *Emulator) Serve(t testing.TB) *httptest.Server {
	t.Helper()
	server := httptest.NewTLSServer(emulator)
	t.Cleanup(server.Close)
	return server
}

// NewClient returns a jira.Client pointed at server, authenticated as
// the emulator's account with basic auth, and querying the emulator's
// backlog. The client is closed when the test ends.
func (emulator *Emulator) NewClient(t testing.TB, server *httptest.Server, clk clock.Clock) *jira.Client {
	t.Helper()
	return emulator.newClient(t, server, clk, emulator.account.Token)
}

// NewClientWithToken is NewClient with a different API token, for
// exercising authentication failures.
func (emulator *Emulator) NewClientWithToken(t testing.TB, server *httptest.Server, token string) *jira.Client {
	t.Helper()
	return emulator.newClient(t, server, nil, token)
}

func (emulator *Emulator) newClient(t testing.TB, server *httptest.Server, clk clock.Clock, token string) *jira.Client {
	t.Helper()
	buffer, err := secret.NewFromString(token)
	if err != nil {
		t.Fatalf("storing token: %v", err)
	}
	defer buffer.Close()

	client, err := jira.NewClient(jira.Config{
		BaseURL:          server.URL,
		ProjectKey:       emulator.project,
		BacklogJQL:       emulator.BacklogJQL(),
		Scheme:           jira.AuthBasic,
		Email:            emulator.account.Email,
		Token:            buffer,
		StoryPointsField: emulator.storyPointsField,
		HTTPClient:       server.Client(),
		Clock:            clk,
	})
	if err != nil {
		t.Fatalf("jira.NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}
