// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clitest runs refine commands against an emulated tracker
// with captured output.
package clitest

import (
	"bytes"
	"context"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/config"
	"github.com/bureau-foundation/refine/lib/jira/jiratest"
)

// Harness is an emulated tracker and the environment pointing at it.
type Harness struct {
	Emulator *jiratest.Emulator
	Server   *httptest.Server

	// Vars is the environment the commands see. Tests may edit it
	// before Run.
	Vars map[string]string

	Stdout bytes.Buffer
	Stderr bytes.Buffer
}

// New starts an emulator seeded with fixture (nil for the default
// fixture) and sets the variables every command needs.
func New(t testing.TB, fixture *jiratest.Fixture) *Harness {
	t.Helper()
	emulator := jiratest.New(jiratest.Config{
		Fixture: fixture,
		Logger:  slog.New(slog.DiscardHandler),
	})
	server := emulator.Serve(t)
	account := emulator.Account()
	return &Harness{
		Emulator: emulator,
		Server:   server,
		Vars: map[string]string{
			config.EnvBaseURL:    server.URL,
			config.EnvEmail:      account.Email,
			config.EnvAPIToken:   account.Token,
			config.EnvProjectKey: emulator.Project(),
			config.EnvBacklogJQL: emulator.BacklogJQL(),
		},
	}
}

// Environment returns a cli.Environment reading stdin from input and
// writing to the harness buffers.
func (h *Harness) Environment(input string) cli.Environment {
	return cli.Environment{
		Stdin:  strings.NewReader(input),
		Stdout: &h.Stdout,
		Stderr: &h.Stderr,
		LookupEnv: func(name string) (string, bool) {
			value, ok := h.Vars[name]
			return value, ok
		},
		DefaultEnvFile: "-",
		HTTPClient:     h.Server.Client(),
		Width:          80,
	}
}

// Run executes root with args after resetting the output buffers.
func (h *Harness) Run(root *cli.Command, args ...string) error {
	h.Stdout.Reset()
	h.Stderr.Reset()
	return root.Execute(context.Background(), args)
}
