// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/cmd/refine/cli/clitest"
	"github.com/bureau-foundation/refine/lib/config"
	"github.com/bureau-foundation/refine/lib/jira"
)

func TestConnect(t *testing.T) {
	harness := clitest.New(t, nil)
	connection, err := cli.Connect(harness.Environment(""), cli.TrackerParams{Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()

	user, err := connection.Client.Myself(context.Background())
	if err != nil {
		t.Fatalf("Myself: %v", err)
	}
	if user.DisplayName != harness.Emulator.Account().DisplayName {
		t.Errorf("display name = %q", user.DisplayName)
	}
	if connection.Config.ProjectKey != harness.Emulator.Project() {
		t.Errorf("project = %q", connection.Config.ProjectKey)
	}
}

func TestConnectReportsEveryMissingVariable(t *testing.T) {
	harness := clitest.New(t, nil)
	delete(harness.Vars, config.EnvAPIToken)
	delete(harness.Vars, config.EnvEmail)

	_, err := cli.Connect(harness.Environment(""), cli.TrackerParams{})
	var missing *config.MissingError
	if !errors.As(err, &missing) {
		t.Fatalf("Connect() = %v, want a *config.MissingError", err)
	}
	if diff := cmp.Diff([]string{config.EnvAPIToken, config.EnvEmail}, missing.Names); diff != "" {
		t.Errorf("missing names (-want +got):\n%s", diff)
	}
	if cli.ExitCode(err) != cli.ExitFailure {
		t.Errorf("exit code = %d, want %d", cli.ExitCode(err), cli.ExitFailure)
	}
}

func TestConnectReadsEnvFile(t *testing.T) {
	harness := clitest.New(t, nil)
	path := filepath.Join(t.TempDir(), "refine.env")
	content := "JIRA_API_TOKEN=" + harness.Vars[config.EnvAPIToken] + "\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	delete(harness.Vars, config.EnvAPIToken)
	harness.Vars[config.EnvEnvFile] = path

	connection, err := cli.Connect(harness.Environment(""), cli.TrackerParams{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()
	if _, err := connection.Client.Myself(context.Background()); err != nil {
		t.Errorf("Myself with the token from the env file: %v", err)
	}
}

func TestConnectRejectedCredentials(t *testing.T) {
	harness := clitest.New(t, nil)
	harness.Vars[config.EnvAPIToken] = "not-the-token"

	connection, err := cli.Connect(harness.Environment(""), cli.TrackerParams{})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer connection.Close()
	_, err = connection.Client.Myself(context.Background())
	if !jira.IsAuth(err) || cli.ExitCode(err) != cli.ExitAuth {
		t.Errorf("Myself() = %v (exit %d), want an auth failure", err, cli.ExitCode(err))
	}
}
