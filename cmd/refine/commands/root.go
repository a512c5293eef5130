// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the complete refine command tree.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	sessioncmd "github.com/bureau-foundation/refine/cmd/refine/session"
	ticketcmd "github.com/bureau-foundation/refine/cmd/refine/ticket"
	"github.com/bureau-foundation/refine/lib/version"
)

// Root returns the refine command tree bound to env.
func Root(env cli.Environment) *cli.Command {
	subcommands := []*cli.Command{sessioncmd.Command(env)}
	subcommands = append(subcommands, ticketcmd.Commands(env)...)
	subcommands = append(subcommands, versionCommand(env))

	return &cli.Command{
		Name: "refine",
		Description: `refine: backlog refinement against a Jira Cloud project.

"refine session" walks the backlog one ticket at a time and takes plain
instructions. The other commands perform one tracker operation each and
are meant for scripts; most accept --json.

Configuration comes from the environment or a .env file:

  JIRA_BASE_URL        https://your-site.atlassian.net
  JIRA_EMAIL           account the API token belongs to
  JIRA_API_TOKEN       API token
  JIRA_API_TOKEN_FILE  file holding the API token, if JIRA_API_TOKEN is unset
  JIRA_PROJECT_KEY     project to refine
  JIRA_BACKLOG_JQL     optional query that selects the backlog
  JIRA_AUTH_SCHEME     basic (default) or bearer
  REFINE_PROFILE       optional YAML file with statuses and vocabulary
  REFINE_ENV_FILE      dotenv file to read instead of ./.env`,
		Subcommands: subcommands,
		HelpOutput:  env.Stderr,
	}
}

type versionParams struct {
	cli.JSONOutput
}

func versionCommand(env cli.Environment) *cli.Command {
	var params versionParams
	return &cli.Command{
		Name:    "version",
		Summary: "Print version information",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("version", &params)
		},
		Run: func(_ context.Context, args []string) error {
			build := version.Current()
			if done, err := params.EmitJSON(env.Stdout, build); done {
				return err
			}
			fmt.Fprintf(env.Stdout, "refine %s\n", build)
			return nil
		},
	}
}
