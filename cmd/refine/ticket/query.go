// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/refineui"
)

// --- test-connection ---

type testConnectionParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

type connectionResult struct {
	BaseURL           string `json:"base_url"`
	AccountID         string `json:"account_id"`
	DisplayName       string `json:"display_name"`
	Project           string `json:"project"`
	BacklogJQL        string `json:"backlog_jql"`
	BacklogJQLDerived bool   `json:"backlog_jql_derived"`
	Profile           string `json:"profile,omitempty"`
}

func testConnectionCommand(env cli.Environment) *cli.Command {
	var params testConnectionParams
	command := &cli.Command{
		Name:    "test-connection",
		Summary: "Check the credentials and the backlog query",
		Description: `Authenticate against the tracker and run the backlog query once.

Prints the account the token belongs to and the query the backlog is
read with. Exits 3 when the tracker rejects the credentials.`,
		Usage: "refine test-connection [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("test-connection", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args); err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		user, err := connection.Client.Myself(ctx)
		if err != nil {
			return err
		}
		if _, err := connection.Client.FetchBacklog(ctx, 1); err != nil {
			return fmt.Errorf("running the backlog query: %w", err)
		}

		cfg := connection.Config
		result := connectionResult{
			BaseURL:           cfg.BaseURL,
			AccountID:         user.AccountID,
			DisplayName:       user.DisplayName,
			Project:           cfg.ProjectKey,
			BacklogJQL:        cfg.BacklogJQL,
			BacklogJQLDerived: cfg.BacklogJQLDerived,
			Profile:           cfg.ProfilePath,
		}
		if done, err := params.EmitJSON(env.Stdout, result); done {
			return err
		}

		styles := env.Styles()
		fmt.Fprintf(env.Stdout, "%s %s as %s\n", styles.Pass.Render("Connected to"), cfg.BaseURL, user.DisplayName)
		query := cfg.BacklogJQL
		if cfg.BacklogJQLDerived {
			query += styles.Faint.Render("  (derived; set JIRA_BACKLOG_JQL to override)")
		}
		fmt.Fprintf(env.Stdout, "Project %s\nBacklog %s\n", cfg.ProjectKey, query)
		return nil
	}
	return command
}

// --- get-backlog ---

type getBacklogParams struct {
	cli.JSONOutput
	cli.TrackerParams
	Limit int `json:"limit" flag:"limit,n" desc:"maximum number of tickets to list" default:"50"`
}

func getBacklogCommand(env cli.Environment) *cli.Command {
	var params getBacklogParams
	command := &cli.Command{
		Name:    "get-backlog",
		Summary: "List the backlog in rank order",
		Description: `List the tickets the backlog query selects, in rank order. These are
the tickets a session walks through.`,
		Usage: "refine get-backlog [--limit N] [flags]",
		Examples: []cli.Example{
			{Description: "The next ten tickets as JSON", Command: "refine get-backlog --limit 10 --json"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get-backlog", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args); err != nil {
			return err
		}
		if params.Limit < 1 {
			return cli.Usage("--limit must be at least 1, got %d", params.Limit)
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		summaries, err := connection.Client.FetchBacklog(ctx, params.Limit)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, summaries); done {
			return err
		}
		fmt.Fprintln(env.Stdout, refineui.RenderBacklog(summaries, env.Styles(), env.OutputWidth()))
		return nil
	}
	return command
}

// --- get-ticket ---

type getTicketParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func getTicketCommand(env cli.Environment) *cli.Command {
	var params getTicketParams
	command := &cli.Command{
		Name:    "get-ticket",
		Summary: "Show one ticket with its readiness checklist",
		Usage:   "refine get-ticket KEY [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("get-ticket", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		fetched, err := connection.Client.FetchTicket(ctx, key)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, fetched); done {
			return err
		}
		fmt.Fprintln(env.Stdout, refineui.RenderTicket(*fetched, env.Styles(), env.OutputWidth()))
		return nil
	}
	return command
}

// --- check-ready ---

type checkReadyParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

type checkReadyResult struct {
	readiness.Verdict
	Ready bool `json:"ready"`
}

func checkReadyCommand(env cli.Environment) *cli.Command {
	var params checkReadyParams
	command := &cli.Command{
		Name:    "check-ready",
		Summary: "Evaluate the readiness checklist (exit 7 when not ready)",
		Description: `Evaluate the readiness checklist of a ticket: a problem statement,
outcome-phrased acceptance criteria, a priority, at least one label, and
reviewed blockers.

Exits 0 when every check passes and 7 when any fails, so scripts can
gate on it.`,
		Usage: "refine check-ready KEY [flags]",
		Examples: []cli.Example{
			{Description: "Fail a script step unless PROJ-3 is ready", Command: "refine check-ready PROJ-3 || exit 1"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("check-ready", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		fetched, err := connection.Client.FetchTicket(ctx, key)
		if err != nil {
			return err
		}
		verdict := readiness.Evaluate(*fetched)
		done, err := params.EmitJSON(env.Stdout, checkReadyResult{Verdict: verdict, Ready: verdict.Ready()})
		if err != nil {
			return err
		}
		if !done {
			fmt.Fprintln(env.Stdout, refineui.RenderVerdict(verdict, env.Styles()))
		}
		if !verdict.Ready() {
			return &cli.ExitError{Code: cli.ExitNotReady}
		}
		return nil
	}
	return command
}

// --- transitions ---

type transitionsParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func transitionsCommand(env cli.Environment) *cli.Command {
	var params transitionsParams
	command := &cli.Command{
		Name:    "transitions",
		Summary: "List the transitions available from a ticket's status",
		Usage:   "refine transitions KEY [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("transitions", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		transitions, err := connection.Client.Transitions(ctx, key)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, transitions); done {
			return err
		}
		if len(transitions) == 0 {
			fmt.Fprintf(env.Stdout, "%s has no transitions available\n", key)
			return nil
		}
		fmt.Fprintln(env.Stdout, refineui.RenderTransitions(transitions, env.Styles()))
		return nil
	}
	return command
}

// --- search-epics ---

type searchEpicsParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func searchEpicsCommand(env cli.Environment) *cli.Command {
	var params searchEpicsParams
	command := &cli.Command{
		Name:    "search-epics",
		Summary: "Find epics of the project by summary",
		Usage:   "refine search-epics QUERY [flags]",
		Examples: []cli.Example{
			{Description: "Epics mentioning checkout", Command: "refine search-epics checkout"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("search-epics", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) == 0 {
			return command.RequireArgs(args, "QUERY")
		}
		query := strings.Join(args, " ")
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		epics, err := connection.Client.SearchEpics(ctx, query)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, epics); done {
			return err
		}
		fmt.Fprintln(env.Stdout, refineui.RenderBacklog(epics, env.Styles(), env.OutputWidth()))
		return nil
	}
	return command
}

// --- browse ---

type browseParams struct {
	cli.TrackerParams
	Open bool `json:"open" flag:"open" desc:"open the page in the default browser"`
}

func browseCommand(env cli.Environment) *cli.Command {
	var params browseParams
	command := &cli.Command{
		Name:    "browse",
		Summary: "Print the web address of a ticket",
		Usage:   "refine browse KEY [--open]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("browse", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		address := connection.Client.BrowseURL(key)
		fmt.Fprintln(env.Stdout, address)
		if params.Open {
			return openBrowser(ctx, address)
		}
		return nil
	}
	return command
}

// openBrowser hands address to the platform's URL opener.
func openBrowser(ctx context.Context, address string) error {
	var command *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		command = exec.CommandContext(ctx, "open", address)
	case "windows":
		command = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", address)
	default:
		command = exec.CommandContext(ctx, "xdg-open", address)
	}
	if err := command.Start(); err != nil {
		return fmt.Errorf("opening %s: %w", address, err)
	}
	return command.Process.Release()
}
