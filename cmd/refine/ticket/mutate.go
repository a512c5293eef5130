// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/refineui"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// --- transition ---

type transitionParams struct {
	cli.JSONOutput
	cli.TrackerParams
	To         string `json:"to"         flag:"to"         desc:"target status or transition name (required)"`
	Resolution string `json:"resolution" flag:"resolution" desc:"resolution to set on the transition screen"`
	Force      bool   `json:"force"      flag:"force"      desc:"move into a ready status even when the checklist has gaps"`
}

func transitionCommand(env cli.Environment) *cli.Command {
	var params transitionParams
	command := &cli.Command{
		Name:    "transition",
		Summary: "Move a ticket to another status",
		Description: `Move a ticket through its workflow. --to names either the destination
status ("In Progress") or the transition ("Start Progress").

Moving into a ready status runs the readiness checklist first and exits
7 without touching the ticket when it has gaps. When the status is not
reachable from the current one the available transitions are listed and
the command exits 4.`,
		Usage: "refine transition KEY --to STATUS [--resolution TEXT] [flags]",
		Examples: []cli.Example{
			{Description: "Mark a refined ticket ready", Command: "refine transition PROJ-2 --to Ready"},
			{Description: "Close a ticket that will not be built", Command: `refine transition PROJ-5 --to Done --resolution "Won't Do"`},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("transition", &params)
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
		target := strings.TrimSpace(params.To)
		if target == "" {
			return cli.Usage("--to is required")
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		if !params.Force {
			if err := checkReadyTarget(ctx, env, connection, key, target); err != nil {
				return err
			}
		}

		updated, err := connection.Client.Transition(ctx, key, target, params.Resolution)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, updated); done {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s moved to %s\n", key, updated.Status)
		return nil
	}
	return command
}

// checkReadyTarget runs the readiness checklist when target resolves
// to a transition landing in a ready status. It resolves target the way
// the client does, so the edge checked is the edge taken. An
// unreachable target is left to Transition, which reports the available
// transitions.
func checkReadyTarget(ctx context.Context, env cli.Environment, connection *cli.Connection, key, target string) error {
	available, err := connection.Client.Transitions(ctx, key)
	if err != nil {
		return err
	}
	chosen, ok := ticket.MatchTransition(available, target)
	if !ok || !connection.Config.Profile.IsReady(chosen.To) {
		return nil
	}
	destination := chosen.To

	current, err := connection.Client.FetchTicket(ctx, key)
	if err != nil {
		return err
	}
	if verdict := readiness.Evaluate(*current); !verdict.Ready() {
		fmt.Fprintln(env.Stderr, refineui.RenderVerdict(verdict, refineui.PlainStyles()))
		return &session.NotReadyError{Key: key, Target: string(destination), Gaps: verdict.Gaps()}
	}
	return nil
}

// --- update-ticket ---

type updateTicketParams struct {
	cli.JSONOutput
	cli.TrackerParams
	Summary     string `json:"summary"      flag:"summary"      desc:"new summary"`
	Description string `json:"description"  flag:"description"  desc:"new description as markdown (- reads stdin)"`
	StoryPoints int    `json:"story_points" flag:"story-points" desc:"story point estimate"`
	Priority    string `json:"priority"     flag:"priority"     desc:"Highest, High, Medium, Low or Lowest"`
}

func updateTicketCommand(env cli.Environment) *cli.Command {
	var params updateTicketParams
	var flagSet *pflag.FlagSet
	command := &cli.Command{
		Name:    "update-ticket",
		Summary: "Change the summary, description, estimate or priority",
		Description: `Update one or more fields of a ticket in a single request and print
what changed. Only the flags given are sent.`,
		Usage: "refine update-ticket KEY [--summary TEXT] [--description TEXT|-] [--story-points N] [--priority LEVEL]",
		Examples: []cli.Example{
			{Description: "Estimate and prioritize", Command: "refine update-ticket PROJ-3 --story-points 5 --priority High"},
			{Description: "Replace the description from a file", Command: "refine update-ticket PROJ-3 --description - < proj-3.md"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet = cli.FlagsFromParams("update-ticket", &params)
			return flagSet
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
		fields, err := updateFieldSet(params, flagSet, env.Stdin)
		if err != nil {
			return err
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		before, err := connection.Client.FetchTicket(ctx, key)
		if err != nil {
			return err
		}
		after, err := connection.Client.UpdateFields(ctx, key, fields)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, after); done {
			return err
		}
		changes := ticket.DescribeChanges(*before, *after)
		if len(changes) == 0 {
			fmt.Fprintf(env.Stdout, "%s already had those values\n", key)
			return nil
		}
		fmt.Fprintf(env.Stdout, "%s updated\n%s\n", key, refineui.RenderChanges(changes, env.Styles()))
		return nil
	}
	return command
}

// updateFieldSet collects the flags that were given into a FieldSet.
func updateFieldSet(params updateTicketParams, flagSet *pflag.FlagSet, stdin io.Reader) (ticket.FieldSet, error) {
	var fields ticket.FieldSet
	if flagSet.Changed("summary") {
		summary := strings.TrimSpace(params.Summary)
		if summary == "" {
			return fields, cli.Usage("--summary cannot be empty")
		}
		fields.Summary = &summary
	}
	if flagSet.Changed("description") {
		description := params.Description
		if description == "-" {
			data, err := io.ReadAll(stdin)
			if err != nil {
				return fields, fmt.Errorf("reading the description from stdin: %w", err)
			}
			description = string(data)
		}
		description = strings.TrimSpace(description)
		fields.Description = &description
	}
	if flagSet.Changed("story-points") {
		if params.StoryPoints < 0 {
			return fields, cli.Usage("--story-points cannot be negative, got %d", params.StoryPoints)
		}
		points := params.StoryPoints
		fields.StoryPoints = &points
	}
	if flagSet.Changed("priority") {
		priority, err := ticket.ParsePriority(params.Priority)
		if err != nil {
			return fields, cli.Usage("--priority: %v", err)
		}
		fields.Priority = &priority
	}
	if fields.Empty() {
		return fields, cli.Usage("nothing to update: give at least one of --summary, --description, --story-points, --priority")
	}
	return fields, nil
}

// --- add-label / remove-label ---

type labelParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func addLabelCommand(env cli.Environment) *cli.Command {
	return labelCommand(env, "add-label", "Add a label to a ticket", "added to",
		func(ctx context.Context, client *jira.Client, key, label string) (*ticket.Ticket, error) {
			return client.AddLabel(ctx, key, label)
		})
}

func removeLabelCommand(env cli.Environment) *cli.Command {
	return labelCommand(env, "remove-label", "Remove a label from a ticket", "removed from",
		func(ctx context.Context, client *jira.Client, key, label string) (*ticket.Ticket, error) {
			return client.RemoveLabel(ctx, key, label)
		})
}

func labelCommand(env cli.Environment, name, summary, verb string, apply func(context.Context, *jira.Client, string, string) (*ticket.Ticket, error)) *cli.Command {
	var params labelParams
	command := &cli.Command{
		Name:    name,
		Summary: summary,
		Usage:   "refine " + name + " KEY LABEL [flags]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams(name, &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY", "LABEL"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		label := strings.TrimSpace(args[1])
		if label == "" || strings.ContainsAny(label, " \t") {
			return cli.Usage("invalid label %q: labels are single words", args[1])
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		updated, err := apply(ctx, connection.Client, key, label)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, updated); done {
			return err
		}
		labels := "no labels"
		if len(updated.Labels) > 0 {
			labels = strings.Join(updated.Labels, ", ")
		}
		fmt.Fprintf(env.Stdout, "label %s %s %s (now: %s)\n", label, verb, key, labels)
		return nil
	}
	return command
}

// --- move-rank ---

type moveRankParams struct {
	cli.JSONOutput
	cli.TrackerParams
	Up   int `json:"up"   flag:"up"   desc:"move this many positions toward the top"`
	Down int `json:"down" flag:"down" desc:"move this many positions toward the bottom"`
}

type moveRankResult struct {
	Key    string `json:"key"`
	From   int    `json:"from"`
	To     int    `json:"to"`
	Anchor string `json:"anchor,omitempty"`
	Moved  bool   `json:"moved"`
}

func moveRankCommand(env cli.Environment) *cli.Command {
	var params moveRankParams
	command := &cli.Command{
		Name:    "move-rank",
		Summary: "Move a ticket up or down the backlog",
		Description: `Move a ticket a number of positions within the backlog order. The move
stops at the top or bottom of the backlog. Positions are 1-based.`,
		Usage: "refine move-rank KEY --up N | --down N [flags]",
		Examples: []cli.Example{
			{Description: "Pull a ticket two places up", Command: "refine move-rank PROJ-4 --up 2"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("move-rank", &params)
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
		var direction jira.RankDirection
		var count int
		switch {
		case params.Up > 0 && params.Down > 0:
			return cli.Usage("give only one of --up and --down")
		case params.Up > 0:
			direction, count = jira.RankUp, params.Up
		case params.Down > 0:
			direction, count = jira.RankDown, params.Down
		default:
			return cli.Usage("give --up N or --down N with N at least 1")
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		result, err := connection.Client.Rerank(ctx, key, direction, count)
		if err != nil {
			return err
		}
		done, err := params.EmitJSON(env.Stdout, moveRankResult{
			Key:    result.Key,
			From:   result.From + 1,
			To:     result.To + 1,
			Anchor: result.Anchor,
			Moved:  result.Moved(),
		})
		if done {
			return err
		}
		if !result.Moved() {
			boundary := "top"
			if direction == jira.RankDown {
				boundary = "bottom"
			}
			fmt.Fprintf(env.Stdout, "%s is already at the %s of the backlog\n", key, boundary)
			return nil
		}
		fmt.Fprintf(env.Stdout, "%s moved %s from position %d to %d\n", key, direction, result.From+1, result.To+1)
		return nil
	}
	return command
}

// --- link-epic ---

type linkEpicParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func linkEpicCommand(env cli.Environment) *cli.Command {
	var params linkEpicParams
	command := &cli.Command{
		Name:    "link-epic",
		Summary: "Make an epic the parent of a ticket",
		Usage:   "refine link-epic KEY EPIC_KEY [flags]",
		Examples: []cli.Example{
			{Description: "File PROJ-3 under the checkout epic", Command: "refine link-epic PROJ-3 PROJ-1"},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("link-epic", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if err := command.RequireArgs(args, "KEY", "EPIC_KEY"); err != nil {
			return err
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		epicKey, err := parseKey(args[1])
		if err != nil {
			return err
		}
		if key == epicKey {
			return cli.Usage("a ticket cannot be its own epic")
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		updated, err := connection.Client.LinkEpic(ctx, key, epicKey)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, updated); done {
			return err
		}
		fmt.Fprintf(env.Stdout, "%s linked to epic %s\n", key, epicKey)
		return nil
	}
	return command
}

// --- add-comment ---

type addCommentParams struct {
	cli.JSONOutput
	cli.TrackerParams
}

func addCommentCommand(env cli.Environment) *cli.Command {
	var params addCommentParams
	command := &cli.Command{
		Name:    "add-comment",
		Summary: "Append a comment to a ticket",
		Description: `Append a markdown comment to a ticket. The words after the key form
the comment; a single "-" reads it from stdin.`,
		Usage: "refine add-comment KEY TEXT... [flags]",
		Examples: []cli.Example{
			{Description: "Leave a note", Command: `refine add-comment PROJ-3 "Support gets this request weekly."`},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("add-comment", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) < 2 {
			return command.RequireArgs(args, "KEY", "TEXT")
		}
		key, err := parseKey(args[0])
		if err != nil {
			return err
		}
		text := strings.Join(args[1:], " ")
		if text == "-" {
			data, err := io.ReadAll(env.Stdin)
			if err != nil {
				return fmt.Errorf("reading the comment from stdin: %w", err)
			}
			text = string(data)
		}
		if text = strings.TrimSpace(text); text == "" {
			return cli.Usage("the comment is empty")
		}
		connection, err := cli.Connect(env, params.TrackerParams)
		if err != nil {
			return err
		}
		defer connection.Close()

		comment, err := connection.Client.AddComment(ctx, key, text)
		if err != nil {
			return err
		}
		if done, err := params.EmitJSON(env.Stdout, comment); done {
			return err
		}
		fmt.Fprintf(env.Stdout, "comment added to %s\n", key)
		return nil
	}
	return command
}
