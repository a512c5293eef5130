// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session implements "refine session", the conversational walk
// through the backlog. On a terminal it runs the full-screen view;
// otherwise, or with --plain, it reads one utterance per line from
// stdin.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/refineui"
	"github.com/bureau-foundation/refine/lib/session"
)

type sessionParams struct {
	cli.JSONOutput
	cli.TrackerParams
	Limit   int    `json:"limit"    flag:"limit"    default:"50" desc:"fetch at most this many backlog tickets"`
	Plain   bool   `json:"plain"    flag:"plain"    desc:"read utterances line by line even on a terminal"`
	LogFile string `json:"log_file" flag:"log-file" desc:"append debug logs to this file"`
}

// Command returns the "session" command.
func Command(env cli.Environment) *cli.Command {
	var params sessionParams
	command := &cli.Command{
		Name:    "session",
		Summary: "Walk the backlog one ticket at a time",
		Description: `Fetch the backlog and present its tickets one at a time. Type what you
want done in plain words ("ready", "set priority to high", "add label
payments", "skip", "end session") and the ticket is updated in place.

Moving a ticket into a ready status runs the readiness checklist first;
a ticket with gaps stays where it is and the gaps are listed. A summary
of every ticket seen is printed when the session ends.

On a terminal the session runs full-screen. With --plain, or when stdin
is not a terminal, one utterance is read per line and end of input ends
the session.`,
		Usage: "refine session [--limit N] [--plain] [--log-file PATH] [flags]",
		Examples: []cli.Example{
			{Description: "Refine the backlog interactively", Command: "refine session"},
			{Description: "Script a session", Command: `printf 'ready\nend session\n' | refine session --plain --json`},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("session", &params)
		},
	}
	command.Run = func(ctx context.Context, args []string) error {
		if len(args) > 0 {
			return cli.Usage("session takes no arguments (got %q)", args)
		}
		if params.Limit < 1 {
			return cli.Usage("--limit must be at least 1, got %d", params.Limit)
		}
		return run(ctx, env, params)
	}
	return command
}

func run(ctx context.Context, env cli.Environment, params sessionParams) error {
	fullScreen := env.Interactive && !params.Plain

	var fileHandler slog.Handler
	if params.LogFile != "" {
		file, err := os.OpenFile(params.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer file.Close()
		fileHandler = slog.NewJSONHandler(file, &slog.HandlerOptions{Level: slog.LevelDebug})
	}

	// Full-screen output would be torn by log lines on stderr, so
	// warnings go to the status line instead.
	var statusHandler *refineui.StatusLogHandler
	var logger *slog.Logger
	switch {
	case fullScreen:
		statusHandler = refineui.NewStatusLogHandler(slog.LevelWarn, fileHandler)
		logger = slog.New(statusHandler)
	case fileHandler != nil:
		logger = slog.New(fileHandler)
	default:
		logger = params.Logger(env)
	}

	connection, err := cli.ConnectWithLogger(env, params.TrackerParams, logger)
	if err != nil {
		return err
	}
	defer connection.Close()

	controller, err := session.New(session.Config{
		Tracker: connection.Client,
		Profile: connection.Config.Profile,
		Logger:  logger,
	})
	if err != nil {
		return err
	}
	s, err := controller.Start(ctx, params.Limit)
	if err != nil {
		return err
	}

	var report session.Report
	var runErr error
	if fullScreen {
		report, runErr = runFullScreen(ctx, env, controller, s, statusHandler)
	} else {
		// With --json stdout carries only the report.
		output := env.Stdout
		if params.OutputJSON {
			output = env.Stderr
		}
		styles := env.Styles()
		report, runErr = refineui.RunPlain(ctx, controller, s, env.Stdin, output, refineui.PlainConfig{
			Styles: &styles,
			Width:  env.OutputWidth(),
		})
	}

	if done, err := params.EmitJSON(env.Stdout, report); done {
		return errors.Join(runErr, err)
	}
	fmt.Fprintln(env.Stdout, refineui.RenderReport(report, env.Styles()))
	return runErr
}

func runFullScreen(ctx context.Context, env cli.Environment, controller *session.Controller, s *session.Session, statusHandler *refineui.StatusLogHandler) (session.Report, error) {
	model := refineui.NewModel(ctx, controller, s, refineui.ModelConfig{})
	program := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithContext(ctx),
		tea.WithInput(env.Stdin),
		tea.WithOutput(env.Stdout),
	)
	statusHandler.SetSender(program)

	final, err := program.Run()
	if finished, ok := final.(refineui.Model); ok {
		if report := finished.Report(); report != nil {
			return *report, finished.Err()
		}
	}
	// The program was killed before the session ended; end it here so
	// the summary still reflects what happened.
	report := controller.End(s)
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return report, fmt.Errorf("running session view: %w", err)
	}
	return report, ctx.Err()
}
