// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bureau-foundation/refine/lib/session"
)

// PlainConfig configures [RunPlain].
type PlainConfig struct {
	// Styles defaults to PlainStyles.
	Styles *Styles

	// Width wraps the output. Defaults to 80.
	Width int

	// Prompt is written before each read. Defaults to "> ".
	Prompt string
}

// RunPlain drives a session line by line: each ticket is printed, one
// line is read from input as the utterance, and the turn is printed.
// It returns the report when the session ends, either by the user, by
// exhausting the queue, or at end of input.
//
// A failed ticket load is reported and retried when the user enters an
// empty line. A context cancellation ends the session. When the tracker
// ends the session, for example by rejecting the credentials, that
// error is returned alongside the report.
func RunPlain(ctx context.Context, driver Driver, s *session.Session, input io.Reader, output io.Writer, cfg PlainConfig) (session.Report, error) {
	styles := PlainStyles()
	if cfg.Styles != nil {
		styles = *cfg.Styles
	}
	if cfg.Width <= 0 {
		cfg.Width = 80
	}
	if cfg.Prompt == "" {
		cfg.Prompt = "> "
	}

	lines := bufio.NewScanner(input)
	readLine := func() (string, bool) {
		fmt.Fprint(output, cfg.Prompt)
		if !lines.Scan() {
			fmt.Fprintln(output)
			return "", false
		}
		return strings.TrimSpace(lines.Text()), true
	}

	var fatal error
	for s.State() != session.Ended {
		if err := ctx.Err(); err != nil {
			return driver.End(s), err
		}

		if s.State() == session.AwaitingTicket || s.State() == session.Presenting {
			presentation, err := driver.Present(ctx, s)
			if errors.Is(err, session.ErrQueueExhausted) {
				fmt.Fprintln(output, styles.Faint.Render("The backlog is done."))
				break
			}
			if err != nil {
				fmt.Fprintln(output, styles.Error.Render("Could not load the ticket: "+err.Error()))
				if s.State() == session.Ended {
					fatal = err
					break
				}
				fmt.Fprintln(output, styles.Help.Render("Press enter to retry."))
				if _, ok := readLine(); !ok {
					break
				}
				continue
			}
			fmt.Fprintln(output)
			fmt.Fprintln(output, RenderPresentation(presentation, styles, cfg.Width, nil))
		}

		utterance, ok := readLine()
		if !ok {
			break
		}
		if utterance == "" {
			continue
		}
		turn, err := driver.Handle(ctx, s, utterance)
		switch {
		case turn != nil:
			fmt.Fprintln(output, RenderTurn(turn, styles, cfg.Width))
			if err != nil && s.State() == session.Ended {
				fatal = err
			}
		case err != nil:
			return driver.End(s), err
		}
	}

	if err := lines.Err(); err != nil {
		return driver.End(s), fmt.Errorf("reading commands: %w", err)
	}
	return driver.End(s), fatal
}
