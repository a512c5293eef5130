// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticket implements the one-shot refine commands: each reads
// or changes a single tracker ticket (or the backlog listing) and
// exits.
package ticket

import (
	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// Commands returns the ticket commands, in the order help lists them.
func Commands(env cli.Environment) []*cli.Command {
	return []*cli.Command{
		testConnectionCommand(env),
		getBacklogCommand(env),
		getTicketCommand(env),
		checkReadyCommand(env),
		transitionsCommand(env),
		transitionCommand(env),
		updateTicketCommand(env),
		addLabelCommand(env),
		removeLabelCommand(env),
		moveRankCommand(env),
		searchEpicsCommand(env),
		linkEpicCommand(env),
		addCommentCommand(env),
		browseCommand(env),
	}
}

// parseKey normalizes a KEY argument. A malformed key is a usage error.
func parseKey(input string) (string, error) {
	key, err := ticket.ParseKey(input)
	if err != nil {
		return "", cli.Usage("%v", err)
	}
	return key, nil
}
