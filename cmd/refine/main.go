// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Refine is a conversational backlog refinement tool for Jira Cloud.
// See "refine --help".
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/cmd/refine/commands"
	"github.com/bureau-foundation/refine/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.Root(cli.System()).Execute(ctx, os.Args[1:])
	stop()
	process.Exit(err, cli.ExitCode(err), cli.Reported(err))
}
