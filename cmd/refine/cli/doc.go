// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the refine binary: a tree
// of [Command] values dispatched by name, flags declared as tagged
// params structs ([FlagsFromParams]), --json output ([JSONOutput]),
// and the mapping from tracker errors to process exit codes
// ([ExitCode]).
//
// Commands never touch os.Stdout or the process environment directly.
// They receive an [Environment] so tests can run the whole tree
// against buffers and an emulated tracker. [Connect] turns the
// environment into a configured tracker client.
package cli
