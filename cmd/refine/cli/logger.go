// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewCommandLogger creates a structured logger writing to w. When w is
// a terminal the output is slog's text format; when it is piped or
// redirected (CI, scripts, tests) it is JSON.
//
// Callers scope the logger with command-specific context via With():
//
//	logger := cli.NewCommandLogger(env.Stderr, slog.LevelWarn).With(
//	    "command", "transition",
//	    "key", key,
//	)
func NewCommandLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	options := &slog.HandlerOptions{Level: level}
	if IsTerminal(w) {
		return slog.New(slog.NewTextHandler(w, options))
	}
	return slog.New(slog.NewJSONHandler(w, options))
}

// IsTerminal reports whether stream is an *os.File attached to a
// terminal.
func IsTerminal(stream any) bool {
	file, ok := stream.(*os.File)
	return ok && term.IsTerminal(int(file.Fd()))
}
