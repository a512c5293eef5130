// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/bureau-foundation/refine/lib/refineui"
	"github.com/bureau-foundation/refine/lib/tui"
)

// defaultWidth wraps output that does not go to a terminal.
const defaultWidth = 100

// Environment is everything a command reads and writes besides its
// arguments.
type Environment struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// LookupEnv reads configuration variables.
	LookupEnv func(name string) (string, bool)

	// DefaultEnvFile overrides the dotenv file read when REFINE_ENV_FILE
	// is unset. "-" disables it.
	DefaultEnvFile string

	// HTTPClient talks to the tracker. Nil means http.DefaultClient
	// with the command's timeout.
	HTTPClient *http.Client

	// Interactive is true when both stdin and stdout are terminals.
	Interactive bool

	// Width is the terminal width, or 0 when stdout is not a terminal.
	Width int
}

// System returns the environment of the running process.
func System() Environment {
	env := Environment{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		LookupEnv:   os.LookupEnv,
		Interactive: IsTerminal(os.Stdin) && IsTerminal(os.Stdout),
	}
	if IsTerminal(os.Stdout) {
		if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
			env.Width = width
		}
	}
	return env
}

// OutputWidth is the width text output wraps to.
func (env Environment) OutputWidth() int {
	if env.Width > 0 {
		return env.Width
	}
	return defaultWidth
}

// Styles returns the rendering styles for stdout. Color is used only
// when stdout is a terminal that supports it.
func (env Environment) Styles() refineui.Styles {
	return refineui.NewStyles(tui.DefaultTheme, lipgloss.NewRenderer(env.Stdout))
}
