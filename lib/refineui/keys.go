// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the session screen. Printable
// keys always go to the command line, so every binding here is a
// control or navigation key.
type KeyMap struct {
	Submit key.Binding
	Clear  key.Binding

	// Command history.
	HistoryPrevious key.Binding
	HistoryNext     key.Binding

	// Scrolling the ticket.
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	// Quit ends the session and shows the summary.
	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Submit: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "send"),
	),
	Clear: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear"),
	),
	HistoryPrevious: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑/↓", "history"),
	),
	HistoryNext: key.NewBinding(
		key.WithKeys("down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("pgup/pgdn", "scroll"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
	),
	Top: key.NewBinding(
		key.WithKeys("ctrl+home"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("ctrl+end"),
	),
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("ctrl+c", "end session"),
	),
}

// ShortHelp lists the bindings shown on the help line.
func (keys KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{keys.Submit, keys.HistoryPrevious, keys.PageUp, keys.Clear, keys.Quit}
}
