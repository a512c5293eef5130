// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// Theme is the color palette for terminal output. Colors are ANSI
// 256-color codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	// PriorityColors is indexed like ticket.Priorities, most urgent
	// first.
	PriorityColors [5]lipgloss.Color

	StatusBacklog    lipgloss.Color
	StatusReady      lipgloss.Color
	StatusInProgress lipgloss.Color
	StatusDone       lipgloss.Color

	// Checklist marks.
	Pass lipgloss.Color
	Fail lipgloss.Color

	// Line diff markers in change summaries.
	Added   lipgloss.Color
	Removed lipgloss.Color

	// KeyForeground colors ticket keys mentioned in free text.
	KeyForeground lipgloss.Color

	Warning lipgloss.Color
	Error   lipgloss.Color

	// ChangedBackground tints fields the last turn modified.
	ChangedBackground lipgloss.Color
}

// PriorityColor returns the color for a canonical priority, or
// FaintText when the priority is unset or unknown.
func (theme Theme) PriorityColor(priority ticket.Priority) lipgloss.Color {
	for index, candidate := range ticket.Priorities {
		if candidate == priority {
			return theme.PriorityColors[index]
		}
	}
	return theme.FaintText
}

// StatusColor returns the color for a workflow status. Statuses outside
// the default workflow are shown in NormalText.
func (theme Theme) StatusColor(status ticket.Status) lipgloss.Color {
	switch {
	case status.Is(ticket.StatusBacklog):
		return theme.StatusBacklog
	case status.Is(ticket.StatusReady):
		return theme.StatusReady
	case status.Is(ticket.StatusInProgress):
		return theme.StatusInProgress
	case status.Is(ticket.StatusDone):
		return theme.StatusDone
	default:
		return theme.NormalText
	}
}

// DefaultTheme targets 256-color terminals with a dark background.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	PriorityColors: [5]lipgloss.Color{
		lipgloss.Color("196"), // Highest: bright red
		lipgloss.Color("208"), // High: orange
		lipgloss.Color("75"),  // Medium: blue
		lipgloss.Color("245"), // Low: gray
		lipgloss.Color("240"), // Lowest: dim gray
	},

	StatusBacklog:    lipgloss.Color("141"), // light purple
	StatusReady:      lipgloss.Color("114"), // green
	StatusInProgress: lipgloss.Color("220"), // amber
	StatusDone:       lipgloss.Color("245"), // gray

	Pass: lipgloss.Color("114"),
	Fail: lipgloss.Color("203"),

	Added:   lipgloss.Color("114"),
	Removed: lipgloss.Color("203"),

	KeyForeground: lipgloss.Color("75"),

	Warning: lipgloss.Color("220"),
	Error:   lipgloss.Color("196"),

	ChangedBackground: lipgloss.Color("58"), // dark amber
}
