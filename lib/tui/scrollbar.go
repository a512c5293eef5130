// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Scrollbar renders a one-column scrollbar beside a viewport, as tall
// as the viewport. When the content fits, the thumb fills the track.
func Scrollbar(theme Theme, view viewport.Model) string {
	return renderScrollbar(theme, view.Height, view.TotalLineCount(), view.VisibleLineCount(), view.YOffset)
}

func renderScrollbar(theme Theme, height, total, visible, offset int) string {
	if height <= 0 {
		return ""
	}
	track := lipgloss.NewStyle().Foreground(theme.BorderColor).Render("│")
	thumb := lipgloss.NewStyle().Foreground(theme.StatusInProgress).Render("┃")

	thumbStart, thumbSize := 0, height
	if total > visible && total > 0 {
		thumbSize = max(1, height*visible/total)
		if scrollable, room := total-visible, height-thumbSize; scrollable > 0 && room > 0 {
			thumbStart = min(offset*room/scrollable, room)
		}
	}

	lines := make([]string, height)
	for index := range lines {
		if index >= thumbStart && index < thumbStart+thumbSize {
			lines[index] = thumb
		} else {
			lines[index] = track
		}
	}
	return strings.Join(lines, "\n")
}
