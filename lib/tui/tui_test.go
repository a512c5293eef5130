// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/refine/lib/ticket"
)

func TestHighlightsExpire(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	highlights := NewHighlights()
	highlights.Mark(start, ticket.FieldPriority, ticket.FieldLabels)

	if !highlights.Active(ticket.FieldPriority, start.Add(time.Second)) {
		t.Error("priority should be tinted right after the change")
	}
	if highlights.Active(ticket.FieldSummary, start) {
		t.Error("an unchanged field should not be tinted")
	}

	highlights.Mark(start.Add(3*time.Second), ticket.FieldLabels)
	later := start.Add(HighlightDuration + time.Second)
	if highlights.Active(ticket.FieldPriority, later) {
		t.Error("priority tint should have expired")
	}
	if !highlights.Pending(later) {
		t.Error("re-marking labels should have restarted its tint")
	}
	if highlights.Pending(later.Add(HighlightDuration)) {
		t.Error("every tint should have expired")
	}
}

func TestHighlightsClear(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	highlights := NewHighlights()
	highlights.Mark(now, ticket.FieldStatus)
	highlights.Clear()
	if highlights.Pending(now) {
		t.Error("Clear left a tint behind")
	}
}

func TestRenderScrollbar(t *testing.T) {
	tests := []struct {
		name                   string
		height, total, visible int
		offset                 int
		want                   string
	}{
		{"content fits", 3, 2, 3, 0, "┃┃┃"},
		{"at the top", 4, 8, 4, 0, "┃┃││"},
		{"at the bottom", 4, 8, 4, 4, "││┃┃"},
		{"no height", 0, 8, 4, 0, ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := strings.ReplaceAll(ansi.Strip(renderScrollbar(DefaultTheme, test.height, test.total, test.visible, test.offset)), "\n", "")
			if got != test.want {
				t.Errorf("scrollbar = %q, want %q", got, test.want)
			}
		})
	}
}

func TestStatusColor(t *testing.T) {
	if DefaultTheme.StatusColor(ticket.StatusReady) == DefaultTheme.StatusColor(ticket.StatusBacklog) {
		t.Error("ready and backlog should be told apart by color")
	}
	if DefaultTheme.PriorityColor(ticket.PriorityHighest) == DefaultTheme.PriorityColor(ticket.PriorityLowest) {
		t.Error("highest and lowest priority should be told apart by color")
	}
}
