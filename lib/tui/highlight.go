// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"time"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// HighlightDuration is how long a changed field stays tinted.
const HighlightDuration = 4 * time.Second

// Highlights remembers which ticket fields changed recently so they can
// be drawn with Theme.ChangedBackground until the tint expires.
type Highlights struct {
	changed map[ticket.Field]time.Time
}

// NewHighlights returns an empty set.
func NewHighlights() *Highlights {
	return &Highlights{changed: make(map[ticket.Field]time.Time)}
}

// Mark records that fields changed at now. Marking a field again
// restarts its tint.
func (highlights *Highlights) Mark(now time.Time, fields ...ticket.Field) {
	for _, field := range fields {
		highlights.changed[field] = now
	}
}

// Active reports whether field is still tinted at now.
func (highlights *Highlights) Active(field ticket.Field, now time.Time) bool {
	changed, ok := highlights.changed[field]
	return ok && now.Sub(changed) < HighlightDuration
}

// Pending reports whether any tint is still active, dropping the ones
// that have expired. The UI keeps its redraw timer running while this
// is true.
func (highlights *Highlights) Pending(now time.Time) bool {
	for field, changed := range highlights.changed {
		if now.Sub(changed) >= HighlightDuration {
			delete(highlights.changed, field)
		}
	}
	return len(highlights.changed) > 0
}

// Clear drops every tint, for example when a different ticket is shown.
func (highlights *Highlights) Clear() {
	clear(highlights.changed)
}
