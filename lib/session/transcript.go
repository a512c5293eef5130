// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// Outcome classifies what a turn did.
type Outcome string

const (
	// OutcomeApplied: the tracker accepted a mutation.
	OutcomeApplied Outcome = "applied"

	// OutcomeUnchanged: nothing needed doing (already in the target
	// status, already at the top of the backlog).
	OutcomeUnchanged Outcome = "unchanged"

	// OutcomeBlocked: the readiness checklist stopped a transition.
	OutcomeBlocked Outcome = "blocked"

	// OutcomeRejected: the tracker refused the request.
	OutcomeRejected Outcome = "rejected"

	// OutcomeFailed: the call failed (network, credentials, server).
	OutcomeFailed Outcome = "failed"

	OutcomeUnrecognized Outcome = "unrecognized"
	OutcomeNavigated    Outcome = "navigated"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeEnded        Outcome = "ended"
)

// Entry is one line of the transcript.
type Entry struct {
	At        time.Time `json:"at"`
	Key       string    `json:"key,omitempty"`
	Utterance string    `json:"utterance,omitempty"`
	Intent    string    `json:"intent"`
	Outcome   Outcome   `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	Changes   []string  `json:"changes,omitempty"`

	// Fingerprint identifies the snapshot the decision was made on.
	Fingerprint ticket.Fingerprint `json:"fingerprint,omitzero"`
}

// TicketReport is the end-of-session line for one ticket.
type TicketReport struct {
	Key     string        `json:"key"`
	Summary string        `json:"summary"`
	Status  ticket.Status `json:"status"`

	// Applied counts mutations the tracker accepted.
	Applied int `json:"applied"`

	// Skipped is true when the ticket was skipped without changes.
	Skipped bool `json:"skipped,omitempty"`
}

// Report summarizes a session.
type Report struct {
	ID         uuid.UUID      `json:"id"`
	Started    time.Time      `json:"started"`
	Ended      time.Time      `json:"ended"`
	Queued     int            `json:"queued"`
	Tickets    []TicketReport `json:"tickets"`
	Transcript []Entry        `json:"transcript"`
}

// String renders a short plain-text summary.
func (r Report) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Session %s: %d of %d tickets reviewed in %s\n",
		r.ID.String()[:8], len(r.Tickets), r.Queued, r.Ended.Sub(r.Started).Round(time.Second))
	for _, line := range r.Tickets {
		switch {
		case line.Skipped:
			fmt.Fprintf(&builder, "  %s  skipped\n", line.Key)
		case line.Applied == 0:
			fmt.Fprintf(&builder, "  %s  %s, no changes\n", line.Key, line.Status)
		default:
			fmt.Fprintf(&builder, "  %s  %s, %d change(s)\n", line.Key, line.Status, line.Applied)
		}
	}
	return strings.TrimRight(builder.String(), "\n")
}

// record appends a transcript entry and updates the ticket's report
// line.
func (s *Session) record(at time.Time, entry Entry) {
	entry.At = at
	s.transcript = append(s.transcript, entry)
	if entry.Key == "" {
		return
	}
	line := s.ticketLine(entry.Key)
	switch entry.Outcome {
	case OutcomeApplied:
		line.Applied++
		line.Skipped = false
	case OutcomeSkipped:
		line.Skipped = line.Applied == 0
	}
}

// observe notes the latest snapshot of a ticket for the report.
func (s *Session) observe(snapshot *ticket.Ticket) {
	line := s.ticketLine(snapshot.Key)
	line.Summary = snapshot.Summary
	line.Status = snapshot.Status
}

func (s *Session) ticketLine(key string) *TicketReport {
	for index := range s.tickets {
		if s.tickets[index].Key == key {
			return &s.tickets[index]
		}
	}
	s.tickets = append(s.tickets, TicketReport{Key: key})
	return &s.tickets[len(s.tickets)-1]
}

// Report returns the session summary so far. Once the session has
// ended it is final.
func (s *Session) Report() Report {
	ended := s.ended
	if ended.IsZero() {
		ended = s.started
		if len(s.transcript) > 0 {
			ended = s.transcript[len(s.transcript)-1].At
		}
	}
	return Report{
		ID:         s.id,
		Started:    s.started,
		Ended:      ended,
		Queued:     len(s.queue),
		Tickets:    slices.Clone(s.tickets),
		Transcript: s.Transcript(),
	}
}
