// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/google/uuid"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/refine/lib/intent"
	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/ticket"
	"github.com/bureau-foundation/refine/lib/tui"
)

func savedCards() ticket.Ticket {
	subject := ticket.Ticket{
		Key:         "PROJ-3",
		Summary:     "Saved payment methods",
		Type:        "Story",
		Status:      ticket.StatusBacklog,
		Priority:    ticket.PriorityHigh,
		StoryPoints: 5,
		Epic:        "PROJ-1",
		Comments: []ticket.Comment{{
			Author:  "Dana",
			Body:    "Support gets this request weekly.",
			Created: time.Date(2026, 2, 27, 15, 4, 0, 0, time.UTC),
		}},
	}
	subject.SetDescription("Shoppers re-enter card details on every order.\n\n## Acceptance Criteria\n\n- Add a saved cards table\n")
	return subject
}

func presentationOf(subject ticket.Ticket) *session.Presentation {
	return &session.Presentation{
		Ticket:   subject,
		Verdict:  readiness.Evaluate(subject),
		Position: 2,
		Total:    4,
	}
}

func TestRenderPresentation(t *testing.T) {
	result := RenderPresentation(presentationOf(savedCards()), PlainStyles(), 80, nil)
	lines := strings.Split(result, "\n")

	if !strings.HasPrefix(lines[0], "PROJ-3  Saved payment methods") || !strings.HasSuffix(lines[0], "2/4") {
		t.Errorf("title line = %q", lines[0])
	}
	if width := ansi.StringWidth(lines[0]); width != 80 {
		t.Errorf("title line width = %d, want 80", width)
	}
	if lines[1] != "BACKLOG  High  Story  5 pts  no labels" {
		t.Errorf("meta line = %q", lines[1])
	}
	if lines[2] != "epic PROJ-1" {
		t.Errorf("relations line = %q", lines[2])
	}

	for _, want := range []string{
		"Shoppers re-enter card details on every order.",
		"✗ Add a saved cards table",
		"Not ready: 3 gap(s)",
		"✓ problem-statement",
		"✗ acceptance-criteria",
		"✓ priority",
		"✗ labels",
		"✗ blockers",
		"1 comment(s), latest from Dana on 2026-02-27:",
		"  Support gets this request weekly.",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("presentation missing %q:\n%s", want, result)
		}
	}
}

func TestRenderPresentationBareTicket(t *testing.T) {
	bare := ticket.Ticket{Key: "PROJ-4", Summary: "Slow order history page", Status: ticket.StatusBacklog}
	result := RenderPresentation(presentationOf(bare), PlainStyles(), 60, nil)

	for _, want := range []string{"no priority", "no labels", "(no description)", "Not ready: 5 gap(s)"} {
		if !strings.Contains(result, want) {
			t.Errorf("presentation missing %q:\n%s", want, result)
		}
	}
	if strings.Contains(result, "comment(s)") {
		t.Errorf("a ticket without comments should not show a comment section:\n%s", result)
	}
}

func TestRenderPresentationTintsChangedFields(t *testing.T) {
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(termenv.ANSI256)
	styles := NewStyles(tui.DefaultTheme, renderer)
	presentation := presentationOf(savedCards())

	untinted := RenderPresentation(presentation, styles, 80, nil)
	tinted := RenderPresentation(presentation, styles, 80, func(field ticket.Field) bool {
		return field == ticket.FieldPriority
	})
	if untinted == tinted {
		t.Fatal("tinting the priority did not change the output")
	}
	if ansi.Strip(untinted) != ansi.Strip(tinted) {
		t.Error("tinting changed the visible text")
	}
}

func TestRenderVerdictReady(t *testing.T) {
	verdict := readiness.Verdict{Key: "PROJ-2", Results: []readiness.Result{
		{Check: readiness.CheckPriority, Satisfied: true, Detail: "priority is Medium"},
	}}
	result := RenderVerdict(verdict, PlainStyles())
	if result != "Ready to save\n  ✓ priority  priority is Medium" {
		t.Errorf("verdict = %q", result)
	}
}

func TestRenderTurnApplied(t *testing.T) {
	turn := &session.Turn{
		Utterance: "add label payments",
		Intent:    intent.UpdateField{Field: intent.EditAddLabel, Value: "payments"},
		Outcome:   session.OutcomeApplied,
		Key:       "PROJ-3",
		Message:   "PROJ-3 updated",
		Changes: []string{
			"labels: (unset) → payments",
			"description:",
			"  + - Shoppers see saved cards",
			"  - - Add a saved cards table",
		},
	}
	result := RenderTurn(turn, PlainStyles(), 80)
	want := strings.Join([]string{
		"PROJ-3 updated",
		"  labels: (unset) → payments",
		"  description:",
		"  + - Shoppers see saved cards",
		"  - - Add a saved cards table",
	}, "\n")
	if result != want {
		t.Errorf("turn =\n%s\nwant\n%s", result, want)
	}
}

func TestRenderTurnBlocked(t *testing.T) {
	gaps := []readiness.Result{
		{Check: readiness.CheckLabels, Detail: "no labels"},
		{Check: readiness.CheckBlockers, Detail: "blockers not reviewed"},
	}
	turn := &session.Turn{
		Outcome: session.OutcomeBlocked,
		Key:     "PROJ-3",
		Gaps:    gaps,
		Err:     &session.NotReadyError{Key: "PROJ-3", Target: "Ready", Gaps: gaps},
	}
	turn.Message = turn.Err.Error()
	result := RenderTurn(turn, PlainStyles(), 80)
	for _, want := range []string{
		`PROJ-3 is not ready for "Ready": labels, blockers`,
		"Fix these first:",
		"  ✗ labels  no labels",
		"  ✗ blockers  blockers not reviewed",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("blocked turn missing %q:\n%s", want, result)
		}
	}
}

func TestRenderTurnListsTransitions(t *testing.T) {
	turn := &session.Turn{
		Outcome:     session.OutcomeRejected,
		Key:         "PROJ-5",
		Message:     "transition to Ready is not available",
		Transitions: []ticket.Transition{{ID: "61", Name: "Reopen", To: ticket.StatusBacklog}},
	}
	result := RenderTurn(turn, PlainStyles(), 80)
	if !strings.Contains(result, "Available transitions:\n  Reopen → Backlog") {
		t.Errorf("transitions missing:\n%s", result)
	}
}

func TestRenderTurnUnrecognizedOffersExamples(t *testing.T) {
	turn := &session.Turn{Outcome: session.OutcomeUnrecognized, Message: "could not tell what to do with \"hmm\""}
	result := RenderTurn(turn, PlainStyles(), 80)
	if !strings.Contains(result, `Try "ready"`) {
		t.Errorf("unrecognized turn should suggest commands:\n%s", result)
	}
}

func TestRenderTurnAppliedWithRefetchFailure(t *testing.T) {
	turn := &session.Turn{
		Outcome: session.OutcomeApplied,
		Key:     "PROJ-3",
		Message: "comment added to PROJ-3",
		Err:     errors.New("PROJ-3 was updated but could not be re-fetched: timeout"),
	}
	result := RenderTurn(turn, PlainStyles(), 80)
	if !strings.Contains(result, "comment added to PROJ-3\nPROJ-3 was updated but could not be re-fetched") {
		t.Errorf("re-fetch warning missing:\n%s", result)
	}
}

func TestRenderReport(t *testing.T) {
	report := session.Report{
		ID:     uuid.MustParse("0b6f1f2c-3d4e-4f50-8a61-72839405a6b7"),
		Queued: 4,
		Tickets: []session.TicketReport{
			{Key: "PROJ-2", Summary: "Order confirmation email", Status: ticket.StatusReady, Applied: 1},
			{Key: "PROJ-3", Summary: "Saved payment methods", Status: ticket.StatusBacklog},
			{Key: "PROJ-10", Summary: "Search filters", Status: ticket.StatusBacklog, Skipped: true},
		},
	}
	result := RenderReport(report, PlainStyles())
	want := strings.Join([]string{
		"Session summary  3 of 4 tickets reviewed",
		"  PROJ-2   Ready, 1 change(s)  Order confirmation email",
		"  PROJ-3   Backlog, no changes  Saved payment methods",
		"  PROJ-10  skipped  Search filters",
	}, "\n")
	if result != want {
		t.Errorf("report =\n%s\nwant\n%s", result, want)
	}
}

func TestRenderReportEmpty(t *testing.T) {
	result := RenderReport(session.Report{}, PlainStyles())
	if !strings.Contains(result, "nothing was reviewed") {
		t.Errorf("empty report = %q", result)
	}
}

func TestRenderTicketHasNoPosition(t *testing.T) {
	result := RenderTicket(savedCards(), PlainStyles(), 80)
	first := strings.SplitN(result, "\n", 2)[0]
	if first != "PROJ-3  Saved payment methods" {
		t.Errorf("title line = %q", first)
	}
	if !strings.Contains(result, "Not ready: 3 gap(s)") {
		t.Errorf("checklist missing:\n%s", result)
	}
}

func TestRenderBacklog(t *testing.T) {
	summaries := []ticket.Summary{
		{Key: "PROJ-2", Summary: "Order confirmation email", Status: ticket.StatusBacklog, Priority: ticket.PriorityMedium, Labels: []string{"email"}},
		{Key: "PROJ-10", Summary: "Search filters", Status: ticket.StatusBacklog},
	}
	result := RenderBacklog(summaries, PlainStyles(), 80)
	want := strings.Join([]string{
		"PROJ-2   Backlog  Medium  Order confirmation email  [email]",
		"PROJ-10  Backlog          Search filters",
	}, "\n")
	if result != want {
		t.Errorf("backlog =\n%s\nwant\n%s", result, want)
	}
	if empty := RenderBacklog(nil, PlainStyles(), 80); empty != "no tickets" {
		t.Errorf("empty backlog = %q", empty)
	}
}
