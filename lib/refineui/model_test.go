// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/jira/jiratest"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/testutil"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// screen wires a Model to a controller backed by the emulated tracker.
type screen struct {
	emulator   *jiratest.Emulator
	controller *session.Controller
	session    *session.Session
	clock      *clock.FakeClock
}

func newScreen(t *testing.T, fixture *jiratest.Fixture) *screen {
	t.Helper()
	fake := clock.Fake(time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	emulator := jiratest.New(jiratest.Config{Fixture: fixture, Clock: fake, Logger: logger})
	server := emulator.Serve(t)
	controller, err := session.New(session.Config{
		Tracker: emulator.NewClient(t, server, fake),
		Clock:   fake,
		Logger:  logger,
	})
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	s, err := controller.Start(context.Background(), 50)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	return &screen{emulator: emulator, controller: controller, session: s, clock: fake}
}

// open builds the model, sizes it and loads the first ticket.
func (sc *screen) open(t *testing.T) Model {
	t.Helper()
	styles := PlainStyles()
	model := NewModel(context.Background(), sc.controller, sc.session, ModelConfig{Styles: &styles, Clock: sc.clock})
	sized, _ := model.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	model = sized.(Model)
	return settle(t, model, model.Init())
}

// update applies one message and runs whatever it starts.
func update(t *testing.T, model Model, message tea.Msg) Model {
	t.Helper()
	updated, cmd := model.Update(message)
	return settle(t, updated.(Model), cmd)
}

// settle runs cmd and feeds the session results back into the model
// until no tracker call is in flight. Timer and animation messages are
// dropped.
func settle(t *testing.T, model Model, cmd tea.Cmd) Model {
	t.Helper()
	messages := make(chan tea.Msg, 64)
	var launch func(tea.Cmd)
	launch = func(cmd tea.Cmd) {
		if cmd == nil {
			return
		}
		go func() {
			message := cmd()
			if batch, ok := message.(tea.BatchMsg); ok {
				for _, inner := range batch {
					launch(inner)
				}
				return
			}
			messages <- message
		}()
	}
	launch(cmd)

	for model.busy {
		message := testutil.Receive(t, messages, 10*time.Second, "waiting for the session")
		switch message.(type) {
		case presentedMsg, turnMsg, finishedMsg:
			updated, next := model.Update(message)
			model = updated.(Model)
			launch(next)
		}
	}
	return model
}

func typeText(t *testing.T, model Model, text string) Model {
	t.Helper()
	return update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func say(t *testing.T, model Model, utterance string) Model {
	t.Helper()
	model = typeText(t, model, utterance)
	return update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
}

func TestModelPresentsFirstTicket(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	if model.presentation == nil || model.presentation.Ticket.Key != "PROJ-2" {
		t.Fatalf("presentation = %+v, want PROJ-2", model.presentation)
	}
	view := ansi.Strip(model.View())
	if !strings.Contains(view, "PROJ-2") || !strings.Contains(view, "1/4") {
		t.Errorf("view does not show the first ticket:\n%s", view)
	}
	if lines := strings.Count(model.View(), "\n") + 1; lines != 40 {
		t.Errorf("view is %d lines tall, want 40", lines)
	}
}

func TestModelAppliesUtteranceAndTintsChanges(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = say(t, model, "add label payments")

	if model.turnErr != nil {
		t.Fatalf("turn failed: %v", model.turnErr)
	}
	if model.turn == nil || model.turn.Outcome != session.OutcomeApplied {
		t.Fatalf("turn = %+v, want applied", model.turn)
	}
	issue, _ := sc.emulator.Issue("PROJ-2")
	if !strings.Contains(strings.Join(issue.Labels, ","), "payments") {
		t.Errorf("tracker labels = %v", issue.Labels)
	}
	if !model.highlights.Active(ticket.FieldLabels, sc.clock.Now()) {
		t.Error("labels should be tinted after the change")
	}
	if model.input.Value() != "" {
		t.Errorf("command line not cleared: %q", model.input.Value())
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "PROJ-2 updated") {
		t.Errorf("view does not show the turn:\n%s", view)
	}

	sc.clock.Advance(5 * time.Second)
	model = update(t, model, highlightTickMsg{})
	if model.highlights.Pending(sc.clock.Now()) {
		t.Error("tint should have expired")
	}
}

func TestModelAdvancesAfterReady(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = say(t, model, "ready")
	if model.presentation.Ticket.Key != "PROJ-3" {
		t.Fatalf("presenting %s after ready, want PROJ-3", model.presentation.Ticket.Key)
	}
	if model.highlights.Pending(sc.clock.Now()) {
		t.Error("a new ticket should start without tints")
	}
}

func TestModelUnrecognizedKeepsTicket(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = say(t, model, "hmm")
	if !errors.Is(model.turnErr, session.ErrAmbiguousCommand) {
		t.Fatalf("turn error = %v, want ErrAmbiguousCommand", model.turnErr)
	}
	if model.session.State() != session.AwaitingCommand {
		t.Errorf("state = %s, want awaiting-command", model.session.State())
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, `Try "ready"`) {
		t.Errorf("view does not suggest commands:\n%s", view)
	}
	if len(sc.emulator.Mutations()) != 0 {
		t.Error("an unrecognized utterance reached the tracker")
	}
}

func TestModelHistory(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)
	model = say(t, model, "hmm")
	model = say(t, model, "what")

	model = update(t, model, tea.KeyMsg{Type: tea.KeyUp})
	if got := model.input.Value(); got != "what" {
		t.Errorf("first recall = %q, want %q", got, "what")
	}
	model = update(t, model, tea.KeyMsg{Type: tea.KeyUp})
	if got := model.input.Value(); got != "hmm" {
		t.Errorf("second recall = %q, want %q", got, "hmm")
	}
	model = update(t, model, tea.KeyMsg{Type: tea.KeyDown})
	model = update(t, model, tea.KeyMsg{Type: tea.KeyDown})
	if got := model.input.Value(); got != "" {
		t.Errorf("past the newest entry = %q, want empty", got)
	}
}

func TestModelRetriesFailedLoad(t *testing.T) {
	sc := newScreen(t, nil)
	sc.emulator.FailNext(http.MethodGet, "/rest/api/3/issue/PROJ-2", http.StatusServiceUnavailable)
	model := sc.open(t)

	if model.presentErr == nil {
		t.Fatal("expected the first load to fail")
	}
	if view := ansi.Strip(model.View()); !strings.Contains(view, "Could not load the ticket") {
		t.Errorf("view does not report the failure:\n%s", view)
	}

	model = typeText(t, model, "ready")
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.presentation != nil {
		t.Fatal("a command was accepted while the ticket was not loaded")
	}

	model = update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	model = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if model.presentErr != nil || model.presentation == nil || model.presentation.Ticket.Key != "PROJ-2" {
		t.Fatalf("retry did not load PROJ-2: err=%v", model.presentErr)
	}
}

func TestModelQuitEndsSession(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = update(t, model, tea.KeyMsg{Type: tea.KeyCtrlC})
	report := model.Report()
	if report == nil {
		t.Fatal("no report after ctrl+c")
	}
	if sc.session.State() != session.Ended {
		t.Errorf("state = %s, want ended", sc.session.State())
	}
	if report.Queued != 4 {
		t.Errorf("report queued = %d, want 4", report.Queued)
	}
	if model.View() != "" {
		t.Error("the screen should clear once the session has ended")
	}
}

func TestModelQuitWaitsForInFlightTurn(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = typeText(t, model, "add label payments")
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	model = settle(t, updated.(Model), cmd)

	if model.Report() == nil {
		t.Fatal("session did not end after the turn finished")
	}
	if got := model.Report().Tickets[0].Applied; got != 1 {
		t.Errorf("applied = %d, want the in-flight edit to count", got)
	}
}

func TestModelEmptyBacklogEndsAtOnce(t *testing.T) {
	sc := newScreen(t, &jiratest.Fixture{
		Project: "PROJ",
		Account: jiratest.DefaultFixture().Account,
		Issues:  []jiratest.Issue{{Key: "PROJ-9", Summary: "Shipped", Status: ticket.StatusDone}},
	})
	model := sc.open(t)
	if model.Report() == nil {
		t.Fatal("an empty backlog should end the session immediately")
	}
}

func TestModelLogNotice(t *testing.T) {
	sc := newScreen(t, nil)
	model := sc.open(t)

	model = update(t, model, logNoticeMsg{Summary: "tracker slow (elapsed=3s)", Level: slog.LevelWarn})
	if status := ansi.Strip(model.statusLine()); status != "tracker slow (elapsed=3s)" {
		t.Errorf("status line = %q", status)
	}

	model = update(t, model, logNoticeFadeMsg{Summary: "something older"})
	if model.notice == "" {
		t.Error("a stale fade cleared the current notice")
	}
	model = update(t, model, logNoticeFadeMsg{Summary: "tracker slow (elapsed=3s)"})
	if status := ansi.Strip(model.statusLine()); !strings.Contains(status, "ctrl+c end session") {
		t.Errorf("status line after fade = %q, want the help line", status)
	}
}

func TestModelAuthFailureEndsSession(t *testing.T) {
	sc := newScreen(t, nil)
	sc.emulator.FailNext(http.MethodGet, "/rest/api/3/issue/PROJ-2", http.StatusUnauthorized)
	model := sc.open(t)

	if model.Report() == nil {
		t.Fatal("rejected credentials should end the session")
	}
	if !jira.IsAuth(model.Err()) {
		t.Errorf("Err() = %v, want an auth error", model.Err())
	}
}
