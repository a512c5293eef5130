// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/refine/cmd/refine/cli"
	"github.com/bureau-foundation/refine/cmd/refine/cli/clitest"
	"github.com/bureau-foundation/refine/lib/jira/jiratest"
	"github.com/bureau-foundation/refine/lib/ticket"
)

func TestTransitionIntoReady(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "transition", "PROJ-2", "--to", "Ready"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if got := harness.Stdout.String(); got != "PROJ-2 moved to Ready\n" {
		t.Errorf("output = %q", got)
	}
	issue, _ := harness.Emulator.Issue("PROJ-2")
	if !issue.Status.Is(ticket.StatusReady) {
		t.Errorf("status = %s, want Ready", issue.Status)
	}
}

func TestTransitionBlockedByChecklist(t *testing.T) {
	harness := clitest.New(t, nil)
	err := run(harness, "", "transition", "PROJ-3", "--to", "ready")
	expectExit(t, err, cli.ExitNotReady)

	if len(harness.Emulator.Mutations()) != 0 {
		t.Errorf("a blocked transition reached the tracker: %+v", harness.Emulator.Mutations())
	}
	if !strings.Contains(harness.Stderr.String(), "✗ labels") {
		t.Errorf("stderr should list the gaps:\n%s", harness.Stderr.String())
	}
	issue, _ := harness.Emulator.Issue("PROJ-3")
	if !issue.Status.Is(ticket.StatusBacklog) {
		t.Errorf("status = %s, want Backlog", issue.Status)
	}
}

func TestTransitionChecksTheEdgeTaken(t *testing.T) {
	fixture := jiratest.DefaultFixture()
	fixture.Workflow = ticket.DefaultWorkflow()
	fixture.Workflow["Approved"] = nil
	fixture.Workflow[ticket.StatusBacklog] = []ticket.Transition{
		{ID: "21", Name: "Close", To: "Approved"},
		{ID: "22", Name: "Approved", To: ticket.StatusReady},
	}
	harness := clitest.New(t, fixture)

	err := run(harness, "", "transition", "PROJ-3", "--to", "Approved")
	expectExit(t, err, cli.ExitNotReady)
	if len(harness.Emulator.Mutations()) != 0 {
		t.Errorf("a blocked transition reached the tracker: %+v", harness.Emulator.Mutations())
	}
	issue, _ := harness.Emulator.Issue("PROJ-3")
	if !issue.Status.Is(ticket.StatusBacklog) {
		t.Errorf("status = %s, want Backlog", issue.Status)
	}
}

func TestTransitionOutsideTheChecklist(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "transition", "PROJ-3", "--to", "Start Progress", "--json"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	var updated ticket.Ticket
	if err := json.Unmarshal(harness.Stdout.Bytes(), &updated); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if !updated.Status.Is(ticket.StatusInProgress) {
		t.Errorf("status = %s, want In Progress", updated.Status)
	}
}

func TestTransitionUnavailable(t *testing.T) {
	harness := clitest.New(t, nil)
	err := run(harness, "", "transition", "PROJ-7", "--to", "Ready")
	expectExit(t, err, cli.ExitInvalidTransition)
	if !strings.Contains(err.Error(), "Reopen") {
		t.Errorf("error should list the available transitions: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-7")
	if !issue.Status.Is(ticket.StatusDone) {
		t.Errorf("status = %s, want Done", issue.Status)
	}
}

func TestTransitionForceSkipsChecklist(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "transition", "PROJ-3", "--to", "Ready", "--force"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-3")
	if !issue.Status.Is(ticket.StatusReady) {
		t.Errorf("status = %s, want Ready", issue.Status)
	}
}

func TestTransitionWithResolution(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "transition", "PROJ-4", "--to", "Done", "--resolution", "Won't Do"); err != nil {
		t.Fatalf("transition: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-4")
	if issue.Resolution != "Won't Do" {
		t.Errorf("resolution = %q", issue.Resolution)
	}
}

func TestTransitionRequiresTarget(t *testing.T) {
	harness := clitest.New(t, nil)
	expectExit(t, run(harness, "", "transition", "PROJ-2"), cli.ExitUsage)
}

func TestUpdateTicket(t *testing.T) {
	harness := clitest.New(t, nil)
	err := run(harness, "", "update-ticket", "PROJ-4", "--priority", "high", "--story-points", "3")
	if err != nil {
		t.Fatalf("update-ticket: %v", err)
	}
	output := harness.Stdout.String()
	for _, want := range []string{"PROJ-4 updated", "  priority: (unset) → High", "  story_points: (unset) → 3"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	issue, _ := harness.Emulator.Issue("PROJ-4")
	if issue.Priority != ticket.PriorityHigh || issue.StoryPoints != 3 {
		t.Errorf("tracker state = %s, %v points", issue.Priority, issue.StoryPoints)
	}
	if got := len(harness.Emulator.Mutations()); got != 1 {
		t.Errorf("%d mutations, want one request for both fields", got)
	}
}

func TestUpdateTicketDescriptionFromStdin(t *testing.T) {
	harness := clitest.New(t, nil)
	description := "Order history takes ten seconds to load.\n\n## Acceptance Criteria\n\n- The shopper sees the first page within a second\n"
	if err := run(harness, description, "update-ticket", "PROJ-4", "--description", "-"); err != nil {
		t.Fatalf("update-ticket: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-4")
	if !strings.Contains(issue.Description, "The shopper sees the first page within a second") {
		t.Errorf("description = %q", issue.Description)
	}
	if !strings.Contains(harness.Stdout.String(), "  + ") {
		t.Errorf("output should diff the description:\n%s", harness.Stdout.String())
	}
}

func TestUpdateTicketUsage(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no fields", []string{"update-ticket", "PROJ-4"}},
		{"unknown priority", []string{"update-ticket", "PROJ-4", "--priority", "urgent"}},
		{"negative estimate", []string{"update-ticket", "PROJ-4", "--story-points", "-2"}},
		{"empty summary", []string{"update-ticket", "PROJ-4", "--summary", " "}},
		{"misspelled flag", []string{"update-ticket", "PROJ-4", "--prority", "High"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			harness := clitest.New(t, nil)
			expectExit(t, run(harness, "", test.args...), cli.ExitUsage)
			if len(harness.Emulator.Requests()) != 0 {
				t.Error("a usage error reached the tracker")
			}
		})
	}
}

func TestUpdateTicketFieldRejected(t *testing.T) {
	fixture := jiratest.DefaultFixture()
	fixture.ReadOnlyFields = append(fixture.ReadOnlyFields, "customfield_10016")
	harness := clitest.New(t, fixture)

	err := run(harness, "", "update-ticket", "PROJ-4", "--story-points", "5")
	expectExit(t, err, cli.ExitFieldRejected)
	if !strings.Contains(err.Error(), "customfield_10016") {
		t.Errorf("error should name the rejected field: %v", err)
	}
}

func TestLabels(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "add-label", "PROJ-3", "payments"); err != nil {
		t.Fatalf("add-label: %v", err)
	}
	if got := harness.Stdout.String(); got != "label payments added to PROJ-3 (now: payments)\n" {
		t.Errorf("output = %q", got)
	}
	if err := run(harness, "", "remove-label", "PROJ-2", "email"); err != nil {
		t.Fatalf("remove-label: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-2")
	if diff := cmp.Diff([]string{"checkout"}, issue.Labels); diff != "" {
		t.Errorf("labels (-want +got):\n%s", diff)
	}
	expectExit(t, run(harness, "", "add-label", "PROJ-3", "two words"), cli.ExitUsage)
	expectExit(t, run(harness, "", "add-label", "PROJ-3"), cli.ExitUsage)
}

func TestMoveRank(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "move-rank", "PROJ-4", "--up", "2"); err != nil {
		t.Fatalf("move-rank: %v", err)
	}
	if got := harness.Stdout.String(); got != "PROJ-4 moved up from position 3 to 1\n" {
		t.Errorf("output = %q", got)
	}

	if err := run(harness, "", "move-rank", "PROJ-4", "--up", "1"); err != nil {
		t.Fatalf("move-rank at the top: %v", err)
	}
	if got := harness.Stdout.String(); got != "PROJ-4 is already at the top of the backlog\n" {
		t.Errorf("output = %q", got)
	}

	expectExit(t, run(harness, "", "move-rank", "PROJ-4"), cli.ExitUsage)
	expectExit(t, run(harness, "", "move-rank", "PROJ-4", "--up", "1", "--down", "1"), cli.ExitUsage)
}

func TestLinkEpic(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "link-epic", "PROJ-3", "PROJ-1"); err != nil {
		t.Fatalf("link-epic: %v", err)
	}
	if got := harness.Stdout.String(); got != "PROJ-3 linked to epic PROJ-1\n" {
		t.Errorf("output = %q", got)
	}
	issue, _ := harness.Emulator.Issue("PROJ-3")
	if issue.Epic != "PROJ-1" {
		t.Errorf("epic = %q", issue.Epic)
	}
	expectExit(t, run(harness, "", "link-epic", "PROJ-3", "PROJ-3"), cli.ExitUsage)
}

func TestAddComment(t *testing.T) {
	harness := clitest.New(t, nil)
	if err := run(harness, "", "add-comment", "PROJ-4", "Profiling", "points", "at", "the", "order", "query."); err != nil {
		t.Fatalf("add-comment: %v", err)
	}
	issue, _ := harness.Emulator.Issue("PROJ-4")
	if len(issue.Comments) != 1 || issue.Comments[0].Body != "Profiling points at the order query." {
		t.Errorf("comments = %+v", issue.Comments)
	}

	if err := run(harness, "Second note from stdin.\n", "add-comment", "PROJ-4", "-"); err != nil {
		t.Fatalf("add-comment from stdin: %v", err)
	}
	issue, _ = harness.Emulator.Issue("PROJ-4")
	if len(issue.Comments) != 2 || issue.Comments[1].Body != "Second note from stdin." {
		t.Errorf("comments = %+v", issue.Comments)
	}
	expectExit(t, run(harness, "", "add-comment", "PROJ-4"), cli.ExitUsage)
}
