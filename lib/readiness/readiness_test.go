// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/refine/lib/ticket"
)

func resultChecks(results []Result) []Check {
	checks := make([]Check, len(results))
	for index, result := range results {
		checks[index] = result.Check
	}
	return checks
}

func TestEvaluateBareTicketFailsEverything(t *testing.T) {
	verdict := Evaluate(ticket.Ticket{Key: "PROJ-1", Summary: "Something"})

	if verdict.Ready() {
		t.Fatal("bare ticket reported ready")
	}
	if diff := cmp.Diff(Checks, resultChecks(verdict.Results)); diff != "" {
		t.Errorf("results not in fixed order (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(Checks, resultChecks(verdict.Gaps())); diff != "" {
		t.Errorf("every check should fail (-want +got):\n%s", diff)
	}
}

func TestEvaluateCompletedTicketPasses(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-1", Summary: "Something"}
	subject.Priority = ticket.PriorityMedium
	subject.Labels = []string{"backend"}
	description := ticket.WithCriterion("Reports time out for large accounts.",
		"When an account has 10k invoices, the report loads in under 2 seconds")
	subject.SetDescription(ticket.WithBlockers(description, nil))

	verdict := Evaluate(subject)
	if !verdict.Ready() {
		t.Fatalf("completed ticket not ready: %+v", verdict.Gaps())
	}
	if verdict.Summary() != "ready" {
		t.Errorf("Summary() = %q, want ready", verdict.Summary())
	}
}

func TestEvaluateReportsExactGaps(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-2", Priority: ticket.PriorityHigh}
	subject.SetDescription("Checkout is slow.\n\n## Acceptance Criteria\n\n- Then checkout completes in 1s\n")

	verdict := Evaluate(subject)
	want := []Check{CheckLabels, CheckBlockers}
	if diff := cmp.Diff(want, resultChecks(verdict.Gaps())); diff != "" {
		t.Errorf("gaps mismatch (-want +got):\n%s", diff)
	}
	if got := verdict.Summary(); got != "not ready (2 gaps: labels, blockers)" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestEvaluateTaskOnlyCriteriaFail(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-3"}
	subject.AcceptanceCriteria = []string{"Implement the export endpoint", "Add tests"}

	result := Evaluate(subject).Results[1]
	if result.Check != CheckAcceptanceCriteria || result.Satisfied {
		t.Errorf("criteria result = %+v, want failing acceptance-criteria", result)
	}
}

func TestEvaluateNonCanonicalPriority(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-4", Priority: "Urgent"}
	result := Evaluate(subject).Results[2]
	if result.Satisfied {
		t.Errorf("non-canonical priority passed: %+v", result)
	}
}

func TestEvaluateListedBlockersCountAsReviewed(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-5", Blockers: []string{"PROJ-1"}}
	result := Evaluate(subject).Results[4]
	if !result.Satisfied {
		t.Errorf("listed blockers should satisfy the review check: %+v", result)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	subject := ticket.Ticket{Key: "PROJ-6", Labels: []string{"x"}}
	if diff := cmp.Diff(Evaluate(subject), Evaluate(subject)); diff != "" {
		t.Errorf("Evaluate not deterministic:\n%s", diff)
	}
}

func TestIsOutcome(t *testing.T) {
	tests := []struct {
		criterion string
		want      bool
	}{
		{"When a user saves, the record is stored", true},
		{"Given a logged-in user when they click export then a CSV downloads", true},
		{"The exported file is valid CSV", true},
		{"Users can reset their password from the login page", true},
		{"Search results no longer include archived tickets", true},
		{"If the token expires, the client re-authenticates and the call succeeds", true},
		{"Implement login", false},
		{"Add a button that is blue", false},
		{"Set up CI for the repo", false},
		{"Refactor the parser", false},
		{"Login page", false},
		{"Add retries when the upstream call fails", true},
		{"Add retries when needed", false},
		{"", false},
	}
	for _, test := range tests {
		if got := IsOutcome(test.criterion); got != test.want {
			t.Errorf("IsOutcome(%q) = %v, want %v", test.criterion, got, test.want)
		}
	}
}
