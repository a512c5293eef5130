// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseDescription(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     Description
	}{
		{
			name: "empty",
			want: Description{},
		},
		{
			name:     "problem only",
			markdown: "Users cannot reset passwords.\n",
			want:     Description{Problem: "Users cannot reset passwords."},
		},
		{
			name: "all sections",
			markdown: "Users cannot reset passwords.\n\n" +
				"## Acceptance Criteria\n\n" +
				"- When a user requests a reset, an email is sent\n" +
				"- [x] The link expires after one hour\n\n" +
				"## Blockers\n\n" +
				"- PROJ-7 (mail relay)\n" +
				"- proj-9\n",
			want: Description{
				Problem: "Users cannot reset passwords.",
				Criteria: []string{
					"When a user requests a reset, an email is sent",
					"The link expires after one hour",
				},
				Blockers:         []string{"PROJ-7", "PROJ-9"},
				BlockersReviewed: true,
			},
		},
		{
			name:     "blockers none is still reviewed",
			markdown: "Problem.\n\n## Blockers\n\n- None\n",
			want:     Description{Problem: "Problem.", BlockersReviewed: true},
		},
		{
			name:     "heading case, level and colon are ignored",
			markdown: "Problem.\n\n### acceptance criteria:\n\nThe export succeeds\nThe file is valid CSV\n",
			want: Description{
				Problem:  "Problem.",
				Criteria: []string{"The export succeeds", "The file is valid CSV"},
			},
		},
		{
			name: "other sections stay in the problem statement",
			markdown: "Intro.\n\n## Acceptance Criteria\n\n- Then it works\n\n" +
				"## Notes\n\nSee the design doc.\n",
			want: Description{
				Problem:  "Intro.\n\n## Notes\n\nSee the design doc.",
				Criteria: []string{"Then it works"},
			},
		},
		{
			name:     "subheading stays inside section",
			markdown: "## Acceptance Criteria\n\n- First is shown\n\n### Edge cases\n\n- Empty input is rejected\n",
			want: Description{
				Criteria: []string{"First is shown", "Empty input is rejected"},
			},
		},
		{
			name:     "inline markup is flattened",
			markdown: "## Acceptance Criteria\n\n- The **export** button shows `Done`\n",
			want: Description{
				Criteria: []string{"The export button shows Done"},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := ParseDescription(test.markdown)
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Errorf("ParseDescription mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDescriptionMarkdownRoundTrip(t *testing.T) {
	original := Description{
		Problem:          "Checkout fails for guest users.",
		Criteria:         []string{"When a guest checks out, the order is created"},
		Blockers:         []string{"PROJ-3"},
		BlockersReviewed: true,
	}
	markdown := original.Markdown()
	want := "Checkout fails for guest users.\n\n" +
		"## Acceptance Criteria\n\n- When a guest checks out, the order is created\n\n" +
		"## Blockers\n\n- PROJ-3"
	if markdown != want {
		t.Fatalf("Markdown() = %q, want %q", markdown, want)
	}
	if diff := cmp.Diff(original, ParseDescription(markdown)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestWithCriterion(t *testing.T) {
	markdown := WithCriterion("Problem.", "  When saved, the user sees a confirmation ")
	parsed := ParseDescription(markdown)
	if parsed.Problem != "Problem." {
		t.Errorf("Problem = %q, want %q", parsed.Problem, "Problem.")
	}
	if diff := cmp.Diff([]string{"When saved, the user sees a confirmation"}, parsed.Criteria); diff != "" {
		t.Errorf("Criteria mismatch (-want +got):\n%s", diff)
	}

	markdown = WithCriterion(markdown, "Then the record is stored")
	if got := len(ParseDescription(markdown).Criteria); got != 2 {
		t.Errorf("after second append, len(Criteria) = %d, want 2", got)
	}
}

func TestWithBlockers(t *testing.T) {
	base := "Problem.\n\n## Acceptance Criteria\n\n- Then it works\n\n## Blockers\n\n- PROJ-1\n"

	cleared := ParseDescription(WithBlockers(base, nil))
	if !cleared.BlockersReviewed {
		t.Error("explicit empty blockers should count as reviewed")
	}
	if len(cleared.Blockers) != 0 {
		t.Errorf("Blockers = %v, want none", cleared.Blockers)
	}
	if len(cleared.Criteria) != 1 {
		t.Errorf("criteria lost: %v", cleared.Criteria)
	}

	replaced := ParseDescription(WithBlockers(base, []string{"PROJ-4", "PROJ-5"}))
	if diff := cmp.Diff([]string{"PROJ-4", "PROJ-5"}, replaced.Blockers); diff != "" {
		t.Errorf("Blockers mismatch (-want +got):\n%s", diff)
	}
}

func TestWithProblem(t *testing.T) {
	base := "Old.\n\n## Acceptance Criteria\n\n- Then it works\n"
	parsed := ParseDescription(WithProblem(base, "New problem."))
	if parsed.Problem != "New problem." {
		t.Errorf("Problem = %q", parsed.Problem)
	}
	if len(parsed.Criteria) != 1 {
		t.Errorf("criteria lost: %v", parsed.Criteria)
	}
}
