// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"embed"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tidwall/jsonc"

	"github.com/bureau-foundation/refine/lib/ticket"
)

//go:embed fixtures/*.jsonc
var fixtureFiles embed.FS

// Fixture is the initial state of an emulated tracker. Fixture files
// are JSONC (JSON with comments and trailing commas).
type Fixture struct {
	// Project is the project key every issue belongs to.
	Project string `json:"project"`

	// Account is the only user the emulator authenticates.
	Account Account `json:"account"`

	// StoryPointsField is the custom field ID holding story points.
	// Defaults to jira.DefaultStoryPointsField.
	StoryPointsField string `json:"story_points_field,omitempty"`

	// Workflow is the transition graph. Defaults to
	// ticket.DefaultWorkflow.
	Workflow ticket.Workflow `json:"workflow,omitempty"`

	// ResolvedStatuses are the statuses that carry a resolution.
	// Defaults to ["Done"].
	ResolvedStatuses []ticket.Status `json:"resolved_statuses,omitempty"`

	// ReadOnlyFields are fields that are not on the edit screen; a PUT
	// touching one is rejected with a field error.
	ReadOnlyFields []string `json:"read_only_fields,omitempty"`

	// Issues in rank order.
	Issues []Issue `json:"issues"`
}

// Account is the emulated user and its credentials.
type Account struct {
	AccountID   string `json:"account_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Token       string `json:"token"`
}

// Issue is one emulated ticket. Description and comment bodies are
// stored as markdown and converted to ADF on the wire.
type Issue struct {
	Key         string          `json:"key"`
	Summary     string          `json:"summary"`
	Type        string          `json:"type,omitempty"`
	Description string          `json:"description,omitempty"`
	Status      ticket.Status   `json:"status"`
	Priority    ticket.Priority `json:"priority,omitempty"`
	Resolution  string          `json:"resolution,omitempty"`
	StoryPoints float64         `json:"story_points,omitempty"`
	Labels      []string        `json:"labels,omitempty"`
	Epic        string          `json:"epic,omitempty"`
	Assignee    string          `json:"assignee,omitempty"`

	// BlockedBy lists keys that block this issue through "Blocks"
	// links. In a fixture each entry creates a link; in a snapshot it
	// reflects the current links.
	BlockedBy []string `json:"blocked_by,omitempty"`

	Comments []Comment `json:"comments,omitempty"`
}

// Comment is one emulated comment.
type Comment struct {
	ID      string    `json:"id,omitempty"`
	Author  string    `json:"author"`
	Body    string    `json:"body"`
	Created time.Time `json:"-"`
}

func (issue Issue) clone() Issue {
	clone := issue
	clone.Labels = slices.Clone(issue.Labels)
	clone.BlockedBy = slices.Clone(issue.BlockedBy)
	clone.Comments = slices.Clone(issue.Comments)
	return clone
}

// ParseFixture strips JSONC comments and trailing commas from data and
// decodes and validates the result.
func ParseFixture(data []byte) (*Fixture, error) {
	var fixture Fixture
	if err := json.Unmarshal(jsonc.ToJSON(data), &fixture); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	if err := fixture.validate(); err != nil {
		return nil, err
	}
	return &fixture, nil
}

// DefaultFixture returns the embedded fixture: a small project with
// tickets in several states of refinement, one epic, and a blocker
// link.
func DefaultFixture() *Fixture {
	data, err := fixtureFiles.ReadFile("fixtures/default.jsonc")
	if err != nil {
		panic(fmt.Sprintf("jiratest: reading embedded fixture: %v", err))
	}
	fixture, err := ParseFixture(data)
	if err != nil {
		panic(fmt.Sprintf("jiratest: embedded fixture is invalid: %v", err))
	}
	return fixture
}

func (fixture *Fixture) validate() error {
	if fixture.Project == "" {
		return fmt.Errorf("fixture: project is required")
	}
	if fixture.Account.Email == "" || fixture.Account.Token == "" {
		return fmt.Errorf("fixture: account email and token are required")
	}
	if fixture.Workflow != nil {
		if err := fixture.Workflow.Validate(); err != nil {
			return fmt.Errorf("fixture: %w", err)
		}
	}
	seen := make(map[string]bool, len(fixture.Issues))
	for index, issue := range fixture.Issues {
		if !ticket.ValidKey(issue.Key) {
			return fmt.Errorf("fixture: issue %d: invalid key %q", index, issue.Key)
		}
		if !strings.HasPrefix(issue.Key, fixture.Project+"-") {
			return fmt.Errorf("fixture: issue %s is not in project %s", issue.Key, fixture.Project)
		}
		if seen[issue.Key] {
			return fmt.Errorf("fixture: duplicate issue %s", issue.Key)
		}
		seen[issue.Key] = true
		if issue.Status == "" {
			return fmt.Errorf("fixture: issue %s has no status", issue.Key)
		}
		if issue.Priority != "" && !issue.Priority.Valid() {
			return fmt.Errorf("fixture: issue %s has unknown priority %q", issue.Key, issue.Priority)
		}
	}
	for _, issue := range fixture.Issues {
		for _, blocker := range issue.BlockedBy {
			if !seen[blocker] {
				return fmt.Errorf("fixture: issue %s is blocked by unknown issue %s", issue.Key, blocker)
			}
		}
		if issue.Epic != "" && !seen[issue.Epic] {
			return fmt.Errorf("fixture: issue %s has unknown epic %s", issue.Key, issue.Epic)
		}
	}
	return nil
}
