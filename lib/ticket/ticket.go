// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// keyPattern matches tracker keys: an upper-case project prefix, a
// hyphen, and an issue number (e.g., "PROJ-123").
var keyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[0-9]+$`)

// keySearchPattern finds keys embedded in free text.
var keySearchPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]*-[0-9]+\b`)

// ValidKey reports whether key is a well-formed tracker key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// ParseKey normalizes user input ("proj-12 ") to a tracker key and
// rejects anything that is not one.
func ParseKey(input string) (string, error) {
	key := strings.ToUpper(strings.TrimSpace(input))
	if !ValidKey(key) {
		return "", fmt.Errorf("invalid ticket key %q (expected PROJECT-123)", input)
	}
	return key, nil
}

// FindKeys returns every tracker key mentioned in text, upper-cased,
// de-duplicated, in order of first appearance.
func FindKeys(text string) []string {
	var keys []string
	for _, match := range keySearchPattern.FindAllString(strings.ToUpper(text), -1) {
		if !slices.Contains(keys, match) {
			keys = append(keys, match)
		}
	}
	return keys
}

// Priority is one of the five canonical tracker priority levels. The
// zero value means the priority has not been set.
type Priority string

const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityLowest  Priority = "Lowest"
)

// Priorities lists the canonical levels from most to least urgent.
var Priorities = [5]Priority{PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest}

// ParsePriority matches input case-insensitively against the canonical
// levels.
func ParsePriority(input string) (Priority, error) {
	trimmed := strings.TrimSpace(input)
	for _, priority := range Priorities {
		if strings.EqualFold(trimmed, string(priority)) {
			return priority, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (expected one of %s)", input, priorityNames())
}

// Valid reports whether p is one of the five canonical levels.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities[:], p)
}

func priorityNames() string {
	names := make([]string, len(Priorities))
	for index, priority := range Priorities {
		names[index] = string(priority)
	}
	return strings.Join(names, ", ")
}

// Status is a tracker workflow state name. Workflows are defined by the
// tracker, so the set of statuses is open; the constants below name the
// states of the default refinement workflow.
type Status string

const (
	StatusBacklog    Status = "Backlog"
	StatusReady      Status = "Ready"
	StatusInProgress Status = "In Progress"
	StatusDone       Status = "Done"
)

// Is compares two status names the way the tracker does: ignoring case
// and surrounding whitespace.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), strings.TrimSpace(string(other)))
}

// Transition is one edge of a workflow graph: a named action that moves
// a ticket into the To status.
type Transition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	To   Status `json:"to"`
}

// Matches reports whether target names this transition, either by the
// transition's own name ("Start Progress") or by its destination status
// ("In Progress").
func (t Transition) Matches(target string) bool {
	target = strings.TrimSpace(target)
	return strings.EqualFold(t.Name, target) || t.To.Is(Status(target))
}

// MatchTransition picks the transition target refers to. A transition
// named target wins over one that merely lands in a status of that
// name, so "Done" takes the transition called Done even when another
// one also ends in Done.
func MatchTransition(available []Transition, target string) (Transition, bool) {
	target = strings.TrimSpace(target)
	for _, transition := range available {
		if strings.EqualFold(transition.Name, target) {
			return transition, true
		}
	}
	for _, transition := range available {
		if transition.To.Is(Status(target)) {
			return transition, true
		}
	}
	return Transition{}, false
}

// Label renders "Name → To", or just the name when the two coincide.
func (t Transition) Label() string {
	if t.To.Is(Status(t.Name)) {
		return t.Name
	}
	return fmt.Sprintf("%s → %s", t.Name, t.To)
}

// Comment is one entry of a ticket's append-only comment trail.
type Comment struct {
	Author  string    `json:"author,omitempty"`
	Body    string    `json:"body"`
	Created time.Time `json:"created"`
}

// Summary is the backlog listing view of a ticket.
type Summary struct {
	Key      string   `json:"key"`
	Summary  string   `json:"summary"`
	Status   Status   `json:"status"`
	Priority Priority `json:"priority,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// Ticket is a snapshot of one tracker ticket.
type Ticket struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Type    string `json:"type,omitempty"`

	// Description is the full description as markdown. The parsed
	// section fields below are derived from it by SetDescription.
	Description string `json:"description"`

	// Problem is the description text outside the acceptance criteria
	// and blockers sections.
	Problem            string   `json:"problem,omitempty"`
	AcceptanceCriteria []string `json:"acceptance_criteria,omitempty"`

	// Blockers are the keys of tickets that block this one, from the
	// description's blockers section and from "is blocked by" links.
	Blockers []string `json:"blockers,omitempty"`

	// BlockersReviewed is true when the blockers were looked at
	// explicitly, which may have found none.
	BlockersReviewed bool `json:"blockers_reviewed"`

	Status      Status    `json:"status"`
	Resolution  string    `json:"resolution,omitempty"`
	Priority    Priority  `json:"priority,omitempty"`
	StoryPoints int       `json:"story_points,omitempty"`
	Epic        string    `json:"epic,omitempty"`
	Labels      []string  `json:"labels,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Comments    []Comment `json:"comments,omitempty"`
	URL         string    `json:"url,omitempty"`
}

// SetDescription stores markdown as the description and re-derives the
// problem statement, acceptance criteria and description blockers.
// Blockers that came from issue links are kept.
func (t *Ticket) SetDescription(markdown string) {
	parsed := ParseDescription(markdown)
	t.Description = markdown
	t.Problem = parsed.Problem
	t.AcceptanceCriteria = parsed.Criteria
	t.BlockersReviewed = parsed.BlockersReviewed
	t.AddBlockers(parsed.Blockers...)
}

// AddBlockers merges keys into the blocker set, keeping it sorted.
func (t *Ticket) AddBlockers(keys ...string) {
	for _, key := range keys {
		if !slices.Contains(t.Blockers, key) {
			t.Blockers = append(t.Blockers, key)
		}
	}
	slices.Sort(t.Blockers)
}

// Clone returns a deep copy, so a caller can keep a "before" snapshot
// while a newer one replaces it.
func (t Ticket) Clone() Ticket {
	clone := t
	clone.AcceptanceCriteria = slices.Clone(t.AcceptanceCriteria)
	clone.Blockers = slices.Clone(t.Blockers)
	clone.Labels = slices.Clone(t.Labels)
	clone.Comments = slices.Clone(t.Comments)
	return clone
}

// ToSummary reduces a snapshot to its backlog listing view.
func (t Ticket) ToSummary() Summary {
	return Summary{
		Key:      t.Key,
		Summary:  t.Summary,
		Status:   t.Status,
		Priority: t.Priority,
		Labels:   slices.Clone(t.Labels),
	}
}

// FieldSet is a partial update. Nil pointers and nil slices mean
// "leave unchanged".
type FieldSet struct {
	Summary     *string
	Description *string
	Priority    *Priority
	StoryPoints *int

	// Labels replaces the whole label set when non-nil.
	Labels []string

	// AddLabels and RemoveLabels edit the label set incrementally.
	AddLabels    []string
	RemoveLabels []string
}

// Empty reports whether the set changes nothing.
func (f FieldSet) Empty() bool {
	return len(f.Fields()) == 0
}

// Fields lists the ticket fields this set touches, in [AllFields] order.
func (f FieldSet) Fields() []Field {
	var fields []Field
	if f.Summary != nil {
		fields = append(fields, FieldSummary)
	}
	if f.Description != nil {
		fields = append(fields, FieldDescription)
	}
	if f.Priority != nil {
		fields = append(fields, FieldPriority)
	}
	if f.StoryPoints != nil {
		fields = append(fields, FieldStoryPoints)
	}
	if f.Labels != nil || len(f.AddLabels) > 0 || len(f.RemoveLabels) > 0 {
		fields = append(fields, FieldLabels)
	}
	return fields
}
