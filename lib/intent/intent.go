// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package intent maps one free-form utterance from a refinement session
// to exactly one structured action.
//
// The set of actions is closed: every [Intent] is one of [Transition],
// [UpdateField], [Rerank], [LinkEpic], [Comment], [Navigate],
// [EndSession] or [Unrecognized], and dispatchers type-switch over
// them exhaustively. Status language ("ready", "won't do") only ever
// produces a Transition and content-edit language ("update description
// to ...") only ever produces an UpdateField; neither is recorded as a
// comment. When an utterance does not match exactly one pattern the
// interpreter returns Unrecognized with a reason instead of guessing.
package intent

import (
	"fmt"
	"strings"
)

// Intent is a structured action. The unexported method seals the set.
type Intent interface {
	// Describe renders the intent for logs and transcripts.
	Describe() string
	intent()
}

// Transition asks the tracker to move the ticket into Target, which
// names either a transition or a destination status.
type Transition struct {
	Target     string
	Resolution string
}

// EditField names what an UpdateField changes.
type EditField string

const (
	EditSummary     EditField = "summary"
	EditDescription EditField = "description"
	EditProblem     EditField = "problem"
	EditPriority    EditField = "priority"
	EditStoryPoints EditField = "story_points"
	EditAddLabel    EditField = "add_label"
	EditRemoveLabel EditField = "remove_label"
	EditLabels      EditField = "labels"
	EditCriterion   EditField = "acceptance_criterion"
	EditBlockers    EditField = "blockers"
)

// UpdateField edits one ticket field. Value is already validated for
// the field: a canonical priority name, a positive integer for story
// points, a single label for add/remove. Labels carries the new label
// set for EditLabels and Keys the blocker set for EditBlockers (empty
// means "explicitly none").
type UpdateField struct {
	Field  EditField
	Value  string
	Labels []string
	Keys   []string
}

// Direction is up (toward the top of the backlog) or down.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Rerank moves the ticket Count positions within the backlog.
type Rerank struct {
	Direction Direction
	Count     int
}

// LinkEpic makes the ticket a child of EpicKey.
type LinkEpic struct {
	EpicKey string
}

// Comment appends Text to the ticket's comment trail.
type Comment struct {
	Text string
}

// Movement is the cursor action of a Navigate.
type Movement string

const (
	Next     Movement = "next"
	Skip     Movement = "skip"
	Previous Movement = "previous"
)

// Navigate moves the session cursor without touching the ticket.
type Navigate struct {
	Movement Movement
}

// EndSession ends the refinement session.
type EndSession struct{}

// Unrecognized is returned for anything that does not map to exactly
// one action. Reason is shown to the user.
type Unrecognized struct {
	Reason string
}

func (Transition) intent()   {}
func (UpdateField) intent()  {}
func (Rerank) intent()       {}
func (LinkEpic) intent()     {}
func (Comment) intent()      {}
func (Navigate) intent()     {}
func (EndSession) intent()   {}
func (Unrecognized) intent() {}

func (i Transition) Describe() string {
	if i.Resolution != "" {
		return fmt.Sprintf("transition to %q (resolution %q)", i.Target, i.Resolution)
	}
	return fmt.Sprintf("transition to %q", i.Target)
}

func (i UpdateField) Describe() string {
	switch i.Field {
	case EditLabels:
		return fmt.Sprintf("set labels to [%s]", strings.Join(i.Labels, ", "))
	case EditBlockers:
		if len(i.Keys) == 0 {
			return "set blockers to none"
		}
		return fmt.Sprintf("set blockers to [%s]", strings.Join(i.Keys, ", "))
	}
	return fmt.Sprintf("update %s to %q", i.Field, i.Value)
}

func (i Rerank) Describe() string {
	return fmt.Sprintf("move %s %d", i.Direction, i.Count)
}

func (i LinkEpic) Describe() string {
	return "link to epic " + i.EpicKey
}

func (i Comment) Describe() string {
	return fmt.Sprintf("comment %q", i.Text)
}

func (i Navigate) Describe() string {
	return string(i.Movement)
}

func (EndSession) Describe() string {
	return "end session"
}

func (i Unrecognized) Describe() string {
	return "unrecognized: " + i.Reason
}
