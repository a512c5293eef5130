// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/bureau-foundation/refine/lib/intent"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// Turn is the result of handling one utterance.
type Turn struct {
	Utterance string
	Intent    intent.Intent
	Outcome   Outcome

	// Key is the ticket the turn acted on.
	Key string

	// Message is a one-line account of what happened.
	Message string

	// Changes lists the fields the tracker reports as changed, one
	// line each.
	Changes []string

	// After is the authoritative snapshot following a mutation. It is
	// nil when nothing was changed or the re-fetch failed.
	After *ticket.Ticket

	// Gaps lists the failing checks when the readiness checklist
	// blocked a transition.
	Gaps []readiness.Result

	// Transitions lists the valid transitions when the requested one
	// was not available.
	Transitions []ticket.Transition

	// Advanced is true when the cursor moved.
	Advanced bool

	// Err is the turn's failure, also returned by Handle.
	Err error
}

// Handle interprets one utterance and carries it out against the
// ticket under the cursor.
//
// An unrecognized utterance returns an error wrapping
// ErrAmbiguousCommand and leaves the session awaiting a command. Every
// other intent is dispatched: afterwards the session is presenting the
// authoritative snapshot, awaiting the next ticket if the cursor moved,
// or ended. Remote failures are returned as the turn's error and never
// move the cursor; a rejected credential ends the session.
func (c *Controller) Handle(ctx context.Context, s *Session, utterance string) (*Turn, error) {
	if err := s.require("handle", AwaitingCommand); err != nil {
		return nil, err
	}

	parsed := intent.Interpret(utterance, intent.Context{Vocabulary: c.vocabulary})
	turn := &Turn{Utterance: utterance, Intent: parsed, Key: s.current.Key}
	before := s.current.Clone()
	fingerprint := ticket.ComputeFingerprint(before)

	if unrecognized, ok := parsed.(intent.Unrecognized); ok {
		turn.Outcome = OutcomeUnrecognized
		turn.Message = unrecognized.Reason
		turn.Err = fmt.Errorf("%w: %s", ErrAmbiguousCommand, unrecognized.Reason)
		c.finishTurn(s, turn, fingerprint)
		return turn, turn.Err
	}

	s.moveTo(Dispatching)
	switch action := parsed.(type) {
	case intent.EndSession:
		turn.Outcome = OutcomeEnded
		turn.Message = "session ended"
	case intent.Navigate:
		c.navigate(s, turn, action)
	case intent.Transition:
		c.transition(ctx, s, turn, before, action)
	case intent.UpdateField:
		c.updateField(ctx, s, turn, before, action)
	case intent.Rerank:
		c.rerank(ctx, s, turn, action)
	case intent.LinkEpic:
		c.linkEpic(ctx, s, turn, before, action)
	case intent.Comment:
		c.comment(ctx, s, turn, before, action)
	default:
		panic(fmt.Sprintf("session: unhandled intent %T", parsed))
	}

	c.finishTurn(s, turn, fingerprint)
	switch {
	case turn.Outcome == OutcomeEnded:
		c.End(s)
	case jira.IsAuth(turn.Err):
		c.endAfterAuthFailure(s, turn.Err)
	case turn.Advanced, s.current == nil:
		s.current = nil
		s.moveTo(AwaitingTicket)
	default:
		s.moveTo(Presenting)
	}
	return turn, turn.Err
}

func (c *Controller) finishTurn(s *Session, turn *Turn, fingerprint ticket.Fingerprint) {
	entry := Entry{
		Key:         turn.Key,
		Utterance:   turn.Utterance,
		Intent:      turn.Intent.Describe(),
		Outcome:     turn.Outcome,
		Detail:      turn.Message,
		Changes:     turn.Changes,
		Fingerprint: fingerprint,
	}
	if turn.Err != nil && turn.Outcome != OutcomeUnrecognized {
		entry.Detail = turn.Err.Error()
	}
	s.record(c.clock.Now(), entry)
	if turn.After != nil {
		s.observe(turn.After)
	}

	attributes := []any{"session", s.id, "key", turn.Key, "intent", entry.Intent, "outcome", turn.Outcome}
	if turn.Err != nil {
		c.logger.Warn("turn failed", append(attributes, "error", turn.Err)...)
		return
	}
	c.logger.Info("turn handled", attributes...)
}

// fail records a remote failure. The snapshot is kept: no partial
// mutation is assumed to have applied.
func (c *Controller) fail(turn *Turn, err error) {
	turn.Err = err
	switch {
	case jira.IsFieldRejected(err), jira.IsInvalidTransition(err), jira.IsNotFound(err):
		turn.Outcome = OutcomeRejected
	default:
		turn.Outcome = OutcomeFailed
	}
	turn.Message = err.Error()
}

// applied replaces the session snapshot with the tracker's.
func (c *Controller) applied(s *Session, turn *Turn, before ticket.Ticket, after *ticket.Ticket) {
	s.current = after
	turn.After = after
	turn.Outcome = OutcomeApplied
	turn.Changes = ticket.DescribeChanges(before, *after)
}

// refresh re-fetches the ticket after a mutation whose response does
// not carry it. If the re-fetch fails the mutation still happened; the
// snapshot is dropped so the next Present loads it again.
func (c *Controller) refresh(ctx context.Context, s *Session, turn *Turn, before ticket.Ticket) {
	updated, err := c.tracker.FetchTicket(ctx, turn.Key)
	if err != nil {
		s.current = nil
		turn.Outcome = OutcomeApplied
		turn.Err = fmt.Errorf("%s was updated but could not be re-fetched: %w", turn.Key, err)
		return
	}
	c.applied(s, turn, before, updated)
}

func (c *Controller) navigate(s *Session, turn *Turn, action intent.Navigate) {
	switch action.Movement {
	case intent.Next, intent.Skip:
		s.cursor++
		turn.Outcome = OutcomeNavigated
		if action.Movement == intent.Skip {
			turn.Outcome = OutcomeSkipped
		}
		turn.Message = fmt.Sprintf("moving on from %s", turn.Key)
	case intent.Previous:
		if s.cursor == 0 {
			turn.Outcome = OutcomeRejected
			turn.Err = ErrNoPrevious
			turn.Message = ErrNoPrevious.Error()
			return
		}
		s.cursor--
		turn.Outcome = OutcomeNavigated
		turn.Message = fmt.Sprintf("back to %s", s.queue[s.cursor])
	default:
		panic(fmt.Sprintf("session: unhandled movement %q", action.Movement))
	}
	turn.Advanced = true
}

func (c *Controller) transition(ctx context.Context, s *Session, turn *Turn, before ticket.Ticket, action intent.Transition) {
	if before.Status.Is(ticket.Status(action.Target)) {
		turn.Outcome = OutcomeUnchanged
		turn.Message = fmt.Sprintf("%s is already %s", turn.Key, before.Status)
		return
	}

	if verdict := readiness.Evaluate(before); !verdict.Ready() {
		destination, err := c.readyDestination(ctx, turn.Key, action.Target)
		if err != nil {
			c.fail(turn, err)
			return
		}
		if destination != "" {
			turn.Gaps = verdict.Gaps()
			turn.Outcome = OutcomeBlocked
			turn.Err = &NotReadyError{Key: turn.Key, Target: destination, Gaps: turn.Gaps}
			turn.Message = turn.Err.Error()
			return
		}
	}

	updated, err := c.tracker.Transition(ctx, turn.Key, action.Target, action.Resolution)
	if err != nil {
		var invalid *jira.InvalidTransitionError
		if errors.As(err, &invalid) {
			turn.Transitions = invalid.Available
			if available, queryErr := c.tracker.Transitions(ctx, turn.Key); queryErr == nil {
				turn.Transitions = available
			}
		}
		c.fail(turn, err)
		return
	}
	c.applied(s, turn, before, updated)
	turn.Message = fmt.Sprintf("%s moved to %s", turn.Key, updated.Status)
	if c.advances(updated.Status) {
		s.cursor++
		turn.Advanced = true
	}
}

// readyDestination returns the ready-equivalent status target leads to,
// or "" when it leads elsewhere. A target that is itself a ready status
// is answered without asking the tracker; any other target may still be
// the name of a transition into one, so the available transitions are
// resolved the same way the client resolves them.
func (c *Controller) readyDestination(ctx context.Context, key, target string) (string, error) {
	if c.profile.IsReady(ticket.Status(target)) {
		return target, nil
	}
	available, err := c.tracker.Transitions(ctx, key)
	if err != nil {
		return "", err
	}
	chosen, ok := ticket.MatchTransition(available, target)
	if !ok || !c.profile.IsReady(chosen.To) {
		return "", nil
	}
	return string(chosen.To), nil
}

func (c *Controller) updateField(ctx context.Context, s *Session, turn *Turn, before ticket.Ticket, action intent.UpdateField) {
	fields, err := fieldSet(before, action)
	if err != nil {
		turn.Outcome = OutcomeRejected
		turn.Err = err
		turn.Message = err.Error()
		return
	}
	updated, err := c.tracker.UpdateFields(ctx, turn.Key, fields)
	if err != nil {
		c.fail(turn, err)
		return
	}
	c.applied(s, turn, before, updated)
	turn.Message = fmt.Sprintf("%s updated", turn.Key)
}

// fieldSet turns an edit into the partial update the tracker applies.
// Section edits are computed against the current description.
func fieldSet(current ticket.Ticket, action intent.UpdateField) (ticket.FieldSet, error) {
	var fields ticket.FieldSet
	switch action.Field {
	case intent.EditSummary:
		fields.Summary = &action.Value
	case intent.EditDescription:
		fields.Description = &action.Value
	case intent.EditProblem:
		description := ticket.WithProblem(current.Description, action.Value)
		fields.Description = &description
	case intent.EditCriterion:
		description := ticket.WithCriterion(current.Description, action.Value)
		fields.Description = &description
	case intent.EditBlockers:
		description := ticket.WithBlockers(current.Description, action.Keys)
		fields.Description = &description
	case intent.EditPriority:
		priority, err := ticket.ParsePriority(action.Value)
		if err != nil {
			return fields, err
		}
		fields.Priority = &priority
	case intent.EditStoryPoints:
		points, err := strconv.Atoi(action.Value)
		if err != nil || points < 1 {
			return fields, fmt.Errorf("story points must be a positive whole number, got %q", action.Value)
		}
		fields.StoryPoints = &points
	case intent.EditAddLabel:
		fields.AddLabels = []string{action.Value}
	case intent.EditRemoveLabel:
		fields.RemoveLabels = []string{action.Value}
	case intent.EditLabels:
		fields.Labels = append([]string{}, action.Labels...)
	default:
		return fields, fmt.Errorf("cannot edit %q", action.Field)
	}
	return fields, nil
}

func (c *Controller) rerank(ctx context.Context, s *Session, turn *Turn, action intent.Rerank) {
	before := s.current.Clone()
	result, err := c.tracker.Rerank(ctx, turn.Key, jira.RankDirection(action.Direction), action.Count)
	if err != nil {
		c.fail(turn, err)
		return
	}
	if !result.Moved() {
		turn.Outcome = OutcomeUnchanged
		turn.Message = fmt.Sprintf("%s is already at the %s of the backlog", turn.Key, boundary(action.Direction))
		return
	}
	c.refresh(ctx, s, turn, before)
	turn.Message = fmt.Sprintf("%s moved %s from position %d to %d", turn.Key, action.Direction, result.From+1, result.To+1)
}

func boundary(direction intent.Direction) string {
	if direction == intent.Up {
		return "top"
	}
	return "bottom"
}

func (c *Controller) linkEpic(ctx context.Context, s *Session, turn *Turn, before ticket.Ticket, action intent.LinkEpic) {
	if before.Epic == action.EpicKey {
		turn.Outcome = OutcomeUnchanged
		turn.Message = fmt.Sprintf("%s is already in epic %s", turn.Key, action.EpicKey)
		return
	}
	updated, err := c.tracker.LinkEpic(ctx, turn.Key, action.EpicKey)
	if err != nil {
		c.fail(turn, err)
		return
	}
	c.applied(s, turn, before, updated)
	turn.Message = fmt.Sprintf("%s linked to epic %s", turn.Key, action.EpicKey)
}

func (c *Controller) comment(ctx context.Context, s *Session, turn *Turn, before ticket.Ticket, action intent.Comment) {
	if _, err := c.tracker.AddComment(ctx, turn.Key, action.Text); err != nil {
		c.fail(turn, err)
		return
	}
	c.refresh(ctx, s, turn, before)
	turn.Message = fmt.Sprintf("comment added to %s", turn.Key)
}
