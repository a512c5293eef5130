// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/config"
	"github.com/bureau-foundation/refine/lib/intent"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/ticket"
)

// Tracker is the subset of *jira.Client the controller drives.
type Tracker interface {
	FetchBacklog(ctx context.Context, limit int) ([]ticket.Summary, error)
	FetchTicket(ctx context.Context, key string) (*ticket.Ticket, error)
	UpdateFields(ctx context.Context, key string, fields ticket.FieldSet) (*ticket.Ticket, error)
	Transition(ctx context.Context, key, target, resolution string) (*ticket.Ticket, error)
	Transitions(ctx context.Context, key string) ([]ticket.Transition, error)
	AddComment(ctx context.Context, key, text string) (*ticket.Comment, error)
	Rerank(ctx context.Context, key string, direction jira.RankDirection, count int) (jira.RankResult, error)
	LinkEpic(ctx context.Context, key, epicKey string) (*ticket.Ticket, error)
}

var _ Tracker = (*jira.Client)(nil)

// Config configures a Controller.
type Config struct {
	// Tracker performs every remote call. Required.
	Tracker Tracker

	// Profile supplies the ready and terminal statuses and the status
	// vocabulary. The zero value uses config.DefaultProfile.
	Profile config.Profile

	// Clock stamps transcript entries. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger

	// NewID generates session IDs. Defaults to uuid.New.
	NewID func() uuid.UUID
}

// Controller runs refinement sessions. It holds no per-session state:
// every call takes the *Session it operates on.
type Controller struct {
	tracker    Tracker
	profile    config.Profile
	vocabulary intent.Vocabulary
	clock      clock.Clock
	logger     *slog.Logger
	newID      func() uuid.UUID
}

// New creates a Controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Tracker == nil {
		return nil, errors.New("session: Tracker is required")
	}
	if len(cfg.Profile.ReadyStatuses) == 0 {
		cfg.Profile = config.DefaultProfile()
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.New
	}
	return &Controller{
		tracker:    cfg.Tracker,
		profile:    cfg.Profile,
		vocabulary: cfg.Profile.IntentVocabulary(),
		clock:      cfg.Clock,
		logger:     cfg.Logger,
		newID:      cfg.NewID,
	}, nil
}

// Session is one pass over the backlog. Only the Controller changes
// it; callers read it through the accessors.
type Session struct {
	id         uuid.UUID
	queue      []string
	cursor     int
	current    *ticket.Ticket
	state      State
	transcript []Entry
	tickets    []TicketReport
	started    time.Time
	ended      time.Time
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) State() State { return s.state }

// Queue returns the ticket keys under review, in backlog order.
func (s *Session) Queue() []string { return slices.Clone(s.queue) }

// Cursor is the index into Queue of the ticket under review.
func (s *Session) Cursor() int { return s.cursor }

func (s *Session) Transcript() []Entry { return slices.Clone(s.transcript) }

// Current returns a copy of the authoritative snapshot of the ticket
// under the cursor, or nil when none is loaded.
func (s *Session) Current() *ticket.Ticket {
	if s.current == nil {
		return nil
	}
	clone := s.current.Clone()
	return &clone
}

// Presentation is what the user sees at the start of a turn.
type Presentation struct {
	Ticket   ticket.Ticket
	Verdict  readiness.Verdict
	Position int // one-based
	Total    int
}

// Start fetches up to limit backlog tickets and opens a session over
// them. An empty backlog yields a session that has already ended.
func (c *Controller) Start(ctx context.Context, limit int) (*Session, error) {
	summaries, err := c.tracker.FetchBacklog(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching backlog: %w", err)
	}

	s := &Session{
		id:      c.newID(),
		state:   AwaitingTicket,
		started: c.clock.Now(),
	}
	for _, summary := range summaries {
		s.queue = append(s.queue, summary.Key)
	}
	c.logger.Info("refinement session started", "session", s.id, "tickets", len(s.queue))

	if len(s.queue) == 0 {
		c.End(s)
	}
	return s, nil
}

// Present loads the ticket under the cursor, when it is not already
// loaded, and evaluates its readiness. Tickets deleted since the
// backlog was fetched are skipped. Once the queue is exhausted the
// session ends and ErrQueueExhausted is returned.
//
// A failed fetch leaves the session awaiting the same ticket, so
// Present can be called again; an authentication failure ends it.
func (c *Controller) Present(ctx context.Context, s *Session) (*Presentation, error) {
	if err := s.require("present", AwaitingTicket, Presenting); err != nil {
		return nil, err
	}

	for s.state == AwaitingTicket {
		if s.cursor >= len(s.queue) {
			c.End(s)
			return nil, ErrQueueExhausted
		}
		key := s.queue[s.cursor]
		fetched, err := c.tracker.FetchTicket(ctx, key)
		if err != nil {
			if jira.IsNotFound(err) {
				s.record(c.clock.Now(), Entry{Key: key, Intent: "present", Outcome: OutcomeSkipped, Detail: "ticket no longer exists"})
				c.logger.Warn("skipping missing ticket", "session", s.id, "key", key)
				s.cursor++
				continue
			}
			if jira.IsAuth(err) {
				c.endAfterAuthFailure(s, err)
			}
			return nil, fmt.Errorf("fetching %s: %w", key, err)
		}
		s.current = fetched
		s.observe(fetched)
		s.moveTo(Presenting)
	}

	presentation := &Presentation{
		Ticket:   s.current.Clone(),
		Verdict:  readiness.Evaluate(*s.current),
		Position: s.cursor + 1,
		Total:    len(s.queue),
	}
	s.moveTo(AwaitingCommand)
	return presentation, nil
}

// End closes the session and returns its report. Ending an ended
// session returns the same report.
func (c *Controller) End(s *Session) Report {
	if s.state != Ended {
		s.moveTo(Ended)
		s.ended = c.clock.Now()
		s.current = nil
		c.logger.Info("refinement session ended",
			"session", s.id,
			"reviewed", len(s.tickets),
			"queued", len(s.queue),
			"turns", len(s.transcript),
		)
	}
	return s.Report()
}

func (c *Controller) endAfterAuthFailure(s *Session, err error) {
	s.record(c.clock.Now(), Entry{Intent: "end session", Outcome: OutcomeEnded, Detail: "credentials rejected: " + err.Error()})
	c.logger.Error("tracker rejected credentials; ending session", "session", s.id, "error", err)
	c.End(s)
}

// IsReadyStatus reports whether status is one the checklist gates.
func (c *Controller) IsReadyStatus(status ticket.Status) bool {
	return c.profile.IsReady(status)
}

// advances reports whether a ticket that lands in status is finished
// for this session.
func (c *Controller) advances(status ticket.Status) bool {
	return c.profile.IsReady(status) || c.profile.IsTerminal(status)
}
