// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package session runs refinement sessions: an ordered walk over the
// backlog in which each ticket is presented with its readiness verdict
// and the user's utterances are interpreted and carried out against the
// tracker.
//
// A [Controller] owns the dependencies (tracker client, site profile,
// clock) and drives any number of [Session] values. A session moves
// through a fixed set of states:
//
//	AwaitingTicket -> Presenting -> AwaitingCommand -> Dispatching
//	      ^               ^                                 |
//	      |               +---------- same ticket ----------+
//	      +------------------ cursor advanced --------------+
//
// Every state can reach Ended. [Controller.Present] loads the ticket
// under the cursor; [Controller.Handle] interprets one utterance and
// dispatches it. After a successful mutation the tracker's own snapshot
// replaces the session's, so the next presentation always reflects what
// the tracker stored.
//
// Moving a ticket into a ready status is gated by the readiness
// checklist before any call is made: a ticket with gaps is reported as
// blocked with a [NotReadyError] and stays where it is. Remote calls are
// made at most once per utterance; a failure is reported and leaves the
// cursor in place. A rejected credential ends the session.
//
// Every turn is recorded in the transcript with the fingerprint of the
// snapshot it acted on. [Controller.End] returns the final [Report].
package session
