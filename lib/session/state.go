// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"
	"slices"
)

// State is a position in the turn loop.
type State int

const (
	// AwaitingTicket: the cursor points at a ticket that has not been
	// fetched yet.
	AwaitingTicket State = iota

	// Presenting: an authoritative snapshot is loaded and about to be
	// shown.
	Presenting

	// AwaitingCommand: the snapshot has been shown and the session is
	// waiting for an utterance.
	AwaitingCommand

	// Dispatching: an intent is being carried out.
	Dispatching

	// Ended is terminal.
	Ended
)

var stateNames = [...]string{
	AwaitingTicket:  "awaiting-ticket",
	Presenting:      "presenting",
	AwaitingCommand: "awaiting-command",
	Dispatching:     "dispatching",
	Ended:           "ended",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// next lists the legal successors of each state. Dispatching never
// returns straight to AwaitingCommand: the result is always presented
// first.
var next = map[State][]State{
	AwaitingTicket:  {Presenting, Ended},
	Presenting:      {AwaitingCommand, Ended},
	AwaitingCommand: {Dispatching, Ended},
	Dispatching:     {Presenting, AwaitingTicket, Ended},
	Ended:           nil,
}

// StateError reports an operation attempted in a state that does not
// allow it. It indicates a bug in the caller, not a user mistake.
type StateError struct {
	Operation string
	State     State
	Want      []State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("session: %s not allowed in state %s (want %v)", e.Operation, e.State, e.Want)
}

// require checks that s is in one of want before operation runs.
func (s *Session) require(operation string, want ...State) error {
	if !slices.Contains(want, s.state) {
		return &StateError{Operation: operation, State: s.state, Want: want}
	}
	return nil
}

// moveTo changes state along a legal edge.
func (s *Session) moveTo(target State) {
	if !slices.Contains(next[s.state], target) {
		panic(fmt.Sprintf("session: illegal state change %s -> %s", s.state, target))
	}
	s.state = target
}
