// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"fmt"
	"slices"
	"strings"
)

// Workflow is a tracker's allowed-transition graph: for each status,
// the transitions a ticket in that status may take. The real tracker
// owns its workflow and the client discovers it per ticket; a Workflow
// value describes one for the tracker emulator and for tests.
type Workflow map[Status][]Transition

// DefaultWorkflow is the refinement workflow used by the emulator.
//
//	Backlog     → Ready, In Progress, Done
//	Ready       → Backlog, In Progress
//	In Progress → Ready, Done
//	Done        → Backlog (reopen)
//
// Ready is not reachable from Done: a finished ticket has
// to be reopened before it can be refined again.
func DefaultWorkflow() Workflow {
	return Workflow{
		StatusBacklog: {
			{ID: "11", Name: "Ready", To: StatusReady},
			{ID: "21", Name: "Start Progress", To: StatusInProgress},
			{ID: "31", Name: "Done", To: StatusDone},
		},
		StatusReady: {
			{ID: "41", Name: "Back to Backlog", To: StatusBacklog},
			{ID: "21", Name: "Start Progress", To: StatusInProgress},
		},
		StatusInProgress: {
			{ID: "51", Name: "Stop Progress", To: StatusReady},
			{ID: "31", Name: "Done", To: StatusDone},
		},
		StatusDone: {
			{ID: "61", Name: "Reopen", To: StatusBacklog},
		},
	}
}

// From returns the transitions available from status.
func (w Workflow) From(status Status) []Transition {
	for from, transitions := range w {
		if from.Is(status) {
			return slices.Clone(transitions)
		}
	}
	return nil
}

// Find returns the transition out of status that target names, by
// transition name or by destination status.
func (w Workflow) Find(status Status, target string) (Transition, bool) {
	for _, transition := range w.From(status) {
		if transition.Matches(target) {
			return transition, true
		}
	}
	return Transition{}, false
}

// Validate checks that every transition targets a status that has its
// own entry in the graph, so no ticket can be moved into a dead end the
// workflow does not describe.
func (w Workflow) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("workflow: no statuses defined")
	}
	for from, transitions := range w {
		for _, transition := range transitions {
			if transition.Name == "" {
				return fmt.Errorf("workflow: transition out of %q has no name", from)
			}
			if _, ok := w.lookup(transition.To); !ok {
				return fmt.Errorf("workflow: transition %q from %q targets undefined status %q",
					transition.Name, from, transition.To)
			}
		}
	}
	return nil
}

func (w Workflow) lookup(status Status) (Status, bool) {
	for candidate := range w {
		if candidate.Is(status) {
			return candidate, true
		}
	}
	return "", false
}

// TransitionNames formats transitions for error messages and reports.
func TransitionNames(transitions []Transition) string {
	if len(transitions) == 0 {
		return "(none)"
	}
	labels := make([]string, len(transitions))
	for index, transition := range transitions {
		labels[index] = transition.Label()
	}
	return strings.Join(labels, ", ")
}
