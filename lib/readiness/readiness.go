// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package readiness scores a ticket snapshot against the refinement
// checklist that gates a move into a ready status.
//
// [Evaluate] is pure: it reads only the snapshot it is given, never
// touches the network, and returns the same [Verdict] for the same
// input. Callers re-evaluate after every mutation rather than keeping a
// verdict around.
package readiness

import (
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// Check names one item of the checklist.
type Check string

const (
	CheckProblemStatement   Check = "problem-statement"
	CheckAcceptanceCriteria Check = "acceptance-criteria"
	CheckPriority           Check = "priority"
	CheckLabels             Check = "labels"
	CheckBlockers           Check = "blockers"
)

// Checks is the fixed evaluation and reporting order.
var Checks = []Check{
	CheckProblemStatement,
	CheckAcceptanceCriteria,
	CheckPriority,
	CheckLabels,
	CheckBlockers,
}

// Result is the outcome of one check.
type Result struct {
	Check     Check  `json:"check"`
	Satisfied bool   `json:"satisfied"`
	Detail    string `json:"detail"`
}

// Verdict holds one Result per check, in [Checks] order.
type Verdict struct {
	Key     string   `json:"key"`
	Results []Result `json:"results"`
}

// Ready reports whether every check passed.
func (v Verdict) Ready() bool {
	for _, result := range v.Results {
		if !result.Satisfied {
			return false
		}
	}
	return true
}

// Gaps returns the failing checks in order.
func (v Verdict) Gaps() []Result {
	var gaps []Result
	for _, result := range v.Results {
		if !result.Satisfied {
			gaps = append(gaps, result)
		}
	}
	return gaps
}

// Summary is a one-line description: "ready", or "not ready" with the
// failing check names.
func (v Verdict) Summary() string {
	gaps := v.Gaps()
	if len(gaps) == 0 {
		return "ready"
	}
	names := make([]string, len(gaps))
	for index, gap := range gaps {
		names[index] = string(gap.Check)
	}
	return fmt.Sprintf("not ready (%d gaps: %s)", len(gaps), strings.Join(names, ", "))
}

// Evaluate runs every check against subject. It never stops early, so
// the verdict lists the complete gap set.
func Evaluate(subject ticket.Ticket) Verdict {
	return Verdict{
		Key: subject.Key,
		Results: []Result{
			checkProblemStatement(subject),
			checkAcceptanceCriteria(subject),
			checkPriority(subject),
			checkLabels(subject),
			checkBlockers(subject),
		},
	}
}

func checkProblemStatement(subject ticket.Ticket) Result {
	result := Result{Check: CheckProblemStatement}
	if strings.TrimSpace(subject.Problem) == "" {
		result.Detail = "description has no problem statement"
		return result
	}
	result.Satisfied = true
	result.Detail = "problem statement present"
	return result
}

func checkAcceptanceCriteria(subject ticket.Ticket) Result {
	result := Result{Check: CheckAcceptanceCriteria}
	if len(subject.AcceptanceCriteria) == 0 {
		result.Detail = "no acceptance criteria"
		return result
	}

	var outcomes int
	var tasks []string
	for _, criterion := range subject.AcceptanceCriteria {
		if IsOutcome(criterion) {
			outcomes++
		} else {
			tasks = append(tasks, criterion)
		}
	}
	if outcomes == 0 {
		result.Detail = fmt.Sprintf("no criterion is phrased as an outcome (e.g. %q)", tasks[0])
		return result
	}
	result.Satisfied = true
	result.Detail = fmt.Sprintf("%d of %d criteria phrased as outcomes", outcomes, len(subject.AcceptanceCriteria))
	return result
}

func checkPriority(subject ticket.Ticket) Result {
	result := Result{Check: CheckPriority}
	switch {
	case subject.Priority == "":
		result.Detail = "priority not set"
	case !subject.Priority.Valid():
		result.Detail = fmt.Sprintf("priority %q is not a canonical level", subject.Priority)
	default:
		result.Satisfied = true
		result.Detail = "priority " + string(subject.Priority)
	}
	return result
}

func checkLabels(subject ticket.Ticket) Result {
	result := Result{Check: CheckLabels}
	if len(subject.Labels) == 0 {
		result.Detail = "no labels"
		return result
	}
	result.Satisfied = true
	result.Detail = "labels: " + strings.Join(subject.Labels, ", ")
	return result
}

func checkBlockers(subject ticket.Ticket) Result {
	result := Result{Check: CheckBlockers}
	switch {
	case len(subject.Blockers) > 0:
		// Listing a blocker is itself a review.
		result.Satisfied = true
		result.Detail = "blocked by " + strings.Join(subject.Blockers, ", ")
	case subject.BlockersReviewed:
		result.Satisfied = true
		result.Detail = "reviewed: none"
	default:
		result.Detail = "blockers not reviewed"
	}
	return result
}
