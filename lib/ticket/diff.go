// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Field names one attribute of a Ticket for change reporting and for
// partial updates.
type Field string

const (
	FieldSummary            Field = "summary"
	FieldDescription        Field = "description"
	FieldStatus             Field = "status"
	FieldResolution         Field = "resolution"
	FieldPriority           Field = "priority"
	FieldStoryPoints        Field = "story_points"
	FieldEpic               Field = "epic"
	FieldLabels             Field = "labels"
	FieldBlockers           Field = "blockers"
	FieldAcceptanceCriteria Field = "acceptance_criteria"
	FieldComments           Field = "comments"
)

// AllFields is the fixed order in which changes are reported.
var AllFields = []Field{
	FieldSummary,
	FieldDescription,
	FieldStatus,
	FieldResolution,
	FieldPriority,
	FieldStoryPoints,
	FieldEpic,
	FieldLabels,
	FieldBlockers,
	FieldAcceptanceCriteria,
	FieldComments,
}

// Change is one changed field with both values rendered as text.
type Change struct {
	Field  Field  `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Diff returns the fields that differ between two snapshots of the same
// ticket, in [AllFields] order. It is for reporting only: nothing
// decides what to mutate from a Diff.
func Diff(before, after Ticket) []Field {
	changes := Changes(before, after)
	fields := make([]Field, len(changes))
	for index, change := range changes {
		fields[index] = change.Field
	}
	return fields
}

// Changes is Diff with the before and after values attached.
func Changes(before, after Ticket) []Change {
	var changes []Change
	for _, field := range AllFields {
		beforeValue := fieldValue(before, field)
		afterValue := fieldValue(after, field)
		if beforeValue != afterValue {
			changes = append(changes, Change{Field: field, Before: beforeValue, After: afterValue})
		}
	}
	return changes
}

func fieldValue(t Ticket, field Field) string {
	switch field {
	case FieldSummary:
		return t.Summary
	case FieldDescription:
		return t.Description
	case FieldStatus:
		return string(t.Status)
	case FieldResolution:
		return t.Resolution
	case FieldPriority:
		return string(t.Priority)
	case FieldStoryPoints:
		if t.StoryPoints == 0 {
			return ""
		}
		return strconv.Itoa(t.StoryPoints)
	case FieldEpic:
		return t.Epic
	case FieldLabels:
		labels := slices.Clone(t.Labels)
		slices.Sort(labels)
		return strings.Join(labels, ", ")
	case FieldBlockers:
		blockers := slices.Clone(t.Blockers)
		slices.Sort(blockers)
		value := strings.Join(blockers, ", ")
		if value == "" && t.BlockersReviewed {
			return "none"
		}
		return value
	case FieldAcceptanceCriteria:
		return strings.Join(t.AcceptanceCriteria, "\n")
	case FieldComments:
		if len(t.Comments) == 0 {
			return ""
		}
		return strconv.Itoa(len(t.Comments)) + " comments"
	}
	return ""
}

// DescribeChanges renders one human-readable line per changed field.
// Multi-line fields get a line diff indented under their name.
func DescribeChanges(before, after Ticket) []string {
	var lines []string
	for _, change := range Changes(before, after) {
		switch change.Field {
		case FieldDescription, FieldAcceptanceCriteria:
			lines = append(lines, string(change.Field)+":")
			lines = append(lines, lineDiff(change.Before, change.After)...)
		case FieldComments:
			added := len(after.Comments) - len(before.Comments)
			if added > 0 {
				lines = append(lines, fmt.Sprintf("comments: +%d", added))
			} else {
				lines = append(lines, "comments: changed")
			}
		default:
			lines = append(lines, fmt.Sprintf("%s: %s → %s", change.Field, orUnset(change.Before), orUnset(change.After)))
		}
	}
	return lines
}

// lineDiff returns the inserted and deleted lines between before and
// after, prefixed "  + " and "  - ".
func lineDiff(before, after string) []string {
	dmp := diffmatchpatch.New()
	beforeChars, afterChars, lineArray := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lineArray)

	var lines []string
	for _, diff := range diffs {
		var prefix string
		switch diff.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "  + "
		case diffmatchpatch.DiffDelete:
			prefix = "  - "
		default:
			continue
		}
		for _, line := range strings.Split(strings.TrimSuffix(diff.Text, "\n"), "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			lines = append(lines, prefix+line)
		}
	}
	return lines
}

func orUnset(value string) string {
	if value == "" {
		return "(unset)"
	}
	return value
}
