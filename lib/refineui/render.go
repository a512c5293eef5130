// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/refine/lib/readiness"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/ticket"
	"github.com/bureau-foundation/refine/lib/tui"
)

// Styles are the lipgloss styles every renderer in this package draws
// with. Build them once per output with [NewStyles].
type Styles struct {
	Text    lipgloss.Style
	Heading lipgloss.Style
	Border  lipgloss.Style
	Code    lipgloss.Style
	Faint   lipgloss.Style
	Help    lipgloss.Style
	Pass    lipgloss.Style
	Fail    lipgloss.Style
	Key     lipgloss.Style
	Added   lipgloss.Style
	Removed lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style

	// Changed is layered over a field the last turn modified.
	Changed lipgloss.Style

	// Color is false when the renderer strips color, so syntax
	// highlighting is skipped as well.
	Color bool

	theme    tui.Theme
	renderer *lipgloss.Renderer
}

// NewStyles builds the styles for theme on renderer. The renderer's
// color profile decides what reaches the terminal.
func NewStyles(theme tui.Theme, renderer *lipgloss.Renderer) Styles {
	style := renderer.NewStyle
	return Styles{
		Text:    style().Foreground(theme.NormalText),
		Heading: style().Foreground(theme.HeaderForeground).Bold(true),
		Border:  style().Foreground(theme.BorderColor),
		Code:    style().Foreground(theme.FaintText),
		Faint:   style().Foreground(theme.FaintText),
		Help:    style().Foreground(theme.HelpText),
		Pass:    style().Foreground(theme.Pass),
		Fail:    style().Foreground(theme.Fail).Bold(true),
		Key:     style().Foreground(theme.KeyForeground),
		Added:   style().Foreground(theme.Added),
		Removed: style().Foreground(theme.Removed),
		Warning: style().Foreground(theme.Warning),
		Error:   style().Foreground(theme.Error).Bold(true),
		Changed: style().Background(theme.ChangedBackground),
		Color:   renderer.ColorProfile() != termenv.Ascii,

		theme:    theme,
		renderer: renderer,
	}
}

// PlainStyles renders without any escape sequences. Line mode and
// tests use it.
func PlainStyles() Styles {
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(termenv.Ascii)
	return NewStyles(tui.DefaultTheme, renderer)
}

func (styles Styles) status(status ticket.Status) lipgloss.Style {
	return styles.renderer.NewStyle().Foreground(styles.theme.StatusColor(status)).Bold(true)
}

func (styles Styles) priority(priority ticket.Priority) lipgloss.Style {
	return styles.renderer.NewStyle().
		Foreground(styles.theme.PriorityColor(priority)).
		Bold(priority == ticket.PriorityHighest || priority == ticket.PriorityHigh)
}

// tinted renders value with the changed background when changed
// reports field as modified by the last turn.
func (styles Styles) tinted(value string, field ticket.Field, changed func(ticket.Field) bool) string {
	if changed != nil && changed(field) {
		return styles.Changed.Render(value)
	}
	return value
}

// RenderPresentation draws a ticket the way a refinement session shows
// it: the key and summary with the queue position, a meta line, the
// description, and the readiness checklist. Fields for which changed
// returns true are tinted; changed may be nil.
func RenderPresentation(presentation *session.Presentation, styles Styles, width int, changed func(ticket.Field) bool) string {
	position := fmt.Sprintf("%d/%d", presentation.Position, presentation.Total)
	return renderTicket(presentation.Ticket, presentation.Verdict, position, styles, width, changed)
}

// RenderTicket draws a ticket outside a session, with its readiness
// checklist and no queue position.
func RenderTicket(subject ticket.Ticket, styles Styles, width int) string {
	return renderTicket(subject, readiness.Evaluate(subject), "", styles, width, nil)
}

func renderTicket(subject ticket.Ticket, verdict readiness.Verdict, corner string, styles Styles, width int, changed func(ticket.Field) bool) string {
	width = max(width, 40)
	var sections []string

	// Line 1: KEY  summary ................ n/m
	title := styles.Key.Bold(true).Render(subject.Key) + "  " +
		styles.tinted(styles.Heading.Render(subject.Summary), ticket.FieldSummary, changed)
	if corner != "" {
		position := styles.Faint.Render(corner)
		if gap := width - lipgloss.Width(title) - lipgloss.Width(position); gap >= 2 {
			title += strings.Repeat(" ", gap) + position
		} else {
			title = ansi.Truncate(title, width-lipgloss.Width(position)-2, "…") + "  " + position
		}
	}
	sections = append(sections, title)

	sections = append(sections, renderMetaLine(subject, styles, changed))
	if line := renderRelations(subject, styles, changed); line != "" {
		sections = append(sections, line)
	}
	separator := styles.Border.Render(strings.Repeat("─", width))
	sections = append(sections, separator)

	description := RenderMarkdown(subject.Description, styles, width)
	if description == "" {
		description = styles.Faint.Render("(no description)")
	}
	sections = append(sections, styles.tinted(description, ticket.FieldDescription, changed), separator)

	sections = append(sections, RenderVerdict(verdict, styles))
	if comments := renderComments(subject.Comments, styles, width); comments != "" {
		sections = append(sections, styles.tinted(comments, ticket.FieldComments, changed))
	}
	return strings.Join(sections, "\n")
}

// renderMetaLine: STATUS  Priority  Type  N pts  [label] [label]
func renderMetaLine(subject ticket.Ticket, styles Styles, changed func(ticket.Field) bool) string {
	var parts []string

	status := strings.ToUpper(string(subject.Status))
	if subject.Resolution != "" {
		status += " (" + subject.Resolution + ")"
	}
	parts = append(parts, styles.tinted(styles.status(subject.Status).Render(status), ticket.FieldStatus, changed))

	priority := styles.Faint.Render("no priority")
	if subject.Priority != "" {
		priority = styles.priority(subject.Priority).Render(string(subject.Priority))
	}
	parts = append(parts, styles.tinted(priority, ticket.FieldPriority, changed))

	if subject.Type != "" {
		parts = append(parts, styles.Faint.Render(subject.Type))
	}
	if subject.StoryPoints > 0 {
		parts = append(parts, styles.tinted(styles.Text.Render(fmt.Sprintf("%d pts", subject.StoryPoints)), ticket.FieldStoryPoints, changed))
	}

	labels := styles.Faint.Render("no labels")
	if len(subject.Labels) > 0 {
		rendered := make([]string, len(subject.Labels))
		for index, label := range subject.Labels {
			rendered[index] = styles.renderer.NewStyle().Foreground(labelColor(label)).Render("[" + label + "]")
		}
		labels = strings.Join(rendered, " ")
	}
	parts = append(parts, styles.tinted(labels, ticket.FieldLabels, changed))
	return strings.Join(parts, "  ")
}

// renderRelations lists the epic, the blockers and the assignee on one
// line. Empty when there is nothing to show.
func renderRelations(subject ticket.Ticket, styles Styles, changed func(ticket.Field) bool) string {
	var parts []string
	if subject.Epic != "" {
		parts = append(parts, styles.tinted(styles.Faint.Render("epic ")+keyed(styles, subject.Epic), ticket.FieldEpic, changed))
	}
	if len(subject.Blockers) > 0 {
		keys := make([]string, len(subject.Blockers))
		for index, key := range subject.Blockers {
			keys[index] = keyed(styles, key)
		}
		parts = append(parts, styles.tinted(styles.Faint.Render("blocked by ")+strings.Join(keys, ", "), ticket.FieldBlockers, changed))
	}
	if subject.Assignee != "" {
		parts = append(parts, styles.Faint.Render("assigned to "+subject.Assignee))
	}
	return strings.Join(parts, "  ")
}

// labelColor spreads label names across the 256-color palette, avoiding
// the 16 theme-dependent colors and the grayscale ramp.
func labelColor(label string) lipgloss.Color {
	hash := uint32(0)
	for _, character := range label {
		hash = hash*31 + uint32(character)
	}
	return lipgloss.Color(fmt.Sprintf("%d", 17+hash%215))
}

// RenderVerdict draws the readiness checklist, one line per check.
func RenderVerdict(verdict readiness.Verdict, styles Styles) string {
	var builder strings.Builder
	if verdict.Ready() {
		builder.WriteString(styles.Pass.Bold(true).Render("Ready to save"))
	} else {
		builder.WriteString(styles.Warning.Bold(true).Render(fmt.Sprintf("Not ready: %d gap(s)", len(verdict.Gaps()))))
	}
	nameWidth := 0
	for _, result := range verdict.Results {
		nameWidth = max(nameWidth, len(result.Check))
	}
	for _, result := range verdict.Results {
		name := fmt.Sprintf("%-*s", nameWidth, result.Check)
		detail := styles.Faint.Render(result.Detail)
		if !result.Satisfied {
			detail = styles.Text.Render(result.Detail)
		}
		fmt.Fprintf(&builder, "\n  %s %s  %s", checklistMark(styles, result), name, detail)
	}
	return builder.String()
}

// renderComments shows the comment count and the latest comment.
func renderComments(comments []ticket.Comment, styles Styles, width int) string {
	if len(comments) == 0 {
		return ""
	}
	latest := comments[len(comments)-1]
	header := styles.Faint.Render(fmt.Sprintf("%d comment(s), latest", len(comments)))
	if latest.Author != "" {
		header += styles.Faint.Render(" from " + latest.Author)
	}
	if !latest.Created.IsZero() {
		header += styles.Faint.Render(" on " + latest.Created.Format("2006-01-02"))
	}
	body := ansi.Wrap(strings.TrimSpace(latest.Body), width-2, wrapBreakpoints)
	return header + ":\n" + styles.Text.Render(indentLines(body, "  "))
}

func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for index, line := range lines {
		lines[index] = prefix + line
	}
	return strings.Join(lines, "\n")
}

// RenderTurn describes the result of one utterance: the message, the
// fields the tracker changed, and what to do next when the turn was
// blocked or rejected.
func RenderTurn(turn *session.Turn, styles Styles, width int) string {
	width = max(width, 40)
	var lines []string

	message := turn.Message
	if message == "" && turn.Err != nil {
		message = turn.Err.Error()
	}
	lines = append(lines, outcomeStyle(turn.Outcome, styles).Render(ansi.Wrap(message, width, wrapBreakpoints)))
	if turn.Err != nil && turn.Outcome == session.OutcomeApplied {
		lines = append(lines, styles.Warning.Render(ansi.Wrap(turn.Err.Error(), width, wrapBreakpoints)))
	}

	if len(turn.Changes) > 0 {
		lines = append(lines, RenderChanges(turn.Changes, styles))
	}

	if len(turn.Gaps) > 0 {
		lines = append(lines, styles.Text.Render("Fix these first:"))
		for _, gap := range turn.Gaps {
			lines = append(lines, fmt.Sprintf("  %s %s  %s", checklistMark(styles, gap), gap.Check, styles.Faint.Render(gap.Detail)))
		}
	}

	if len(turn.Transitions) > 0 {
		lines = append(lines, styles.Text.Render("Available transitions:"), RenderTransitions(turn.Transitions, styles))
	}

	if turn.Outcome == session.OutcomeUnrecognized {
		lines = append(lines, styles.Help.Render(`Try "ready", "set priority to High", "add label payments", "next", or "done for today".`))
	}
	return strings.Join(lines, "\n")
}

// RenderChanges draws the lines of ticket.DescribeChanges indented
// under a heading, with inserted and deleted description lines colored.
func RenderChanges(changes []string, styles Styles) string {
	lines := make([]string, len(changes))
	for index, change := range changes {
		switch {
		case strings.HasPrefix(change, "  + "):
			lines[index] = styles.Added.Render(change)
		case strings.HasPrefix(change, "  - "):
			lines[index] = styles.Removed.Render(change)
		default:
			lines[index] = styles.Text.Render("  " + change)
		}
	}
	return strings.Join(lines, "\n")
}

// RenderTransitions lists transitions one per line, colored by their
// destination status.
func RenderTransitions(transitions []ticket.Transition, styles Styles) string {
	lines := make([]string, len(transitions))
	for index, transition := range transitions {
		lines[index] = "  " + styles.status(transition.To).Render(transition.Label())
	}
	return strings.Join(lines, "\n")
}

// RenderBacklog lists tickets one per line: key, status, priority,
// summary and labels, truncated to width.
func RenderBacklog(summaries []ticket.Summary, styles Styles, width int) string {
	if len(summaries) == 0 {
		return styles.Faint.Render("no tickets")
	}
	keyWidth, statusWidth, priorityWidth := 0, 0, 0
	for _, summary := range summaries {
		keyWidth = max(keyWidth, len(summary.Key))
		statusWidth = max(statusWidth, len(summary.Status))
		priorityWidth = max(priorityWidth, len(summary.Priority))
	}

	lines := make([]string, len(summaries))
	for index, summary := range summaries {
		line := styles.Key.Render(fmt.Sprintf("%-*s", keyWidth, summary.Key)) + "  " +
			styles.status(summary.Status).Render(fmt.Sprintf("%-*s", statusWidth, summary.Status)) + "  "
		if priorityWidth > 0 {
			line += styles.priority(summary.Priority).Render(fmt.Sprintf("%-*s", priorityWidth, summary.Priority)) + "  "
		}
		line += styles.Text.Render(summary.Summary)
		if len(summary.Labels) > 0 {
			line += "  " + styles.Faint.Render("["+strings.Join(summary.Labels, ", ")+"]")
		}
		lines[index] = ansi.Truncate(line, max(width, 40), "…")
	}
	return strings.Join(lines, "\n")
}

func outcomeStyle(outcome session.Outcome, styles Styles) lipgloss.Style {
	switch outcome {
	case session.OutcomeApplied:
		return styles.Pass
	case session.OutcomeBlocked, session.OutcomeRejected:
		return styles.Warning
	case session.OutcomeFailed:
		return styles.Error
	case session.OutcomeUnrecognized:
		return styles.Faint
	default:
		return styles.Text
	}
}

// RenderReport draws the end-of-session summary.
func RenderReport(report session.Report, styles Styles) string {
	var builder strings.Builder
	reviewed := fmt.Sprintf("%d of %d tickets reviewed", len(report.Tickets), report.Queued)
	builder.WriteString(styles.Heading.Render("Session summary") + "  " + styles.Faint.Render(reviewed))
	if len(report.Tickets) == 0 {
		builder.WriteString("\n  " + styles.Faint.Render("nothing was reviewed"))
		return builder.String()
	}

	keyWidth := 0
	for _, line := range report.Tickets {
		keyWidth = max(keyWidth, len(line.Key))
	}
	for _, line := range report.Tickets {
		key := styles.Key.Render(fmt.Sprintf("%-*s", keyWidth, line.Key))
		var result string
		switch {
		case line.Skipped:
			result = styles.Faint.Render("skipped")
		case line.Applied == 0:
			result = styles.status(line.Status).Render(string(line.Status)) + styles.Faint.Render(", no changes")
		default:
			result = styles.status(line.Status).Render(string(line.Status)) + styles.Text.Render(fmt.Sprintf(", %d change(s)", line.Applied))
		}
		fmt.Fprintf(&builder, "\n  %s  %s  %s", key, result, styles.Faint.Render(line.Summary))
	}
	return builder.String()
}
