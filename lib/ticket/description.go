// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	criteriaHeading = "Acceptance Criteria"
	blockersHeading = "Blockers"
)

// Description is a ticket description split into the sections that
// refinement works with.
type Description struct {
	// Problem is everything outside the acceptance criteria and
	// blockers sections, trimmed. Other headings the author used
	// ("## Notes") stay here verbatim.
	Problem string

	// Criteria are the acceptance criteria, one per list item (or per
	// line when the section is plain paragraphs). Task checkboxes are
	// stripped.
	Criteria []string

	// Blockers are the ticket keys named in the blockers section.
	Blockers []string

	// BlockersReviewed is true when a blockers section exists at all.
	// "## Blockers" followed by "- None" is a review that found nothing.
	BlockersReviewed bool
}

type sectionKind int

const (
	sectionNone sectionKind = iota
	sectionCriteria
	sectionBlockers
)

var (
	descriptionParser     goldmark.Markdown
	descriptionParserOnce sync.Once
)

func getDescriptionParser() goldmark.Markdown {
	descriptionParserOnce.Do(func() {
		descriptionParser = goldmark.New()
	})
	return descriptionParser
}

var checkboxPrefix = regexp.MustCompile(`^\[[ xX]\]\s*`)

var excessBlankLines = regexp.MustCompile(`\n{3,}`)

// ParseDescription splits markdown into its problem statement,
// acceptance criteria and blockers. Section headings match at any
// level, case-insensitively, with or without a trailing colon. A
// section runs until the next heading of the same or a higher level.
func ParseDescription(markdown string) Description {
	var description Description
	if strings.TrimSpace(markdown) == "" {
		return description
	}

	source := []byte(markdown)
	document := getDescriptionParser().Parser().Parse(text.NewReader(source))

	type cut struct{ start, end int }
	var cuts []cut

	var (
		current      sectionKind
		currentLevel int
		currentStart int
	)
	closeSection := func(end int) {
		if current != sectionNone {
			cuts = append(cuts, cut{start: currentStart, end: end})
		}
		current = sectionNone
	}

	for node := document.FirstChild(); node != nil; node = node.NextSibling() {
		if heading, ok := node.(*ast.Heading); ok {
			start, ok := lineStart(source, heading)
			if !ok {
				continue
			}
			if current != sectionNone && heading.Level <= currentLevel {
				closeSection(start)
			}
			if kind := classifyHeading(plainText(heading, source)); kind != sectionNone {
				closeSection(start)
				current = kind
				currentLevel = heading.Level
				currentStart = start
				if kind == sectionBlockers {
					description.BlockersReviewed = true
				}
			}
			continue
		}

		switch current {
		case sectionCriteria:
			description.Criteria = append(description.Criteria, sectionEntries(node, source)...)
		case sectionBlockers:
			for _, entry := range sectionEntries(node, source) {
				if isNoneEntry(entry) {
					continue
				}
				for _, key := range FindKeys(entry) {
					if !slices.Contains(description.Blockers, key) {
						description.Blockers = append(description.Blockers, key)
					}
				}
			}
		}
	}
	closeSection(len(source))

	var problem strings.Builder
	position := 0
	for _, c := range cuts {
		problem.Write(source[position:c.start])
		position = c.end
	}
	problem.Write(source[position:])
	description.Problem = strings.TrimSpace(excessBlankLines.ReplaceAllString(problem.String(), "\n\n"))

	return description
}

// Markdown renders the description back to markdown: the problem
// statement, then an acceptance criteria section when there are
// criteria, then a blockers section when blockers were reviewed.
func (d Description) Markdown() string {
	var parts []string
	if d.Problem != "" {
		parts = append(parts, d.Problem)
	}
	if len(d.Criteria) > 0 {
		var section strings.Builder
		section.WriteString("## " + criteriaHeading + "\n")
		for _, criterion := range d.Criteria {
			section.WriteString("\n- " + criterion)
		}
		parts = append(parts, section.String())
	}
	if d.BlockersReviewed || len(d.Blockers) > 0 {
		var section strings.Builder
		section.WriteString("## " + blockersHeading + "\n")
		if len(d.Blockers) == 0 {
			section.WriteString("\n- None")
		}
		for _, key := range d.Blockers {
			section.WriteString("\n- " + key)
		}
		parts = append(parts, section.String())
	}
	return strings.Join(parts, "\n\n")
}

// WithCriterion returns markdown with criterion appended to its
// acceptance criteria section, creating the section if needed.
func WithCriterion(markdown, criterion string) string {
	description := ParseDescription(markdown)
	description.Criteria = append(description.Criteria, strings.TrimSpace(criterion))
	return description.Markdown()
}

// WithBlockers returns markdown whose blockers section lists exactly
// keys. An empty keys records an explicit "None".
func WithBlockers(markdown string, keys []string) string {
	description := ParseDescription(markdown)
	description.Blockers = append([]string(nil), keys...)
	description.BlockersReviewed = true
	return description.Markdown()
}

// WithProblem returns markdown with its problem statement replaced and
// the criteria and blockers sections kept.
func WithProblem(markdown, problem string) string {
	description := ParseDescription(markdown)
	description.Problem = strings.TrimSpace(problem)
	return description.Markdown()
}

func classifyHeading(heading string) sectionKind {
	normalized := strings.ToLower(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(heading), ":")))
	switch normalized {
	case "acceptance criteria", "acceptance criterion":
		return sectionCriteria
	case "blockers", "blocked by":
		return sectionBlockers
	}
	return sectionNone
}

// sectionEntries flattens a block inside a section into entries: one
// per list item, or one per non-empty line of a paragraph.
func sectionEntries(node ast.Node, source []byte) []string {
	var entries []string
	switch node := node.(type) {
	case *ast.List:
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			entry := checkboxPrefix.ReplaceAllString(plainText(item, source), "")
			if entry != "" {
				entries = append(entries, entry)
			}
		}
	case *ast.Paragraph:
		lines := node.Lines()
		for index := 0; index < lines.Len(); index++ {
			segment := lines.At(index)
			entry := strings.TrimSpace(string(segment.Value(source)))
			if entry != "" {
				entries = append(entries, entry)
			}
		}
	}
	return entries
}

func isNoneEntry(entry string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(entry), ".!"))
	switch normalized {
	case "none", "n/a", "na", "nothing", "no blockers", "none known", "-":
		return true
	}
	return false
}

// lineStart returns the byte offset of the start of the line holding
// the heading's text. Empty headings carry no position.
func lineStart(source []byte, heading *ast.Heading) (int, bool) {
	lines := heading.Lines()
	if lines.Len() == 0 {
		return 0, false
	}
	offset := lines.At(0).Start
	for offset > 0 && source[offset-1] != '\n' {
		offset--
	}
	return offset, true
}

// plainText returns the text content of node with inline markup
// removed and whitespace collapsed.
func plainText(node ast.Node, source []byte) string {
	var builder strings.Builder
	_ = ast.Walk(node, func(current ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if current != node && current.Type() == ast.TypeBlock {
				builder.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch current := current.(type) {
		case *ast.Text:
			builder.Write(current.Segment.Value(source))
			if current.SoftLineBreak() || current.HardLineBreak() {
				builder.WriteByte(' ')
			}
		case *ast.String:
			builder.Write(current.Value)
		case *ast.AutoLink:
			builder.Write(current.URL(source))
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return strings.Join(strings.Fields(builder.String()), " ")
}
