// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/alecthomas/chroma/v2/quick"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/bureau-foundation/refine/lib/readiness"
)

var (
	markdownOnce   sync.Once
	markdownParser goldmark.Markdown
)

func parser() goldmark.Markdown {
	markdownOnce.Do(func() {
		markdownParser = goldmark.New(goldmark.WithExtensions(extension.GFM))
	})
	return markdownParser
}

// wrapBreakpoints are the characters ansi.Wrap may break after besides
// spaces.
const wrapBreakpoints = " ,.;-/|"

// ticketKeyPattern finds tracker keys in rendered text.
var ticketKeyPattern = regexp.MustCompile(`\b[A-Z][A-Z0-9_]*-[0-9]+\b`)

// RenderMarkdown renders a ticket description for the terminal,
// wrapped to width. Soft line breaks reflow. Items under the acceptance
// criteria heading are marked by whether they read as an observable
// outcome. Colors come from styles; a renderer with the Ascii profile
// yields plain text.
func RenderMarkdown(input string, styles Styles, width int) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}
	source := []byte(input)
	document := parser().Parser().Parse(text.NewReader(source))

	writer := &markdownWriter{source: source, styles: styles, width: max(width, 20)}
	ast.Walk(document, writer.walk)
	return strings.TrimRight(writer.output.String(), "\n")
}

// markdownWriter walks the AST directly: inline content accumulates in
// a buffer and is wrapped as a unit when its block closes.
type markdownWriter struct {
	source []byte
	styles Styles
	width  int

	output strings.Builder
	inline strings.Builder

	// indent is the continuation prefix of the enclosing list items and
	// quotes; bullet replaces it for the first line of an item.
	indent string
	bullet string

	bold, italic, strike int

	lists []*listLevel

	// section is the heading the walker is under, lower-cased.
	section string
}

type listLevel struct {
	ordered bool
	next    int
	tight   bool
}

func (writer *markdownWriter) style() lipgloss.Style {
	style := writer.styles.Text
	if writer.bold > 0 {
		style = style.Bold(true)
	}
	if writer.italic > 0 {
		style = style.Italic(true)
	}
	if writer.strike > 0 {
		style = style.Strikethrough(true)
	}
	return style
}

// blank ends the current line and leaves one empty line after it,
// without stacking empty lines.
func (writer *markdownWriter) blank() {
	current := writer.output.String()
	if current == "" || strings.HasSuffix(current, "\n\n") {
		return
	}
	if strings.HasSuffix(current, "\n") {
		writer.output.WriteString("\n")
		return
	}
	writer.output.WriteString("\n\n")
}

func (writer *markdownWriter) inTightList() bool {
	return len(writer.lists) > 0 && writer.lists[len(writer.lists)-1].tight
}

// emit writes block content line by line with the current prefixes.
func (writer *markdownWriter) emit(content string) {
	for index, line := range strings.Split(content, "\n") {
		prefix := writer.indent
		if index == 0 && writer.bullet != "" {
			prefix, writer.bullet = writer.bullet, ""
		}
		writer.output.WriteString(prefix + line + "\n")
	}
}

func (writer *markdownWriter) flush() {
	content := writer.inline.String()
	writer.inline.Reset()
	if strings.TrimSpace(ansi.Strip(content)) == "" {
		return
	}
	available := max(writer.width-ansi.StringWidth(writer.indent), 10)
	writer.emit(ansi.Wrap(content, available, wrapBreakpoints))
}

func (writer *markdownWriter) walk(node ast.Node, entering bool) (ast.WalkStatus, error) {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		if !entering {
			writer.flush()
			if !writer.inTightList() {
				writer.blank()
			}
		}

	case *ast.Heading:
		if entering {
			writer.section = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(writer.plainText(node)), ":"))
			return ast.WalkContinue, nil
		}
		content := ansi.Strip(writer.inline.String())
		writer.inline.Reset()
		writer.blank()
		writer.emit(writer.styles.Heading.Render(content))
		writer.blank()

	case *ast.List:
		if entering {
			writer.lists = append(writer.lists, &listLevel{ordered: node.IsOrdered(), next: node.Start, tight: node.IsTight})
		} else {
			writer.lists = writer.lists[:len(writer.lists)-1]
			if !writer.inTightList() {
				writer.blank()
			}
		}

	case *ast.ListItem:
		writer.listItem(node, entering)

	case *ast.Blockquote:
		if entering {
			writer.indent += writer.styles.Border.Render("│") + " "
		} else {
			writer.indent = strings.TrimSuffix(writer.indent, writer.styles.Border.Render("│")+" ")
			writer.blank()
		}

	case *ast.FencedCodeBlock:
		if entering {
			writer.codeBlock(string(node.Language(writer.source)), node.Lines())
			return ast.WalkSkipChildren, nil
		}

	case *ast.CodeBlock:
		if entering {
			writer.codeBlock("", node.Lines())
			return ast.WalkSkipChildren, nil
		}

	case *ast.ThematicBreak:
		if entering {
			writer.blank()
			writer.emit(writer.styles.Border.Render(strings.Repeat("─", max(writer.width-ansi.StringWidth(writer.indent), 10))))
			writer.blank()
		}

	case *ast.HTMLBlock:
		if entering {
			return ast.WalkSkipChildren, nil
		}

	case *ast.Text:
		if entering {
			writer.text(string(node.Segment.Value(writer.source)))
			if node.SoftLineBreak() {
				writer.inline.WriteString(" ")
			}
			if node.HardLineBreak() {
				writer.inline.WriteString("\n")
			}
		}

	case *ast.String:
		if entering {
			writer.text(string(node.Value))
		}

	case *ast.Emphasis:
		counter := &writer.italic
		if node.Level >= 2 {
			counter = &writer.bold
		}
		if entering {
			*counter++
		} else {
			*counter--
		}

	case *extast.Strikethrough:
		if entering {
			writer.strike++
		} else {
			writer.strike--
		}

	case *ast.CodeSpan:
		if entering {
			writer.inline.WriteString(writer.styles.Code.Render(writer.plainText(node)))
			return ast.WalkSkipChildren, nil
		}

	case *ast.Link:
		if !entering {
			if destination := string(node.Destination); destination != "" {
				writer.inline.WriteString(" " + writer.styles.Faint.Render("("+destination+")"))
			}
		}

	case *ast.AutoLink:
		if entering {
			writer.inline.WriteString(writer.styles.Faint.Render(string(node.URL(writer.source))))
		}

	case *ast.Image:
		if entering {
			writer.inline.WriteString(writer.styles.Faint.Render("[image: " + string(node.Destination) + "]"))
			return ast.WalkSkipChildren, nil
		}

	case *extast.TaskCheckBox:
		if entering {
			if node.IsChecked {
				writer.inline.WriteString(writer.styles.Pass.Render("[x]") + " ")
			} else {
				writer.inline.WriteString(writer.style().Render("[ ]") + " ")
			}
		}

	case *extast.Table:
		if entering {
			writer.table(node)
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

// text styles a run of plain text, coloring ticket keys.
func (writer *markdownWriter) text(value string) {
	style := writer.style()
	last := 0
	for _, match := range ticketKeyPattern.FindAllStringIndex(value, -1) {
		writer.inline.WriteString(style.Render(value[last:match[0]]))
		writer.inline.WriteString(writer.styles.Key.Render(value[match[0]:match[1]]))
		last = match[1]
	}
	if last < len(value) {
		writer.inline.WriteString(style.Render(value[last:]))
	}
}

func (writer *markdownWriter) listItem(item *ast.ListItem, entering bool) {
	level := writer.lists[len(writer.lists)-1]
	if !entering {
		writer.indent = writer.indent[:len(writer.indent)-len(writer.itemIndent(level))]
		if !level.tight {
			writer.blank()
		}
		return
	}

	marker := "- "
	if level.ordered {
		marker = fmt.Sprintf("%d. ", level.next)
		level.next++
	} else if isCriteriaSection(writer.section) && len(writer.lists) == 1 {
		marker = writer.criterionMarker(item) + " "
	}
	writer.bullet = writer.indent + marker
	writer.indent += writer.itemIndent(level)
}

func isCriteriaSection(section string) bool {
	return section == "acceptance criteria" || section == "acceptance criterion"
}

func (writer *markdownWriter) itemIndent(level *listLevel) string {
	if level.ordered {
		return "   "
	}
	return "  "
}

// criterionMarker marks a criterion ✓ when it describes an outcome and
// ✗ when it reads as a task.
func (writer *markdownWriter) criterionMarker(item *ast.ListItem) string {
	if readiness.IsOutcome(writer.plainText(item)) {
		return writer.styles.Pass.Render("✓")
	}
	return writer.styles.Fail.Render("✗")
}

func (writer *markdownWriter) codeBlock(language string, lines *text.Segments) {
	var buffer strings.Builder
	for index := range lines.Len() {
		segment := lines.At(index)
		buffer.Write(segment.Value(writer.source))
	}
	code := strings.TrimRight(buffer.String(), "\n")
	highlighted := writer.styles.Code.Render(code)
	if language != "" && writer.styles.Color {
		var colored strings.Builder
		if err := quick.Highlight(&colored, code, language, "terminal256", "monokai"); err == nil {
			highlighted = strings.TrimRight(colored.String(), "\n")
		}
	}
	writer.blank()
	for _, line := range strings.Split(highlighted, "\n") {
		writer.output.WriteString(writer.indent + "  " + line + "\n")
	}
	writer.blank()
}

// table renders a GFM table with columns padded to their widest cell.
func (writer *markdownWriter) table(table *extast.Table) {
	var rows [][]string
	for row := table.FirstChild(); row != nil; row = row.NextSibling() {
		var cells []string
		for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
			cells = append(cells, strings.TrimSpace(writer.plainText(cell)))
		}
		rows = append(rows, cells)
	}
	if len(rows) == 0 {
		return
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for index, cell := range row {
			if index < len(widths) {
				widths[index] = max(widths[index], ansi.StringWidth(cell))
			}
		}
	}

	writer.blank()
	for rowIndex, row := range rows {
		parts := make([]string, len(widths))
		for index := range widths {
			var cell string
			if index < len(row) {
				cell = row[index]
			}
			parts[index] = cell + strings.Repeat(" ", widths[index]-ansi.StringWidth(cell))
		}
		line := strings.TrimRight(strings.Join(parts, "  "), " ")
		if rowIndex == 0 {
			writer.emit(writer.styles.Heading.Render(line))
			rule := make([]string, len(widths))
			for index, width := range widths {
				rule[index] = strings.Repeat("─", width)
			}
			writer.emit(writer.styles.Border.Render(strings.Join(rule, "  ")))
			continue
		}
		writer.emit(writer.styles.Text.Render(line))
	}
	writer.blank()
}

// plainText concatenates the text under node without styling.
func (writer *markdownWriter) plainText(node ast.Node) string {
	var builder strings.Builder
	_ = ast.Walk(node, func(child ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch child := child.(type) {
		case *ast.Text:
			builder.Write(child.Segment.Value(writer.source))
			if child.SoftLineBreak() {
				builder.WriteString(" ")
			}
		case *ast.String:
			builder.Write(child.Value)
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}

// checklistMark is the glyph for one readiness result.
func checklistMark(styles Styles, result readiness.Result) string {
	if result.Satisfied {
		return styles.Pass.Render("✓")
	}
	return styles.Fail.Render("✗")
}

// keyed colors every ticket key in a plain string.
func keyed(styles Styles, value string) string {
	return ticketKeyPattern.ReplaceAllStringFunc(value, func(key string) string {
		return styles.Key.Render(key)
	})
}
