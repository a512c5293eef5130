// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// ADFNode is one node of an Atlassian Document Format tree. Jira v3
// uses ADF for descriptions and comment bodies.
type ADFNode struct {
	Type    string         `json:"type"`
	Version int            `json:"version,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []*ADFNode     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []ADFMark      `json:"marks,omitempty"`
}

// ADFMark is an inline formatting mark on a text node.
type ADFMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

var (
	adfParser     goldmark.Markdown
	adfParserOnce sync.Once
)

func getADFParser() goldmark.Markdown {
	adfParserOnce.Do(func() {
		adfParser = goldmark.New(
			goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		)
	})
	return adfParser
}

// MarkdownToADF converts markdown to an ADF document. Paragraphs,
// headings, lists, code blocks, block quotes, rules, links, emphasis,
// strikethrough and code spans map to their ADF equivalents. Bare URLs
// become links. Empty input yields an empty document.
func MarkdownToADF(markdown string) *ADFNode {
	document := &ADFNode{Type: "doc", Version: 1, Content: []*ADFNode{}}
	if strings.TrimSpace(markdown) == "" {
		return document
	}
	source := []byte(markdown)
	root := getADFParser().Parser().Parse(text.NewReader(source))
	converter := &adfConverter{source: source}
	document.Content = converter.blocks(root)
	return document
}

type adfConverter struct {
	source []byte
}

func (converter *adfConverter) blocks(parent ast.Node) []*ADFNode {
	nodes := []*ADFNode{}
	for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
		if node := converter.block(child); node != nil {
			nodes = append(nodes, node)
		}
	}
	return nodes
}

func (converter *adfConverter) block(node ast.Node) *ADFNode {
	switch node := node.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		content := converter.inlines(node, nil)
		if len(content) == 0 {
			return nil
		}
		return &ADFNode{Type: "paragraph", Content: content}

	case *ast.Heading:
		return &ADFNode{
			Type:    "heading",
			Attrs:   map[string]any{"level": node.Level},
			Content: converter.inlines(node, nil),
		}

	case *ast.List:
		list := &ADFNode{Type: "bulletList"}
		if node.IsOrdered() {
			list.Type = "orderedList"
			if node.Start > 1 {
				list.Attrs = map[string]any{"order": node.Start}
			}
		}
		for item := node.FirstChild(); item != nil; item = item.NextSibling() {
			content := converter.blocks(item)
			if len(content) == 0 {
				content = []*ADFNode{{Type: "paragraph", Content: []*ADFNode{}}}
			}
			list.Content = append(list.Content, &ADFNode{Type: "listItem", Content: content})
		}
		return list

	case *ast.FencedCodeBlock:
		code := &ADFNode{Type: "codeBlock", Content: converter.codeText(node)}
		if language := string(node.Language(converter.source)); language != "" {
			code.Attrs = map[string]any{"language": language}
		}
		return code

	case *ast.CodeBlock:
		return &ADFNode{Type: "codeBlock", Content: converter.codeText(node)}

	case *ast.Blockquote:
		return &ADFNode{Type: "blockquote", Content: converter.blocks(node)}

	case *ast.ThematicBreak:
		return &ADFNode{Type: "rule"}

	case *ast.HTMLBlock:
		var builder strings.Builder
		lines := node.Lines()
		for index := 0; index < lines.Len(); index++ {
			segment := lines.At(index)
			builder.Write(segment.Value(converter.source))
		}
		raw := strings.TrimSpace(builder.String())
		if raw == "" {
			return nil
		}
		return &ADFNode{Type: "paragraph", Content: []*ADFNode{{Type: "text", Text: raw}}}
	}

	// Unknown containers: flatten their children into the parent.
	if node.HasChildren() {
		children := converter.blocks(node)
		if len(children) == 1 {
			return children[0]
		}
		if len(children) > 1 {
			return &ADFNode{Type: "paragraph", Content: converter.inlines(node, nil)}
		}
	}
	return nil
}

func (converter *adfConverter) codeText(node ast.Node) []*ADFNode {
	var builder strings.Builder
	lines := node.Lines()
	for index := 0; index < lines.Len(); index++ {
		segment := lines.At(index)
		builder.Write(segment.Value(converter.source))
	}
	code := strings.TrimRight(builder.String(), "\n")
	if code == "" {
		return nil
	}
	return []*ADFNode{{Type: "text", Text: code}}
}

// inlines converts the inline children of node, applying marks.
func (converter *adfConverter) inlines(node ast.Node, marks []ADFMark) []*ADFNode {
	content := []*ADFNode{}
	appendText := func(value string, marks []ADFMark) {
		if value == "" {
			return
		}
		// Merge with the previous node when the marks agree, so one
		// run of text does not split at every source segment.
		if last := len(content) - 1; last >= 0 && content[last].Type == "text" && sameMarks(content[last].Marks, marks) {
			content[last].Text += value
			return
		}
		content = append(content, &ADFNode{Type: "text", Text: value, Marks: cloneMarks(marks)})
	}

	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch child := child.(type) {
		case *ast.Text:
			appendText(string(child.Segment.Value(converter.source)), marks)
			switch {
			case child.HardLineBreak():
				content = append(content, &ADFNode{Type: "hardBreak"})
			case child.SoftLineBreak():
				appendText(" ", marks)
			}

		case *ast.String:
			appendText(string(child.Value), marks)

		case *ast.CodeSpan:
			var builder strings.Builder
			for part := child.FirstChild(); part != nil; part = part.NextSibling() {
				if segment, ok := part.(*ast.Text); ok {
					builder.Write(segment.Segment.Value(converter.source))
				}
			}
			appendText(builder.String(), append(cloneMarks(marks), ADFMark{Type: "code"}))

		case *ast.Emphasis:
			markType := "em"
			if child.Level >= 2 {
				markType = "strong"
			}
			for _, nested := range converter.inlines(child, append(cloneMarks(marks), ADFMark{Type: markType})) {
				appendNode(&content, nested)
			}

		case *extast.Strikethrough:
			for _, nested := range converter.inlines(child, append(cloneMarks(marks), ADFMark{Type: "strike"})) {
				appendNode(&content, nested)
			}

		case *ast.Link:
			link := ADFMark{Type: "link", Attrs: map[string]any{"href": string(child.Destination)}}
			for _, nested := range converter.inlines(child, append(cloneMarks(marks), link)) {
				appendNode(&content, nested)
			}

		case *ast.AutoLink:
			url := string(child.URL(converter.source))
			href := url
			switch {
			case child.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(href, "mailto:"):
				href = "mailto:" + href
			case child.AutoLinkType == ast.AutoLinkURL && !strings.Contains(href, "://"):
				href = "http://" + href
			}
			link := ADFMark{Type: "link", Attrs: map[string]any{"href": href}}
			appendText(url, append(cloneMarks(marks), link))

		case *ast.Image:
			link := ADFMark{Type: "link", Attrs: map[string]any{"href": string(child.Destination)}}
			alt := plainInlineText(child, converter.source)
			if alt == "" {
				alt = string(child.Destination)
			}
			appendText(alt, append(cloneMarks(marks), link))

		case *ast.RawHTML:
			var builder strings.Builder
			for index := 0; index < child.Segments.Len(); index++ {
				segment := child.Segments.At(index)
				builder.Write(segment.Value(converter.source))
			}
			appendText(builder.String(), marks)

		default:
			for _, nested := range converter.inlines(child, marks) {
				appendNode(&content, nested)
			}
		}
	}
	return content
}

func appendNode(content *[]*ADFNode, node *ADFNode) {
	nodes := *content
	if last := len(nodes) - 1; last >= 0 && node.Type == "text" && nodes[last].Type == "text" && sameMarks(nodes[last].Marks, node.Marks) {
		nodes[last].Text += node.Text
		return
	}
	*content = append(nodes, node)
}

func plainInlineText(node ast.Node, source []byte) string {
	var builder strings.Builder
	_ = ast.Walk(node, func(current ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if textNode, ok := current.(*ast.Text); ok {
				builder.Write(textNode.Segment.Value(source))
			}
		}
		return ast.WalkContinue, nil
	})
	return builder.String()
}

func cloneMarks(marks []ADFMark) []ADFMark {
	if len(marks) == 0 {
		return nil
	}
	return append([]ADFMark(nil), marks...)
}

func sameMarks(a, b []ADFMark) bool {
	if len(a) != len(b) {
		return false
	}
	for index := range a {
		if a[index].Type != b[index].Type || fmt.Sprint(a[index].Attrs) != fmt.Sprint(b[index].Attrs) {
			return false
		}
	}
	return true
}

// ADFToMarkdown renders an ADF document as markdown. Links, inline
// cards (ticket references) and mentions survive as markdown links and
// @names; node types with no markdown form contribute their text.
func ADFToMarkdown(document *ADFNode) string {
	if document == nil {
		return ""
	}
	renderer := &markdownWriter{}
	blocks := renderer.blocks(document.Content, "")
	return strings.TrimSpace(strings.Join(blocks, "\n\n"))
}

type markdownWriter struct{}

// blocks renders block nodes, each prefixed line-by-line with indent.
func (writer *markdownWriter) blocks(nodes []*ADFNode, indent string) []string {
	var rendered []string
	for _, node := range nodes {
		if block := writer.block(node, indent); block != "" {
			rendered = append(rendered, block)
		}
	}
	return rendered
}

func (writer *markdownWriter) block(node *ADFNode, indent string) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case "paragraph":
		return indentLines(writer.inlines(node.Content), indent)

	case "heading":
		level := intAttr(node.Attrs, "level", 1)
		if level < 1 || level > 6 {
			level = 1
		}
		return indent + strings.Repeat("#", level) + " " + writer.inlines(node.Content)

	case "bulletList", "orderedList":
		order := intAttr(node.Attrs, "order", 1)
		var items []string
		for index, item := range node.Content {
			marker := "- "
			if node.Type == "orderedList" {
				marker = strconv.Itoa(order+index) + ". "
			}
			items = append(items, writer.listItem(item, indent, marker))
		}
		return strings.Join(items, "\n")

	case "codeBlock":
		language, _ := node.Attrs["language"].(string)
		code := writer.plain(node.Content)
		return indentLines("```"+language+"\n"+code+"\n```", indent)

	case "blockquote":
		inner := strings.Join(writer.blocks(node.Content, ""), "\n\n")
		lines := strings.Split(inner, "\n")
		for index, line := range lines {
			lines[index] = strings.TrimRight("> "+line, " ")
		}
		return indentLines(strings.Join(lines, "\n"), indent)

	case "rule":
		return indent + "---"

	case "table":
		return indentLines(writer.table(node), indent)

	case "mediaSingle", "mediaGroup", "media":
		return ""
	}

	// panel, expand, layoutSection and other containers: render what
	// they hold.
	if len(node.Content) > 0 {
		if isInline(node.Content[0]) {
			return indentLines(writer.inlines(node.Content), indent)
		}
		return strings.Join(writer.blocks(node.Content, indent), "\n\n")
	}
	return ""
}

func (writer *markdownWriter) listItem(item *ADFNode, indent, marker string) string {
	continuation := indent + strings.Repeat(" ", len(marker))
	var parts []string
	for index, child := range item.Content {
		childIndent := continuation
		if index == 0 {
			childIndent = ""
		}
		if rendered := writer.block(child, childIndent); rendered != "" {
			parts = append(parts, rendered)
		}
	}
	if len(parts) == 0 {
		return indent + strings.TrimRight(marker, " ")
	}
	// Later lines of the first block continue under the marker.
	parts[0] = strings.ReplaceAll(parts[0], "\n", "\n"+continuation)
	return indent + marker + strings.Join(parts, "\n")
}

func (writer *markdownWriter) table(node *ADFNode) string {
	var rows []string
	for rowIndex, row := range node.Content {
		var cells []string
		for _, cell := range row.Content {
			cellText := strings.Join(writer.blocks(cell.Content, ""), " ")
			cells = append(cells, strings.ReplaceAll(strings.ReplaceAll(cellText, "\n", " "), "|", `\|`))
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
		if rowIndex == 0 {
			separators := make([]string, len(cells))
			for index := range separators {
				separators[index] = "---"
			}
			rows = append(rows, "| "+strings.Join(separators, " | ")+" |")
		}
	}
	return strings.Join(rows, "\n")
}

func (writer *markdownWriter) inlines(nodes []*ADFNode) string {
	var builder strings.Builder
	for _, node := range nodes {
		builder.WriteString(writer.inline(node))
	}
	return builder.String()
}

func (writer *markdownWriter) inline(node *ADFNode) string {
	if node == nil {
		return ""
	}
	switch node.Type {
	case "text":
		return applyMarks(node.Text, node.Marks)
	case "hardBreak":
		return "\n"
	case "inlineCard", "blockCard":
		url, _ := node.Attrs["url"].(string)
		if url == "" {
			return ""
		}
		if _, key, found := strings.Cut(url, "/browse/"); found {
			key, _, _ = strings.Cut(key, "?")
			return fmt.Sprintf("[%s](%s)", key, url)
		}
		return fmt.Sprintf("<%s>", url)
	case "mention":
		if name, _ := node.Attrs["text"].(string); name != "" {
			return "@" + strings.TrimPrefix(name, "@")
		}
		if id, _ := node.Attrs["id"].(string); id != "" {
			return "@" + id
		}
		return ""
	case "emoji":
		if emoji, _ := node.Attrs["text"].(string); emoji != "" {
			return emoji
		}
		shortName, _ := node.Attrs["shortName"].(string)
		return shortName
	case "status", "date", "placeholder":
		if value, _ := node.Attrs["text"].(string); value != "" {
			return value
		}
		if timestamp, _ := node.Attrs["timestamp"].(string); timestamp != "" {
			return timestamp
		}
		return ""
	}
	return writer.inlines(node.Content)
}

// plain concatenates text without marks, for code blocks.
func (writer *markdownWriter) plain(nodes []*ADFNode) string {
	var builder strings.Builder
	for _, node := range nodes {
		if node.Type == "hardBreak" {
			builder.WriteByte('\n')
			continue
		}
		builder.WriteString(node.Text)
		builder.WriteString(writer.plain(node.Content))
	}
	return builder.String()
}

func applyMarks(value string, marks []ADFMark) string {
	if value == "" {
		return ""
	}
	var href string
	for _, mark := range marks {
		switch mark.Type {
		case "code":
			value = "`" + value + "`"
		case "strong":
			value = "**" + value + "**"
		case "em":
			value = "*" + value + "*"
		case "strike":
			value = "~~" + value + "~~"
		case "link":
			href, _ = mark.Attrs["href"].(string)
		}
	}
	if href != "" {
		if strings.Trim(value, "`*~") == href {
			return href
		}
		return fmt.Sprintf("[%s](%s)", value, href)
	}
	return value
}

func isInline(node *ADFNode) bool {
	switch node.Type {
	case "text", "hardBreak", "inlineCard", "mention", "emoji", "status", "date", "placeholder":
		return true
	}
	return false
}

func indentLines(value, indent string) string {
	if indent == "" || value == "" {
		return value
	}
	return indent + strings.ReplaceAll(value, "\n", "\n"+indent)
}

// intAttr reads a numeric attribute. JSON numbers decode as float64;
// nodes built in Go carry int.
func intAttr(attrs map[string]any, name string, fallback int) int {
	switch value := attrs[name].(type) {
	case float64:
		return int(value)
	case int:
		return value
	}
	return fallback
}
