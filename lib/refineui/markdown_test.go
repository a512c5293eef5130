// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/refine/lib/tui"
)

// plain renders markdown without color.
func plain(input string, width int) string {
	return RenderMarkdown(input, PlainStyles(), width)
}

// colored renders markdown with a 256-color profile.
func colored(input string, width int) string {
	renderer := lipgloss.NewRenderer(io.Discard)
	renderer.SetColorProfile(termenv.ANSI256)
	return RenderMarkdown(input, NewStyles(tui.DefaultTheme, renderer), width)
}

func TestRenderMarkdownEmpty(t *testing.T) {
	if result := plain("  \n\n", 80); result != "" {
		t.Errorf("expected empty output for blank input, got %q", result)
	}
}

func TestRenderMarkdownPlainStylesEmitNoEscapes(t *testing.T) {
	result := plain("# Title\n\nSome **bold** and `code` with PROJ-2.", 80)
	if result != ansi.Strip(result) {
		t.Errorf("plain styles produced escape sequences: %q", result)
	}
}

func TestRenderMarkdownParagraphReflow(t *testing.T) {
	input := "Checkout times out\nwhen many shoppers\npay at once."
	result := plain(input, 120)
	if result != "Checkout times out when many shoppers pay at once." {
		t.Errorf("soft breaks should reflow into one line, got:\n%s", result)
	}
}

func TestRenderMarkdownWrapsToWidth(t *testing.T) {
	input := "This paragraph is long enough that it has to wrap at the narrow width used in this test."
	for _, line := range strings.Split(plain(input, 30), "\n") {
		if width := ansi.StringWidth(line); width > 30 {
			t.Errorf("line exceeds width 30: %q (%d)", line, width)
		}
	}
}

func TestRenderMarkdownLists(t *testing.T) {
	input := "- first\n- second\n\n1. one\n2. two"
	result := plain(input, 80)
	for _, want := range []string{"- first", "- second", "1. one", "2. two"} {
		if !strings.Contains(result, want) {
			t.Errorf("missing %q in:\n%s", want, result)
		}
	}
}

func TestRenderMarkdownMarksAcceptanceCriteria(t *testing.T) {
	input := strings.Join([]string{
		"Saved cards are lost between visits.",
		"",
		"## Acceptance Criteria:",
		"",
		"- Add a saved cards table",
		"- When a shopper returns, their saved card is offered at checkout",
		"",
		"## Notes",
		"",
		"- Add a saved cards table",
	}, "\n")
	lines := strings.Split(plain(input, 100), "\n")

	var marked []string
	for _, line := range lines {
		if strings.HasPrefix(line, "✓ ") || strings.HasPrefix(line, "✗ ") {
			marked = append(marked, line)
		}
	}
	want := []string{
		"✗ Add a saved cards table",
		"✓ When a shopper returns, their saved card is offered at checkout",
	}
	if strings.Join(marked, "\n") != strings.Join(want, "\n") {
		t.Errorf("criteria marks:\n%s\nwant:\n%s", strings.Join(marked, "\n"), strings.Join(want, "\n"))
	}
	if !strings.Contains(strings.Join(lines, "\n"), "- Add a saved cards table") {
		t.Error("items outside the criteria section should keep the plain bullet")
	}
}

func TestRenderMarkdownHeadingAndQuote(t *testing.T) {
	result := plain("## Context\n\n> Reported by support", 80)
	if !strings.Contains(result, "Context\n\n") {
		t.Errorf("heading should be followed by a blank line:\n%s", result)
	}
	if !strings.Contains(result, "│ Reported by support") {
		t.Errorf("quote should carry a bar:\n%s", result)
	}
}

func TestRenderMarkdownLinksAndImages(t *testing.T) {
	result := plain("See [the runbook](https://example.com/runbook) and ![graph](graph.png).", 120)
	if !strings.Contains(result, "the runbook (https://example.com/runbook)") {
		t.Errorf("link destination missing:\n%s", result)
	}
	if !strings.Contains(result, "[image: graph.png]") {
		t.Errorf("image placeholder missing:\n%s", result)
	}
}

func TestRenderMarkdownTaskList(t *testing.T) {
	result := plain("- [x] shipped\n- [ ] pending", 80)
	if !strings.Contains(result, "[x] shipped") || !strings.Contains(result, "[ ] pending") {
		t.Errorf("task boxes missing:\n%s", result)
	}
}

func TestRenderMarkdownCodeBlock(t *testing.T) {
	input := "```go\nfunc main() {}\n```"
	if result := plain(input, 80); !strings.Contains(result, "func main() {}") {
		t.Errorf("code block content missing:\n%s", result)
	}
	styled := colored(input, 80)
	if ansi.Strip(styled) == styled {
		t.Error("expected highlighted output with a color profile")
	}
	if !strings.Contains(ansi.Strip(styled), "func main() {}") {
		t.Errorf("highlighted code lost its text:\n%s", ansi.Strip(styled))
	}
}

func TestRenderMarkdownTable(t *testing.T) {
	input := "| Field | Value |\n| --- | --- |\n| priority | High |"
	result := plain(input, 80)
	for _, want := range []string{"Field", "Value", "priority", "High"} {
		if !strings.Contains(result, want) {
			t.Errorf("table missing %q:\n%s", want, result)
		}
	}
}

func TestRenderMarkdownColorsTicketKeys(t *testing.T) {
	result := colored("Blocked until PROJ-2 ships.", 80)
	if ansi.Strip(result) != "Blocked until PROJ-2 ships." {
		t.Errorf("visible text changed: %q", ansi.Strip(result))
	}
	if !strings.Contains(result, "PROJ-2") || result == ansi.Strip(result) {
		t.Errorf("expected the key to be styled: %q", result)
	}
}
