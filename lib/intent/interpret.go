// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// Context is what the interpreter knows beyond the utterance itself.
type Context struct {
	// Vocabulary is the status language. The zero value uses
	// DefaultVocabulary.
	Vocabulary Vocabulary
}

// Interpret maps utterance to one Intent. Patterns are tried in a
// fixed order: end session, navigation, rerank, epic link, field
// edits, comments, explicit transitions, then status keywords.
// Anything else is Unrecognized.
func Interpret(utterance string, state Context) Intent {
	vocabulary := state.Vocabulary
	if vocabulary.empty() {
		vocabulary = DefaultVocabulary()
	}

	original := collapse(utterance)
	normalized := normalize(utterance)
	if normalized == "" {
		return Unrecognized{Reason: "empty input"}
	}
	// Values are cut from original at offsets found in normalized, which
	// only line up when lower-casing kept every character's byte width.
	// Otherwise the lower-cased text is used.
	if !lowerKeepsOffsets(original) {
		original = normalized
	}

	if endPhrases[normalized] {
		return EndSession{}
	}
	if movement, ok := navigationPhrases[normalized]; ok {
		return Navigate{Movement: movement}
	}
	if result, ok := interpretRerank(normalized); ok {
		return result
	}
	if result, ok := interpretEpic(normalized); ok {
		return result
	}
	if result, ok := interpretFieldEdit(original, normalized); ok {
		return result
	}
	if result, ok := interpretComment(original, vocabulary); ok {
		return result
	}
	if result, ok := interpretExplicitTransition(original, normalized, vocabulary); ok {
		return result
	}
	return interpretStatusKeyword(normalized, vocabulary)
}

// lowerKeepsOffsets reports whether strings.ToLower(text) has every
// character at the same byte offset as text. Invalid UTF-8 counts as
// not keeping them, since lower-casing rewrites it.
func lowerKeepsOffsets(text string) bool {
	for _, r := range text {
		if r == utf8.RuneError || utf8.RuneLen(r) != utf8.RuneLen(unicode.ToLower(r)) {
			return false
		}
	}
	return true
}

var endPhrases = map[string]bool{
	"end":             true,
	"end session":     true,
	"end the session": true,
	"quit":            true,
	"exit":            true,
	"stop":            true,
	"we're done":      true,
	"we are done":     true,
	"i'm done":        true,
	"im done":         true,
	"that's all":      true,
	"thats all":       true,
	"that's it":       true,
	"done for today":  true,
}

var navigationPhrases = map[string]Movement{
	"next":            Next,
	"next ticket":     Next,
	"next one":        Next,
	"skip":            Skip,
	"skip it":         Skip,
	"skip this":       Skip,
	"skip this one":   Skip,
	"pass":            Skip,
	"previous":        Previous,
	"prev":            Previous,
	"previous ticket": Previous,
	"back":            Previous,
	"go back":         Previous,
	"last one":        Previous,
}

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"a": 1, "an": 1,
}

const countPattern = `(\d+|one|two|three|four|five|six|seven|eight|nine|ten)`

func parseCount(text string) (int, error) {
	if value, ok := numberWords[text]; ok {
		return value, nil
	}
	value, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", text)
	}
	return value, nil
}

var rerankPattern = regexp.MustCompile(
	`^(?:move|rank|bump|push)\s+(?:it\s+|this\s+|this ticket\s+)?(up|down|higher|lower)` +
		`(?:\s+(?:by\s+)?` + countPattern + `)?(?:\s+(?:spots?|places?|positions?|slots?))?$`)

func interpretRerank(normalized string) (Intent, bool) {
	match := rerankPattern.FindStringSubmatch(normalized)
	if match == nil {
		return nil, false
	}
	direction := Up
	if match[1] == "down" || match[1] == "lower" {
		direction = Down
	}
	count := 1
	if match[2] != "" {
		parsed, err := parseCount(match[2])
		if err != nil {
			return Unrecognized{Reason: err.Error()}, true
		}
		count = parsed
	}
	if count < 1 {
		return Unrecognized{Reason: "rerank count must be at least 1"}, true
	}
	return Rerank{Direction: direction, Count: count}, true
}

const keyPattern = `([a-z][a-z0-9_]*-\d+)`

var epicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?:link|add|attach|put|move)\s+(?:it\s+|this\s+)?(?:to|under|in|into)\s+(?:the\s+)?epic\s+` + keyPattern + `$`),
	regexp.MustCompile(`^(?:set|change)\s+(?:the\s+)?epic\s+(?:to\s+)?` + keyPattern + `$`),
	regexp.MustCompile(`^(?:link\s+)?epic\s*[:=]?\s*` + keyPattern + `$`),
	regexp.MustCompile(`^link\s+(?:it\s+|this\s+)?to\s+` + keyPattern + `$`),
}

func interpretEpic(normalized string) (Intent, bool) {
	for _, pattern := range epicPatterns {
		if match := pattern.FindStringSubmatch(normalized); match != nil {
			key, err := ticket.ParseKey(match[1])
			if err != nil {
				return Unrecognized{Reason: err.Error()}, true
			}
			return LinkEpic{EpicKey: key}, true
		}
	}
	return nil, false
}

// fieldAliases maps spoken field names to edit targets.
var fieldAliases = map[string]EditField{
	"summary":           EditSummary,
	"title":             EditSummary,
	"description":       EditDescription,
	"problem":           EditProblem,
	"problem statement": EditProblem,
	"priority":          EditPriority,
	"story points":      EditStoryPoints,
	"points":            EditStoryPoints,
	"estimate":          EditStoryPoints,
	"labels":            EditLabels,
}

const fieldNamePattern = `(summary|title|description|problem statement|problem|priority|story points|points|estimate|labels)`

// Field edit patterns match against normalized text; values are cut
// from the original text at the same offsets so their case survives.
var (
	setFieldPattern     = regexp.MustCompile(`^(?:update|set|change|edit|replace|make)\s+(?:the\s+)?` + fieldNamePattern + `(?:\s+(?:to|with|as)\s+|\s*[:=]\s*)(.+)$`)
	fieldColonPattern   = regexp.MustCompile(`^` + fieldNamePattern + `\s*[:=]\s*(.+)$`)
	criterionPattern    = regexp.MustCompile(`^(?:add|append)\s+(?:an?\s+|another\s+)?(?:acceptance criterion|acceptance criteria|criterion|ac)(?:\s*:\s*|\s+-\s+|\s+that says\s+|\s+)(.+)$`)
	addLabelPattern     = regexp.MustCompile(`^(?:add\s+(?:the\s+|a\s+)?label|label\s+(?:it|this)(?:\s+as)?|label)\s+(\S+)$`)
	removeLabelPattern  = regexp.MustCompile(`^(?:remove|drop|delete)\s+(?:the\s+)?label\s+(\S+)$`)
	pointsPattern       = regexp.MustCompile(`^(?:(?:it's|its|it is|make it|estimate)\s+)?` + countPattern + `\s+(?:story\s+)?points?$`)
	priorityWordPattern = regexp.MustCompile(`^(?:(?:make it|it's|its|set)\s+)?(highest|high|medium|low|lowest)\s+priority$|^priority\s+(?:is\s+)?(highest|high|medium|low|lowest)$`)
	noBlockersPattern   = regexp.MustCompile(`^(?:no blockers|blockers\s*[:=]?\s*none|not blocked|nothing blocking(?: it)?|no dependencies|there are no blockers)$`)
	blockedByPattern    = regexp.MustCompile(`^(?:blocked by|blockers?\s*[:=]?|depends on|set blockers\s+to)\s+(.+)$`)
)

func interpretFieldEdit(original, normalized string) (Intent, bool) {
	value := func(match []int, group int) string {
		return strings.TrimSpace(original[match[2*group]:match[2*group+1]])
	}

	if noBlockersPattern.MatchString(normalized) {
		return UpdateField{Field: EditBlockers}, true
	}
	if match := blockedByPattern.FindStringSubmatch(normalized); match != nil {
		if normalize(match[1]) == "none" {
			return UpdateField{Field: EditBlockers}, true
		}
		keys := ticket.FindKeys(match[1])
		if len(keys) == 0 {
			return Unrecognized{Reason: "no ticket keys found in blocker list"}, true
		}
		return UpdateField{Field: EditBlockers, Keys: keys}, true
	}

	if match := criterionPattern.FindStringSubmatchIndex(normalized); match != nil {
		return UpdateField{Field: EditCriterion, Value: value(match, 1)}, true
	}
	if match := removeLabelPattern.FindStringSubmatchIndex(normalized); match != nil {
		return UpdateField{Field: EditRemoveLabel, Value: value(match, 1)}, true
	}
	if match := addLabelPattern.FindStringSubmatchIndex(normalized); match != nil {
		return UpdateField{Field: EditAddLabel, Value: value(match, 1)}, true
	}
	if match := pointsPattern.FindStringSubmatch(normalized); match != nil {
		return storyPoints(match[1]), true
	}
	if match := priorityWordPattern.FindStringSubmatch(normalized); match != nil {
		return priority(match[1] + match[2]), true
	}

	for _, pattern := range []*regexp.Regexp{setFieldPattern, fieldColonPattern} {
		match := pattern.FindStringSubmatchIndex(normalized)
		if match == nil {
			continue
		}
		field := fieldAliases[normalized[match[2]:match[3]]]
		fieldValue := value(match, 2)
		if fieldValue == "" {
			return Unrecognized{Reason: fmt.Sprintf("no value given for %s", field)}, true
		}
		switch field {
		case EditPriority:
			return priority(fieldValue), true
		case EditStoryPoints:
			return storyPoints(strings.ToLower(fieldValue)), true
		case EditLabels:
			return UpdateField{Field: EditLabels, Labels: splitLabels(fieldValue)}, true
		default:
			return UpdateField{Field: field, Value: fieldValue}, true
		}
	}
	return nil, false
}

func priority(text string) Intent {
	parsed, err := ticket.ParsePriority(text)
	if err != nil {
		return Unrecognized{Reason: err.Error()}
	}
	return UpdateField{Field: EditPriority, Value: string(parsed)}
}

func storyPoints(text string) Intent {
	text = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSpace(text), " points"), " point")
	points, err := parseCount(text)
	if err != nil || points < 1 {
		return Unrecognized{Reason: fmt.Sprintf("story points must be a positive integer, got %q", text)}
	}
	return UpdateField{Field: EditStoryPoints, Value: strconv.Itoa(points)}
}

func splitLabels(text string) []string {
	labels := []string{}
	for _, part := range strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' }) {
		if part != "" && normalize(part) != "none" {
			labels = append(labels, part)
		}
	}
	return labels
}

var commentPattern = regexp.MustCompile(`(?i)^(?:comment|note|add (?:a )?comment|add (?:a )?note|leave (?:a )?comment)(?:\s*[:,;]\s*|\s+-\s+|\s+saying\s+|\s+that says\s+|\s+)(.+)$`)

// commentLanguage detects comment phrasing left over around a status
// keyword.
var commentLanguage = regexp.MustCompile(`\b(?:comment|comments|note|notes|remark)\b`)

// editLanguage detects content-edit phrasing inside a comment body.
var editLanguage = regexp.MustCompile(`\b(?:update|set|change|edit|replace)\s+(?:the\s+)?` + fieldNamePattern + `\b`)

func interpretComment(original string, vocabulary Vocabulary) (Intent, bool) {
	match := commentPattern.FindStringSubmatch(original)
	if match == nil {
		return nil, false
	}
	body := strings.TrimSpace(match[1])
	if body == "" {
		return Unrecognized{Reason: "comment has no text"}, true
	}
	normalizedBody := normalize(body)
	if found := vocabulary.find(normalizedBody); len(found) > 0 {
		phrase := found[0].phrase(normalizedBody)
		return Unrecognized{Reason: fmt.Sprintf(
			"comment mentions status %q; say \"move to %s\" to change status, or rephrase the comment",
			phrase, found[0].word.Target)}, true
	}
	if editLanguage.MatchString(normalizedBody) {
		return Unrecognized{Reason: "comment reads like a field edit; say the edit on its own to change the field, or rephrase the comment"}, true
	}
	return Comment{Text: body}, true
}

var (
	explicitTransitionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^(?:transition|move)\s+(?:it\s+|this\s+)?to\s+(.+)$`),
		regexp.MustCompile(`^(?:set|change)\s+(?:the\s+)?status\s+to\s+(.+)$`),
		regexp.MustCompile(`^status\s*[:=]\s*(.+)$`),
		regexp.MustCompile(`^mark\s+(?:it\s+|this\s+)?as\s+(.+)$`),
	}
	resolutionSuffix = regexp.MustCompile(`^(.+?)\s+(?:with\s+)?resolution\s+(.+)$`)
)

func interpretExplicitTransition(original, normalized string, vocabulary Vocabulary) (Intent, bool) {
	for _, pattern := range explicitTransitionPatterns {
		match := pattern.FindStringSubmatchIndex(normalized)
		if match == nil {
			continue
		}
		target := strings.TrimSpace(original[match[2]:match[3]])
		resolution := ""
		if parts := resolutionSuffix.FindStringSubmatch(target); parts != nil {
			target, resolution = strings.TrimSpace(parts[1]), strings.TrimSpace(parts[2])
		}
		if word, ok := vocabulary.lookup(normalize(target)); ok {
			if resolution == "" {
				resolution = word.Resolution
			}
			return Transition{Target: word.Target, Resolution: resolution}, true
		}
		return Transition{Target: target, Resolution: resolution}, true
	}
	return nil, false
}

var negationPattern = regexp.MustCompile(`(^|\W)(not|don't|dont|do not|isn't|isnt|is not|aren't|never|no|nope|can't|cannot|shouldn't|hardly)(\W|$)`)

func interpretStatusKeyword(normalized string, vocabulary Vocabulary) Intent {
	found := vocabulary.find(normalized)
	if len(found) == 0 {
		return Unrecognized{Reason: "not a known command"}
	}
	if strings.HasSuffix(strings.TrimSpace(normalized), "?") {
		return Unrecognized{Reason: "that reads as a question; say the status to change it"}
	}

	// Negation is checked with the matched phrases blanked out, so the
	// "won't" of "won't do" does not negate itself.
	masked := []byte(normalized)
	for _, match := range found {
		for index := match.start; index < match.end; index++ {
			masked[index] = ' '
		}
	}
	if negationPattern.Match(masked) {
		return Unrecognized{Reason: "status language is negated; say the status you want"}
	}
	if commentLanguage.Match(masked) {
		return Unrecognized{Reason: "status language mixed with a comment; say the status on its own, or put the comment text after \"comment:\""}
	}
	if editLanguage.Match(masked) {
		return Unrecognized{Reason: "status language mixed with a field edit; say each on its own"}
	}

	first := found[0].word
	for _, match := range found[1:] {
		if match.word.Target != first.Target || match.word.Resolution != first.Resolution {
			return Unrecognized{Reason: fmt.Sprintf("conflicting status language (%s and %s)",
				describeWord(first), describeWord(match.word))}
		}
	}
	return Transition{Target: first.Target, Resolution: first.Resolution}
}

func describeWord(word StatusWord) string {
	if word.Resolution != "" {
		return word.Resolution
	}
	return word.Target
}
