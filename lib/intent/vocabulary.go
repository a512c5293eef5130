// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"regexp"
	"strings"
	"unicode"
)

// StatusWord maps a set of phrases to a transition target.
type StatusWord struct {
	Phrases    []string
	Target     string
	Resolution string
}

// Vocabulary is the status language the interpreter recognizes.
// Matching is case-insensitive on whole words.
type Vocabulary struct {
	Words []StatusWord
}

// DefaultVocabulary covers the Ready / Done / Won't Do language of a
// typical refinement session.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{Words: []StatusWord{
		{
			Target:  "Ready",
			Phrases: []string{"ready", "save it", "mark ready", "mark it ready", "good to go", "looks good", "lgtm"},
		},
		{
			Target:  "Done",
			Phrases: []string{"done", "complete", "completed", "finished"},
		},
		{
			Target:     "Done",
			Resolution: "Won't Do",
			Phrases:    []string{"won't do", "wont do", "won't fix", "wont fix", "reject", "rejected", "obsolete"},
		},
	}}
}

// vocabularyMatch is one phrase found in an utterance.
type vocabularyMatch struct {
	word  StatusWord
	start int
	end   int
}

// find returns every phrase occurrence in normalized text. Longer
// phrases win over shorter ones they overlap ("won't do" over "do").
func (v Vocabulary) find(normalized string) []vocabularyMatch {
	var matches []vocabularyMatch
	for _, word := range v.Words {
		for _, phrase := range word.Phrases {
			pattern := phrasePattern(phrase)
			for _, location := range pattern.FindAllStringIndex(normalized, -1) {
				matches = append(matches, vocabularyMatch{word: word, start: location[0], end: location[1]})
			}
		}
	}

	var kept []vocabularyMatch
	for index, candidate := range matches {
		covered := false
		for other, match := range matches {
			if other == index {
				continue
			}
			longer := match.end-match.start > candidate.end-candidate.start
			if longer && match.start <= candidate.start && candidate.end <= match.end {
				covered = true
				break
			}
		}
		if !covered {
			kept = append(kept, candidate)
		}
	}
	return kept
}

// lookup returns the word whose phrase equals normalized exactly.
func (v Vocabulary) lookup(normalized string) (StatusWord, bool) {
	for _, word := range v.Words {
		for _, phrase := range word.Phrases {
			if normalize(phrase) == normalized {
				return word, true
			}
		}
	}
	return StatusWord{}, false
}

func (v Vocabulary) empty() bool {
	return len(v.Words) == 0
}

// phrase returns the matched status phrase in text without the
// boundary characters the pattern consumed on either side.
func (m vocabularyMatch) phrase(text string) string {
	return strings.TrimFunc(text[m.start:m.end], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func phrasePattern(phrase string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^a-z0-9'])` + regexp.QuoteMeta(normalize(phrase)) + `($|[^a-z0-9'])`)
}

var apostrophes = strings.NewReplacer("’", "'", "‘", "'")

// collapse straightens apostrophes, collapses whitespace and drops
// trailing sentence punctuation.
func collapse(text string) string {
	text = apostrophes.Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	return strings.TrimRight(text, ".! ")
}

// normalize is collapse plus lower-casing; all matching happens on
// normalized text.
func normalize(text string) string {
	return strings.ToLower(collapse(text))
}
