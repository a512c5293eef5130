// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package readiness

import (
	"regexp"
	"slices"
	"strings"
)

// IsOutcome reports whether an acceptance criterion describes an
// observable result rather than a task to perform.
//
// A criterion that does not open with an imperative verb is an outcome
// when it carries a condition marker ("given", "when", "if", ...) or a
// result marker ("then", "should", "is", "returns", ...). One that
// opens with an imperative needs both. So "When a user saves, the
// record is stored" and "The export is valid CSV" pass, while
// "Implement login" and "Add a button that is blue" fail.
func IsOutcome(criterion string) bool {
	words := tokenize(criterion)
	if len(words) == 0 {
		return false
	}
	condition := containsAny(words, conditionMarkers)
	result := containsAny(words, resultMarkers) || containsPhrase(words, resultPhrases)
	if startsImperative(words) {
		return condition && result
	}
	return condition || result
}

var wordPattern = regexp.MustCompile(`[a-z][a-z']*`)

func tokenize(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

var conditionMarkers = []string{
	"given", "when", "whenever", "if", "after", "once", "while", "upon", "before", "unless",
}

var resultMarkers = []string{
	"then", "should", "must", "will", "shall",
	"is", "are", "was", "were", "be", "becomes", "remains",
	"can", "cannot", "can't",
	"returns", "displays", "shows", "sees", "receives", "gets",
	"succeeds", "fails", "works", "appears", "contains", "includes",
	"redirects", "responds", "rejects", "accepts", "completes",
}

var resultPhrases = [][]string{
	{"so", "that"},
	{"results", "in"},
	{"no", "longer"},
}

var imperativeOpeners = []string{
	"add", "implement", "create", "build", "fix", "update", "refactor",
	"write", "make", "remove", "change", "investigate", "research",
	"configure", "migrate", "delete", "rename", "move", "use", "support",
	"integrate", "design", "document",
}

func startsImperative(words []string) bool {
	if slices.Contains(imperativeOpeners, words[0]) {
		return true
	}
	return len(words) > 1 && words[0] == "set" && words[1] == "up"
}

func containsAny(words, markers []string) bool {
	for _, word := range words {
		if slices.Contains(markers, word) {
			return true
		}
	}
	return false
}

func containsPhrase(words []string, phrases [][]string) bool {
	for _, phrase := range phrases {
		for index := 0; index+len(phrase) <= len(words); index++ {
			if slices.Equal(words[index:index+len(phrase)], phrase) {
				return true
			}
		}
	}
	return false
}
