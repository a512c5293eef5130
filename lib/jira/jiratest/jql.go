// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// query is a parsed JQL query. The emulator understands the subset
// refinement tooling uses: clauses joined by AND over project,
// issuetype, status, labels, key and summary, and one ORDER BY field.
type query struct {
	clauses    []clause
	orderBy    string
	descending bool
}

type clause struct {
	field    string
	operator string
	values   []string
}

// jqlToken is a word, a quoted string, or an operator/punctuation.
type jqlToken struct {
	text   string
	quoted bool
}

func tokenizeJQL(input string) ([]jqlToken, error) {
	var tokens []jqlToken
	runes := []rune(input)
	for index := 0; index < len(runes); {
		character := runes[index]
		switch {
		case unicode.IsSpace(character):
			index++
		case character == '"' || character == '\'':
			var builder strings.Builder
			closed := false
			index++
			for index < len(runes) {
				if runes[index] == '\\' && index+1 < len(runes) {
					builder.WriteRune(runes[index+1])
					index += 2
					continue
				}
				if runes[index] == character {
					closed = true
					index++
					break
				}
				builder.WriteRune(runes[index])
				index++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, jqlToken{text: builder.String(), quoted: true})
		case character == '(' || character == ')' || character == ',' || character == '=' || character == '~':
			tokens = append(tokens, jqlToken{text: string(character)})
			index++
		case character == '!':
			if index+1 < len(runes) && (runes[index+1] == '=' || runes[index+1] == '~') {
				tokens = append(tokens, jqlToken{text: string(runes[index : index+2])})
				index += 2
				continue
			}
			return nil, fmt.Errorf("unexpected '!'")
		default:
			start := index
			for index < len(runes) && !unicode.IsSpace(runes[index]) && !strings.ContainsRune(`()",'=~!`, runes[index]) {
				index++
			}
			tokens = append(tokens, jqlToken{text: string(runes[start:index])})
		}
	}
	return tokens, nil
}

var supportedFields = []string{"project", "issuetype", "type", "status", "labels", "key", "summary"}

// parseJQL parses input into a query.
func parseJQL(input string) (*query, error) {
	tokens, err := tokenizeJQL(input)
	if err != nil {
		return nil, err
	}
	parsed := &query{}
	position := 0
	peek := func() (jqlToken, bool) {
		if position < len(tokens) {
			return tokens[position], true
		}
		return jqlToken{}, false
	}
	isKeyword := func(token jqlToken, keyword string) bool {
		return !token.quoted && strings.EqualFold(token.text, keyword)
	}

	for {
		token, ok := peek()
		if !ok {
			break
		}
		if isKeyword(token, "order") {
			position++
			if next, ok := peek(); !ok || !isKeyword(next, "by") {
				return nil, fmt.Errorf("expected BY after ORDER")
			}
			position++
			field, ok := peek()
			if !ok {
				return nil, fmt.Errorf("expected a field after ORDER BY")
			}
			parsed.orderBy = strings.ToLower(field.text)
			position++
			if direction, ok := peek(); ok {
				switch {
				case isKeyword(direction, "asc"):
					position++
				case isKeyword(direction, "desc"):
					parsed.descending = true
					position++
				}
			}
			if _, ok := peek(); ok {
				return nil, fmt.Errorf("unexpected input after ORDER BY")
			}
			break
		}

		if len(parsed.clauses) > 0 {
			if !isKeyword(token, "and") {
				return nil, fmt.Errorf("unsupported JQL operator %q (only AND is supported)", token.text)
			}
			position++
			if token, ok = peek(); !ok {
				return nil, fmt.Errorf("expected a clause after AND")
			}
		}

		field := strings.ToLower(token.text)
		if !slices.Contains(supportedFields, field) {
			return nil, fmt.Errorf("field %q is not supported", token.text)
		}
		position++

		operatorToken, ok := peek()
		if !ok {
			return nil, fmt.Errorf("expected an operator after %s", field)
		}
		position++
		operator := strings.ToLower(operatorToken.text)
		if operator == "not" {
			next, ok := peek()
			if !ok || !isKeyword(next, "in") {
				return nil, fmt.Errorf("expected IN after NOT")
			}
			position++
			operator = "not in"
		}

		var values []string
		switch operator {
		case "=", "!=", "~", "!~":
			value, ok := peek()
			if !ok {
				return nil, fmt.Errorf("expected a value after %s %s", field, operator)
			}
			position++
			values = []string{value.text}
		case "in", "not in":
			if open, ok := peek(); !ok || open.text != "(" || open.quoted {
				return nil, fmt.Errorf("expected ( after IN")
			}
			position++
			for {
				value, ok := peek()
				if !ok {
					return nil, fmt.Errorf("unterminated IN list")
				}
				position++
				if value.text == ")" && !value.quoted {
					break
				}
				if value.text == "," && !value.quoted {
					continue
				}
				values = append(values, value.text)
			}
		default:
			return nil, fmt.Errorf("operator %q is not supported", operatorToken.text)
		}
		if field == "type" {
			field = "issuetype"
		}
		parsed.clauses = append(parsed.clauses, clause{field: field, operator: operator, values: values})
	}
	return parsed, nil
}

// matches reports whether issue satisfies every clause.
func (parsed *query) matches(project string, issue *Issue) bool {
	for _, clause := range parsed.clauses {
		if !clause.matches(project, issue) {
			return false
		}
	}
	return true
}

func (clause clause) matches(project string, issue *Issue) bool {
	var candidates []string
	switch clause.field {
	case "project":
		candidates = []string{project}
	case "issuetype":
		candidates = []string{issue.Type}
	case "status":
		candidates = []string{string(issue.Status)}
	case "labels":
		candidates = issue.Labels
	case "key":
		candidates = []string{issue.Key}
	case "summary":
		candidates = []string{issue.Summary}
	}

	containsAny := func() bool {
		for _, candidate := range candidates {
			for _, value := range clause.values {
				if strings.EqualFold(candidate, value) {
					return true
				}
			}
		}
		return false
	}
	textMatch := func() bool {
		for _, candidate := range candidates {
			if strings.Contains(strings.ToLower(candidate), strings.ToLower(clause.values[0])) {
				return true
			}
		}
		return false
	}

	switch clause.operator {
	case "=", "in":
		return containsAny()
	case "!=", "not in":
		return !containsAny()
	case "~":
		return textMatch()
	case "!~":
		return !textMatch()
	}
	return false
}
