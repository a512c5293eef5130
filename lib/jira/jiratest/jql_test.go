// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseJQL(t *testing.T) {
	tests := []struct {
		input string
		want  *query
	}{
		{
			input: `project = PROJ AND issuetype != Epic AND status = "Backlog" ORDER BY Rank ASC`,
			want: &query{
				clauses: []clause{
					{field: "project", operator: "=", values: []string{"PROJ"}},
					{field: "issuetype", operator: "!=", values: []string{"Epic"}},
					{field: "status", operator: "=", values: []string{"Backlog"}},
				},
				orderBy: "rank",
			},
		},
		{
			input: `project = PROJ AND type = Epic AND summary ~ 'gift card' ORDER BY updated DESC`,
			want: &query{
				clauses: []clause{
					{field: "project", operator: "=", values: []string{"PROJ"}},
					{field: "issuetype", operator: "=", values: []string{"Epic"}},
					{field: "summary", operator: "~", values: []string{"gift card"}},
				},
				orderBy:    "updated",
				descending: true,
			},
		},
		{
			input: `status NOT IN ("In Progress", Done) and labels != ready`,
			want: &query{
				clauses: []clause{
					{field: "status", operator: "not in", values: []string{"In Progress", "Done"}},
					{field: "labels", operator: "!=", values: []string{"ready"}},
				},
			},
		},
		{
			input: `summary ~ "say \"hi\""`,
			want: &query{
				clauses: []clause{{field: "summary", operator: "~", values: []string{`say "hi"`}}},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.input, func(t *testing.T) {
			got, err := parseJQL(test.input)
			if err != nil {
				t.Fatalf("parseJQL: %v", err)
			}
			if diff := cmp.Diff(test.want, got, cmp.AllowUnexported(query{}, clause{})); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseJQLErrors(t *testing.T) {
	for _, input := range []string{
		`project = PROJ OR project = OTHER`,
		`assignee = currentUser()`,
		`status IN (Backlog`,
		`summary ~ "unterminated`,
		`project = PROJ ORDER BY`,
		`status >= Done`,
	} {
		if _, err := parseJQL(input); err == nil {
			t.Errorf("parseJQL(%q) succeeded, want error", input)
		}
	}
}

func TestQueryMatches(t *testing.T) {
	issue := &Issue{Key: "PROJ-5", Summary: "Gift card redemption", Type: "Story", Status: "Backlog", Labels: []string{"checkout"}}
	tests := []struct {
		jql  string
		want bool
	}{
		{jql: `project = PROJ`, want: true},
		{jql: `project = OTHER`, want: false},
		{jql: `status = backlog`, want: true},
		{jql: `status in (Ready, Done)`, want: false},
		{jql: `labels = checkout AND summary ~ "GIFT"`, want: true},
		{jql: `labels != checkout`, want: false},
		{jql: `key = PROJ-5`, want: true},
		{jql: `summary !~ card`, want: false},
	}
	for _, test := range tests {
		parsed, err := parseJQL(test.jql)
		if err != nil {
			t.Fatalf("parseJQL(%q): %v", test.jql, err)
		}
		if got := parsed.matches("PROJ", issue); got != test.want {
			t.Errorf("%q matches = %v, want %v", test.jql, got, test.want)
		}
	}
}
