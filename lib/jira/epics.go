// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// maxEpicResults caps SearchEpics.
const maxEpicResults = 10

// SearchEpics returns the project's epics whose summary matches query,
// most recently updated first.
func (client *Client) SearchEpics(ctx context.Context, query string) ([]ticket.Summary, error) {
	if client.projectKey == "" {
		return nil, fmt.Errorf("jira: epic search needs a project key")
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("jira: epic search query is empty")
	}
	jql := fmt.Sprintf(`project = %s AND issuetype = Epic AND summary ~ %s ORDER BY updated DESC`,
		client.projectKey, quoteJQL(query))

	var epics []ticket.Summary
	err := client.search(ctx, jql, summaryFields, maxEpicResults, func(issue wireIssue, fields wireFields) bool {
		epics = append(epics, issueSummary(issue.Key, fields))
		return true
	})
	if err != nil {
		return nil, err
	}
	return epics, nil
}

// quoteJQL renders value as a double-quoted JQL string literal.
func quoteJQL(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + replacer.Replace(value) + `"`
}

// LinkEpic makes epicKey the parent of key and returns the snapshot
// afterwards.
func (client *Client) LinkEpic(ctx context.Context, key, epicKey string) (*ticket.Ticket, error) {
	epicKey, err := ticket.ParseKey(epicKey)
	if err != nil {
		return nil, fmt.Errorf("jira: %w", err)
	}
	if epicKey == key {
		return nil, fmt.Errorf("jira: %s cannot be its own epic", key)
	}
	body := map[string]any{
		"fields": map[string]any{"parent": keyedObject{Key: epicKey}},
	}
	if err := client.put(ctx, issuePath(key, ""), key, body); err != nil {
		return nil, err
	}
	return client.FetchTicket(ctx, key)
}
