// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// searchPageSize is the page size requested from the JQL search
// endpoint. Jira caps it at 100 regardless.
const searchPageSize = 100

// maxBacklogScan bounds how far Rerank paginates looking for a ticket.
const maxBacklogScan = 1000

// summaryFields are the fields a backlog listing needs.
var summaryFields = []string{"summary", "status", "priority", "labels"}

// Myself returns the account the credentials belong to. Used to verify
// connectivity and authentication.
func (client *Client) Myself(ctx context.Context) (*User, error) {
	var user User
	if err := client.get(ctx, apiPrefix+"/myself", "", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FetchBacklog returns up to limit tickets matching the backlog query,
// in the query's order. A limit of zero or less returns one page.
func (client *Client) FetchBacklog(ctx context.Context, limit int) ([]ticket.Summary, error) {
	if limit <= 0 {
		limit = searchPageSize
	}
	var summaries []ticket.Summary
	err := client.search(ctx, client.backlogJQL, summaryFields, limit, func(issue wireIssue, fields wireFields) bool {
		summaries = append(summaries, issueSummary(issue.Key, fields))
		return len(summaries) < limit
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// search pages through a JQL query, calling visit for each issue until
// visit returns false, limit issues have been seen, or the results
// end.
func (client *Client) search(ctx context.Context, jql string, fields []string, limit int, visit func(wireIssue, wireFields) bool) error {
	seen := 0
	pageToken := ""
	for {
		pageSize := min(searchPageSize, limit-seen)
		query := url.Values{}
		query.Set("jql", jql)
		query.Set("maxResults", strconv.Itoa(pageSize))
		query.Set("fields", strings.Join(fields, ","))
		if pageToken != "" {
			query.Set("nextPageToken", pageToken)
		}

		var page wireSearchResponse
		if err := client.get(ctx, apiPrefix+"/search/jql?"+query.Encode(), "", &page); err != nil {
			return err
		}
		for _, issue := range page.Issues {
			var decoded wireFields
			if err := json.Unmarshal(issue.Fields, &decoded); err != nil {
				return fmt.Errorf("jira: decoding fields of %s: %w", issue.Key, err)
			}
			seen++
			if !visit(issue, decoded) || seen >= limit {
				return nil
			}
		}
		if page.IsLast || page.NextPageToken == "" || len(page.Issues) == 0 {
			return nil
		}
		pageToken = page.NextPageToken
	}
}

func issueSummary(key string, fields wireFields) ticket.Summary {
	summary := ticket.Summary{
		Key:     key,
		Summary: fields.Summary,
		Labels:  sortedLabels(fields.Labels),
	}
	if fields.Status != nil {
		summary.Status = ticket.Status(fields.Status.Name)
	}
	if fields.Priority != nil {
		summary.Priority = ticket.Priority(fields.Priority.Name)
	}
	return summary
}

// ticketFields lists every field FetchTicket reads.
func (client *Client) ticketFields() []string {
	return []string{
		"summary", "description", "status", "priority", "resolution",
		"issuetype", "labels", "assignee", "parent", "comment", "issuelinks",
		client.storyPointsField,
	}
}

// FetchTicket returns the tracker's current snapshot of key.
func (client *Client) FetchTicket(ctx context.Context, key string) (*ticket.Ticket, error) {
	query := url.Values{}
	query.Set("fields", strings.Join(client.ticketFields(), ","))

	var issue wireIssue
	if err := client.get(ctx, issuePath(key, "?"+query.Encode()), key, &issue); err != nil {
		return nil, err
	}
	return client.convertIssue(issue)
}

// convertIssue maps a wire issue onto the ticket model. The story
// points field is read from the raw fields by its configured ID.
func (client *Client) convertIssue(issue wireIssue) (*ticket.Ticket, error) {
	var fields wireFields
	if err := json.Unmarshal(issue.Fields, &fields); err != nil {
		return nil, fmt.Errorf("jira: decoding fields of %s: %w", issue.Key, err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(issue.Fields, &raw); err != nil {
		return nil, fmt.Errorf("jira: decoding fields of %s: %w", issue.Key, err)
	}

	result := &ticket.Ticket{
		Key:     issue.Key,
		Summary: fields.Summary,
		Labels:  sortedLabels(fields.Labels),
		URL:     client.BrowseURL(issue.Key),
	}
	if fields.IssueType != nil {
		result.Type = fields.IssueType.Name
	}
	if fields.Status != nil {
		result.Status = ticket.Status(fields.Status.Name)
	}
	if fields.Priority != nil {
		result.Priority = ticket.Priority(fields.Priority.Name)
	}
	if fields.Resolution != nil {
		result.Resolution = fields.Resolution.Name
	}
	if fields.Assignee != nil {
		result.Assignee = fields.Assignee.DisplayName
	}
	if fields.Parent != nil {
		result.Epic = fields.Parent.Key
	}
	result.StoryPoints = parseStoryPoints(raw[client.storyPointsField])

	for _, link := range fields.IssueLinks {
		if link.InwardIssue != nil && strings.Contains(strings.ToLower(link.Type.Inward), "blocked by") {
			result.AddBlockers(link.InwardIssue.Key)
		}
	}
	result.SetDescription(ADFToMarkdown(fields.Description))

	if fields.Comment != nil {
		for _, comment := range fields.Comment.Comments {
			converted := ticket.Comment{
				Body:    ADFToMarkdown(comment.Body),
				Created: parseTime(comment.Created),
			}
			if comment.Author != nil {
				converted.Author = comment.Author.DisplayName
			}
			result.Comments = append(result.Comments, converted)
		}
	}
	return result, nil
}

// parseStoryPoints reads a numeric custom field. Jira returns numbers
// (often fractional) or null; fractions round to the nearest point.
func parseStoryPoints(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var value *float64
	if err := json.Unmarshal(raw, &value); err != nil || value == nil || *value <= 0 {
		return 0
	}
	return int(*value + 0.5)
}

func sortedLabels(labels []string) []string {
	if len(labels) == 0 {
		return nil
	}
	sorted := slices.Clone(labels)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// UpdateFields applies a partial update and returns the tracker's
// snapshot afterwards. An empty field set is rejected without a request.
func (client *Client) UpdateFields(ctx context.Context, key string, fields ticket.FieldSet) (*ticket.Ticket, error) {
	if fields.Empty() {
		return nil, fmt.Errorf("jira: update of %s changes no fields", key)
	}
	body, err := client.updateBody(fields)
	if err != nil {
		return nil, err
	}
	if err := client.put(ctx, issuePath(key, ""), key, body); err != nil {
		return nil, err
	}
	return client.FetchTicket(ctx, key)
}

// updateRequest is the body of PUT /issue/{key}. "fields" replaces
// values; "update" applies operations such as label add/remove.
type updateRequest struct {
	Fields map[string]any                 `json:"fields,omitempty"`
	Update map[string][]map[string]string `json:"update,omitempty"`
}

func (client *Client) updateBody(fields ticket.FieldSet) (*updateRequest, error) {
	body := &updateRequest{Fields: map[string]any{}}
	if fields.Summary != nil {
		summary := strings.TrimSpace(*fields.Summary)
		if summary == "" {
			return nil, fmt.Errorf("jira: summary cannot be empty")
		}
		body.Fields["summary"] = summary
	}
	if fields.Description != nil {
		if strings.TrimSpace(*fields.Description) == "" {
			body.Fields["description"] = nil
		} else {
			body.Fields["description"] = MarkdownToADF(*fields.Description)
		}
	}
	if fields.Priority != nil {
		body.Fields["priority"] = namedObject{Name: string(*fields.Priority)}
	}
	if fields.StoryPoints != nil {
		if *fields.StoryPoints < 0 {
			return nil, fmt.Errorf("jira: story points must not be negative")
		}
		if *fields.StoryPoints == 0 {
			body.Fields[client.storyPointsField] = nil
		} else {
			body.Fields[client.storyPointsField] = *fields.StoryPoints
		}
	}
	if fields.Labels != nil {
		labels := sortedLabels(fields.Labels)
		if labels == nil {
			labels = []string{}
		}
		body.Fields["labels"] = labels
	}
	var operations []map[string]string
	for _, label := range fields.AddLabels {
		operations = append(operations, map[string]string{"add": label})
	}
	for _, label := range fields.RemoveLabels {
		operations = append(operations, map[string]string{"remove": label})
	}
	if len(operations) > 0 {
		body.Update = map[string][]map[string]string{"labels": operations}
	}
	if len(body.Fields) == 0 {
		body.Fields = nil
	}
	return body, nil
}

// AddLabel adds one label to key, leaving the others in place.
func (client *Client) AddLabel(ctx context.Context, key, label string) (*ticket.Ticket, error) {
	label, err := validLabel(label)
	if err != nil {
		return nil, err
	}
	return client.UpdateFields(ctx, key, ticket.FieldSet{AddLabels: []string{label}})
}

// RemoveLabel removes one label from key. Removing an absent label is
// not an error.
func (client *Client) RemoveLabel(ctx context.Context, key, label string) (*ticket.Ticket, error) {
	label, err := validLabel(label)
	if err != nil {
		return nil, err
	}
	return client.UpdateFields(ctx, key, ticket.FieldSet{RemoveLabels: []string{label}})
}

// validLabel rejects labels Jira would refuse: empty, or containing
// whitespace.
func validLabel(label string) (string, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return "", fmt.Errorf("jira: label cannot be empty")
	}
	if strings.ContainsAny(label, " \t\n") {
		return "", fmt.Errorf("jira: label %q contains whitespace", label)
	}
	return label, nil
}

// DefaultLinkType is the link type LinkIssues uses when none is given.
const DefaultLinkType = "Relates"

// LinkIssues links from to to with the named link type. from is the
// link's inward issue and to its outward issue, so with the "Blocks"
// type from blocks to, and to lists from among its blockers.
func (client *Client) LinkIssues(ctx context.Context, from, to, linkType string) error {
	if linkType == "" {
		linkType = DefaultLinkType
	}
	body := map[string]any{
		"type":         map[string]string{"name": linkType},
		"inwardIssue":  keyedObject{Key: from},
		"outwardIssue": keyedObject{Key: to},
	}
	return client.post(ctx, apiPrefix+"/issueLink", to, body, nil)
}
