// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"encoding/json"
	"strings"
	"time"
)

// Wire types mirror the subset of the Jira REST v3 JSON this client
// reads and writes. Nullable objects are pointers; Jira sends null for
// unset priority, assignee, parent and resolution.

// User is the account behind the credentials, from /myself.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
	Active       bool   `json:"active"`
}

type namedObject struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type keyedObject struct {
	Key string `json:"key"`
}

type wireIssue struct {
	ID     string          `json:"id,omitempty"`
	Key    string          `json:"key"`
	Fields json.RawMessage `json:"fields"`
}

// wireFields is the decoded "fields" object. The story points custom
// field has a site-specific ID, so it is read separately from the raw
// message.
type wireFields struct {
	Summary     string          `json:"summary"`
	Description *ADFNode        `json:"description"`
	Status      *namedObject    `json:"status"`
	Priority    *namedObject    `json:"priority"`
	Resolution  *namedObject    `json:"resolution"`
	IssueType   *namedObject    `json:"issuetype"`
	Labels      []string        `json:"labels"`
	Assignee    *User           `json:"assignee"`
	Parent      *wireParent     `json:"parent"`
	Comment     *wireComments   `json:"comment"`
	IssueLinks  []wireIssueLink `json:"issuelinks"`
}

type wireParent struct {
	Key    string `json:"key"`
	Fields struct {
		Summary string `json:"summary"`
	} `json:"fields"`
}

type wireComments struct {
	Comments []wireComment `json:"comments"`
	Total    int           `json:"total"`
}

type wireComment struct {
	ID      string   `json:"id,omitempty"`
	Author  *User    `json:"author,omitempty"`
	Body    *ADFNode `json:"body"`
	Created string   `json:"created,omitempty"`
}

type wireIssueLink struct {
	ID           string       `json:"id,omitempty"`
	Type         wireLinkType `json:"type"`
	InwardIssue  *keyedObject `json:"inwardIssue,omitempty"`
	OutwardIssue *keyedObject `json:"outwardIssue,omitempty"`
}

type wireLinkType struct {
	Name    string `json:"name"`
	Inward  string `json:"inward,omitempty"`
	Outward string `json:"outward,omitempty"`
}

type wireSearchResponse struct {
	Issues        []wireIssue `json:"issues"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	IsLast        bool        `json:"isLast"`
}

type wireTransitionsResponse struct {
	Transitions []wireTransition `json:"transitions"`
}

type wireTransition struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	To   *namedObject `json:"to"`
}

// timeLayout is Jira's timestamp format ("2026-03-01T09:30:00.000+0000").
const timeLayout = "2006-01-02T15:04:05.000-0700"

// parseTime accepts Jira's layout and RFC 3339, returning the zero time
// for anything else.
func parseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	for _, layout := range []string{timeLayout, time.RFC3339Nano} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

// FormatTime renders t in Jira's timestamp layout.
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}
