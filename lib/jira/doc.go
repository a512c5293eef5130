// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jira provides a typed Go client for the Jira Cloud REST API
// (v3) and the Jira Software agile API, covering what a refinement
// session needs: backlog search, ticket fetch, field updates, workflow
// transitions, comments, ranking, epic links and issue links.
//
// The client authenticates with an API token held in protected memory,
// presented as HTTP basic auth (account email + token) or as a bearer
// token. It refuses non-HTTPS base URLs except for loopback hosts.
//
// Every method issues its requests synchronously and at most once.
// There is no retry or backoff: a failed call returns a typed error
// (*AuthError, *FieldRejectedError, *TransientError,
// *InvalidTransitionError or *APIError) and the caller decides whether
// to try again. Methods that change a ticket return the tracker's
// snapshot re-fetched after the change, never a locally patched copy.
//
// Descriptions and comments travel as Atlassian Document Format.
// [MarkdownToADF] and [ADFToMarkdown] convert at the boundary so the
// rest of the program works in markdown.
package jira
