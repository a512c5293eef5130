// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package jiratest provides an in-memory emulator of the Jira REST
// endpoints the jira package calls, for tests and for the
// refine-tracker-mock binary.
//
// The emulator enforces the behavior callers depend on: credentials
// are checked on every request (401 otherwise), transitions follow the
// configured workflow graph, unknown or read-only fields and invalid
// priorities are rejected with Jira's field-error body, and rank
// changes reorder a single global rank. Search understands the JQL
// subset refinement uses (AND-joined clauses over project, issuetype,
// status, labels, key and summary, plus one ORDER BY field) and pages
// with nextPageToken.
//
// Tests inspect state through [Emulator.Issue], [Emulator.Rank] and
// the request log, and inject one-shot failures with
// [Emulator.FailNext]:
//
//	emulator := jiratest.New(jiratest.Config{})
//	server := emulator.Serve(t)
//	client := emulator.NewClient(t, server, nil)
//	emulator.FailNext(http.MethodPut, "/rest/api/3/issue/PROJ-2", http.StatusBadGateway)
//
// Initial state comes from a JSONC [Fixture]; [DefaultFixture] is
// embedded.
package jiratest
