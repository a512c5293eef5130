// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bureau-foundation/refine/lib/ticket"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *APIError
		expected string
	}{
		{
			name:     "message only",
			err:      &APIError{StatusCode: 404, Method: "GET", Path: "/rest/api/3/issue/PROJ-9", Messages: []string{"Issue does not exist"}},
			expected: "jira: GET /rest/api/3/issue/PROJ-9: HTTP 404; Issue does not exist",
		},
		{
			name: "field errors in sorted order",
			err: &APIError{
				StatusCode:  400,
				Method:      "PUT",
				Path:        "/rest/api/3/issue/PROJ-1",
				FieldErrors: map[string]string{"summary": "required", "priority": "invalid"},
			},
			expected: "jira: PUT /rest/api/3/issue/PROJ-1: HTTP 400; priority: invalid; summary: required",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.err.Error(); got != test.expected {
				t.Errorf("Error() = %q, want %q", got, test.expected)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		apiError   *APIError
		predicate  func(error) bool
		isNotFound bool
	}{
		{name: "401 is auth", apiError: &APIError{StatusCode: 401}, predicate: IsAuth},
		{name: "429 is transient", apiError: &APIError{StatusCode: 429}, predicate: IsTransient},
		{name: "502 is transient", apiError: &APIError{StatusCode: 502}, predicate: IsTransient},
		{
			name:      "400 with field errors is field rejection",
			apiError:  &APIError{StatusCode: 400, FieldErrors: map[string]string{"priority": "invalid"}},
			predicate: IsFieldRejected,
		},
		{
			name:     "400 without field errors stays generic",
			apiError: &APIError{StatusCode: 400, Messages: []string{"bad"}},
			predicate: func(err error) bool {
				return !IsFieldRejected(err) && !IsAuth(err) && !IsTransient(err)
			},
		},
		{name: "404", apiError: &APIError{StatusCode: 404}, predicate: IsNotFound, isNotFound: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := classify(test.apiError, "PROJ-1")
			if !test.predicate(err) {
				t.Errorf("classify(%d) = %T (%v), predicate false", test.apiError.StatusCode, err, err)
			}
			if IsNotFound(err) != test.isNotFound {
				t.Errorf("IsNotFound = %v, want %v", IsNotFound(err), test.isNotFound)
			}
			var apiError *APIError
			if !errors.As(err, &apiError) || apiError != test.apiError {
				t.Errorf("classified error does not unwrap to the original *APIError")
			}
		})
	}
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("updating PROJ-1: %w", &FieldRejectedError{
		Key:    "PROJ-1",
		Fields: map[string]string{"customfield_10016": "not on screen"},
		API:    &APIError{StatusCode: 400},
	})
	if !IsFieldRejected(err) {
		t.Error("IsFieldRejected(wrapped) = false")
	}
	if IsAuth(err) || IsTransient(err) || IsInvalidTransition(err) {
		t.Error("wrapped field rejection matched another predicate")
	}
}

func TestFieldRejectedError_Error(t *testing.T) {
	err := &FieldRejectedError{
		Key:    "PROJ-1",
		Fields: map[string]string{"priority": "Specify a valid 'id' or 'name' for Priority"},
		API:    &APIError{StatusCode: 400, Messages: []string{"Update failed"}},
	}
	want := "jira: PROJ-1 rejected field update: priority: Specify a valid 'id' or 'name' for Priority; Update failed"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestInvalidTransitionError_Error(t *testing.T) {
	err := &InvalidTransitionError{
		Key:     "PROJ-3",
		Target:  "Ready",
		Current: ticket.StatusInProgress,
		Available: []ticket.Transition{
			{ID: "51", Name: "Stop Progress", To: ticket.StatusReady},
			{ID: "31", Name: "Done", To: ticket.StatusDone},
		},
	}
	if !IsInvalidTransition(fmt.Errorf("wrapped: %w", err)) {
		t.Fatal("IsInvalidTransition(wrapped) = false")
	}
	want := `jira: PROJ-3 cannot move to "Ready" from "In Progress"; available: ` +
		ticket.TransitionNames(err.Available)
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
