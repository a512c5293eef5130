// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// APIError represents a non-2xx response from the Jira REST API. Jira
// error bodies carry a list of general messages and a map of
// field-level errors keyed by field ID.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Method and Path identify the request that failed.
	Method string
	Path   string

	// Messages are the entries of the body's errorMessages array.
	Messages []string

	// FieldErrors maps field IDs ("priority", "customfield_10016") to
	// the tracker's reason for rejecting the value.
	FieldErrors map[string]string
}

func (err *APIError) Error() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "jira: %s %s: HTTP %d", err.Method, err.Path, err.StatusCode)
	for _, message := range err.Messages {
		fmt.Fprintf(&builder, "; %s", message)
	}
	for _, field := range sortedKeys(err.FieldErrors) {
		fmt.Fprintf(&builder, "; %s: %s", field, err.FieldErrors[field])
	}
	return builder.String()
}

// AuthError is a 401 response: the credentials were rejected. It is
// fatal for a session; retrying with the same token cannot succeed.
type AuthError struct {
	API *APIError
}

func (err *AuthError) Error() string {
	return "jira: authentication failed (check JIRA_EMAIL and JIRA_API_TOKEN): " + err.API.Error()
}

func (err *AuthError) Unwrap() error { return err.API }

// FieldRejectedError is a 400 response naming the fields the tracker
// refused, such as a field that is not on the edit screen or a
// priority the project does not define.
type FieldRejectedError struct {
	Key    string
	Fields map[string]string
	API    *APIError
}

func (err *FieldRejectedError) Error() string {
	var parts []string
	for _, field := range sortedKeys(err.Fields) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, err.Fields[field]))
	}
	parts = append(parts, err.API.Messages...)
	return fmt.Sprintf("jira: %s rejected field update: %s", err.Key, strings.Join(parts, "; "))
}

func (err *FieldRejectedError) Unwrap() error { return err.API }

// TransientError is a failure that may succeed if the user repeats the
// request: a transport error, a 5xx response, or a 429 rate limit. The
// client never retries on its own.
type TransientError struct {
	Method string
	Path   string

	// StatusCode is zero for transport failures.
	StatusCode int

	Err error
}

func (err *TransientError) Error() string {
	if err.StatusCode == 0 {
		return fmt.Sprintf("jira: %s %s: %v", err.Method, err.Path, err.Err)
	}
	return fmt.Sprintf("jira: %s %s: HTTP %d (temporary, try again): %v", err.Method, err.Path, err.StatusCode, err.Err)
}

func (err *TransientError) Unwrap() error { return err.Err }

// InvalidTransitionError reports that Target is not reachable from the
// ticket's current status. Available lists what is.
type InvalidTransitionError struct {
	Key       string
	Target    string
	Current   ticket.Status
	Available []ticket.Transition
}

func (err *InvalidTransitionError) Error() string {
	from := ""
	if err.Current != "" {
		from = fmt.Sprintf(" from %q", string(err.Current))
	}
	return fmt.Sprintf("jira: %s cannot move to %q%s; available: %s",
		err.Key, err.Target, from, ticket.TransitionNames(err.Available))
}

// IsAuth reports whether err is an authentication failure.
func IsAuth(err error) bool {
	var authError *AuthError
	return errors.As(err, &authError)
}

// IsFieldRejected reports whether err is a field-level rejection.
func IsFieldRejected(err error) bool {
	var fieldError *FieldRejectedError
	return errors.As(err, &fieldError)
}

// IsTransient reports whether err is a transport failure, 5xx, or rate
// limit.
func IsTransient(err error) bool {
	var transientError *TransientError
	return errors.As(err, &transientError)
}

// IsInvalidTransition reports whether err is a disallowed transition.
func IsInvalidTransition(err error) bool {
	var transitionError *InvalidTransitionError
	return errors.As(err, &transitionError)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var apiError *APIError
	return errors.As(err, &apiError) && apiError.StatusCode == http.StatusNotFound
}

// classify turns a non-2xx response into the most specific error type.
func classify(apiError *APIError, key string) error {
	switch {
	case apiError.StatusCode == http.StatusUnauthorized:
		return &AuthError{API: apiError}
	case apiError.StatusCode == http.StatusTooManyRequests || apiError.StatusCode >= 500:
		return &TransientError{
			Method:     apiError.Method,
			Path:       apiError.Path,
			StatusCode: apiError.StatusCode,
			Err:        apiError,
		}
	case apiError.StatusCode == http.StatusBadRequest && len(apiError.FieldErrors) > 0:
		return &FieldRejectedError{Key: key, Fields: apiError.FieldErrors, API: apiError}
	}
	return apiError
}

func sortedKeys(values map[string]string) []string {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
