// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/bureau-foundation/refine/lib/clock"
	"github.com/bureau-foundation/refine/lib/netutil"
	"github.com/bureau-foundation/refine/lib/secret"
)

const (
	apiPrefix   = "/rest/api/3"
	agilePrefix = "/rest/agile/1.0"
)

// DefaultStoryPointsField is the custom field most Jira Cloud sites use
// for story points.
const DefaultStoryPointsField = "customfield_10016"

// Config holds configuration for creating a Jira API Client.
type Config struct {
	// BaseURL is the site root, e.g. "https://example.atlassian.net".
	// Must use HTTPS unless the host is loopback.
	BaseURL string

	// ProjectKey scopes epic searches ("PROJ").
	ProjectKey string

	// BacklogJQL selects and orders the refinement backlog. Required.
	BacklogJQL string

	// Scheme selects basic (email + token) or bearer auth. Defaults to
	// basic.
	Scheme AuthScheme

	// Email is the account email for basic auth.
	Email string

	// Token is the API token. The client reads it once, at
	// construction; the caller keeps ownership and may close it after
	// NewClient returns.
	Token *secret.Buffer

	// StoryPointsField is the custom field ID holding story points.
	// Defaults to DefaultStoryPointsField.
	StoryPointsField string

	// HTTPClient is used for all HTTP requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to slog.Default().
	Logger *slog.Logger
}

// Client is a typed Jira REST client covering the operations a
// refinement session performs. Every method issues its requests
// synchronously and at most once; failures are returned to the caller,
// never retried.
type Client struct {
	baseURL          string
	projectKey       string
	backlogJQL       string
	storyPointsField string
	httpClient       *http.Client
	auth             *authenticator
	clock            clock.Clock
	logger           *slog.Logger
}

// NewClient creates a Jira API client from the given configuration.
// Returns an error if the configuration is invalid (no token, missing
// email for basic auth, non-HTTPS URL to a remote host).
func NewClient(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("jira: BaseURL is required")
	}
	baseURL, err := netutil.RequireSecureURL(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("jira: %w", err)
	}
	if strings.TrimSpace(config.BacklogJQL) == "" {
		return nil, fmt.Errorf("jira: BacklogJQL is required")
	}

	auth, err := newAuthenticator(config.Scheme, config.Email, config.Token)
	if err != nil {
		return nil, err
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	storyPointsField := config.StoryPointsField
	if storyPointsField == "" {
		storyPointsField = DefaultStoryPointsField
	}

	return &Client{
		baseURL:          baseURL,
		projectKey:       config.ProjectKey,
		backlogJQL:       config.BacklogJQL,
		storyPointsField: storyPointsField,
		httpClient:       httpClient,
		auth:             auth,
		clock:            clk,
		logger:           logger,
	}, nil
}

// Close releases the protected memory holding the credentials. The
// client must not be used afterwards.
func (client *Client) Close() error {
	return client.auth.close()
}

// BrowseURL returns the web UI URL for a ticket.
func (client *Client) BrowseURL(key string) string {
	return client.baseURL + "/browse/" + key
}

// BacklogJQL returns the query that defines the backlog.
func (client *Client) BacklogJQL() string {
	return client.backlogJQL
}

// do executes an authenticated request. path is relative to the base
// URL and may carry a query string. requestBody, when non-nil, is sent
// as JSON. key names the ticket the request concerns, for error
// reporting; it may be empty.
//
// Returns the response body on 2xx. Otherwise the error is one of
// *AuthError, *FieldRejectedError, *TransientError or *APIError.
func (client *Client) do(ctx context.Context, method, path, key string, requestBody any) ([]byte, error) {
	var bodyReader io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return nil, fmt.Errorf("jira: encoding request body: %w", err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, client.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("jira: creating request: %w", err)
	}
	request.Header.Set("Authorization", client.auth.authorizationHeader())
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	started := client.clock.Now()
	response, err := client.httpClient.Do(request)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("jira: %s %s: %w", method, logPath(path), ctxErr)
		}
		return nil, &TransientError{Method: method, Path: logPath(path), Err: err}
	}
	defer response.Body.Close()

	body, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, &TransientError{Method: method, Path: logPath(path), Err: fmt.Errorf("reading response body: %w", err)}
	}

	client.logger.Debug("jira request",
		"method", method,
		"path", logPath(path),
		"status", response.StatusCode,
		"duration", client.clock.Now().Sub(started),
	)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return nil, classify(parseAPIError(method, logPath(path), response.StatusCode, body), key)
	}
	return body, nil
}

// get is a convenience method for GET requests. Decodes the response
// into result.
func (client *Client) get(ctx context.Context, path, key string, result any) error {
	body, err := client.do(ctx, http.MethodGet, path, key, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("jira: decoding %s: %w", logPath(path), err)
	}
	return nil
}

// post is a convenience method for POST requests. Decodes the response
// into result when result is non-nil and the body is not empty.
func (client *Client) post(ctx context.Context, path, key string, requestBody, result any) error {
	body, err := client.do(ctx, http.MethodPost, path, key, requestBody)
	if err != nil {
		return err
	}
	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("jira: decoding %s: %w", logPath(path), err)
		}
	}
	return nil
}

// put is a convenience method for PUT requests. Jira answers most PUTs
// with 204 No Content, so no result is decoded.
func (client *Client) put(ctx context.Context, path, key string, requestBody any) error {
	_, err := client.do(ctx, http.MethodPut, path, key, requestBody)
	return err
}

// logPath strips the query string so JQL does not end up in errors and
// logs verbatim.
func logPath(path string) string {
	if index := strings.IndexByte(path, '?'); index >= 0 {
		return path[:index]
	}
	return path
}

func issuePath(key string, suffix string) string {
	return apiPrefix + "/issue/" + url.PathEscape(key) + suffix
}

// parseAPIError parses a Jira error body. Bodies that are not the
// usual {"errorMessages": [...], "errors": {...}} shape are kept as a
// single message.
func parseAPIError(method, path string, statusCode int, body []byte) *APIError {
	apiError := &APIError{StatusCode: statusCode, Method: method, Path: path}

	var wireError struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &wireError) == nil && (len(wireError.ErrorMessages) > 0 || len(wireError.Errors) > 0) {
		apiError.Messages = wireError.ErrorMessages
		if len(wireError.Errors) > 0 {
			apiError.FieldErrors = wireError.Errors
		}
		return apiError
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		apiError.Messages = []string{text}
	} else {
		apiError.Messages = []string{http.StatusText(statusCode)}
	}
	return apiError
}
