// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/netutil"
	"github.com/bureau-foundation/refine/lib/ticket"
)

const (
	defaultMaxResults = 50
	maxMaxResults     = 100
)

func (emulator *Emulator) routes() chi.Router {
	router := chi.NewRouter()
	router.Use(emulator.record, emulator.injectFailures, emulator.authenticate)

	router.Route("/rest/api/3", func(api chi.Router) {
		api.Get("/myself", emulator.handleMyself)
		api.Get("/search/jql", emulator.handleSearch)
		api.Post("/issueLink", emulator.handleIssueLink)
		api.Get("/issue/{key}", emulator.handleGetIssue)
		api.Put("/issue/{key}", emulator.handleUpdateIssue)
		api.Get("/issue/{key}/transitions", emulator.handleGetTransitions)
		api.Post("/issue/{key}/transitions", emulator.handleTransition)
		api.Post("/issue/{key}/comment", emulator.handleAddComment)
	})
	router.Put("/rest/agile/1.0/issue/rank", emulator.handleRank)

	router.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		writeError(writer, http.StatusNotFound, nil, "No route for "+request.Method+" "+request.URL.Path)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, request *http.Request) {
		writeError(writer, http.StatusMethodNotAllowed, nil, "Method "+request.Method+" not allowed")
	})
	return router
}

// record logs every request, including its body, before anything can
// reject it.
func (emulator *Emulator) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var body []byte
		if request.Body != nil {
			body, _ = io.ReadAll(request.Body)
			request.Body = io.NopCloser(bytes.NewReader(body))
		}
		emulator.mu.Lock()
		emulator.requests = append(emulator.requests, Request{
			Method: request.Method,
			Path:   request.URL.Path,
			Query:  request.URL.RawQuery,
			Body:   body,
		})
		emulator.mu.Unlock()
		emulator.logger.Debug("jiratest request", "method", request.Method, "path", request.URL.Path)
		next.ServeHTTP(writer, request)
	})
}

func (emulator *Emulator) injectFailures(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		emulator.mu.Lock()
		injected, ok := emulator.takeFailure(request.Method, request.URL.Path)
		emulator.mu.Unlock()
		if ok {
			writeError(writer, injected.status, nil, injected.messages...)
			return
		}
		next.ServeHTTP(writer, request)
	})
}

// authenticate accepts basic auth with the account email and token, or
// the token as a bearer token.
func (emulator *Emulator) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if !emulator.authorized(request.Header.Get("Authorization")) {
			writer.Header().Set("WWW-Authenticate", `Basic realm="protected-area"`)
			writeError(writer, http.StatusUnauthorized, nil, "Client must be authenticated to access this resource.")
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (emulator *Emulator) authorized(header string) bool {
	if token, ok := strings.CutPrefix(header, "Bearer "); ok {
		return token == emulator.account.Token
	}
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return false
	}
	email, token, ok := strings.Cut(string(decoded), ":")
	return ok && email == emulator.account.Email && token == emulator.account.Token
}

func (emulator *Emulator) handleMyself(writer http.ResponseWriter, _ *http.Request) {
	writeJSON(writer, http.StatusOK, map[string]any{
		"accountId":    emulator.account.AccountID,
		"displayName":  emulator.account.DisplayName,
		"emailAddress": emulator.account.Email,
		"active":       true,
	})
}

func (emulator *Emulator) handleSearch(writer http.ResponseWriter, request *http.Request) {
	values := request.URL.Query()
	parsed, err := parseJQL(values.Get("jql"))
	if err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Error in the JQL Query: "+err.Error())
		return
	}
	maxResults := defaultMaxResults
	if raw := values.Get("maxResults"); raw != "" {
		maxResults, err = strconv.Atoi(raw)
		if err != nil || maxResults < 0 {
			writeError(writer, http.StatusBadRequest, nil, "maxResults must be a non-negative integer")
			return
		}
		maxResults = min(maxResults, maxMaxResults)
	}
	offset := 0
	if token := values.Get("nextPageToken"); token != "" {
		offset, err = decodePageToken(token)
		if err != nil {
			writeError(writer, http.StatusBadRequest, nil, "Invalid nextPageToken")
			return
		}
	}
	fields := requestedFields(values.Get("fields"))

	emulator.mu.Lock()
	defer emulator.mu.Unlock()

	var matched []*issueState
	for _, key := range emulator.rank {
		state := emulator.issues[key]
		if parsed.matches(emulator.project, &state.Issue) {
			matched = append(matched, state)
		}
	}
	emulator.order(matched, parsed)

	page := matched[min(offset, len(matched)):min(offset+maxResults, len(matched))]
	issues := make([]map[string]any, 0, len(page))
	for _, state := range page {
		issues = append(issues, emulator.wireIssue(state, fields))
	}
	response := map[string]any{"issues": issues, "isLast": offset+len(page) >= len(matched)}
	if offset+len(page) < len(matched) {
		response["nextPageToken"] = encodePageToken(offset + len(page))
	}
	writeJSON(writer, http.StatusOK, response)
}

// order sorts matched per the query's ORDER BY. Matches arrive in rank
// order, which is also the order for "rank" and unknown fields.
func (emulator *Emulator) order(matched []*issueState, parsed *query) {
	var compare func(a, b *issueState) int
	switch parsed.orderBy {
	case "updated":
		compare = func(a, b *issueState) int { return a.updated.Compare(b.updated) }
	case "created":
		compare = func(a, b *issueState) int { return a.created.Compare(b.created) }
	case "key":
		compare = func(a, b *issueState) int { return a.id - b.id }
	default:
		if parsed.descending {
			slices.Reverse(matched)
		}
		return
	}
	slices.SortStableFunc(matched, func(a, b *issueState) int {
		if parsed.descending {
			return compare(b, a)
		}
		return compare(a, b)
	})
}

func encodePageToken(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("offset:" + strconv.Itoa(offset)))
}

func decodePageToken(token string) (int, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, err
	}
	raw, ok := strings.CutPrefix(string(decoded), "offset:")
	if !ok {
		return 0, fmt.Errorf("malformed page token")
	}
	return strconv.Atoi(raw)
}

// requestedFields parses the fields parameter. nil means every field.
func requestedFields(raw string) []string {
	if raw == "" || raw == "*all" {
		return nil
	}
	var fields []string
	for _, field := range strings.Split(raw, ",") {
		if field = strings.TrimSpace(field); field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}

func (emulator *Emulator) handleGetIssue(writer http.ResponseWriter, request *http.Request) {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.lookup(chi.URLParam(request, "key"))
	if !ok {
		writeIssueNotFound(writer)
		return
	}
	writeJSON(writer, http.StatusOK, emulator.wireIssue(state, requestedFields(request.URL.Query().Get("fields"))))
}

type updateRequest struct {
	Fields map[string]json.RawMessage   `json:"fields"`
	Update map[string][]json.RawMessage `json:"update"`
}

func (emulator *Emulator) handleUpdateIssue(writer http.ResponseWriter, request *http.Request) {
	var body updateRequest
	if err := netutil.DecodeRequest(request.Body, &body); err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Invalid request payload. Refer to the REST API documentation and try again.")
		return
	}

	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.lookup(chi.URLParam(request, "key"))
	if !ok {
		writeIssueNotFound(writer)
		return
	}

	// Validate everything against a copy so a rejected update changes
	// nothing.
	updated := state.Issue.clone()
	fieldErrors := map[string]string{}
	for field, raw := range body.Fields {
		if message := emulator.applyField(&updated, field, raw); message != "" {
			fieldErrors[field] = message
		}
	}
	for field, operations := range body.Update {
		if field != "labels" {
			fieldErrors[field] = fmt.Sprintf("Field '%s' cannot be set. It is not on the appropriate screen, or unknown.", field)
			continue
		}
		for _, raw := range operations {
			if message := applyLabelOperation(&updated, raw); message != "" {
				fieldErrors[field] = message
			}
		}
	}
	if len(fieldErrors) > 0 {
		writeError(writer, http.StatusBadRequest, fieldErrors)
		return
	}

	state.Issue = updated
	state.updated = emulator.clock.Now()
	writer.WriteHeader(http.StatusNoContent)
}

// applyField sets one field on issue and returns a field error message,
// or "" on success.
func (emulator *Emulator) applyField(issue *Issue, field string, raw json.RawMessage) string {
	if slices.Contains(emulator.readOnlyFields, field) {
		return fmt.Sprintf("Field '%s' cannot be set. It is not on the appropriate screen, or unknown.", field)
	}
	switch field {
	case "summary":
		var summary string
		if json.Unmarshal(raw, &summary) != nil || strings.TrimSpace(summary) == "" {
			return "You must specify a summary of the issue."
		}
		issue.Summary = summary

	case "description":
		var document *jira.ADFNode
		if json.Unmarshal(raw, &document) != nil {
			return "Operation value must be an Atlassian Document (see the Atlassian Document Format)"
		}
		if document != nil && document.Type != "doc" {
			return "Operation value must be an Atlassian Document (see the Atlassian Document Format)"
		}
		issue.Description = jira.ADFToMarkdown(document)

	case "priority":
		var priority struct {
			Name string `json:"name"`
		}
		if json.Unmarshal(raw, &priority) != nil {
			return "Specify a valid 'id' or 'name' for Priority"
		}
		parsed, err := ticket.ParsePriority(priority.Name)
		if err != nil || string(parsed) != priority.Name {
			return "Specify a valid 'id' or 'name' for Priority"
		}
		issue.Priority = parsed

	case emulator.storyPointsField:
		var points *float64
		if json.Unmarshal(raw, &points) != nil || (points != nil && *points < 0) {
			return "Number value expected as the Story point estimate value."
		}
		issue.StoryPoints = 0
		if points != nil {
			issue.StoryPoints = *points
		}

	case "labels":
		var labels []string
		if json.Unmarshal(raw, &labels) != nil {
			return "Field 'labels' must be an array of strings."
		}
		for _, label := range labels {
			if message := labelError(label); message != "" {
				return message
			}
		}
		issue.Labels = normalizeLabels(labels)

	case "parent":
		var parent *struct {
			Key string `json:"key"`
		}
		if json.Unmarshal(raw, &parent) != nil {
			return "Could not find parent issue."
		}
		if parent == nil || parent.Key == "" {
			issue.Epic = ""
			return ""
		}
		epic, ok := emulator.lookup(parent.Key)
		if !ok {
			return "Could not find issue by id or key."
		}
		if epic.Type != "Epic" || epic.Key == issue.Key {
			return "Given parent work item does not belong to appropriate hierarchy."
		}
		issue.Epic = epic.Key

	default:
		return fmt.Sprintf("Field '%s' cannot be set. It is not on the appropriate screen, or unknown.", field)
	}
	return ""
}

func applyLabelOperation(issue *Issue, raw json.RawMessage) string {
	var operation map[string]json.RawMessage
	if json.Unmarshal(raw, &operation) != nil || len(operation) != 1 {
		return "Operation must be one of add, remove or set."
	}
	for verb, value := range operation {
		switch verb {
		case "add", "remove":
			var label string
			if json.Unmarshal(value, &label) != nil {
				return "Operation value must be a string."
			}
			if message := labelError(label); message != "" {
				return message
			}
			if verb == "add" {
				issue.Labels = normalizeLabels(append(issue.Labels, label))
			} else {
				issue.Labels = slices.DeleteFunc(issue.Labels, func(existing string) bool { return existing == label })
			}
		case "set":
			var labels []string
			if json.Unmarshal(value, &labels) != nil {
				return "Operation value must be an array of strings."
			}
			issue.Labels = normalizeLabels(labels)
		default:
			return fmt.Sprintf("Operation '%s' is not supported for labels.", verb)
		}
	}
	return ""
}

func labelError(label string) string {
	if label == "" {
		return "The label can't be empty."
	}
	if strings.ContainsAny(label, " \t\n") {
		return fmt.Sprintf("The label '%s' contains spaces which is invalid.", label)
	}
	return ""
}

func normalizeLabels(labels []string) []string {
	normalized := slices.Clone(labels)
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)
	if len(normalized) == 0 {
		return nil
	}
	return normalized
}

func (emulator *Emulator) handleGetTransitions(writer http.ResponseWriter, request *http.Request) {
	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.lookup(chi.URLParam(request, "key"))
	if !ok {
		writeIssueNotFound(writer)
		return
	}
	transitions := []map[string]any{}
	for _, transition := range emulator.workflow.From(state.Status) {
		transitions = append(transitions, map[string]any{
			"id":   transition.ID,
			"name": transition.Name,
			"to":   map[string]any{"name": string(transition.To)},
		})
	}
	writeJSON(writer, http.StatusOK, map[string]any{"transitions": transitions})
}

func (emulator *Emulator) handleTransition(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Transition struct {
			ID string `json:"id"`
		} `json:"transition"`
		Fields struct {
			Resolution *struct {
				Name string `json:"name"`
			} `json:"resolution"`
		} `json:"fields"`
	}
	if err := netutil.DecodeRequest(request.Body, &body); err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Invalid request payload. Refer to the REST API documentation and try again.")
		return
	}

	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.lookup(chi.URLParam(request, "key"))
	if !ok {
		writeIssueNotFound(writer)
		return
	}
	var chosen *ticket.Transition
	for _, transition := range emulator.workflow.From(state.Status) {
		if transition.ID == body.Transition.ID {
			chosen = &transition
			break
		}
	}
	if chosen == nil {
		writeError(writer, http.StatusBadRequest, nil,
			fmt.Sprintf("Transition id '%s' is not valid for this issue.", body.Transition.ID))
		return
	}
	resolution := ""
	if body.Fields.Resolution != nil {
		resolution = body.Fields.Resolution.Name
	}
	if !emulator.resolved(chosen.To) && resolution != "" {
		writeError(writer, http.StatusBadRequest, map[string]string{
			"resolution": "Field 'resolution' cannot be set. It is not on the appropriate screen, or unknown.",
		})
		return
	}

	state.Status = chosen.To
	state.Resolution = ""
	if emulator.resolved(chosen.To) {
		state.Resolution = resolution
		if state.Resolution == "" {
			state.Resolution = "Done"
		}
	}
	state.updated = emulator.clock.Now()
	writer.WriteHeader(http.StatusNoContent)
}

func (emulator *Emulator) handleAddComment(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Body *jira.ADFNode `json:"body"`
	}
	if err := netutil.DecodeRequest(request.Body, &body); err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Invalid request payload. Refer to the REST API documentation and try again.")
		return
	}
	text := jira.ADFToMarkdown(body.Body)
	if strings.TrimSpace(text) == "" {
		writeError(writer, http.StatusBadRequest, map[string]string{"comment": "Comment body can not be empty!"})
		return
	}

	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	state, ok := emulator.lookup(chi.URLParam(request, "key"))
	if !ok {
		writeIssueNotFound(writer)
		return
	}
	now := emulator.clock.Now()
	comment := Comment{
		ID:      emulator.commentID(),
		Author:  emulator.account.DisplayName,
		Body:    text,
		Created: now,
	}
	state.Comments = append(state.Comments, comment)
	state.updated = now
	writeJSON(writer, http.StatusCreated, emulator.wireComment(comment))
}

func (emulator *Emulator) handleRank(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Issues          []string `json:"issues"`
		RankBeforeIssue string   `json:"rankBeforeIssue"`
		RankAfterIssue  string   `json:"rankAfterIssue"`
	}
	if err := netutil.DecodeRequest(request.Body, &body); err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Invalid request payload.")
		return
	}
	if len(body.Issues) == 0 || (body.RankBeforeIssue == "") == (body.RankAfterIssue == "") {
		writeError(writer, http.StatusBadRequest, nil, "Specify issues and exactly one of rankBeforeIssue or rankAfterIssue.")
		return
	}

	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	anchor := body.RankBeforeIssue + body.RankAfterIssue
	if _, ok := emulator.lookup(anchor); !ok {
		writeIssueNotFound(writer)
		return
	}
	for _, key := range body.Issues {
		state, ok := emulator.lookup(key)
		if !ok {
			writeIssueNotFound(writer)
			return
		}
		if state.Key == strings.ToUpper(anchor) {
			writeError(writer, http.StatusBadRequest, nil, "Cannot rank an issue relative to itself.")
			return
		}
	}
	// Each "after" insert lands directly behind the anchor, so insert
	// in reverse to keep the issues' relative order.
	keys := slices.Clone(body.Issues)
	if body.RankAfterIssue != "" {
		slices.Reverse(keys)
	}
	for _, key := range keys {
		emulator.moveRank(strings.ToUpper(key), strings.ToUpper(anchor), body.RankAfterIssue != "")
	}
	writer.WriteHeader(http.StatusNoContent)
}

func (emulator *Emulator) handleIssueLink(writer http.ResponseWriter, request *http.Request) {
	var body struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
		InwardIssue struct {
			Key string `json:"key"`
		} `json:"inwardIssue"`
		OutwardIssue struct {
			Key string `json:"key"`
		} `json:"outwardIssue"`
	}
	if err := netutil.DecodeRequest(request.Body, &body); err != nil {
		writeError(writer, http.StatusBadRequest, nil, "Invalid request payload.")
		return
	}
	if _, ok := linkTypes[body.Type.Name]; !ok {
		writeError(writer, http.StatusNotFound, nil, fmt.Sprintf("No issue link type with name '%s' found.", body.Type.Name))
		return
	}

	emulator.mu.Lock()
	defer emulator.mu.Unlock()
	inward, inwardOK := emulator.lookup(body.InwardIssue.Key)
	outward, outwardOK := emulator.lookup(body.OutwardIssue.Key)
	if !inwardOK || !outwardOK {
		writeIssueNotFound(writer)
		return
	}
	if inward.Key == outward.Key {
		writeError(writer, http.StatusBadRequest, nil, "You cannot link an issue to itself.")
		return
	}
	emulator.addLink(body.Type.Name, inward.Key, outward.Key)
	now := emulator.clock.Now()
	inward.updated = now
	outward.updated = now
	writer.WriteHeader(http.StatusCreated)
}

// wireIssue renders an issue as the REST API does. fields limits the
// rendered fields; nil renders all.
func (emulator *Emulator) wireIssue(state *issueState, fields []string) map[string]any {
	all := map[string]any{
		"summary":     state.Summary,
		"description": nil,
		"status":      map[string]any{"name": string(state.Status)},
		"priority":    nil,
		"resolution":  nil,
		"issuetype":   map[string]any{"name": state.Type},
		"labels":      emptyIfNil(state.Labels),
		"assignee":    nil,
		"parent":      nil,
		"issuelinks":  emulator.wireLinks(state.Key),
		"created":     jira.FormatTime(state.created),
		"updated":     jira.FormatTime(state.updated),
	}
	all[emulator.storyPointsField] = nil

	if state.Description != "" {
		all["description"] = jira.MarkdownToADF(state.Description)
	}
	if state.Priority != "" {
		all["priority"] = map[string]any{"name": string(state.Priority)}
	}
	if state.Resolution != "" {
		all["resolution"] = map[string]any{"name": state.Resolution}
	}
	if state.Assignee != "" {
		all["assignee"] = map[string]any{"displayName": state.Assignee, "active": true}
	}
	if state.Epic != "" {
		parent := map[string]any{"key": state.Epic}
		if epic, ok := emulator.issues[state.Epic]; ok {
			parent["fields"] = map[string]any{"summary": epic.Summary}
		}
		all["parent"] = parent
	}
	if state.StoryPoints > 0 {
		all[emulator.storyPointsField] = state.StoryPoints
	}
	comments := make([]map[string]any, 0, len(state.Comments))
	for _, comment := range state.Comments {
		comments = append(comments, emulator.wireComment(comment))
	}
	all["comment"] = map[string]any{"comments": comments, "total": len(comments)}

	rendered := all
	if fields != nil {
		rendered = make(map[string]any, len(fields))
		for _, field := range fields {
			if value, ok := all[field]; ok {
				rendered[field] = value
			}
		}
	}
	return map[string]any{
		"id":     strconv.Itoa(state.id),
		"key":    state.Key,
		"fields": rendered,
	}
}

func (emulator *Emulator) wireComment(comment Comment) map[string]any {
	return map[string]any{
		"id":      comment.ID,
		"author":  map[string]any{"displayName": comment.Author},
		"body":    jira.MarkdownToADF(comment.Body),
		"created": jira.FormatTime(comment.Created),
	}
}

// wireLinks renders the links touching key from key's side: the other
// end appears as inwardIssue when key is the outward issue, and vice
// versa.
func (emulator *Emulator) wireLinks(key string) []map[string]any {
	links := []map[string]any{}
	for _, existing := range emulator.links {
		descriptions := linkTypes[existing.typeName]
		entry := map[string]any{
			"id": strconv.Itoa(existing.id),
			"type": map[string]any{
				"name":    existing.typeName,
				"inward":  descriptions[0],
				"outward": descriptions[1],
			},
		}
		switch key {
		case existing.outward:
			entry["inwardIssue"] = map[string]any{"key": existing.inward}
		case existing.inward:
			entry["outwardIssue"] = map[string]any{"key": existing.outward}
		default:
			continue
		}
		links = append(links, entry)
	}
	return links
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

// writeError writes Jira's error body shape.
func writeError(writer http.ResponseWriter, status int, fieldErrors map[string]string, messages ...string) {
	if fieldErrors == nil {
		fieldErrors = map[string]string{}
	}
	if messages == nil {
		messages = []string{}
	}
	writeJSON(writer, status, map[string]any{"errorMessages": messages, "errors": fieldErrors})
}

func writeIssueNotFound(writer http.ResponseWriter) {
	writeError(writer, http.StatusNotFound, nil, "Issue does not exist or you do not have permission to see it.")
}
