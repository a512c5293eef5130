// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jiratest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// send issues a request against emulator with the account's
// credentials and decodes a JSON response body into result when
// non-nil.
func send(t *testing.T, emulator *Emulator, method, path, body string, result any) int {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	request := httptest.NewRequest(method, path, reader)
	request.SetBasicAuth(emulator.Account().Email, emulator.Account().Token)
	recorder := httptest.NewRecorder()
	emulator.ServeHTTP(recorder, request)
	if result != nil && recorder.Body.Len() > 0 {
		if err := json.Unmarshal(recorder.Body.Bytes(), result); err != nil {
			t.Fatalf("decoding %s %s response: %v (%s)", method, path, err, recorder.Body.String())
		}
	}
	return recorder.Code
}

type errorBody struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func TestDefaultFixtureParses(t *testing.T) {
	fixture := DefaultFixture()
	if fixture.Project != "PROJ" || len(fixture.Issues) == 0 {
		t.Fatalf("unexpected default fixture: project=%q issues=%d", fixture.Project, len(fixture.Issues))
	}
}

func TestParseFixtureErrors(t *testing.T) {
	tests := []struct {
		name    string
		fixture string
	}{
		{name: "no project", fixture: `{"account": {"email": "a@b", "token": "t"}, "issues": []}`},
		{name: "bad key", fixture: `{"project": "PROJ", "account": {"email": "a@b", "token": "t"}, "issues": [{"key": "proj-1", "status": "Backlog"}]}`},
		{name: "other project", fixture: `{"project": "PROJ", "account": {"email": "a@b", "token": "t"}, "issues": [{"key": "OPS-1", "status": "Backlog"}]}`},
		{name: "unknown blocker", fixture: `{"project": "PROJ", "account": {"email": "a@b", "token": "t"}, "issues": [{"key": "PROJ-1", "status": "Backlog", "blocked_by": ["PROJ-9"]}]}`},
		{name: "bad priority", fixture: `{"project": "PROJ", "account": {"email": "a@b", "token": "t"}, "issues": [{"key": "PROJ-1", "status": "Backlog", "priority": "Urgent"}]}`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := ParseFixture([]byte(test.fixture)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestUnauthenticatedRequestIsRejected(t *testing.T) {
	emulator := New(Config{})
	for _, header := range []string{"", "Bearer wrong", "Basic !!!", "Bearer " + emulator.Account().Token + "x"} {
		request := httptest.NewRequest(http.MethodGet, "/rest/api/3/myself", nil)
		if header != "" {
			request.Header.Set("Authorization", header)
		}
		recorder := httptest.NewRecorder()
		emulator.ServeHTTP(recorder, request)
		if recorder.Code != http.StatusUnauthorized {
			t.Errorf("Authorization %q: status %d, want 401", header, recorder.Code)
		}
	}

	request := httptest.NewRequest(http.MethodGet, "/rest/api/3/myself", nil)
	request.Header.Set("Authorization", "Bearer "+emulator.Account().Token)
	recorder := httptest.NewRecorder()
	emulator.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusOK {
		t.Errorf("bearer token: status %d, want 200", recorder.Code)
	}
}

func TestUpdateRejectsReadOnlyAndUnknownFields(t *testing.T) {
	emulator := New(Config{})
	var response errorBody
	status := send(t, emulator, http.MethodPut, "/rest/api/3/issue/PROJ-4",
		`{"fields": {"summary": "Renamed", "reporter": {"id": "x"}, "customfield_99999": 1}}`, &response)
	if status != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", status)
	}
	if _, ok := response.Errors["reporter"]; !ok {
		t.Errorf("missing reporter field error: %v", response.Errors)
	}
	if _, ok := response.Errors["customfield_99999"]; !ok {
		t.Errorf("missing unknown field error: %v", response.Errors)
	}
	if _, ok := response.Errors["summary"]; ok {
		t.Errorf("valid summary reported as an error: %v", response.Errors)
	}
	issue, _ := emulator.Issue("PROJ-4")
	if issue.Summary == "Renamed" {
		t.Error("rejected update was partially applied")
	}
}

func TestUpdateLabelOperations(t *testing.T) {
	emulator := New(Config{})
	status := send(t, emulator, http.MethodPut, "/rest/api/3/issue/PROJ-2",
		`{"update": {"labels": [{"add": "payments"}, {"remove": "email"}]}}`, nil)
	if status != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", status)
	}
	issue, _ := emulator.Issue("PROJ-2")
	if diff := cmp.Diff([]string{"checkout", "payments"}, issue.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestTransitionFollowsWorkflow(t *testing.T) {
	emulator := New(Config{})

	var transitions struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"transitions"`
	}
	send(t, emulator, http.MethodGet, "/rest/api/3/issue/PROJ-6/transitions", "", &transitions)
	var names []string
	for _, transition := range transitions.Transitions {
		names = append(names, transition.Name)
	}
	if diff := cmp.Diff([]string{"Back to Backlog", "Start Progress"}, names); diff != "" {
		t.Errorf("transitions from Ready (-want +got):\n%s", diff)
	}

	// "Reopen" (61) only exists from Done.
	var response errorBody
	status := send(t, emulator, http.MethodPost, "/rest/api/3/issue/PROJ-6/transitions", `{"transition": {"id": "61"}}`, &response)
	if status != http.StatusBadRequest || len(response.ErrorMessages) == 0 {
		t.Errorf("invalid transition: status %d body %+v", status, response)
	}

	status = send(t, emulator, http.MethodPost, "/rest/api/3/issue/PROJ-7/transitions", `{"transition": {"id": "61"}}`, nil)
	if status != http.StatusNoContent {
		t.Fatalf("reopen: status %d", status)
	}
	issue, _ := emulator.Issue("PROJ-7")
	if issue.Status != ticket.StatusBacklog || issue.Resolution != "" {
		t.Errorf("after reopen: status %q resolution %q", issue.Status, issue.Resolution)
	}
}

func TestRankMultipleIssues(t *testing.T) {
	emulator := New(Config{})
	status := send(t, emulator, http.MethodPut, "/rest/agile/1.0/issue/rank",
		`{"issues": ["PROJ-4", "PROJ-5"], "rankAfterIssue": "PROJ-1"}`, nil)
	if status != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", status)
	}
	want := []string{"PROJ-1", "PROJ-4", "PROJ-5", "PROJ-2", "PROJ-3", "PROJ-6", "PROJ-7"}
	if diff := cmp.Diff(want, emulator.Rank()); diff != "" {
		t.Errorf("rank mismatch (-want +got):\n%s", diff)
	}

	status = send(t, emulator, http.MethodPut, "/rest/agile/1.0/issue/rank",
		`{"issues": ["PROJ-4"], "rankBeforeIssue": "PROJ-1", "rankAfterIssue": "PROJ-2"}`, nil)
	if status != http.StatusBadRequest {
		t.Errorf("both anchors: status %d, want 400", status)
	}
}

func TestFailNextIsOneShot(t *testing.T) {
	emulator := New(Config{})
	emulator.FailNext(http.MethodGet, "/rest/api/3/myself", http.StatusBadGateway, "upstream down")

	var response errorBody
	if status := send(t, emulator, http.MethodGet, "/rest/api/3/myself", "", &response); status != http.StatusBadGateway {
		t.Fatalf("first request: status %d, want 502", status)
	}
	if diff := cmp.Diff([]string{"upstream down"}, response.ErrorMessages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if status := send(t, emulator, http.MethodGet, "/rest/api/3/myself", "", nil); status != http.StatusOK {
		t.Errorf("second request: status %d, want 200", status)
	}
	if got := len(emulator.Requests()); got != 2 {
		t.Errorf("recorded %d requests, want 2", got)
	}
}

func TestSearchPagination(t *testing.T) {
	emulator := New(Config{})
	var page struct {
		Issues []struct {
			Key string `json:"key"`
		} `json:"issues"`
		NextPageToken string `json:"nextPageToken"`
		IsLast        bool   `json:"isLast"`
	}
	send(t, emulator, http.MethodGet, "/rest/api/3/search/jql?jql=project%20%3D%20PROJ&maxResults=5", "", &page)
	if len(page.Issues) != 5 || page.IsLast || page.NextPageToken == "" {
		t.Fatalf("first page: %d issues, isLast=%v token=%q", len(page.Issues), page.IsLast, page.NextPageToken)
	}
	token := page.NextPageToken
	page.Issues = nil
	page.NextPageToken = ""
	send(t, emulator, http.MethodGet, "/rest/api/3/search/jql?jql=project%20%3D%20PROJ&maxResults=5&nextPageToken="+token, "", &page)
	if len(page.Issues) != 2 || !page.IsLast || page.NextPageToken != "" {
		t.Fatalf("second page: %d issues, isLast=%v token=%q", len(page.Issues), page.IsLast, page.NextPageToken)
	}
	if page.Issues[0].Key != "PROJ-6" {
		t.Errorf("second page starts at %s, want PROJ-6", page.Issues[0].Key)
	}
}
