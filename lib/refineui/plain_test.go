// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/session"
	"github.com/bureau-foundation/refine/lib/ticket"
)

func TestRunPlainWalksBacklog(t *testing.T) {
	sc := newScreen(t, nil)
	input := strings.NewReader("ready\nhmm\nadd label payments\nnext\ndone for today\n")
	var output bytes.Buffer

	report, err := RunPlain(context.Background(), sc.controller, sc.session, input, &output, PlainConfig{})
	if err != nil {
		t.Fatalf("RunPlain: %v", err)
	}

	transcript := output.String()
	for _, want := range []string{
		"PROJ-2  ",
		"PROJ-2 moved to Ready",
		"PROJ-3  ",
		`Try "ready"`,
		"PROJ-3 updated",
		"labels: (unset) → payments",
		"PROJ-4  ",
	} {
		if !strings.Contains(transcript, want) {
			t.Errorf("output missing %q:\n%s", want, transcript)
		}
	}

	if sc.session.State() != session.Ended {
		t.Errorf("state = %s, want ended", sc.session.State())
	}
	var keys []string
	for _, line := range report.Tickets {
		keys = append(keys, line.Key)
	}
	if strings.Join(keys, ",") != "PROJ-2,PROJ-3,PROJ-4" {
		t.Errorf("report tickets = %v", keys)
	}
	issue, _ := sc.emulator.Issue("PROJ-2")
	if !issue.Status.Is(ticket.StatusReady) {
		t.Errorf("PROJ-2 status = %s, want Ready", issue.Status)
	}
}

func TestRunPlainEndOfInputEndsSession(t *testing.T) {
	sc := newScreen(t, nil)
	var output bytes.Buffer

	report, err := RunPlain(context.Background(), sc.controller, sc.session, strings.NewReader(""), &output, PlainConfig{Prompt: "refine> "})
	if err != nil {
		t.Fatalf("RunPlain: %v", err)
	}
	if sc.session.State() != session.Ended {
		t.Errorf("state = %s, want ended", sc.session.State())
	}
	if len(report.Tickets) != 1 || report.Tickets[0].Applied != 0 {
		t.Errorf("report = %+v, want PROJ-2 seen without changes", report.Tickets)
	}
	if !strings.Contains(output.String(), "refine> ") {
		t.Errorf("prompt not written:\n%s", output.String())
	}
}

func TestRunPlainRetriesFailedLoad(t *testing.T) {
	sc := newScreen(t, nil)
	sc.emulator.FailNext(http.MethodGet, "/rest/api/3/issue/PROJ-2", http.StatusServiceUnavailable)
	var output bytes.Buffer

	_, err := RunPlain(context.Background(), sc.controller, sc.session, strings.NewReader("\nend session\n"), &output, PlainConfig{})
	if err != nil {
		t.Fatalf("RunPlain: %v", err)
	}
	transcript := output.String()
	if !strings.Contains(transcript, "Could not load the ticket") || !strings.Contains(transcript, "Press enter to retry.") {
		t.Errorf("failure not reported:\n%s", transcript)
	}
	if !strings.Contains(transcript, "PROJ-2  ") {
		t.Errorf("ticket not shown after the retry:\n%s", transcript)
	}
}

func TestRunPlainCancelledContext(t *testing.T) {
	sc := newScreen(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := RunPlain(ctx, sc.controller, sc.session, strings.NewReader("ready\n"), &bytes.Buffer{}, PlainConfig{})
	if err == nil {
		t.Fatal("expected the cancellation to be returned")
	}
	if sc.session.State() != session.Ended {
		t.Errorf("state = %s, want ended", sc.session.State())
	}
}

func TestRunPlainReturnsAuthFailure(t *testing.T) {
	sc := newScreen(t, nil)
	sc.emulator.FailNext(http.MethodGet, "/rest/api/3/issue/PROJ-2", http.StatusUnauthorized)
	var output bytes.Buffer

	report, err := RunPlain(context.Background(), sc.controller, sc.session, strings.NewReader("ready\n"), &output, PlainConfig{})
	if !jira.IsAuth(err) {
		t.Fatalf("RunPlain error = %v, want an auth error", err)
	}
	if sc.session.State() != session.Ended {
		t.Errorf("state = %s, want ended", sc.session.State())
	}
	if report.Queued != 4 {
		t.Errorf("report queued = %d, want 4", report.Queued)
	}
	if strings.Contains(output.String(), "Press enter to retry.") {
		t.Errorf("an auth failure should not offer a retry:\n%s", output.String())
	}
}
