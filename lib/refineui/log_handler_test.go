// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"
)

type recordingSender struct {
	mu       sync.Mutex
	messages []tea.Msg
}

func (sender *recordingSender) Send(msg tea.Msg) {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	sender.messages = append(sender.messages, msg)
}

func (sender *recordingSender) notices() []logNoticeMsg {
	sender.mu.Lock()
	defer sender.mu.Unlock()
	var notices []logNoticeMsg
	for _, msg := range sender.messages {
		if notice, ok := msg.(logNoticeMsg); ok {
			notices = append(notices, notice)
		}
	}
	return notices
}

func TestStatusLogHandlerDeliversAtLevel(t *testing.T) {
	handler := NewStatusLogHandler(slog.LevelWarn, nil)
	sender := &recordingSender{}
	logger := slog.New(handler)

	logger.Warn("dropped before the program starts")
	handler.SetSender(sender)
	logger.Info("below the level")
	logger.Warn("tracker slow", "elapsed", "3s")
	logger.Error("turn failed", "key", "PROJ-3")

	want := []logNoticeMsg{
		{Summary: "tracker slow (elapsed=3s)", Level: slog.LevelWarn},
		{Summary: "turn failed (key=PROJ-3)", Level: slog.LevelError},
	}
	if diff := cmp.Diff(want, sender.notices()); diff != "" {
		t.Errorf("notices (-want +got):\n%s", diff)
	}
}

func TestStatusLogHandlerDerivedHandlersShareSender(t *testing.T) {
	handler := NewStatusLogHandler(slog.LevelWarn, nil)
	derived := slog.New(handler).With("session", "0b6f1f2c").WithGroup("tracker")
	sender := &recordingSender{}
	handler.SetSender(sender)

	derived.Warn("request failed", "status", 503, slog.Group("retry", "after", "2s"))

	want := []logNoticeMsg{{
		Summary: "request failed (session=0b6f1f2c, tracker.status=503, tracker.retry.after=2s)",
		Level:   slog.LevelWarn,
	}}
	if diff := cmp.Diff(want, sender.notices()); diff != "" {
		t.Errorf("notices (-want +got):\n%s", diff)
	}
}

func TestStatusLogHandlerForwardsEverything(t *testing.T) {
	var file bytes.Buffer
	next := slog.NewTextHandler(&file, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewStatusLogHandler(slog.LevelWarn, next)
	sender := &recordingSender{}
	handler.SetSender(sender)
	logger := slog.New(handler).With("session", "0b6f1f2c")

	if !handler.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("debug should be enabled when the next handler wants it")
	}
	logger.Debug("fetching backlog")
	logger.Warn("tracker slow")

	written := file.String()
	for _, want := range []string{"msg=\"fetching backlog\" session=0b6f1f2c", "msg=\"tracker slow\" session=0b6f1f2c"} {
		if !strings.Contains(written, want) {
			t.Errorf("log file missing %q:\n%s", want, written)
		}
	}
	if got := len(sender.notices()); got != 1 {
		t.Errorf("%d notices, want only the warning", got)
	}
}
