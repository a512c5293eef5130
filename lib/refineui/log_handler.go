// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refineui

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// logNoticeMsg carries a log record to the model's status line.
type logNoticeMsg struct {
	Summary string
	Level   slog.Level
}

// logNoticeFadeMsg clears a notice once it has been shown long enough.
type logNoticeFadeMsg struct {
	Summary string
}

// logNoticeDuration is how long a notice replaces the help line.
const logNoticeDuration = 5 * time.Second

// Sender delivers messages to a running program. *tea.Program
// implements it.
type Sender interface {
	Send(msg tea.Msg)
}

// StatusLogHandler is a slog.Handler that shows records on the session
// screen's status line while the alternate screen hides stderr.
// Records below the level are dropped, and so are records that arrive
// before SetSender. When next is non-nil every record is also passed
// to it unchanged, so a log file keeps the complete stream.
//
// Handlers derived with WithAttrs and WithGroup share the sender, so
// one SetSender call reaches all of them.
type StatusLogHandler struct {
	level  slog.Level
	sender *atomic.Pointer[Sender]
	next   slog.Handler

	// prefix qualifies attribute keys with the open groups.
	prefix string
	attrs  []string
}

// NewStatusLogHandler returns a handler showing records at or above
// level. next may be nil.
func NewStatusLogHandler(level slog.Level, next slog.Handler) *StatusLogHandler {
	return &StatusLogHandler{
		level:  level,
		sender: &atomic.Pointer[Sender]{},
		next:   next,
	}
}

// SetSender starts delivery. Safe to call from any goroutine.
func (handler *StatusLogHandler) SetSender(sender Sender) {
	handler.sender.Store(&sender)
}

func (handler *StatusLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level >= handler.level {
		return true
	}
	return handler.next != nil && handler.next.Enabled(ctx, level)
}

// Handle forwards the record to next, then sends a one-line summary,
// "message (key=value, ...)", to the program.
func (handler *StatusLogHandler) Handle(ctx context.Context, record slog.Record) error {
	var forwardErr error
	if handler.next != nil && handler.next.Enabled(ctx, record.Level) {
		forwardErr = handler.next.Handle(ctx, record)
	}
	if record.Level < handler.level {
		return forwardErr
	}
	sender := handler.sender.Load()
	if sender == nil {
		return forwardErr
	}

	parts := append([]string{}, handler.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		parts = appendAttr(parts, handler.prefix, attr)
		return true
	})
	summary := record.Message
	if len(parts) > 0 {
		summary += " (" + strings.Join(parts, ", ") + ")"
	}
	(*sender).Send(logNoticeMsg{Summary: summary, Level: record.Level})
	return forwardErr
}

func (handler *StatusLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := handler.derive()
	for _, attr := range attrs {
		derived.attrs = appendAttr(derived.attrs, handler.prefix, attr)
	}
	if handler.next != nil {
		derived.next = handler.next.WithAttrs(attrs)
	}
	return derived
}

func (handler *StatusLogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return handler
	}
	derived := handler.derive()
	derived.prefix = handler.prefix + name + "."
	if handler.next != nil {
		derived.next = handler.next.WithGroup(name)
	}
	return derived
}

func (handler *StatusLogHandler) derive() *StatusLogHandler {
	return &StatusLogHandler{
		level:  handler.level,
		sender: handler.sender,
		next:   handler.next,
		prefix: handler.prefix,
		attrs:  append([]string{}, handler.attrs...),
	}
}

// appendAttr renders attr as key=value, flattening groups.
func appendAttr(parts []string, prefix string, attr slog.Attr) []string {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return parts
	}
	if attr.Value.Kind() == slog.KindGroup {
		nested := prefix
		if attr.Key != "" {
			nested += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			parts = appendAttr(parts, nested, member)
		}
		return parts
	}
	return append(parts, prefix+attr.Key+"="+attr.Value.String())
}
