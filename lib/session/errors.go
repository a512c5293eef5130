// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/readiness"
)

// ErrAmbiguousCommand wraps every turn whose utterance did not map to
// exactly one action. The ticket is untouched.
var ErrAmbiguousCommand = errors.New("ambiguous command")

// ErrNoPrevious is returned when navigating back from the first ticket.
var ErrNoPrevious = errors.New("already at the first ticket")

// NotReadyError is returned when a move into a ready status is blocked
// by the readiness checklist. No call was made to the tracker.
type NotReadyError struct {
	Key    string
	Target string
	Gaps   []readiness.Result
}

func (e *NotReadyError) Error() string {
	checks := make([]string, len(e.Gaps))
	for index, gap := range e.Gaps {
		checks[index] = string(gap.Check)
	}
	return fmt.Sprintf("%s is not ready for %q: %s", e.Key, e.Target, strings.Join(checks, ", "))
}

// IsNotReady reports whether err is or wraps a *NotReadyError.
func IsNotReady(err error) bool {
	var target *NotReadyError
	return errors.As(err, &target)
}

// ErrQueueExhausted is returned by Present once every queued ticket has
// been handled. The session has ended.
var ErrQueueExhausted = errors.New("no tickets left in the queue")
