// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"fmt"
	"time"
)

// TB is the part of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// Receive returns the next value from ch, failing the test if none
// arrives within timeout or ch is closed. what names the wait in the
// failure message and may be a format string followed by its args.
//
//	message := testutil.Receive(t, messages, 10*time.Second, "waiting for %s", key)
func Receive[T any](t TB, ch <-chan T, timeout time.Duration, what string, args ...any) T {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case value, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while %s", fmt.Sprintf(what, args...))
		}
		return value
	case <-timer.C:
		t.Fatalf("timed out after %v %s", timeout, fmt.Sprintf(what, args...))
	}
	panic("unreachable")
}
