// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock is the time source. Only Now is needed: every operation in
// this module is a blocking request/response call with no timers of
// its own.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
}
