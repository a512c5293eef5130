// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that stamp records with the current time (the session
// transcript, the tracker emulator's created/updated fields) accept a
// Clock instead of calling time.Now directly. Production code passes
// Real(); tests pass Fake() so that transcripts and fixture timestamps
// are deterministic.
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	controller := session.NewController(session.Config{Clock: c, ...})
//	c.Advance(time.Minute)
package clock
