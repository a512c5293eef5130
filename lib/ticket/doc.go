// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ticket is the in-memory shape of a tracker ticket.
//
// A [Ticket] is a snapshot: it is produced by the tracker client from
// a remote read and replaced wholesale after every mutation. Nothing in
// this module edits a Ticket to reflect a change it has requested; the
// tracker's copy is authoritative and local values are only ever the
// last thing the tracker said.
//
// # Description sections
//
// Acceptance criteria and the blockers review live inside the ticket
// description as markdown sections:
//
//	Users cannot reset passwords without contacting support.
//
//	## Acceptance Criteria
//
//	- When a user requests a reset, an email is sent within a minute
//
//	## Blockers
//
//	- None
//
// [ParseDescription] splits a description into the problem statement,
// criteria and blockers; [Description.Markdown] writes it back.
// A present Blockers section, even one that only says "None", marks the
// blockers as reviewed.
//
// # Comparison
//
// [Diff] lists the fields that differ between two snapshots and
// [ComputeFingerprint] hashes a snapshot. Both exist for reporting and audit;
// neither is used to decide what to send to the tracker.
package ticket
