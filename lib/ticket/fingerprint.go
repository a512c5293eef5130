// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package ticket

import (
	"encoding/hex"
	"encoding/json"
	"slices"

	"github.com/zeebo/blake3"
)

// fingerprintKey domain-separates ticket fingerprints from any other
// BLAKE3 use. Exactly 32 bytes.
var fingerprintKey = []byte("refine.ticket.fingerprint.v1\x00\x00\x00\x00")

// Fingerprint identifies the exact content of a snapshot. Two snapshots
// with the same fingerprint agree on every field a refinement decision
// can depend on.
type Fingerprint [32]byte

// String returns the full hex encoding.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters for display.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// IsZero reports whether f is the zero value (no snapshot).
func (f Fingerprint) IsZero() bool {
	return f == Fingerprint{}
}

// MarshalText encodes the fingerprint as hex, so it appears as a
// string in JSON transcripts.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// canonicalTicket fixes field order and set ordering so equal content
// always encodes to equal bytes. The URL and parsed description
// sections are omitted: the URL is presentation and the sections are
// derived from Description.
type canonicalTicket struct {
	Key              string    `json:"key"`
	Summary          string    `json:"summary"`
	Type             string    `json:"type"`
	Description      string    `json:"description"`
	Status           string    `json:"status"`
	Resolution       string    `json:"resolution"`
	Priority         string    `json:"priority"`
	StoryPoints      int       `json:"story_points"`
	Epic             string    `json:"epic"`
	Labels           []string  `json:"labels"`
	Blockers         []string  `json:"blockers"`
	BlockersReviewed bool      `json:"blockers_reviewed"`
	Assignee         string    `json:"assignee"`
	Comments         []Comment `json:"comments"`
}

// ComputeFingerprint returns the keyed BLAKE3 hash of the canonical
// encoding of t.
func ComputeFingerprint(t Ticket) Fingerprint {
	labels := slices.Clone(t.Labels)
	slices.Sort(labels)
	blockers := slices.Clone(t.Blockers)
	slices.Sort(blockers)

	canonical := canonicalTicket{
		Key:              t.Key,
		Summary:          t.Summary,
		Type:             t.Type,
		Description:      t.Description,
		Status:           string(t.Status),
		Resolution:       t.Resolution,
		Priority:         string(t.Priority),
		StoryPoints:      t.StoryPoints,
		Epic:             t.Epic,
		Labels:           labels,
		Blockers:         blockers,
		BlockersReviewed: t.BlockersReviewed,
		Assignee:         t.Assignee,
		Comments:         t.Comments,
	}
	// Marshal cannot fail: every field is a string, int, bool, slice
	// of strings, or Comment (strings and a time.Time).
	data, _ := json.Marshal(canonical)

	hasher, err := blake3.NewKeyed(fingerprintKey)
	if err != nil {
		panic("ticket: fingerprint key must be 32 bytes: " + err.Error())
	}
	hasher.Write(data)

	var fingerprint Fingerprint
	copy(fingerprint[:], hasher.Sum(nil))
	return fingerprint
}
