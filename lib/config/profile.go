// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/refine/lib/intent"
	"github.com/bureau-foundation/refine/lib/jira"
	"github.com/bureau-foundation/refine/lib/ticket"
)

var customFieldPattern = regexp.MustCompile(`^customfield_[0-9]+$`)

// Profile describes how a particular tracker site is set up: where it
// keeps story points, which statuses count as ready or finished, and
// the words people use for them.
type Profile struct {
	// StoryPointsField is the custom field holding story points.
	StoryPointsField string `yaml:"story_points_field"`

	// ReadyStatuses are the statuses a ticket moves into once refined.
	// Moving into one of them is gated by the readiness checklist.
	ReadyStatuses []string `yaml:"ready_statuses"`

	// TerminalStatuses end a ticket's life (Done, Won't Do). Moving
	// into one advances the session like a ready status does.
	TerminalStatuses []string `yaml:"terminal_statuses"`

	// Vocabulary overrides the built-in status language when
	// non-empty.
	Vocabulary []VocabularyEntry `yaml:"vocabulary"`
}

// VocabularyEntry maps phrases to a transition target.
type VocabularyEntry struct {
	Target     string   `yaml:"target"`
	Resolution string   `yaml:"resolution,omitempty"`
	Phrases    []string `yaml:"phrases"`
}

// DefaultProfile matches a Jira Cloud site using the stock scrum
// workflow.
func DefaultProfile() Profile {
	return Profile{
		StoryPointsField: jira.DefaultStoryPointsField,
		ReadyStatuses:    []string{string(ticket.StatusReady)},
		TerminalStatuses: []string{string(ticket.StatusDone)},
	}
}

// LoadProfile reads a YAML profile. Omitted keys keep their
// DefaultProfile values; unknown keys are an error.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("reading profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes and validates profile YAML.
func ParseProfile(data []byte) (Profile, error) {
	profile := DefaultProfile()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&profile); err != nil && !errors.Is(err, io.EOF) {
		return Profile{}, fmt.Errorf("parsing profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return Profile{}, err
	}
	return profile, nil
}

// Validate reports every problem with the profile.
func (p Profile) Validate() error {
	var errs []error
	if !customFieldPattern.MatchString(p.StoryPointsField) {
		errs = append(errs, fmt.Errorf("profile: story_points_field %q is not a custom field ID (customfield_NNNNN)", p.StoryPointsField))
	}
	if len(p.ReadyStatuses) == 0 {
		errs = append(errs, fmt.Errorf("profile: ready_statuses must name at least one status"))
	}
	for _, status := range p.ReadyStatuses {
		if p.IsTerminal(ticket.Status(status)) {
			errs = append(errs, fmt.Errorf("profile: status %q is both ready and terminal", status))
		}
	}
	for index, entry := range p.Vocabulary {
		if strings.TrimSpace(entry.Target) == "" {
			errs = append(errs, fmt.Errorf("profile: vocabulary[%d] has no target", index))
		}
		if len(entry.Phrases) == 0 {
			errs = append(errs, fmt.Errorf("profile: vocabulary[%d] (%s) has no phrases", index, entry.Target))
		}
		for _, phrase := range entry.Phrases {
			if strings.TrimSpace(phrase) == "" {
				errs = append(errs, fmt.Errorf("profile: vocabulary[%d] (%s) has an empty phrase", index, entry.Target))
			}
		}
	}
	return errors.Join(errs...)
}

// IsReady reports whether status is ready-equivalent.
func (p Profile) IsReady(status ticket.Status) bool {
	return statusIn(status, p.ReadyStatuses)
}

// IsTerminal reports whether status is terminal.
func (p Profile) IsTerminal(status ticket.Status) bool {
	return statusIn(status, p.TerminalStatuses)
}

// IntentVocabulary converts the configured vocabulary for the
// interpreter. An empty vocabulary yields intent.DefaultVocabulary.
func (p Profile) IntentVocabulary() intent.Vocabulary {
	if len(p.Vocabulary) == 0 {
		return intent.DefaultVocabulary()
	}
	words := make([]intent.StatusWord, 0, len(p.Vocabulary))
	for _, entry := range p.Vocabulary {
		words = append(words, intent.StatusWord{
			Target:     entry.Target,
			Resolution: entry.Resolution,
			Phrases:    entry.Phrases,
		})
	}
	return intent.Vocabulary{Words: words}
}

func statusIn(status ticket.Status, names []string) bool {
	for _, name := range names {
		if status.Is(ticket.Status(name)) {
			return true
		}
	}
	return false
}
