// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// Transitions returns the transitions available from key's current
// status, in the tracker's order.
func (client *Client) Transitions(ctx context.Context, key string) ([]ticket.Transition, error) {
	var response wireTransitionsResponse
	if err := client.get(ctx, issuePath(key, "/transitions"), key, &response); err != nil {
		return nil, err
	}
	transitions := make([]ticket.Transition, 0, len(response.Transitions))
	for _, wire := range response.Transitions {
		transition := ticket.Transition{ID: wire.ID, Name: wire.Name}
		if wire.To != nil {
			transition.To = ticket.Status(wire.To.Name)
		}
		transitions = append(transitions, transition)
	}
	return transitions, nil
}

// Transition moves key to target, named either by transition or by
// destination status, and returns the snapshot afterwards. resolution,
// when non-empty, is set on the transition screen ("Won't Do").
//
// When no available transition matches, Transition returns an
// *InvalidTransitionError listing the ones that do exist, and the
// ticket is left untouched.
func (client *Client) Transition(ctx context.Context, key, target, resolution string) (*ticket.Ticket, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, fmt.Errorf("jira: transition target is empty")
	}

	available, err := client.Transitions(ctx, key)
	if err != nil {
		return nil, err
	}
	chosen, found := ticket.MatchTransition(available, target)
	if !found {
		return nil, &InvalidTransitionError{
			Key:       key,
			Target:    target,
			Current:   client.currentStatus(ctx, key),
			Available: available,
		}
	}

	body := map[string]any{
		"transition": map[string]string{"id": chosen.ID},
	}
	if resolution = strings.TrimSpace(resolution); resolution != "" {
		body["fields"] = map[string]any{
			"resolution": namedObject{Name: resolution},
		}
	}
	if err := client.post(ctx, issuePath(key, "/transitions"), key, body, nil); err != nil {
		return nil, err
	}
	client.logger.Info("ticket transitioned",
		"key", key,
		"transition", chosen.Name,
		"to", string(chosen.To),
	)
	return client.FetchTicket(ctx, key)
}

// currentStatus looks up key's status for error reporting. Failures
// yield an empty status; the caller already has an error to return.
func (client *Client) currentStatus(ctx context.Context, key string) ticket.Status {
	var issue struct {
		Fields struct {
			Status *namedObject `json:"status"`
		} `json:"fields"`
	}
	if err := client.get(ctx, issuePath(key, "?fields=status"), key, &issue); err != nil {
		client.logger.Debug("status lookup failed", "key", key, "error", err)
		return ""
	}
	if issue.Fields.Status == nil {
		return ""
	}
	return ticket.Status(issue.Fields.Status.Name)
}
