// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"context"
	"fmt"
)

// RankDirection is the direction a Rerank moves a ticket in the
// backlog order.
type RankDirection string

const (
	// RankUp moves toward the top of the backlog (higher priority).
	RankUp RankDirection = "up"

	// RankDown moves toward the bottom.
	RankDown RankDirection = "down"
)

// RankResult reports where a Rerank left the ticket. Positions are
// zero-based indexes into the backlog query's order.
type RankResult struct {
	Key    string
	From   int
	To     int
	Anchor string
}

// Moved reports whether the rank actually changed.
func (result RankResult) Moved() bool {
	return result.From != result.To
}

// Rerank moves key count positions up or down the backlog. The new
// position is clamped to the backlog's ends; a ticket already at the
// boundary is reported unmoved and no rank request is sent.
//
// Moving up ranks key before the ticket currently at the target
// position; moving down ranks it after that ticket. Either way key
// ends up exactly at the target position.
func (client *Client) Rerank(ctx context.Context, key string, direction RankDirection, count int) (RankResult, error) {
	if count < 1 {
		return RankResult{}, fmt.Errorf("jira: rank count must be at least 1, got %d", count)
	}
	if direction != RankUp && direction != RankDown {
		return RankResult{}, fmt.Errorf("jira: unknown rank direction %q", direction)
	}

	keys, current, err := client.backlogPosition(ctx, key, direction, count)
	if err != nil {
		return RankResult{}, err
	}

	var target int
	if direction == RankUp {
		target = max(current-count, 0)
	} else {
		target = min(current+count, len(keys)-1)
	}
	result := RankResult{Key: key, From: current, To: target}
	if target == current {
		return result, nil
	}
	result.Anchor = keys[target]

	body := map[string]any{"issues": []string{key}}
	if direction == RankUp {
		body["rankBeforeIssue"] = result.Anchor
	} else {
		body["rankAfterIssue"] = result.Anchor
	}
	if err := client.put(ctx, agilePrefix+"/issue/rank", key, body); err != nil {
		return RankResult{}, err
	}
	client.logger.Info("ticket reranked",
		"key", key,
		"direction", string(direction),
		"from", current,
		"to", target,
		"anchor", result.Anchor,
	)
	return result, nil
}

// backlogPosition pages through the backlog until it finds key, and
// when moving down, until count more tickets follow it (or the
// backlog ends). Returns the keys seen and key's index among them.
func (client *Client) backlogPosition(ctx context.Context, key string, direction RankDirection, count int) ([]string, int, error) {
	var keys []string
	position := -1
	err := client.search(ctx, client.backlogJQL, []string{"summary"}, maxBacklogScan, func(issue wireIssue, _ wireFields) bool {
		keys = append(keys, issue.Key)
		if issue.Key == key {
			position = len(keys) - 1
		}
		if position < 0 {
			return true
		}
		return direction == RankDown && len(keys)-1 < position+count
	})
	if err != nil {
		return nil, 0, err
	}
	if position < 0 {
		return nil, 0, fmt.Errorf("jira: %s is not in the first %d backlog entries", key, maxBacklogScan)
	}
	return keys, position, nil
}
