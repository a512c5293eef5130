// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package jira

import (
	"context"
	"fmt"
	"strings"

	"github.com/bureau-foundation/refine/lib/ticket"
)

// AddComment appends a comment to key. text is markdown; it is sent as
// ADF so links and lists render in the tracker. Returns the comment as
// the tracker stored it.
func (client *Client) AddComment(ctx context.Context, key, text string) (*ticket.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("jira: comment on %s is empty", key)
	}
	body := map[string]any{"body": MarkdownToADF(text)}

	var created wireComment
	if err := client.post(ctx, issuePath(key, "/comment"), key, body, &created); err != nil {
		return nil, err
	}
	comment := &ticket.Comment{
		Body:    ADFToMarkdown(created.Body),
		Created: parseTime(created.Created),
	}
	if comment.Body == "" {
		comment.Body = text
	}
	if comment.Created.IsZero() {
		comment.Created = client.clock.Now()
	}
	if created.Author != nil {
		comment.Author = created.Author.DisplayName
	}
	return comment, nil
}
